// Package withdraw defines the statement proven when part of a note's value
// leaves the pool in the clear. The withdrawn amount is public; the change
// stays hidden as a fresh note commitment.
package withdraw

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"

	"github.com/zknote/shieldpool/circuits"
	"github.com/zknote/shieldpool/note"
	"github.com/zknote/shieldpool/tree"
)

var (
	// ErrIncompleteNote is returned when the input note has no leaf index.
	ErrIncompleteNote = errors.New("input note is not finalized")
	// ErrInsufficientValue is returned when the note cannot cover the
	// requested public amount.
	ErrInsufficientValue = errors.New("withdraw amount exceeds note value")
	// ErrBlindingMismatch is returned when the change note does not carry
	// the input blinding. The public part of the withdrawal is zero-blinded,
	// so all of the input blinding must move to the change note for the
	// in-statement point check to hold.
	ErrBlindingMismatch = errors.New("change note must reuse the input blinding")
)

// Circuit is the withdraw statement. Public inputs, in order: the anchor
// Merkle root, the spent note's nullifier, the amount released in the clear
// and the change note commitment.
type Circuit struct {
	Root             frontend.Variable `gnark:",public"`
	NullifierHash    frontend.Variable `gnark:",public"`
	Amount           frontend.Variable `gnark:",public"`
	ChangeCommitment frontend.Variable `gnark:",public"`

	OwnerKey            frontend.Variable
	InAmount            frontend.Variable
	InBlinding          frontend.Variable
	InSecret            frontend.Variable
	InNullifierPreimage frontend.Variable
	LeafIndex           frontend.Variable
	Siblings            []frontend.Variable

	ChangeAmount            frontend.Variable
	ChangeSecret            frontend.Variable
	ChangeNullifierPreimage frontend.Variable
}

// ShapeID distinguishes circuit shapes of different accumulator depths for
// artifact caching.
func (c *Circuit) ShapeID() string {
	return fmt.Sprintf("depth%d", len(c.Siblings))
}

// New returns an empty circuit shaped for the given accumulator depth.
func New(depth int) *Circuit {
	return &Circuit{Siblings: make([]frontend.Variable, depth)}
}

// Define builds the constraint system. It mirrors the transfer statement
// for the input side; on the output side the change note is owned by the
// withdrawer (its owner key is the recomputed public key) and carries the
// whole input blinding, so the released amount is zero-blinded and the
// homomorphic identity pcm_in == Amount·G + pcm_change holds.
func (c *Circuit) Define(api frontend.API) error {
	ped, err := circuits.NewPedersen(api)
	if err != nil {
		return err
	}
	owner := ped.ScalarBaseMul(c.OwnerKey)

	circuits.AssertAmountRange(api, c.InAmount)
	pcmIn := ped.Commit(c.InAmount, c.InBlinding)
	leaf, err := circuits.Hash(api, pcmIn.X, pcmIn.Y, c.InSecret, c.InNullifierPreimage, owner.X)
	if err != nil {
		return err
	}

	root, err := circuits.MerkleRoot(api, leaf, c.LeafIndex, c.Siblings)
	if err != nil {
		return err
	}
	api.AssertIsEqual(root, c.Root)

	nullifier, err := circuits.Hash(api, c.InNullifierPreimage, c.InSecret, c.LeafIndex)
	if err != nil {
		return err
	}
	api.AssertIsEqual(nullifier, c.NullifierHash)

	circuits.AssertAmountRange(api, c.Amount)
	circuits.AssertAmountRange(api, c.ChangeAmount)
	api.AssertIsEqual(c.InAmount, api.Add(c.Amount, c.ChangeAmount))

	pcmChange := ped.Commit(c.ChangeAmount, c.InBlinding)
	cmChange, err := circuits.Hash(api, pcmChange.X, pcmChange.Y, c.ChangeSecret, c.ChangeNullifierPreimage, owner.X)
	if err != nil {
		return err
	}
	api.AssertIsEqual(cmChange, c.ChangeCommitment)

	released := ped.ScalarBaseMul(c.Amount)
	circuits.AssertPointsEqual(api, pcmIn, ped.Curve().Add(released, pcmChange))
	return nil
}

// NewAssignment builds the full witness for withdrawing amount from in,
// with change as the leftover note. The change note must be owned by the
// same key that owns in and reuse in's blinding.
func NewAssignment(in *note.Note, ownerKey *big.Int, path *tree.Path, root *big.Int, amount uint64, change *note.Note) (*Circuit, error) {
	if !in.Finalized() {
		return nil, ErrIncompleteNote
	}
	if int64(path.Index) != in.LeafIndex {
		return nil, fmt.Errorf("path index %d does not match note leaf index %d", path.Index, in.LeafIndex)
	}
	if amount > in.Amount || change.Amount != in.Amount-amount {
		return nil, ErrInsufficientValue
	}
	if change.Blinding.Cmp(in.Blinding) != 0 {
		return nil, ErrBlindingMismatch
	}
	// the statement derives the change owner from OwnerKey, so a change
	// note keyed to anyone else would produce an unprovable witness
	if !change.OwnerKey.Equal(in.OwnerKey) {
		return nil, fmt.Errorf("change note must be owned by the input note owner")
	}

	nullifier, err := in.Nullifier()
	if err != nil {
		return nil, err
	}
	cmChange, err := change.Commitment()
	if err != nil {
		return nil, err
	}

	assignment := New(len(path.Siblings))
	assignment.Root = root
	assignment.NullifierHash = nullifier
	assignment.Amount = amount
	assignment.ChangeCommitment = cmChange
	assignment.OwnerKey = ownerKey
	assignment.InAmount = in.Amount
	assignment.InBlinding = in.Blinding
	assignment.InSecret = in.Secret
	assignment.InNullifierPreimage = in.NullifierPreimage
	assignment.LeafIndex = path.Index
	for i, sibling := range path.Siblings {
		assignment.Siblings[i] = sibling
	}
	assignment.ChangeAmount = change.Amount
	assignment.ChangeSecret = change.Secret
	assignment.ChangeNullifierPreimage = change.NullifierPreimage
	return assignment, nil
}

// PublicAssignment shapes the public inputs for verification.
func PublicAssignment(depth int, root, nullifierHash *big.Int, amount uint64, changeCommitment *big.Int) *Circuit {
	assignment := New(depth)
	assignment.Root = root
	assignment.NullifierHash = nullifierHash
	assignment.Amount = amount
	assignment.ChangeCommitment = changeCommitment
	return assignment
}
