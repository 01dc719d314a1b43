// Package transfer defines the statement proven when a note is split into
// two new notes without revealing amounts, owners or which leaf was spent.
package transfer

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"

	"github.com/zknote/shieldpool/circuits"
	"github.com/zknote/shieldpool/note"
	"github.com/zknote/shieldpool/tree"
)

var (
	// ErrIncompleteNote is returned when the input note has no leaf index.
	ErrIncompleteNote = errors.New("input note is not finalized")
	// ErrUnbalanced is returned when output amounts do not sum to the input.
	ErrUnbalanced = errors.New("output amounts do not sum to input amount")
	// ErrBlindingSplit is returned when output blindings do not sum to the
	// input blinding as integers. The split must be exact: a field-reduced
	// split would break the homomorphic point check inside the statement.
	ErrBlindingSplit = errors.New("output blindings do not sum to input blinding")
)

// OutputNote is the private witness for one freshly created note.
type OutputNote struct {
	Amount            frontend.Variable
	Blinding          frontend.Variable
	Secret            frontend.Variable
	NullifierPreimage frontend.Variable
	OwnerX            frontend.Variable
	OwnerY            frontend.Variable
}

// Circuit is the transfer statement. Public inputs, in order: the anchor
// Merkle root, the spent note's nullifier and the two new note commitments.
// Everything else is private witness.
type Circuit struct {
	Root           frontend.Variable `gnark:",public"`
	NullifierHash  frontend.Variable `gnark:",public"`
	NewCommitment1 frontend.Variable `gnark:",public"`
	NewCommitment2 frontend.Variable `gnark:",public"`

	OwnerKey            frontend.Variable
	InAmount            frontend.Variable
	InBlinding          frontend.Variable
	InSecret            frontend.Variable
	InNullifierPreimage frontend.Variable
	LeafIndex           frontend.Variable
	Siblings            []frontend.Variable

	Out1 OutputNote
	Out2 OutputNote
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

// Define builds the constraint system:
//  1. the prover knows the input note opening and the owner's private key,
//  2. the note commitment sits in the tree under the public root,
//  3. the public nullifier is derived from the same secret material and the
//     same leaf index that located the note,
//  4. both outputs are well-formed notes with 64-bit amounts,
//  5. amounts are conserved, both arithmetically and homomorphically on the
//     Pedersen commitments.
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

	// the same LeafIndex variable drives both the inclusion path above and
	// the nullifier below
	nullifier, err := circuits.Hash(api, c.InNullifierPreimage, c.InSecret, c.LeafIndex)
	if err != nil {
		return err
	}
	api.AssertIsEqual(nullifier, c.NullifierHash)

	pcm1, err := constrainOutput(api, ped, c.Out1, c.NewCommitment1)
	if err != nil {
		return err
	}
	pcm2, err := constrainOutput(api, ped, c.Out2, c.NewCommitment2)
	if err != nil {
		return err
	}

	api.AssertIsEqual(c.InAmount, api.Add(c.Out1.Amount, c.Out2.Amount))
	circuits.AssertPointsEqual(api, pcmIn, ped.Curve().Add(pcm1, pcm2))
	return nil
}

// constrainOutput checks one output note: range, valid owner point, and
// that the public commitment opens to the claimed fields. It returns the
// output's Pedersen commitment for the balance check.
func constrainOutput(api frontend.API, ped *circuits.Pedersen, out OutputNote, commitment frontend.Variable) (twistededwards.Point, error) {
	circuits.AssertAmountRange(api, out.Amount)
	pcm := ped.Commit(out.Amount, out.Blinding)
	ped.Curve().AssertIsOnCurve(twistededwards.Point{X: out.OwnerX, Y: out.OwnerY})
	cm, err := circuits.Hash(api, pcm.X, pcm.Y, out.Secret, out.NullifierPreimage, out.OwnerX)
	if err != nil {
		return pcm, err
	}
	api.AssertIsEqual(cm, commitment)
	return pcm, nil
}

// SplitBlinding samples an exact integer split of the input blinding for
// two output notes: b1 uniform in [0, blinding] and b2 = blinding - b1.
// Splitting modulo the field instead would wrap for roughly half of all
// pairs and make the in-statement point check unsatisfiable.
func SplitBlinding(blinding *big.Int) (*big.Int, *big.Int, error) {
	bound := new(big.Int).Add(blinding, big.NewInt(1))
	b1, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return nil, nil, err
	}
	return b1, new(big.Int).Sub(blinding, b1), nil
}

// NewAssignment builds the full witness for spending in and creating out1
// and out2. The anchor root must be a root the verifier will accept; the
// path must locate the input note's commitment under it.
func NewAssignment(in *note.Note, ownerKey *big.Int, path *tree.Path, root *big.Int, out1, out2 *note.Note) (*Circuit, error) {
	if !in.Finalized() {
		return nil, ErrIncompleteNote
	}
	if int64(path.Index) != in.LeafIndex {
		return nil, fmt.Errorf("path index %d does not match note leaf index %d", path.Index, in.LeafIndex)
	}
	outSum := new(big.Int).Add(
		new(big.Int).SetUint64(out1.Amount),
		new(big.Int).SetUint64(out2.Amount),
	)
	if outSum.Cmp(new(big.Int).SetUint64(in.Amount)) != 0 {
		return nil, ErrUnbalanced
	}
	blindingSum := new(big.Int).Add(out1.Blinding, out2.Blinding)
	if blindingSum.Cmp(in.Blinding) != 0 {
		return nil, ErrBlindingSplit
	}

	nullifier, err := in.Nullifier()
	if err != nil {
		return nil, err
	}
	cm1, err := out1.Commitment()
	if err != nil {
		return nil, err
	}
	cm2, err := out2.Commitment()
	if err != nil {
		return nil, err
	}

	assignment := New(len(path.Siblings))
	assignment.Root = root
	assignment.NullifierHash = nullifier
	assignment.NewCommitment1 = cm1
	assignment.NewCommitment2 = cm2
	assignment.OwnerKey = ownerKey
	assignment.InAmount = in.Amount
	assignment.InBlinding = in.Blinding
	assignment.InSecret = in.Secret
	assignment.InNullifierPreimage = in.NullifierPreimage
	assignment.LeafIndex = path.Index
	for i, sibling := range path.Siblings {
		assignment.Siblings[i] = sibling
	}
	assignment.Out1 = outputWitness(out1)
	assignment.Out2 = outputWitness(out2)
	return assignment, nil
}

// PublicAssignment shapes the public inputs for verification.
func PublicAssignment(depth int, root, nullifierHash, cm1, cm2 *big.Int) *Circuit {
	assignment := New(depth)
	assignment.Root = root
	assignment.NullifierHash = nullifierHash
	assignment.NewCommitment1 = cm1
	assignment.NewCommitment2 = cm2
	return assignment
}

func outputWitness(n *note.Note) OutputNote {
	ox, oy := n.OwnerKey.Point()
	return OutputNote{
		Amount:            n.Amount,
		Blinding:          n.Blinding,
		Secret:            n.Secret,
		NullifierPreimage: n.NullifierPreimage,
		OwnerX:            ox,
		OwnerY:            oy,
	}
}
