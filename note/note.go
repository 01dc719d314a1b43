// Package note implements the value-holding entity of the shielded pool and
// its three derivation functions: the Pedersen commitment hiding the amount,
// the note commitment stored as a Merkle leaf, and the nullifier revealed
// when the note is spent. All derivations are pure; persistence belongs to
// the storage package.
package note

import (
	"errors"
	"math/big"

	"github.com/zknote/shieldpool/crypto/ecc"
	"github.com/zknote/shieldpool/crypto/hash/poseidon"
	"github.com/zknote/shieldpool/crypto/pedersen"
)

var (
	// ErrAmountOutOfRange is returned when a note amount does not fit the
	// 64-bit range.
	ErrAmountOutOfRange = errors.New("amount out of 64-bit range")
	// ErrInvalidPublicKey is returned when an owner key is not a valid
	// subgroup point.
	ErrInvalidPublicKey = errors.New("invalid owner public key")
	// ErrNoteNotFinalized is returned when a nullifier is requested for a
	// note whose leaf index is still unknown.
	ErrNoteNotFinalized = errors.New("note is not finalized in the accumulator")
)

// UnknownLeafIndex marks a note that has not yet been observed in the
// accumulator.
const UnknownLeafIndex = int64(-1)

// Note is a private record of value ownership. The private fields never
// leave the owner's control except encrypted for the intended recipient.
type Note struct {
	Amount            uint64
	Blinding          *big.Int
	Secret            *big.Int
	NullifierPreimage *big.Int
	OwnerKey          ecc.Point

	// LeafIndex is the note commitment's position in the accumulator, or
	// UnknownLeafIndex while the note is unfinalized.
	LeafIndex int64

	pedersenCommitment ecc.Point
	commitment         *big.Int
}

// New creates an unfinalized note from explicit field values. The amount is
// validated against the 64-bit range and the owner key against the curve
// subgroup.
func New(amount *big.Int, blinding, secret, nullifierPreimage *big.Int, ownerKey ecc.Point) (*Note, error) {
	if amount.Sign() < 0 || amount.BitLen() > 64 {
		return nil, ErrAmountOutOfRange
	}
	if ownerKey == nil || !ownerKey.InSubGroup() {
		return nil, ErrInvalidPublicKey
	}
	return &Note{
		Amount:            amount.Uint64(),
		Blinding:          new(big.Int).Set(blinding),
		Secret:            new(big.Int).Set(secret),
		NullifierPreimage: new(big.Int).Set(nullifierPreimage),
		OwnerKey:          ownerKey,
		LeafIndex:         UnknownLeafIndex,
	}, nil
}

// NewRandom creates an unfinalized note with fresh blinding and secret
// material for the given owner.
func NewRandom(amount uint64, ownerKey ecc.Point) (*Note, error) {
	blinding, err := RandomScalar()
	if err != nil {
		return nil, err
	}
	secret, err := RandomFieldSecret()
	if err != nil {
		return nil, err
	}
	preimage, err := RandomFieldSecret()
	if err != nil {
		return nil, err
	}
	return New(new(big.Int).SetUint64(amount), blinding, secret, preimage, ownerKey)
}

// PedersenCommitment returns amount·G + blinding·H, computing it once.
func (n *Note) PedersenCommitment() ecc.Point {
	if n.pedersenCommitment == nil {
		n.pedersenCommitment = pedersen.Commit(new(big.Int).SetUint64(n.Amount), n.Blinding)
	}
	return n.pedersenCommitment
}

// Commitment returns the note commitment, the value stored as a Merkle
// leaf: Hash5(pedersen.x, pedersen.y, secret, nullifierPreimage, owner.x).
func (n *Note) Commitment() (*big.Int, error) {
	if n.commitment != nil {
		return n.commitment, nil
	}
	px, py := n.PedersenCommitment().Point()
	ox, _ := n.OwnerKey.Point()
	cm, err := poseidon.Hash5(px, py, n.Secret, n.NullifierPreimage, ox)
	if err != nil {
		return nil, err
	}
	n.commitment = cm
	return cm, nil
}

// Finalize records the accumulator position of the note commitment, making
// the nullifier computable.
func (n *Note) Finalize(leafIndex uint64) {
	n.LeafIndex = int64(leafIndex)
}

// Finalized reports whether the note's position in the accumulator is known.
func (n *Note) Finalized() bool {
	return n.LeafIndex != UnknownLeafIndex
}

// Nullifier returns Hash3(nullifierPreimage, secret, leafIndex). Including
// the leaf index makes the nullifier unique per tree position, so reusing
// the same secret material across two deposits cannot collide.
func (n *Note) Nullifier() (*big.Int, error) {
	if !n.Finalized() {
		return nil, ErrNoteNotFinalized
	}
	return poseidon.Hash3(n.NullifierPreimage, n.Secret, big.NewInt(n.LeafIndex))
}

// Plaintext is the memo payload delivered confidentially to the note's
// recipient: everything needed to spend the note once its leaf index is
// observed on the ledger.
type Plaintext struct {
	Amount            uint64
	Blinding          *big.Int
	Secret            *big.Int
	NullifierPreimage *big.Int
}

// FromPlaintext reconstructs a note from a decrypted memo and the
// recipient's own public key.
func FromPlaintext(p *Plaintext, ownerKey ecc.Point) (*Note, error) {
	return New(new(big.Int).SetUint64(p.Amount), p.Blinding, p.Secret, p.NullifierPreimage, ownerKey)
}
