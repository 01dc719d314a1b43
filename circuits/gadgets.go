// Package circuits contains the gadgets shared by the transfer and withdraw
// statements: the in-circuit Poseidon hash (matching the off-circuit iden3
// implementation), the Pedersen commitment over the embedded Edwards curve,
// the Merkle inclusion ladder and the amount range check.
package circuits

import (
	tedwards "github.com/consensys/gnark-crypto/ecc/twistededwards"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"
	"github.com/vocdoni/gnark-crypto-primitives/poseidon"

	hostpedersen "github.com/zknote/shieldpool/crypto/pedersen"
)

// AmountBits is the width of note amounts. Values must fit 64 bits so sums
// of two amounts can never wrap the scalar field.
const AmountBits = 64

// Hash is the in-circuit Poseidon permutation. It produces the same digests
// as the iden3 implementation used outside the circuit, so commitments and
// nullifiers computed by the wallet match the in-circuit recomputation
// bit for bit.
func Hash(api frontend.API, inputs ...frontend.Variable) (frontend.Variable, error) {
	return poseidon.Hash(api, inputs...)
}

// Pedersen evaluates value·G + blinding·H on the embedded Edwards curve,
// with G the curve base point and H the independent generator derived by
// the pedersen package. Both generators are circuit constants.
type Pedersen struct {
	curve twistededwards.Curve
	g     twistededwards.Point
	h     twistededwards.Point
}

// NewPedersen builds the commitment gadget over the BN254-embedded curve.
func NewPedersen(api frontend.API) (*Pedersen, error) {
	curve, err := twistededwards.NewEdCurve(api, tedwards.BN254)
	if err != nil {
		return nil, err
	}
	params := curve.Params()
	hx, hy := hostpedersen.H.Point()
	return &Pedersen{
		curve: curve,
		g:     twistededwards.Point{X: params.Base[0], Y: params.Base[1]},
		h:     twistededwards.Point{X: hx, Y: hy},
	}, nil
}

// Curve exposes the underlying curve gadget for point checks and additions.
func (p *Pedersen) Curve() twistededwards.Curve { return p.curve }

// Commit returns value·G + blinding·H.
func (p *Pedersen) Commit(value, blinding frontend.Variable) twistededwards.Point {
	return p.curve.DoubleBaseScalarMul(p.g, p.h, value, blinding)
}

// ScalarBaseMul returns scalar·G.
func (p *Pedersen) ScalarBaseMul(scalar frontend.Variable) twistededwards.Point {
	return p.curve.ScalarMul(p.g, scalar)
}

// AssertPointsEqual constrains two curve points to be identical.
func AssertPointsEqual(api frontend.API, a, b twistededwards.Point) {
	api.AssertIsEqual(a.X, b.X)
	api.AssertIsEqual(a.Y, b.Y)
}

// MerkleRoot recomputes the accumulator root from a leaf, its index and the
// sibling at every level. The index is decomposed into direction bits, so
// the same variable that selects the hash order can also feed the nullifier
// hash: the nullifier is thereby bound to the proven tree position.
func MerkleRoot(api frontend.API, leaf, leafIndex frontend.Variable, siblings []frontend.Variable) (frontend.Variable, error) {
	bits := api.ToBinary(leafIndex, len(siblings))
	cur := leaf
	for i, sibling := range siblings {
		left := api.Select(bits[i], sibling, cur)
		right := api.Select(bits[i], cur, sibling)
		parent, err := Hash(api, left, right)
		if err != nil {
			return nil, err
		}
		cur = parent
	}
	return cur, nil
}

// AssertAmountRange constrains v to the 64-bit amount range.
func AssertAmountRange(api frontend.API, v frontend.Variable) {
	api.ToBinary(v, AmountBits)
}
