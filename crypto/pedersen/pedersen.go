// Package pedersen implements hiding, homomorphic commitments over Baby
// Jubjub with two independent generators: C = value·G + blinding·H.
package pedersen

import (
	"math/big"

	"github.com/zknote/shieldpool/crypto/ecc"
	"github.com/zknote/shieldpool/crypto/ecc/bjj"
)

// Commit computes value·G + blinding·H. The value is expected to fit the
// 64-bit amount range; this function folds whatever scalar it is given, the
// range is enforced by the circuit's bit decomposition.
func Commit(value, blinding *big.Int) ecc.Point {
	vg := bjj.New()
	vg.ScalarBaseMult(value)
	rh := bjj.New()
	rh.ScalarMult(H, blinding)
	c := bjj.New()
	c.Add(vg, rh)
	return c
}

// Verify recomputes the commitment from the claimed opening and compares.
func Verify(commitment ecc.Point, value, blinding *big.Int) bool {
	return Commit(value, blinding).Equal(commitment)
}

// AddCommitments returns the curve-point sum of two commitments. By the
// homomorphic property, Commit(v1,r1) + Commit(v2,r2) == Commit(v1+v2,r1+r2).
func AddCommitments(a, b ecc.Point) ecc.Point {
	sum := bjj.New()
	sum.Add(a, b)
	return sum
}
