package bjj

import (
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// ErrDivisionByZero is returned by FieldInverse when the operand is zero.
var ErrDivisionByZero = errors.New("division by zero")

// FieldModulus returns the modulus of the curve's coordinate field, which is
// the BN254 scalar field. All protocol field elements live in [0, p).
func FieldModulus() *big.Int {
	return fr.Modulus()
}

// FieldAdd returns (a + b) mod p.
func FieldAdd(a, b *big.Int) *big.Int {
	var x, y fr.Element
	x.SetBigInt(a)
	y.SetBigInt(b)
	x.Add(&x, &y)
	return x.BigInt(new(big.Int))
}

// FieldSub returns (a - b) mod p.
func FieldSub(a, b *big.Int) *big.Int {
	var x, y fr.Element
	x.SetBigInt(a)
	y.SetBigInt(b)
	x.Sub(&x, &y)
	return x.BigInt(new(big.Int))
}

// FieldMul returns (a * b) mod p.
func FieldMul(a, b *big.Int) *big.Int {
	var x, y fr.Element
	x.SetBigInt(a)
	y.SetBigInt(b)
	x.Mul(&x, &y)
	return x.BigInt(new(big.Int))
}

// FieldInverse returns a⁻¹ mod p, or ErrDivisionByZero if a ≡ 0.
func FieldInverse(a *big.Int) (*big.Int, error) {
	var x fr.Element
	x.SetBigInt(a)
	if x.IsZero() {
		return nil, ErrDivisionByZero
	}
	x.Inverse(&x)
	return x.BigInt(new(big.Int)), nil
}
