package ecc

import (
	"math/big"
)

// Point defines the common operations that can be performed on elliptic curve
// group elements. It represents the affine coordinates of a point on an
// elliptic curve and provides methods for arithmetic operations,
// serialization, and comparison.
type Point interface {
	// New returns a new elliptic curve point.
	New() Point

	// Order returns the order of the prime-order subgroup.
	Order() *big.Int

	// Add adds two elliptic curve group elements and stores the result in the receiver.
	Add(a, b Point)

	// SafeAdd adds two elliptic curve group elements and stores the result in the receiver.
	// It is thread-safe, ensuring exclusive access to the receiver during the operation.
	SafeAdd(a, b Point)

	// ScalarMult performs variable-base scalar multiplication of an elliptic
	// curve element. Multiplies the group element a by the scalar value.
	ScalarMult(a Point, scalar *big.Int)

	// ScalarBaseMult performs fixed-base scalar multiplication of the
	// generator point by a scalar value. Implementations may use windowed
	// precomputation; the result must equal naive double-and-add.
	ScalarBaseMult(scalar *big.Int)

	// Marshal serializes the elliptic curve element into a byte slice.
	Marshal() []byte

	// Unmarshal deserializes a byte slice into an elliptic curve element.
	Unmarshal(buf []byte) error

	// Equal checks if two elliptic curve elements are equal.
	Equal(a Point) bool

	// Neg negates an elliptic curve element.
	Neg(a Point)

	// SetZero sets the elliptic curve element to the identity element.
	SetZero()

	// Set sets the value of the receiver to be equal to another element.
	Set(a Point)

	// SetGenerator sets the elliptic curve element to the generator point.
	SetGenerator()

	// String returns a string representation of the element.
	String() string

	// Point returns the X and Y coordinates of the elliptic curve element.
	Point() (*big.Int, *big.Int)

	// SetPoint sets the X and Y coordinates of the elliptic curve element.
	// The coordinates are not validated; use a curve-specific constructor to
	// validate untrusted input.
	SetPoint(x, y *big.Int) Point

	// IsOnCurve reports whether the element satisfies the curve equation.
	IsOnCurve() bool

	// InSubGroup reports whether the element belongs to the prime-order
	// subgroup (cofactor cleared).
	InSubGroup() bool

	// Type returns the curve type identifier.
	Type() string
}
