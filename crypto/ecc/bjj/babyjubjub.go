// Package bjj implements the ecc.Point interface over the Baby Jubjub curve,
// the twisted Edwards curve embedded in the BN254 scalar field. It wraps the
// gnark-crypto affine implementation, so off-circuit arithmetic here matches
// the in-circuit arithmetic of gnark's native twisted Edwards gadget
// bit-for-bit. Coordinates are always the gnark-crypto representation; no
// alternative coordinate form is used anywhere in this module.
package bjj

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	babyjubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	curve "github.com/zknote/shieldpool/crypto/ecc"
	"github.com/zknote/shieldpool/types"
)

const CurveType = "bjj_gnark"

var (
	// Params holds the curve parameters (a, d, base point, order, cofactor).
	Params babyjubjub.CurveParams

	// ErrNotOnCurve is returned when coordinates do not satisfy the curve
	// equation.
	ErrNotOnCurve = errors.New("point is not on the curve")
	// ErrNotInSubGroup is returned when a point is on the curve but outside
	// the prime-order subgroup.
	ErrNotInSubGroup = errors.New("point is not in the prime-order subgroup")
)

func init() {
	Params = babyjubjub.GetEdwardsCurve()
}

// BJJ is the affine representation of a Baby Jubjub group element.
type BJJ struct {
	inner *babyjubjub.PointAffine
	lock  sync.Mutex
}

// New creates a new BJJ point set to the identity element.
func New() curve.Point {
	p := &BJJ{inner: new(babyjubjub.PointAffine)}
	p.SetZero()
	return p
}

// FromPoint builds a point from untrusted affine coordinates, verifying the
// curve equation and subgroup membership. Every generator or public key
// consumed by the protocol must pass through this constructor.
func FromPoint(x, y *big.Int) (curve.Point, error) {
	p := &BJJ{inner: new(babyjubjub.PointAffine)}
	p.inner.X.SetBigInt(x)
	p.inner.Y.SetBigInt(y)
	if !p.IsOnCurve() {
		return nil, ErrNotOnCurve
	}
	if !p.InSubGroup() {
		return nil, ErrNotInSubGroup
	}
	return p, nil
}

// New creates a new BJJ point set to the identity element.
func (g *BJJ) New() curve.Point {
	return New()
}

// Order returns the order of the Baby Jubjub prime-order subgroup.
func (g *BJJ) Order() *big.Int {
	return new(big.Int).Set(&Params.Order)
}

// Add performs the addition of two points and stores the result in g.
func (g *BJJ) Add(a, b curve.Point) {
	g.inner.Add(a.(*BJJ).inner, b.(*BJJ).inner)
}

// SafeAdd performs the addition of two points with a lock.
func (g *BJJ) SafeAdd(a, b curve.Point) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.Add(a, b)
}

// ScalarMult performs variable-base scalar multiplication of a point by a
// scalar. A zero scalar yields the identity element.
func (g *BJJ) ScalarMult(a curve.Point, scalar *big.Int) {
	if scalar.Sign() == 0 {
		g.SetZero()
		return
	}
	g.inner.ScalarMultiplication(a.(*BJJ).inner, scalar)
}

// ScalarBaseMult performs fixed-base scalar multiplication using the curve's
// base point.
func (g *BJJ) ScalarBaseMult(scalar *big.Int) {
	g.SetGenerator()
	g.ScalarMult(g, scalar)
}

// Equal checks if the given point is equal to the current point.
func (g *BJJ) Equal(a curve.Point) bool {
	return g.inner.Equal(a.(*BJJ).inner)
}

// Neg negates the given point and stores the result in g.
func (g *BJJ) Neg(a curve.Point) {
	g.inner.Neg(a.(*BJJ).inner)
}

// SetZero sets the current point to the identity element (0, 1).
func (g *BJJ) SetZero() {
	g.inner.X.SetZero()
	g.inner.Y.SetOne()
}

// Set sets g to the value of another point.
func (g *BJJ) Set(a curve.Point) {
	g.inner.Set(a.(*BJJ).inner)
}

// SetGenerator sets the point to the Baby Jubjub base point.
func (g *BJJ) SetGenerator() {
	g.inner.Set(&Params.Base)
}

// IsOnCurve reports whether the point satisfies a·x² + y² = 1 + d·x²·y².
func (g *BJJ) IsOnCurve() bool {
	return g.inner.IsOnCurve()
}

// InSubGroup reports whether the point belongs to the prime-order subgroup:
// order·P must be the identity element.
func (g *BJJ) InSubGroup() bool {
	if !g.IsOnCurve() {
		return false
	}
	var q babyjubjub.PointAffine
	q.ScalarMultiplication(g.inner, &Params.Order)
	return q.X.IsZero() && q.Y.IsOne()
}

// String returns a string representation of the point.
func (g *BJJ) String() string {
	x, y := g.Point()
	return fmt.Sprintf("%s,%s", x.String(), y.String())
}

// Marshal serializes the elliptic curve element into a byte slice
// (compressed form).
func (g *BJJ) Marshal() []byte {
	return g.inner.Marshal()
}

// Unmarshal deserializes the elliptic curve element from a byte slice.
func (g *BJJ) Unmarshal(buf []byte) error {
	return g.inner.Unmarshal(buf)
}

// MarshalJSON serializes the elliptic curve element into a JSON byte slice.
func (g *BJJ) MarshalJSON() ([]byte, error) {
	x, y := g.Point()
	return json.Marshal([]*types.BigInt{
		new(types.BigInt).SetBigInt(x),
		new(types.BigInt).SetBigInt(y),
	})
}

// UnmarshalJSON deserializes the elliptic curve element from a JSON byte
// slice.
func (g *BJJ) UnmarshalJSON(buf []byte) error {
	var coords []*types.BigInt
	if err := json.Unmarshal(buf, &coords); err != nil {
		return err
	}
	if len(coords) != 2 {
		return fmt.Errorf("expected 2 coordinates, got %d", len(coords))
	}
	if g.inner == nil {
		g.inner = new(babyjubjub.PointAffine)
	}
	g.inner.X.SetBigInt(coords[0].MathBigInt())
	g.inner.Y.SetBigInt(coords[1].MathBigInt())
	return nil
}

// Point returns the X and Y coordinates of the elliptic curve element.
func (g *BJJ) Point() (*big.Int, *big.Int) {
	x, y := new(big.Int), new(big.Int)
	g.inner.X.BigInt(x)
	g.inner.Y.BigInt(y)
	return x, y
}

// SetPoint sets the elliptic curve element from X and Y coordinates without
// validation. Use FromPoint for untrusted input.
func (g *BJJ) SetPoint(x, y *big.Int) curve.Point {
	p := &BJJ{inner: new(babyjubjub.PointAffine)}
	p.inner.X.SetBigInt(x)
	p.inner.Y.SetBigInt(y)
	return p
}

// Type returns the curve type identifier.
func (g *BJJ) Type() string {
	return CurveType
}
