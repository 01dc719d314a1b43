package pedersen

import (
	"crypto/rand"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/zknote/shieldpool/crypto/ecc/bjj"
)

func randomScalar(t *testing.T) *big.Int {
	t.Helper()
	s, err := rand.Int(rand.Reader, bjj.New().Order())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// The exact coordinates of H, fixed forever: commitments are only binding
// while every party agrees on the same H, so any drift in the derivation
// (hash, decompression, cofactor clearing) must fail loudly here.
const (
	hGeneratorX = "8115902342690425715291085851489434580921089673930199923995540448277875229661"
	hGeneratorY = "1220186906519983989007559084596551092367644359553953057353575828027729689197"
)

func TestGenerators(t *testing.T) {
	c := qt.New(t)
	c.Assert(G.IsOnCurve(), qt.IsTrue)
	c.Assert(G.InSubGroup(), qt.IsTrue)
	c.Assert(H.IsOnCurve(), qt.IsTrue)
	c.Assert(H.InSubGroup(), qt.IsTrue)
	c.Assert(H.Equal(G), qt.IsFalse)

	identity := bjj.New()
	identity.SetZero()
	c.Assert(H.Equal(identity), qt.IsFalse)

	wantX, ok := new(big.Int).SetString(hGeneratorX, 10)
	c.Assert(ok, qt.IsTrue)
	wantY, ok := new(big.Int).SetString(hGeneratorY, 10)
	c.Assert(ok, qt.IsTrue)
	x, y := H.Point()
	c.Assert(x.String(), qt.Equals, wantX.String())
	c.Assert(y.String(), qt.Equals, wantY.String())

	// the derivation is deterministic
	h2, err := deriveH()
	c.Assert(err, qt.IsNil)
	c.Assert(h2.Equal(H), qt.IsTrue)
}

func TestCommitVerify(t *testing.T) {
	c := qt.New(t)
	value := big.NewInt(1000)
	blinding := randomScalar(t)

	commitment := Commit(value, blinding)
	c.Assert(Verify(commitment, value, blinding), qt.IsTrue)
	c.Assert(Verify(commitment, big.NewInt(1001), blinding), qt.IsFalse)
	c.Assert(Verify(commitment, value, big.NewInt(1)), qt.IsFalse)
}

func TestHomomorphism(t *testing.T) {
	c := qt.New(t)
	for i := 0; i < 8; i++ {
		v1 := big.NewInt(int64(1000 + i))
		v2 := big.NewInt(int64(500 * i))
		r1 := randomScalar(t)
		r2 := randomScalar(t)

		left := AddCommitments(Commit(v1, r1), Commit(v2, r2))
		right := Commit(
			new(big.Int).Add(v1, v2),
			new(big.Int).Add(r1, r2),
		)
		c.Assert(left.Equal(right), qt.IsTrue)
	}
}

func TestCommitZeroBlinding(t *testing.T) {
	c := qt.New(t)
	// a zero-blinded commitment is just value·G
	v := big.NewInt(600)
	vg := bjj.New()
	vg.ScalarBaseMult(v)
	c.Assert(Commit(v, big.NewInt(0)).Equal(vg), qt.IsTrue)

	// and a zero-value, zero-blinding commitment is the identity
	identity := bjj.New()
	identity.SetZero()
	c.Assert(Commit(big.NewInt(0), big.NewInt(0)).Equal(identity), qt.IsTrue)
}
