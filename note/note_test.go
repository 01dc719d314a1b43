package note

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/zknote/shieldpool/crypto/ecc/bjj"
	"github.com/zknote/shieldpool/crypto/hash/poseidon"
	"github.com/zknote/shieldpool/crypto/pedersen"
)

func testKeyPair(t *testing.T) *KeyPair {
	t.Helper()
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	return kp
}

func TestNewValidation(t *testing.T) {
	c := qt.New(t)
	kp := testKeyPair(t)
	one := big.NewInt(1)

	_, err := New(big.NewInt(1000), one, one, one, kp.PublicKey)
	c.Assert(err, qt.IsNil)

	// 2^64 is out of range
	tooBig := new(big.Int).Lsh(big.NewInt(1), 64)
	_, err = New(tooBig, one, one, one, kp.PublicKey)
	c.Assert(err, qt.Equals, ErrAmountOutOfRange)

	// a field-wraparound "negative" amount (p - 1) is out of range too
	negative := new(big.Int).Sub(bjj.FieldModulus(), big.NewInt(1))
	_, err = New(negative, one, one, one, kp.PublicKey)
	c.Assert(err, qt.Equals, ErrAmountOutOfRange)

	// off-curve owner key
	bad := bjj.New().SetPoint(big.NewInt(7), big.NewInt(11))
	_, err = New(big.NewInt(1), one, one, one, bad)
	c.Assert(err, qt.Equals, ErrInvalidPublicKey)
}

func TestCommitmentDerivation(t *testing.T) {
	c := qt.New(t)
	kp := testKeyPair(t)
	n, err := NewRandom(1000, kp.PublicKey)
	c.Assert(err, qt.IsNil)

	// the pedersen commitment opens to (amount, blinding)
	c.Assert(pedersen.Verify(n.PedersenCommitment(), big.NewInt(1000), n.Blinding), qt.IsTrue)

	// the note commitment matches an independent Hash5 computation
	cm, err := n.Commitment()
	c.Assert(err, qt.IsNil)
	px, py := n.PedersenCommitment().Point()
	ox, _ := kp.PublicKey.Point()
	expected, err := poseidon.Hash5(px, py, n.Secret, n.NullifierPreimage, ox)
	c.Assert(err, qt.IsNil)
	c.Assert(cm.String(), qt.Equals, expected.String())
}

func TestNullifierLifecycle(t *testing.T) {
	c := qt.New(t)
	kp := testKeyPair(t)
	n, err := NewRandom(42, kp.PublicKey)
	c.Assert(err, qt.IsNil)

	// unfinalized notes have no nullifier
	c.Assert(n.Finalized(), qt.IsFalse)
	_, err = n.Nullifier()
	c.Assert(err, qt.Equals, ErrNoteNotFinalized)

	n.Finalize(0)
	nf, err := n.Nullifier()
	c.Assert(err, qt.IsNil)
	expected, err := poseidon.Hash3(n.NullifierPreimage, n.Secret, big.NewInt(0))
	c.Assert(err, qt.IsNil)
	c.Assert(nf.String(), qt.Equals, expected.String())
}

func TestNullifierUniquePerLeafIndex(t *testing.T) {
	c := qt.New(t)
	kp := testKeyPair(t)
	n1, err := NewRandom(42, kp.PublicKey)
	c.Assert(err, qt.IsNil)

	// clone the secret material into a second note at a different position
	n2, err := New(big.NewInt(42), n1.Blinding, n1.Secret, n1.NullifierPreimage, kp.PublicKey)
	c.Assert(err, qt.IsNil)

	n1.Finalize(0)
	n2.Finalize(1)
	nf1, err := n1.Nullifier()
	c.Assert(err, qt.IsNil)
	nf2, err := n2.Nullifier()
	c.Assert(err, qt.IsNil)
	c.Assert(nf1.String(), qt.Not(qt.Equals), nf2.String())
}

func TestMemoRoundTrip(t *testing.T) {
	c := qt.New(t)
	recipient := testKeyPair(t)
	n, err := NewRandom(777, recipient.PublicKey)
	c.Assert(err, qt.IsNil)

	memo, err := EncryptMemo(n)
	c.Assert(err, qt.IsNil)
	c.Assert(memo, qt.HasLen, MemoLen)

	p, ok := TryDecryptMemo(memo, recipient.PrivateKey)
	c.Assert(ok, qt.IsTrue)
	c.Assert(p.Amount, qt.Equals, uint64(777))
	c.Assert(p.Blinding.String(), qt.Equals, n.Blinding.String())
	c.Assert(p.Secret.String(), qt.Equals, n.Secret.String())
	c.Assert(p.NullifierPreimage.String(), qt.Equals, n.NullifierPreimage.String())

	restored, err := FromPlaintext(p, recipient.PublicKey)
	c.Assert(err, qt.IsNil)
	cmWant, err := n.Commitment()
	c.Assert(err, qt.IsNil)
	cmGot, err := restored.Commitment()
	c.Assert(err, qt.IsNil)
	c.Assert(cmGot.String(), qt.Equals, cmWant.String())
}

func TestMemoWrongRecipient(t *testing.T) {
	c := qt.New(t)
	recipient := testKeyPair(t)
	eavesdropper := testKeyPair(t)
	n, err := NewRandom(777, recipient.PublicKey)
	c.Assert(err, qt.IsNil)

	memo, err := EncryptMemo(n)
	c.Assert(err, qt.IsNil)

	_, ok := TryDecryptMemo(memo, eavesdropper.PrivateKey)
	c.Assert(ok, qt.IsFalse)

	// truncated memos are rejected, not misparsed
	_, ok = TryDecryptMemo(memo[:MemoLen-1], recipient.PrivateKey)
	c.Assert(ok, qt.IsFalse)
}
