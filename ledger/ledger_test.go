package ledger

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/zknote/shieldpool/circuits/transfer"
	"github.com/zknote/shieldpool/circuits/withdraw"
	"github.com/zknote/shieldpool/crypto/hash/poseidon"
	"github.com/zknote/shieldpool/note"
	"github.com/zknote/shieldpool/prover"
	"github.com/zknote/shieldpool/tree"
)

func newTestLedger(t *testing.T, depth, historySize int, release ReleaseFunc) *Ledger {
	t.Helper()
	database, err := metadb.New(db.TypePebble, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	l, err := New(database, prover.NewMock(), depth, historySize, release)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func newNote(t *testing.T, amount uint64, blinding *big.Int, kp *note.KeyPair) *note.Note {
	t.Helper()
	c := qt.New(t)
	secret, err := note.RandomFieldSecret()
	c.Assert(err, qt.IsNil)
	preimage, err := note.RandomFieldSecret()
	c.Assert(err, qt.IsNil)
	n, err := note.New(new(big.Int).SetUint64(amount), blinding, secret, preimage, kp.PublicKey)
	c.Assert(err, qt.IsNil)
	return n
}

// TestDepositTransferWithdraw walks the full lifecycle: a 1000 deposit is
// split into 400 for a recipient and 600 change, then the change leaves the
// pool in the clear.
func TestDepositTransferWithdraw(t *testing.T) {
	c := qt.New(t)
	const depth = 20

	var released []uint64
	l := newTestLedger(t, depth, tree.DefaultRootHistory, func(amount uint64, recipient []byte) error {
		released = append(released, amount)
		return nil
	})
	c.Assert(l.Variant(), qt.Equals, BalanceInStatement)

	// deposit
	sender, err := note.GenerateKeyPair()
	c.Assert(err, qt.IsNil)
	deposited, err := note.NewRandom(1000, sender.PublicKey)
	c.Assert(err, qt.IsNil)
	cm, err := deposited.Commitment()
	c.Assert(err, qt.IsNil)
	memo, err := note.EncryptMemo(deposited)
	c.Assert(err, qt.IsNil)
	receipt, err := l.Deposit(cm, memo)
	c.Assert(err, qt.IsNil)
	c.Assert(receipt.LeafIndices, qt.DeepEquals, []uint64{0})
	deposited.Finalize(0)
	rootAfterDeposit := l.Root()

	// the nullifier the spend will reveal matches the direct derivation
	nullifier, err := deposited.Nullifier()
	c.Assert(err, qt.IsNil)
	expected, err := poseidon.Hash3(deposited.NullifierPreimage, deposited.Secret, big.NewInt(0))
	c.Assert(err, qt.IsNil)
	c.Assert(nullifier.String(), qt.Equals, expected.String())

	// transfer: 400 to the recipient, 600 change back to the sender
	recipient, err := note.GenerateKeyPair()
	c.Assert(err, qt.IsNil)
	b1, b2, err := transfer.SplitBlinding(deposited.Blinding)
	c.Assert(err, qt.IsNil)
	out1 := newNote(t, 400, b1, recipient)
	out2 := newNote(t, 600, b2, sender)

	path, err := l.GenerateProof(0)
	c.Assert(err, qt.IsNil)
	assignment, err := transfer.NewAssignment(deposited, sender.PrivateKey, path, rootAfterDeposit, out1, out2)
	c.Assert(err, qt.IsNil)
	backend := prover.NewMock()
	proof, err := backend.Prove(transfer.New(depth), assignment)
	c.Assert(err, qt.IsNil)
	encoded, err := proof.EncodeForSubmission()
	c.Assert(err, qt.IsNil)
	memo1, err := note.EncryptMemo(out1)
	c.Assert(err, qt.IsNil)
	memo2, err := note.EncryptMemo(out2)
	c.Assert(err, qt.IsNil)

	receipt, err = l.SubmitTransfer(&TransferSubmission{Proof: encoded, Memo1: memo1, Memo2: memo2})
	c.Assert(err, qt.IsNil)
	c.Assert(receipt.LeafIndices, qt.DeepEquals, []uint64{1, 2})
	spent, err := l.IsSpent(nullifier)
	c.Assert(err, qt.IsNil)
	c.Assert(spent, qt.IsTrue)
	// the pre-transfer root stays in the window
	c.Assert(l.IsKnownRoot(rootAfterDeposit), qt.IsTrue)

	// double spends are rejected before proof verification
	_, err = l.SubmitTransfer(&TransferSubmission{Proof: encoded, Memo1: memo1, Memo2: memo2})
	c.Assert(err, qt.ErrorIs, ErrNullifierSpent)

	// the recipient discovers the new note by scanning the feed
	events, err := l.Events(1)
	c.Assert(err, qt.IsNil)
	c.Assert(events, qt.HasLen, 2)
	c.Assert(events[0].Kind, qt.Equals, EventTransferOutput)
	plain, ok := note.TryDecryptMemo(events[0].Memo, recipient.PrivateKey)
	c.Assert(ok, qt.IsTrue)
	c.Assert(plain.Amount, qt.Equals, uint64(400))
	_, ok = note.TryDecryptMemo(events[1].Memo, recipient.PrivateKey)
	c.Assert(ok, qt.IsFalse)

	// withdraw the whole 600 change note; the leftover change is empty
	out2.Finalize(2)
	change := newNote(t, 0, out2.Blinding, sender)
	path, err = l.GenerateProof(2)
	c.Assert(err, qt.IsNil)
	wAssignment, err := withdraw.NewAssignment(out2, sender.PrivateKey, path, l.Root(), 600, change)
	c.Assert(err, qt.IsNil)
	wProof, err := backend.Prove(withdraw.New(depth), wAssignment)
	c.Assert(err, qt.IsNil)
	wEncoded, err := wProof.EncodeForSubmission()
	c.Assert(err, qt.IsNil)
	changeMemo, err := note.EncryptMemo(change)
	c.Assert(err, qt.IsNil)

	receipt, err = l.SubmitWithdraw(&WithdrawSubmission{
		Proof:     wEncoded,
		Recipient: []byte{0xaa, 0xbb},
		Memo:      changeMemo,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(receipt.LeafIndices, qt.DeepEquals, []uint64{3})
	c.Assert(released, qt.DeepEquals, []uint64{600})

	changeNullifier, err := out2.Nullifier()
	c.Assert(err, qt.IsNil)
	spent, err = l.IsSpent(changeNullifier)
	c.Assert(err, qt.IsNil)
	c.Assert(spent, qt.IsTrue)
}

func TestSubmitTransferUnknownRoot(t *testing.T) {
	c := qt.New(t)
	const depth, history = 8, 2
	l := newTestLedger(t, depth, history, nil)

	sender, err := note.GenerateKeyPair()
	c.Assert(err, qt.IsNil)
	deposited, err := note.NewRandom(100, sender.PublicKey)
	c.Assert(err, qt.IsNil)
	cm, err := deposited.Commitment()
	c.Assert(err, qt.IsNil)
	_, err = l.Deposit(cm, nil)
	c.Assert(err, qt.IsNil)
	deposited.Finalize(0)
	anchor := l.Root()

	path, err := l.GenerateProof(0)
	c.Assert(err, qt.IsNil)
	b1, b2, err := transfer.SplitBlinding(deposited.Blinding)
	c.Assert(err, qt.IsNil)
	out1 := newNote(t, 60, b1, sender)
	out2 := newNote(t, 40, b2, sender)
	assignment, err := transfer.NewAssignment(deposited, sender.PrivateKey, path, anchor, out1, out2)
	c.Assert(err, qt.IsNil)
	proof, err := prover.NewMock().Prove(transfer.New(depth), assignment)
	c.Assert(err, qt.IsNil)
	encoded, err := proof.EncodeForSubmission()
	c.Assert(err, qt.IsNil)

	// push the anchor out of the 2-root window
	for i := 0; i < history; i++ {
		filler, err := note.NewRandom(1, sender.PublicKey)
		c.Assert(err, qt.IsNil)
		fillerCm, err := filler.Commitment()
		c.Assert(err, qt.IsNil)
		_, err = l.Deposit(fillerCm, nil)
		c.Assert(err, qt.IsNil)
	}

	_, err = l.SubmitTransfer(&TransferSubmission{Proof: encoded})
	c.Assert(err, qt.ErrorIs, ErrUnknownRoot)
}

func TestSubmitMalformed(t *testing.T) {
	c := qt.New(t)
	l := newTestLedger(t, 8, tree.DefaultRootHistory, nil)
	_, err := l.SubmitTransfer(&TransferSubmission{Proof: []byte{0x01}})
	c.Assert(err, qt.ErrorIs, ErrMalformedSubmission)
	_, err = l.SubmitWithdraw(&WithdrawSubmission{Proof: []byte{}})
	c.Assert(err, qt.ErrorIs, ErrMalformedSubmission)
}
