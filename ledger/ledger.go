// Package ledger is the verifying side of the pool: it owns the commitment
// accumulator, the spent-nullifier registry and the insertion event feed,
// and it accepts transfer and withdraw submissions after checking their
// proofs against the accumulator state.
//
// Database layout, under per-component prefixes:
//   - 'acc/' the commitment accumulator
//   - 'nul/' the nullifier registry tree
//   - 'evt/' the ordered event feed
package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
	"go.vocdoni.io/dvote/log"

	"github.com/zknote/shieldpool/circuits/transfer"
	"github.com/zknote/shieldpool/circuits/withdraw"
	"github.com/zknote/shieldpool/prover"
	"github.com/zknote/shieldpool/tree"
	"github.com/zknote/shieldpool/types"
)

var (
	accumulatorPrefix = []byte("acc/")
	nullifierPrefix   = []byte("nul/")
	eventPrefix       = []byte("evt/")
)

var (
	// ErrUnknownRoot is returned when a proof anchors to a root outside
	// the history window.
	ErrUnknownRoot = errors.New("unknown or expired merkle root")
	// ErrInvalidProof is returned when proof verification fails.
	ErrInvalidProof = errors.New("invalid proof")
	// ErrMalformedSubmission is returned when a submission cannot be
	// decoded or carries the wrong public signals.
	ErrMalformedSubmission = errors.New("malformed submission")
)

// BalanceVariant states where the homomorphic balance check lives. This
// deployment verifies it inside the statement, so the ledger must NOT
// recompute commitment sums; doing both (or neither) is a bug.
type BalanceVariant string

// BalanceInStatement is the only variant this ledger implements.
const BalanceInStatement BalanceVariant = "in-statement"

// ReleaseFunc pays out a withdrawn amount to a recipient. It is an injected
// collaborator (a chain adapter, a custodial wallet, a test recorder): the
// ledger calls it exactly once per accepted withdrawal.
type ReleaseFunc func(amount uint64, recipient []byte) error

// TransferSubmission is a transfer proof plus the encrypted memos for the
// two output notes, in commitment order.
type TransferSubmission struct {
	Proof types.HexBytes `json:"proof"`
	Memo1 types.HexBytes `json:"memo1"`
	Memo2 types.HexBytes `json:"memo2"`
}

// WithdrawSubmission is a withdraw proof plus the payout recipient and the
// memo for the change note.
type WithdrawSubmission struct {
	Proof     types.HexBytes `json:"proof"`
	Recipient types.HexBytes `json:"recipient"`
	Memo      types.HexBytes `json:"memo"`
}

// Receipt reports the effects of an accepted submission.
type Receipt struct {
	NullifierHash *types.BigInt `json:"nullifierHash"`
	LeafIndices   []uint64      `json:"leafIndices"`
	Root          *types.BigInt `json:"root"`
}

// Ledger is the single authoritative writer of the pool state.
type Ledger struct {
	mu         sync.Mutex
	acc        *tree.Tree
	nullifiers *nullifierRegistry
	events     *eventLog
	backend    prover.Backend
	release    ReleaseFunc
	depth      int
}

// New opens the ledger state over the database. The release collaborator
// may be nil if withdrawals are not served.
func New(database db.Database, backend prover.Backend, depth, historySize int, release ReleaseFunc) (*Ledger, error) {
	acc, err := tree.New(prefixeddb.NewPrefixedDatabase(database, accumulatorPrefix), depth, historySize)
	if err != nil {
		return nil, fmt.Errorf("failed to open accumulator: %w", err)
	}
	nullifiers, err := newNullifierRegistry(prefixeddb.NewPrefixedDatabase(database, nullifierPrefix))
	if err != nil {
		return nil, fmt.Errorf("failed to open nullifier registry: %w", err)
	}
	return &Ledger{
		acc:        acc,
		nullifiers: nullifiers,
		events:     &eventLog{db: database},
		backend:    backend,
		release:    release,
		depth:      depth,
	}, nil
}

// Variant reports the balance-check placement.
func (l *Ledger) Variant() BalanceVariant { return BalanceInStatement }

// Depth returns the accumulator depth.
func (l *Ledger) Depth() int { return l.depth }

// Root returns the current accumulator root.
func (l *Ledger) Root() *big.Int { return l.acc.Root() }

// LeafCount returns the number of commitments in the accumulator.
func (l *Ledger) LeafCount() uint64 { return l.acc.LeafCount() }

// IsKnownRoot reports whether the root is inside the history window.
func (l *Ledger) IsKnownRoot(root *big.Int) bool { return l.acc.IsKnownRoot(root) }

// IsSpent reports whether a nullifier is recorded.
func (l *Ledger) IsSpent(nullifier *big.Int) (bool, error) {
	return l.nullifiers.IsSpent(nullifier)
}

// GenerateProof builds a membership path for a leaf against the current
// root. Safe to call concurrently with submissions; the path stays usable
// while its root remains in the history window.
func (l *Ledger) GenerateProof(index uint64) (*tree.Path, error) {
	return l.acc.GenerateProof(index)
}

// Events returns the insertion feed starting at leaf index from.
func (l *Ledger) Events(from uint64) ([]*Event, error) {
	return l.events.since(from, l.acc.LeafCount())
}

// Deposit inserts a note commitment minted at the pool ingress. Value
// entering the pool is checked at that boundary; here the commitment is
// only appended and announced.
func (l *Ledger) Deposit(commitment *big.Int, memo []byte) (*Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	index, root, err := l.insertLeaf(commitment, EventDeposit, memo)
	if err != nil {
		return nil, err
	}
	log.Infow("deposit accepted", "index", index, "root", root.String())
	return &Receipt{
		LeafIndices: []uint64{index},
		Root:        (*types.BigInt)(root),
	}, nil
}

// SubmitTransfer validates and applies a transfer: the anchor root must be
// in the history window, the nullifier unspent and the proof valid for the
// exact public signals [root, nullifierHash, newCommitment1, newCommitment2].
// On acceptance the nullifier is recorded and both output commitments are
// inserted and announced with their memos.
func (l *Ledger) SubmitTransfer(sub *TransferSubmission) (*Receipt, error) {
	proof, err := prover.DecodeSubmission(sub.Proof)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSubmission, err)
	}
	if len(proof.PublicInputs) != 4 {
		return nil, fmt.Errorf("%w: expected 4 public signals, got %d", ErrMalformedSubmission, len(proof.PublicInputs))
	}
	root, nullifier := proof.PublicInputs[0], proof.PublicInputs[1]
	cm1, cm2 := proof.PublicInputs[2], proof.PublicInputs[3]

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.acc.IsKnownRoot(root) {
		return nil, ErrUnknownRoot
	}
	spent, err := l.nullifiers.IsSpent(nullifier)
	if err != nil {
		return nil, err
	}
	if spent {
		return nil, ErrNullifierSpent
	}
	if err := l.backend.Verify(proof, transfer.PublicAssignment(l.depth, root, nullifier, cm1, cm2)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	// both outputs must fit, or neither is applied
	if l.acc.LeafCount()+2 > uint64(1)<<l.depth {
		return nil, tree.ErrTreeFull
	}

	index1, _, err := l.insertLeaf(cm1, EventTransferOutput, sub.Memo1)
	if err != nil {
		return nil, err
	}
	index2, newRoot, err := l.insertLeaf(cm2, EventTransferOutput, sub.Memo2)
	if err != nil {
		return nil, err
	}
	if err := l.nullifiers.Spend(nullifier, index1); err != nil {
		return nil, err
	}
	log.Infow("transfer accepted",
		"nullifier", nullifier.String(),
		"indices", []uint64{index1, index2},
		"root", newRoot.String())
	return &Receipt{
		NullifierHash: (*types.BigInt)(nullifier),
		LeafIndices:   []uint64{index1, index2},
		Root:          (*types.BigInt)(newRoot),
	}, nil
}

// SubmitWithdraw validates and applies a withdrawal: public signals are
// [root, nullifierHash, amount, changeCommitment]. On acceptance the
// nullifier is recorded, the change commitment inserted, and the release
// collaborator invoked with the public amount.
func (l *Ledger) SubmitWithdraw(sub *WithdrawSubmission) (*Receipt, error) {
	proof, err := prover.DecodeSubmission(sub.Proof)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSubmission, err)
	}
	if len(proof.PublicInputs) != 4 {
		return nil, fmt.Errorf("%w: expected 4 public signals, got %d", ErrMalformedSubmission, len(proof.PublicInputs))
	}
	root, nullifier := proof.PublicInputs[0], proof.PublicInputs[1]
	amountSignal, cmChange := proof.PublicInputs[2], proof.PublicInputs[3]
	if !amountSignal.IsUint64() {
		return nil, fmt.Errorf("%w: amount signal out of range", ErrMalformedSubmission)
	}
	amount := amountSignal.Uint64()

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.acc.IsKnownRoot(root) {
		return nil, ErrUnknownRoot
	}
	spent, err := l.nullifiers.IsSpent(nullifier)
	if err != nil {
		return nil, err
	}
	if spent {
		return nil, ErrNullifierSpent
	}
	if err := l.backend.Verify(proof, withdraw.PublicAssignment(l.depth, root, nullifier, amount, cmChange)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}

	index, newRoot, err := l.insertLeaf(cmChange, EventWithdrawChange, sub.Memo)
	if err != nil {
		return nil, err
	}
	if err := l.nullifiers.Spend(nullifier, index); err != nil {
		return nil, err
	}
	if l.release != nil {
		if err := l.release(amount, sub.Recipient); err != nil {
			return nil, fmt.Errorf("release failed: %w", err)
		}
	}
	log.Infow("withdraw accepted",
		"nullifier", nullifier.String(),
		"amount", amount,
		"index", index,
		"root", newRoot.String())
	return &Receipt{
		NullifierHash: (*types.BigInt)(nullifier),
		LeafIndices:   []uint64{index},
		Root:          (*types.BigInt)(newRoot),
	}, nil
}

// insertLeaf appends a commitment and its event entry. Callers hold l.mu.
//
// The event is committed before the accumulator, keyed by the index the
// accumulator will assign next. A crash between the two commits leaves at
// worst an orphan entry past the leaf count, which readers never see and
// the next insertion overwrites; the reverse order could leave a leaf
// without an event, a hole wallets scanning the feed can never recover
// from.
func (l *Ledger) insertLeaf(commitment *big.Int, kind EventKind, memo []byte) (uint64, *big.Int, error) {
	next := l.acc.LeafCount()
	ev := &Event{
		LeafIndex:  next,
		Kind:       kind,
		Commitment: (*types.BigInt)(new(big.Int).Set(commitment)),
		Memo:       memo,
	}
	wTx := prefixeddb.NewPrefixedWriteTx(l.events.db.WriteTx(), eventPrefix)
	if err := l.events.append(wTx, ev); err != nil {
		wTx.Discard()
		return 0, nil, err
	}
	if err := wTx.Commit(); err != nil {
		return 0, nil, err
	}
	index, root, err := l.acc.Insert(commitment)
	if err != nil {
		return 0, nil, err
	}
	if index != next {
		return 0, nil, fmt.Errorf("accumulator assigned leaf %d, event written for %d", index, next)
	}
	return index, root, nil
}
