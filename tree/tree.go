// Package tree implements the append-only Merkle accumulator holding note
// commitments. Leaves are only ever appended; the tree keeps a ring of the
// most recent roots so proofs generated shortly before new insertions remain
// acceptable. All state is persisted so the accumulator can reopen from disk.
package tree

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/zknote/shieldpool/crypto/hash/poseidon"
)

const (
	// DefaultRootHistory is the number of recent roots accepted as
	// anchors for membership proofs.
	DefaultRootHistory = 30
	// MaxDepth bounds the tree depth so leaf indices fit in 63 bits.
	MaxDepth = 32

	fieldByteLen = 32
)

var (
	// ErrTreeFull is returned by Insert once 2^depth leaves are stored.
	ErrTreeFull = errors.New("merkle accumulator is full")
	// ErrInvalidDepth is returned by New for a depth outside [1, MaxDepth].
	ErrInvalidDepth = errors.New("invalid tree depth")
	// ErrLeafNotFound is returned by GenerateProof for an index beyond the
	// current leaf count.
	ErrLeafNotFound = errors.New("leaf index not found")
)

var (
	nodePrefix = []byte("n/")
	rootPrefix = []byte("r/")
	metaPrefix = []byte("m/")

	countKey = []byte("count")
	seqKey   = []byte("seq")
	depthKey = []byte("depth")
)

// Path is a Merkle membership path: the leaf position and its sibling at
// every level, leaf-to-root order.
type Path struct {
	Index    uint64
	Siblings []*big.Int
}

// Tree is the incremental accumulator. A mutex serializes insertions; reads
// return copies so concurrent provers see a stable snapshot.
type Tree struct {
	mu          sync.Mutex
	db          db.Database
	depth       int
	historySize int
	leafCount   uint64
	rootSeq     uint64
	zeros       []*big.Int
	filled      []*big.Int
	roots       []*big.Int
}

// New opens (or initializes) an accumulator of the given depth over the
// database. The zero ladder is zero(0) = 0, zero(i) = Hash2(zero(i-1),
// zero(i-1)); the root history starts seeded with the empty root. A tree
// reopened over existing data must be opened with its original depth.
func New(database db.Database, depth, historySize int) (*Tree, error) {
	if depth < 1 || depth > MaxDepth {
		return nil, ErrInvalidDepth
	}
	if historySize < 1 {
		historySize = DefaultRootHistory
	}
	zeros, err := zeroLadder(depth)
	if err != nil {
		return nil, err
	}
	t := &Tree{
		db:          database,
		depth:       depth,
		historySize: historySize,
		zeros:       zeros,
		filled:      make([]*big.Int, depth),
		roots:       make([]*big.Int, historySize),
	}
	for i := range t.filled {
		t.filled[i] = zeros[i]
	}
	if err := t.load(); err != nil {
		return nil, err
	}
	return t, nil
}

// Depth returns the tree depth.
func (t *Tree) Depth() int { return t.depth }

// LeafCount returns the number of leaves inserted so far.
func (t *Tree) LeafCount() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.leafCount
}

// Root returns a copy of the current root.
func (t *Tree) Root() *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.roots[(t.rootSeq-1)%uint64(t.historySize)])
}

// IsKnownRoot reports whether root is within the recent-root window. The
// zero value is never a known root, so absent or zeroed anchors always fail.
func (t *Tree) IsKnownRoot(root *big.Int) bool {
	if root == nil || root.Sign() == 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	window := t.rootSeq
	if window > uint64(t.historySize) {
		window = uint64(t.historySize)
	}
	for i := uint64(0); i < window; i++ {
		if t.roots[(t.rootSeq-1-i)%uint64(t.historySize)].Cmp(root) == 0 {
			return true
		}
	}
	return false
}

// Insert appends a leaf and returns its index and the new root. The whole
// update (path nodes, counters, root ring slot) is committed atomically.
func (t *Tree) Insert(leaf *big.Int) (uint64, *big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.leafCount >= uint64(1)<<t.depth {
		return 0, nil, ErrTreeFull
	}
	index := t.leafCount
	wTx := t.db.WriteTx()
	defer wTx.Discard()

	cur := new(big.Int).Set(leaf)
	idx := index
	if err := t.writeNode(wTx, 0, idx, cur); err != nil {
		return 0, nil, err
	}
	for level := 0; level < t.depth; level++ {
		var left, right *big.Int
		if idx%2 == 0 {
			t.filled[level] = cur
			left, right = cur, t.zeros[level]
		} else {
			left, right = t.filled[level], cur
		}
		parent, err := poseidon.Hash2(left, right)
		if err != nil {
			return 0, nil, err
		}
		cur = parent
		idx >>= 1
		if err := t.writeNode(wTx, level+1, idx, cur); err != nil {
			return 0, nil, err
		}
	}

	slot := t.rootSeq % uint64(t.historySize)
	if err := t.writeRoot(wTx, slot, cur); err != nil {
		return 0, nil, err
	}
	if err := t.writeMeta(wTx, t.leafCount+1, t.rootSeq+1); err != nil {
		return 0, nil, err
	}
	if err := wTx.Commit(); err != nil {
		return 0, nil, err
	}
	t.roots[slot] = cur
	t.rootSeq++
	t.leafCount++
	return index, new(big.Int).Set(cur), nil
}

// GenerateProof builds the membership path for the leaf at index against
// the current root.
func (t *Tree) GenerateProof(index uint64) (*Path, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index >= t.leafCount {
		return nil, ErrLeafNotFound
	}
	siblings := make([]*big.Int, t.depth)
	idx := index
	for level := 0; level < t.depth; level++ {
		sib, err := t.readNode(level, idx^1)
		if err != nil {
			return nil, err
		}
		siblings[level] = sib
		idx >>= 1
	}
	return &Path{Index: index, Siblings: siblings}, nil
}

// VerifyProof recomputes the root from a leaf and its path and compares it
// against the expected root.
func VerifyProof(leaf *big.Int, path *Path, root *big.Int) bool {
	if path == nil || root == nil {
		return false
	}
	cur := new(big.Int).Set(leaf)
	idx := path.Index
	for _, sib := range path.Siblings {
		var err error
		if idx%2 == 0 {
			cur, err = poseidon.Hash2(cur, sib)
		} else {
			cur, err = poseidon.Hash2(sib, cur)
		}
		if err != nil {
			return false
		}
		idx >>= 1
	}
	return cur.Cmp(root) == 0
}

// Replay appends an ordered feed of leaves, as read from the ledger event
// log, skipping those already present. It lets a fresh node rebuild the
// accumulator from history.
func (t *Tree) Replay(leaves []*big.Int) error {
	for i, leaf := range leaves {
		if uint64(i) < t.LeafCount() {
			continue
		}
		if _, _, err := t.Insert(leaf); err != nil {
			return fmt.Errorf("replay leaf %d: %w", i, err)
		}
	}
	return nil
}

// load restores counters, the filled-subtree frontier and the root ring
// from the database, or seeds a fresh tree with the empty root.
func (t *Tree) load() error {
	rd := prefixeddb.NewPrefixedReader(t.db, metaPrefix)
	stored, err := rd.Get(depthKey)
	switch {
	case err == nil:
		if int(stored[0]) != t.depth {
			return fmt.Errorf("%w: database holds a depth-%d tree", ErrInvalidDepth, stored[0])
		}
	case errors.Is(err, db.ErrKeyNotFound):
		return t.seed()
	default:
		return err
	}

	countBytes, err := rd.Get(countKey)
	if err != nil {
		return err
	}
	t.leafCount = binary.BigEndian.Uint64(countBytes)
	seqBytes, err := rd.Get(seqKey)
	if err != nil {
		return err
	}
	t.rootSeq = binary.BigEndian.Uint64(seqBytes)

	// Rebuild the frontier: filled[i] only matters when the next insertion
	// lands as a right child at level i.
	for level := 0; level < t.depth; level++ {
		pos := t.leafCount >> uint(level)
		if pos%2 == 1 {
			node, err := t.readNode(level, pos-1)
			if err != nil {
				return err
			}
			t.filled[level] = node
		}
	}

	window := t.rootSeq
	if window > uint64(t.historySize) {
		window = uint64(t.historySize)
	}
	rootRd := prefixeddb.NewPrefixedReader(t.db, rootPrefix)
	for i := uint64(0); i < window; i++ {
		seq := t.rootSeq - 1 - i
		slot := seq % uint64(t.historySize)
		data, err := rootRd.Get(u64Key(slot))
		if err != nil {
			return err
		}
		t.roots[slot] = new(big.Int).SetBytes(data)
	}
	return nil
}

func (t *Tree) seed() error {
	wTx := t.db.WriteTx()
	defer wTx.Discard()
	if err := t.writeRoot(wTx, 0, t.zeros[t.depth]); err != nil {
		return err
	}
	mTx := prefixeddb.NewPrefixedWriteTx(wTx, metaPrefix)
	if err := mTx.Set(depthKey, []byte{byte(t.depth)}); err != nil {
		return err
	}
	if err := t.writeMeta(wTx, 0, 1); err != nil {
		return err
	}
	if err := wTx.Commit(); err != nil {
		return err
	}
	t.roots[0] = t.zeros[t.depth]
	t.rootSeq = 1
	return nil
}

func (t *Tree) writeMeta(wTx db.WriteTx, count, seq uint64) error {
	mTx := prefixeddb.NewPrefixedWriteTx(wTx, metaPrefix)
	if err := mTx.Set(countKey, u64Key(count)); err != nil {
		return err
	}
	return mTx.Set(seqKey, u64Key(seq))
}

func (t *Tree) writeNode(wTx db.WriteTx, level int, index uint64, value *big.Int) error {
	nTx := prefixeddb.NewPrefixedWriteTx(wTx, nodePrefix)
	buf := make([]byte, fieldByteLen)
	return nTx.Set(nodeKey(level, index), value.FillBytes(buf))
}

// readNode returns the stored node at (level, index) or the zero node for
// that level when the position was never written.
func (t *Tree) readNode(level int, index uint64) (*big.Int, error) {
	rd := prefixeddb.NewPrefixedReader(t.db, nodePrefix)
	data, err := rd.Get(nodeKey(level, index))
	if errors.Is(err, db.ErrKeyNotFound) {
		return t.zeros[level], nil
	}
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(data), nil
}

func (t *Tree) writeRoot(wTx db.WriteTx, slot uint64, root *big.Int) error {
	rTx := prefixeddb.NewPrefixedWriteTx(wTx, rootPrefix)
	buf := make([]byte, fieldByteLen)
	return rTx.Set(u64Key(slot), root.FillBytes(buf))
}

func nodeKey(level int, index uint64) []byte {
	key := make([]byte, 9)
	key[0] = byte(level)
	binary.BigEndian.PutUint64(key[1:], index)
	return key
}

func u64Key(v uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, v)
	return key
}

// zeroLadder precomputes the empty-subtree hash for every level up to and
// including the root.
func zeroLadder(depth int) ([]*big.Int, error) {
	zeros := make([]*big.Int, depth+1)
	zeros[0] = big.NewInt(0)
	for i := 1; i <= depth; i++ {
		z, err := poseidon.Hash2(zeros[i-1], zeros[i-1])
		if err != nil {
			return nil, err
		}
		zeros[i] = z
	}
	return zeros, nil
}
