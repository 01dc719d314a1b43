package ledger

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/vocdoni/arbo"
	"go.vocdoni.io/dvote/db"
)

const (
	// nullifierTreeLevels bounds the registry tree; keys are nullifier
	// hashes truncated to fit.
	nullifierTreeLevels = 160
	nullifierKeyLen     = (nullifierTreeLevels + 7) / 8
)

// ErrNullifierSpent is returned when a nullifier is already recorded.
var ErrNullifierSpent = errors.New("nullifier already spent")

// nullifierRegistry records spent nullifiers in a Merkle tree, so the set
// itself has a provable root. Entries are only ever added.
type nullifierRegistry struct {
	tree *arbo.Tree
}

func newNullifierRegistry(database db.Database) (*nullifierRegistry, error) {
	t, err := arbo.NewTree(arbo.Config{
		Database:     database,
		MaxLevels:    nullifierTreeLevels,
		HashFunction: arbo.HashFunctionPoseidon,
	})
	if err != nil {
		return nil, err
	}
	return &nullifierRegistry{tree: t}, nil
}

// key truncates the 32-byte nullifier encoding to the tree's key width.
func (r *nullifierRegistry) key(nullifier *big.Int) []byte {
	full := make([]byte, 32)
	nullifier.FillBytes(full)
	return full[:nullifierKeyLen]
}

// IsSpent reports whether the nullifier is recorded. Only a missing key
// means unspent; any other lookup failure is surfaced, never treated as an
// answer.
func (r *nullifierRegistry) IsSpent(nullifier *big.Int) (bool, error) {
	_, _, err := r.tree.Get(r.key(nullifier))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, arbo.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Spend records the nullifier with the leaf index of the change it produced.
func (r *nullifierRegistry) Spend(nullifier *big.Int, leafIndex uint64) error {
	spent, err := r.IsSpent(nullifier)
	if err != nil {
		return err
	}
	if spent {
		return ErrNullifierSpent
	}
	value := make([]byte, 8)
	binary.BigEndian.PutUint64(value, leafIndex)
	return r.tree.Add(r.key(nullifier), value)
}

// Root returns the registry tree root.
func (r *nullifierRegistry) Root() ([]byte, error) {
	return r.tree.Root()
}
