package tree

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

func testDB(t *testing.T) db.Database {
	t.Helper()
	database, err := metadb.New(db.TypePebble, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return database
}

func TestInsertAndProve(t *testing.T) {
	c := qt.New(t)
	tr, err := New(testDB(t), 8, DefaultRootHistory)
	c.Assert(err, qt.IsNil)
	c.Assert(tr.LeafCount(), qt.Equals, uint64(0))

	emptyRoot := tr.Root()
	leaves := []*big.Int{big.NewInt(11), big.NewInt(22), big.NewInt(33), big.NewInt(44), big.NewInt(55)}
	for i, leaf := range leaves {
		index, root, err := tr.Insert(leaf)
		c.Assert(err, qt.IsNil)
		c.Assert(index, qt.Equals, uint64(i))
		c.Assert(root.Cmp(emptyRoot), qt.Not(qt.Equals), 0)
	}
	c.Assert(tr.LeafCount(), qt.Equals, uint64(len(leaves)))

	// every inserted leaf proves against the current root
	root := tr.Root()
	for i, leaf := range leaves {
		path, err := tr.GenerateProof(uint64(i))
		c.Assert(err, qt.IsNil)
		c.Assert(path.Siblings, qt.HasLen, 8)
		c.Assert(VerifyProof(leaf, path, root), qt.IsTrue)
		// and fails for the wrong leaf
		c.Assert(VerifyProof(big.NewInt(999), path, root), qt.IsFalse)
	}

	_, err = tr.GenerateProof(uint64(len(leaves)))
	c.Assert(err, qt.Equals, ErrLeafNotFound)
}

func TestRootHistoryWindow(t *testing.T) {
	c := qt.New(t)
	const history = 4
	tr, err := New(testDB(t), 8, history)
	c.Assert(err, qt.IsNil)

	// the empty root is known until pushed out of the window
	emptyRoot := tr.Root()
	c.Assert(tr.IsKnownRoot(emptyRoot), qt.IsTrue)
	c.Assert(tr.IsKnownRoot(big.NewInt(0)), qt.IsFalse)
	c.Assert(tr.IsKnownRoot(nil), qt.IsFalse)

	var firstRoot *big.Int
	for i := 0; i < history; i++ {
		_, root, err := tr.Insert(big.NewInt(int64(i + 1)))
		c.Assert(err, qt.IsNil)
		if i == 0 {
			firstRoot = root
		}
		c.Assert(tr.IsKnownRoot(root), qt.IsTrue)
	}
	// history inserts later the empty root has expired, the first
	// post-insert root is the oldest still inside the window
	c.Assert(tr.IsKnownRoot(emptyRoot), qt.IsFalse)
	c.Assert(tr.IsKnownRoot(firstRoot), qt.IsTrue)

	_, _, err = tr.Insert(big.NewInt(100))
	c.Assert(err, qt.IsNil)
	c.Assert(tr.IsKnownRoot(firstRoot), qt.IsFalse)
}

func TestTreeFull(t *testing.T) {
	c := qt.New(t)
	tr, err := New(testDB(t), 2, DefaultRootHistory)
	c.Assert(err, qt.IsNil)
	for i := 0; i < 4; i++ {
		_, _, err := tr.Insert(big.NewInt(int64(i)))
		c.Assert(err, qt.IsNil)
	}
	_, _, err = tr.Insert(big.NewInt(5))
	c.Assert(err, qt.Equals, ErrTreeFull)
}

func TestReopenFromDisk(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()
	database, err := metadb.New(db.TypePebble, dir)
	c.Assert(err, qt.IsNil)

	tr, err := New(database, 8, DefaultRootHistory)
	c.Assert(err, qt.IsNil)
	leaves := []*big.Int{big.NewInt(7), big.NewInt(8), big.NewInt(9)}
	for _, leaf := range leaves {
		_, _, err := tr.Insert(leaf)
		c.Assert(err, qt.IsNil)
	}
	root := tr.Root()
	database.Close()

	database, err = metadb.New(db.TypePebble, dir)
	c.Assert(err, qt.IsNil)
	defer database.Close()
	reopened, err := New(database, 8, DefaultRootHistory)
	c.Assert(err, qt.IsNil)
	c.Assert(reopened.LeafCount(), qt.Equals, uint64(len(leaves)))
	c.Assert(reopened.Root().Cmp(root), qt.Equals, 0)
	c.Assert(reopened.IsKnownRoot(root), qt.IsTrue)

	// the frontier survived: appends continue consistently
	_, reopenedRoot, err := reopened.Insert(big.NewInt(10))
	c.Assert(err, qt.IsNil)

	fresh, err := New(testDB(t), 8, DefaultRootHistory)
	c.Assert(err, qt.IsNil)
	for _, leaf := range append(leaves, big.NewInt(10)) {
		_, _, err := fresh.Insert(leaf)
		c.Assert(err, qt.IsNil)
	}
	c.Assert(reopenedRoot.Cmp(fresh.Root()), qt.Equals, 0)

	// wrong depth on reopen is rejected
	_, err = New(database, 9, DefaultRootHistory)
	c.Assert(err, qt.ErrorIs, ErrInvalidDepth)
}

func TestReplay(t *testing.T) {
	c := qt.New(t)
	source, err := New(testDB(t), 8, DefaultRootHistory)
	c.Assert(err, qt.IsNil)
	leaves := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3), big.NewInt(4)}
	for _, leaf := range leaves {
		_, _, err := source.Insert(leaf)
		c.Assert(err, qt.IsNil)
	}

	replica, err := New(testDB(t), 8, DefaultRootHistory)
	c.Assert(err, qt.IsNil)
	// partial state already present: Replay skips what it has
	_, _, err = replica.Insert(leaves[0])
	c.Assert(err, qt.IsNil)
	c.Assert(replica.Replay(leaves), qt.IsNil)
	c.Assert(replica.LeafCount(), qt.Equals, source.LeafCount())
	c.Assert(replica.Root().Cmp(source.Root()), qt.Equals, 0)
}

func TestInvalidDepth(t *testing.T) {
	c := qt.New(t)
	_, err := New(testDB(t), 0, DefaultRootHistory)
	c.Assert(err, qt.Equals, ErrInvalidDepth)
	_, err = New(testDB(t), MaxDepth+1, DefaultRootHistory)
	c.Assert(err, qt.Equals, ErrInvalidDepth)
}
