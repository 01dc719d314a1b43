package service

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestPoolService(t *testing.T) {
	c := qt.New(t)

	svc := New(Config{
		DataDir:    t.TempDir(),
		Host:       "127.0.0.1",
		Port:       0, // the OS picks a free port
		Depth:      8,
		MockProver: true,
	})

	ctx := context.Background()
	err := svc.Start(ctx)
	c.Assert(err, qt.IsNil)
	defer svc.Stop()

	l := svc.Ledger()
	c.Assert(l, qt.IsNotNil)
	c.Assert(l.Depth(), qt.Equals, 8)
	c.Assert(l.LeafCount(), qt.Equals, uint64(0))

	// starting an already running service fails
	err = svc.Start(ctx)
	c.Assert(err, qt.ErrorMatches, "service already running")

	// stop and restart with different parameters; the recorded ones win
	svc.Stop()
	svc2 := New(Config{
		DataDir:    svc.config.DataDir,
		Host:       "127.0.0.1",
		Port:       0,
		Depth:      16,
		MockProver: true,
	})
	err = svc2.Start(ctx)
	c.Assert(err, qt.IsNil)
	defer svc2.Stop()
	c.Assert(svc2.Ledger().Depth(), qt.Equals, 8)
}
