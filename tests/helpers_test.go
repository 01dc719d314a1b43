package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/zknote/shieldpool/api/client"
	"github.com/zknote/shieldpool/ledger"
	"github.com/zknote/shieldpool/service"
	"github.com/zknote/shieldpool/util"
)

const testTreeDepth = 16

// NewTestService starts a pool service on a random port with the mock
// proving backend and returns it with the chosen port.
func NewTestService(t *testing.T, ctx context.Context, release ledger.ReleaseFunc) (*service.PoolService, int) {
	t.Helper()
	port := util.RandomInt(40000, 60000)
	svc := service.New(service.Config{
		DataDir:    t.TempDir(),
		Host:       "127.0.0.1",
		Port:       port,
		Depth:      testTreeDepth,
		MockProver: true,
		Release:    release,
	})
	if err := svc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Stop)

	// Wait for the HTTP server to start
	time.Sleep(500 * time.Millisecond)
	return svc, port
}

// NewTestClient creates a new API client for testing.
func NewTestClient(port int) (*client.HTTPclient, error) {
	return client.New(fmt.Sprintf("http://127.0.0.1:%d", port))
}
