// Package service wires the pool daemon together: it opens the database,
// reconciles the pool parameters with what the database already holds,
// builds the proving backend and the ledger, and runs the HTTP API.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/log"

	"github.com/zknote/shieldpool/api"
	"github.com/zknote/shieldpool/ledger"
	"github.com/zknote/shieldpool/prover"
	"github.com/zknote/shieldpool/storage"
	"github.com/zknote/shieldpool/tree"
)

// Config holds the pool service configuration. Depth and HistorySize only
// apply on first start; afterwards the values recorded in the database win.
type Config struct {
	DataDir     string
	Host        string
	Port        int
	Depth       int
	HistorySize int
	// MockProver replaces the Groth16 backend with the satisfiability
	// checker. For tests and local pipelines only.
	MockProver bool
	// Release pays out accepted withdrawals. May be nil.
	Release ledger.ReleaseFunc
}

// PoolService manages the pool ledger and its HTTP API.
type PoolService struct {
	config  Config
	storage *storage.Storage
	ledger  *ledger.Ledger
	api     *api.API
	mu      sync.Mutex
	cancel  context.CancelFunc
}

// New creates a PoolService from the configuration. Nothing is opened until
// Start is called.
func New(config Config) *PoolService {
	if config.Depth == 0 {
		config.Depth = 20
	}
	if config.HistorySize == 0 {
		config.HistorySize = tree.DefaultRootHistory
	}
	return &PoolService{config: config}
}

// Start opens the database and launches the API server. It returns an error
// if the service is already running or if any component fails to open.
func (ps *PoolService) Start(ctx context.Context) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.cancel != nil {
		return fmt.Errorf("service already running")
	}

	database, err := metadb.New(db.TypePebble, filepath.Join(ps.config.DataDir, "shieldpool"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	ps.storage = storage.New(database)

	params, err := ps.storage.SetPoolParams(storage.PoolParams{
		Depth:       ps.config.Depth,
		HistorySize: ps.config.HistorySize,
	})
	if err != nil {
		ps.storage.Close()
		return fmt.Errorf("failed to reconcile pool parameters: %w", err)
	}
	if params.Depth != ps.config.Depth || params.HistorySize != ps.config.HistorySize {
		log.Warnw("pool parameters overridden by database",
			"depth", params.Depth, "historySize", params.HistorySize)
	}

	var backend prover.Backend
	if ps.config.MockProver {
		backend = prover.NewMock()
	} else {
		backend = prover.NewGroth16WithCache(ps.storage)
	}

	ps.ledger, err = ledger.New(database, backend, params.Depth, params.HistorySize, ps.config.Release)
	if err != nil {
		ps.storage.Close()
		return fmt.Errorf("failed to open ledger: %w", err)
	}

	ps.api, err = api.New(&api.APIConfig{
		Host:   ps.config.Host,
		Port:   ps.config.Port,
		Ledger: ps.ledger,
	})
	if err != nil {
		ps.storage.Close()
		return fmt.Errorf("failed to start API server: %w", err)
	}

	_, ps.cancel = context.WithCancel(ctx)
	log.Infow("pool service started",
		"dataDir", ps.config.DataDir,
		"depth", params.Depth,
		"historySize", params.HistorySize,
		"leafCount", ps.ledger.LeafCount(),
		"root", ps.ledger.Root().String())
	return nil
}

// Stop halts the service and closes the database.
func (ps *PoolService) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.cancel == nil {
		return
	}
	ps.cancel()
	ps.cancel = nil
	ps.storage.Close()
}

// Ledger returns the running ledger instance, or nil if not started.
func (ps *PoolService) Ledger() *ledger.Ledger {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.ledger
}
