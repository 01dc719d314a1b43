// Package storage persists wallet-side artifacts in a prefixed key-value
// store. The following prefixes are used:
//   - 'n/' for notes, keyed by note commitment
//   - 'p/' for pool parameters
//   - 'c/' for compiled circuit artifacts, keyed by circuit name
//
// Values are CBOR-encoded with deterministic options so identical artifacts
// always produce identical bytes.
package storage

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"go.vocdoni.io/dvote/db"
)

var (
	notePrefix    = []byte("n/")
	paramsPrefix  = []byte("p/")
	circuitPrefix = []byte("c/")
)

// ErrNotFound is returned when the requested artifact does not exist.
var ErrNotFound = errors.New("not found")

// Storage wraps the key-value database.
type Storage struct {
	db db.Database
}

// New creates a Storage over the database.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	s.db.Close()
}

func encodeArtifact(a any) ([]byte, error) {
	encOpts := cbor.CoreDetEncOptions()
	em, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return em.Marshal(a)
}

func decodeArtifact(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}
