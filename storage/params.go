package storage

import (
	"errors"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var paramsKey = []byte("pool")

// PoolParams are the deployment parameters recorded on first run. They are
// checked on reopen so a datadir cannot silently be served with a different
// tree shape.
type PoolParams struct {
	Depth       int `cbor:"depth"`
	HistorySize int `cbor:"historySize"`
}

// SetPoolParams stores the parameters if absent and returns the effective
// set: stored values win over the passed ones.
func (s *Storage) SetPoolParams(params PoolParams) (PoolParams, error) {
	existing, err := s.PoolParams()
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return PoolParams{}, err
	}
	data, err := encodeArtifact(params)
	if err != nil {
		return PoolParams{}, err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), paramsPrefix)
	if err := wTx.Set(paramsKey, data); err != nil {
		wTx.Discard()
		return PoolParams{}, err
	}
	return params, wTx.Commit()
}

// PoolParams loads the recorded parameters.
func (s *Storage) PoolParams() (PoolParams, error) {
	pr := prefixeddb.NewPrefixedReader(s.db, paramsPrefix)
	data, err := pr.Get(paramsKey)
	if errors.Is(err, db.ErrKeyNotFound) {
		return PoolParams{}, ErrNotFound
	}
	if err != nil {
		return PoolParams{}, err
	}
	var params PoolParams
	if err := decodeArtifact(data, &params); err != nil {
		return PoolParams{}, err
	}
	return params, nil
}
