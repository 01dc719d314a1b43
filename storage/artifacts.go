package storage

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

const (
	artifactCCS = "ccs"
	artifactPK  = "pk"
	artifactVK  = "vk"
)

func artifactKey(name, part string) []byte {
	return []byte(name + "/" + part)
}

// SaveArtifacts stores a compiled constraint system and its Groth16 setup
// keys under the circuit name, replacing any previous set atomically.
func (s *Storage) SaveArtifacts(name string, ccs constraint.ConstraintSystem,
	pk groth16.ProvingKey, vk groth16.VerifyingKey) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), circuitPrefix)
	defer wTx.Discard()
	buf := bytes.Buffer{}
	if _, err := ccs.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to serialize constraint system: %w", err)
	}
	if err := wTx.Set(artifactKey(name, artifactCCS), buf.Bytes()); err != nil {
		return err
	}
	buf = bytes.Buffer{}
	if _, err := pk.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to serialize proving key: %w", err)
	}
	if err := wTx.Set(artifactKey(name, artifactPK), buf.Bytes()); err != nil {
		return err
	}
	buf = bytes.Buffer{}
	if _, err := vk.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to serialize verifying key: %w", err)
	}
	if err := wTx.Set(artifactKey(name, artifactVK), buf.Bytes()); err != nil {
		return err
	}
	return wTx.Commit()
}

// LoadArtifacts returns the stored constraint system and setup keys for the
// circuit name, or ErrNotFound if any part is missing.
func (s *Storage) LoadArtifacts(name string) (constraint.ConstraintSystem,
	groth16.ProvingKey, groth16.VerifyingKey, error) {
	rd := prefixeddb.NewPrefixedReader(s.db, circuitPrefix)
	ccsData, err := rd.Get(artifactKey(name, artifactCCS))
	if err != nil {
		return nil, nil, nil, artifactErr(err)
	}
	pkData, err := rd.Get(artifactKey(name, artifactPK))
	if err != nil {
		return nil, nil, nil, artifactErr(err)
	}
	vkData, err := rd.Get(artifactKey(name, artifactVK))
	if err != nil {
		return nil, nil, nil, artifactErr(err)
	}
	ccs := groth16.NewCS(ecc.BN254)
	if _, err := ccs.ReadFrom(bytes.NewReader(ccsData)); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to deserialize constraint system: %w", err)
	}
	pk := groth16.NewProvingKey(ecc.BN254)
	if _, err := pk.ReadFrom(bytes.NewReader(pkData)); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to deserialize proving key: %w", err)
	}
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(vkData)); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to deserialize verifying key: %w", err)
	}
	return ccs, pk, vk, nil
}

func artifactErr(err error) error {
	if errors.Is(err, db.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}
