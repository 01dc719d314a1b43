package storage

import (
	"errors"
	"fmt"
	"math/big"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/zknote/shieldpool/crypto/ecc/bjj"
	"github.com/zknote/shieldpool/note"
	"github.com/zknote/shieldpool/types"
)

// storedNote is the CBOR shape of a note at rest. The owner key is stored
// by coordinates and revalidated on load.
type storedNote struct {
	Amount            uint64        `cbor:"amount"`
	Blinding          *types.BigInt `cbor:"blinding"`
	Secret            *types.BigInt `cbor:"secret"`
	NullifierPreimage *types.BigInt `cbor:"preimage"`
	OwnerX            *types.BigInt `cbor:"ownerX"`
	OwnerY            *types.BigInt `cbor:"ownerY"`
	LeafIndex         int64         `cbor:"leafIndex"`
	Spent             bool          `cbor:"spent"`
	Commitment        *types.BigInt `cbor:"commitment"`
}

func noteKey(commitment *big.Int) []byte {
	key := make([]byte, 32)
	return commitment.FillBytes(key)
}

// SaveNote persists a note keyed by its commitment. Saving an already
// stored note overwrites it, which is how leaf indices get recorded after
// finalization.
func (s *Storage) SaveNote(n *note.Note) error {
	cm, err := n.Commitment()
	if err != nil {
		return err
	}
	ox, oy := n.OwnerKey.Point()
	stored := &storedNote{
		Amount:            n.Amount,
		Blinding:          (*types.BigInt)(n.Blinding),
		Secret:            (*types.BigInt)(n.Secret),
		NullifierPreimage: (*types.BigInt)(n.NullifierPreimage),
		OwnerX:            (*types.BigInt)(ox),
		OwnerY:            (*types.BigInt)(oy),
		LeafIndex:         n.LeafIndex,
		Commitment:        (*types.BigInt)(cm),
	}
	data, err := encodeArtifact(stored)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), notePrefix)
	if err := wTx.Set(noteKey(cm), data); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// Note loads a note by commitment. The second return reports whether it has
// been marked spent.
func (s *Storage) Note(commitment *big.Int) (*note.Note, bool, error) {
	stored, err := s.loadStored(commitment)
	if err != nil {
		return nil, false, err
	}
	n, err := restoreNote(stored)
	if err != nil {
		return nil, false, err
	}
	return n, stored.Spent, nil
}

// MarkSpent flags a stored note as consumed.
func (s *Storage) MarkSpent(commitment *big.Int) error {
	stored, err := s.loadStored(commitment)
	if err != nil {
		return err
	}
	stored.Spent = true
	data, err := encodeArtifact(stored)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), notePrefix)
	if err := wTx.Set(noteKey(stored.Commitment.MathBigInt()), data); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// ListUnspent returns every stored note not yet marked spent.
func (s *Storage) ListUnspent() ([]*note.Note, error) {
	pr := prefixeddb.NewPrefixedReader(s.db, notePrefix)
	var notes []*note.Note
	var innerErr error
	if err := pr.Iterate(nil, func(_, v []byte) bool {
		stored := &storedNote{}
		if err := decodeArtifact(v, stored); err != nil {
			innerErr = fmt.Errorf("decode note: %w", err)
			return false
		}
		if stored.Spent {
			return true
		}
		n, err := restoreNote(stored)
		if err != nil {
			innerErr = err
			return false
		}
		notes = append(notes, n)
		return true
	}); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	if innerErr != nil {
		return nil, innerErr
	}
	return notes, nil
}

func (s *Storage) loadStored(commitment *big.Int) (*storedNote, error) {
	pr := prefixeddb.NewPrefixedReader(s.db, notePrefix)
	data, err := pr.Get(noteKey(commitment))
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	stored := &storedNote{}
	if err := decodeArtifact(data, stored); err != nil {
		return nil, fmt.Errorf("decode note: %w", err)
	}
	return stored, nil
}

func restoreNote(stored *storedNote) (*note.Note, error) {
	owner, err := bjj.FromPoint(stored.OwnerX.MathBigInt(), stored.OwnerY.MathBigInt())
	if err != nil {
		return nil, fmt.Errorf("stored note has invalid owner key: %w", err)
	}
	n, err := note.New(new(big.Int).SetUint64(stored.Amount),
		stored.Blinding.MathBigInt(),
		stored.Secret.MathBigInt(),
		stored.NullifierPreimage.MathBigInt(),
		owner)
	if err != nil {
		return nil, err
	}
	if stored.LeafIndex != note.UnknownLeafIndex {
		n.Finalize(uint64(stored.LeafIndex))
	}
	return n, nil
}
