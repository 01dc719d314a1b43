package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/zknote/shieldpool/types"
)

// EventKind tags the operation that appended a leaf.
type EventKind string

const (
	EventDeposit        EventKind = "deposit"
	EventTransferOutput EventKind = "transfer"
	EventWithdrawChange EventKind = "withdraw"
)

// Event is one accumulator insertion as published to wallets. Wallets scan
// the feed in order, replay the commitments into a local accumulator and
// trial-decrypt the memos addressed to them.
type Event struct {
	LeafIndex  uint64         `json:"index" cbor:"index"`
	Kind       EventKind      `json:"kind" cbor:"kind"`
	Commitment *types.BigInt  `json:"commitment" cbor:"commitment"`
	Memo       types.HexBytes `json:"memo,omitempty" cbor:"memo,omitempty"`
}

// eventLog is the ordered insertion feed, one entry per leaf, keyed by the
// leaf index.
type eventLog struct {
	db db.Database
}

func (l *eventLog) append(wTx db.WriteTx, ev *Event) error {
	data, err := cbor.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, ev.LeafIndex)
	return wTx.Set(key, data)
}

// get returns the event for one leaf index.
func (l *eventLog) get(index uint64) (*Event, error) {
	rd := prefixeddb.NewPrefixedReader(l.db, eventPrefix)
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, index)
	data, err := rd.Get(key)
	if err != nil {
		return nil, err
	}
	ev := &Event{}
	if err := cbor.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("failed to decode event %d: %w", index, err)
	}
	return ev, nil
}

// since returns all events with leaf index >= from, in insertion order.
func (l *eventLog) since(from, count uint64) ([]*Event, error) {
	events := []*Event{}
	for i := from; i < count; i++ {
		ev, err := l.get(i)
		if errors.Is(err, db.ErrKeyNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}
