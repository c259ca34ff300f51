package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/lockbox/pkg/chain"
	"github.com/uhyunpark/lockbox/pkg/chain/vm"
)

type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}
func (s *PebbleStore) Close() error { return s.db.Close() }

func (s *PebbleStore) SaveBlock(b chain.Block) error {
	val, err := encodeGob(b)
	if err != nil {
		return fmt.Errorf("encode block: %w", err)
	}
	if err := s.db.Set(kBlock(b.Height), val, pebble.Sync); err != nil {
		return fmt.Errorf("save block %d: %w", b.Height, err)
	}
	if err := s.db.Set(kLastHeight(), heightKey(b.Height), pebble.Sync); err != nil {
		return fmt.Errorf("save last height: %w", err)
	}
	return nil
}

func (s *PebbleStore) GetBlock(height uint64) (chain.Block, bool) {
	val, closer, err := s.db.Get(kBlock(height))
	if err != nil {
		return chain.Block{}, false
	}
	defer closer.Close()
	var out chain.Block
	if err := decodeGob(val, &out); err != nil {
		return chain.Block{}, false
	}
	return out, true
}

func (s *PebbleStore) LastHeight() (uint64, bool) {
	val, closer, err := s.db.Get(kLastHeight())
	if err != nil {
		return 0, false
	}
	defer closer.Close()
	if len(val) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(val), true
}

func (s *PebbleStore) SaveEvent(height uint64, idx int, e vm.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.db.Set(kEvent(e.Contract, height, idx), data, pebble.NoSync); err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}

// EventsByContract returns up to limit events emitted by addr, newest first.
// limit <= 0 means no limit.
func (s *PebbleStore) EventsByContract(addr common.Address, limit int) ([]vm.Event, error) {
	prefix := eventPrefix(addr)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var events []vm.Event
	for iter.Last(); iter.Valid(); iter.Prev() {
		if limit > 0 && len(events) >= limit {
			break
		}
		var e vm.Event
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			continue // skip invalid entries
		}
		events = append(events, e)
	}
	return events, nil
}

var _ chain.BlockStore = (*PebbleStore)(nil)
