package storage

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/lockbox/pkg/chain"
	"github.com/uhyunpark/lockbox/pkg/chain/vm"
)

type InMemoryBlockStore struct {
	mu      sync.Mutex
	blocks  map[uint64]chain.Block
	events  map[common.Address][]vm.Event
	last    uint64
	hasLast bool
}

func NewInMemoryBlockStore() *InMemoryBlockStore {
	return &InMemoryBlockStore{
		blocks: make(map[uint64]chain.Block),
		events: make(map[common.Address][]vm.Event),
	}
}

func (s *InMemoryBlockStore) SaveBlock(b chain.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[b.Height] = b
	if !s.hasLast || b.Height > s.last {
		s.last = b.Height
		s.hasLast = true
	}
	return nil
}

func (s *InMemoryBlockStore) GetBlock(height uint64) (chain.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[height]
	return b, ok
}

func (s *InMemoryBlockStore) LastHeight() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasLast
}

func (s *InMemoryBlockStore) SaveEvent(_ uint64, _ int, e vm.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.Contract] = append(s.events[e.Contract], e)
	return nil
}

func (s *InMemoryBlockStore) EventsByContract(addr common.Address, limit int) ([]vm.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.events[addr]
	// newest first
	out := make([]vm.Event, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, all[i])
	}
	return out, nil
}

var _ chain.BlockStore = (*InMemoryBlockStore)(nil)
