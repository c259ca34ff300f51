package chain

import (
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	"github.com/uhyunpark/lockbox/pkg/chain/vm"
)

func keccak(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// StateDB holds native-currency balances and nonces for all addresses.
// Transactions execute against a deep copy; the chain swaps the copy in on
// success and drops it on revert, so a StateDB is never partially mutated
// by a failed call.
type StateDB struct {
	mu       sync.RWMutex
	balances map[common.Address]*big.Int
	nonces   map[common.Address]uint64
}

func NewStateDB() *StateDB {
	return &StateDB{
		balances: make(map[common.Address]*big.Int),
		nonces:   make(map[common.Address]uint64),
	}
}

// BalanceOf returns the balance of addr (zero for unknown addresses).
// The returned value is a copy; mutating it does not touch state.
func (s *StateDB) BalanceOf(addr common.Address) *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// SetBalance overwrites addr's balance. This is the devnet's balance
// injection facility; real chains have no such operation.
func (s *StateDB) SetBalance(addr common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("balance cannot be negative: %v", amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[addr] = new(big.Int).Set(amount)
	return nil
}

// AddBalance credits addr with amount.
func (s *StateDB) AddBalance(addr common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("credit cannot be negative: %v", amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.balances[addr]
	if !ok {
		cur = new(big.Int)
	}
	s.balances[addr] = new(big.Int).Add(cur, amount)
	return nil
}

// Transfer moves amount from one address to another.
// Fails without mutating anything if the sender cannot cover it.
func (s *StateDB) Transfer(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("transfer amount cannot be negative: %v", amount)
	}
	if amount.Sign() == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fromBal, ok := s.balances[from]
	if !ok || fromBal.Cmp(amount) < 0 {
		have := new(big.Int)
		if ok {
			have = fromBal
		}
		return fmt.Errorf("insufficient funds: %s has %s, need %s", from.Hex(), have, amount)
	}

	toBal, ok := s.balances[to]
	if !ok {
		toBal = new(big.Int)
	}

	s.balances[from] = new(big.Int).Sub(fromBal, amount)
	s.balances[to] = new(big.Int).Add(toBal, amount)
	return nil
}

// Nonce returns addr's current nonce.
func (s *StateDB) Nonce(addr common.Address) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nonces[addr]
}

// IncNonce bumps addr's nonce. Called once per deployment to derive
// distinct contract addresses.
func (s *StateDB) IncNonce(addr common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonces[addr]++
}

// Copy returns a deep copy. Used for per-tx working state and snapshots.
func (s *StateDB) Copy() *StateDB {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := NewStateDB()
	for addr, bal := range s.balances {
		cp.balances[addr] = new(big.Int).Set(bal)
	}
	for addr, n := range s.nonces {
		cp.nonces[addr] = n
	}
	return cp
}

// Root computes a deterministic hash of all balances and nonces.
// Addresses are visited in sorted order so equal states hash equally.
func (s *StateDB) Root() common.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addrs := make([]common.Address, 0, len(s.balances))
	for addr := range s.balances {
		addrs = append(addrs, addr)
	}
	for addr := range s.nonces {
		if _, ok := s.balances[addr]; !ok {
			addrs = append(addrs, addr)
		}
	}
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Cmp(addrs[j]) < 0
	})

	var data []byte
	for _, addr := range addrs {
		data = append(data, addr.Bytes()...)
		if bal, ok := s.balances[addr]; ok {
			data = append(data, bal.Bytes()...)
		}
		var nbuf [8]byte
		n := s.nonces[addr]
		for i := 0; i < 8; i++ {
			nbuf[i] = byte(n >> (56 - 8*i))
		}
		data = append(data, nbuf[:]...)
	}

	return common.BytesToHash(keccak(data))
}

var _ vm.State = (*StateDB)(nil)
