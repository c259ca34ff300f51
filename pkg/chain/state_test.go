package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	alice = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	bob   = common.HexToAddress("0xBB00000000000000000000000000000000000000")
)

func TestStateBalances(t *testing.T) {
	s := NewStateDB()

	// Unknown address reads as zero
	if s.BalanceOf(alice).Sign() != 0 {
		t.Error("expected zero balance for unknown address")
	}

	if err := s.SetBalance(alice, big.NewInt(1000)); err != nil {
		t.Fatalf("set balance failed: %v", err)
	}
	if got := s.BalanceOf(alice); got.Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("balance = %s, want 1000", got)
	}

	// Returned balance is a copy
	s.BalanceOf(alice).SetInt64(0)
	if got := s.BalanceOf(alice); got.Cmp(big.NewInt(1000)) != 0 {
		t.Error("BalanceOf leaked internal state")
	}

	// Negative balances rejected
	if err := s.SetBalance(alice, big.NewInt(-1)); err == nil {
		t.Error("expected error for negative balance")
	}
}

func TestStateTransfer(t *testing.T) {
	s := NewStateDB()
	s.SetBalance(alice, big.NewInt(500))

	if err := s.Transfer(alice, bob, big.NewInt(200)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if got := s.BalanceOf(alice); got.Cmp(big.NewInt(300)) != 0 {
		t.Errorf("alice = %s, want 300", got)
	}
	if got := s.BalanceOf(bob); got.Cmp(big.NewInt(200)) != 0 {
		t.Errorf("bob = %s, want 200", got)
	}

	// Insufficient funds leaves both untouched
	if err := s.Transfer(alice, bob, big.NewInt(301)); err == nil {
		t.Error("expected insufficient funds error")
	}
	if got := s.BalanceOf(alice); got.Cmp(big.NewInt(300)) != 0 {
		t.Errorf("alice mutated by failed transfer: %s", got)
	}

	// Negative transfers rejected
	if err := s.Transfer(alice, bob, big.NewInt(-5)); err == nil {
		t.Error("expected error for negative transfer")
	}

	// Zero transfer is a no-op even from an unfunded address
	if err := s.Transfer(common.Address{}, bob, new(big.Int)); err != nil {
		t.Errorf("zero transfer failed: %v", err)
	}
}

func TestStateCopyIsolation(t *testing.T) {
	s := NewStateDB()
	s.SetBalance(alice, big.NewInt(100))
	s.IncNonce(alice)

	cp := s.Copy()
	cp.SetBalance(alice, big.NewInt(999))
	cp.IncNonce(alice)

	if got := s.BalanceOf(alice); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("original balance mutated through copy: %s", got)
	}
	if got := s.Nonce(alice); got != 1 {
		t.Errorf("original nonce mutated through copy: %d", got)
	}
	if got := cp.Nonce(alice); got != 2 {
		t.Errorf("copy nonce = %d, want 2", got)
	}
}

func TestStateRootDeterministic(t *testing.T) {
	build := func() *StateDB {
		s := NewStateDB()
		s.SetBalance(alice, big.NewInt(100))
		s.SetBalance(bob, big.NewInt(200))
		s.IncNonce(alice)
		return s
	}

	r1 := build().Root()
	r2 := build().Root()
	if r1 != r2 {
		t.Errorf("equal states hashed differently: %s vs %s", r1.Hex(), r2.Hex())
	}

	s := build()
	s.SetBalance(bob, big.NewInt(201))
	if s.Root() == r1 {
		t.Error("different states hashed equally")
	}
}
