package tests

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/lockbox/pkg/chain"
)

func newDevnet(t *testing.T) *chain.Chain {
	t.Helper()
	cfg := chain.DefaultConfig()
	cfg.StartTime = 1_893_456_000
	cfg.GenesisAccounts = []common.Address{owner, other}
	cfg.GenesisBalance = big.NewInt(1e18)
	return chain.New(cfg)
}

func TestTimeControlIsMonotonic(t *testing.T) {
	c := newDevnet(t)
	start := c.Now()

	c.IncreaseTime(90 * time.Second)
	if got := c.Now(); got != start+90 {
		t.Errorf("after advance: now = %d, want %d", got, start+90)
	}

	if err := c.IncreaseTimeTo(start + 60); err == nil {
		t.Error("moving time backwards was accepted")
	}
	if err := c.IncreaseTimeTo(start + 120); err != nil {
		t.Errorf("forward jump rejected: %v", err)
	}
	if got := c.Now(); got != start+120 {
		t.Errorf("after jump: now = %d", got)
	}
}

func TestBalanceInjectionSealsNoBlock(t *testing.T) {
	c := newDevnet(t)
	stranger := common.HexToAddress("0x9900000000000000000000000000000000000099")
	before := c.Height()

	if err := c.SetBalance(stranger, big.NewInt(42)); err != nil {
		t.Fatalf("injection failed: %v", err)
	}
	if got := c.BalanceOf(stranger); got.Int64() != 42 {
		t.Errorf("balance = %s", got)
	}
	if c.Height() != before {
		t.Errorf("injection sealed a block")
	}

	if err := c.SetBalance(stranger, big.NewInt(-1)); err == nil {
		t.Error("negative balance was accepted")
	}
}

func TestNestedSnapshots(t *testing.T) {
	c := newDevnet(t)

	c.SetBalance(owner, big.NewInt(100))
	outer := c.Snapshot()

	c.SetBalance(owner, big.NewInt(200))
	inner := c.Snapshot()

	c.SetBalance(owner, big.NewInt(300))

	if err := c.Revert(inner); err != nil {
		t.Fatalf("inner revert: %v", err)
	}
	if got := c.BalanceOf(owner); got.Int64() != 200 {
		t.Errorf("after inner revert: %s", got)
	}

	if err := c.Revert(outer); err != nil {
		t.Fatalf("outer revert: %v", err)
	}
	if got := c.BalanceOf(owner); got.Int64() != 100 {
		t.Errorf("after outer revert: %s", got)
	}

	// Reverting to the outer snapshot invalidated both ids
	if err := c.Revert(inner); err == nil {
		t.Error("inner snapshot survived outer revert")
	}
	if err := c.Revert(outer); err == nil {
		t.Error("outer snapshot was not consumed")
	}
}

func TestSnapshotRestoresTime(t *testing.T) {
	c := newDevnet(t)
	start := c.Now()

	id := c.Snapshot()
	c.IncreaseTime(time.Hour)

	if err := c.Revert(id); err != nil {
		t.Fatalf("revert: %v", err)
	}
	if got := c.Now(); got != start {
		t.Errorf("time after revert = %d, want %d", got, start)
	}
}

func TestSealedChainVerifies(t *testing.T) {
	c := newDevnet(t)
	c.SetBalance(owner, big.NewInt(7)) // no block; genesis only

	b := c.LastBlock()
	if !c.VerifySeal(b) {
		t.Error("genesis seal does not verify")
	}

	b.Note = "tampered"
	b.Hash = chain.HashOfBlock(b)
	if c.VerifySeal(b) {
		t.Error("tampered block still verifies")
	}
}
