package chain

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	eth_crypto "github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/uhyunpark/lockbox/pkg/chain/vm"
	"github.com/uhyunpark/lockbox/pkg/crypto"
	"github.com/uhyunpark/lockbox/pkg/util"
)

// Config describes a devnet chain instance.
type Config struct {
	ChainID         int64
	GenesisAccounts []common.Address
	GenesisBalance  *big.Int
	SealerSeed      string

	// StartTime is the initial simulated timestamp (unix seconds).
	// Zero means "wall clock at boot"; after boot, time only moves via
	// block production and explicit time control.
	StartTime int64

	// MinBlockGap keeps block timestamps strictly increasing: if a tx
	// arrives before simulated time moved past the previous block, the
	// new block's timestamp is lastBlockTime + MinBlockGap.
	MinBlockGap int64
}

// DefaultConfig returns a devnet config with no pre-funded accounts.
func DefaultConfig() Config {
	return Config{
		ChainID:     1337,
		SealerSeed:  "lockbox-devnet-sealer-0",
		MinBlockGap: 1,
	}
}

// Chain is a single-node devnet: sequential transactions, simulated time,
// native Go contracts, snapshot/revert. There is no consensus and no
// network; one tx executes at a time under the chain lock, which is exactly
// the execution model the harness needs.
type Chain struct {
	mu        sync.Mutex
	chainID   int64
	state     *StateDB
	clock     *util.SimClock
	contracts map[common.Address]vm.Contract
	blocks    []Block
	events    []vm.Event
	sealer    *crypto.Sealer

	snapshots map[int]*snapshot
	nextSnap  int

	minBlockGap int64

	// Optional collaborators, assigned after construction (nil = disabled).
	Store   BlockStore
	Wal     WAL
	Logger  *zap.SugaredLogger
	OnEvent func(vm.Event)
}

type snapshot struct {
	state     *StateDB
	contracts map[common.Address]vm.Contract
	time      int64
	nBlocks   int
	nEvents   int
}

// New boots a devnet chain: funds genesis accounts and seals the genesis
// block at the configured start time.
func New(cfg Config) *Chain {
	start := cfg.StartTime
	if start == 0 {
		start = time.Now().Unix()
	}
	gap := cfg.MinBlockGap
	if gap <= 0 {
		gap = 1
	}

	c := &Chain{
		chainID:     cfg.ChainID,
		state:       NewStateDB(),
		clock:       util.NewSimClock(start),
		contracts:   make(map[common.Address]vm.Contract),
		sealer:      crypto.NewSealerFromSeed([]byte(cfg.SealerSeed)),
		snapshots:   make(map[int]*snapshot),
		nextSnap:    1,
		minBlockGap: gap,
	}

	for _, addr := range cfg.GenesisAccounts {
		if cfg.GenesisBalance != nil {
			c.state.SetBalance(addr, cfg.GenesisBalance)
		}
	}

	genesis := Block{
		Height: 0,
		Parent: common.Hash{},
		Root:   c.state.Root(),
		Time:   start,
		Note:   "genesis",
	}
	genesis.Hash = HashOfBlock(genesis)
	genesis.Seal = c.sealer.Seal(genesis.Hash[:])
	c.blocks = append(c.blocks, genesis)

	return c
}

// NewDevnet is the fixture entry point: a fresh chain with defaults.
func NewDevnet() *Chain { return New(DefaultConfig()) }

func (c *Chain) ChainID() int64 { return c.chainID }

// Now returns the current simulated time in unix seconds.
func (c *Chain) Now() int64 { return c.clock.Unix() }

// Height returns the height of the last sealed block.
func (c *Chain) Height() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks[len(c.blocks)-1].Height
}

// LastBlock returns the most recently sealed block.
func (c *Chain) LastBlock() Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks[len(c.blocks)-1]
}

// BalanceOf reads an address balance directly from state.
// Takes the chain lock: Deploy/Call/Revert swap c.state underneath readers.
func (c *Chain) BalanceOf(addr common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.BalanceOf(addr)
}

// SetBalance injects a balance, bypassing transaction semantics.
// Devnet-only: this is the test harness's funding mechanism.
func (c *Chain) SetBalance(addr common.Address, amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.state.SetBalance(addr, amount); err != nil {
		return err
	}
	if c.Logger != nil {
		c.Logger.Infow("balance_injected", "addr", addr.Hex(), "balance", amount.String())
	}
	return nil
}

// IncreaseTime advances simulated time by d.
func (c *Chain) IncreaseTime(d time.Duration) {
	c.clock.Advance(d)
}

// IncreaseTimeTo jumps simulated time to ts. Rejects moves into the past.
func (c *Chain) IncreaseTimeTo(ts int64) error {
	return c.clock.SetTime(ts)
}

// Contract returns the contract registered at addr.
func (c *Chain) Contract(addr common.Address) (vm.Contract, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ct, ok := c.contracts[addr]
	return ct, ok
}

// ContractCount returns the number of deployed contracts.
func (c *Chain) ContractCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.contracts)
}

// Events returns all events emitted so far, in emission order.
func (c *Chain) Events() []vm.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]vm.Event, len(c.events))
	copy(out, c.events)
	return out
}

// EventsByContract filters the event log by emitting contract.
func (c *Chain) EventsByContract(addr common.Address) []vm.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []vm.Event
	for _, e := range c.events {
		if e.Contract == addr {
			out = append(out, e)
		}
	}
	return out
}

// Deploy runs ctor inside a transaction and registers the resulting contract
// at an address derived from the deployer's nonce. A constructor revert
// aborts atomically: no contract, no balance movement, no block.
func (c *Chain) Deploy(deployer common.Address, value *big.Int, ctor vm.Constructor) (common.Address, vm.Contract, *Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	work := c.state.Copy()
	addr := eth_crypto.CreateAddress(deployer, work.Nonce(deployer))
	work.IncNonce(deployer)

	if value == nil {
		value = new(big.Int)
	}
	if err := work.Transfer(deployer, addr, value); err != nil {
		return common.Address{}, nil, nil, err
	}

	blockTime := c.nextBlockTime()
	env := &vm.Env{Caller: deployer, Self: addr, Value: value, Time: blockTime, State: work}

	contract, err := ctor(env)
	if err != nil {
		if c.Logger != nil {
			c.Logger.Infow("deploy_reverted", "deployer", deployer.Hex(), "err", err)
		}
		return common.Address{}, nil, nil, err
	}

	c.state = work
	c.contracts[addr] = contract
	rcpt := c.commit(deployer, addr, "deploy", value, blockTime, env.Events())
	return addr, contract, rcpt, nil
}

// Call executes a state-mutating contract method as a transaction.
// On revert, the working state is discarded and the revert error returned;
// the caller can match its reason with vm.RevertReason.
func (c *Chain) Call(caller, to common.Address, method string, value *big.Int) (*Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	contract, ok := c.contracts[to]
	if !ok {
		return nil, fmt.Errorf("no contract at %s", to.Hex())
	}

	work := c.state.Copy()
	if value == nil {
		value = new(big.Int)
	}
	if err := work.Transfer(caller, to, value); err != nil {
		return nil, err
	}

	blockTime := c.nextBlockTime()
	env := &vm.Env{Caller: caller, Self: to, Value: value, Time: blockTime, State: work}

	if _, err := contract.Call(env, method); err != nil {
		if c.Logger != nil {
			c.Logger.Infow("call_reverted", "to", to.Hex(), "method", method, "err", err)
		}
		return nil, err
	}

	c.state = work
	rcpt := c.commit(caller, to, method, value, blockTime, env.Events())
	return rcpt, nil
}

// StaticCall executes a read-only method against a throwaway state copy.
// Any state change a contract attempts is silently dropped.
func (c *Chain) StaticCall(to common.Address, method string) (interface{}, error) {
	c.mu.Lock()
	contract, ok := c.contracts[to]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("no contract at %s", to.Hex())
	}
	work := c.state.Copy()
	blockTime := c.clock.Unix()
	c.mu.Unlock()

	env := &vm.Env{Self: to, Value: new(big.Int), Time: blockTime, State: work}
	return contract.Call(env, method)
}

// Snapshot checkpoints the full chain state and returns an id for Revert.
func (c *Chain) Snapshot() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	contracts := make(map[common.Address]vm.Contract, len(c.contracts))
	for a, ct := range c.contracts {
		contracts[a] = ct
	}

	id := c.nextSnap
	c.nextSnap++
	c.snapshots[id] = &snapshot{
		state:     c.state.Copy(),
		contracts: contracts,
		time:      c.clock.Unix(),
		nBlocks:   len(c.blocks),
		nEvents:   len(c.events),
	}
	return id
}

// Revert restores the chain to a snapshot. The snapshot and everything
// taken after it are invalidated, mirroring evm_revert semantics.
func (c *Chain) Revert(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, ok := c.snapshots[id]
	if !ok {
		return fmt.Errorf("unknown snapshot id %d", id)
	}

	c.state = snap.state.Copy()
	c.contracts = make(map[common.Address]vm.Contract, len(snap.contracts))
	for a, ct := range snap.contracts {
		c.contracts[a] = ct
	}
	c.clock.Restore(snap.time)
	c.blocks = c.blocks[:snap.nBlocks]
	c.events = c.events[:snap.nEvents]

	for sid := range c.snapshots {
		if sid >= id {
			delete(c.snapshots, sid)
		}
	}

	if c.Logger != nil {
		c.Logger.Infow("chain_reverted", "snapshot", id, "height", c.blocks[len(c.blocks)-1].Height)
	}
	return nil
}

// VerifySeal checks a block's BLS seal against this chain's sealer key.
func (c *Chain) VerifySeal(b Block) bool {
	return crypto.VerifySeal(c.sealer.Pubkey(), b.Hash[:], b.Seal)
}

// nextBlockTime picks the timestamp of the block being built and moves the
// clock there. Strictly greater than the previous block's timestamp.
func (c *Chain) nextBlockTime() int64 {
	last := c.blocks[len(c.blocks)-1].Time
	ts := c.clock.Unix()
	if ts <= last {
		ts = last + c.minBlockGap
	}
	c.clock.Restore(ts)
	return ts
}

// commit seals a block for an executed tx and publishes its events.
// Caller must hold c.mu.
func (c *Chain) commit(from, to common.Address, method string, value *big.Int, blockTime int64, events []vm.Event) *Receipt {
	parent := c.blocks[len(c.blocks)-1]
	note := fmt.Sprintf("%s@%s", method, to.Hex())

	b := Block{
		Height: parent.Height + 1,
		Parent: parent.Hash,
		Root:   c.state.Root(),
		Time:   blockTime,
		Note:   note,
	}
	b.Hash = HashOfBlock(b)
	b.Seal = c.sealer.Seal(b.Hash[:])
	c.blocks = append(c.blocks, b)

	rcpt := &Receipt{
		TxHash: txHash(b.Height, from, to, method, value),
		Height: b.Height,
		From:   from,
		To:     to,
		Method: method,
		Value:  new(big.Int).Set(value),
		Events: events,
	}

	for i, e := range events {
		c.events = append(c.events, e)
		if c.Store != nil {
			if err := c.Store.SaveEvent(b.Height, i, e); err != nil && c.Logger != nil {
				c.Logger.Warnw("event_persist_failed", "err", err)
			}
		}
		if c.OnEvent != nil {
			c.OnEvent(e)
		}
	}

	if c.Store != nil {
		if err := c.Store.SaveBlock(b); err != nil && c.Logger != nil {
			c.Logger.Warnw("block_persist_failed", "height", b.Height, "err", err)
		}
	}
	if c.Wal != nil {
		c.Wal.Append(fmt.Sprintf("h=%d t=%d %s from=%s value=%s", b.Height, b.Time, note, from.Hex(), value))
	}
	if c.Logger != nil {
		c.Logger.Infow("block_sealed", "height", b.Height, "time", b.Time, "note", note, "events", len(events))
	}

	return rcpt
}

func txHash(height uint64, from, to common.Address, method string, value *big.Int) common.Hash {
	h := sha256.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	h.Write(buf[:])
	h.Write(from[:])
	h.Write(to[:])
	h.Write([]byte(method))
	h.Write(value.Bytes())
	return common.Hash(sha256.Sum256(h.Sum(nil)))
}
