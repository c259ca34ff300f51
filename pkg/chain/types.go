package chain

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/lockbox/pkg/chain/vm"
)

// Block is a sealed devnet block. The devnet seals exactly one transaction
// per block, so Note carries a short human-readable tx descriptor instead of
// a payload ("deploy:0x...", "call:withdraw@0x...").
type Block struct {
	Height uint64
	Parent common.Hash
	Root   common.Hash // state root after executing this block
	Time   int64       // unix seconds (simulated)
	Note   string
	Hash   common.Hash
	Seal   []byte // BLS seal over Hash
}

// Receipt is the result of a successful transaction. Reverted transactions
// produce no receipt and no block: the chain returns the revert error and
// leaves no trace in state.
type Receipt struct {
	TxHash common.Hash    `json:"txHash"`
	Height uint64         `json:"height"`
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Method string         `json:"method"`
	Value  *big.Int       `json:"value"`
	Events []vm.Event     `json:"events"`
}

// HashOfBlock commits to everything except the seal, which signs this hash.
func HashOfBlock(b Block) common.Hash {
	h := sha256.New()

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], b.Height)
	h.Write(buf[:])

	h.Write(b.Parent[:])
	h.Write(b.Root[:])

	binary.BigEndian.PutUint64(buf[:], uint64(b.Time))
	h.Write(buf[:])

	h.Write([]byte(b.Note))

	return common.Hash(sha256.Sum256(h.Sum(nil)))
}

// ---- Storage/WAL interfaces (impl in pkg/storage) ----

type BlockStore interface {
	SaveBlock(b Block) error
	GetBlock(height uint64) (Block, bool)
	LastHeight() (uint64, bool)
	SaveEvent(height uint64, idx int, e vm.Event) error
	EventsByContract(addr common.Address, limit int) ([]vm.Event, error)
}

type WAL interface {
	Append(line string)
}
