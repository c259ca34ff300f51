package params

import (
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Chain struct {
	// ChainID is used as the EIP-712 signing domain. 1337 = local devnet.
	ChainID int64

	// GenesisAccounts are pre-funded with GenesisBalance wei at boot.
	GenesisAccounts []string

	// GenesisBalance is the initial balance (wei) of each genesis account.
	GenesisBalance *big.Int

	// SealerSeed seeds the devnet BLS block sealer. Deterministic on purpose:
	// a devnet must produce the same seals across restarts.
	SealerSeed string
}

type Node struct {
	// DataDir holds the Pebble database and the tx WAL. Empty = in-memory only.
	DataDir string

	APIAddr string
	LogFile string

	// MinBlockTime is the minimum simulated-time gap between two block
	// timestamps when no explicit time control call happened in between.
	// Keeps block times strictly increasing on the devnet.
	MinBlockTime time.Duration
}

type Config struct {
	Chain Chain
	Node  Node
}

func Default() Config {
	return Config{
		Chain: Chain{
			ChainID: 1337,
			GenesisAccounts: []string{
				"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
				"0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
			},
			GenesisBalance: new(big.Int).Mul(big.NewInt(10000), big.NewInt(1e18)), // 10,000 ether
			SealerSeed:     "lockbox-devnet-sealer-0",
		},
		Node: Node{
			DataDir:      "",
			APIAddr:      ":8080",
			LogFile:      "data/node.log",
			MinBlockTime: time.Second,
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if id := os.Getenv("CHAIN_ID"); id != "" {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			cfg.Chain.ChainID = n
		}
	}

	// Comma-separated 0x addresses
	if accs := os.Getenv("GENESIS_ACCOUNTS"); accs != "" {
		cfg.Chain.GenesisAccounts = strings.Split(accs, ",")
	}

	if bal := os.Getenv("GENESIS_BALANCE_WEI"); bal != "" {
		if v, ok := new(big.Int).SetString(bal, 10); ok {
			cfg.Chain.GenesisBalance = v
		}
	}

	if seed := os.Getenv("SEALER_SEED"); seed != "" {
		cfg.Chain.SealerSeed = seed
	}

	if dir := os.Getenv("DATA_DIR"); dir != "" {
		cfg.Node.DataDir = dir
	}

	if addr := os.Getenv("API_ADDR"); addr != "" {
		cfg.Node.APIAddr = addr
	}

	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		cfg.Node.LogFile = logFile
	}

	if minBlock := os.Getenv("NODE_MIN_BLOCK_TIME_MS"); minBlock != "" {
		if ms, err := strconv.Atoi(minBlock); err == nil {
			cfg.Node.MinBlockTime = time.Duration(ms) * time.Millisecond
		}
	}

	return cfg
}
