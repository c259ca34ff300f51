package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/lockbox/params"
	"github.com/uhyunpark/lockbox/pkg/api"
	"github.com/uhyunpark/lockbox/pkg/chain"
	"github.com/uhyunpark/lockbox/pkg/storage"
	"github.com/uhyunpark/lockbox/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	// Setup logging (write to both console and file)
	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	// ---- Chain ----
	var genesis []common.Address
	for _, a := range cfg.Chain.GenesisAccounts {
		if !common.IsHexAddress(a) {
			sugar.Fatalw("invalid_genesis_account", "addr", a)
		}
		genesis = append(genesis, common.HexToAddress(a))
	}

	minGap := int64(cfg.Node.MinBlockTime / time.Second)
	if minGap < 1 {
		minGap = 1
	}

	c := chain.New(chain.Config{
		ChainID:         cfg.Chain.ChainID,
		GenesisAccounts: genesis,
		GenesisBalance:  cfg.Chain.GenesisBalance,
		SealerSeed:      cfg.Chain.SealerSeed,
		MinBlockGap:     minGap,
	})
	c.Logger = sugar

	// ---- Storage (optional, DATA_DIR controlled) ----
	if cfg.Node.DataDir != "" {
		store, err := storage.NewPebbleStore(filepath.Join(cfg.Node.DataDir, "pebble"))
		if err != nil {
			sugar.Fatalw("pebble_open_failed", "err", err)
		}
		defer store.Close()

		wal, err := storage.NewFileWAL(filepath.Join(cfg.Node.DataDir, "chain.wal"))
		if err != nil {
			sugar.Fatalw("wal_open_failed", "err", err)
		}
		defer wal.Close()

		c.Store = store
		c.Wal = wal
		sugar.Infow("storage_enabled", "data_dir", cfg.Node.DataDir)
	} else {
		c.Store = storage.NewInMemoryBlockStore()
		c.Wal = storage.NewNopWAL()
		sugar.Info("storage_in_memory - set DATA_DIR to persist")
	}

	sugar.Infow("chain_booted",
		"chain_id", c.ChainID(),
		"genesis_accounts", len(genesis),
		"genesis_balance", cfg.Chain.GenesisBalance.String(),
		"time", c.Now())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- API Server ----
	apiServer := api.NewServer(c)

	// Push contract events to WebSocket subscribers as blocks seal
	c.OnEvent = apiServer.BroadcastEvent

	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.Node.APIAddr)
		if err := apiServer.Start(cfg.Node.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	// Progress logging loop
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	var lastLogged uint64
	for {
		select {
		case <-ctx.Done():
			sugar.Infow("node_stopping", "height", c.Height())
			return
		case <-ticker.C:
			h := c.Height()
			if h != lastLogged {
				sugar.Infow("chain_progress", "height", h, "time", c.Now(), "contracts", c.ContractCount())
				lastLogged = h
			}
		}
	}
}
