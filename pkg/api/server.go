package api

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/uhyunpark/lockbox/pkg/chain"
	"github.com/uhyunpark/lockbox/pkg/chain/vm"
	"github.com/uhyunpark/lockbox/pkg/chain/vm/lock"
	"github.com/uhyunpark/lockbox/pkg/crypto"
)

// Server handles REST API and WebSocket connections
type Server struct {
	chain  *chain.Chain
	router *mux.Router
	hub    *Hub
	eip712 *crypto.EIP712Signer
	txLog  *os.File // Transaction log file

	// Used (lock, nonce) pairs; replay protection for signed withdraws.
	nonceMu    sync.Mutex
	usedNonces map[string]bool
}

// NewServer creates a new API server
func NewServer(c *chain.Chain) *Server {
	// Open transaction log file
	txLogPath := os.Getenv("TX_LOG_FILE")
	if txLogPath == "" {
		txLogPath = "data/transactions.log"
	}
	os.MkdirAll(filepath.Dir(txLogPath), 0755)

	txLog, err := os.OpenFile(txLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("[api] WARNING: failed to open tx log file %s: %v", txLogPath, err)
		txLog = nil // Continue without tx logging
	} else {
		log.Printf("[api] transaction log: %s", txLogPath)
	}

	s := &Server{
		chain:      c,
		router:     mux.NewRouter(),
		hub:        NewHub(),
		eip712:     crypto.NewEIP712Signer(crypto.DefaultDomain(c.ChainID())),
		txLog:      txLog,
		usedNonces: make(map[string]bool),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Chain endpoints
	api.HandleFunc("/chain/status", s.handleGetChainStatus).Methods("GET")

	// Account endpoints
	api.HandleFunc("/accounts/{address}/balance", s.handleGetBalance).Methods("GET")

	// Lock endpoints
	api.HandleFunc("/locks", s.handleDeployLock).Methods("POST")
	api.HandleFunc("/locks/{address}", s.handleGetLock).Methods("GET")
	api.HandleFunc("/locks/{address}/events", s.handleGetLockEvents).Methods("GET")
	api.HandleFunc("/locks/{address}/withdraw", s.handleWithdraw).Methods("POST")

	// Devnet control endpoints
	api.HandleFunc("/devnet/time", s.handleIncreaseTime).Methods("POST")
	api.HandleFunc("/devnet/balance", s.handleSetBalance).Methods("POST")
	api.HandleFunc("/devnet/snapshot", s.handleSnapshot).Methods("POST")
	api.HandleFunc("/devnet/revert", s.handleRevert).Methods("POST")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the fully wired HTTP handler, CORS included.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	go s.hub.Run()
	log.Printf("[api] server starting on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetChainStatus(w http.ResponseWriter, r *http.Request) {
	last := s.chain.LastBlock()
	respondJSON(w, ChainStatus{
		ChainID:   s.chain.ChainID(),
		Height:    last.Height,
		BlockTime: last.Time,
		Now:       s.chain.Now(),
		Contracts: s.chain.ContractCount(),
	})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddress(w, mux.Vars(r)["address"])
	if !ok {
		return
	}
	respondJSON(w, BalanceResponse{
		Address: addr.Hex(),
		Balance: s.chain.BalanceOf(addr).String(),
	})
}

func (s *Server) handleDeployLock(w http.ResponseWriter, r *http.Request) {
	var req DeployLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	deployer, ok := parseAddress(w, req.Deployer)
	if !ok {
		return
	}
	value, ok := new(big.Int).SetString(req.ValueWei, 10)
	if !ok || value.Sign() < 0 {
		respondError(w, http.StatusBadRequest, "invalid valueWei", req.ValueWei)
		return
	}

	addr, _, rcpt, err := s.chain.Deploy(deployer, value, lock.Constructor(req.UnlockTime))
	if err != nil {
		respondTxError(w, err)
		return
	}

	log.Printf("[api] lock deployed: addr=%s unlock=%d value=%s", addr.Hex(), req.UnlockTime, value)
	s.logTransaction("LOCK_DEPLOY", map[string]interface{}{
		"address":    addr.Hex(),
		"deployer":   deployer.Hex(),
		"unlockTime": req.UnlockTime,
		"value":      value.String(),
	})

	s.hub.BroadcastToChannel("blocks", BlockUpdate{
		Type:   "block",
		Height: rcpt.Height,
		Time:   s.chain.LastBlock().Time,
		Note:   "deploy",
	})

	respondJSON(w, DeployLockResponse{
		Status:  "deployed",
		Address: addr.Hex(),
		Height:  rcpt.Height,
		TxHash:  rcpt.TxHash.Hex(),
	})
}

func (s *Server) handleGetLock(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddress(w, mux.Vars(r)["address"])
	if !ok {
		return
	}
	if _, found := s.chain.Contract(addr); !found {
		respondError(w, http.StatusNotFound, "lock not found", addr.Hex())
		return
	}

	unlockTime, err := s.chain.StaticCall(addr, lock.MethodUnlockTime)
	if err != nil {
		respondTxError(w, err)
		return
	}
	owner, err := s.chain.StaticCall(addr, lock.MethodOwner)
	if err != nil {
		respondTxError(w, err)
		return
	}

	respondJSON(w, LockInfo{
		Address:    addr.Hex(),
		Owner:      owner.(common.Address).Hex(),
		UnlockTime: unlockTime.(int64),
		Balance:    s.chain.BalanceOf(addr).String(),
	})
}

func (s *Server) handleGetLockEvents(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddress(w, mux.Vars(r)["address"])
	if !ok {
		return
	}
	events := s.chain.EventsByContract(addr)
	out := make([]EventInfo, len(events))
	for i, e := range events {
		out[i] = EventInfo{Contract: e.Contract.Hex(), Name: e.Name, Args: e.Args}
	}
	respondJSON(w, out)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	lockAddr, ok := parseAddress(w, mux.Vars(r)["address"])
	if !ok {
		return
	}

	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	ownerAddr, ok := parseAddress(w, req.Owner)
	if !ok {
		return
	}
	nonce, ok := new(big.Int).SetString(req.Nonce, 10)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid nonce", req.Nonce)
		return
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(req.Signature, "0x"))
	if err != nil || len(sig) != 65 {
		respondError(w, http.StatusBadRequest, "invalid signature", "expected 65 hex bytes")
		return
	}
	if req.Deadline != 0 && req.Deadline < s.chain.Now() {
		respondError(w, http.StatusBadRequest, "request expired", fmt.Sprintf("deadline=%d now=%d", req.Deadline, s.chain.Now()))
		return
	}

	msg := &crypto.WithdrawEIP712{
		Lock:     lockAddr,
		Nonce:    nonce,
		Deadline: big.NewInt(req.Deadline),
		Owner:    ownerAddr,
	}
	signer, err := s.eip712.RecoverWithdrawSigner(msg, sig)
	if err != nil {
		respondError(w, http.StatusBadRequest, "signature recovery failed", err.Error())
		return
	}
	if signer != ownerAddr {
		respondError(w, http.StatusUnauthorized, "signature mismatch", fmt.Sprintf("recovered %s", signer.Hex()))
		return
	}

	nonceKey := lockAddr.Hex() + ":" + nonce.String()
	s.nonceMu.Lock()
	if s.usedNonces[nonceKey] {
		s.nonceMu.Unlock()
		respondError(w, http.StatusConflict, "nonce already used", nonceKey)
		return
	}
	s.usedNonces[nonceKey] = true
	s.nonceMu.Unlock()

	rcpt, err := s.chain.Call(signer, lockAddr, lock.MethodWithdraw, nil)
	if err != nil {
		// A failed tx does not consume the nonce
		s.nonceMu.Lock()
		delete(s.usedNonces, nonceKey)
		s.nonceMu.Unlock()
		respondTxError(w, err)
		return
	}

	log.Printf("[api] withdraw executed: lock=%s owner=%s height=%d", lockAddr.Hex(), signer.Hex(), rcpt.Height)
	s.logTransaction("LOCK_WITHDRAW", map[string]interface{}{
		"lock":   lockAddr.Hex(),
		"owner":  signer.Hex(),
		"nonce":  nonce.String(),
		"height": rcpt.Height,
	})

	out := make([]EventInfo, len(rcpt.Events))
	for i, e := range rcpt.Events {
		out[i] = EventInfo{Contract: e.Contract.Hex(), Name: e.Name, Args: e.Args}
	}
	respondJSON(w, WithdrawResponse{
		Status: "executed",
		Height: rcpt.Height,
		TxHash: rcpt.TxHash.Hex(),
		Events: out,
	})
}

// ==============================
// Devnet Control Handlers
// ==============================

func (s *Server) handleIncreaseTime(w http.ResponseWriter, r *http.Request) {
	var req IncreaseTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	switch {
	case req.To != 0:
		if err := s.chain.IncreaseTimeTo(req.To); err != nil {
			respondError(w, http.StatusBadRequest, "time travel rejected", err.Error())
			return
		}
	case req.Seconds > 0:
		s.chain.IncreaseTime(time.Duration(req.Seconds) * time.Second)
	default:
		respondError(w, http.StatusBadRequest, "nothing to do", "set seconds or to")
		return
	}

	respondJSON(w, map[string]int64{"now": s.chain.Now()})
}

func (s *Server) handleSetBalance(w http.ResponseWriter, r *http.Request) {
	var req SetBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	addr, ok := parseAddress(w, req.Address)
	if !ok {
		return
	}
	amount, ok := new(big.Int).SetString(req.BalanceWei, 10)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid balanceWei", req.BalanceWei)
		return
	}
	if err := s.chain.SetBalance(addr, amount); err != nil {
		respondError(w, http.StatusBadRequest, "balance injection failed", err.Error())
		return
	}
	respondJSON(w, BalanceResponse{Address: addr.Hex(), Balance: amount.String()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id := s.chain.Snapshot()
	log.Printf("[api] snapshot taken: id=%d", id)
	respondJSON(w, SnapshotResponse{ID: id})
}

func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	var req RevertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := s.chain.Revert(req.ID); err != nil {
		respondError(w, http.StatusBadRequest, "revert failed", err.Error())
		return
	}
	log.Printf("[api] reverted to snapshot %d", req.ID)
	respondJSON(w, map[string]uint64{"height": s.chain.Height()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast Methods
// ==============================

// BroadcastEvent pushes a contract event to subscribed WebSocket clients.
// Wire this to chain.OnEvent.
func (s *Server) BroadcastEvent(e vm.Event) {
	update := EventUpdate{
		Type:     "event",
		Contract: e.Contract.Hex(),
		Name:     e.Name,
		Args:     e.Args,
	}
	s.hub.BroadcastToChannel("events:"+strings.ToLower(e.Contract.Hex()), update)
}

// ==============================
// Helper Functions
// ==============================

func parseAddress(w http.ResponseWriter, raw string) (common.Address, bool) {
	if !common.IsHexAddress(raw) {
		respondError(w, http.StatusBadRequest, "invalid address", raw)
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}

// respondTxError maps contract reverts to 400 with the revert reason;
// everything else is a 500.
func respondTxError(w http.ResponseWriter, err error) {
	if vm.IsRevert(err) {
		respondError(w, http.StatusBadRequest, "execution reverted", vm.RevertReason(err))
		return
	}
	respondError(w, http.StatusInternalServerError, "transaction failed", err.Error())
}

// logTransaction writes a transaction event to the log file
func (s *Server) logTransaction(eventType string, data map[string]interface{}) {
	if s.txLog == nil {
		return // Logging disabled
	}

	entry := map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
		"event":     eventType,
		"data":      data,
	}
	jsonData, err := json.Marshal(entry)
	if err != nil {
		log.Printf("[api] failed to marshal tx log entry: %v", err)
		return
	}
	s.txLog.Write(jsonData)
	s.txLog.Write([]byte("\n"))
}
