package api

// API request/response types for REST endpoints and WebSocket messages

// ==============================
// REST Response Types
// ==============================

// ChainStatus represents devnet chain status
type ChainStatus struct {
	ChainID   int64  `json:"chainId"`
	Height    uint64 `json:"height"`    // Last sealed block height
	BlockTime int64  `json:"blockTime"` // Last block timestamp (unix seconds)
	Now       int64  `json:"now"`       // Current simulated time (unix seconds)
	Contracts int    `json:"contracts"` // Deployed contract count
}

// BalanceResponse represents an account balance
type BalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"` // wei, decimal string
}

// LockInfo represents a deployed lock's state
type LockInfo struct {
	Address    string `json:"address"`
	Owner      string `json:"owner"`
	UnlockTime int64  `json:"unlockTime"` // unix seconds
	Balance    string `json:"balance"`    // wei, decimal string
}

// DeployLockResponse is the response from lock deployment
type DeployLockResponse struct {
	Status  string `json:"status"` // "deployed"
	Address string `json:"address"`
	Height  uint64 `json:"height"`
	TxHash  string `json:"txHash"`
}

// WithdrawResponse is the response from a withdraw submission
type WithdrawResponse struct {
	Status string      `json:"status"` // "executed"
	Height uint64      `json:"height"`
	TxHash string      `json:"txHash"`
	Events []EventInfo `json:"events"`
}

// EventInfo represents a contract event in API responses
type EventInfo struct {
	Contract string                 `json:"contract"`
	Name     string                 `json:"name"`
	Args     map[string]interface{} `json:"args"`
}

// SnapshotResponse is returned by the snapshot endpoint
type SnapshotResponse struct {
	ID int `json:"id"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// REST Request Types
// ==============================

// DeployLockRequest is the payload for POST /api/v1/locks
type DeployLockRequest struct {
	Deployer   string `json:"deployer"`   // Funding address
	UnlockTime int64  `json:"unlockTime"` // unix seconds, must be in the future
	ValueWei   string `json:"valueWei"`   // Amount to lock, decimal string
}

// WithdrawRequest is the payload for POST /api/v1/locks/{address}/withdraw.
// The caller identity is established by the EIP-712 signature, not trusted
// from the body.
type WithdrawRequest struct {
	Owner     string `json:"owner"`     // Claimed owner address
	Nonce     string `json:"nonce"`     // Replay protection, decimal string
	Deadline  int64  `json:"deadline"`  // unix seconds, 0 = no expiry
	Signature string `json:"signature"` // hex, 65 bytes
}

// IncreaseTimeRequest is the payload for POST /api/v1/devnet/time
type IncreaseTimeRequest struct {
	Seconds int64 `json:"seconds"` // advance by this many seconds
	To      int64 `json:"to"`      // or jump to this timestamp (wins if set)
}

// SetBalanceRequest is the payload for POST /api/v1/devnet/balance
type SetBalanceRequest struct {
	Address    string `json:"address"`
	BalanceWei string `json:"balanceWei"` // decimal string
}

// RevertRequest is the payload for POST /api/v1/devnet/revert
type RevertRequest struct {
	ID int `json:"id"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g., ["events:0x...", "blocks"]
}

// EventUpdate is broadcast when a contract emits an event
type EventUpdate struct {
	Type     string                 `json:"type"` // "event"
	Contract string                 `json:"contract"`
	Name     string                 `json:"name"`
	Args     map[string]interface{} `json:"args"`
}

// BlockUpdate is broadcast when a block is sealed
type BlockUpdate struct {
	Type   string `json:"type"` // "block"
	Height uint64 `json:"height"`
	Time   int64  `json:"time"`
	Note   string `json:"note"`
}
