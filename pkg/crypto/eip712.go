package crypto

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// EIP712Domain represents the domain separator for EIP-712 typed data
// This prevents replay attacks across different chains/contracts
type EIP712Domain struct {
	Name              string         // Protocol name ("Lockbox")
	Version           string         // Protocol version ("1")
	ChainID           *big.Int       // Chain ID (1337 for local devnet)
	VerifyingContract common.Address // Contract address (or zero for off-chain)
}

// WithdrawEIP712 is the typed data a lock owner signs to authorize a withdraw
// submitted over the API. The node recovers the signer and uses it as the
// on-chain caller, so the contract's ownership check still applies.
type WithdrawEIP712 struct {
	Lock     common.Address // Lock contract address
	Nonce    *big.Int       // Caller nonce for replay protection
	Deadline *big.Int       // Expiration timestamp (unix seconds), 0 = no expiry
	Owner    common.Address // Claimed owner address
}

// EIP712Signer handles EIP-712 typed data hashing for withdraw requests
type EIP712Signer struct {
	domain EIP712Domain
}

// NewEIP712Signer creates a new EIP-712 signer with given domain
func NewEIP712Signer(domain EIP712Domain) *EIP712Signer {
	return &EIP712Signer{domain: domain}
}

// DefaultDomain returns the default EIP-712 domain for Lockbox
func DefaultDomain(chainID int64) EIP712Domain {
	return EIP712Domain{
		Name:              "Lockbox",
		Version:           "1",
		ChainID:           big.NewInt(chainID),
		VerifyingContract: common.Address{}, // Zero address for off-chain signing
	}
}

// HashWithdraw hashes a withdraw request according to EIP-712 spec
// Returns the digest that should be signed
func (e *EIP712Signer) HashWithdraw(w *WithdrawEIP712) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Withdraw": []apitypes.Type{
				{Name: "lock", Type: "address"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
				{Name: "owner", Type: "address"},
			},
		},
		PrimaryType: "Withdraw",
		Domain: apitypes.TypedDataDomain{
			Name:              e.domain.Name,
			Version:           e.domain.Version,
			ChainId:           (*math.HexOrDecimal256)(e.domain.ChainID),
			VerifyingContract: e.domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"lock":     w.Lock.Hex(),
			"nonce":    w.Nonce.String(),
			"deadline": w.Deadline.String(),
			"owner":    w.Owner.Hex(),
		},
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	typedDataHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}

	// Final digest: keccak256("\x19\x01" || domainSeparator || typedDataHash)
	rawData := []byte(fmt.Sprintf("\x19\x01%s%s", string(domainSeparator), string(typedDataHash)))
	digest := crypto.Keccak256Hash(rawData)

	return digest.Bytes(), nil
}

// SignWithdraw signs a withdraw request and returns the signature
func (e *EIP712Signer) SignWithdraw(signer *Signer, w *WithdrawEIP712) ([]byte, error) {
	hash, err := e.HashWithdraw(w)
	if err != nil {
		return nil, fmt.Errorf("failed to hash withdraw: %w", err)
	}

	signature, err := signer.Sign(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to sign withdraw: %w", err)
	}

	return signature, nil
}

// RecoverWithdrawSigner recovers the address that signed a withdraw request
func (e *EIP712Signer) RecoverWithdrawSigner(w *WithdrawEIP712, signature []byte) (common.Address, error) {
	hash, err := e.HashWithdraw(w)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to hash withdraw: %w", err)
	}

	return RecoverAddress(hash, signature)
}

// VerifyWithdrawSignature verifies that a withdraw signature matches the
// claimed owner
func (e *EIP712Signer) VerifyWithdrawSignature(w *WithdrawEIP712, signature []byte) (bool, error) {
	recovered, err := e.RecoverWithdrawSigner(w, signature)
	if err != nil {
		return false, err
	}
	return recovered == w.Owner, nil
}
