package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/lockbox/pkg/crypto"
)

// Payload mirrors the body of POST /api/v1/locks/{address}/withdraw.
type Payload struct {
	Owner     string `json:"owner"`
	Nonce     string `json:"nonce"`
	Deadline  int64  `json:"deadline"`
	Signature string `json:"signature"`
}

func main() {
	var (
		lockHex  = flag.String("lock", "", "lock contract address (0x...)")
		keyHex   = flag.String("key", "", "private key hex (omit to generate a fresh key)")
		nonce    = flag.Int64("nonce", 1, "withdraw nonce")
		deadline = flag.Int64("deadline", 0, "unix deadline, 0 = no expiry")
		chainID  = flag.Int64("chain-id", 1337, "EIP-712 signing domain chain id")
	)
	flag.Parse()

	if *lockHex == "" || !common.IsHexAddress(*lockHex) {
		fmt.Fprintln(os.Stderr, "usage: sign-withdraw -lock 0x... [-key <hex>] [-nonce N] [-deadline TS]")
		os.Exit(2)
	}

	// Step 1: Generate or load key
	var signer *crypto.Signer
	var err error
	if *keyHex == "" {
		fmt.Println("Generating new keypair...")
		signer, err = crypto.GenerateKey()
	} else {
		signer, err = crypto.FromPrivateKeyHex(*keyHex)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Address: %s\n", signer.Address().Hex())
	if *keyHex == "" {
		fmt.Printf("Private Key: %s (KEEP SECRET!)\n", signer.PrivateKeyHex())
	}

	// Sanity check: the geth-derived address and the raw EIP-55 derivation
	// from the uncompressed pubkey must agree.
	checksummed := crypto.AddressFromUncompressedPub(signer.PublicKeyBytes())
	if checksummed != signer.Address().Hex() {
		fmt.Printf("Error: address derivation mismatch: %s vs %s\n", checksummed, signer.Address().Hex())
		os.Exit(1)
	}
	fmt.Printf("EIP-55: %s\n\n", checksummed)

	// Step 2: Build the withdraw message
	msg := &crypto.WithdrawEIP712{
		Lock:     common.HexToAddress(*lockHex),
		Nonce:    big.NewInt(*nonce),
		Deadline: big.NewInt(*deadline),
		Owner:    signer.Address(),
	}

	fmt.Println("Withdraw Details:")
	fmt.Printf("  Lock: %s\n", msg.Lock.Hex())
	fmt.Printf("  Nonce: %s\n", msg.Nonce.String())
	fmt.Printf("  Deadline: %s\n", msg.Deadline.String())
	fmt.Printf("  Owner: %s\n\n", msg.Owner.Hex())

	// Step 3: Sign with EIP-712
	eip712 := crypto.NewEIP712Signer(crypto.DefaultDomain(*chainID))
	signature, err := eip712.SignWithdraw(signer, msg)
	if err != nil {
		fmt.Printf("Error signing: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Signature: 0x%x\n\n", signature)

	// Step 4: Verify before printing the payload
	fmt.Println("Verifying signature...")
	valid, err := eip712.VerifyWithdrawSignature(msg, signature)
	if err != nil {
		fmt.Printf("Error verifying: %v\n", err)
		os.Exit(1)
	}
	if !valid {
		fmt.Println("✗ Signature INVALID")
		os.Exit(1)
	}
	fmt.Println("✓ Signature VALID")

	// Step 5: Emit the ready-to-submit request body
	payload := Payload{
		Owner:     signer.Address().Hex(),
		Nonce:     msg.Nonce.String(),
		Deadline:  *deadline,
		Signature: fmt.Sprintf("0x%x", signature),
	}
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nTo withdraw from this lock:")
	fmt.Printf("  POST http://localhost:8080/api/v1/locks/%s/withdraw\n", msg.Lock.Hex())
	fmt.Println("  Content-Type: application/json")
	fmt.Println("  Body:")
	fmt.Println(string(body))
}
