package crypto

import (
	bls "github.com/cloudflare/circl/sign/bls"
)

type scheme = bls.KeyG1SigG2

type BLSPubKey = bls.PublicKey[scheme]

// Sealer signs committed devnet blocks. A single-sealer devnet still seals
// every block so that a reloaded chain can verify it is reading its own
// history and not a foreign or corrupted database.
type Sealer struct {
	sk *bls.PrivateKey[scheme]
	pk *BLSPubKey
}

// NewSealerFromSeed derives a deterministic sealer key from seed.
// The devnet uses a fixed seed so seals are reproducible across restarts.
func NewSealerFromSeed(seed []byte) *Sealer {
	// KeyGen wants >= 32 bytes of IKM
	ikm := make([]byte, 32)
	copy(ikm, seed)
	sk, _ := bls.KeyGen[scheme](ikm, nil, nil)
	pk := sk.PublicKey()
	return &Sealer{sk: sk, pk: pk}
}

func (s *Sealer) Pubkey() *BLSPubKey { return s.pk }

// Seal signs a block hash.
func (s *Sealer) Seal(blockHash []byte) []byte {
	return bls.Sign(s.sk, blockHash)
}

// VerifySeal checks a block seal against the sealer's public key.
func VerifySeal(pk *BLSPubKey, blockHash, seal []byte) bool {
	if len(seal) == 0 {
		return false
	}
	return bls.Verify(pk, blockHash, bls.Signature(seal))
}
