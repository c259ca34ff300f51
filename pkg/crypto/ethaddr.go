package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// AddressFromUncompressedPub derives the EIP-55 checksummed address string
// from a 65-byte uncompressed secp256k1 public key (0x04 || X || Y).
// Used as an independent cross-check against the geth derivation; the two
// must always agree. Returns "" on malformed input.
func AddressFromUncompressedPub(pub []byte) string {
	if len(pub) != 65 || pub[0] != 0x04 {
		return ""
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(pub[1:])
	sum := h.Sum(nil)
	// address = last 20 bytes of keccak256(X || Y)
	return EIP55(sum[12:])
}

// EIP55 renders a 20-byte address as "0x"-prefixed hex with the EIP-55
// mixed-case checksum: a hex letter is uppercased when the matching nibble
// of keccak256(lowercase hex) is >= 8.
func EIP55(addr20 []byte) string {
	lower := hex.EncodeToString(addr20)

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	hash := h.Sum(nil)

	out := make([]byte, 2, 2+len(lower))
	out[0], out[1] = '0', 'x'
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if c >= 'a' && c <= 'f' {
			nibble := hash[i/2] >> 4
			if i%2 == 1 {
				nibble = hash[i/2] & 0x0f
			}
			if nibble >= 8 {
				c -= 'a' - 'A'
			}
		}
		out = append(out, c)
	}
	return string(out)
}
