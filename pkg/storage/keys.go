package storage

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// Key layout:
//
//	b:<8-byte height>                 -> gob(Block)
//	e:<20-byte addr><8-byte height><4-byte idx> -> json(Event)
//	lh                               -> 8-byte last height

func kBlock(height uint64) []byte {
	return append([]byte("b:"), heightKey(height)...)
}

func kLastHeight() []byte { return []byte("lh") }

func kEvent(addr common.Address, height uint64, idx int) []byte {
	k := eventPrefix(addr)
	k = append(k, heightKey(height)...)
	var ib [4]byte
	binary.BigEndian.PutUint32(ib[:], uint32(idx))
	return append(k, ib[:]...)
}

func eventPrefix(addr common.Address) []byte {
	return append([]byte("e:"), addr[:]...)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil // prefix is all 0xff
}
