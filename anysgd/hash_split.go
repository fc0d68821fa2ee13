package anysgd

import (
	"encoding/binary"
	"math"
)

// A Hasher is a SampleList with the added capability to
// produce a hash for a given sample.
//
// Hashes should depend only on the identity of a sample,
// so that the same sample always lands on the same side of
// a HashSplit.
type Hasher interface {
	SampleList
	Hash(i int) []byte
}

// HashSplit partitions a Hasher.
// It is used to deterministically split data up into
// separate validation and training samples.
//
// A sample goes to the left partition if the first eight
// bytes of its hash, read as a big-endian fraction of
// 2^64, are below leftRatio.
//
// The Hasher h is re-ordered in place.
func HashSplit(h Hasher, leftRatio float64) (left, right SampleList) {
	if leftRatio <= 0 {
		return h.Slice(0, 0), h
	} else if leftRatio >= 1 {
		return h, h.Slice(0, 0)
	}
	cutoff := uint64(leftRatio * math.MaxUint64)
	var numLeft int
	for i := 0; i < h.Len(); i++ {
		if hashPrefix(h.Hash(i)) < cutoff {
			h.Swap(numLeft, i)
			numLeft++
		}
	}
	return h.Slice(0, numLeft), h.Slice(numLeft, h.Len())
}

func hashPrefix(hash []byte) uint64 {
	var buf [8]byte
	copy(buf[:], hash)
	return binary.BigEndian.Uint64(buf[:])
}
