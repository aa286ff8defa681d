package utils

import (
	"github.com/bits-and-blooms/bitset"
)

// BloomHashFunc hashes the first len(data) bytes for iteration iter into
// [0, size).
type BloomHashFunc func(data []byte, iter uint8, size uint32) uint32

// BloomFilter is a fixed-size bit-array filter with a configurable number of
// hash iterations. Test may report false positives, never false negatives.
type BloomFilter struct {
	bits  *bitset.BitSet
	size  uint32
	iters uint8
	hash  BloomHashFunc
}

// NewBloomFilter creates a filter with size bits and iters hash iterations.
// Returns nil when size or iters is zero or no hash function is given.
func NewBloomFilter(size uint32, iters uint8, hash BloomHashFunc) *BloomFilter {
	if size == 0 || iters == 0 || hash == nil {
		return nil
	}
	return &BloomFilter{
		bits:  bitset.New(uint(size)),
		size:  size,
		iters: iters,
		hash:  hash,
	}
}

// Add records data in the filter.
func (bf *BloomFilter) Add(data []byte) {
	for i := uint8(0); i < bf.iters; i++ {
		bf.bits.Set(uint(bf.hash(data, i, bf.size)))
	}
}

// Test reports whether data may have been added. A false result is
// authoritative.
func (bf *BloomFilter) Test(data []byte) bool {
	for i := uint8(0); i < bf.iters; i++ {
		if !bf.bits.Test(uint(bf.hash(data, i, bf.size))) {
			return false
		}
	}
	return true
}

// MemorySize returns the size of the bitmap in bytes.
func (bf *BloomFilter) MemorySize() uint32 {
	return bf.size / 8
}
