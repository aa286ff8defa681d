package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHash(data []byte, iter uint8, size uint32) uint32 {
	h := uint32(Lower(data[0]))
	for i := 1; i < len(data); i++ {
		h += uint32(Lower(data[i])) ^ uint32(i)
	}
	h <<= iter + 1
	return h % size
}

func TestBloomFilterNoFalseNegatives(t *testing.T) {
	bf := NewBloomFilter(1024, 2, testHash)
	require.NotNil(t, bf)

	var added [][]byte
	for i := 0; i < 100; i++ {
		added = append(added, []byte(fmt.Sprintf("entry-%03d", i)))
	}
	for _, e := range added {
		bf.Add(e)
	}
	for _, e := range added {
		assert.True(t, bf.Test(e), "%s", e)
	}
}

func TestBloomFilterMisses(t *testing.T) {
	bf := NewBloomFilter(4096, 2, testHash)
	bf.Add([]byte("alpha"))
	bf.Add([]byte("beta"))

	misses := 0
	for i := 0; i < 100; i++ {
		if !bf.Test([]byte(fmt.Sprintf("unrelated-%03d", i))) {
			misses++
		}
	}
	// a sparse filter must reject the overwhelming majority
	assert.Greater(t, misses, 90)
}

func TestBloomFilterCaseFolding(t *testing.T) {
	bf := NewBloomFilter(1024, 2, testHash)
	bf.Add([]byte("pattern"))
	// the hash folds case, so the uppercase form probes the same bits
	assert.True(t, bf.Test([]byte("PATTERN")))
}

func TestBloomFilterInvalidParams(t *testing.T) {
	assert.Nil(t, NewBloomFilter(0, 2, testHash))
	assert.Nil(t, NewBloomFilter(1024, 0, testHash))
	assert.Nil(t, NewBloomFilter(1024, 2, nil))
}

func TestBloomFilterMemorySize(t *testing.T) {
	bf := NewBloomFilter(1024, 2, testHash)
	assert.Equal(t, uint32(128), bf.MemorySize())
}
