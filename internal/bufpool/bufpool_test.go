package bufpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturnsEmptyBuffer(t *testing.T) {
	b := Get()
	require.Len(t, *b, 0)
	Put(b)
}

func TestGrowPreservesExistingBytes(t *testing.T) {
	b := Get()
	*b = append(*b, []byte("hello")...)
	Grow(b, 1<<20)
	assert.Equal(t, "hello", string(*b))
	assert.GreaterOrEqual(t, cap(*b), 1<<20+5)
}

func TestPutDropsOversizedBuffer(t *testing.T) {
	big := make([]byte, 0, MaxBufferBytes+1)
	Put(&big) // must not panic; oversized buffers are simply dropped
}
