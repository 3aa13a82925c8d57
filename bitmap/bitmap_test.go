package bitmap

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindAndSetIsFirstFit(t *testing.T) {
	assert := assert.New(t)
	b := New(32)

	assert.Equal(uint64(32), b.NumClear())

	n, ok := b.FindAndSet()
	assert.True(ok)
	assert.Equal(uint64(0), n, "allocation order must be reproducible: bit 0 first")

	b.Mark(5)
	n2, ok := b.FindAndSet()
	assert.True(ok)
	assert.Equal(uint64(1), n2)

	assert.Equal(uint64(29), b.NumClear())
}

func TestMarkClearTest(t *testing.T) {
	assert := assert.New(t)
	b := New(16)
	assert.False(b.Test(3))
	b.Mark(3)
	assert.True(b.Test(3))
	b.Clear(3)
	assert.False(b.Test(3))
}

func TestFindAndSetExhausted(t *testing.T) {
	assert := assert.New(t)
	b := New(8)
	for i := 0; i < 8; i++ {
		_, ok := b.FindAndSet()
		assert.True(ok)
	}
	_, ok := b.FindAndSet()
	assert.False(ok, "no space left")
	assert.Equal(uint64(0), b.NumClear())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	assert := assert.New(t)
	b := New(100)
	b.Mark(0)
	b.Mark(1)
	b.Mark(99)
	b.Mark(50)

	var buf bytes.Buffer
	assert.NoError(b.WriteBack(&buf))

	b2 := New(100)
	assert.NoError(b2.FetchFrom(&buf))

	for i := uint64(0); i < 100; i++ {
		assert.Equal(b.Test(i), b2.Test(i), "bit %d", i)
	}
}

func TestDecodeShortBuffer(t *testing.T) {
	_, err := Decode(100, make([]byte, 4))
	assert.Error(t, err)
}
