package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	data := []byte("statement bytes")

	assert.Equal(t, Key(data, "pw"), Key(data, "pw"))
	assert.NotEqual(t, Key(data, "pw"), Key(data, "other"))
	assert.NotEqual(t, Key(data, ""), Key([]byte("other"), ""))
	// the separator keeps content and password from running together
	assert.NotEqual(t, Key([]byte("ab"), "c"), Key([]byte("a"), "bc"))
	assert.Len(t, Key(data, ""), 64)
}

func TestCache(t *testing.T) {
	c := NewCache()
	k := Key([]byte("x"), "")

	_, ok := c.Get(k)
	assert.False(t, ok)

	r := &Result{FileName: "x.pdf", Chunks: 3}
	c.Put(k, r)
	got, ok := c.Get(k)
	assert.True(t, ok)
	assert.Same(t, r, got)
	assert.Equal(t, 1, c.Len())

	assert.Equal(t, 1, c.Clear())
	_, ok = c.Get(k)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}
