package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Cache memoises ingestion results by file content and password. Entries
// live until Clear.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Result
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Result)}
}

// Key hashes the file bytes and password, separated by a NUL byte.
func Key(data []byte, password string) string {
	h := sha256.New()
	h.Write(data)
	h.Write([]byte{0})
	h.Write([]byte(password))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) Get(key string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[key]
	return r, ok
}

func (c *Cache) Put(key string, r *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = r
}

// Clear drops every entry and reports how many there were.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]*Result)
	return n
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
