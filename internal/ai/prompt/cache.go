package prompt

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// Cache memoizes compiled prompts. Keys include the config version, so a
// config update naturally invalidates every prior entry without coordination.
// Entries are immutable once written. The cache is unbounded; compiled
// prompts are small relative to model traffic, but long-running deployments
// with highly varied requests should watch its growth.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewCache() *Cache {
	return &Cache{entries: map[string]string{}}
}

// Key fingerprints one compilation: config version plus a hash of the user
// request and the optional inputs.
func (c *Cache) Key(version int, userRequest string, opts Options) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d\x00%s\x00%s\x00%v", version, userRequest, opts.ExistingFileContent, opts.Theme)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *Cache) Put(key, compiled string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = compiled
}

// Len reports the number of cached prompts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
