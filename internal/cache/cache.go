// Package cache stores detection results keyed by image content. Keys hash
// the raw image bytes plus the backend name, never the file path: identical
// content at two paths must hit, changed content at one path must miss, and
// the same image through two backends must never collide.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/lookout-vision/lookout/internal/detection"
)

// DefaultTTL is how long entries stay valid.
const DefaultTTL = time.Hour

// Key derives the content-addressed cache key for image bytes processed by
// the named backend.
func Key(imageData []byte, backendName string) string {
	sum := sha256.Sum256(imageData)
	return hex.EncodeToString(sum[:]) + "-" + backendName
}

// Cache is the two-tier composite: an in-process map checked first, backed
// by an optional durable filesystem tier. Disk hits are promoted back into
// memory. Safe for concurrent use.
type Cache struct {
	memory *Memory
	disk   *Disk
}

// New builds a cache with the given tiers. disk may be nil for a
// memory-only configuration.
func New(memory *Memory, disk *Disk) *Cache {
	return &Cache{memory: memory, disk: disk}
}

// NewDefault builds a memory-only cache with DefaultTTL and the wall clock.
func NewDefault() *Cache {
	return New(NewMemory(DefaultTTL, clock.New()), nil)
}

// Get returns the cached result for the image/backend pair, or nil on miss.
// Any durable-tier failure degrades to a miss; caching is a performance
// optimization, never a correctness dependency.
func (c *Cache) Get(imageData []byte, backendName string) *detection.Result {
	key := Key(imageData, backendName)

	if res := c.memory.Get(key); res != nil {
		return res
	}
	if c.disk == nil {
		return nil
	}

	res, err := c.disk.Get(key)
	if err != nil {
		slog.Warn("durable cache read failed, treating as miss", "key", key, "error", err)
		return nil
	}
	if res == nil {
		return nil
	}
	// Promote so the next lookup stays in-process.
	c.memory.Put(key, res)
	return res
}

// Put stores a result in both tiers. Durable-tier write failures are logged
// and otherwise ignored for the same reason Get degrades to a miss.
func (c *Cache) Put(imageData []byte, backendName string, res *detection.Result) {
	key := Key(imageData, backendName)
	c.memory.Put(key, res)
	if c.disk == nil {
		return
	}
	if err := c.disk.Put(key, res); err != nil {
		slog.Warn("durable cache write failed", "key", key, "error", err)
	}
}
