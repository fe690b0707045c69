package cache

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/lookout-vision/lookout/internal/detection"
)

type memoryEntry struct {
	result   *detection.Result
	storedAt time.Time
}

// Memory is the in-process cache tier. Expiry is lazy: entries older than
// the TTL are treated as absent on read and overwritten on the next write
// for their key. Sweep exists for memory hygiene under sustained load.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	clock   clock.Clock
}

// NewMemory constructs the tier. The clock is injectable so TTL behavior is
// testable without sleeping.
func NewMemory(ttl time.Duration, clk clock.Clock) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		clock:   clk,
	}
}

// Get returns a deep copy of the entry for key, or nil if absent or
// expired. Copying prevents callers from mutating the stored detections.
func (m *Memory) Get(key string) *detection.Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil
	}
	if m.clock.Since(entry.storedAt) > m.ttl {
		delete(m.entries, key)
		return nil
	}
	return entry.result.Clone()
}

// Put stores a copy of the result under key, overwriting any previous
// entry.
func (m *Memory) Put(key string, res *detection.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{result: res.Clone(), storedAt: m.clock.Now()}
}

// Sweep removes every expired entry and reports how many were dropped.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, entry := range m.entries {
		if m.clock.Since(entry.storedAt) > m.ttl {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the current entry count, expired entries included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
