package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/lookout-vision/lookout/internal/detection"
)

// Disk is the durable cache tier: one JSON file per key, named by the key
// itself. Validity is presence plus mtime within the TTL; a stale or
// corrupt file is a miss and gets overwritten on the next write.
type Disk struct {
	dir   string
	ttl   time.Duration
	clock clock.Clock
}

// NewDisk constructs the tier, creating the directory if needed.
func NewDisk(dir string, ttl time.Duration, clk clock.Clock) (*Disk, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.New()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Disk{dir: dir, ttl: ttl, clock: clk}, nil
}

func (d *Disk) path(key string) string {
	return filepath.Join(d.dir, key+".json")
}

// Get returns the stored result for key, nil on miss. A file that fails to
// deserialize is reported as an error so the composite tier can log it, but
// semantically it is still a miss.
func (d *Disk) Get(key string) (*detection.Result, error) {
	path := d.path(key)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if d.clock.Since(info.ModTime()) > d.ttl {
		return nil, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is derived from a hex digest under the cache dir
	if err != nil {
		return nil, err
	}
	res, err := detection.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	return res, nil
}

// Put writes the serialized result for key, replacing any existing file.
func (d *Disk) Put(key string, res *detection.Result) error {
	data, err := res.Marshal()
	if err != nil {
		return fmt.Errorf("failed to serialize cache entry: %w", err)
	}
	return os.WriteFile(d.path(key), data, 0o600)
}

// Evict removes the entry for key if present.
func (d *Disk) Evict(key string) error {
	err := os.Remove(d.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
