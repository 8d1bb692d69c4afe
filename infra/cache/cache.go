package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mdubois44/chargeplan/infra/logger"
)

// DefaultTTL applies to entries stored through Set.
const DefaultTTL = time.Hour

// FileCache persists JSON values under a directory with per-entry expiry.
// It keeps repeated scenario fetches from hammering the upstream API across
// CLI invocations.
type FileCache struct {
	dir string
	ttl time.Duration
	log logger.Logger
}

type entry struct {
	Value      json.RawMessage `json:"value"`
	Timestamp  time.Time       `json:"timestamp"`
	TTLSeconds float64         `json:"ttl"`
}

// New creates the cache directory if needed. A non-positive ttl falls back to
// DefaultTTL.
func New(dir string, ttl time.Duration) (*FileCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileCache{dir: dir, ttl: ttl, log: logger.New("file-cache")}, nil
}

var keySanitizer = strings.NewReplacer("/", "_", "\\", "_")

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, keySanitizer.Replace(key)+".json")
}

// Get unmarshals the cached value for key into out. It reports whether a
// fresh entry was found; expired or unreadable entries are removed and count
// as a miss.
func (c *FileCache) Get(key string, out any) (bool, error) {
	path := c.path(key)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cache entry: %w", err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.log.Warnf("dropping corrupt cache entry %s: %v", key, err)
		return false, os.Remove(path)
	}
	if time.Since(e.Timestamp) > time.Duration(e.TTLSeconds*float64(time.Second)) {
		c.log.Debugf("cache entry %s expired", key)
		return false, os.Remove(path)
	}
	if err := json.Unmarshal(e.Value, out); err != nil {
		return false, fmt.Errorf("decode cache entry: %w", err)
	}
	return true, nil
}

// Set stores the value under key with the cache's default TTL.
func (c *FileCache) Set(key string, value any) error {
	return c.SetTTL(key, value, c.ttl)
}

// SetTTL stores the value under key with an explicit TTL.
func (c *FileCache) SetTTL(key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	e := entry{Value: raw, Timestamp: time.Now(), TTLSeconds: ttl.Seconds()}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return os.WriteFile(c.path(key), data, 0o644)
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (c *FileCache) Delete(key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Exists reports whether a fresh entry is present for key.
func (c *FileCache) Exists(key string) bool {
	var ignored json.RawMessage
	ok, err := c.Get(key, &ignored)
	return err == nil && ok
}

// Clear removes every entry in the cache directory.
func (c *FileCache) Clear() error {
	matches, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
