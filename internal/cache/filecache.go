// Package cache keeps JSON snapshots on disk that expire after a fixed age.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTTL is how long a snapshot stays fresh
const DefaultTTL = 24 * time.Hour

type snapshot struct {
	CachedAt time.Time       `json:"cached_at"`
	Data     json.RawMessage `json:"data"`
}

// FileCache stores one snapshot file per key under dir. A mutex serialises
// regeneration within the process and writes are renamed into place so a
// reader never sees a partial file.
type FileCache struct {
	dir    string
	ttl    time.Duration
	logger *zap.Logger
	mu     sync.Mutex
	now    func() time.Time
}

// New creates the cache directory if needed
func New(dir string, ttl time.Duration, logger *zap.Logger) (*FileCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &FileCache{dir: dir, ttl: ttl, logger: logger, now: time.Now}, nil
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, key+"_cache.json")
}

// read returns the snapshot data when present and fresh
func (c *FileCache) read(key string) (json.RawMessage, bool) {
	raw, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil || snap.CachedAt.IsZero() {
		return nil, false
	}
	if !c.now().Before(snap.CachedAt.Add(c.ttl)) {
		return nil, false
	}
	return snap.Data, true
}

func (c *FileCache) write(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache data: %w", err)
	}
	body, err := json.MarshalIndent(snapshot{CachedAt: c.now().UTC(), Data: data}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// Delete removes the snapshot for key. A missing snapshot is not an error.
func (c *FileCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// Load returns the fresh snapshot for key, or calls load, stores its result
// and returns it. A snapshot that cannot be written is logged and the loaded
// value is still returned.
func Load[T any](c *FileCache, key string, load func() (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if data, ok := c.read(key); ok {
		var cached T
		if json.Unmarshal(data, &cached) == nil {
			c.logger.Debug("cache hit", zap.String("key", key))
			return cached, nil
		}
	}

	value, err := load()
	if err != nil {
		return value, err
	}
	if err := c.write(key, value); err != nil {
		c.logger.Warn("failed to save cache", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}
