package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// DefaultTTL bounds how long a snapshot counts as fresh.
const DefaultTTL = 5 * time.Minute

var bucketCollections = []byte("collections")

// entry is the persisted shape: collection snapshot plus write time.
type entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"` // epoch millis
}

// Cache is a durable, TTL-bounded store of last-known-good collection
// snapshots, keyed by logical name ("cattle", "notifications", ...).
// Caching is a resilience optimization, not a correctness requirement:
// every I/O failure is logged and swallowed, never surfaced to callers.
type Cache struct {
	db     *bolt.DB
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu  sync.RWMutex // protects memory cache
	mem map[string][]byte
}

// Options tunes a Cache. Zero values fall back to defaults.
type Options struct {
	TTL    time.Duration
	Logger *slog.Logger
}

// Open opens (or creates) the cache database under dir. An empty dir
// yields a memory-only cache with no persistence.
func Open(dir string, opts Options) (*Cache, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	c := &Cache{
		ttl:    opts.TTL,
		logger: opts.Logger,
		now:    time.Now,
		mem:    make(map[string][]byte),
	}

	if dir == "" {
		return c, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(filepath.Join(dir, "corral.db"), 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCollections)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	c.db = db
	return c, nil
}

func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get unmarshals the snapshot stored under key into dest, but only if
// the entry is younger than the TTL. Expired or missing entries report
// false; the caller decides whether that means "go fetch" or, when
// offline, falls back to GetStale.
func (c *Cache) Get(key string, dest any) bool {
	e, ok := c.load(key)
	if !ok {
		return false
	}
	age := c.now().UnixMilli() - e.Timestamp
	if age >= c.ttl.Milliseconds() {
		return false
	}
	return json.Unmarshal(e.Data, dest) == nil
}

// GetStale is the offline fallback: it returns whatever snapshot is
// stored regardless of age. The cache never fabricates freshness; the
// caller owns the decision to show stale data.
func (c *Cache) GetStale(key string, dest any) bool {
	e, ok := c.load(key)
	if !ok {
		return false
	}
	return json.Unmarshal(e.Data, dest) == nil
}

// Set overwrites the entry under key unconditionally, stamping the
// current time. Serialization and disk failures are logged and dropped.
func (c *Cache) Set(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache serialization failed", "key", key, "error", err)
		return
	}
	raw, err := json.Marshal(entry{Data: data, Timestamp: c.now().UnixMilli()})
	if err != nil {
		c.logger.Warn("cache serialization failed", "key", key, "error", err)
		return
	}

	c.mu.Lock()
	c.mem[key] = raw
	c.mu.Unlock()

	if c.db == nil {
		return
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCollections).Put([]byte(key), raw)
	})
	if err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// Invalidate drops the entry under key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.mem, key)
	c.mu.Unlock()

	if c.db == nil {
		return
	}
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCollections)
		if b != nil {
			return b.Delete([]byte(key))
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("cache delete failed", "key", key, "error", err)
	}
}

// load reads the raw entry for key, preferring the memory copy and
// promoting disk hits into memory.
func (c *Cache) load(key string) (entry, bool) {
	c.mu.RLock()
	raw, ok := c.mem[key]
	c.mu.RUnlock()

	if !ok && c.db != nil {
		c.db.View(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucketCollections)
			if b == nil {
				return nil
			}
			if v := b.Get([]byte(key)); v != nil {
				raw = make([]byte, len(v))
				copy(raw, v)
				ok = true
			}
			return nil
		})
		if ok {
			c.mu.Lock()
			c.mem[key] = raw
			c.mu.Unlock()
		}
	}

	if !ok {
		return entry{}, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.logger.Warn("cache entry corrupt", "key", key, "error", err)
		return entry{}, false
	}
	return e, true
}

// SetClock overrides the time source. Tests use this for TTL
// time-travel; production code never calls it.
func (c *Cache) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}
