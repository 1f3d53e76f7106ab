package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/sepa/internal/core"
	"go.uber.org/zap"
)

// CacheRecorder receives cache hit/miss events. Satisfied by the
// metrics registry; may be nil.
type CacheRecorder interface {
	CacheHit()
	CacheMiss()
}

// Cache wraps a Provider with a file-based TTL cache. Entries are
// keyed by symbol and requested range; expired or corrupted files are
// removed on read. Locking is per entry, so workers fetching distinct
// symbols proceed in parallel while concurrent requests for the same
// entry share one upstream fetch.
type Cache struct {
	mu       sync.Mutex // guards keys
	keys     map[string]*sync.Mutex
	inner    Provider
	dir      string
	ttl      time.Duration
	logger   *zap.Logger
	recorder CacheRecorder
}

// NewCache creates a caching provider rooted at dir
func NewCache(inner Provider, dir string, ttl time.Duration, logger *zap.Logger) (*Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &Cache{
		keys:   make(map[string]*sync.Mutex),
		inner:  inner,
		dir:    dir,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// lockKey acquires the per-entry mutex, creating it on first use
func (c *Cache) lockKey(path string) *sync.Mutex {
	c.mu.Lock()
	m, ok := c.keys[path]
	if !ok {
		m = &sync.Mutex{}
		c.keys[path] = m
	}
	c.mu.Unlock()

	m.Lock()
	return m
}

// SetRecorder attaches a cache hit/miss recorder
func (c *Cache) SetRecorder(r CacheRecorder) {
	c.recorder = r
}

type cachedBar struct {
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume int64   `json:"v"`
	Time   int64   `json:"t"`
}

// History returns cached bars when fresh, otherwise delegates to the
// inner provider and stores the result
func (c *Cache) History(ctx context.Context, symbol string, start, end time.Time) ([]core.OHLCV, error) {
	path := c.path(symbol, start, end)

	m := c.lockKey(path)
	defer m.Unlock()

	if bars, ok := c.read(path, symbol); ok {
		if c.recorder != nil {
			c.recorder.CacheHit()
		}
		return bars, nil
	}
	if c.recorder != nil {
		c.recorder.CacheMiss()
	}

	bars, err := c.inner.History(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	c.write(path, bars)
	return bars, nil
}

// path returns the cache file for a symbol and range, sanitized to be
// filesystem-safe
func (c *Cache) path(symbol string, start, end time.Time) string {
	key := fmt.Sprintf("%s_%s_%s", symbol, start.Format("20060102"), end.Format("20060102"))
	key = strings.NewReplacer("/", "_", "\\", "_", "^", "_").Replace(key)
	return filepath.Join(c.dir, key+".json")
}

func (c *Cache) read(path, symbol string) ([]core.OHLCV, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}

	if time.Since(info.ModTime()) > c.ttl {
		os.Remove(path)
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var cached []cachedBar
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache file, remove it
		os.Remove(path)
		return nil, false
	}

	bars := make([]core.OHLCV, len(cached))
	for i, b := range cached {
		bars[i] = core.OHLCV{
			Symbol: symbol,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
			Time:   time.Unix(b.Time, 0).UTC(),
		}
	}
	return bars, true
}

func (c *Cache) write(path string, bars []core.OHLCV) {
	cached := make([]cachedBar, len(bars))
	for i, b := range bars {
		cached[i] = cachedBar{
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
			Time:   b.Time.Unix(),
		}
	}

	data, err := json.Marshal(cached)
	if err != nil {
		c.logger.Warn("encoding cache entry failed", zap.String("path", path), zap.Error(err))
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		// Caching failure is not fatal
		c.logger.Warn("writing cache entry failed", zap.String("path", path), zap.Error(err))
	}
}

// Clear removes every cache entry
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.Remove(e); err != nil {
			return err
		}
	}
	return nil
}
