package fsys

import (
	"github.com/dgraph-io/ristretto"
)

type statEntry struct {
	stat Stat
	ok   bool
}

// CachedFS memoizes Stat and Realpath results of an underlying FS in a
// bounded in-memory cache. File contents are not cached.
type CachedFS struct {
	fs    FS
	cache *ristretto.Cache
}

// NewCachedFS wraps fs with a cache holding up to maxEntries results.
func NewCachedFS(fs FS, maxEntries int64) (*CachedFS, error) {
	if maxEntries <= 0 {
		maxEntries = 1 << 16
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CachedFS{fs: fs, cache: cache}, nil
}

func (c *CachedFS) Stat(path string) (Stat, bool) {
	key := "stat:" + path
	if v, ok := c.cache.Get(key); ok {
		e := v.(statEntry)
		return e.stat, e.ok
	}
	stat, ok := c.fs.Stat(path)
	if c.cache.Set(key, statEntry{stat, ok}, 1) {
		c.cache.Wait()
	}
	return stat, ok
}

func (c *CachedFS) ReadFile(path string) ([]byte, error) {
	return c.fs.ReadFile(path)
}

func (c *CachedFS) Realpath(path string) (string, error) {
	key := "realpath:" + path
	if v, ok := c.cache.Get(key); ok {
		return v.(string), nil
	}
	real, err := c.fs.Realpath(path)
	if err != nil {
		return "", err
	}
	if c.cache.Set(key, real, 1) {
		c.cache.Wait()
	}
	return real, nil
}

// Flush drops every cached result.
func (c *CachedFS) Flush() {
	c.cache.Clear()
	c.cache.Wait()
}

// Close stops the cache's background goroutines.
func (c *CachedFS) Close() {
	c.cache.Close()
}
