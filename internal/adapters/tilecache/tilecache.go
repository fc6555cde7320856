// Package tilecache is the write-once store for rendered tiles and composites
// An LRU holds hot keys, an optional directory keeps everything else, and a
// singleflight group makes sure one process computes a key once at a time
package tilecache

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	perr "helioserve/internal/platform/errors"
	"helioserve/internal/platform/logger"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Options configures a Cache
type Options struct {
	// Dir is the disk root, empty keeps the cache in memory only
	Dir string
	// MemoryEntries sizes the LRU front (default 512)
	MemoryEntries int
	// ComputeTimeout bounds a shared computation once it no longer follows any caller (default 1m)
	ComputeTimeout time.Duration
}

// Cache implements GetOrCompute and Put over memory and disk
type Cache struct {
	dir     string
	timeout time.Duration
	front   *lru.Cache[string, []byte]
	group   singleflight.Group
}

// New creates the cache and its directory
func New(opt Options) (*Cache, error) {
	n := opt.MemoryEntries
	if n <= 0 {
		n = 512
	}
	front, err := lru.New[string, []byte](n)
	if err != nil {
		return nil, err
	}
	if opt.Dir != "" {
		if err := os.MkdirAll(opt.Dir, 0o755); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "cache dir %s", opt.Dir)
		}
	}
	timeout := opt.ComputeTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Cache{dir: opt.Dir, timeout: timeout, front: front}, nil
}

// path maps a key to a file under dir, rejecting keys that escape it
func (c *Cache) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if key == "" || clean == "/" || strings.Contains(key, "..") {
		return "", perr.InvalidArgf("invalid cache key %q", key)
	}
	return filepath.Join(c.dir, filepath.FromSlash(clean)), nil
}

// Get returns cached bytes from memory or disk
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool) {
	if b, ok := c.front.Get(key); ok {
		return b, true
	}
	if c.dir == "" {
		return nil, false
	}
	p, err := c.path(key)
	if err != nil {
		return nil, false
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	c.front.Add(key, b)
	return b, true
}

// Put stores b under key once, a key that already exists is left untouched
// the disk write goes to a temp file and is published with os.Link so readers never see partial files
func (c *Cache) Put(_ context.Context, key string, b []byte) error {
	p, err := c.path(key)
	if err != nil {
		return err
	}
	c.front.ContainsOrAdd(key, b)
	if c.dir == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".put-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Link(tmp.Name(), p); err != nil && !errors.Is(err, fs.ErrExist) {
		return err
	}
	return nil
}

// GetOrCompute returns the cached value or runs fn once per key across concurrent callers
// fn runs detached from any one caller, each caller stops waiting when its own ctx ends
// When fn fails its bytes (possibly a placeholder) and error go back to every waiter uncached
// A failed store is logged and the computed bytes are still returned
func (c *Cache) GetOrCompute(ctx context.Context, key string, fn func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, ok := c.Get(ctx, key); ok {
		return b, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		if b, ok := c.Get(cctx, key); ok {
			return b, nil
		}
		b, err := fn(cctx)
		if err != nil {
			return b, err
		}
		if werr := c.Put(cctx, key, b); werr != nil {
			logger.C(cctx).Warn().Err(werr).Str("key", key).Msg("cache write failed")
		}
		return b, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		b, _ := r.Val.([]byte)
		return b, r.Err
	}
}

// Len is the number of keys held in memory
func (c *Cache) Len() int { return c.front.Len() }
