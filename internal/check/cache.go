package check

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when the cached Report layout changes.
const reportCacheSchema uint16 = 1

// ReportCache keeps the last report per config fingerprint on disk so that
// repeated runs with an unchanged config can be answered without rerunning.
// Safe for concurrent use.
type ReportCache struct {
	mu  sync.RWMutex
	dir string
}

type cachedReport struct {
	Schema uint16
	Report *Report
}

// OpenReportCache opens the cache under $XDG_CACHE_HOME/<app>, falling back
// to ~/.cache/<app>.
func OpenReportCache(app string) (*ReportCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return NewReportCache(filepath.Join(base, app))
}

// NewReportCache opens a cache rooted at dir.
func NewReportCache(dir string) (*ReportCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &ReportCache{dir: dir}, nil
}

func (c *ReportCache) pathFor(fingerprint string) string {
	return filepath.Join(c.dir, "reports", fingerprint+".mp")
}

// Put writes the report atomically, replacing any earlier one.
func (c *ReportCache) Put(r *Report) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(r.Fingerprint)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		// After a successful rename the temp name is gone.
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()

	if err := msgpack.NewEncoder(f).Encode(&cachedReport{Schema: reportCacheSchema, Report: r}); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get returns the cached report for fingerprint. A missing entry or one
// written by another schema version reports false without error.
func (c *ReportCache) Get(fingerprint string) (*Report, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(fingerprint))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var entry cachedReport
	if err := msgpack.NewDecoder(f).Decode(&entry); err != nil {
		return nil, false, err
	}
	if entry.Schema != reportCacheSchema || entry.Report == nil {
		return nil, false, nil
	}
	entry.Report.Cached = true
	return entry.Report, true, nil
}

// RunCached answers from cache when possible and stores fresh reports.
// Reports with violations are stored too; a cache hit is marked Cached.
func RunCached(ctx context.Context, cfg Config, cache *ReportCache, sink Sink) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cache != nil && cfg.Report.Cache {
		fp, err := cfg.Fingerprint()
		if err != nil {
			return nil, err
		}
		if r, ok, err := cache.Get(hex.EncodeToString(fp[:])); err == nil && ok {
			return r, nil
		}
	}
	r, err := Run(ctx, cfg, sink)
	if err != nil {
		return nil, err
	}
	if cache != nil && cfg.Report.Cache {
		if err := cache.Put(r); err != nil {
			return r, fmt.Errorf("store report: %w", err)
		}
	}
	return r, nil
}
