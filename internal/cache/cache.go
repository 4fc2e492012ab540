// Package cache implements the content-hash fingerprint store for compiled
// library artifacts: freshness checks, LRU-style time-based eviction, and
// the transitive dependency-hash computation (spec.md §4.7). Grounded on
// distri's internal/batch/batch.go staleness check
// (meta.GetInputDigest() == inputDigest) generalized into a persisted,
// per-entry record with access-time tracking, and its periodic-refresh
// throttle idiom (time.Since(last) < threshold) reused for CleanupIfDue.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio"

	"github.com/asthra-lang/ampu/internal/errs"
)

// DefaultCleanupInterval is the default interval between eviction sweeps
// (spec.md §4.7).
const DefaultCleanupInterval = 24 * time.Hour

// Entry is a cached library artifact (spec.md §3 "Cached library").
type Entry struct {
	Name         string    `toml:"name"`
	ArtifactPath string    `toml:"artifact_path"`
	SourceHash   string    `toml:"source_hash"`
	DepHash      string    `toml:"dep_hash"`
	BuildTime    time.Time `toml:"build_time"`
	AccessTime   time.Time `toml:"access_time"`
}

// Stats counts cache decisions made during a build, satisfying spec.md §8's
// boundary behaviour ("cache_hits = 0 on first run... cache_hits = 1,
// rebuild = 0 on immediate second run").
type Stats struct {
	Hits   int
	Misses int
}

// Cache is the in-memory, optionally disk-backed library cache. Dir, if
// non-empty, is where entries are persisted: one
// TOML file per entry, named "<sanitized-name>.cache.toml", mirroring
// distri's one-metadata-file-per-package convention
// (<name>.meta.textproto) rather than a single monolithic index.
type Cache struct {
	mu          sync.Mutex
	Dir         string
	entries     map[string]*Entry
	lastCleanup time.Time
	Stats       Stats
	now         func() time.Time
}

// New creates an empty cache. If dir is non-empty, Record/Touch/Evict
// persist to it; Load must be called to populate entries from disk.
func New(dir string) *Cache {
	return &Cache{Dir: dir, entries: make(map[string]*Entry), now: time.Now}
}

func (c *Cache) entryPath(name string) string {
	return filepath.Join(c.Dir, sanitizeName(name)+".cache.toml")
}

func sanitizeName(name string) string {
	b := []byte(name)
	for i, r := range b {
		if r == '/' || r == '-' {
			b[i] = '_'
		}
	}
	return string(b)
}

// Load populates the in-memory cache by reading every "*.cache.toml" file
// in c.Dir. Missing directory is not an error (first run).
func (c *Cache) Load() error {
	if c.Dir == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(c.Dir, "*.cache.toml"))
	if err != nil {
		return &errs.IO{Op: "glob cache dir", Path: c.Dir, Cause: err}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range matches {
		var e Entry
		if _, err := toml.DecodeFile(m, &e); err != nil {
			continue // a corrupt entry is treated as absent, not fatal
		}
		c.entries[e.Name] = &e
	}
	return nil
}

// IsUpToDate reports whether a cached entry exists for name whose stored
// source-hash and dep-hash both equal the current ones (spec.md §4.7).
func (c *Cache) IsUpToDate(name, sourceHash, depHash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[name]
	upToDate := ok && e.SourceHash == sourceHash && e.DepHash == depHash
	if upToDate {
		c.Stats.Hits++
	} else {
		c.Stats.Misses++
	}
	return upToDate
}

// Record inserts or overwrites the cache entry for name, setting build-time
// and access-time to now.
func (c *Cache) Record(name, artifactPath, sourceHash, depHash string) error {
	now := c.now()
	c.mu.Lock()
	e := &Entry{
		Name:         name,
		ArtifactPath: artifactPath,
		SourceHash:   sourceHash,
		DepHash:      depHash,
		BuildTime:    now,
		AccessTime:   now,
	}
	c.entries[name] = e
	c.mu.Unlock()
	return c.persist(e)
}

// Touch updates an existing entry's access-time to now, driving LRU
// eviction decisions.
func (c *Cache) Touch(name string) error {
	c.mu.Lock()
	e, ok := c.entries[name]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	e.AccessTime = c.now()
	c.mu.Unlock()
	return c.persist(e)
}

func (c *Cache) persist(e *Entry) error {
	if c.Dir == "" {
		return nil
	}
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return &errs.IO{Op: "mkdir cache dir", Path: c.Dir, Cause: err}
	}
	path := c.entryPath(e.Name)
	t, err := renameio.TempFile("", path)
	if err != nil {
		return &errs.IO{Op: "create temp cache entry", Path: path, Cause: err}
	}
	defer t.Cleanup()
	if err := toml.NewEncoder(t).Encode(e); err != nil {
		return &errs.IO{Op: "encode cache entry", Path: path, Cause: err}
	}
	return t.CloseAtomicallyReplace()
}

// Evict removes every entry whose access-time is older than now - maxAge,
// deleting the associated artifact file (spec.md §4.7).
func (c *Cache) Evict(maxAge time.Duration) error {
	cutoff := c.now().Add(-maxAge)
	c.mu.Lock()
	var stale []*Entry
	for name, e := range c.entries {
		if e.AccessTime.Before(cutoff) {
			stale = append(stale, e)
			delete(c.entries, name)
		}
	}
	c.mu.Unlock()
	for _, e := range stale {
		if err := os.Remove(e.ArtifactPath); err != nil && !os.IsNotExist(err) {
			return &errs.IO{Op: "evict artifact", Path: e.ArtifactPath, Cause: err}
		}
		if c.Dir != "" {
			if err := os.Remove(c.entryPath(e.Name)); err != nil && !os.IsNotExist(err) {
				return &errs.IO{Op: "evict cache entry", Path: c.entryPath(e.Name), Cause: err}
			}
		}
	}
	return nil
}

// CleanupIfDue calls Evict(maxAge) if the interval has elapsed since the
// last cleanup, defaulting to DefaultCleanupInterval.
func (c *Cache) CleanupIfDue(interval, maxAge time.Duration) error {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	now := c.now()
	c.mu.Lock()
	due := now.Sub(c.lastCleanup) >= interval
	if due {
		c.lastCleanup = now
	}
	c.mu.Unlock()
	if !due {
		return nil
	}
	return c.Evict(maxAge)
}

// DepEntry is one (dependency-name, dependency-source-hash) pair used to
// compute a transitive dependency hash.
type DepEntry struct {
	Name string
	Hash string
}

// DepHash computes a deterministic hash over the sorted list of (dep-name,
// dep-hash) pairs the caller supplies (spec.md §4.7); internal/build passes
// each direct dependency with a hash that already folds in that
// dependency's own dependencies. Sorting by name makes the hash independent of traversal order,
// satisfying the "transitive" freshness requirement: any change deep in the
// graph changes some entry's Hash, which changes every ancestor's DepHash.
func DepHash(deps []DepEntry) string {
	sorted := make([]DepEntry, len(deps))
	copy(sorted, deps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	h := sha256.New()
	for _, d := range sorted {
		fmt.Fprintf(h, "%s\x00%s\x00", d.Name, d.Hash)
	}
	return hex.EncodeToString(h.Sum(nil))
}
