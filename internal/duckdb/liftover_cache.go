package duckdb

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Strexas/kath/internal/liftover"
)

// LiftoverCache manages gob-serialized liftover results on disk, keyed by
// the converter source:
//
//	{dir}/liftover.gob       (memo entries)
//	{dir}/liftover.gob.meta  (source identity and chain file fingerprint)
//
// For a chain file the fingerprint is its size and modification time; a
// changed chain file invalidates the cache.
type LiftoverCache struct {
	dir string
}

// NewLiftoverCache creates a liftover cache for the given directory.
func NewLiftoverCache(dir string) *LiftoverCache {
	return &LiftoverCache{dir: dir}
}

func (lc *LiftoverCache) gobPath() string {
	return filepath.Join(lc.dir, "liftover.gob")
}

func (lc *LiftoverCache) metaPath() string {
	return filepath.Join(lc.dir, "liftover.gob.meta")
}

func expectedMeta(source string, chain FileFingerprint) map[string]string {
	meta := chain.meta("chain")
	meta["source"] = source
	return meta
}

// Valid checks whether the cached entries were produced by the same source
// and chain file.
func (lc *LiftoverCache) Valid(source string, chain FileFingerprint) bool {
	meta, err := lc.readMeta()
	if err != nil {
		return false
	}
	for k, v := range expectedMeta(source, chain) {
		if meta[k] != v {
			return false
		}
	}
	if _, err := os.Stat(lc.gobPath()); err != nil {
		return false
	}
	return true
}

// Load reads cached entries from disk into m.
func (lc *LiftoverCache) Load(m *liftover.Memo) (int, error) {
	f, err := os.Open(lc.gobPath())
	if err != nil {
		return 0, fmt.Errorf("open liftover cache: %w", err)
	}
	defer f.Close()

	var entries []liftover.Entry
	if err := gob.NewDecoder(f).Decode(&entries); err != nil {
		return 0, fmt.Errorf("decode liftover cache: %w", err)
	}
	m.Seed(entries)
	return len(entries), nil
}

// Write serializes every entry of m to disk.
func (lc *LiftoverCache) Write(m *liftover.Memo, source string, chain FileFingerprint) error {
	if err := os.MkdirAll(lc.dir, 0755); err != nil {
		return fmt.Errorf("create liftover cache directory: %w", err)
	}
	f, err := os.Create(lc.gobPath())
	if err != nil {
		return fmt.Errorf("create liftover cache: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(m.Entries()); err != nil {
		f.Close()
		os.Remove(lc.gobPath())
		return fmt.Errorf("encode liftover cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close liftover cache: %w", err)
	}
	return lc.writeMeta(source, chain)
}

// Clear removes the cached files.
func (lc *LiftoverCache) Clear() {
	os.Remove(lc.gobPath())
	os.Remove(lc.metaPath())
}

func (lc *LiftoverCache) writeMeta(source string, chain FileFingerprint) error {
	var b strings.Builder
	for k, v := range expectedMeta(source, chain) {
		b.WriteString(k + "=" + v + "\n")
	}
	b.WriteString("created_at=" + time.Now().UTC().Format(time.RFC3339) + "\n")
	return os.WriteFile(lc.metaPath(), []byte(b.String()), 0644)
}

func (lc *LiftoverCache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(lc.metaPath())
	if err != nil {
		return nil, err
	}
	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
