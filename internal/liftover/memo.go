package liftover

import (
	"context"
	"errors"
	"sync"

	"github.com/Strexas/kath/internal/variant"
)

// Entry is one memoized conversion. Mapped is false for unmapped positions.
type Entry struct {
	Chrom  string
	Pos    int64
	Target int64
	Mapped bool
}

type memoKey struct {
	chrom string
	pos   int64
}

// Memo caches conversions by chromosome and position, including positions
// that do not map. Collaborator errors are not cached. Safe for concurrent use.
type Memo struct {
	conv Converter

	mu      sync.RWMutex
	entries map[memoKey]Entry
	calls   int
}

// NewMemo wraps conv with a cache.
func NewMemo(conv Converter) *Memo {
	return &Memo{conv: conv, entries: make(map[memoKey]Entry)}
}

// Convert returns the cached result or calls the wrapped converter.
func (m *Memo) Convert(ctx context.Context, chrom string, pos int64) (int64, error) {
	k := memoKey{variant.NormalizeChrom(chrom), pos}

	m.mu.RLock()
	e, ok := m.entries[k]
	m.mu.RUnlock()
	if ok {
		if !e.Mapped {
			return 0, ErrUnmapped
		}
		return e.Target, nil
	}

	target, err := m.conv.Convert(ctx, chrom, pos)
	if err != nil && !errors.Is(err, ErrUnmapped) {
		return 0, err
	}

	m.mu.Lock()
	m.calls++
	m.entries[k] = Entry{Chrom: k.chrom, Pos: pos, Target: target, Mapped: err == nil}
	m.mu.Unlock()
	return target, err
}

// Calls returns how many conversions reached the wrapped converter.
func (m *Memo) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Entries returns a snapshot of the cache.
func (m *Memo) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out
}

// Seed preloads entries, typically from a persisted cache.
func (m *Memo) Seed(entries []Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.entries[memoKey{variant.NormalizeChrom(e.Chrom), e.Pos}] = e
	}
}
