package cache

import (
	"sync"

	"github.com/hunterwarburton/tokenlens/internal/core"
)

// Memory is the process-local metadata cache. Entries are never replaced
// once stored; only Clear removes them.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*core.TokenMetadata
}

// NewMemory creates an empty cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*core.TokenMetadata)}
}

// Get returns a copy of the cached record for address.
func (m *Memory) Get(address string) (*core.TokenMetadata, bool) {
	m.mu.RLock()
	md, ok := m.entries[address]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return md.Clone(), true
}

// PutIfAbsent stores md unless address is already cached. It returns the
// record now in the cache and whether md was the one stored.
func (m *Memory) PutIfAbsent(md *core.TokenMetadata) (*core.TokenMetadata, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.entries[md.Address]; ok {
		return existing.Clone(), false
	}
	stored := md.Clone()
	m.entries[md.Address] = stored
	return stored.Clone(), true
}

// PutAllIfAbsent bulk-inserts records, skipping addresses already present.
// It returns how many were inserted.
func (m *Memory) PutAllIfAbsent(records []core.TokenMetadata) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i := range records {
		rec := records[i]
		if rec.Address == "" {
			continue
		}
		if _, ok := m.entries[rec.Address]; ok {
			continue
		}
		m.entries[rec.Address] = &rec
		n++
	}
	return n
}

// Len returns the number of cached records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// CountSource returns how many cached records carry the given source tag.
func (m *Memory) CountSource(source string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, md := range m.entries {
		if md.Source == source {
			n++
		}
	}
	return n
}

// Clear removes every record.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.entries = make(map[string]*core.TokenMetadata)
	m.mu.Unlock()
}
