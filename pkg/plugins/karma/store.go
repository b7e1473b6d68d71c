package karma

import (
	"context"
	"sort"
	"strings"
	"sync"

	"termibot/pkg/logger"
)

// Entry is one karma total.
type Entry struct {
	// Name is the display name as first seen.
	Name  string `json:"name"`
	Karma int64  `json:"karma"`
}

// Reason is a recorded justification for a change.
type Reason struct {
	Change int64  `json:"change"`
	Text   string `json:"text"`
}

// Store persists karma. Names are compared case-insensitively; the display
// name of an entry is the spelling it was first given with.
type Store interface {
	// Change adds amount to name's karma and returns the new total.
	Change(ctx context.Context, name string, amount int64) (int64, error)
	// Get returns name's karma and whether it has any.
	Get(ctx context.Context, name string) (int64, bool, error)
	// Top returns up to n entries, highest karma first.
	Top(ctx context.Context, n int) ([]Entry, error)
	AddReason(ctx context.Context, name string, change int64, reason string) error
	Reasons(ctx context.Context, name string) ([]Reason, error)
	Close() error
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// MemoryStore keeps karma in process memory. Used when no Redis is
// configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	reasons map[string][]Reason
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*Entry),
		reasons: make(map[string][]Reason),
	}
}

// Change implements Store.
func (s *MemoryStore) Change(_ context.Context, name string, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := normalize(name)
	e, ok := s.entries[id]
	if !ok {
		e = &Entry{Name: name}
		s.entries[id] = e
	}
	e.Karma += amount
	return e.Karma, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, name string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[normalize(name)]
	if !ok {
		return 0, false, nil
	}
	return e.Karma, true, nil
}

// Top implements Store.
func (s *MemoryStore) Top(_ context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return []Entry{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Karma != out[j].Karma {
			return out[i].Karma > out[j].Karma
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// AddReason implements Store.
func (s *MemoryStore) AddReason(_ context.Context, name string, change int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := normalize(name)
	s.reasons[id] = append(s.reasons[id], Reason{Change: change, Text: reason})
	return nil
}

// Reasons implements Store.
func (s *MemoryStore) Reasons(_ context.Context, name string) ([]Reason, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Reason(nil), s.reasons[normalize(name)]...), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

// NewStore returns a RedisStore when cfg.Addr is set and a MemoryStore
// otherwise.
func NewStore(ctx context.Context, log *logger.Logger, cfg RedisConfig) (Store, error) {
	if cfg.Addr == "" {
		log.Warn("No Redis configured, karma will not survive restarts")
		return NewMemoryStore(), nil
	}
	return NewRedisStore(ctx, log, cfg)
}
