package userstate

import (
	"context"
	"sync"
	"time"

	"github.com/metalagman/coopfunnel/internal/funnel"
	"github.com/rs/zerolog/log"
)

type memEntry struct {
	raw     []byte
	expires time.Time
}

// MemoryStore is a process-local Store. Records go through the same encoding as Redis.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore builds an in-memory store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{entries: map[string]memEntry{}, ttl: ttl, now: time.Now}
}

// Load returns the stored state, or an empty one.
func (s *MemoryStore) Load(_ context.Context, userID string) funnel.State {
	s.mu.Lock()
	e, ok := s.entries[userID]
	if ok && !s.now().Before(e.expires) {
		delete(s.entries, userID)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return funnel.State{}
	}

	st, err := decode(e.raw)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("discarding unreadable user state")
		return funnel.State{}
	}
	return st
}

// Save overwrites the user's state and refreshes its TTL.
func (s *MemoryStore) Save(_ context.Context, userID string, st funnel.State) error {
	raw, err := encode(st)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = memEntry{raw: raw, expires: s.now().Add(s.ttl)}
	return nil
}
