package session

import (
	"log/slog"
	"sort"
	"sync"
)

// DefaultMaxContexts bounds the in-memory store; reaching it evicts the
// least-recently-active tenth of sessions.
const DefaultMaxContexts = 1000

// Store is a capacity-bounded in-memory context store keyed by session
// id. It satisfies the persistence contract the durable backends in
// internal/store implement; swapping one in changes nothing for callers.
type Store struct {
	mu          sync.Mutex
	contexts    map[string]*ConversationContext
	maxContexts int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithMaxContexts overrides the capacity bound.
func WithMaxContexts(n int) StoreOption {
	return func(s *Store) { s.maxContexts = n }
}

// NewStore returns an empty in-memory store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		contexts:    make(map[string]*ConversationContext),
		maxContexts: DefaultMaxContexts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate returns the context for the session, creating it if absent.
// Creation at capacity first evicts the oldest contexts by last activity.
func (s *Store) GetOrCreate(sessionID string) (*ConversationContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx, ok := s.contexts[sessionID]; ok {
		return ctx, nil
	}
	if len(s.contexts) >= s.maxContexts {
		s.evictOldest()
	}
	ctx := NewContext(sessionID)
	s.contexts[sessionID] = ctx
	return ctx, nil
}

// Save stores the context under the session id.
func (s *Store) Save(sessionID string, ctx *ConversationContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[sessionID] = ctx
	return nil
}

// Delete removes a session's context.
func (s *Store) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, sessionID)
	return nil
}

// Len reports the number of stored contexts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contexts)
}

// evictOldest removes the least-recently-active 10% of sessions, always
// at least one. Caller holds the lock.
func (s *Store) evictOldest() {
	if len(s.contexts) == 0 {
		return
	}
	type entry struct {
		id  string
		ctx *ConversationContext
	}
	entries := make([]entry, 0, len(s.contexts))
	for id, ctx := range s.contexts {
		entries = append(entries, entry{id, ctx})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ctx.LastActivity.Before(entries[j].ctx.LastActivity)
	})

	n := len(entries) / 10
	if n < 1 {
		n = 1
	}
	for _, e := range entries[:n] {
		delete(s.contexts, e.id)
	}
	slog.Debug("Store.evictOldest: evicted stale contexts", "count", n, "remaining", len(s.contexts))
}
