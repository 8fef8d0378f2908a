// internal/game/registry.go
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/MafiaJoker/mafia-game-sub000/internal/database"
)

// Registry holds the live sessions of a process, bounded to a fixed number
// of games. Adding a game beyond capacity evicts the least recently used
// one. Sessions never see each other; the registry is the only shared
// structure.
type Registry struct {
	mu       sync.Mutex
	sessions *lru.Cache[int64, *Session]
	deps     Deps
	log      *logrus.Entry
}

// NewRegistry returns a registry holding at most capacity sessions built
// with deps.
func NewRegistry(capacity int, deps Deps) (*Registry, error) {
	log := deps.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	r := &Registry{deps: deps, log: log.WithField("component", "registry")}
	c, err := lru.NewWithEvict[int64, *Session](capacity, r.onEvict)
	if err != nil {
		return nil, fmt.Errorf("session registry: %w", err)
	}
	r.sessions = c
	return r, nil
}

// onEvict runs under r.mu from inside the cache. It must not take a
// session lock.
func (r *Registry) onEvict(id int64, _ *Session) {
	r.log.WithField("game_id", id).Info("session evicted")
}

// Get returns the session for id, creating a default one on first access.
// It never consults the backend; use Open for games that may be stored.
func (r *Registry) Get(id int64) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions.Get(id); ok {
		return s
	}
	s := NewSession(id, r.deps)
	r.sessions.Add(id, s)
	return s
}

// Peek returns the session for id without touching its recency.
func (r *Registry) Peek(id int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.Peek(id)
}

// Load returns the cached session for id or restores it from the backend.
func (r *Registry) Load(ctx context.Context, id int64) (*Session, error) {
	r.mu.Lock()
	if s, ok := r.sessions.Get(id); ok {
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	if r.deps.Backend == nil {
		return nil, ErrNoBackend
	}
	rec, err := r.deps.Backend.GetGame(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load game %d: %w", id, err)
	}
	state, err := r.deps.Backend.GetGameState(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load game %d state: %w", id, err)
	}
	s, err := RestoreSession(rec, state, r.deps)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions.Get(id); ok {
		return existing, nil
	}
	r.sessions.Add(id, s)
	r.log.WithField("game_id", id).Info("session restored")
	return s, nil
}

// Open returns the session the judge consoles and displays work on. Without
// a backend it behaves like Get. With one, an uncached game is restored
// from the backend and only a game the backend has never seen starts from
// a default session, so a blank session never overwrites stored state.
func (r *Registry) Open(ctx context.Context, id int64) (*Session, error) {
	if r.deps.Backend == nil {
		return r.Get(id), nil
	}
	s, err := r.Load(ctx, id)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions.Get(id); ok {
		return existing, nil
	}
	s = NewSession(id, r.deps)
	r.sessions.Add(id, s)
	r.log.WithField("game_id", id).Info("new game session")
	return s, nil
}

// Put inserts or replaces the session under its id.
func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions.Add(s.ID, s)
}

// Remove drops the session for id. It reports whether one was cached.
func (r *Registry) Remove(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.Remove(id)
}

// Len returns the number of cached sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.Len()
}

// IDs returns the cached game ids from oldest to newest.
func (r *Registry) IDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.Keys()
}
