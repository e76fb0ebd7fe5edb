package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bluedream1831-collab/threads/internal/observability"
)

// DefaultSessionTTL is how long an idle session survives between requests.
const DefaultSessionTTL = 2 * time.Hour

// Registry owns every live session, keyed by id. Idle sessions are evicted
// by the sweeper; everything they held is gone after that.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewRegistry returns a registry evicting sessions idle longer than ttl.
// A non-positive ttl falls back to DefaultSessionTTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Registry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create registers and returns a fresh session.
func (r *Registry) Create() *Session {
	s := NewSession(uuid.NewString())

	r.mu.Lock()
	r.sessions[s.ID] = s
	count := len(r.sessions)
	r.mu.Unlock()

	observability.ActiveSessions.Set(float64(count))
	return s
}

// Get returns the session and refreshes its idle timer.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		s.Touch()
	}
	return s, ok
}

// Delete removes one session.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	count := len(r.sessions)
	r.mu.Unlock()

	observability.ActiveSessions.Set(float64(count))
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle past the ttl and returns how many were dropped.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	evicted := 0
	for id, s := range r.sessions {
		if s.LastAccess().Before(cutoff) {
			delete(r.sessions, id)
			evicted++
		}
	}
	count := len(r.sessions)
	r.mu.Unlock()

	observability.ActiveSessions.Set(float64(count))
	return evicted
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Sweep(); n > 0 {
					slog.Info("evicted idle sessions", "count", n)
				}
			}
		}
	}()
}
