package http

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
	"github.com/fyrsmithlabs/choosethere/internal/roulette"
)

const defaultSessionTTL = 30 * time.Minute

// drawSession serializes access to one roulette session.
type drawSession struct {
	mu      sync.Mutex
	session *roulette.Session
	touched time.Time
}

// sessionRegistry holds live draw sessions by id. Idle sessions expire.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*drawSession
	ttl      time.Duration
	now      func() time.Time
}

func newSessionRegistry(ttl time.Duration) *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[string]*drawSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (r *sessionRegistry) create(pc restaurant.PreferenceContext) (string, *drawSession) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, ds := range r.sessions {
		if now.Sub(ds.touched) > r.ttl {
			delete(r.sessions, id)
		}
	}

	id := uuid.NewString()
	ds := &drawSession{session: roulette.NewSession(pc), touched: now}
	r.sessions[id] = ds
	return id, ds
}

func (r *sessionRegistry) get(id string) (*drawSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ds, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	now := r.now()
	if now.Sub(ds.touched) > r.ttl {
		delete(r.sessions, id)
		return nil, false
	}
	ds.touched = now
	return ds, true
}

func (r *sessionRegistry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

func (r *sessionRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
