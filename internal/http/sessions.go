package http

import (
	"time"

	"tripledger/internal/cache"
	"tripledger/internal/core"
	"tripledger/internal/reconcile"
)

const defaultMaxSessions = 256

// sessionRegistry keeps open instrument edit sessions in memory. Sessions
// expire after ttl without access; the least recently used is evicted
// when more than maxSessions are open.
type sessionRegistry struct {
	lru *cache.LRUCache[*reconcile.Session]
}

func newSessionRegistry(maxSessions int, ttl time.Duration) *sessionRegistry {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	return &sessionRegistry{lru: cache.NewLRUCache[*reconcile.Session](maxSessions, ttl)}
}

func (r *sessionRegistry) put(s *reconcile.Session) {
	r.lru.Set(s.ID(), s)
}

// get returns the session and extends its lifetime.
func (r *sessionRegistry) get(id string) (*reconcile.Session, error) {
	s, ok := r.lru.Get(id)
	if !ok {
		return nil, &core.NotFoundError{Entity: "edit session", ID: id}
	}
	r.lru.Set(id, s)
	return s, nil
}

func (r *sessionRegistry) remove(id string) {
	r.lru.Delete(id)
}

// CleanExpired implements cache.Cleaner.
func (r *sessionRegistry) CleanExpired() int {
	return r.lru.CleanExpired()
}
