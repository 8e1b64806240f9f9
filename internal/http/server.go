// Package http exposes the trip ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tripledger/internal/cache"
	"tripledger/internal/log"
	"tripledger/internal/services"
	"tripledger/internal/storage"
)

// Deps are the collaborators of a Server.
type Deps struct {
	Budget             *services.BudgetService
	Reader             *services.LedgerReader
	Store              storage.Store
	Logger             *log.Logger
	SessionTTL         time.Duration
	MaxSessions        int
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	budget   *services.BudgetService
	reader   *services.LedgerReader
	store    storage.Store
	logger   *log.Logger
	sessions *sessionRegistry
	limiter  *rateLimiter
	metrics  *securityMetrics
	headers  headersConfig

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = log.Discard()
	}
	ttl := d.SessionTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	s := &Server{
		budget:   d.Budget,
		reader:   d.Reader,
		store:    d.Store,
		logger:   logger.WithComponent(log.ComponentHTTP),
		sessions: newSessionRegistry(d.MaxSessions, ttl),
		limiter:  newRateLimiter(d.RateLimitPerMinute),
		metrics:  &securityMetrics{},
		headers:  defaultHeadersConfig(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("PUT /trips/{tripID}", s.handlePutTrip)
	mux.HandleFunc("GET /trips/{tripID}/settings", s.handleGetSettings)
	mux.HandleFunc("GET /trips/{tripID}/summary", s.handleSummary)
	mux.HandleFunc("GET /trips/{tripID}/busy", s.handleBusy)
	mux.HandleFunc("GET /trips/{tripID}/instruments", s.handleListInstruments)

	mux.HandleFunc("GET /trips/{tripID}/items", s.handleListItems)
	mux.HandleFunc("POST /trips/{tripID}/items", s.handleCreateItem)
	mux.HandleFunc("GET /items/{itemID}", s.handleGetItem)
	mux.HandleFunc("PATCH /items/{itemID}", s.handlePatchItem)
	mux.HandleFunc("DELETE /items/{itemID}", s.handleDeleteItem)
	mux.HandleFunc("GET /items/{itemID}/split", s.handleSplit)

	mux.HandleFunc("POST /trips/{tripID}/sessions", s.handleBeginSession)
	mux.HandleFunc("GET /sessions/{sessionID}", s.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{sessionID}", s.handleDiscardSession)
	mux.HandleFunc("POST /sessions/{sessionID}/instruments", s.handleAddInstrument)
	mux.HandleFunc("PATCH /sessions/{sessionID}/instruments/{index}", s.handleSetField)
	mux.HandleFunc("DELETE /sessions/{sessionID}/instruments/{index}", s.handleRemoveInstrument)
	mux.HandleFunc("POST /sessions/{sessionID}/reorder", s.handleReorder)
	mux.HandleFunc("PUT /sessions/{sessionID}/settings", s.handleSessionSettings)
	mux.HandleFunc("GET /sessions/{sessionID}/plan", s.handlePlan)
	mux.HandleFunc("POST /sessions/{sessionID}/commit", s.handleCommit)

	var h http.Handler = mux
	h = s.withSecurity(h)
	h = log.RequestLogger(s.logger, RequestIDFrom)(h)
	h = withRequestID(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Sessions returns the edit session registry for periodic cleanup.
func (s *Server) Sessions() cache.Cleaner { return s.sessions }

// SecurityStats returns the security counters collected so far.
func (s *Server) SecurityStats() SecurityStats { return s.metrics.snapshot() }

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, "store unavailable").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
