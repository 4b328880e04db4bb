// Package server exposes the ledger and its derived views over a local
// JSON HTTP API.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lazypower/forgeone/internal/engine"
	"github.com/lazypower/forgeone/internal/ledger"
	"github.com/lazypower/forgeone/internal/logging"
	"github.com/lazypower/forgeone/internal/store"
)

// Server is the forgeone HTTP API server.
type Server struct {
	db      *store.DB
	ledger  *ledger.Ledger
	engine  *engine.Engine
	log     *zap.Logger
	router  chi.Router
	version string
	started time.Time
}

// New creates a Server over db and the engine built on it.
func New(db *store.DB, eng *engine.Engine, version string, log *zap.Logger) *Server {
	s := &Server{
		db:      db,
		ledger:  eng.Ledger,
		engine:  eng,
		log:     logging.OrNop(log).Named("server"),
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/entries", func(r chi.Router) {
			r.Get("/", s.handleListEntries)
			r.Post("/", s.handleCreateEntry)
			r.Get("/{id}", s.handleGetEntry)
			r.Patch("/{id}", s.handleUpdateEntry)
			r.Delete("/{id}", s.handleDeleteEntry)
		})
		r.Get("/stats", s.handleStats)
		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)

		r.Get("/anchors", s.handleAnchors)
		r.Post("/anchors/reset", s.handleResetAnchors)
		r.Get("/memories", s.handleMemories)
		r.Get("/timeline", s.handleTimeline)

		r.Get("/habits", s.handleHabits)
		r.Get("/goals", s.handleGoals)
		r.Get("/health-score", s.handleHealthScore)
		r.Get("/people", s.handlePeople)
		r.Get("/people/{name}", s.handlePerson)
		r.Get("/meetings", s.handleMeetings)
		r.Get("/relationships", s.handleRelationships)
		r.Get("/overview", s.handleOverview)
		r.Get("/search", s.handleSearch)
		r.Get("/digest", s.handleDigest)
	})

	s.router = r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := s.db.Ping() == nil
	keys, err := s.db.Keys()
	if err != nil {
		dbOK = false
	}

	writeOK(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
		"keys":    keys,
		"entries": s.ledger.Len(),
	})
}
