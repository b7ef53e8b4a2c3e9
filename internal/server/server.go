// Package server exposes the anonymization engine over HTTP.
package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/veil-labs/veil/internal/config"
	"github.com/veil-labs/veil/internal/detector"
	"github.com/veil-labs/veil/internal/llm"
	"github.com/veil-labs/veil/internal/session"
	"github.com/veil-labs/veil/internal/storage"
)

const defaultTimeout = 90 * time.Second

// Server holds all dependencies for the HTTP API.
type Server struct {
	router   *chi.Mux
	detector *detector.Detector
	source   *llm.Source    // optional
	kv       *storage.Store // optional
	settings config.Settings

	mu       sync.Mutex
	sessions map[string]*session.Session

	startTime time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithExternalSource sets the optional external entity source.
func WithExternalSource(src *llm.Source) Option {
	return func(s *Server) { s.source = src }
}

// WithStorage sets the optional persistence collaborator.
func WithStorage(kv *storage.Store) Option {
	return func(s *Server) { s.kv = kv }
}

// WithSettings sets the default detection settings for new sessions.
func WithSettings(settings config.Settings) Option {
	return func(s *Server) { s.settings = settings }
}

// New creates the HTTP server around a detector.
func New(d *detector.Detector, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		detector:  d,
		settings:  config.DefaultSettings(),
		sessions:  make(map[string]*session.Session),
		startTime: time.Now(),
	}
	for _, o := range opts {
		o(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(defaultTimeout))

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/v1", func(r chi.Router) {
		// One-shot, stateless operations.
		r.Post("/detect", s.handleDetect)
		r.Post("/anonymize", s.handleAnonymize)
		r.Post("/deanonymize", s.handleDeanonymize)

		// Session-scoped flow: detect, curate entities, tokenize.
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Post("/detect", s.handleSessionDetect)
			r.Post("/anonymize", s.handleSessionAnonymize)
			r.Post("/deanonymize", s.handleSessionDeanonymize)
			r.Get("/entities", s.handleListEntities)
			r.Post("/entities", s.handleAddEntity)
			r.Delete("/entities", s.handleClearEntities)
			r.Delete("/entities/{index}", s.handleRemoveEntity)
			r.Get("/mapping", s.handleExportMapping)
			r.Put("/mapping", s.handleImportMapping)
		})
	})
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// newSession creates and registers a session with the server defaults.
func (s *Server) newSession() *session.Session {
	opts := []session.Option{session.WithSettings(s.settings)}
	if s.source != nil {
		opts = append(opts, session.WithExternalSource(s.source))
	}
	if s.kv != nil {
		opts = append(opts, session.WithStorage(s.kv))
	}
	sess := session.New(s.detector, opts...)

	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
	return sess
}

// lookupSession returns the registered session, or nil.
func (s *Server) lookupSession(id string) *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}
