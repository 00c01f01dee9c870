// Package api implements the HTTP layer for Gift Genius. Handlers are
// methods on *Server. Each handler file is responsible for one resource group
// and only uses the dependencies it needs.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nyashahama/gift-genius-backend/internal/gift"
	"github.com/nyashahama/gift-genius-backend/internal/worker"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// Env is "production", "staging", or "development".
	Env string

	// AllowedOrigins for CORS. Empty means "*".
	AllowedOrigins []string

	// RateLimitPerMinute caps recommendation requests per client IP.
	RateLimitPerMinute int

	// RequestTimeout bounds every request. Recommendation requests make
	// several AI calls, so keep it generous. Default: 60s.
	RequestTimeout time.Duration
}

// ─── COLLABORATORS ────────────────────────────────────────────────────────────

// Recommender produces the three gift picks. *recommend.Pipeline satisfies
// it.
type Recommender interface {
	Recommend(ctx context.Context, profile gift.Profile) (*gift.Picks, error)
}

// PersonaStore is the persona CRUD surface of *store.Store.
type PersonaStore interface {
	CreatePersona(ctx context.Context, p gift.Persona) (gift.Persona, error)
	GetPersona(ctx context.Context, id string) (gift.Persona, error)
	ListPersonas(ctx context.Context, userID string) ([]gift.Persona, error)
	UpdatePersona(ctx context.Context, p gift.Persona) (gift.Persona, error)
	DeletePersona(ctx context.Context, id string) error
}

// CuratedPool is the admin surface of *uniques.Pool.
type CuratedPool interface {
	Refresh(ctx context.Context) []gift.Product
	Clear(ctx context.Context) error
}

// Deps wires a Server. Reminders and Uniques may be nil; their routes then
// answer 503.
type Deps struct {
	Recommender Recommender
	Personas    PersonaStore
	Reminders   worker.Triggerer
	Uniques     CuratedPool
	Metrics     http.Handler
	Logger      *slog.Logger
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	rec       Recommender
	personas  PersonaStore
	reminders worker.Triggerer
	uniques   CuratedPool
	metrics   http.Handler

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.Server.
func NewServer(d Deps, cfg Config) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 30
	}
	s := &Server{
		rec:       d.Recommender,
		personas:  d.Personas,
		reminders: d.Reminders,
		uniques:   d.Uniques,
		metrics:   d.Metrics,
		cfg:       cfg,
		logger:    d.Logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware())
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	// ── API ───────────────────────────────────────────────────────────────────
	// Recommendation routes run the full pipeline and share one per-IP limit.
	limit := s.rateLimitMiddleware()

	r.Route("/api", func(r chi.Router) {

		r.With(limit).Post("/recommendations", s.handleRecommend)

		r.Route("/personas", func(r chi.Router) {
			r.Post("/", s.handleCreatePersona)
			r.Get("/", s.handleListPersonas)
			r.Get("/{personaID}", s.handleGetPersona)
			r.Put("/{personaID}", s.handleUpdatePersona)
			r.Delete("/{personaID}", s.handleDeletePersona)
			r.With(limit).Post("/{personaID}/recommendations", s.handlePersonaRecommend)
		})

		r.Post("/reminders/run", s.handleRunReminders)

		r.Post("/uniques/refresh", s.handleRefreshUniques)
		r.Delete("/uniques", s.handleClearUniques)
	})

	return r
}
