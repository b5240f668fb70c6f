// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"moneytracker/internal/cache"
	"moneytracker/internal/core"
	"moneytracker/internal/ledger"
	"moneytracker/internal/log"
	"moneytracker/internal/middleware/ratelimit"
	"moneytracker/internal/middleware/security"
	"moneytracker/internal/services"
)

// Config wires the server to the application graph. Limiter and StatsCache
// are optional.
type Config struct {
	Addr         string
	Store        *ledger.Store
	Stats        *ledger.Stats
	Processor    *services.RecurringProcessor
	Checkpointer *services.Checkpointer
	StatsCache   *cache.RevisionCache[core.MonthlyStats]
	Limiter      *ratelimit.Limiter
	Clock        core.Clock
	NewID        func() string
	Logger       *log.Logger

	// TrustProxyHeaders rewrites RemoteAddr from X-Forwarded-For and
	// X-Real-IP. Off, a client cannot pick the address it is limited by.
	TrustProxyHeaders bool
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server

	store        *ledger.Store
	stats        *ledger.Stats
	processor    *services.RecurringProcessor
	checkpointer *services.Checkpointer
	statsCache   *cache.RevisionCache[core.MonthlyStats]
	limiter      *ratelimit.Limiter
	clock        core.Clock
	newID        func() string
	logger       *log.Logger
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.DefaultConfig())
	}
	if cfg.Clock == nil {
		cfg.Clock = core.SystemClock
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Stats == nil {
		cfg.Stats = ledger.NewStats(cfg.Store, nil)
	}

	s := &Server{
		router:       chi.NewRouter(),
		store:        cfg.Store,
		stats:        cfg.Stats,
		processor:    cfg.Processor,
		checkpointer: cfg.Checkpointer,
		statsCache:   cfg.StatsCache,
		limiter:      cfg.Limiter,
		clock:        cfg.Clock,
		newID:        cfg.NewID,
		logger:       cfg.Logger.WithComponent(log.ComponentHTTP),
	}

	s.setupMiddleware(cfg.TrustProxyHeaders)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:           cfg.Addr,
		Handler:        s.router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16, // 64KB
	}
	return s
}

func (s *Server) setupMiddleware(trustProxy bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	if trustProxy {
		s.router.Use(middleware.RealIP)
	}
	s.router.Use(log.Middleware(s.logger))
	s.router.Use(security.Headers(security.DefaultHeadersConfig()))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/accounts", s.handleAccounts)
		r.Get("/accounts/{id}", getEntity(s, accounts))
		r.Get("/accounts/{id}/balance", s.handleAccountBalance)
		r.Get("/categories", s.handleListCategories)
		r.Get("/categories/{id}", getEntity(s, categories))
		r.Get("/projects", s.handleListProjects)
		r.Get("/projects/{id}", getEntity(s, projects))
		r.Get("/networth", s.handleNetWorth)
		r.Get("/dashboard", s.handleDashboard)

		r.Route("/stats", func(r chi.Router) {
			r.Get("/monthly", s.handleMonthlyStats)
			r.Get("/period", s.handlePeriodStats)
			r.Get("/categories", s.handleExpensesByCategory)
			r.Get("/trend", s.handleTrend)
		})

		r.Get("/transactions", s.handleListTransactions)
		r.Get("/transactions/{id}", getEntity(s, transactions))
		r.Get("/recurring", s.handleListRecurring)
		r.Get("/recurring/{id}", getEntity(s, recurringTemplates))

		r.Route("/export", func(r chi.Router) {
			r.Get("/transactions.csv", s.handleExportCSV)
			r.Get("/backup.json", s.handleExportBackup)
		})

		// Mutations
		r.Group(func(r chi.Router) {
			if s.limiter != nil {
				r.Use(s.limiter.Middleware(s.rateLimited))
			}
			r.Post("/transactions", s.handleCreateTransaction)
			r.Patch("/transactions/{id}", patchEntity(s, transactions))
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)

			r.Post("/accounts", createEntity(s, accounts))
			r.Patch("/accounts/{id}", patchEntity(s, accounts))
			r.Delete("/accounts/{id}", deleteEntity(s, accounts))

			r.Post("/categories", createEntity(s, categories))
			r.Patch("/categories/{id}", patchEntity(s, categories))
			r.Delete("/categories/{id}", deleteEntity(s, categories))

			r.Post("/projects", createEntity(s, projects))
			r.Patch("/projects/{id}", patchEntity(s, projects))
			r.Delete("/projects/{id}", deleteEntity(s, projects))

			r.Post("/recurring", createEntity(s, recurringTemplates))
			r.Post("/recurring/process", s.handleProcessRecurring)
			r.Patch("/recurring/{id}", patchEntity(s, recurringTemplates))
			r.Delete("/recurring/{id}", deleteEntity(s, recurringTemplates))
		})
	})
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called. A graceful shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
	return s.server.Shutdown(ctx)
}

// checkpoint persists the store after a mutation. Failures are logged: the
// change is already applied in memory and the next checkpoint retries.
func (s *Server) checkpoint(ctx context.Context) {
	if s.checkpointer == nil {
		return
	}
	if _, err := s.checkpointer.Checkpoint(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Checkpoint after mutation failed", log.FieldError, err)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, retry later")
}
