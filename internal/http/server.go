// Package http serves the ledger JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"fintrack/internal/auth"
	flog "fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/reporting"
	"fintrack/internal/services"
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "fintrack_session"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the API. Metrics and Logger may be nil.
type Deps struct {
	Auth    *auth.Service
	Ledger  *services.LedgerService
	Reports *reporting.Service
	Store   Pinger
	Metrics *metrics.Metrics
	Logger  *flog.Logger
}

type Options struct {
	CORSAllowedOrigins []string
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	auth     *auth.Service
	ledger   *services.LedgerService
	reports  *reporting.Service
	store    Pinger
	metrics  *metrics.Metrics
	logger   *flog.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	started  time.Time
}

func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = flog.FromContext(context.Background())
	}
	logger = logger.WithComponent(flog.ComponentHTTP)

	rlCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rlCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		auth:     deps.Auth,
		ledger:   deps.Ledger,
		reports:  deps.Reports,
		store:    deps.Store,
		metrics:  deps.Metrics,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(rlCfg),
		detector: security.NewDetector(),
		started:  time.Now(),
	}

	s.Handler = h2c.NewHandler(s.routes(opts), &http2.Server{})
	s.Addr = addr
	s.ReadTimeout = 10 * time.Second
	s.WriteTimeout = 10 * time.Second
	s.IdleTimeout = 60 * time.Second
	s.MaxHeaderBytes = 1 << 16
	return s
}

func (s *Server) routes(opts Options) http.Handler {
	var observer trace.Observer
	if s.metrics != nil {
		observer = s.metrics
	}
	tracer := trace.NewMiddleware(s.detector.ExtractClientIP, observer)

	r := chi.NewRouter()
	r.Use(tracer.Middleware)
	r.Use(flog.Middleware(s.logger, trace.RequestID))
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.detector.Middleware)
	if len(opts.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.handleSignup)
			r.Post("/login", s.handleLogin)
			r.With(s.requireUser).Post("/logout", s.handleLogout)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)

			r.Route("/api", func(api chi.Router) {
				api.Get("/expenses", s.handleListExpenses)
				api.Post("/expenses", s.handleCreateExpense)
				api.Put("/expenses/{id}", s.handleUpdateExpense)
				api.Delete("/expenses/{id}", s.handleDeleteExpense)

				api.Get("/categories", s.handleListCategories)
				api.Post("/categories", s.handleAddCategory)

				api.Get("/budgets", s.handleListBudgets)
				api.Post("/budgets", s.handleSetBudget)

				api.Get("/recurring", s.handleListRecurring)
				api.Post("/recurring", s.handleCreateRecurring)

				api.Get("/overview", s.handleOverview)
				api.Get("/summary", s.handleCategorySummary)
				api.Get("/monthly", s.handleMonthly)
				api.Get("/budget-vs-actual", s.handleBudgetVsActual)
			})
			r.Get("/export", s.handleExport)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})
	return r
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn("Rate limit exceeded",
		flog.FieldClientIP, s.detector.ExtractClientIP(r),
		flog.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
}

// Shutdown drains connections and stops the rate limiter janitor.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server", flog.FieldOperation, flog.OpShutdown)
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

