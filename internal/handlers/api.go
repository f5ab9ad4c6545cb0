package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chorequest/internal/logger"
	"chorequest/internal/service"
)

// InsightsReader serves computed family insights
type InsightsReader interface {
	ForFamily(ctx context.Context, familyID int64, now time.Time) (*service.FamilyInsights, error)
}

// GridReader serves weekly chore grids
type GridReader interface {
	ForFamily(ctx context.Context, familyID int64, now time.Time) (*service.WeeklyGrid, error)
}

// DigestPreviewer renders a family's digest without sending it
type DigestPreviewer interface {
	Preview(ctx context.Context, familyID int64, now time.Time) (*service.Digest, error)
}

// RequestLimiter throttles API clients
type RequestLimiter interface {
	Middleware(next http.Handler) http.Handler
}

// API is the dashboard HTTP API
type API struct {
	insights InsightsReader
	grid     GridReader
	digest   DigestPreviewer
	mw       *Middleware
	limiter  RequestLimiter
	startup  *StartupStatus
	timeout  time.Duration
	logger   *logger.Logger
}

// APIOptions configures optional parts of the API
type APIOptions struct {
	Limiter        RequestLimiter
	Startup        *StartupStatus
	RequestTimeout time.Duration
}

// NewAPI creates the dashboard API
func NewAPI(insights InsightsReader, grid GridReader, digest DigestPreviewer, tokens TokenValidator, log *logger.Logger, opts APIOptions) *API {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.Named("http")
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	return &API{
		insights: insights,
		grid:     grid,
		digest:   digest,
		mw:       NewMiddleware(tokens, log),
		limiter:  opts.Limiter,
		startup:  opts.Startup,
		timeout:  opts.RequestTimeout,
		logger:   log,
	}
}

// Handler returns the chi router with all routes mounted
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.mw.Logging)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if a.startup != nil {
		r.Method(http.MethodGet, "/ready", a.startup)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/families/{familyID}", func(r chi.Router) {
		r.Use(middleware.Timeout(a.timeout))
		if a.limiter != nil {
			r.Use(a.limiter.Middleware)
		}
		r.Use(a.mw.RequireFamilyToken)

		r.Get("/insights", a.handleInsights)
		r.Get("/weekly-grid", a.handleWeeklyGrid)
		r.Get("/digest/preview", a.handleDigestPreview)
	})

	return r
}
