package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/pranit27-debug/Expense-Tracker/internal/core"
	applog "github.com/pranit27-debug/Expense-Tracker/internal/log"
	"github.com/pranit27-debug/Expense-Tracker/internal/middleware/ratelimit"
	"github.com/pranit27-debug/Expense-Tracker/internal/middleware/security"
	"github.com/pranit27-debug/Expense-Tracker/internal/middleware/trace"
	"github.com/pranit27-debug/Expense-Tracker/internal/view"
	appweb "github.com/pranit27-debug/Expense-Tracker/web"
)

// ExpenseService is what the handlers need from the service layer.
type ExpenseService interface {
	view.Loader
	Create(ctx context.Context, in core.ExpenseInput) (core.Expense, bool, error)
	Ready(ctx context.Context) error
}

// Config holds server settings.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	SummaryTopN        int
	TrustedProxies     []string
}

// appMetrics tracks application counters
type appMetrics struct {
	created   int64
	replayed  int64
	startedAt time.Time
}

type Server struct {
	http.Server
	svc       ExpenseService
	templates *template.Template
	logger    *applog.Logger
	topN      int

	traceMiddleware *trace.Middleware
	detector        *security.Detector
	rateLimiter     *ratelimit.Limiter
	metrics         appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a ready-to-run server.
func NewServer(cfg Config, svc ExpenseService, logger *applog.Logger) (*Server, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	proxies := cfg.TrustedProxies
	if proxies == nil {
		proxies = security.DefaultTrustedProxies
	}
	detector, err := security.NewDetector(proxies...)
	if err != nil {
		return nil, err
	}
	templates, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	limitCfg := ratelimit.DefaultConfig()
	limitCfg.RequestsPerMinute = cfg.RateLimitPerMinute

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		svc:             svc,
		templates:       templates,
		logger:          logger.WithComponent(applog.ComponentHTTP),
		topN:            cfg.SummaryTopN,
		traceMiddleware: trace.NewMiddleware(logger, detector.ClientIP),
		detector:        detector,
		rateLimiter:     ratelimit.NewLimiter(limitCfg),
		metrics:         appMetrics{startedAt: time.Now()},
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Not found").Write(w)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError().Write(w)
	})

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	// JSON API. /expenses/summary is registered before /expenses/{id}.
	router.HandleFunc("/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	router.HandleFunc("/expenses", s.handleListExpenses).Methods(http.MethodGet)
	router.HandleFunc("/expenses/summary", s.handleSummary).Methods(http.MethodGet)
	router.HandleFunc("/expenses/{id}", s.handleGetExpense).Methods(http.MethodGet)
	router.HandleFunc("/expenses/{id}", s.handleUpdateExpense).Methods(http.MethodPut)
	router.HandleFunc("/expenses/{id}", s.handleDeleteExpense).Methods(http.MethodDelete)

	// Server-rendered pages
	router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	router.HandleFunc("/ui/expenses", s.handleFormCreate).Methods(http.MethodPost)
	router.HandleFunc("/ui/expenses/{id}/edit", s.handleEditPage).Methods(http.MethodGet)
	router.HandleFunc("/ui/expenses/{id}", s.handleFormUpdate).Methods(http.MethodPost)
	router.HandleFunc("/ui/expenses/{id}/delete", s.handleDeletePage).Methods(http.MethodGet)
	router.HandleFunc("/ui/expenses/{id}/delete", s.handleFormDelete).Methods(http.MethodPost)

	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	router.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(static)).Methods(http.MethodGet)

	// Middleware wraps the router so 404s and 405s are traced and limited too.
	limited := s.rateLimiter.Middleware(detector.ClientIP, limitCfg.Methods, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, detector.ClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = router
	handler = limited(handler)
	handler = headers.Middleware(handler)
	handler = detector.Middleware(logger)(handler)
	handler = s.traceMiddleware.Middleware(handler)
	s.Handler = handler

	return s, nil
}

// Shutdown stops accepting requests, waits for in-flight ones and stops background work.
// Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
		s.logger.InfoContext(ctx, "HTTP server stopped", applog.FieldOperation, applog.OpShutdown)
	})
	return err
}

func (s *Server) recordCreate(created bool) {
	if created {
		atomic.AddInt64(&s.metrics.created, 1)
	} else {
		atomic.AddInt64(&s.metrics.replayed, 1)
	}
}
