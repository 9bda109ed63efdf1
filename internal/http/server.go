package http

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"finboard/internal/advisor"
	"finboard/internal/analytics"
	"finboard/internal/core"
	"finboard/internal/csvcodec"
	"finboard/internal/log"
	"finboard/internal/middleware/ratelimit"
	"finboard/internal/middleware/security"
	"finboard/internal/middleware/trace"
	"finboard/internal/services"
	"finboard/internal/sheets"
	"finboard/internal/store"
)

// Ports the handlers depend on. The services package provides the
// production implementations.
type (
	TransactionWriter interface {
		Create(ctx context.Context, t core.Transaction) (core.Transaction, error)
		Update(ctx context.Context, id string, req store.UpdateRequest) (core.Transaction, error)
		Delete(ctx context.Context, id string) error
		Import(ctx context.Context, r io.Reader) (services.ImportReport, error)
		SubmitImport(ctx context.Context, filename, csv string) (string, error)
	}

	DashboardReader interface {
		Overview(ctx context.Context, c analytics.Criteria, mode analytics.SeriesMode) (analytics.Overview, error)
		Transactions(ctx context.Context, c analytics.Criteria, page, size int) (analytics.Page[core.Transaction], error)
		Categories(ctx context.Context, c analytics.Criteria, scope analytics.Scope, top int) ([]core.CategoryAmount, error)
		Monthly(ctx context.Context, c analytics.Criteria, mode analytics.SeriesMode) ([]core.MonthBucket, error)
		ExportReport(ctx context.Context, c analytics.Criteria, opts csvcodec.ReportOptions) (csvcodec.Report, error)
		All(ctx context.Context) ([]core.Transaction, error)
	}

	Assistant interface {
		Configured() bool
		Ask(ctx context.Context, question string, history []advisor.Message, txs []core.Transaction) (string, error)
	}
)

// Dependencies wires the server to the application services. Sheets and
// Advisor are optional; ReadyCheck, when set, backs /readyz.
type Dependencies struct {
	Transactions TransactionWriter
	Dashboard    DashboardReader
	Sheets       sheets.ReportWriter
	Advisor      Assistant
	ReadyCheck   func(ctx context.Context) error

	PageSize           int
	RateLimitPerMinute int
	CurrencySymbol     string
	Logger             *log.Logger
}

type Server struct {
	http.Server
	deps Dependencies
	now  func() time.Time

	logger           *log.StructuredLogger
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime       time.Time
	created      int64
	imported     int64
	exports      int64
	advisorCalls int64
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Dependencies) *Server {
	if deps.PageSize <= 0 {
		deps.PageSize = analytics.DefaultPageSize
	}
	if deps.CurrencySymbol == "" {
		deps.CurrencySymbol = csvcodec.DefaultCurrencySymbol
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}

	detector := security.NewDetector()
	structured := log.NewStructuredLogger(logger)
	s := &Server{
		deps:             deps,
		now:              time.Now,
		logger:           structured,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP, structured),
		appMetrics:       appMetrics{uptime: time.Now()},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/monthly", s.handleMonthly)

	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("GET /api/import/template", s.handleImportTemplate)
	mux.HandleFunc("GET /api/export.csv", s.handleExportCSV)
	mux.HandleFunc("POST /api/export/sheets", s.handleExportSheets)

	mux.HandleFunc("POST /api/advisor/chat", s.handleAdvisorChat)

	// Wrapped innermost first; trace ends up outermost and sees every
	// response, rate-limit rejections included.
	var h http.Handler = mux
	h = s.rateLimiter.Middleware(detector.ExtractClientIP, s.onRateLimit)(h)
	h = s.detectSuspicious(h)
	h = security.NewHeadersMiddleware(security.APIHeadersConfig()).Middleware(h)
	h = log.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(h)
	h = log.Middleware(logger)(h)
	h = s.traceMiddleware.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	// Ensure shutdown logic runs only once
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request, d ratelimit.Decision) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
		"retry_after", d.RetryAfter.Round(time.Second))
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").
		Header("Retry-After", d.RetryAfterSeconds()).
		Write(w)
}

// detectSuspicious logs probe-like requests. They are still served: the API
// has no paths that match the probes, so they end in a 404 anyway.
func (s *Server) detectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.securityDetector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) count(field *int64, n int) {
	atomic.AddInt64(field, int64(n))
}
