package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "expenses/internal/log"
	"expenses/internal/middleware/ratelimit"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"
	"expenses/internal/services"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP surface.
type Options struct {
	Addr               string
	DefaultOwner       string
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	CORSAllowedOrigins []string
}

// Deps are the services behind the handlers.
type Deps struct {
	Expenses  *services.ExpenseService
	Summaries *services.SummaryService
	Budgets   *services.BudgetService
	Store     Pinger
	Logger    *applog.Logger
}

type appMetrics struct {
	uptime time.Time
}

type Server struct {
	http.Server
	expenses     *services.ExpenseService
	summaries    *services.SummaryService
	budgets      *services.BudgetService
	store        Pinger
	defaultOwner string
	logger       *applog.Logger

	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware
	appMetrics       appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(opts Options, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	detector := security.NewDetector()
	s := &Server{
		expenses:         deps.Expenses,
		summaries:        deps.Summaries,
		budgets:          deps.Budgets,
		store:            deps.Store,
		defaultOwner:     opts.DefaultOwner,
		logger:           logger,
		securityDetector: detector,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		traceMiddleware: trace.NewMiddleware(logger, detector.ExtractClientIP),
		appMetrics:      appMetrics{uptime: time.Now()},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/expenses/summary", s.handleExpenseSummary)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /api/budget", s.handleGetBudget)
	mux.HandleFunc("POST /api/budget", s.handleSetBudget)
	mux.HandleFunc("GET /api/budget/status", s.handleBudgetStatus)

	var handler http.Handler = mux
	if opts.RequestTimeout > 0 {
		handler = http.TimeoutHandler(handler, opts.RequestTimeout, `{"error":"request timed out"}`)
	}
	handler = s.rateLimiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		logger.WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
	})(handler)
	handler = security.CORS(security.DefaultCORSConfig(opts.CORSAllowedOrigins))(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = detector.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// owner resolves the caller's owner key.
func (s *Server) owner(r *http.Request) string {
	return ownerFromRequest(r, s.defaultOwner)
}
