package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"finanzapp/internal/core"
	"finanzapp/internal/format"
	"finanzapp/internal/locale"
	"finanzapp/internal/log"
	"finanzapp/internal/middleware/ratelimit"
	"finanzapp/internal/middleware/security"
	"finanzapp/internal/middleware/trace"
	"finanzapp/internal/services"
)

// ExpenseService is what the API needs from the expense service.
type ExpenseService interface {
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	ListExpenses(ctx context.Context, f core.Filter) (services.Page, error)
	MonthSummary(ctx context.Context, projectID string, year, month int) (services.MonthSummary, error)
}

// CommentService is what the API needs to manage expense comments.
type CommentService interface {
	AddComment(ctx context.Context, expenseID, author, text string) (core.Comment, error)
	Comments(ctx context.Context, expenseID string) ([]core.Comment, error)
	DeleteComment(ctx context.Context, id string) error
}

// Deps carries the collaborators of the server.
type Deps struct {
	Expenses ExpenseService
	// Comments enables the comment routes when set.
	Comments  CommentService
	Formatter *format.Formatter
	Logger    *log.Logger

	// Per-client budgets for /api routes; zero disables the budget.
	RateLimitPerMinute  int
	WriteLimitPerMinute int
	// TrustedProxies are CIDRs allowed to set X-Forwarded-For, in addition
	// to loopback and private ranges.
	TrustedProxies []string
	// Ready reports whether dependencies are usable; nil means always ready.
	Ready func(context.Context) error
	Now   func() time.Time
}

type Server struct {
	http.Server
	expenses  ExpenseService
	comments  CommentService
	formatter *format.Formatter
	logger    *log.Logger
	ready     func(context.Context) error
	now       func() time.Time

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	trace       *trace.Middleware
	metrics     appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	formatter := deps.Formatter
	if formatter == nil {
		formatter = defaultFormatter()
	}

	s := &Server{
		expenses:  deps.Expenses,
		comments:  deps.Comments,
		formatter: formatter,
		logger:    logger.WithComponent(log.ComponentHTTP),
		ready:     deps.Ready,
		now:       now,
		detector:  security.NewDetector(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitPerMinute,
			WritesPerMinute:   deps.WriteLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
		}),
		metrics: appMetrics{startedAt: now()},
	}
	for _, cidr := range deps.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err.Error())
		}
	}
	s.trace = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	r := mux.NewRouter()
	withEnvelopeErrors(r)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	// Subrouters resolve their own misses; without these /api answers a
	// wrong method with a bare 404.
	withEnvelopeErrors(api)
	api.Use(s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit))

	api.HandleFunc("/expenses", s.handleListExpenses).Methods(http.MethodGet)
	api.HandleFunc("/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	// Registered before {id} so "summary" is not taken for an id.
	api.HandleFunc("/expenses/summary", s.handleMonthSummary).Methods(http.MethodGet)
	api.HandleFunc("/expenses/{id}", s.handleGetExpense).Methods(http.MethodGet)
	api.HandleFunc("/expenses/{id}", s.handleUpdateExpense).Methods(http.MethodPut)
	api.HandleFunc("/expenses/{id}", s.handleDeleteExpense).Methods(http.MethodDelete)
	api.HandleFunc("/forms/expense/blur", s.handleExpenseBlur).Methods(http.MethodPost)
	api.HandleFunc("/format/currency", s.handleFormatCurrency).Methods(http.MethodGet)
	api.HandleFunc("/tax/validate-rfc", s.handleValidateRFC).Methods(http.MethodPost)
	api.HandleFunc("/tax/calculate-tax", s.handleCalculateTax).Methods(http.MethodPost)
	api.HandleFunc("/tax/check-deductible", s.handleCheckDeductible).Methods(http.MethodPost)
	if s.comments != nil {
		api.HandleFunc("/expenses/{id}/comments", s.handleListComments).Methods(http.MethodGet)
		api.HandleFunc("/expenses/{id}/comments", s.handleAddComment).Methods(http.MethodPost)
		api.HandleFunc("/comments/{id}", s.handleDeleteComment).Methods(http.MethodDelete)
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = r
	handler = headers.Middleware(handler)
	handler = s.detector.Middleware(logger)(handler)
	handler = s.trace.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.requestLogger(r).WarnContext(r.Context(), "Rate limit exceeded",
		log.NewFields().
			WithHTTPRequest(r.Method, r.URL.Path, "", r.Header.Get("User-Agent")).
			WithClientIP(s.detector.ExtractClientIP(r)).ToSlice()...)
	TooManyRequestsError().Write(w)
}

// requestLogger returns the request-scoped logger set by the trace
// middleware, reporting as the HTTP component.
func (s *Server) requestLogger(r *http.Request) *log.Logger {
	return log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)
}

func defaultFormatter() *format.Formatter {
	reg, err := locale.Builtin()
	if err != nil {
		return format.New(locale.Profile{})
	}
	return format.New(reg.Default())
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func withEnvelopeErrors(r *mux.Router) {
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		NotFoundError("Not found").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed").Write(w)
	})
}
