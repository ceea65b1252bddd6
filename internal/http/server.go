package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/dashboard"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	appweb "expensetracker/web"
)

// DocumentStore is the part of the persistence store the server needs.
type DocumentStore interface {
	GetData(ctx context.Context) (core.Document, error)
	AddTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
	UpdateBudget(ctx context.Context, raw string) (decimal.Decimal, error)
}

// Pinger is implemented by media that can check their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config configures a Server. Zero values get defaults in NewServer.
type Config struct {
	Addr     string
	CacheTTL time.Duration
	Logger   *log.Logger
	// Now is the clock used for "today"; defaults to time.Now.
	Now func() time.Time
	// Pinger, when set, is checked by /readyz.
	Pinger    Pinger
	RateLimit ratelimit.Config
}

// Server serves the dashboard page and the JSON API.
type Server struct {
	http.Server
	store     DocumentStore
	templates *template.Template
	logger    *log.Logger
	now       func() time.Time
	pinger    Pinger
	started   time.Time

	summaries    *cache.LRUCache[dashboard.Summary]
	cacheManager *cache.Manager
	limiter      *ratelimit.Limiter
}

const (
	summaryCacheSize     = 16
	cacheCleanupInterval = 10 * time.Minute
	readTimeout          = 10 * time.Second
	writeTimeout         = 15 * time.Second
)

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(cfg Config, st DocumentStore) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := cfg.Logger.WithComponent(log.ComponentHTTP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, err
	}

	s := &Server{
		store:        st,
		templates:    t,
		logger:       logger,
		now:          cfg.Now,
		pinger:       cfg.Pinger,
		started:      cfg.Now(),
		summaries:    cache.NewLRUCache[dashboard.Summary](summaryCacheSize, cfg.CacheTTL),
		cacheManager: cache.NewManager(cfg.Logger),
		limiter:      ratelimit.NewLimiter(cfg.RateLimit),
	}
	s.cacheManager.Register(s.summaries)

	mux := http.NewServeMux()
	staticHandler := http.StripPrefix("/static/", http.FileServer(http.FS(static)))
	mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		staticHandler.ServeHTTP(w, r)
	}))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/document", s.handleDocument)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleAddTransaction)
	mux.HandleFunc("PUT /api/budget", s.handleUpdateBudget)
	mux.HandleFunc("POST /api/budget", s.handleUpdateBudget)

	ips := security.NewClientIPResolver()
	tracer := trace.NewMiddleware(logger, ips.ClientIP)
	limit := s.limiter.Middleware(ips.ClientIP, s.onRateLimited, http.MethodPost, http.MethodPut)

	var handler http.Handler = mux
	handler = limit(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}
	return s, nil
}

// RunMaintenance expires cached summaries and idle rate-limit entries until
// ctx is done.
func (s *Server) RunMaintenance(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.limiter.Run(ctx)
	}()
	err := s.cacheManager.Run(ctx, cacheCleanupInterval)
	<-done
	return err
}

// Run listens on Addr until ctx is cancelled, then shuts down gracefully
// within shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "addr", s.Addr)
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// summary returns the dashboard for doc as of today. Summaries are cached
// under the day plus a hash of the document, so writes made by another
// process through the same medium are never served stale.
func (s *Server) summary(ctx context.Context, doc core.Document) (dashboard.Summary, error) {
	now := s.now()
	raw, err := json.Marshal(doc)
	if err != nil {
		return dashboard.Summary{}, err
	}
	digest := sha256.Sum256(raw)
	key := core.FormatDate(now) + ":" + hex.EncodeToString(digest[:])

	sum, hit, err := s.summaries.GetOrCompute(key, func() (dashboard.Summary, error) {
		return dashboard.Build(doc, now), nil
	})
	if hit {
		log.FromContext(ctx).DebugContext(ctx, "Dashboard cache hit", "day", sum.Date)
	}
	return sum, err
}

// invalidate drops every cached summary after a write.
func (s *Server) invalidate() {
	s.summaries.Purge()
}
