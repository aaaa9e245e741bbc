package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"

	"github.com/go-playground/validator/v10"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the API is built on.
type Deps struct {
	Ledger     *services.LedgerService
	Aggregator *services.Aggregator
	Insights   *services.InsightGenerator
	Store      Pinger
}

type Options struct {
	Logger             *applog.Logger
	Auth               *Authenticator
	CacheSize          int
	CacheTTL           time.Duration
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	ledger   *services.LedgerService
	agg      *services.Aggregator
	insights *services.InsightGenerator
	store    Pinger

	auth     *Authenticator
	limiter  *ratelimit.Limiter
	validate *validator.Validate
	logger   *applog.Logger
	now      func() time.Time

	// Month summaries keyed by user and month; dropped on every write.
	summaryCache *cache.LRUCache[core.Summary]
	cacheManager *cache.Manager

	// Per-user write generation. A summary computed under an older
	// generation is never cached.
	genMu sync.Mutex
	gens  map[int64]uint64

	shutdownOnce sync.Once
}

// NewServer registers the JSON API routes and returns a ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	logger := opts.Logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		ledger:       deps.Ledger,
		agg:          deps.Aggregator,
		insights:     deps.Insights,
		store:        deps.Store,
		auth:         opts.Auth,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		validate:     newValidator(),
		logger:       logger,
		now:          time.Now,
		summaryCache: cache.NewLRUCache[core.Summary](opts.CacheSize, opts.CacheTTL),
		cacheManager: cache.NewManager(),
		gens:         make(map[int64]uint64),
	}
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	api := http.NewServeMux()
	for _, kind := range []core.Kind{core.KindExpense, core.KindIncome} {
		base := "/api/" + kind.String()
		api.HandleFunc("GET "+base+"/types", s.handleListCategories(kind))
		api.HandleFunc("POST "+base+"/types", s.handleCreateCategory(kind))
		api.HandleFunc("GET "+base+"/types/{name}/total", s.handleCategoryTotal(kind))
		api.HandleFunc("GET "+base+"/total", s.handleKindTotal(kind))
		api.HandleFunc("POST "+base, s.handleCreateEntry(kind))
		api.HandleFunc("PATCH "+base+"/{id}", s.handleUpdateEntry(kind))
		api.HandleFunc("DELETE "+base+"/{id}", s.handleDeleteEntry(kind))
	}
	api.HandleFunc("GET /api/ledger", s.handleLedger)
	api.HandleFunc("GET /api/goals", s.handleListGoals)
	api.HandleFunc("POST /api/goals", s.handleUpsertGoal)
	api.HandleFunc("GET /api/goals/{name}", s.handleGoalProgress)
	api.HandleFunc("GET /api/report", s.handleReport)
	api.HandleFunc("DELETE /api/report", s.handleDeleteReport)
	api.HandleFunc("GET /api/report/status", s.handleReportStatus)
	api.HandleFunc("GET /api/insights", s.handleInsights)
	api.HandleFunc("DELETE /api/insights", s.handleClearMonth)

	var apiHandler http.Handler = api
	if s.auth != nil {
		apiHandler = s.auth.Middleware(apiHandler)
	}
	apiHandler = s.limiter.Middleware(security.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, security.ClientIP(r), applog.FieldPath, r.URL.Path)
		writeError(w, r, errRateLimited)
	})(apiHandler)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	var handler http.Handler = mux
	handler = applog.RequestIDMiddleware(trace.RequestID)(handler)
	handler = applog.Middleware(logger)(handler)
	handler = trace.NewMiddleware(security.ClientIP, logger).Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops background cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func summaryKey(userID int64, month time.Time) string {
	return fmt.Sprintf("summary:%d:%s", userID, month.Format(core.MonthLayout))
}

// summary returns the cached month summary, computing it on a miss.
func (s *Server) summary(ctx context.Context, userID int64, month time.Time) (core.Summary, error) {
	key := summaryKey(userID, month)
	if cached, ok := s.summaryCache.Get(key); ok {
		return cached, nil
	}
	gen := s.generation(userID)
	s.logger.DebugContext(ctx, "Summary cache miss",
		applog.FieldOperation, applog.OpSummary,
		applog.FieldUserID, userID,
		applog.FieldMonth, month.Format(core.MonthLayout))
	sum, err := s.agg.Summarize(ctx, userID, month)
	if err != nil {
		return core.Summary{}, err
	}

	s.genMu.Lock()
	if s.gens[userID] == gen {
		s.summaryCache.Set(key, sum)
	}
	s.genMu.Unlock()
	return sum, nil
}

func (s *Server) generation(userID int64) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[userID]
}

// invalidate drops every cached summary of the user and bumps its
// generation so in-flight computations are not cached.
func (s *Server) invalidate(userID int64) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.gens[userID]++
	prefix := fmt.Sprintf("summary:%d:", userID)
	s.summaryCache.DeleteFunc(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

func currentUser(r *http.Request) int64 {
	id, _ := UserID(r.Context())
	return id
}
