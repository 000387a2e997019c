package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"receipts/internal/auth"
	"receipts/internal/cache"
	applog "receipts/internal/log"
	"receipts/internal/middleware/ratelimit"
	"receipts/internal/middleware/security"
	"receipts/internal/middleware/trace"
	"receipts/internal/reports"
	"receipts/internal/services"
	appweb "receipts/web"
)

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the HTTP layer renders and mutates through.
type Deps struct {
	Receipts *services.ReceiptService
	Reports  *reports.Service
	Auth     *auth.Manager
	Store    Pinger
	Logger   *applog.Logger

	RateLimitRPM    int
	TrustedProxies  []string
	ReportCacheSize int
	ReportCacheTTL  time.Duration
}

type Server struct {
	http.Server
	pages    map[string]*template.Template
	receipts *services.ReceiptService
	reports  *reports.Service
	auth     *auth.Manager
	store    Pinger
	logger   *applog.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector

	// Computed reports keyed by user:<id>:<start>:<end>.
	reportCache  cache.Cache[reports.Report]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer parses templates, wires middleware and registers every route.
func NewServer(addr string, deps Deps) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = applog.Default(applog.ComponentHTTP)
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	pages, err := parsePages(appweb.TemplatesFS)
	if err != nil {
		return nil, err
	}

	cacheSize := deps.ReportCacheSize
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cacheTTL := deps.ReportCacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Minute
	}

	s := &Server{
		pages:        pages,
		receipts:     deps.Receipts,
		reports:      deps.Reports,
		auth:         deps.Auth,
		store:        deps.Store,
		logger:       logger,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitRPM, CleanupInterval: 5 * time.Minute}),
		detector:     security.NewDetector(),
		cacheManager: cache.NewManager(),
	}
	reportCache := cache.NewLRUCache[reports.Report](cacheSize, cacheTTL)
	s.reportCache = reportCache
	s.cacheManager.Register(reportCache)
	for _, cidr := range deps.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.limiter.Stop()
			return nil, fmt.Errorf("trusted proxy %q: %w", cidr, err)
		}
	}

	s.cacheManager.StartCleanup(10 * time.Minute)
	s.receipts.OnChange(s.invalidateReports)

	mux := http.NewServeMux()
	s.routes(mux)

	tracer := trace.NewMiddleware(s.detector.ExtractClientIP, logger)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = mux
	handler = s.auth.Middleware(handler)
	handler = s.limiter.Middleware(s.detector.ExtractClientIP)(handler)
	handler = security.SameOrigin(handler)
	handler = headers.Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	protected := func(h http.HandlerFunc) http.Handler {
		return auth.RequireUser(h)
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.Handle("GET /dashboard/{$}", protected(s.handleDashboard))

	mux.Handle("GET /signup/{$}", security.NoStore(http.HandlerFunc(s.handleSignupForm)))
	mux.HandleFunc("POST /signup/{$}", s.handleSignup)
	mux.Handle("GET /login/{$}", security.NoStore(http.HandlerFunc(s.handleLoginForm)))
	mux.HandleFunc("POST /login/{$}", s.handleLogin)
	mux.HandleFunc("/logout/{$}", s.handleLogout)
	mux.HandleFunc("GET /logout-page/{$}", s.handleLogoutPage)

	mux.Handle("GET /upload/{$}", protected(s.handleUploadForm))
	mux.Handle("POST /upload/{$}", protected(s.handleUpload))
	mux.Handle("POST /delete/{id}/{$}", protected(s.handleDelete))
	mux.Handle("GET /receipt/{id}/{$}", protected(s.handleReceiptDetail))
	mux.Handle("GET /receipt/{id}/image", protected(s.handleReceiptImage))

	mux.Handle("GET /reports/{$}", protected(s.handleReports))
	mux.Handle("GET /reports/data", protected(s.handleReportData))
	mux.Handle("GET /export/{$}", protected(s.handleExportDataset))
	mux.Handle("GET /export/report/{$}", protected(s.handleExportReport))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
}

func reportCachePrefix(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10) + ":"
}

func (s *Server) invalidateReports(userID int64) {
	if n := s.reportCache.DeletePrefix(reportCachePrefix(userID)); n > 0 {
		s.logger.Debug("Report cache invalidated", applog.FieldUserID, userID, applog.FieldCount, n)
	}
}

// Shutdown stops background sweepers, then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
