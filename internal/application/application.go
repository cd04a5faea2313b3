package application

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/rmq-console/internal/api"
	"github.com/eugenenazirov/rmq-console/internal/config"
	"github.com/eugenenazirov/rmq-console/internal/metrics"
	"github.com/eugenenazirov/rmq-console/internal/properties"
)

// NotFoundPath is the page rendered for every request answered with 404.
const NotFoundPath = "/404"

// Option configures New.
type Option func(*options)

type options struct {
	props properties.Store
	env   properties.Env
}

// WithProperties replaces the process-wide property store, primarily for tests.
func WithProperties(store properties.Store) Option {
	return func(o *options) {
		o.props = store
	}
}

// WithEnv replaces the process environment, primarily for tests.
func WithEnv(env properties.Env) Option {
	return func(o *options) {
		o.env = env
	}
}

// App encapsulates the application dependencies and HTTP server.
type App struct {
	resolver *config.Resolver
	metrics  *metrics.Metrics
	watcher  *config.Watcher
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	o := options{
		props: properties.Global(),
		env:   properties.OSEnv{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	m := metrics.New()
	resolver := config.NewResolver(
		config.WithProperties(o.props),
		config.WithEnv(o.env),
		config.WithLogger(logger.Named("config")),
		config.WithRecorder(m),
	)
	config.Bind(resolver, cfg.Console)
	resolver.LatchIfForced()
	m.ObserveResolver(resolver)

	logger.Info("console configuration resolved",
		zap.String("namesrv_addr", resolver.NamesrvAddr()),
		zap.String("vip_channel", resolver.IsVIPChannel()),
		zap.String("data_path", resolver.RocketMqDashboardDataPath()),
		zap.Bool("login_required", resolver.ResolveLoginRequired()),
		zap.Bool("acl_enabled", resolver.IsACLEnabled()),
		zap.Bool("use_tls", resolver.UseTLS()),
	)

	var watcher *config.Watcher
	if cfg.WatchConfig && cfg.ConfigFile != "" {
		w, err := config.NewWatcher(cfg.ConfigFile, resolver, logger.Named("watcher"),
			config.WithOverrides(cfg.ConsoleOverrides),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create configuration watcher: %w", err)
		}
		watcher = w
	}

	handler := api.NewHandler(resolver)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithAdminRateLimit(cfg.AdminRateLimitRPS, cfg.AdminRateLimitBurst),
	)

	rootHandler := BuildRootHandler(apiRouter, m.Handler())

	return &App{
		resolver: resolver,
		metrics:  m,
		watcher:  watcher,
		handler:  handler,
		router:   apiRouter,
		logger:   logger,
		server:   NewServer(cfg, rootHandler),
	}, nil
}

// BuildRootHandler routes API and metrics traffic and maps 404 responses to
// the NotFoundPath page.
func BuildRootHandler(apiHandler, metricsHandler http.Handler) http.Handler {
	notFound := notFoundPage()

	mux := http.NewServeMux()
	mux.Handle("/api/", mapNotFound(apiHandler, notFound))
	mux.Handle("GET /metrics", metricsHandler)

	mux.Handle(NotFoundPath, notFound)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			notFound.ServeHTTP(w, r)
			return
		}
		http.Redirect(w, r, "/api/config", http.StatusFound)
	}))

	return mux
}

func notFoundPage() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<!DOCTYPE html><html><head><title>404</title></head>" +
			"<body><h1>404</h1><p>The requested page does not exist.</p></body></html>"))
	})
}

// mapNotFound renders page in place of any 404 produced by next.
func mapNotFound(next, page http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nw := &notFoundWriter{ResponseWriter: w}
		next.ServeHTTP(nw, r)
		if nw.notFound {
			page.ServeHTTP(w, r)
		}
	})
}

// notFoundWriter swallows a 404 status and its body so the caller can render
// the error page instead. Headers set before the status stay on w.
type notFoundWriter struct {
	http.ResponseWriter
	notFound bool
}

func (w *notFoundWriter) WriteHeader(status int) {
	if status == http.StatusNotFound {
		w.notFound = true
		return
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *notFoundWriter) Write(b []byte) (int, error) {
	if w.notFound {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the configuration watcher, if enabled, and the HTTP server in a
// goroutine.
func (a *App) Start() error {
	if a.watcher != nil {
		if err := a.watcher.Start(); err != nil {
			return fmt.Errorf("failed to start configuration watcher: %w", err)
		}
	}

	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Close releases background resources. The HTTP server is shut down separately.
func (a *App) Close() error {
	if a.watcher == nil {
		return nil
	}
	return a.watcher.Stop()
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Resolver returns the configuration resolver shared by the application.
func (a *App) Resolver() *config.Resolver {
	return a.resolver
}
