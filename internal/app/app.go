// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/medops/opsdesk/api/openapi"
	"github.com/medops/opsdesk/internal/config"
	"github.com/medops/opsdesk/internal/domain"
	"github.com/medops/opsdesk/internal/escalation"
	"github.com/medops/opsdesk/internal/escalation/memory"
	"github.com/medops/opsdesk/internal/feed"
	"github.com/medops/opsdesk/internal/paging"
	"github.com/medops/opsdesk/internal/paging/mattermost"
	"github.com/medops/opsdesk/internal/paging/telegram"
	"github.com/medops/opsdesk/internal/pkg/ctxlog"
	"github.com/medops/opsdesk/internal/pkg/httputil"
	"github.com/medops/opsdesk/internal/pkg/metrics"
	"github.com/medops/opsdesk/internal/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const collectInterval = 15 * time.Second

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	store         *memory.Repository
	service       *escalation.Service
	server        *http.Server
	metricsServer *http.Server

	pagingQueue  *paging.MemoryQueue
	pagingWorker *paging.Worker
	feedWorker   *feed.Worker

	backgroundCancel context.CancelFunc
	background       sync.WaitGroup
}

// New creates a new application instance. Demo data is seeded here so the
// API serves it before any worker runs.
func New(cfg *config.Config) (*App, error) {
	logger := NewLogger(cfg.Log)

	storeConfig := memory.Config{MaxNotifications: cfg.Escalation.MaxNotifications}
	if cfg.Feed.SeedDemoData {
		storeConfig.InitialTasks = feed.DemoTasks()
	}

	app := &App{
		config:           cfg,
		logger:           logger,
		store:            memory.NewRepository(storeConfig),
		backgroundCancel: func() {},
	}

	var opts []escalation.Option
	if cfg.Paging.Enabled {
		notifier, err := app.setupPaging()
		if err != nil {
			return nil, fmt.Errorf("setup paging: %w", err)
		}
		opts = append(opts, escalation.WithNotifier(notifier))
	}

	app.service = escalation.NewService(app.store, escalation.NewSeedGenerator(cfg.Escalation.IDStrategy), opts...)

	if cfg.Feed.SeedDemoData {
		if err := feed.SeedDemo(context.Background(), app.service); err != nil {
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
	}

	if cfg.Feed.Enabled {
		simulator := feed.NewSimulator(cfg.Feed.Seed, feed.DemoHospitals(), feed.DemoStock())
		app.feedWorker = feed.NewWorker(feed.WorkerConfig{Interval: cfg.Feed.Interval}, simulator, app.service)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           app.setupRouter(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

func (a *App) setupPaging() (*paging.Notifier, error) {
	pc := a.config.Paging

	telegramSender, err := telegram.NewSender(telegram.Config{
		Enabled:   pc.Telegram.Enabled,
		BotToken:  pc.Telegram.BotToken,
		RateLimit: pc.Telegram.RateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram sender: %w", err)
	}
	if !pc.Telegram.Enabled {
		slog.Warn("telegram sender is disabled: telegram pages will not be sent")
	}

	// Mattermost needs no global settings; each team channel carries its webhook.
	mattermostSender := mattermost.NewSender(mattermost.Config{
		Username: pc.Mattermost.Username,
		IconURL:  pc.Mattermost.IconURL,
		Timeout:  pc.Mattermost.Timeout,
	})

	dispatcher := paging.NewDispatcher(mattermostSender, telegramSender)

	renderer, err := paging.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("create paging renderer: %w", err)
	}

	a.pagingQueue = paging.NewMemoryQueue()
	a.pagingWorker = paging.NewWorker(paging.WorkerConfig{
		BatchSize:         pc.Worker.BatchSize,
		PollInterval:      pc.Worker.PollInterval,
		MaxAttempts:       pc.Retry.MaxAttempts,
		InitialBackoff:    pc.Retry.InitialBackoff,
		MaxBackoff:        pc.Retry.MaxBackoff,
		BackoffMultiplier: pc.Retry.BackoffMultiplier,
		NumWorkers:        pc.Worker.NumWorkers,
	}, a.pagingQueue, dispatcher, renderer)

	channels := teamChannels(pc.Teams)
	slog.Info("paging configured",
		"teams", len(channels),
		"telegram_enabled", pc.Telegram.Enabled,
	)

	return paging.NewNotifier(paging.NotifierConfig{
		BaseURL:     pc.BaseURL,
		MaxAttempts: pc.Retry.MaxAttempts,
		Channels:    channels,
	}, a.pagingQueue, dispatcher), nil
}

func teamChannels(teams []config.TeamChannels) map[string][]domain.PagingChannel {
	channels := make(map[string][]domain.PagingChannel, len(teams))
	for _, t := range teams {
		for _, hook := range t.Mattermost {
			channels[t.Team] = append(channels[t.Team], domain.PagingChannel{Team: t.Team, Type: domain.ChannelTypeMattermost, Target: hook})
		}
		for _, chat := range t.Telegram {
			channels[t.Team] = append(channels[t.Team], domain.PagingChannel{Team: t.Team, Type: domain.ChannelTypeTelegram, Target: chat})
		}
	}
	return channels
}

// Start launches background workers and metrics collectors.
func (a *App) Start() {
	ctx, cancel := context.WithCancel(ctxlog.WithLogger(context.Background(), a.logger))
	a.backgroundCancel = cancel

	a.runBackground(func() {
		metrics.RunCollector(ctx, "store", collectInterval, func(ctx context.Context) error {
			stats, err := a.store.Stats(ctx)
			if err != nil {
				return err
			}
			escalation.RecordStoreStats(stats)
			return nil
		})
	})

	if a.pagingWorker != nil {
		a.pagingWorker.Start(ctx)
		a.runBackground(func() {
			metrics.RunCollector(ctx, "paging_queue", collectInterval, paging.QueueCollector(a.pagingQueue))
		})
	}

	if a.feedWorker != nil {
		a.feedWorker.Start(ctx)
	}
}

func (a *App) runBackground(fn func()) {
	a.background.Add(1)
	go func() {
		defer a.background.Done()
		fn()
	}()
}

// Run starts background work and the HTTP servers. It blocks until the main
// server stops.
func (a *App) Run() error {
	a.Start()

	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	// Producers stop before the store closes.
	if a.feedWorker != nil {
		a.feedWorker.Stop()
	}
	if a.pagingWorker != nil {
		a.pagingWorker.Stop()
	}
	a.backgroundCancel()
	a.background.Wait()

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	for name, srv := range map[string]*http.Server{"server": a.server, "metrics server": a.metricsServer} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Shutdown(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("shutdown %s: %w", name, err))
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	a.store.Close()

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// PagingQueue returns the paging queue, or nil when paging is disabled.
func (a *App) PagingQueue() *paging.MemoryQueue {
	return a.pagingQueue
}

func (a *App) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		_, _ = w.Write(openapi.Spec)
	})

	r.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(docsPage))
	})

	handler := escalation.NewHandler(a.service)
	r.Route("/api/v1", handler.RegisterRoutes)

	return r
}

const docsPage = `<!DOCTYPE html>
<html>
<head>
    <title>opsdesk API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: "/api/openapi.yaml",
            dom_id: '#swagger-ui',
            presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
            layout: "BaseLayout"
        });
    </script>
</body>
</html>`

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := a.store.Stats(r.Context()); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Store unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

// NewLogger builds the process logger from the log configuration.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
