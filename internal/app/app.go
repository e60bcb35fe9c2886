// Package app provides application initialization and wiring.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gorilla/mux"

	"github.com/developmentseed/stac-tiler/internal/adapters/expreval"
	"github.com/developmentseed/stac-tiler/internal/adapters/fetch"
	httpAdapter "github.com/developmentseed/stac-tiler/internal/adapters/http"
	"github.com/developmentseed/stac-tiler/internal/adapters/metrics"
	"github.com/developmentseed/stac-tiler/internal/adapters/raster"
	"github.com/developmentseed/stac-tiler/internal/adapters/tilecache"
	tlsAdapter "github.com/developmentseed/stac-tiler/internal/adapters/tls"
	"github.com/developmentseed/stac-tiler/internal/adapters/watcher"
	"github.com/developmentseed/stac-tiler/internal/application"
	"github.com/developmentseed/stac-tiler/internal/config"
	"github.com/developmentseed/stac-tiler/internal/ports/output"
)

// App holds all application components.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Resolver      *fetch.Resolver
	Registry      *application.ItemRegistry
	HealthService *application.HealthService
	TileCache     *tilecache.SQLiteCache
	Janitor       *application.CacheJanitor
	HTTPServer    *httpAdapter.Server
	TLSServer     *tlsAdapter.Server
	Watcher       *watcher.Watcher
	Metrics       *metrics.Collector
}

// New creates and initializes a new application.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize metrics
	if cfg.Metrics.Enabled {
		app.Metrics = metrics.NewCollector("stac_tiler")
	}

	var metricsCollector output.MetricsCollector
	if app.Metrics != nil {
		metricsCollector = app.Metrics
	} else {
		metricsCollector = &output.NoOpMetrics{}
	}

	// Initialize item fetcher
	resolver, err := fetch.NewResolver(
		fetch.Config{
			CacheSize: cfg.Fetch.CacheSize,
			Timeout:   cfg.Fetch.Timeout,
			Username:  cfg.Fetch.Username,
			Password:  cfg.Fetch.Password,
			S3: fetch.S3Config{
				Region:          cfg.Fetch.S3.Region,
				Endpoint:        cfg.Fetch.S3.Endpoint,
				AccessKeyID:     cfg.Fetch.S3.AccessKeyID,
				SecretAccessKey: cfg.Fetch.S3.SecretAccessKey,
			},
			Azure: fetch.AzureConfig{
				AccountName:      cfg.Fetch.Azure.AccountName,
				AccountKey:       cfg.Fetch.Azure.AccountKey,
				ConnectionString: cfg.Fetch.Azure.ConnectionString,
			},
		},
		metricsCollector,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("initializing item fetcher: %w", err)
	}
	app.Resolver = resolver

	// Initialize item registry
	app.Registry = application.NewItemRegistry(resolver, metricsCollector, logger)
	for _, item := range cfg.Items {
		app.Registry.Register(item.ID, item.Location)
	}

	// Initialize health service
	app.HealthService = application.NewHealthService(app.Registry)

	// Initialize tile cache and its janitor
	if cfg.TileCache.Enabled {
		cache, err := tilecache.New(tilecache.Config{
			Path: cfg.TileCache.Path,
			TTL:  cfg.TileCache.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing tile cache: %w", err)
		}
		app.TileCache = cache
		app.Janitor = application.NewCacheJanitor(cache, cfg.TileCache.PruneInterval, logger)
	}

	var middleware []mux.MiddlewareFunc
	if app.Metrics != nil {
		middleware = append(middleware, app.Metrics.Middleware)
	}

	deps := httpAdapter.Deps{
		Registry:   app.Registry,
		Health:     app.HealthService,
		Janitor:    app.Janitor,
		Opener:     raster.NewRemoteOpener(raster.Config{Endpoint: cfg.Raster.Endpoint, Timeout: cfg.Raster.Timeout}),
		Evaluator:  expreval.NewEngine(),
		Metrics:    metricsCollector,
		Middleware: middleware,
		Logger:     logger,
	}
	if app.TileCache != nil {
		deps.TileCache = app.TileCache
	}

	app.HTTPServer = httpAdapter.NewServer(cfg.Server, cfg.Reader, deps)

	if app.Metrics != nil {
		app.HTTPServer.Router().Handle(cfg.Metrics.Path, metrics.Handler()).Methods("GET")
	}

	// Initialize TLS server if enabled
	if cfg.TLS.Enabled {
		tlsServer, err := tlsAdapter.NewServer(
			tlsAdapter.Config{
				Enabled:  cfg.TLS.Enabled,
				Domains:  cfg.TLS.Domains,
				Email:    cfg.TLS.Email,
				CacheDir: cfg.TLS.CacheDir,
				Staging:  cfg.TLS.Staging,
				DNS: tlsAdapter.DNSConfig{
					SubscriptionID:    cfg.TLS.DNS.SubscriptionID,
					ResourceGroupName: cfg.TLS.DNS.ResourceGroupName,
					ClientID:          cfg.TLS.DNS.ClientID,
				},
			},
			app.HTTPServer.Router(),
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("initializing TLS: %w", err)
		}
		app.TLSServer = tlsServer
	}

	// Initialize file watcher for hot-reload of item documents
	if cfg.Watcher.Enabled {
		w, err := watcher.New(
			watcher.Config{
				Paths: []string{cfg.Watcher.Dir},
			},
			app.handleFileEvent,
			logger,
		)
		if err != nil {
			logger.Warn("failed to initialize file watcher", "error", err)
		} else {
			app.Watcher = w
		}
	}

	return app, nil
}

// Start starts all application components.
func (a *App) Start(ctx context.Context) error {
	// Load all registered items
	if err := a.Registry.LoadAll(ctx); err != nil {
		a.Logger.Warn("failed to load items", "error", err)
	}

	// Start the cache janitor
	if a.Janitor != nil {
		a.Janitor.Start(ctx)
	}

	// Start file watcher
	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			a.Logger.Warn("failed to start file watcher", "error", err)
		}
	}

	// Start server
	if a.Config.TLS.Enabled && a.TLSServer != nil {
		return a.TLSServer.ListenAndServe(a.Config.Server.Address())
	}
	return a.HTTPServer.Start()
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	// Stop watcher
	if a.Watcher != nil {
		_ = a.Watcher.Stop()
	}

	// Stop the janitor
	if a.Janitor != nil {
		a.Janitor.Stop()
	}

	// Shutdown HTTP server
	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		a.Logger.Error("HTTP server shutdown error", "error", err)
	}

	// Close the tile cache
	if a.TileCache != nil {
		if err := a.TileCache.Close(); err != nil {
			a.Logger.Error("tile cache close error", "error", err)
		}
	}

	return nil
}

// handleFileEvent handles file system events for hot-reload. Items may
// be registered with a bare path or a file:// location, so both forms
// are tried.
func (a *App) handleFileEvent(ctx context.Context, event watcher.Event) error {
	a.Logger.Info("file event", "path", event.Path, "operation", event.Operation.String())

	a.Registry.Reload(ctx, event.Path)
	a.Registry.Reload(ctx, "file://"+event.Path)
	return nil
}
