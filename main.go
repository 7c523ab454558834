package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"speedwordle/internal/config"
	"speedwordle/internal/dictionary"
	"speedwordle/internal/gateway"
	"speedwordle/internal/httpapi"
	"speedwordle/internal/logging"
	"speedwordle/internal/match"
	"speedwordle/internal/matchmaking"
	"speedwordle/internal/rating"
	"speedwordle/internal/session"
	"speedwordle/internal/store"
)

// Application wires every long-lived component together: configuration,
// persistence, the match engine, the matchmaking queue and the realtime
// gateway sitting on top of it.
type Application struct {
	config *config.Config
	server *http.Server

	redisClient *redis.Client
	pgPool      *pgxpool.Pool

	dictionary *dictionary.Dictionary
	sessions   *session.Registry
	engine     *match.Engine
	queue      *matchmaking.Queue
	hub        *gateway.Hub
	auth       *gateway.TokenVerifier

	logger *logging.Logger
	stdlog *log.Logger

	bgCancel context.CancelFunc
}

func main() {
	app := &Application{
		stdlog: log.New(os.Stdout, "[SPEEDWORDLE] ", log.LstdFlags|log.Lshortfile),
	}

	if err := app.Initialize(); err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("application failed: %v", err)
	}
}

func (app *Application) Initialize() error {
	app.stdlog.Println("initializing application...")

	if err := app.loadConfiguration(); err != nil {
		return fmt.Errorf("configuration loading failed: %w", err)
	}
	if err := app.initializeComponents(); err != nil {
		return fmt.Errorf("component initialization failed: %w", err)
	}
	if err := app.setupServer(); err != nil {
		return fmt.Errorf("server setup failed: %w", err)
	}

	app.stdlog.Println("application initialized successfully")
	return nil
}

func (app *Application) loadConfiguration() error {
	app.stdlog.Println("loading configuration...")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.config = cfg
	app.stdlog.Printf("configuration loaded - server: %s:%s", cfg.Server.Host, cfg.Server.Port)

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:       cfg.Logging.Level,
		Environment: cfg.Logging.Environment,
		Service:     cfg.Logging.Service,
		SentryDSN:   cfg.Sentry.DSN,
		AddSource:   cfg.Logging.AddSource,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.logger = logger

	if cfg.Sentry.DSN != "" {
		if err := logging.InitSentry(logging.SentryConfig{
			DSN:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			Release:          cfg.Sentry.Release,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
			Debug:            cfg.Sentry.Debug,
		}); err != nil {
			app.stdlog.Printf("sentry initialization failed (continuing without it): %v", err)
		}
	}

	if cfg.Dev.DebugMode {
		app.stdlog.Println("running in debug mode")
	}
	return nil
}

// initializeComponents builds the dictionary, persistence layer, match
// engine, matchmaking queue, and realtime gateway. A missing
// PERSISTENT_STORE_URL falls back to the in-memory rating service, and
// buildStore falls back to an in-process match state store when
// STATE_STORE_URL is missing; both lose state across a restart or a second
// replica. The matchmaking queue has no in-process backend: without
// STATE_STORE_URL, initialization fails.
func (app *Application) initializeComponents() error {
	app.stdlog.Println("initializing core components...")

	app.dictionary = dictionary.New()
	app.stdlog.Printf("dictionary loaded: %d answers, %d common words", len(app.dictionary.Answers()), len(app.dictionary.CommonWords()))

	st, err := app.buildStore()
	if err != nil {
		return fmt.Errorf("failed to initialize state store: %w", err)
	}

	ratingSvc, err := app.buildRatingService()
	if err != nil {
		return fmt.Errorf("failed to initialize rating service: %w", err)
	}

	queueClient, err := app.buildMatchmakingRedisClient()
	if err != nil {
		return fmt.Errorf("failed to initialize matchmaking queue store: %w", err)
	}

	app.sessions = session.NewRegistry()

	security := gateway.NewSecurityMiddleware(app.config.Rate, app.config.CORS.AllowedOrigins, app.config.Security.MaxMessageSize, app.logger)
	app.auth = gateway.NewTokenVerifier(app.config.Auth.TokenSecret)

	app.queue = matchmaking.NewQueue(queueClient, matchmaking.Config{
		InitialBand: app.config.Matchmaking.InitialBand,
		MaxBand:     app.config.Matchmaking.MaxBand,
		WaitBudget:  app.config.Matchmaking.WaitBudget,
		RetryEvery:  app.config.Matchmaking.RetryEvery,
	}, app.logger)

	app.hub = gateway.NewHub(app.config.Security, security, app.auth, nil, app.queue, app.logger)

	app.engine = match.NewEngine(app.dictionary, st, ratingSvc, app.hub, app.logger, app.sessions, match.Config{
		MatchTTL:          app.config.Game.MatchTTL,
		DisconnectGraceMS: int(app.config.Game.DisconnectGraceMS.Milliseconds()),
	})
	app.hub.SetEngine(app.engine)

	app.stdlog.Println("match engine, matchmaking queue and gateway hub initialized")
	return nil
}

func (app *Application) buildStore() (store.Store, error) {
	url := app.config.Store.StateStoreURL
	if url == "" {
		app.stdlog.Println("STATE_STORE_URL not set, using in-memory state store")
		return store.NewMemory(), nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse STATE_STORE_URL: %w", err)
	}
	app.redisClient = redis.NewClient(opts)
	if err := app.redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect to state store: %w", err)
	}
	return store.NewRedisStore(app.redisClient, app.logger), nil
}

func (app *Application) buildMatchmakingRedisClient() (*redis.Client, error) {
	if app.redisClient != nil {
		return app.redisClient, nil
	}
	url := app.config.Store.StateStoreURL
	if url == "" {
		return nil, fmt.Errorf("matchmaking requires STATE_STORE_URL to be set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse STATE_STORE_URL: %w", err)
	}
	app.redisClient = redis.NewClient(opts)
	return app.redisClient, nil
}

func (app *Application) buildRatingService() (rating.Service, error) {
	url := app.config.Store.PersistentStoreURL
	if url == "" {
		app.stdlog.Println("PERSISTENT_STORE_URL not set, using in-memory rating service")
		return rating.NewMemoryService(), nil
	}

	pool, err := pgxpool.New(context.Background(), url)
	if err != nil {
		return nil, fmt.Errorf("connect to persistent store: %w", err)
	}
	app.pgPool = pool
	return rating.NewPGService(pool, app.logger), nil
}

func (app *Application) setupServer() error {
	app.stdlog.Println("setting up HTTP server and routes...")

	router := mux.NewRouter()

	middleware := httpapi.NewMiddleware(app.config.CORS, app.config.Rate, app.logger)

	healthHandler := httpapi.NewHealthHandler(app.engine, app.queue, app.dictionary)
	healthHandler.RegisterRoutes(router)

	wsHandler := gateway.NewHandler(app.hub, app.auth, app.logger)
	router.HandleFunc("/ws", wsHandler.HandleWebSocket)

	handler := middleware.Apply(router)

	app.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", app.config.Server.Host, app.config.Server.Port),
		Handler:      handler,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.stdlog.Printf("HTTP server configured on %s", app.server.Addr)
	return nil
}

func (app *Application) Run() error {
	app.startBackgroundServices()

	serverErrChan := make(chan error, 1)
	go func() {
		app.stdlog.Printf("server starting on %s", app.server.Addr)
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	return app.waitForShutdownSignal(serverErrChan)
}

func (app *Application) startBackgroundServices() {
	app.stdlog.Println("starting background services...")

	ctx, cancel := context.WithCancel(context.Background())
	app.bgCancel = cancel

	go app.queue.Run(ctx)
	app.stdlog.Println("matchmaking queue processor started")

	go app.hub.Run(ctx)
	app.stdlog.Println("gateway hub started")

	go app.reportPerformanceMetrics(ctx)
	app.stdlog.Println("performance metrics reporter started")
}

// reportPerformanceMetrics periodically snapshots engine and queue state to
// Sentry so capacity and latency trends show up alongside error events.
func (app *Application) reportPerformanceMetrics(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var memStats runtime.MemStats
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics := app.engine.Metrics()
			queued, err := app.queue.Len(ctx)
			if err != nil {
				app.logger.LogError(ctx, err, "main: failed to read queue length for metrics snapshot")
			}

			runtime.ReadMemStats(&memStats)
			logging.RecordPerformanceMetrics(ctx, logging.PerformanceMetrics{
				ActiveMatches:     int64(metrics.ActiveMatches),
				QueuedPlayers:     queued,
				MemoryUsageMB:     float64(memStats.Alloc) / (1024 * 1024),
			})
		}
	}
}

func (app *Application) waitForShutdownSignal(serverErrChan chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrChan:
		app.stdlog.Printf("server error: %v", err)
		return err
	case sig := <-quit:
		app.stdlog.Printf("received shutdown signal: %v", sig)
		return app.gracefulShutdown()
	}
}

func (app *Application) gracefulShutdown() error {
	app.stdlog.Println("starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()

	var wg sync.WaitGroup
	errChan := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.stdlog.Println("shutting down HTTP server...")
		if err := app.server.Shutdown(ctx); err != nil {
			errChan <- fmt.Errorf("server shutdown failed: %w", err)
			return
		}
		app.stdlog.Println("HTTP server stopped")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.stdlog.Println("stopping background services...")
		app.queue.Stop()
		app.bgCancel()
		app.stdlog.Println("background services stopped")
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		app.closeConnections()
		app.stdlog.Println("graceful shutdown completed successfully")
		logging.FlushSentry(app.config.Server.ShutdownTimeout)
		return nil
	case err := <-errChan:
		app.stdlog.Printf("shutdown error: %v", err)
		return err
	case <-ctx.Done():
		app.stdlog.Println("shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

func (app *Application) closeConnections() {
	if app.redisClient != nil {
		_ = app.redisClient.Close()
	}
	if app.pgPool != nil {
		app.pgPool.Close()
	}
}
