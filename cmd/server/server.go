package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/janhq/chat-api/internal/config"
	"github.com/janhq/chat-api/internal/domain/chat"
	"github.com/janhq/chat-api/internal/domain/upload"
	"github.com/janhq/chat-api/internal/infrastructure/auth"
	"github.com/janhq/chat-api/internal/infrastructure/lock"
	"github.com/janhq/chat-api/internal/infrastructure/logger"
	"github.com/janhq/chat-api/internal/infrastructure/observability"
	"github.com/janhq/chat-api/internal/infrastructure/uploads"
	"github.com/janhq/chat-api/internal/infrastructure/worker"
	"github.com/janhq/chat-api/internal/interfaces/httpserver"
)

// @title Chat API
// @version 1.0
// @description Chat history and upload authentication service
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
type Application struct {
	httpServer *httpserver.HttpServer
	reconciler *worker.Reconciler
	store      *Store
	validator  *auth.Validator
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, reconciler *worker.Reconciler, store *Store, validator *auth.Validator, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		reconciler: reconciler,
		store:      store,
		validator:  validator,
		log:        log,
	}
}

// Start runs the HTTP server and, when enabled, the orphan reconciler until ctx is cancelled.
func (a *Application) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.httpServer.Run(ctx)
	})
	if a.reconciler != nil {
		g.Go(func() error {
			return a.reconciler.Run(ctx)
		})
	}
	return g.Wait()
}

// Close stops the JWKS refresh and releases the reconciler lock before the store.
func (a *Application) Close(ctx context.Context) {
	a.validator.Close()
	if a.reconciler != nil {
		if err := a.reconciler.Close(); err != nil {
			a.log.Error().Err(err).Msg("close reconciler lock")
		}
	}
	if err := a.store.Close(ctx); err != nil {
		a.log.Error().Err(err).Msg("close chat store")
	}
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	validator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth validator")
	}

	store := provideStore(ctx, cfg, log)
	chatService := chat.NewService(store.Chats, store.Index, store.Tx, log)

	issuer, err := uploads.NewIssuer(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize upload issuer")
	}
	uploadService := upload.NewService(issuer, log)

	reconciler, err := provideReconciler(ctx, cfg, chatService, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize reconciler")
	}

	httpServer := httpserver.New(cfg, log, chatService, uploadService, validator, store)
	app := NewApplication(httpServer, reconciler, store, validator, log)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		app.Close(closeCtx)
	}()

	if err := app.Start(ctx); err != nil {
		log.Error().Err(err).Msg("application stopped with error")
		return
	}

	log.Info().Msg("application exited cleanly")
}

// provideReconciler returns nil when reconciliation is disabled or transactions make it unnecessary.
func provideReconciler(ctx context.Context, cfg *config.Config, chatService chat.Service, log zerolog.Logger) (*worker.Reconciler, error) {
	if !cfg.ReconcileEnabled() {
		return nil, nil
	}

	instrumenter, err := worker.NewInstrumenter(otel.Tracer(cfg.ServiceName), otel.Meter(cfg.ServiceName), "chat_api")
	if err != nil {
		return nil, err
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisURL != "" {
		redisLock, err := lock.NewRedis(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Error().Err(err).Msg("redis lock unavailable; reconciling without cross-replica lock")
		} else {
			locker = redisLock
		}
	}

	return worker.NewReconciler(worker.ReconcilerConfig{
		Interval: cfg.ReconcileInterval,
		Grace:    cfg.ReconcileGrace,
		Batch:    cfg.ReconcileBatch,
	}, chatService, locker, instrumenter, log), nil
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
