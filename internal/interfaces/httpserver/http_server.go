package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	chatapidocs "github.com/janhq/chat-api/docs/swagger"
	"github.com/janhq/chat-api/internal/config"
	"github.com/janhq/chat-api/internal/domain/chat"
	"github.com/janhq/chat-api/internal/domain/upload"
	"github.com/janhq/chat-api/internal/infrastructure/auth"
	"github.com/janhq/chat-api/internal/interfaces/httpserver/handlers"
	"github.com/janhq/chat-api/internal/interfaces/httpserver/middlewares"
	"github.com/janhq/chat-api/internal/interfaces/httpserver/routes/api"
)

// Pinger reports whether the chat store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HttpServer wraps the gin engine with graceful shutdown helpers.
type HttpServer struct {
	cfg    *config.Config
	engine *gin.Engine
	log    zerolog.Logger
}

// New constructs the HTTP server with default middleware and routes.
func New(cfg *config.Config, log zerolog.Logger, chatService chat.Service, uploadService *upload.Service, authValidator *auth.Validator, store Pinger) *HttpServer {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	chatapidocs.SwaggerInfo.BasePath = "/"

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middlewares.RequestID(),
		middlewares.TracingMiddleware(cfg.ServiceName),
		middlewares.LoggingMiddleware(log),
		middlewares.MetricsMiddleware(),
		middlewares.CORSMiddleware(cfg.ClientURL),
	)

	handlerProvider := handlers.NewProvider(chatService, uploadService, log)
	routeProvider := api.NewRoutes(handlerProvider, authValidator.Middleware())
	registerCoreRoutes(engine, routeProvider, authValidator, store)
	engine.NoRoute(spaHandler(cfg.StaticDir))

	return &HttpServer{
		cfg:    cfg,
		engine: engine,
		log:    log,
	}
}

// Handler exposes the engine for tests and embedding.
func (s *HttpServer) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP listener and handles graceful shutdown via context cancellation.
func (s *HttpServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr()).Msg("chat-api HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func registerCoreRoutes(engine *gin.Engine, routes *api.Routes, authValidator *auth.Validator, store Pinger) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	engine.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if store != nil {
			if err := store.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	engine.GET("/health/auth", func(c *gin.Context) {
		if authValidator.Ready() {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "initializing"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.Register(engine)
}
