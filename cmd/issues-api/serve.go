package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/issuetracker/issues-api/internal/api"
	"github.com/issuetracker/issues-api/internal/api/handler"
	"github.com/issuetracker/issues-api/internal/api/metrics"
	"github.com/issuetracker/issues-api/internal/api/middleware"
	"github.com/issuetracker/issues-api/internal/core/ports"
	"github.com/issuetracker/issues-api/internal/core/service"
	"github.com/issuetracker/issues-api/internal/infrastructure/config"
	redisstore "github.com/issuetracker/issues-api/internal/infrastructure/db/redis"
	"github.com/issuetracker/issues-api/internal/infrastructure/storage"
	"github.com/issuetracker/issues-api/internal/pkg/markdown"
	"github.com/issuetracker/issues-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Development(),
		Service: "issues-api",
	})

	store, err := storage.Open(ctx, cfg, logger.Component("store"))
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("failed to close store")
		}
	}()

	pingers := map[string]handler.Pinger{store.Name: store.Pinger}

	limiter, closeLimiter, err := newRateLimiter(ctx, cfg, log, pingers)
	if err != nil {
		return err
	}
	defer closeLimiter()

	sessions := service.NewSessionManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	authService := service.NewAuthService(store.Users, sessions, cfg.Auth.BcryptCost, metrics.Recorder{}, logger.Component("auth"))
	issueService := service.NewIssueService(store.Issues, metrics.Recorder{}, logger.Component("issues"))

	e := api.NewRouter(api.Deps{
		AuthService:  authService,
		IssueService: issueService,
		Sessions:     sessions,
		Renderer:     markdown.NewRenderer(),
		Limiter:      limiter,
		Pingers:      pingers,
		Logger:       logger.Component("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", store.Name).Msg("listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// newRateLimiter picks the shared Redis bucket when REDIS_ADDR is set and the
// in-process limiter otherwise. A nil limiter disables throttling.
func newRateLimiter(ctx context.Context, cfg *config.Config, log zerolog.Logger, pingers map[string]handler.Pinger) (ports.RateLimiter, func(), error) {
	if !cfg.RateLimit.Enabled {
		log.Warn().Msg("rate limiting disabled")
		return nil, func() {}, nil
	}

	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		pingers["redis"] = redisstore.Pinger{Client: rdb}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("rate limiting via redis")

		bucket := redisstore.NewTokenBucket(rdb, redisstore.TokenBucketConfig{
			Prefix:    "issues:ratelimit",
			PerMinute: cfg.RateLimit.PerMinute,
			Burst:     cfg.RateLimit.Burst,
		})
		return bucket, func() { _ = rdb.Close() }, nil
	}

	mem := middleware.NewMemoryLimiter(middleware.MemoryLimiterConfig{
		PerMinute: cfg.RateLimit.PerMinute,
		Burst:     cfg.RateLimit.Burst,
	})
	log.Info().Msg("rate limiting in process")
	return mem, mem.Stop, nil
}
