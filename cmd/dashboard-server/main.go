// Command dashboard-server serves the partner order dashboard API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redigma/partner-dashboard/internal/api"
	"github.com/redigma/partner-dashboard/pkg/auth"
	"github.com/redigma/partner-dashboard/pkg/cache"
	"github.com/redigma/partner-dashboard/pkg/config"
	"github.com/redigma/partner-dashboard/pkg/credentials"
	"github.com/redigma/partner-dashboard/pkg/logging"
	"github.com/redigma/partner-dashboard/pkg/ratelimit"
	"github.com/redigma/partner-dashboard/pkg/upstream"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisPingTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// run serves until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	deps, cleanup, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Bool("auth", cfg.Auth.Enabled).
			Dur("cache_ttl", cfg.Cache.TTL).
			Msg("Starting dashboard server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildDeps wires the API collaborators. Redis and the credential sheet are
// only required when sign-in is enabled.
func buildDeps(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (api.Deps, func(), error) {
	if cfg.Upstream.URL == "" {
		logger.Warn().Msg("GOOGLE_APPS_SCRIPT_URL not set; data requests will fail")
	}

	upstreamCfg := upstream.DefaultConfig(cfg.Upstream.URL)
	upstreamCfg.Timeout = cfg.Upstream.Timeout

	store := cache.NewStore(
		upstream.New(upstreamCfg),
		cache.WithWindow(cfg.Cache.TTL),
		cache.WithLogger(logging.For(logger, logging.ComponentCache)),
	)

	deps := api.Deps{
		Rows:          store,
		DateColumn:    cfg.Data.DateColumn,
		HiddenColumns: cfg.Data.HiddenColumns,
		AuthEnabled:   cfg.Auth.Enabled,
		CookieSecure:  cfg.Auth.CookieSecure,
		Logger:        logger,
	}
	if !cfg.Auth.Enabled {
		logger.Warn().Msg("Sign-in disabled; data routes are public")
		return deps, func() {}, nil
	}

	creds, err := credentials.NewSheetsStore(ctx, credentials.Config{
		SpreadsheetID:       cfg.Sheets.SpreadsheetID,
		Sheet:               cfg.Sheets.Sheet,
		ServiceAccountEmail: cfg.Sheets.ServiceAccountEmail,
		PrivateKey:          cfg.Sheets.PrivateKey,
	})
	if err != nil {
		return api.Deps{}, nil, fmt.Errorf("credential store: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		redisClient.Close()
		return api.Deps{}, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")

	proxies, err := ratelimit.ParseTrustedProxies(cfg.Auth.TrustedProxies)
	if err != nil {
		redisClient.Close()
		return api.Deps{}, nil, err
	}
	limiter := ratelimit.NewIPLimiter(cfg.Auth.RateLimit, cfg.Auth.RateWindow, ratelimit.WithTrustedProxies(proxies...))

	deps.Authenticator = auth.NewAuthenticator(creds)
	deps.Sessions = auth.NewRedisSessionStore(redisClient, cfg.Auth.SessionTTL)
	deps.Guard = ratelimit.NewTracker(redisClient, ratelimit.Policy{
		MaxFailures: cfg.Auth.MaxFailures,
		Lockout:     cfg.Auth.Lockout,
	}, logging.For(logger, logging.ComponentSigninGuard))
	deps.IPLimiter = limiter
	deps.Redis = redisClient

	cleanup := func() {
		limiter.Stop()
		if err := redisClient.Close(); err != nil {
			logger.Warn().Err(err).Msg("Closing Redis client failed")
		}
	}
	return deps, cleanup, nil
}
