// Command proxy runs the caching reverse proxy for the market-price API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/wyverncodes/universalis-proxy/internal/cache"
	"github.com/wyverncodes/universalis-proxy/internal/coalescer"
	"github.com/wyverncodes/universalis-proxy/internal/config"
	"github.com/wyverncodes/universalis-proxy/internal/httpapi"
	"github.com/wyverncodes/universalis-proxy/internal/ratelimit"
	"github.com/wyverncodes/universalis-proxy/internal/upstream"
	"github.com/wyverncodes/universalis-proxy/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})
	log := logging.NewLogger(logging.ComponentMain)

	var redisClient *redis.Client
	if cfg.SlowTier.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.SlowTier.RedisAddr,
			DB:   cfg.SlowTier.RedisDB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, running without slow tier or shared upstream breaker")
			redisClient = nil
		} else {
			log.Info().Str("addr", cfg.SlowTier.RedisAddr).Msg("connected to redis")
		}
	} else {
		log.Info().Msg("no redis configured, running edge-tier only with no shared upstream breaker")
	}

	slowTier := cache.NewRedisSlowTier(redisClient)
	coalesce := coalescer.New(cfg.Coalesce.MaxInFlight, cfg.Coalesce.CleanupInterval, cfg.Coalesce.Linger)
	cacheSvc := cache.New(slowTier, coalesce, nil, logging.NewLogger(logging.ComponentCache))

	upstreamClient := upstream.New(upstream.Config{
		BaseURL:    cfg.Upstream.BaseURL,
		UserAgent:  cfg.Service.Name + "/" + cfg.Service.Version,
		Timeout:    cfg.Upstream.Timeout,
		MaxRetries: cfg.Upstream.MaxRetries,
		Breaker:    upstream.NewBreaker(redisClient, logging.NewLogger(logging.ComponentUpstreamBreaker)),
	}, logging.NewLogger(logging.ComponentUpstream))

	limiter := ratelimit.New(logging.NewLogger(logging.ComponentRateLimit))

	server := httpapi.New(httpapi.Config{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Development:    cfg.CORS.Development,
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		RateLimit: ratelimit.Policy{
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      cfg.RateLimit.Window,
		},
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, cacheSvc, upstreamClient, limiter, logging.NewLogger(logging.ComponentHTTPAPI))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Server.Port
	log.Info().Str("addr", addr).Str("environment", environmentLabel(cfg.CORS.Development)).Msg("starting server")

	if err := server.Start(ctx, addr); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}

	log.Info().Msg("server shut down cleanly")
}

func environmentLabel(dev bool) string {
	if dev {
		return "development"
	}
	return "production"
}
