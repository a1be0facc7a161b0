package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/lead-intake/internal/config"
	"github.com/wolfman30/lead-intake/internal/ratelimit"
	"github.com/wolfman30/lead-intake/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildRateGuard picks the attempt log backend. A Redis guard is shared by
// every instance; it falls back to process memory when Redis is unreachable.
// The returned closer is never nil.
func BuildRateGuard(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (ratelimit.Guard, func()) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.RateLimitBackend == "redis" {
		if client := BuildRedisClient(ctx, cfg, logger, true); client != nil {
			logger.Info("rate limit backend", "backend", "redis", "addr", cfg.RedisAddr)
			return ratelimit.NewRedisGuard(client, logger), func() { _ = client.Close() }
		}
		logger.Warn("redis rate limit unavailable; using per-instance memory")
	}
	logger.Info("rate limit backend", "backend", "memory")
	return ratelimit.NewMemoryGuard(), func() {}
}
