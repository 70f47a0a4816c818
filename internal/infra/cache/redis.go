// Package cache provides the redis client shared by the rate limiter.
package cache

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"eventos/config"
	"eventos/internal/errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

const pingTimeout = 2 * time.Second

// Params holds dependencies for the redis client, injected by Fx.
type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// NewRedisClient returns nil when redis.addr is empty or the server does not
// answer a ping. Callers treat a nil client as "rate limiting disabled".
func NewRedisClient(params Params) *redis.Client {
	cfg := params.Config.Redis
	if cfg == nil || strings.TrimSpace(cfg.Addr) == "" {
		params.Logger.Info("Redis not configured, rate limiting disabled")

		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		params.Logger.Warn("Redis unreachable, rate limiting disabled", slog.String("addr", cfg.Addr), slog.Any("error", err))
		_ = client.Close()

		return nil
	}
	params.Logger.Info("Connected to redis", slog.String("addr", cfg.Addr))

	params.Lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return errors.WithStack(client.Close())
		},
	})

	return client
}
