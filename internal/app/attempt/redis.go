package attempt

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"camptrade/internal/app/apperr"
	"camptrade/internal/app/logger"
)

var _ Limiter = (*Redis)(nil)

const redisKeyPrefix = "verify_attempts:"

// Redis keeps attempt counters in redis so that every instance of the service shares them.
type Redis struct {
	client redis.Cmdable
	max    int
	window time.Duration
}

func (l *Redis) LoggerComponent() string {
	return "Attempt.Redis"
}

func NewRedis(client redis.Cmdable, max int, window time.Duration) *Redis {
	return &Redis{
		client: client,
		max:    max,
		window: window,
	}
}

func (l *Redis) Acquire(ctx context.Context, key string) error {
	if l.max <= 0 {
		return nil
	}

	k := redisKeyPrefix + key

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, l.window)
		return nil
	})
	if err != nil {
		log := logger.Get(ctx, l)
		log.Error().Err(err).Str("key", k).Msg("Attempt counter increment failed")
		return fmt.Errorf("redis incr: %w", err)
	}

	if incr.Val() > int64(l.max) {
		log := logger.Get(ctx, l)
		log.Debug().Str("key", k).Int64("attempts", incr.Val()).Msg("Attempt limit reached")
		return apperr.ErrTooManyAttempts
	}

	return nil
}

func (l *Redis) Reset(ctx context.Context, key string) error {
	k := redisKeyPrefix + key
	if err := l.client.Del(ctx, k).Err(); err != nil {
		log := logger.Get(ctx, l)
		log.Error().Err(err).Str("key", k).Msg("Attempt counter reset failed")
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
