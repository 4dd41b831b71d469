package lock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Redis is a redsync mutex shared by every replica pointed at the same Redis.
type Redis struct {
	client redis.UniversalClient
	rs     *redsync.Redsync
	log    zerolog.Logger
}

func NewRedis(ctx context.Context, redisURL string, log zerolog.Logger) (*Redis, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("Redis URL must be provided")
	}

	opts, err := buildUniversalOptions(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if len(opts.Addrs) > 1 && opts.DB != 0 {
		log.Warn().Msg("Ignoring non-zero DB when using Redis Cluster configuration")
		opts.DB = 0
	}

	client := redis.NewUniversalClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger := log.With().Str("component", "redis-lock").Logger()
	logger.Info().Msg("Successfully connected to Redis")
	return &Redis{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
		log:    logger,
	}, nil
}

// WithLock tries the mutex once. A lock held elsewhere returns ErrNotAcquired.
func (r *Redis) WithLock(ctx context.Context, name string, ttl time.Duration, fn func(ctx context.Context) error) error {
	mutex := r.rs.NewMutex(name, redsync.WithExpiry(ttl), redsync.WithTries(1))

	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNotAcquired, err)
	}
	defer func() {
		if _, err := mutex.UnlockContext(context.WithoutCancel(ctx)); err != nil {
			r.log.Error().Err(err).Str("lock", name).Msg("Failed to unlock mutex")
		}
	}()

	return fn(ctx)
}

// Close releases the Redis connections. Locks still held expire on their TTL.
func (r *Redis) Close() error {
	return r.client.Close()
}

func buildUniversalOptions(raw string) (*redis.UniversalOptions, error) {
	opts := &redis.UniversalOptions{}

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.Contains(part, "://") {
			opts.Addrs = append(opts.Addrs, part)
			continue
		}

		parsed, err := redis.ParseURL(part)
		if err != nil {
			return nil, err
		}
		opts.Addrs = append(opts.Addrs, parsed.Addr)
		if opts.Username == "" {
			opts.Username = parsed.Username
		}
		if opts.Password == "" {
			opts.Password = parsed.Password
		}
		if opts.DB == 0 {
			opts.DB = parsed.DB
		}
		if opts.TLSConfig == nil {
			opts.TLSConfig = parsed.TLSConfig
		}
	}

	if len(opts.Addrs) == 0 {
		return nil, fmt.Errorf("no redis address in %q", raw)
	}
	return opts, nil
}
