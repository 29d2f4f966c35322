// Package redis provides a distributed Locker backed by Redis SET NX so
// several crawler replicas never insert the same job URL twice.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobcrawler/internal/crawler"
	"github.com/JakeFAU/jobcrawler/internal/hash/sha256"
)

const (
	defaultTTL       = 30 * time.Second
	defaultRetry     = 50 * time.Millisecond
	defaultKeyPrefix = "jobcrawler:lock:"
)

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Config tunes lock behavior.
type Config struct {
	KeyPrefix string
	TTL       time.Duration
	Retry     time.Duration
}

// Locker acquires per-key locks in Redis.
type Locker struct {
	client redis.UniversalClient
	cfg    Config
	hasher *sha256.Hasher
	logger *zap.Logger
}

// NewClient parses redisURL and verifies connectivity.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// New wraps client. Zero config values fall back to defaults.
func New(client redis.UniversalClient, cfg Config, logger *zap.Logger) *Locker {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.Retry <= 0 {
		cfg.Retry = defaultRetry
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locker{client: client, cfg: cfg, hasher: sha256.New(), logger: logger}
}

// Lock polls SET NX until the key is acquired or ctx is done. The returned
// function releases the lock if it is still ours.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.redisKey(key)
	token := uuid.NewString()

	ticker := time.NewTicker(l.cfg.Retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.cfg.TTL).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("acquire lock %q: %w", key, err)
		}
		if ok {
			return l.unlockFunc(redisKey, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %q: %w: %w", key, crawler.ErrLockHeld, ctx.Err())
		case <-ticker.C:
		}
	}
}

// redisKey hashes key so long source URLs stay bounded.
func (l *Locker) redisKey(key string) string {
	return l.cfg.KeyPrefix + l.hasher.Key(key)
}

func (l *Locker) unlockFunc(redisKey, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn("failed to release lock", zap.String("key", redisKey), zap.Error(err))
		}
	}
}
