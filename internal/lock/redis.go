package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"alcyxob/fitness-planner/internal/config"
	"alcyxob/fitness-planner/internal/logger"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "fitness-planner:lock:"
	retryInterval  = 50 * time.Millisecond
)

// unlockScript deletes the key only while it still carries our token.
var unlockScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker shares locks between server and worker processes.
type RedisLocker struct {
	log  *logger.Logger
	rdb  *goredis.Client
	wait time.Duration
	ttl  time.Duration
}

// NewRedisClient connects and pings, failing fast on a bad address.
func NewRedisClient(cfg config.RedisConfig) (*goredis.Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// NewRedisLocker holds each key for at most ttl, so a crashed holder cannot wedge a user.
func NewRedisLocker(rdb *goredis.Client, wait, ttl time.Duration, log *logger.Logger) *RedisLocker {
	return &RedisLocker{
		log:  log.With("service", "RedisLocker"),
		rdb:  rdb,
		wait: wait,
		ttl:  ttl,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (context.Context, func(), error) {
	if held(ctx, key) {
		return ctx, func() {}, nil
	}

	redisKey := redisKeyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return ctx, nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return ctx, nil, waitTimeout(key, l.wait)
		}
		select {
		case <-ctx.Done():
			return ctx, nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// The caller's context may already be cancelled; unlock regardless.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := unlockScript.Run(releaseCtx, l.rdb, []string{redisKey}, token).Err(); err != nil {
				l.log.Warn("Failed to release lock", "lock", key, "error", err)
			}
		})
	}
	return markHeld(ctx, key), release, nil
}
