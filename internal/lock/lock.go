// Package lock provides a Redis lease so a scheduled job runs on one replica
// at a time.
package lock

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker hands out leases stored as Redis keys with a TTL.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration

	// Logger receives release failures. Defaults to slog.Default.
	Logger *slog.Logger
}

// NewRedisLocker connects to the Redis server at addr. Keys are named
// prefix:job and expire after ttl if the holder dies.
func NewRedisLocker(addr, password, prefix string, ttl time.Duration) (*RedisLocker, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("lock redis addr is required")
	}
	if ttl <= 0 {
		return nil, errors.New("lock ttl must be positive")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "najdeno:lock"
	}
	return &RedisLocker{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: prefix,
		ttl:    ttl,
		Logger: slog.Default(),
	}, nil
}

// TryLock takes the lease for job. It returns ok=false without error when
// another holder has it. The returned release func gives the lease back only
// if it is still ours.
func (l *RedisLocker) TryLock(ctx context.Context, job string) (release func(), ok bool, err error) {
	key := l.prefix + ":" + job
	token := uuid.NewString()

	ok, err = l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
		switch {
		case err != nil:
			l.logger().Warn("releasing lease", "key", key, "error", err)
		case n == 0:
			l.logger().Warn("lease expired before release", "key", key, "ttl", l.ttl)
		}
	}
	return release, true, nil
}

func (l *RedisLocker) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

// Ping checks the connection.
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the client.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
