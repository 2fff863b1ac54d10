package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const guardKeyPrefix = "wingo:guard:"

// releaseScript deletes the key only while it still holds our token
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// redisLocker is the subset of redis.Cmdable the guard uses
type redisLocker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisGuard skips an operation while another process holds its lock.
// The lock expires after ttl so a crashed holder cannot block forever.
type RedisGuard struct {
	client redisLocker
	ttl    time.Duration
}

// NewRedisClient creates a client and verifies the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	log.WithField("addr", addr).Info("Connected to Redis")
	return client, nil
}

// NewRedisGuard creates a distributed guard
func NewRedisGuard(client redisLocker, ttl time.Duration) *RedisGuard {
	return &RedisGuard{
		client: client,
		ttl:    ttl,
	}
}

// TryRun runs fn while holding the lock for name, or returns ran=false if it is held
func (g *RedisGuard) TryRun(ctx context.Context, name string, fn func(ctx context.Context) error) (bool, error) {
	key := guardKeyPrefix + name
	token := uuid.New().String()

	acquired, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire guard %s: %w", name, err)
	}
	if !acquired {
		log.WithField("operation", name).Debug("Operation running elsewhere, skipping")
		return false, nil
	}

	defer func() {
		// Release with a fresh context so a cancelled run still frees the lock
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := g.client.Eval(releaseCtx, releaseScript, []string{key}, token).Err(); err != nil && err != redis.Nil {
			log.WithFields(log.Fields{
				"operation": name,
				"error":     err,
			}).Warn("Failed to release guard")
		}
	}()

	return true, fn(ctx)
}
