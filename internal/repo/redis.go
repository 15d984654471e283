package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"PasteBox/config"
	"PasteBox/utils"

	"github.com/redis/go-redis/v9"
)

// ErrLockBusy is returned when another holder owns the lock.
var ErrLockBusy = errors.New("lock is busy")

const expiryKeyPrefix = "file:expiry:"

type RedisLock struct {
	rdb   *redis.Client
	key   string
	token string
	ttl   time.Duration
}

// NewRedis connects to Redis and pings it.
func NewRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("init redis success", "addr", client.Options().Addr)
	return client, nil
}

// EnableKeyspaceNotifications enables Redis expired-key events.
func EnableKeyspaceNotifications(ctx context.Context, rdb *redis.Client) error {
	return rdb.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err()
}

// NewRedisLock creates a Redis lock helper.
func NewRedisLock(rdb *redis.Client, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{
		rdb: rdb,
		key: key,
		ttl: ttl,
	}
}

// Lock acquires a Redis-based lock.
func (l *RedisLock) Lock(ctx context.Context) error {
	token := utils.GetToken()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockBusy
	}
	l.token = token
	return nil
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Unlock releases the lock if this holder still owns it.
func (l *RedisLock) Unlock(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	_, err := unlockScript.Run(
		ctx,
		l.rdb,
		[]string{l.key},
		l.token,
	).Result()
	l.token = ""
	return err
}

// ExpiryKeys arms one TTL key per record so Redis announces the deadline.
type ExpiryKeys struct {
	rdb *redis.Client
	now func() time.Time
}

func NewExpiryKeys(rdb *redis.Client) *ExpiryKeys {
	return &ExpiryKeys{rdb: rdb, now: time.Now}
}

func expiryKey(id string) string { return expiryKeyPrefix + id }

// Schedule sets the key to fire at. Deadlines already passed are not armed.
func (e *ExpiryKeys) Schedule(ctx context.Context, id string, at time.Time) error {
	ttl := at.Sub(e.now())
	if ttl <= 0 {
		return e.Cancel(ctx, id)
	}
	return e.rdb.Set(ctx, expiryKey(id), at.Unix(), ttl).Err()
}

func (e *ExpiryKeys) Cancel(ctx context.Context, id string) error {
	return e.rdb.Del(ctx, expiryKey(id)).Err()
}

// ListenRedisExpired subscribes to expired-key events of db and calls onExpire
// with the record id of every expired expiry key. ready is closed once the
// subscription is confirmed. It returns when ctx is done.
func ListenRedisExpired(ctx context.Context, rdb *redis.Client, ready chan<- struct{}, onExpire func(ctx context.Context, id string)) error {
	channel := fmt.Sprintf("__keyevent@%d__:expired", rdb.Options().DB)
	pubsub := rdb.Subscribe(ctx, channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	if ready != nil {
		close(ready)
	}
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			handleExpiredKey(ctx, msg.Payload, onExpire)
		}
	}
}

// handleExpiredKey dispatches expired-key handlers.
func handleExpiredKey(ctx context.Context, key string, onExpire func(ctx context.Context, id string)) {
	switch {
	case strings.HasPrefix(key, expiryKeyPrefix):
		id := strings.TrimPrefix(key, expiryKeyPrefix)
		slog.Debug("expiry key fired", "file_id", id)
		onExpire(ctx, id)
	default:
	}
}
