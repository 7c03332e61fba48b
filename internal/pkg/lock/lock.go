// Package lock provides short-lived named locks. Settlement uses them to keep a
// single in-flight attempt per idempotency key.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when another holder owns the key.
var ErrNotAcquired = errors.New("lock not acquired")

type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

type Lease interface {
	Release(ctx context.Context) error
}

// releaseScript deletes the key only when it still holds our token.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

type RedisLocker struct {
	client redis.Cmdable
	prefix string
	token  func() string
}

func NewRedisLocker(client redis.Cmdable, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix, token: uuid.NewString}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	full := l.prefix + key
	token := l.token()
	ok, err := l.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", full, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return &redisLease{client: l.client, key: full, token: token}, nil
}

type redisLease struct {
	client redis.Cmdable
	key    string
	token  string
}

func (r *redisLease) Release(ctx context.Context) error {
	if err := r.client.Eval(ctx, releaseScript, []string{r.key}, r.token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release %s: %w", r.key, err)
	}
	return nil
}

// Local is an in-process Locker for single-instance deployments and tests.
type Local struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

func NewLocal() *Local {
	return &Local{held: make(map[string]time.Time), now: time.Now}
}

func (l *Local) Acquire(_ context.Context, key string, ttl time.Duration) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if until, ok := l.held[key]; ok && now.Before(until) {
		return nil, ErrNotAcquired
	}
	until := now.Add(ttl)
	l.held[key] = until
	return &localLease{l: l, key: key, until: until}, nil
}

type localLease struct {
	l     *Local
	key   string
	until time.Time
}

func (r *localLease) Release(context.Context) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	if r.l.held[r.key].Equal(r.until) {
		delete(r.l.held, r.key)
	}
	return nil
}
