package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker_AcquireRelease(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	l := NewRedisLocker(db, "settle:")
	l.token = func() string { return "tok-1" }
	ctx := context.Background()

	mockRedis.ExpectSetNX("settle:key-A", "tok-1", 30*time.Second).SetVal(true)
	mockRedis.ExpectEval(releaseScript, []string{"settle:key-A"}, "tok-1").SetVal(int64(1))

	lease, err := l.Acquire(ctx, "key-A", 30*time.Second)
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))

	if err := mockRedis.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestRedisLocker_Contended(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	l := NewRedisLocker(db, "settle:")
	l.token = func() string { return "tok-2" }

	mockRedis.ExpectSetNX("settle:key-A", "tok-2", time.Minute).SetVal(false)

	_, err := l.Acquire(context.Background(), "key-A", time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)
}

func TestRedisLocker_RedisDown(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	l := NewRedisLocker(db, "")
	l.token = func() string { return "t" }

	mockRedis.ExpectSetNX("k", "t", time.Minute).SetErr(errors.New("connection refused"))

	_, err := l.Acquire(context.Background(), "k", time.Minute)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotAcquired)
}

func TestLocal(t *testing.T) {
	l := NewLocal()
	now := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	lease, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	require.NoError(t, lease.Release(ctx))
	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.NoError(t, err)

	// expired leases do not block
	now = now.Add(2 * time.Minute)
	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.NoError(t, err)
}
