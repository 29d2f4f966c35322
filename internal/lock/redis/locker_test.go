package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobcrawler/internal/crawler"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, Config{Retry: 5 * time.Millisecond, TTL: time.Minute}, nil), mr
}

func TestLockAcquireAndRelease(t *testing.T) {
	t.Parallel()

	l, mr := newTestLocker(t)
	unlock, err := l.Lock(context.Background(), "https://jobs.example.com/1")
	require.NoError(t, err)
	require.True(t, mr.Exists(l.redisKey("https://jobs.example.com/1")))

	unlock()
	require.False(t, mr.Exists(l.redisKey("https://jobs.example.com/1")))
}

func TestLockHeldTimesOut(t *testing.T) {
	t.Parallel()

	l, _ := newTestLocker(t)
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	require.ErrorIs(t, err, crawler.ErrLockHeld)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnlockDoesNotDeleteForeignToken(t *testing.T) {
	t.Parallel()

	l, mr := newTestLocker(t)
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	// Simulate expiry followed by another replica taking the lock.
	require.NoError(t, mr.Set(l.redisKey("k"), "someone-else"))
	unlock()

	got, err := mr.Get(l.redisKey("k"))
	require.NoError(t, err)
	require.Equal(t, "someone-else", got)
}

func TestLockWaitsForRelease(t *testing.T) {
	t.Parallel()

	l, _ := newTestLocker(t)
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	unlock2, err := l.Lock(ctx, "k")
	require.NoError(t, err)
	unlock2()
}
