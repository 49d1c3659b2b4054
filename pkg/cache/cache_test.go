package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

type payload struct {
	Total string `json:"total"`
}

func TestFetchJSONCachesUntilBump(t *testing.T) {
	_, client := newRedis(t)
	c := New(client, "dashboard", time.Minute)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return payload{Total: "42.75"}, nil
	}

	key, err := c.Key(ctx, "summary", "2026-01-02")
	require.NoError(t, err)
	require.Equal(t, "dashboard:summary:2026-01-02:v1", key)

	var out payload
	require.NoError(t, c.FetchJSON(ctx, key, &out, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &out, loader))
	require.Equal(t, 1, calls)
	require.Equal(t, "42.75", out.Total)

	require.NoError(t, c.Bump(ctx))
	key2, err := c.Key(ctx, "summary", "2026-01-02")
	require.NoError(t, err)
	require.NotEqual(t, key, key2)
	require.NoError(t, c.FetchJSON(ctx, key2, &out, loader))
	require.Equal(t, 2, calls)
}

func TestFetchJSONDegradesWithoutRedis(t *testing.T) {
	srv, client := newRedis(t)
	c := New(client, "dashboard", time.Minute)
	srv.Close()

	var out payload
	err := c.FetchJSON(context.Background(), "k", &out, func(context.Context) (any, error) {
		return payload{Total: "1.00"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, "1.00", out.Total)

	var nilCache *Cache
	require.NoError(t, nilCache.Bump(context.Background()))
	require.NoError(t, nilCache.FetchJSON(context.Background(), "k", &out, func(context.Context) (any, error) {
		return payload{Total: "2.00"}, nil
	}))
	require.Equal(t, "2.00", out.Total)
}

func TestFetchJSONReturnsLoaderError(t *testing.T) {
	_, client := newRedis(t)
	c := New(client, "dashboard", time.Minute)
	boom := errors.New("boom")

	var out payload
	err := c.FetchJSON(context.Background(), "k", &out, func(context.Context) (any, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestLockerExclusive(t *testing.T) {
	_, client := newRedis(t)
	l := NewLocker(client, time.Minute)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "po:1")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "po:1")
	require.ErrorIs(t, err, ErrLockHeld)

	release()
	release2, err := l.Acquire(ctx, "po:1")
	require.NoError(t, err)
	release2()

	var none *Locker
	noop, err := none.Acquire(ctx, "po:1")
	require.NoError(t, err)
	noop()
}
