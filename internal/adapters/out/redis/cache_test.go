package redis_test

import (
	"context"
	"testing"
	"time"

	cache "ordering/internal/adapters/out/redis"
	"ordering/internal/core/domain/model/kernel"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T, ttl time.Duration) (*cache.ProcessedEventCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	c, err := cache.NewProcessedEventCache(rdb, ttl)
	require.NoError(t, err)
	return c, mr
}

func TestProcessedEventCache_RememberThenSeen(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t, time.Hour)
	id := kernel.NewUUID()

	seen, err := c.Seen(ctx, id)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, c.Remember(ctx, id))

	seen, err = c.Seen(ctx, id)
	require.NoError(t, err)
	assert.True(t, seen)

	other, err := c.Seen(ctx, kernel.NewUUID())
	require.NoError(t, err)
	assert.False(t, other)
}

func TestProcessedEventCache_EntriesExpire(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t, time.Minute)
	id := kernel.NewUUID()
	require.NoError(t, c.Remember(ctx, id))

	assert.Equal(t, time.Minute, mr.TTL("ordering:processed:"+id.String()))

	mr.FastForward(2 * time.Minute)

	seen, err := c.Seen(ctx, id)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestProcessedEventCache_ServerDown(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t, time.Minute)
	mr.SetError("ERR server failure")

	_, err := c.Seen(ctx, kernel.NewUUID())
	require.Error(t, err)
	require.Error(t, c.Remember(ctx, kernel.NewUUID()))
}

func TestNewProcessedEventCache_Validation(t *testing.T) {
	_, err := cache.NewProcessedEventCache(nil, time.Minute)
	require.Error(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer rdb.Close()
	_, err = cache.NewProcessedEventCache(rdb, 0)
	require.Error(t, err)
}
