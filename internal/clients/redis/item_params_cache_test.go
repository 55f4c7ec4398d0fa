package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-adaptive/internal/learning/irt"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

func TestItemParamsKey(t *testing.T) {
	id := uuid.MustParse("4b1f2c3d-0000-4000-8000-000000000001")
	assert.Equal(t, "irt:item:4b1f2c3d-0000-4000-8000-000000000001", ItemParamsKey(id))
}

func TestNilCacheAlwaysMisses(t *testing.T) {
	var c *ItemParamsCache
	ctx := context.Background()

	_, err := c.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, c.Set(ctx, uuid.New(), irt.ItemParams{}))
	assert.NoError(t, c.Invalidate(ctx, []uuid.UUID{uuid.New()}))
	assert.NoError(t, c.Close())

	p, err := c.Source().Lookup(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestDisabledWithoutAddr(t *testing.T) {
	c, err := NewItemParamsCache(logger.Nop(), "", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestItemParamsCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis integration tests")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	c := NewItemParamsCacheFromClient(logger.Nop(), rdb, time.Minute)
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	id := uuid.New()
	want := irt.ItemParams{Difficulty: 1.25, Discrimination: 0.8, Guessing: 0.2}
	require.NoError(t, c.Set(ctx, id, want))

	got, err := c.Source().Lookup(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	ttl, err := rdb.TTL(ctx, ItemParamsKey(id)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Invalidate(ctx, []uuid.UUID{id}))
	_, err = c.Get(ctx, id)
	assert.ErrorIs(t, err, ErrCacheMiss)
}
