package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradebot/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(&config.Config{Redis: config.RedisConfig{Enabled: false, Prefix: "test"}})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)

	assert.False(t, client.Enabled())
	assert.Equal(t, "test", client.Prefix())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")

	allowed, remaining, err := limiter.Allow(context.Background(), TelegramRateLimit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, TelegramRateLimit.Limit, remaining)
	assert.NoError(t, limiter.Wait(context.Background(), TelegramRateLimit))
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	var result float64
	found, err := cache.Get(ctx, QuoteKey("BBG000B9XRY4"), &result)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Set(ctx, QuoteKey("BBG000B9XRY4"), 101.5, TTLQuote))
}

func TestCache_NilIsDisabled(t *testing.T) {
	var cache *Cache
	var result float64

	found, err := cache.Get(context.Background(), "k", &result)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "quote:BBG000B9XRY4", QuoteKey("BBG000B9XRY4"))
	assert.Equal(t, "top:100", TopTickersKey(100))
}
