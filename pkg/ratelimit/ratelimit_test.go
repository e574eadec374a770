package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitConstructors(t *testing.T) {
	assert.Equal(t, Limit{Rate: 5, Period: time.Minute, Burst: 5}, PerMinute(5))
	assert.Equal(t, Limit{Rate: 3, Period: time.Hour, Burst: 3}, PerHour(3))
}

func TestNoopLimiter(t *testing.T) {
	res, err := NoopLimiter{}.Allow(context.Background(), "k", PerMinute(1))
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisRateLimiter_Unreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:0",
		DialTimeout: 50 * time.Millisecond,
	})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := NewRedisRateLimiter(rdb).Allow(ctx, "k", PerMinute(1))
	assert.Error(t, err)
}
