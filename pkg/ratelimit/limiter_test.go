package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketLimiter_BurstThenReject(t *testing.T) {
	t.Parallel()

	limiter := NewTokenBucketLimiter(0.001, 2)

	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())
}

func TestTokenBucketLimiter_Refills(t *testing.T) {
	t.Parallel()

	limiter := NewTokenBucketLimiter(100, 1)

	require.True(t, limiter.Allow())

	// 100/s 的速率下 50ms 足够补满一个令牌
	time.Sleep(50 * time.Millisecond)
	assert.True(t, limiter.Allow())
}

func TestTokenBucketLimiter_DisabledAllowsEverything(t *testing.T) {
	t.Parallel()

	limiter := NewTokenBucketLimiter(0, 1)
	assert.False(t, limiter.IsEnabled())

	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow())
	}
}

func TestTokenBucketLimiter_BurstFloor(t *testing.T) {
	t.Parallel()

	limiter := NewTokenBucketLimiter(1, 0)
	assert.True(t, limiter.Allow())
}

func TestTokenBucketLimiter_WaitHonorsContext(t *testing.T) {
	t.Parallel()

	limiter := NewTokenBucketLimiter(0.001, 1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTokenBucketLimiter_WaitReturnsWhenAllowed(t *testing.T) {
	t.Parallel()

	limiter := NewTokenBucketLimiter(100, 1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.NoError(t, limiter.Wait(ctx))
}

func TestTokenBucketLimiter_Metrics(t *testing.T) {
	t.Parallel()

	limiter := NewTokenBucketLimiter(0.001, 1)

	require.True(t, limiter.Allow())
	require.False(t, limiter.Allow())

	metrics := limiter.GetMetrics()
	assert.Equal(t, true, metrics["enabled"])
	assert.Equal(t, int64(2), metrics["request_count"])
	assert.Equal(t, int64(1), metrics["allowed_count"])
	assert.Equal(t, int64(1), metrics["rejected_count"])
	assert.Equal(t, float64(50), metrics["rejection_rate"])
}
