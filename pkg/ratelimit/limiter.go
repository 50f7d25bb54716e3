package ratelimit

import (
	"context"
	"proxy2api/log"
	"sync"
	"sync/atomic"
	"time"
)

// RateLimiter 请求限制器接口
type RateLimiter interface {
	// Allow 判断是否允许当前请求
	Allow() bool

	// Wait 阻塞直到允许请求或上下文取消
	Wait(ctx context.Context) error

	// GetMetrics 获取指标
	GetMetrics() map[string]interface{}
}

// TokenBucketLimiter 令牌桶限制器，保护强制刷新接口不被刷爆
type TokenBucketLimiter struct {
	rate     float64   // 每秒补充的令牌数
	burst    int       // 桶容量
	tokens   float64   // 当前令牌数
	lastTime time.Time // 上次补充时间
	mu       sync.Mutex
	enabled  bool

	requestCount  int64
	allowedCount  int64
	rejectedCount int64
}

// NewTokenBucketLimiter 创建令牌桶限制器
// rate <= 0 时限制器处于关闭状态，所有请求直接放行
func NewTokenBucketLimiter(rate float64, burst int) *TokenBucketLimiter {
	if burst < 1 {
		burst = 1
	}

	limiter := &TokenBucketLimiter{
		rate:     rate,
		burst:    burst,
		tokens:   float64(burst),
		lastTime: time.Now(),
		enabled:  rate > 0,
	}

	if !limiter.enabled {
		log.Warn("Rate limiter created with non-positive rate, limiting disabled")
	}

	return limiter
}

// Allow 判断是否允许当前请求
func (l *TokenBucketLimiter) Allow() bool {
	atomic.AddInt64(&l.requestCount, 1)

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled {
		atomic.AddInt64(&l.allowedCount, 1)
		return true
	}

	now := time.Now()
	elapsed := now.Sub(l.lastTime).Seconds()
	l.lastTime = now

	// 补充令牌，不超过桶容量
	l.tokens = minFloat(float64(l.burst), l.tokens+elapsed*l.rate)

	if l.tokens < 1 {
		atomic.AddInt64(&l.rejectedCount, 1)
		return false
	}

	l.tokens--
	atomic.AddInt64(&l.allowedCount, 1)
	return true
}

// Wait 阻塞直到允许请求或上下文取消
func (l *TokenBucketLimiter) Wait(ctx context.Context) error {
	for {
		if l.Allow() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// IsEnabled 检查限制器是否启用
func (l *TokenBucketLimiter) IsEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// GetMetrics 获取指标
func (l *TokenBucketLimiter) GetMetrics() map[string]interface{} {
	l.mu.Lock()
	availableTokens := l.tokens
	l.mu.Unlock()

	requestCount := atomic.LoadInt64(&l.requestCount)
	rejectedCount := atomic.LoadInt64(&l.rejectedCount)

	return map[string]interface{}{
		"enabled":          l.IsEnabled(),
		"rate":             l.rate,
		"burst":            l.burst,
		"available_tokens": availableTokens,
		"request_count":    requestCount,
		"allowed_count":    atomic.LoadInt64(&l.allowedCount),
		"rejected_count":   rejectedCount,
		"rejection_rate":   calculatePercentage(rejectedCount, requestCount),
	}
}

// minFloat 返回两个浮点数中的较小值
func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// calculatePercentage 计算百分比
func calculatePercentage(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
