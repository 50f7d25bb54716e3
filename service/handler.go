package service

import (
	"sync"

	"proxy2api/config"
	"proxy2api/log"
	"proxy2api/models"
	"proxy2api/pkg/cache"
	"proxy2api/pkg/connpool"
	"proxy2api/pkg/ratelimit"
	"proxy2api/proxy"
)

// ProxyHandler 代理池服务处理器结构体
type ProxyHandler struct {
	config      *config.Config
	fetcher     *proxy.SourceFetcher
	manager     PoolManager
	scheduler   RefreshScheduler
	sourceCache *cache.SourceCache
	connPool    *connpool.ConnPool
	rateLimiter ratelimit.RateLimiter

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewProxyHandler 创建新的代理池处理器实例，按配置组装全部组件
func NewProxyHandler(cfg *config.Config) *ProxyHandler {
	// 连接池上限跟随测试并发数，避免验证高峰期间排队
	connPool := connpool.NewConnPool(connpool.OptionsForConcurrency(cfg.ConcurrencyLimit()))

	var sourceCache *cache.SourceCache
	if cfg.Cache.Enabled {
		sourceCache = cache.NewSourceCache(cache.SourceCacheOptions{
			TTL:             cfg.Cache.SourceCacheTTL,
			CleanupInterval: cfg.Cache.CleanupInterval,
			Enabled:         true,
		})
	}

	fetcher := proxy.NewSourceFetcher(cfg, sourceCache, connPool)
	validator := proxy.NewEndpointValidator(cfg.TestURL(), cfg.Pool.TestTimeout)
	tester := proxy.NewBatchTester(validator, cfg.BatchSize(), cfg.ConcurrencyLimit())
	manager := proxy.NewManager(fetcher, tester, cfg.Expiration())
	scheduler := proxy.NewScheduler(manager, cfg.Scheduler.RefreshInterval, cfg.Scheduler.MaxRunTime)

	// 手动刷新接口的令牌桶限流，按分钟配置换算为每秒速率
	rateLimiter := ratelimit.NewTokenBucketLimiter(
		float64(cfg.RateLimit.RefreshRatePerMinute)/60.0,
		cfg.RateLimit.RefreshBurst,
	)

	return &ProxyHandler{
		config:      cfg,
		fetcher:     fetcher,
		manager:     manager,
		scheduler:   scheduler,
		sourceCache: sourceCache,
		connPool:    connPool,
		rateLimiter: rateLimiter,
		shutdownCh:  make(chan struct{}),
	}
}

// Close 释放处理器持有的资源
func (h *ProxyHandler) Close() error {
	if h.scheduler != nil {
		h.scheduler.Stop()
	}
	if h.fetcher != nil {
		h.fetcher.Close()
	}
	if h.sourceCache != nil {
		h.sourceCache.Stop()
	}
	log.Info("处理器资源已释放")
	return nil
}

// ShutdownSignal 返回关闭信号通道，POST /shutdown 触发后关闭
func (h *ProxyHandler) ShutdownSignal() <-chan struct{} {
	return h.shutdownCh
}

// Shutdown 触发服务关闭信号，可安全重复调用
func (h *ProxyHandler) Shutdown() {
	h.shutdownOnce.Do(func() {
		close(h.shutdownCh)
	})
}

// GetConfig 获取配置
func (h *ProxyHandler) GetConfig() *config.Config {
	return h.config
}

// GetCacheMetrics 获取源缓存指标
func (h *ProxyHandler) GetCacheMetrics() map[string]interface{} {
	if h.sourceCache == nil {
		return nil
	}
	return h.sourceCache.GetMetrics()
}

// GetConnPoolMetrics 获取连接池指标
func (h *ProxyHandler) GetConnPoolMetrics() map[string]interface{} {
	if h.connPool == nil {
		return nil
	}
	return h.connPool.GetMetrics()
}

// GetRateLimiterMetrics 获取限流器指标
func (h *ProxyHandler) GetRateLimiterMetrics() map[string]interface{} {
	if h.rateLimiter == nil {
		return nil
	}
	return h.rateLimiter.GetMetrics()
}

// GetMetrics 获取处理器自身的运行指标
func (h *ProxyHandler) GetMetrics() map[string]interface{} {
	if h.manager == nil || h.scheduler == nil {
		return nil
	}
	stats := h.manager.Stats()
	return map[string]interface{}{
		"proxy_count":       stats.ProxyCount,
		"refresh_count":     stats.RefreshCount,
		"scheduler_running": h.scheduler.IsRunning(),
	}
}

// GetPoolStats 获取代理池统计的传输形式
func (h *ProxyHandler) GetPoolStats() models.StatsData {
	if h.manager == nil {
		return models.StatsData{}
	}
	return h.manager.Stats().ToData()
}
