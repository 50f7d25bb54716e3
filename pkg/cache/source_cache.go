package cache

import (
	"proxy2api/log"
	"proxy2api/pkg/constants"
	"sync"
	"time"
)

// SourceCache 缓存各代理源抓到的原始候选列表
// 短时缓存，避免强制刷新在短时间内反复请求同一上游
type SourceCache struct {
	cache   *Cache
	enabled bool
	mu      sync.RWMutex
}

// SourceCacheOptions 缓存选项
type SourceCacheOptions struct {
	TTL             time.Duration
	CleanupInterval time.Duration
	Enabled         bool
}

// DefaultSourceCacheOptions 返回默认的缓存选项
func DefaultSourceCacheOptions() SourceCacheOptions {
	return SourceCacheOptions{
		TTL:             constants.DefaultSourceCacheTTL,
		CleanupInterval: constants.DefaultCleanupInterval,
		Enabled:         true,
	}
}

// NewSourceCache 创建一个新的源列表缓存
func NewSourceCache(options SourceCacheOptions) *SourceCache {
	if options.CleanupInterval <= 0 {
		options.CleanupInterval = constants.DefaultCleanupInterval
	}

	return &SourceCache{
		cache:   NewCache(options.TTL, options.CleanupInterval),
		enabled: options.Enabled,
	}
}

// IsEnabled 检查缓存是否启用
func (sc *SourceCache) IsEnabled() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.enabled
}

// Enable 启用缓存
func (sc *SourceCache) Enable() {
	sc.mu.Lock()
	sc.enabled = true
	sc.mu.Unlock()
	log.Info("Source cache enabled")
}

// Disable 禁用缓存
func (sc *SourceCache) Disable() {
	sc.mu.Lock()
	sc.enabled = false
	sc.mu.Unlock()
	log.Info("Source cache disabled")
}

// GetCandidates 获取某个源缓存的候选列表
func (sc *SourceCache) GetCandidates(sourceURL string) ([]string, bool) {
	if !sc.IsEnabled() {
		return nil, false
	}

	value, found := sc.cache.Get(constants.SourceCachePrefix + sourceURL)
	if !found {
		return nil, false
	}

	candidates, ok := value.([]string)
	if !ok {
		log.Warn("Invalid type in source cache for %s", sourceURL)
		sc.cache.Delete(constants.SourceCachePrefix + sourceURL)
		return nil, false
	}

	log.Debug("Source cache hit for %s, %d candidates", sourceURL, len(candidates))
	return candidates, true
}

// SetCandidates 缓存某个源的候选列表
func (sc *SourceCache) SetCandidates(sourceURL string, candidates []string) {
	if !sc.IsEnabled() || len(candidates) == 0 {
		return
	}

	sc.cache.Set(constants.SourceCachePrefix+sourceURL, candidates, 0)
	log.Debug("Source cache set for %s, %d candidates", sourceURL, len(candidates))
}

// Clear 清空缓存
func (sc *SourceCache) Clear() {
	sc.cache.Clear()
	log.Info("Source cache cleared")
}

// GetMetrics 获取缓存指标
func (sc *SourceCache) GetMetrics() map[string]interface{} {
	metrics := sc.cache.GetMetrics()
	metrics["enabled"] = sc.IsEnabled()
	return metrics
}

// Stop 停止后台清理
func (sc *SourceCache) Stop() {
	sc.cache.Stop()
}
