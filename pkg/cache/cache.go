package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Item 表示缓存项
type Item struct {
	Value      interface{}
	Expiration int64
	Created    int64
}

// IsExpired 检查缓存项是否过期
func (item Item) IsExpired() bool {
	if item.Expiration == 0 {
		return false
	}
	return time.Now().UnixNano() > item.Expiration
}

// Cache 表示一个带过期清理的内存缓存
type Cache struct {
	items             map[string]Item
	mu                sync.RWMutex
	defaultExpiration time.Duration
	cleanupInterval   time.Duration
	stop              chan struct{}
	stopOnce          sync.Once
	metrics           *Metrics
}

// Metrics 缓存指标
type Metrics struct {
	hits      int64
	misses    int64
	size      int64
	startTime time.Time
}

// NewMetrics 创建新的指标实例
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// RecordHit 记录缓存命中
func (m *Metrics) RecordHit() {
	atomic.AddInt64(&m.hits, 1)
}

// RecordMiss 记录缓存未命中
func (m *Metrics) RecordMiss() {
	atomic.AddInt64(&m.misses, 1)
}

// UpdateSize 更新缓存大小
func (m *Metrics) UpdateSize(size int64) {
	atomic.StoreInt64(&m.size, size)
}

// GetStats 获取指标统计
func (m *Metrics) GetStats() map[string]interface{} {
	hits := atomic.LoadInt64(&m.hits)
	misses := atomic.LoadInt64(&m.misses)
	size := atomic.LoadInt64(&m.size)

	total := hits + misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return map[string]interface{}{
		"hits":           hits,
		"misses":         misses,
		"size":           size,
		"hit_rate":       hitRate,
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}

// NewCache 创建一个新的缓存实例
// defaultExpiration 是默认的缓存项过期时间
// cleanupInterval <= 0 时不启动自动清理
func NewCache(defaultExpiration, cleanupInterval time.Duration) *Cache {
	cache := &Cache{
		items:             make(map[string]Item),
		defaultExpiration: defaultExpiration,
		cleanupInterval:   cleanupInterval,
		stop:              make(chan struct{}),
		metrics:           NewMetrics(),
	}

	// 启动定期清理
	if cleanupInterval > 0 {
		go cache.startCleanupTimer()
	}

	return cache
}

// startCleanupTimer 启动清理定时器
func (c *Cache) startCleanupTimer() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.DeleteExpired()
		case <-c.stop:
			return
		}
	}
}

// Set 添加一个带有过期时间的缓存项，duration 为 0 时使用默认过期时间
func (c *Cache) Set(key string, value interface{}, duration time.Duration) {
	if duration == 0 {
		duration = c.defaultExpiration
	}

	var expiration int64
	if duration > 0 {
		expiration = time.Now().Add(duration).UnixNano()
	}

	c.mu.Lock()
	c.items[key] = Item{
		Value:      value,
		Expiration: expiration,
		Created:    time.Now().UnixNano(),
	}
	size := int64(len(c.items))
	c.mu.Unlock()

	c.metrics.UpdateSize(size)
}

// Get 获取缓存项，存在且未过期时第二个返回值为 true
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	item, found := c.items[key]
	c.mu.RUnlock()

	if !found || item.IsExpired() {
		c.metrics.RecordMiss()
		return nil, false
	}

	c.metrics.RecordHit()
	return item.Value, true
}

// Delete 从缓存中删除一个项
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	size := int64(len(c.items))
	c.mu.Unlock()

	c.metrics.UpdateSize(size)
}

// DeleteExpired 删除所有过期的项
func (c *Cache) DeleteExpired() {
	now := time.Now().UnixNano()

	c.mu.Lock()
	for k, v := range c.items {
		if v.Expiration > 0 && now > v.Expiration {
			delete(c.items, k)
		}
	}
	size := int64(len(c.items))
	c.mu.Unlock()

	c.metrics.UpdateSize(size)
}

// Clear 清空缓存
func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]Item)
	c.mu.Unlock()

	c.metrics.UpdateSize(0)
}

// Count 返回缓存中的项数
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// GetMetrics 获取缓存指标
func (c *Cache) GetMetrics() map[string]interface{} {
	return c.metrics.GetStats()
}

// Stop 停止自动清理，可重复调用
func (c *Cache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}
