package proxy

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"proxy2api/log"
	"proxy2api/models"
	"proxy2api/pkg/errors"
)

// Manager 负责维护可用代理池
// 池为空或超过过期窗口即视为过期，读取时同步刷新
type Manager struct {
	fetcher    Fetcher
	tester     Tester
	expiration time.Duration

	mu           sync.RWMutex
	proxies      []string
	lastRefresh  time.Time
	refreshCount int64

	// refreshMu 串行化刷新循环，锁不跨网络请求持有 mu
	refreshMu sync.Mutex
}

// NewManager 创建一个新的代理池管理器实例
func NewManager(fetcher Fetcher, tester Tester, expiration time.Duration) *Manager {
	return &Manager{
		fetcher:    fetcher,
		tester:     tester,
		expiration: expiration,
	}
}

// GetProxies 返回当前可用代理的快照
// 池过期时同步刷新；并发读取只触发一次刷新，其余等待后复用结果
func (m *Manager) GetProxies(ctx context.Context) []string {
	m.mu.RLock()
	if m.isFreshLocked() {
		snapshot := m.snapshotLocked()
		m.mu.RUnlock()
		return snapshot
	}
	m.mu.RUnlock()

	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	// 双重检查，等待期间其他goroutine可能已经完成刷新
	m.mu.RLock()
	fresh := m.isFreshLocked()
	m.mu.RUnlock()

	if !fresh {
		if err := m.refreshCycle(ctx); err != nil {
			log.Error("代理池刷新失败: %v", err)
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// ForceRefresh 无条件执行一次刷新循环
func (m *Manager) ForceRefresh(ctx context.Context) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()
	return m.refreshCycle(ctx)
}

// refreshCycle 执行一次完整的抓取、验证、替换循环
// 抓取失败时保留现有池和时间戳，计数器不变
func (m *Manager) refreshCycle(ctx context.Context) error {
	log.Info("正在刷新代理池...")

	candidates, err := m.fetcher.FetchProxies(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrRefreshFailed, err)
	}
	log.Info("Fetched %d candidates, testing...", len(candidates))

	valid := m.tester.TestAll(ctx, candidates)

	m.mu.Lock()
	m.proxies = valid
	m.lastRefresh = time.Now()
	m.refreshCount++
	m.mu.Unlock()

	log.Info("代理池已更新: %d 个可用代理", len(valid))
	return nil
}

// GetRandomProxy 从池中随机取一个代理，池过期时先刷新
func (m *Manager) GetRandomProxy(ctx context.Context) (string, error) {
	proxies := m.GetProxies(ctx)
	if len(proxies) == 0 {
		return "", errors.ErrNoProxyAvailable
	}
	return proxies[rand.Intn(len(proxies))], nil
}

// PickRandom 从当前池中随机取一个代理，不触发刷新
func (m *Manager) PickRandom() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.proxies) == 0 {
		return "", errors.ErrNoProxyAvailable
	}
	return m.proxies[rand.Intn(len(m.proxies))], nil
}

// Stats 返回代理池的当前统计信息
func (m *Manager) Stats() models.PoolStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.PoolStats{
		ProxyCount:   len(m.proxies),
		LastRefresh:  m.lastRefresh,
		NextRefresh:  m.lastRefresh.Add(m.expiration),
		RefreshCount: m.refreshCount,
		Expiration:   m.expiration,
	}
}

// isFreshLocked 判断池是否仍然新鲜，调用方需持有 mu
// 过期窗口为 0 时池永远过期，每次读取都会触发刷新
func (m *Manager) isFreshLocked() bool {
	return len(m.proxies) > 0 && time.Since(m.lastRefresh) < m.expiration
}

// snapshotLocked 复制一份当前池，避免解锁后被修改
func (m *Manager) snapshotLocked() []string {
	snapshot := make([]string, len(m.proxies))
	copy(snapshot, m.proxies)
	return snapshot
}
