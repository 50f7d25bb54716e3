package proxy

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"proxy2api/log"
	"proxy2api/pkg/constants"
)

// Scheduler 周期性触发代理池刷新的后台调度器
// 同一时刻最多运行一个刷新循环，到达运行时长上限后自动停止
type Scheduler struct {
	refresher  Refresher
	interval   time.Duration
	maxRunTime time.Duration

	mu      sync.Mutex
	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler 创建一个新的刷新调度器实例
func NewScheduler(refresher Refresher, interval, maxRunTime time.Duration) *Scheduler {
	if interval <= 0 {
		interval = constants.DefaultRefreshInterval
	}
	if maxRunTime <= 0 {
		maxRunTime = constants.DefaultMaxRunTime
	}
	return &Scheduler{
		refresher:  refresher,
		interval:   interval,
		maxRunTime: maxRunTime,
	}
}

// Start 启动后台刷新循环，runTime <= 0 时使用默认运行时长
// 调度器已在运行时返回 false
func (s *Scheduler) Start(runTime time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return false
	}
	if runTime <= 0 {
		runTime = s.maxRunTime
	}

	s.stopCh = make(chan struct{})
	s.running.Store(true)
	s.wg.Add(1)
	go s.runLoop(runTime, s.stopCh)

	log.Info("后台刷新已启动: 间隔 %s, 运行时长 %s", s.interval, runTime)
	return true
}

// Stop 停止后台刷新循环并等待其退出，未在运行时返回 false
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	if !s.running.Load() || s.stopCh == nil {
		s.mu.Unlock()
		return false
	}
	close(s.stopCh)
	s.stopCh = nil
	s.mu.Unlock()

	s.wg.Wait()
	return true
}

// IsRunning 返回调度器当前是否在运行
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// runLoop 刷新主循环，启动时立即刷新一次，之后按间隔触发
func (s *Scheduler) runLoop(runTime time.Duration, stopCh chan struct{}) {
	defer s.wg.Done()
	defer s.running.Store(false)

	s.refresh()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	deadline := time.NewTimer(runTime)
	defer deadline.Stop()

	for {
		select {
		case <-ticker.C:
			s.refresh()
		case <-deadline.C:
			log.Info("后台刷新达到运行时长上限，自动停止")
			return
		case <-stopCh:
			log.Info("后台刷新已停止")
			return
		}
	}
}

// refresh 执行单次刷新，失败只记录日志，循环继续
func (s *Scheduler) refresh() {
	if err := s.refresher.ForceRefresh(context.Background()); err != nil {
		log.Error("定时刷新失败: %v", err)
	}
}
