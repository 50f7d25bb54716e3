package models

import "time"

// ProxyResponse API 统一响应结构
// 空池等预期内的结果通过 success=false 表达，不走错误响应
type ProxyResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
}

// PoolStats 代理池状态快照
// NextRefresh 恒等于 LastRefresh 加过期窗口
type PoolStats struct {
	ProxyCount   int           `json:"proxy_count"`
	LastRefresh  time.Time     `json:"last_refresh"`
	NextRefresh  time.Time     `json:"next_refresh"`
	RefreshCount int64         `json:"refresh_count"`
	Expiration   time.Duration `json:"-"`
}

// StatsData 代理池状态的序列化形式，未刷新过时时间字段为 null
type StatsData struct {
	ProxyCount   int        `json:"proxy_count"`
	LastRefresh  *time.Time `json:"last_refresh"`
	NextRefresh  *time.Time `json:"next_refresh"`
	RefreshCount int64      `json:"refresh_count"`
}

// ToData 转换为序列化形式
func (s PoolStats) ToData() StatsData {
	data := StatsData{
		ProxyCount:   s.ProxyCount,
		RefreshCount: s.RefreshCount,
	}

	if !s.LastRefresh.IsZero() {
		last := s.LastRefresh
		next := s.NextRefresh
		data.LastRefresh = &last
		data.NextRefresh = &next
	}

	return data
}

// HealthData 健康检查响应
type HealthData struct {
	Status      string     `json:"status"`
	ProxyCount  int        `json:"proxy_count"`
	LastRefresh *time.Time `json:"last_refresh"`
	Service     string     `json:"service"`
}

// SchedulerStatus 定时刷新任务状态响应
type SchedulerStatus struct {
	Status   string `json:"status"`
	Duration string `json:"duration,omitempty"`
}

// ServiceInfo 根路径的服务信息
type ServiceInfo struct {
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Status    string            `json:"status"`
	Endpoints map[string]string `json:"endpoints"`
}
