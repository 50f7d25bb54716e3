package service

import (
	"context"
	"time"

	"proxy2api/models"

	"github.com/gin-gonic/gin"
)

// ProxyService 代理池服务接口
type ProxyService interface {
	// HTTP处理器
	IndexHandler(c *gin.Context)
	ProxiesHandler(c *gin.Context)
	RandomProxyHandler(c *gin.Context)
	StatsHandler(c *gin.Context)
	HealthHandler(c *gin.Context)
	RefreshHandler(c *gin.Context)
	StartRefreshHandler(c *gin.Context)
	StopRefreshHandler(c *gin.Context)
	ShutdownHandler(c *gin.Context)
}

// PoolManager 代理池管理接口
type PoolManager interface {
	GetProxies(ctx context.Context) []string
	GetRandomProxy(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context) error
	Stats() models.PoolStats
}

// RefreshScheduler 后台刷新调度接口
type RefreshScheduler interface {
	Start(runTime time.Duration) bool
	Stop() bool
	IsRunning() bool
}
