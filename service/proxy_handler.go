package service

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"proxy2api/log"
	"proxy2api/models"
	"proxy2api/pkg/constants"

	"github.com/gin-gonic/gin"
)

// IndexHandler 服务信息
func (h *ProxyHandler) IndexHandler(c *gin.Context) {
	c.JSON(http.StatusOK, models.ServiceInfo{
		Service: constants.ServiceName,
		Version: constants.ServiceVersion,
		Status:  "running",
		Endpoints: map[string]string{
			"proxies":       "GET /api/v1/proxies",
			"random_proxy":  "GET /api/v1/proxy/random",
			"stats":         "GET /api/v1/stats",
			"health":        "GET /health",
			"refresh":       "POST /api/v1/refresh",
			"start_refresh": "POST /api/v1/start-refresh",
			"stop_refresh":  "POST /api/v1/stop-refresh",
		},
	})
}

// ProxiesHandler 返回当前代理池，池过期时同步刷新
func (h *ProxyHandler) ProxiesHandler(c *gin.Context) {
	proxies := h.manager.GetProxies(c.Request.Context())
	if len(proxies) == 0 {
		c.JSON(http.StatusOK, models.ProxyResponse{
			Success: false,
			Data:    []string{},
			Message: "No valid proxies available",
		})
		return
	}

	c.JSON(http.StatusOK, models.ProxyResponse{
		Success: true,
		Data:    proxies,
		Message: fmt.Sprintf("Retrieved %d valid proxies", len(proxies)),
	})
}

// RandomProxyHandler 随机返回一个代理
// 空池不是API层面的错误，保持 HTTP 200 并返回 success=false
func (h *ProxyHandler) RandomProxyHandler(c *gin.Context) {
	proxyAddr, err := h.manager.GetRandomProxy(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, models.ProxyResponse{
			Success: false,
			Data:    nil,
			Message: "No valid proxies available",
		})
		return
	}

	c.JSON(http.StatusOK, models.ProxyResponse{
		Success: true,
		Data:    proxyAddr,
		Message: "Random proxy retrieved successfully",
	})
}

// StatsHandler 返回代理池统计信息
func (h *ProxyHandler) StatsHandler(c *gin.Context) {
	stats := h.manager.Stats()
	c.JSON(http.StatusOK, models.ProxyResponse{
		Success: true,
		Data:    stats.ToData(),
		Message: "Statistics retrieved successfully",
	})
}

// HealthHandler 健康检查
func (h *ProxyHandler) HealthHandler(c *gin.Context) {
	status := "healthy"
	if h.manager == nil {
		status = "unhealthy"
	}

	var data models.HealthData
	data.Status = status
	data.Service = constants.ServiceName
	if h.manager != nil {
		stats := h.manager.Stats().ToData()
		data.ProxyCount = stats.ProxyCount
		data.LastRefresh = stats.LastRefresh
	}

	c.JSON(http.StatusOK, data)
}

// RefreshHandler 手动触发一次代理池刷新，受令牌桶限流保护
func (h *ProxyHandler) RefreshHandler(c *gin.Context) {
	if h.rateLimiter != nil && !h.rateLimiter.Allow() {
		log.Warn("手动刷新请求被限流拒绝")
		c.JSON(http.StatusTooManyRequests, models.ProxyResponse{
			Success: false,
			Message: "Rate limit exceeded, please try again later",
		})
		return
	}

	if err := h.manager.ForceRefresh(c.Request.Context()); err != nil {
		// 刷新失败只降级池状态，不向调用方暴露5xx
		log.Error("手动刷新失败: %v", err)
		c.JSON(http.StatusOK, models.ProxyResponse{
			Success: false,
			Message: "Proxy pool refresh failed",
		})
		return
	}

	stats := h.manager.Stats()
	c.JSON(http.StatusOK, models.ProxyResponse{
		Success: true,
		Data:    stats.ToData(),
		Message: "Proxy pool refreshed successfully",
	})
}

// StartRefreshHandler 启动后台定时刷新
// run_time 为运行秒数，缺省使用配置的最大运行时长
func (h *ProxyHandler) StartRefreshHandler(c *gin.Context) {
	runTime := h.config.Scheduler.MaxRunTime
	if raw := c.Query("run_time"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			c.JSON(http.StatusBadRequest, models.ProxyResponse{
				Success: false,
				Message: "run_time must be a positive number of seconds",
			})
			return
		}
		runTime = time.Duration(seconds) * time.Second
	}

	if h.scheduler.Start(runTime) {
		c.JSON(http.StatusOK, models.SchedulerStatus{
			Status:   "started",
			Duration: runTime.String(),
		})
		return
	}

	c.JSON(http.StatusOK, models.SchedulerStatus{Status: "already running"})
}

// StopRefreshHandler 停止后台定时刷新
func (h *ProxyHandler) StopRefreshHandler(c *gin.Context) {
	if h.scheduler.Stop() {
		c.JSON(http.StatusOK, models.SchedulerStatus{Status: "stopped"})
		return
	}
	c.JSON(http.StatusOK, models.SchedulerStatus{Status: "not running"})
}

// ShutdownHandler 触发服务优雅关闭
func (h *ProxyHandler) ShutdownHandler(c *gin.Context) {
	log.Info("接收到关闭请求，准备停止服务")
	c.JSON(http.StatusOK, gin.H{"message": "Server is shutting down"})
	h.Shutdown()
}
