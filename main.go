package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"proxy2api/config"
	"proxy2api/log"
	"proxy2api/middleware"
	"proxy2api/models"
	"proxy2api/service"

	"github.com/gin-gonic/gin"
)

// 系统状态指标
// 优化点: 扩展系统指标收集
// 目的: 提供更全面的系统运行状态信息
// 预期效果: 更容易监控和分析系统性能
type SystemMetrics struct {
	// 基础运行时指标
	Uptime       time.Duration `json:"uptime"`        // 服务运行时间
	StartTime    string        `json:"start_time"`    // 服务启动时间
	NumCPU       int           `json:"num_cpu"`       // CPU核心数
	NumGoroutine int           `json:"num_goroutine"` // Goroutine数量
	GoVersion    string        `json:"go_version"`    // Go版本

	// 内存指标
	AllocatedMem  uint64 `json:"allocated_mem"`   // 已分配内存
	TotalAllocMem uint64 `json:"total_alloc_mem"` // 总分配内存
	HeapObjects   uint64 `json:"heap_objects"`    // 堆对象数

	// GC指标
	GCPauseTotal time.Duration `json:"gc_pause_total"` // GC暂停总时间
	LastGCTime   time.Time     `json:"last_gc_time"`   // 最后一次GC时间
	NumGC        uint32        `json:"num_gc"`         // GC次数

	// 服务指标
	RequestCount int64 `json:"request_count"` // 请求总数
	SuccessCount int64 `json:"success_count"` // 成功请求数
	ErrorCount   int64 `json:"error_count"`   // 错误请求数

	// 代理池指标
	PoolStats models.StatsData `json:"pool_stats"` // 代理池统计

	// 组件指标
	CacheStats map[string]interface{} `json:"cache_stats,omitempty"` // 源缓存指标
	ConnStats  map[string]interface{} `json:"conn_stats,omitempty"`  // 连接池指标
	RateStats  map[string]interface{} `json:"rate_stats,omitempty"`  // 限流器指标
}

// 服务启动时间
var (
	startTime time.Time
	// 统计信息
	requestCount int64
	successCount int64
	errorCount   int64
)

// 优化点: 重构main函数，添加优雅关闭机制
// 目的: 确保服务能够正确响应系统信号，优雅地关闭资源
// 预期效果: 提高服务稳定性，防止资源泄漏
func main() {
	// 记录启动时间
	startTime = time.Now()

	// 加载配置
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal("加载配置失败: %v", err)
	}

	// 启动前验证配置，提前发现配置问题
	if err := validateConfig(cfg); err != nil {
		log.Fatal("配置验证失败: %v", err)
	}

	// 创建处理器
	handler := service.NewProxyHandler(cfg)

	// 创建路由器
	router := gin.Default()

	// 添加全局中间件
	setupMiddlewares(router, cfg)

	// 请求计数中间件，收集请求统计数据
	router.Use(func(c *gin.Context) {
		atomic.AddInt64(&requestCount, 1)

		c.Next()

		status := c.Writer.Status()
		if status >= 200 && status < 400 {
			atomic.AddInt64(&successCount, 1)
		} else {
			atomic.AddInt64(&errorCount, 1)
		}
	})

	// 注册路由
	setupRoutes(router, handler)

	// 创建HTTP服务器
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 监听 SIGINT, SIGTERM 信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// 异步启动服务器
	go func() {
		log.Info("服务器正在运行，监听地址 %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("启动服务器失败: %v", err)
		}
	}()

	// 等待系统信号或关闭接口触发
	select {
	case <-quit:
		log.Info("接收到关闭信号，正在优雅关闭服务...")
	case <-handler.ShutdownSignal():
		log.Info("接收到关闭请求，正在优雅关闭服务...")
	}

	// 创建上下文，设置超时时间
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 关闭HTTP服务器
	if err := server.Shutdown(ctx); err != nil {
		log.Error("服务器关闭异常: %v", err)
	}

	// 关闭处理器及其资源
	if err := handler.Close(); err != nil {
		log.Error("处理器资源释放失败: %v", err)
	}

	log.Info("服务器已成功关闭")
}

// validateConfig 启动前的配置检查
func validateConfig(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("配置对象为空")
	}

	if cfg.Server.Port == "" {
		return fmt.Errorf("服务器端口未配置")
	}

	if cfg.Server.ReadTimeout <= 0 {
		log.Warn("读取超时设置异常，使用默认值")
	}

	if cfg.Server.WriteTimeout <= 0 {
		log.Warn("写入超时设置异常，使用默认值")
	}

	if cfg.Pool.Expiration == 0 {
		log.Warn("代理过期窗口为 0，每次读取都会触发同步刷新")
	}

	log.Info("配置验证通过")
	return nil
}

// setupMiddlewares 设置全局中间件
func setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(middleware.ErrorMiddleware())
	router.Use(middleware.AuthMiddleware(cfg))
	router.Use(middleware.CorsMiddleware())

	log.Info("中间件设置完成")
}

// setupRoutes 注册路由
func setupRoutes(router *gin.Engine, handler *service.ProxyHandler) {
	// 根路径与运维路由
	router.GET("/", handler.IndexHandler)
	router.GET("/health", handler.HealthHandler)
	router.GET("/metrics", getMetricsHandler(handler))
	router.POST("/shutdown", handler.ShutdownHandler)

	// API版本v1路由
	v1 := router.Group("/api/v1")
	{
		v1.GET("/proxies", handler.ProxiesHandler)
		v1.GET("/proxy/random", handler.RandomProxyHandler)
		v1.GET("/stats", handler.StatsHandler)
		v1.GET("/health", handler.HealthHandler)
		v1.POST("/refresh", handler.RefreshHandler)
		v1.POST("/start-refresh", handler.StartRefreshHandler)
		v1.POST("/stop-refresh", handler.StopRefreshHandler)
	}

	log.Info("路由注册完成")
}

// getMetricsHandler 指标收集处理器
func getMetricsHandler(handler *service.ProxyHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		metrics := SystemMetrics{
			// 基础运行时指标
			Uptime:       time.Since(startTime),
			StartTime:    startTime.Format(time.RFC3339),
			NumCPU:       runtime.NumCPU(),
			NumGoroutine: runtime.NumGoroutine(),
			GoVersion:    runtime.Version(),

			// 内存指标
			AllocatedMem:  memStats.Alloc,
			TotalAllocMem: memStats.TotalAlloc,
			HeapObjects:   memStats.HeapObjects,

			// GC指标
			GCPauseTotal: time.Duration(memStats.PauseTotalNs),
			LastGCTime:   time.Unix(0, int64(memStats.LastGC)),
			NumGC:        memStats.NumGC,

			// 请求统计
			RequestCount: atomic.LoadInt64(&requestCount),
			SuccessCount: atomic.LoadInt64(&successCount),
			ErrorCount:   atomic.LoadInt64(&errorCount),

			// 代理池与组件指标
			PoolStats:  handler.GetPoolStats(),
			CacheStats: handler.GetCacheMetrics(),
			ConnStats:  handler.GetConnPoolMetrics(),
			RateStats:  handler.GetRateLimiterMetrics(),
		}

		// 合并处理器自身的运行指标
		if handlerMetrics := handler.GetMetrics(); handlerMetrics != nil {
			if metrics.CacheStats == nil {
				metrics.CacheStats = make(map[string]interface{})
			}
			for k, v := range handlerMetrics {
				if _, exists := metrics.CacheStats[k]; !exists {
					metrics.CacheStats[k] = v
				}
			}
		}

		c.JSON(http.StatusOK, metrics)
	}
}
