package constants

import "time"

// 服务相关常量
const (
	ServiceName     = "proxy2api"
	ServiceVersion  = "1.0.0"
	ContentTypeJSON = "application/json"
	AcceptAll       = "*/*"
)

// 服务器配置常量
const (
	DefaultHost         = "0.0.0.0"
	DefaultPort         = "8000"
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 60 * time.Second
)

// 代理源常量
const (
	// 主源：纯文本代理列表，每行一个 host:port
	DefaultSourceURLs = "https://raw.githubusercontent.com/proxifly/free-proxy-list/main/proxies/protocols/http/data.txt"
	// 备用源：JSON 数组，元素携带 ip 和 port 字段
	DefaultFallbackURL = "https://cdn.jsdelivr.net/gh/proxifly/free-proxy-list@main/proxies/all/data.json"
	// 网页源：HTML 表格，tbody 行的前两列为 IP 和端口
	DefaultProxyWebpage = "https://free-proxy-list.net/"
	// 抓取源请求超时
	DefaultFetchTimeout = 30 * time.Second
)

// 代理池常量
const (
	DefaultTestURL          = "https://httpbin.org/ip"
	DefaultProxyExpiration  = 6 * time.Minute
	DefaultTestTimeout      = 3 * time.Second
	DefaultBatchSize        = 20
	DefaultConcurrencyLimit = 20
)

// 调度器常量
const (
	DefaultRefreshInterval = 5 * time.Minute
	DefaultMaxRunTime      = 2 * time.Hour
)

// 缓存相关常量
const (
	// 源列表短时缓存，避免强制刷新时反复抓取上游
	DefaultSourceCacheTTL  = 60 * time.Second
	DefaultCleanupInterval = 5 * time.Minute

	// 缓存键前缀
	SourceCachePrefix = "source:"

	// 缓存配置环境变量
	EnvCacheEnabled    = "CACHE_ENABLED"
	EnvSourceCacheTTL  = "SOURCE_CACHE_TTL"
	EnvCleanupInterval = "CACHE_CLEANUP_INTERVAL"
)

// 限流相关常量
const (
	// 强制刷新接口的令牌桶参数：每分钟补充的令牌数与桶容量
	DefaultRefreshRatePerMinute = 10
	DefaultRefreshBurst         = 3
)
