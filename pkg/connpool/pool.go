package connpool

import (
	"context"
	"net"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"proxy2api/log"

	"github.com/go-resty/resty/v2"
)

// ConnPoolOptions 连接池选项
type ConnPoolOptions struct {
	MaxIdleConns        int
	MaxConnsPerHost     int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
	KeepAlive           time.Duration
	DisableCompression  bool
	DisableKeepAlives   bool
}

// ConnPoolMetrics 连接池指标
type ConnPoolMetrics struct {
	activeConnections  int64
	connectionsCreated int64
	connectionsClosed  int64
	connectionsReused  int64
}

// RecordActiveConn 记录活跃连接变化
func (m *ConnPoolMetrics) RecordActiveConn(delta int64) {
	atomic.AddInt64(&m.activeConnections, delta)
}

// RecordConnCreated 记录创建的连接
func (m *ConnPoolMetrics) RecordConnCreated() {
	atomic.AddInt64(&m.connectionsCreated, 1)
}

// RecordConnClosed 记录关闭的连接
func (m *ConnPoolMetrics) RecordConnClosed() {
	atomic.AddInt64(&m.connectionsClosed, 1)
}

// RecordConnReused 记录复用的连接
func (m *ConnPoolMetrics) RecordConnReused() {
	atomic.AddInt64(&m.connectionsReused, 1)
}

// GetMetrics 获取指标
func (m *ConnPoolMetrics) GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"active_connections":  atomic.LoadInt64(&m.activeConnections),
		"connections_created": atomic.LoadInt64(&m.connectionsCreated),
		"connections_closed":  atomic.LoadInt64(&m.connectionsClosed),
		"connections_reused":  atomic.LoadInt64(&m.connectionsReused),
	}
}

// ConnPool 连接池管理器
type ConnPool struct {
	options *ConnPoolOptions
	metrics *ConnPoolMetrics
}

// NewConnPool 创建一个新的连接池管理器
func NewConnPool(options *ConnPoolOptions) *ConnPool {
	if options == nil {
		options = DefaultConnPoolOptions()
	}

	return &ConnPool{
		options: options,
		metrics: &ConnPoolMetrics{},
	}
}

// DefaultConnPoolOptions 返回默认的连接池选项
func DefaultConnPoolOptions() *ConnPoolOptions {
	// 根据CPU核心数确定连接数
	numCPU := runtime.NumCPU()

	return &ConnPoolOptions{
		MaxIdleConns:        100,
		MaxConnsPerHost:     numCPU * 2,
		MaxIdleConnsPerHost: numCPU,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		KeepAlive:           30 * time.Second,
	}
}

// OptionsForConcurrency 按验证并发上限放大连接数
// 抓取源客户端与批量验证共用出口时，避免连接数成为并发瓶颈
func OptionsForConcurrency(limit int) *ConnPoolOptions {
	options := DefaultConnPoolOptions()
	if limit > options.MaxConnsPerHost {
		options.MaxConnsPerHost = limit
		options.MaxIdleConnsPerHost = limit
	}
	return options
}

// ConfigureHTTPClient 配置HTTP客户端的连接池
func (p *ConnPool) ConfigureHTTPClient(client *http.Client) {
	if client.Transport == nil {
		client.Transport = &http.Transport{}
	}

	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		log.Warn("Client transport is not *http.Transport, connection pool settings will not be applied")
		return
	}

	transport.MaxIdleConns = p.options.MaxIdleConns
	transport.MaxConnsPerHost = p.options.MaxConnsPerHost
	transport.MaxIdleConnsPerHost = p.options.MaxIdleConnsPerHost
	transport.IdleConnTimeout = p.options.IdleConnTimeout
	transport.TLSHandshakeTimeout = p.options.TLSHandshakeTimeout
	transport.DisableCompression = p.options.DisableCompression
	transport.DisableKeepAlives = p.options.DisableKeepAlives

	// 包装拨号器以跟踪连接
	dialContext := transport.DialContext
	if dialContext == nil {
		dialContext = (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: p.options.KeepAlive,
		}).DialContext
	}
	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialContext(ctx, network, addr)
		if err == nil && conn != nil {
			p.metrics.RecordConnCreated()
			p.metrics.RecordActiveConn(1)
			return &metricConn{Conn: conn, metrics: p.metrics}, nil
		}
		return conn, err
	}

	log.Info("HTTP连接池配置完成: MaxIdleConns=%d, MaxConnsPerHost=%d, MaxIdleConnsPerHost=%d",
		p.options.MaxIdleConns, p.options.MaxConnsPerHost, p.options.MaxIdleConnsPerHost)
}

// ConfigureRestyClient 配置Resty客户端的连接池
func (p *ConnPool) ConfigureRestyClient(client *resty.Client) {
	p.ConfigureHTTPClient(client.GetClient())

	// 监控连接复用
	client.OnBeforeRequest(func(_ *resty.Client, _ *resty.Request) error {
		p.metrics.RecordConnReused()
		return nil
	})
}

// GetMetrics 获取连接池指标
func (p *ConnPool) GetMetrics() map[string]interface{} {
	return p.metrics.GetMetrics()
}

// CloseIdleConnections 关闭所有空闲连接
func (p *ConnPool) CloseIdleConnections(client *http.Client) {
	if client != nil {
		client.CloseIdleConnections()
	}
}

// metricConn 是对net.Conn的包装，用于跟踪连接关闭
type metricConn struct {
	net.Conn
	metrics *ConnPoolMetrics
	closed  bool
}

// Close 关闭连接并更新指标
func (c *metricConn) Close() error {
	if !c.closed {
		c.metrics.RecordActiveConn(-1)
		c.metrics.RecordConnClosed()
		c.closed = true
	}
	return c.Conn.Close()
}
