package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// 代理地址相关错误
var (
	ErrInvalidProxyURL   = errors.New("invalid proxy URL")
	ErrUnsupportedScheme = errors.New("unsupported proxy scheme")
)

// normalizeEndpoint 无协议前缀的候选地址全部按 HTTP 代理处理
func normalizeEndpoint(endpoint string) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "http://" + endpoint
}

// buildProxyTransport 构建经由指定代理出口的传输层
// 验证请求是一次性探测，不保留长连接
func buildProxyTransport(endpoint string) (*http.Transport, error) {
	parsed, err := url.Parse(normalizeEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%v)", ErrInvalidProxyURL, endpoint, err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProxyURL, endpoint)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableKeepAlives:   true,
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsed)
	case "socks5":
		dialer, err := proxy.SOCKS5("tcp", parsed.Host, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("socks5 dialer for %s: %w", endpoint, err)
		}
		// SOCKS5 通过拨号器出口，确保 HTTP 代理设置不生效
		transport.Proxy = nil
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, parsed.Scheme)
	}

	return transport, nil
}
