package proxy

import (
	"context"
	"net/http"
	"time"

	"proxy2api/log"
	"proxy2api/pkg/constants"
)

// EndpointValidator 通过目标 URL 的真实请求验证单个代理是否可用
type EndpointValidator struct {
	testURL string
	timeout time.Duration
}

// NewEndpointValidator 创建新的代理验证器实例
func NewEndpointValidator(testURL string, timeout time.Duration) *EndpointValidator {
	if timeout <= 0 {
		timeout = constants.DefaultTestTimeout
	}
	return &EndpointValidator{
		testURL: testURL,
		timeout: timeout,
	}
}

// Validate 检查代理能否在超时内代理一次成功的请求
// 任何失败（不可达、超时、非 200、地址非法）都只返回 false，绝不上抛
func (v *EndpointValidator) Validate(ctx context.Context, endpoint string) bool {
	transport, err := buildProxyTransport(endpoint)
	if err != nil {
		log.Debug("Invalid proxy endpoint %s: %v", endpoint, err)
		return false
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   v.timeout,
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.testURL, nil)
	if err != nil {
		return false
	}
	for key, value := range constants.GetRandomHeaders() {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
