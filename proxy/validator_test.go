package proxy

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newProxyStub 启动一个按状态码应答的正向代理桩
func newProxyStub(t *testing.T, statusCode int, lastHost *atomic.Value) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if lastHost != nil {
			lastHost.Store(r.URL.Host)
		}
		w.WriteHeader(statusCode)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestEndpointValidator_Validate_Success(t *testing.T) {
	t.Parallel()

	var lastHost atomic.Value
	stub := newProxyStub(t, http.StatusOK, &lastHost)

	validator := NewEndpointValidator("http://target.test/ip", 2*time.Second)
	ok := validator.Validate(context.Background(), stub.Listener.Addr().String())

	assert.True(t, ok)
	// 请求必须以正向代理方式发出，请求行携带完整目标地址
	assert.Equal(t, "target.test", lastHost.Load())
}

func TestEndpointValidator_Validate_Non200IsFailure(t *testing.T) {
	t.Parallel()

	for _, statusCode := range []int{http.StatusForbidden, http.StatusBadGateway, http.StatusNoContent} {
		stub := newProxyStub(t, statusCode, nil)
		validator := NewEndpointValidator("http://target.test/ip", 2*time.Second)

		assert.False(t, validator.Validate(context.Background(), stub.Listener.Addr().String()),
			"status %d must not validate", statusCode)
	}
}

func TestEndpointValidator_Validate_UnreachableProxy(t *testing.T) {
	t.Parallel()

	// 占用端口后立即释放，保证地址无人监听
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	deadAddr := listener.Addr().String()
	require.NoError(t, listener.Close())

	validator := NewEndpointValidator("http://target.test/ip", 500*time.Millisecond)
	assert.False(t, validator.Validate(context.Background(), deadAddr))
}

func TestEndpointValidator_Validate_Timeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	t.Cleanup(server.Close)

	validator := NewEndpointValidator("http://target.test/ip", 100*time.Millisecond)

	start := time.Now()
	ok := validator.Validate(context.Background(), server.Listener.Addr().String())

	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestEndpointValidator_Validate_BadEndpoints(t *testing.T) {
	t.Parallel()

	validator := NewEndpointValidator("http://target.test/ip", time.Second)

	for _, endpoint := range []string{"", "://broken", "ftp://1.2.3.4:80"} {
		assert.False(t, validator.Validate(context.Background(), endpoint), "endpoint %q must not validate", endpoint)
	}
}

func TestEndpointValidator_Validate_Socks5DialFailure(t *testing.T) {
	t.Parallel()

	validator := NewEndpointValidator("http://target.test/ip", 500*time.Millisecond)
	assert.False(t, validator.Validate(context.Background(), "socks5://127.0.0.1:1"))
}

func TestEndpointValidator_Validate_SendsHeaders(t *testing.T) {
	t.Parallel()

	headerCh := make(chan http.Header, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headerCh <- r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	validator := NewEndpointValidator("http://target.test/ip", 2*time.Second)
	require.True(t, validator.Validate(context.Background(), server.Listener.Addr().String()))

	headers := <-headerCh
	assert.NotEmpty(t, headers.Get("User-Agent"))
	assert.NotEmpty(t, headers.Get("Accept"))
}
