package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"proxy2api/config"
	"proxy2api/pkg/cache"
	"proxy2api/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFetcherConfig(primaryURLs []string, fallbackURL, webpageURL string, fallbackEnabled, scrapeEnabled bool) *config.Config {
	return &config.Config{
		Sources: config.SourcesConfig{
			SourceURLs:      primaryURLs,
			FallbackURL:     fallbackURL,
			WebpageURL:      webpageURL,
			FallbackEnabled: fallbackEnabled,
			ScrapeEnabled:   scrapeEnabled,
		},
	}
}

func newCountingServer(t *testing.T, statusCode int, body string, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.WriteHeader(statusCode)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSourceFetcher_FetchProxies_PrimaryTextSource(t *testing.T) {
	t.Parallel()

	body := "1.1.1.1:80\r\n\n2.2.2.2:80\n1.1.1.1:80\n   \n3.3.3.3:80\n"
	primary := newCountingServer(t, http.StatusOK, body, nil)

	fetcher := NewSourceFetcher(newFetcherConfig([]string{primary.URL}, "", "", false, false), nil, nil)

	candidates, err := fetcher.FetchProxies(context.Background())
	require.NoError(t, err)

	// 按行清理：去掉空行和回车，重复项只保留首个
	assert.Equal(t, []string{"1.1.1.1:80", "2.2.2.2:80", "3.3.3.3:80"}, candidates)
}

func TestSourceFetcher_FetchPrimary_Non2xxIsFetchError(t *testing.T) {
	t.Parallel()

	primary := newCountingServer(t, http.StatusNotFound, "nothing here", nil)
	fetcher := NewSourceFetcher(newFetcherConfig([]string{primary.URL}, "", "", false, false), nil, nil)

	_, err := fetcher.fetchPrimary(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrFetchFailed)
}

func TestSourceFetcher_FetchProxies_FallsBackToJSONSource(t *testing.T) {
	t.Parallel()

	primary := newCountingServer(t, http.StatusInternalServerError, "", nil)
	// 备用源的 port 字段既可能是数字也可能是字符串
	fallback := newCountingServer(t, http.StatusOK,
		`[{"ip":"1.1.1.1","port":8080},{"ip":"2.2.2.2","port":"9090"},{"ip":"","port":80}]`, nil)

	fetcher := NewSourceFetcher(newFetcherConfig([]string{primary.URL}, fallback.URL, "", true, false), nil, nil)

	candidates, err := fetcher.FetchProxies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1.1.1.1:8080", "2.2.2.2:9090"}, candidates)
}

func TestSourceFetcher_FetchProxies_EmptyPrimaryTriesFallback(t *testing.T) {
	t.Parallel()

	primary := newCountingServer(t, http.StatusOK, "\n\n", nil)
	fallback := newCountingServer(t, http.StatusOK, `[{"ip":"1.1.1.1","port":8080}]`, nil)

	fetcher := NewSourceFetcher(newFetcherConfig([]string{primary.URL}, fallback.URL, "", true, false), nil, nil)

	candidates, err := fetcher.FetchProxies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1.1.1.1:8080"}, candidates)
}

func TestSourceFetcher_FetchProxies_ScrapesWebpageTable(t *testing.T) {
	t.Parallel()

	page := `<html><body>
<table>
<thead><tr><th>IP Address</th><th>Port</th></tr></thead>
<tbody>
<tr><td>1.1.1.1</td><td>8080</td></tr>
<tr><td>2.2.2.2</td><td>3128</td></tr>
<tr><td>3.3.3.3</td></tr>
<tr><td>1.1.1.1</td><td>8080</td></tr>
</tbody>
</table>
</body></html>`

	primary := newCountingServer(t, http.StatusBadGateway, "", nil)
	webpage := newCountingServer(t, http.StatusOK, page, nil)

	fetcher := NewSourceFetcher(newFetcherConfig([]string{primary.URL}, "", webpage.URL, false, true), nil, nil)

	candidates, err := fetcher.FetchProxies(context.Background())
	require.NoError(t, err)

	// 不完整的行被跳过，重复行去重
	assert.Equal(t, []string{"1.1.1.1:8080", "2.2.2.2:3128"}, candidates)
}

func TestSourceFetcher_FetchProxies_AllSourcesExhausted(t *testing.T) {
	t.Parallel()

	primary := newCountingServer(t, http.StatusInternalServerError, "", nil)
	fallback := newCountingServer(t, http.StatusInternalServerError, "", nil)
	webpage := newCountingServer(t, http.StatusInternalServerError, "", nil)

	fetcher := NewSourceFetcher(
		newFetcherConfig([]string{primary.URL}, fallback.URL, webpage.URL, true, true), nil, nil)

	_, err := fetcher.FetchProxies(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSourceExhausted)
}

func TestSourceFetcher_FetchProxies_DisabledFallbacksNotContacted(t *testing.T) {
	t.Parallel()

	var fallbackHits, webpageHits atomic.Int64
	primary := newCountingServer(t, http.StatusInternalServerError, "", nil)
	fallback := newCountingServer(t, http.StatusOK, `[{"ip":"1.1.1.1","port":8080}]`, &fallbackHits)
	webpage := newCountingServer(t, http.StatusOK, "<table></table>", &webpageHits)

	fetcher := NewSourceFetcher(
		newFetcherConfig([]string{primary.URL}, fallback.URL, webpage.URL, false, false), nil, nil)

	_, err := fetcher.FetchProxies(context.Background())
	require.Error(t, err)
	assert.Equal(t, int64(0), fallbackHits.Load())
	assert.Equal(t, int64(0), webpageHits.Load())
}

func TestSourceFetcher_FetchProxies_RotatesPrimarySources(t *testing.T) {
	t.Parallel()

	var hitsA, hitsB atomic.Int64
	serverA := newCountingServer(t, http.StatusOK, "1.1.1.1:80\n", &hitsA)
	serverB := newCountingServer(t, http.StatusOK, "2.2.2.2:80\n", &hitsB)

	fetcher := NewSourceFetcher(
		newFetcherConfig([]string{serverA.URL, serverB.URL}, "", "", false, false), nil, nil)

	_, err := fetcher.FetchProxies(context.Background())
	require.NoError(t, err)
	_, err = fetcher.FetchProxies(context.Background())
	require.NoError(t, err)

	// 起始源随机，两次抓取必须轮询到两个不同的源
	assert.Equal(t, int64(1), hitsA.Load())
	assert.Equal(t, int64(1), hitsB.Load())
}

func TestSourceFetcher_FetchProxies_ServesFromSourceCache(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	primary := newCountingServer(t, http.StatusOK, "1.1.1.1:80\n", &hits)

	sourceCache := cache.NewSourceCache(cache.SourceCacheOptions{
		TTL:     time.Minute,
		Enabled: true,
	})
	t.Cleanup(sourceCache.Stop)

	fetcher := NewSourceFetcher(newFetcherConfig([]string{primary.URL}, "", "", false, false), sourceCache, nil)

	first, err := fetcher.FetchProxies(context.Background())
	require.NoError(t, err)
	second, err := fetcher.FetchProxies(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), hits.Load())
}
