package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"proxy2api/config"
	"proxy2api/log"
	"proxy2api/pkg/cache"
	"proxy2api/pkg/connpool"
	"proxy2api/pkg/constants"
	"proxy2api/pkg/errors"
	"proxy2api/pkg/manager"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/imroc/req/v3"
)

// fallbackEntry 备用 JSON 源的条目，port 字段可能是数字或字符串
type fallbackEntry struct {
	IP   string          `json:"ip"`
	Port json.RawMessage `json:"port"`
}

// SourceFetcher 从配置的代理源抓取候选列表
// 主源失败后按配置依次尝试备用 JSON 源和网页源
type SourceFetcher struct {
	reqClient   *req.Client
	restyClient *resty.Client
	rotator     *manager.SourceRotator
	sourceCache *cache.SourceCache
	connPool    *connpool.ConnPool

	fallbackURL     string
	webpageURL      string
	fallbackEnabled bool
	scrapeEnabled   bool
}

// NewSourceFetcher 创建新的代理源抓取器实例
func NewSourceFetcher(cfg *config.Config, sourceCache *cache.SourceCache, connPool *connpool.ConnPool) *SourceFetcher {
	// 主源客户端，模拟浏览器特征减少被源站拦截的概率
	reqClient := req.C().
		ImpersonateChrome().
		SetTimeout(constants.DefaultFetchTimeout)

	// 备用源与网页源客户端
	restyClient := resty.New().
		SetTimeout(constants.DefaultFetchTimeout).
		SetHeader("Accept", constants.AcceptAll)

	if connPool != nil {
		connPool.ConfigureRestyClient(restyClient)
	}

	return &SourceFetcher{
		reqClient:       reqClient,
		restyClient:     restyClient,
		rotator:         manager.NewSourceRotator(cfg.Sources.SourceURLs),
		sourceCache:     sourceCache,
		connPool:        connPool,
		fallbackURL:     cfg.Sources.FallbackURL,
		webpageURL:      cfg.Sources.WebpageURL,
		fallbackEnabled: cfg.Sources.FallbackEnabled,
		scrapeEnabled:   cfg.Sources.ScrapeEnabled,
	}
}

// FetchProxies 抓取候选代理列表
// 任一源成功即返回，全部失败时返回 ErrSourceExhausted
func (f *SourceFetcher) FetchProxies(ctx context.Context) ([]string, error) {
	candidates, err := f.fetchPrimary(ctx)
	if err == nil && len(candidates) > 0 {
		return candidates, nil
	}
	if err != nil {
		log.Warn("Primary source fetch failed: %v", err)
	} else {
		log.Warn("Primary source returned no candidates")
	}

	if f.fallbackEnabled {
		candidates, ferr := f.fetchFallback(ctx)
		if ferr == nil && len(candidates) > 0 {
			log.Info("Fallback source returned %d candidates", len(candidates))
			return candidates, nil
		}
		if ferr != nil {
			log.Warn("Fallback source fetch failed: %v", ferr)
		}
	}

	if f.scrapeEnabled {
		candidates, serr := f.fetchWebpage(ctx)
		if serr == nil && len(candidates) > 0 {
			log.Info("Webpage source returned %d candidates", len(candidates))
			return candidates, nil
		}
		if serr != nil {
			log.Warn("Webpage source fetch failed: %v", serr)
		}
	}

	if err == nil {
		err = errors.ErrFetchFailed
	}
	return nil, fmt.Errorf("%w: %v", errors.ErrSourceExhausted, err)
}

// fetchPrimary 从轮询到的主源抓取纯文本列表
func (f *SourceFetcher) fetchPrimary(ctx context.Context) ([]string, error) {
	sourceURL := f.rotator.NextSource()

	if cached, ok := f.cachedCandidates(sourceURL); ok {
		return cached, nil
	}

	resp, err := f.reqClient.R().
		SetContext(ctx).
		Get(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrFetchFailed, err)
	}
	if !resp.IsSuccessState() {
		return nil, fmt.Errorf("%w: source %s returned status %d", errors.ErrFetchFailed, sourceURL, resp.StatusCode)
	}

	candidates := parseProxyList(resp.String())
	f.storeCandidates(sourceURL, candidates)
	return candidates, nil
}

// fetchFallback 从备用 JSON 源抓取
func (f *SourceFetcher) fetchFallback(ctx context.Context) ([]string, error) {
	if cached, ok := f.cachedCandidates(f.fallbackURL); ok {
		return cached, nil
	}

	resp, err := f.restyClient.R().
		SetContext(ctx).
		SetHeader("User-Agent", constants.GetRandomUserAgent()).
		Get(f.fallbackURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrFetchFailed, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: fallback source returned status %d", errors.ErrFetchFailed, resp.StatusCode())
	}

	var entries []fallbackEntry
	if err := json.Unmarshal(resp.Body(), &entries); err != nil {
		return nil, fmt.Errorf("%w: decode fallback source: %v", errors.ErrFetchFailed, err)
	}

	var lines []string
	for _, entry := range entries {
		ip := strings.TrimSpace(entry.IP)
		port := strings.Trim(strings.TrimSpace(string(entry.Port)), `"`)
		if ip == "" || port == "" {
			continue
		}
		lines = append(lines, ip+":"+port)
	}

	candidates := dedupe(lines)
	f.storeCandidates(f.fallbackURL, candidates)
	return candidates, nil
}

// fetchWebpage 抓取网页源的代理表格
func (f *SourceFetcher) fetchWebpage(ctx context.Context) ([]string, error) {
	if cached, ok := f.cachedCandidates(f.webpageURL); ok {
		return cached, nil
	}

	resp, err := f.restyClient.R().
		SetContext(ctx).
		SetHeader("User-Agent", constants.GetRandomUserAgent()).
		Get(f.webpageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrFetchFailed, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: webpage source returned status %d", errors.ErrFetchFailed, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("%w: parse webpage: %v", errors.ErrFetchFailed, err)
	}

	var lines []string
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		ip := strings.TrimSpace(row.Find("td").Eq(0).Text())
		port := strings.TrimSpace(row.Find("td").Eq(1).Text())
		if ip == "" || port == "" {
			return
		}
		lines = append(lines, ip+":"+port)
	})

	candidates := dedupe(lines)
	f.storeCandidates(f.webpageURL, candidates)
	return candidates, nil
}

// cachedCandidates 读取源缓存
func (f *SourceFetcher) cachedCandidates(sourceURL string) ([]string, bool) {
	if f.sourceCache == nil {
		return nil, false
	}
	return f.sourceCache.GetCandidates(sourceURL)
}

// storeCandidates 写入源缓存
func (f *SourceFetcher) storeCandidates(sourceURL string, candidates []string) {
	if f.sourceCache == nil {
		return
	}
	f.sourceCache.SetCandidates(sourceURL, candidates)
}

// Close 释放抓取器持有的空闲连接
func (f *SourceFetcher) Close() {
	if f.connPool == nil {
		return
	}
	f.connPool.CloseIdleConnections(f.restyClient.GetClient())
	f.connPool.CloseIdleConnections(f.reqClient.GetClient())
}

// parseProxyList 解析纯文本代理列表，按行切分并清理
func parseProxyList(body string) []string {
	lines := strings.Split(body, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if candidate := strings.TrimSpace(line); candidate != "" {
			cleaned = append(cleaned, candidate)
		}
	}
	return dedupe(cleaned)
}

// dedupe 去重并保持首次出现的顺序
func dedupe(candidates []string) []string {
	seen := make(map[string]struct{}, len(candidates))
	result := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		result = append(result, candidate)
	}
	return result
}
