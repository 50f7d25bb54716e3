package proxy

import "context"

// Fetcher 代理源抓取接口
type Fetcher interface {
	// FetchProxies 返回候选代理列表（host:port 格式）
	FetchProxies(ctx context.Context) ([]string, error)
}

// Validator 单个代理验证接口
type Validator interface {
	// Validate 检查候选代理能否转发请求，预期内的失败不作为错误上抛
	Validate(ctx context.Context, endpoint string) bool
}

// Tester 批量验证接口
type Tester interface {
	// TestAll 验证全部候选代理，返回通过的部分
	TestAll(ctx context.Context, candidates []string) []string
}

// Refresher 刷新入口，调度器通过它驱动代理池
type Refresher interface {
	ForceRefresh(ctx context.Context) error
}
