package proxy

import (
	"context"
	"sync"

	"proxy2api/log"
	"proxy2api/pkg/constants"
)

// BatchTester 分批并发验证候选代理
// 信号量在构造时按并发上限创建一次，所有批次共享
type BatchTester struct {
	validator Validator
	batchSize int
	semaphore chan struct{}
}

// NewBatchTester 创建新的批量测试器实例
func NewBatchTester(validator Validator, batchSize, concurrencyLimit int) *BatchTester {
	if batchSize <= 0 {
		batchSize = constants.DefaultBatchSize
	}
	if concurrencyLimit <= 0 {
		concurrencyLimit = constants.DefaultConcurrencyLimit
	}
	return &BatchTester{
		validator: validator,
		batchSize: batchSize,
		semaphore: make(chan struct{}, concurrencyLimit),
	}
}

// TestAll 验证全部候选并返回通过的子集，保持输入顺序
// 批次之间串行执行，批次内部并发执行
func (t *BatchTester) TestAll(ctx context.Context, candidates []string) []string {
	if len(candidates) == 0 {
		return nil
	}

	passed := make([]string, 0, len(candidates))
	for start := 0; start < len(candidates); start += t.batchSize {
		end := start + t.batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		passed = append(passed, t.testBatch(ctx, candidates[start:end])...)
	}

	log.Info("Proxy testing finished: %d/%d candidates passed", len(passed), len(candidates))
	return passed
}

// testBatch 并发验证单个批次
// 并发路径出现意外故障时回退到串行重测整个批次
func (t *BatchTester) testBatch(ctx context.Context, batch []string) (passed []string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Concurrent proxy testing failed: %v, retrying batch sequentially", r)
			passed = t.testSequential(ctx, batch)
		}
	}()

	results := make([]bool, len(batch))
	var wg sync.WaitGroup
	for i, candidate := range batch {
		wg.Add(1)
		go func(index int, endpoint string) {
			defer wg.Done()
			defer func() {
				// 单个代理的验证故障不允许中断整个批次
				if r := recover(); r != nil {
					log.Warn("Proxy test panicked for %s: %v", endpoint, r)
				}
			}()

			t.semaphore <- struct{}{}
			defer func() { <-t.semaphore }()

			results[index] = t.validator.Validate(ctx, endpoint)
		}(i, candidate)
	}
	wg.Wait()

	for i, ok := range results {
		if ok {
			passed = append(passed, batch[i])
		}
	}
	return passed
}

// testSequential 串行验证批次，作为并发路径的降级方案
func (t *BatchTester) testSequential(ctx context.Context, batch []string) []string {
	passed := make([]string, 0, len(batch))
	for _, candidate := range batch {
		if t.safeValidate(ctx, candidate) {
			passed = append(passed, candidate)
		}
	}
	return passed
}

// safeValidate 包一层 recover，验证器异常视为验证失败
func (t *BatchTester) safeValidate(ctx context.Context, candidate string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("Proxy test panicked for %s: %v", candidate, r)
			ok = false
		}
	}()
	return t.validator.Validate(ctx, candidate)
}
