package manager

import (
	"math/rand"
	"sync/atomic"
	"time"
)

// SourceRotator 代理源轮询器
// 多个主源配置时按轮询方式分摊抓取请求
type SourceRotator struct {
	sourceURLs []string
	index      int64
}

// NewSourceRotator 创建新的代理源轮询器
func NewSourceRotator(sourceURLs []string) *SourceRotator {
	if len(sourceURLs) == 0 {
		panic("sourceURLs cannot be empty")
	}

	return &SourceRotator{
		sourceURLs: sourceURLs,
		index:      int64(rand.New(rand.NewSource(time.Now().UnixNano())).Intn(len(sourceURLs))),
	}
}

// NextSource 获取下一个源地址（轮询方式）
func (sr *SourceRotator) NextSource() string {
	length := int64(len(sr.sourceURLs))
	newIndex := atomic.AddInt64(&sr.index, 1)
	return sr.sourceURLs[newIndex%length]
}

// SourceCount 获取源数量
func (sr *SourceRotator) SourceCount() int {
	return len(sr.sourceURLs)
}

// AllSources 获取所有源地址
func (sr *SourceRotator) AllSources() []string {
	// 返回副本避免外部修改
	result := make([]string, len(sr.sourceURLs))
	copy(result, sr.sourceURLs)
	return result
}
