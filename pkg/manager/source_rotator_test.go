package manager

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceRotator_RoundRobin(t *testing.T) {
	t.Parallel()

	rotator := NewSourceRotator([]string{"http://a.test", "http://b.test"})

	counts := make(map[string]int)
	for i := 0; i < 4; i++ {
		counts[rotator.NextSource()]++
	}

	assert.Equal(t, 2, counts["http://a.test"])
	assert.Equal(t, 2, counts["http://b.test"])
}

func TestSourceRotator_ConsecutiveCallsAlternate(t *testing.T) {
	t.Parallel()

	rotator := NewSourceRotator([]string{"http://a.test", "http://b.test"})

	first := rotator.NextSource()
	second := rotator.NextSource()
	assert.NotEqual(t, first, second)
}

func TestSourceRotator_SingleSource(t *testing.T) {
	t.Parallel()

	rotator := NewSourceRotator([]string{"http://only.test"})

	for i := 0; i < 3; i++ {
		assert.Equal(t, "http://only.test", rotator.NextSource())
	}
}

func TestSourceRotator_PanicsOnEmpty(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		NewSourceRotator(nil)
	})
}

func TestSourceRotator_ConcurrentDistribution(t *testing.T) {
	t.Parallel()

	rotator := NewSourceRotator([]string{"http://a.test", "http://b.test"})

	var mu sync.Mutex
	counts := make(map[string]int)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			source := rotator.NextSource()
			mu.Lock()
			counts[source]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	// 原子递增保证并发下仍然均匀分摊
	assert.Equal(t, 50, counts["http://a.test"])
	assert.Equal(t, 50, counts["http://b.test"])
}

func TestSourceRotator_AllSourcesReturnsCopy(t *testing.T) {
	t.Parallel()

	rotator := NewSourceRotator([]string{"http://a.test", "http://b.test"})

	sources := rotator.AllSources()
	sources[0] = "tampered"

	require.Equal(t, 2, rotator.SourceCount())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, rotator.AllSources())
}
