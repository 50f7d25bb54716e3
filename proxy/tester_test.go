package proxy

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubValidator struct {
	validFunc   func(endpoint string) bool
	delay       time.Duration
	calls       atomic.Int64
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

func (v *stubValidator) Validate(ctx context.Context, endpoint string) bool {
	v.calls.Add(1)
	current := v.inFlight.Add(1)
	defer v.inFlight.Add(-1)

	for {
		peak := v.maxInFlight.Load()
		if current <= peak || v.maxInFlight.CompareAndSwap(peak, current) {
			break
		}
	}

	if v.delay > 0 {
		time.Sleep(v.delay)
	}
	if v.validFunc == nil {
		return true
	}
	return v.validFunc(endpoint)
}

func makeCandidates(n int) []string {
	candidates := make([]string, n)
	for i := range candidates {
		candidates[i] = "10.0.0." + string(rune('1'+i%9)) + ":808" + string(rune('0'+i%10))
	}
	return candidates
}

func TestBatchTester_TestAll_FiltersFailures(t *testing.T) {
	t.Parallel()

	validator := &stubValidator{
		validFunc: func(endpoint string) bool {
			return !strings.HasPrefix(endpoint, "bad")
		},
	}
	tester := NewBatchTester(validator, 10, 10)

	candidates := []string{"1.1.1.1:80", "bad1:80", "2.2.2.2:80", "bad2:80"}
	passed := tester.TestAll(context.Background(), candidates)

	assert.Equal(t, []string{"1.1.1.1:80", "2.2.2.2:80"}, passed)
	assert.Equal(t, int64(4), validator.calls.Load())
}

func TestBatchTester_TestAll_EmptyInput(t *testing.T) {
	t.Parallel()

	tester := NewBatchTester(&stubValidator{}, 10, 10)
	assert.Empty(t, tester.TestAll(context.Background(), nil))
}

func TestBatchTester_TestAll_RespectsConcurrencyLimit(t *testing.T) {
	t.Parallel()

	validator := &stubValidator{delay: 10 * time.Millisecond}
	tester := NewBatchTester(validator, 100, 5)

	candidates := makeCandidates(30)
	passed := tester.TestAll(context.Background(), candidates)

	assert.Len(t, passed, 30)
	assert.Equal(t, int64(30), validator.calls.Load())
	assert.LessOrEqual(t, validator.maxInFlight.Load(), int64(5))
}

func TestBatchTester_TestAll_BatchesRunSequentially(t *testing.T) {
	t.Parallel()

	// Concurrency far above the batch size: only one batch may be
	// in flight at a time, so the peak equals the batch size at most
	validator := &stubValidator{delay: 10 * time.Millisecond}
	tester := NewBatchTester(validator, 5, 100)

	passed := tester.TestAll(context.Background(), makeCandidates(20))

	assert.Len(t, passed, 20)
	assert.LessOrEqual(t, validator.maxInFlight.Load(), int64(5))
}

func TestBatchTester_TestAll_PanickingValidatorContained(t *testing.T) {
	t.Parallel()

	validator := &stubValidator{
		validFunc: func(endpoint string) bool {
			if endpoint == "2.2.2.2:80" {
				panic("validator exploded")
			}
			return true
		},
	}
	tester := NewBatchTester(validator, 10, 10)

	candidates := []string{"1.1.1.1:80", "2.2.2.2:80", "3.3.3.3:80"}
	passed := tester.TestAll(context.Background(), candidates)

	// The panicking candidate counts as failed, the batch survives
	assert.Equal(t, []string{"1.1.1.1:80", "3.3.3.3:80"}, passed)
}

func TestBatchTester_TestSequential_PanickingValidatorContained(t *testing.T) {
	t.Parallel()

	validator := &stubValidator{
		validFunc: func(endpoint string) bool {
			if endpoint == "2.2.2.2:80" {
				panic("validator exploded")
			}
			return true
		},
	}
	tester := NewBatchTester(validator, 10, 10)

	passed := tester.testSequential(context.Background(), []string{"1.1.1.1:80", "2.2.2.2:80", "3.3.3.3:80"})
	assert.Equal(t, []string{"1.1.1.1:80", "3.3.3.3:80"}, passed)
}

func TestNewBatchTester_DefaultsOnInvalidParams(t *testing.T) {
	t.Parallel()

	tester := NewBatchTester(&stubValidator{}, 0, -1)

	passed := tester.TestAll(context.Background(), makeCandidates(3))
	assert.Len(t, passed, 3)
}
