package classify

import (
	"context"
	"sync"
	"time"
)

// Mock implements Classifier for testing.
// Behavior can be customized via the ClassifyFunc field.
type Mock struct {
	// ClassifyFunc is called when Classify is invoked.
	// If nil, returns a Recycle result for a generic object.
	ClassifyFunc func(ctx context.Context, jpeg []byte) (Result, error)

	// Tracking
	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a Classify invocation for verification.
type MockCall struct {
	ImageLen int
	Time     time.Time
}

// NewMock creates a mock classifier with a sensible default result.
func NewMock() *Mock {
	return &Mock{
		ClassifyFunc: func(ctx context.Context, jpeg []byte) (Result, error) {
			return Result{
				Object:   "aluminum can",
				Category: CategoryRecycle,
				Reason:   "metal cans are recyclable",
			}, nil
		},
	}
}

// WithResult returns a mock that always returns the given result.
func WithResult(r Result) *Mock {
	return &Mock{
		ClassifyFunc: func(ctx context.Context, jpeg []byte) (Result, error) {
			return r, nil
		},
	}
}

// WithError returns a mock that always fails with the given error.
func WithError(err error) *Mock {
	return &Mock{
		ClassifyFunc: func(ctx context.Context, jpeg []byte) (Result, error) {
			return Result{}, err
		},
	}
}

// Classify calls ClassifyFunc and records the call.
func (m *Mock) Classify(ctx context.Context, jpeg []byte) (Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{ImageLen: len(jpeg), Time: time.Now()})
	m.mu.Unlock()

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, jpeg)
	}
	return Result{}, WrapError("mock", ErrNoCandidates)
}

// CallCount returns the number of Classify invocations.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns all recorded invocations.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Verify Mock implements Classifier at compile time.
var _ Classifier = (*Mock)(nil)
