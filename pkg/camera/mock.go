package camera

import "sync"

// Mock implements Provider for testing.
type Mock struct {
	// Frame is returned by CaptureFrame when CaptureFunc is nil.
	Frame []byte

	// CaptureFunc overrides CaptureFrame behavior when set.
	CaptureFunc func() ([]byte, error)

	mu       sync.Mutex
	ready    bool
	closed   bool
	captures int
}

// NewMock creates a ready mock source returning a tiny placeholder frame.
func NewMock() *Mock {
	return &Mock{
		Frame: []byte{0xFF, 0xD8, 0xFF, 0xD9}, // minimal JPEG marker pair
		ready: true,
	}
}

// SetReady toggles source readiness.
func (m *Mock) SetReady(ready bool) {
	m.mu.Lock()
	m.ready = ready
	m.mu.Unlock()
}

// Ready reports the configured readiness.
func (m *Mock) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready && !m.closed
}

// CaptureFrame returns the configured frame and counts the call.
func (m *Mock) CaptureFrame() ([]byte, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	m.captures++
	m.mu.Unlock()

	if m.CaptureFunc != nil {
		return m.CaptureFunc()
	}
	return m.Frame, nil
}

// Captures returns the number of CaptureFrame calls.
func (m *Mock) Captures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captures
}

// Close marks the source closed and unready.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	m.ready = false
	m.mu.Unlock()
	return nil
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
