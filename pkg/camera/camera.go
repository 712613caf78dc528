// Package camera provides still-frame capture from a local video device.
package camera

// Provider is the frame source used by the processing loop.
// CaptureFrame returns JPEG image data.
type Provider interface {
	// Ready reports whether the source can currently deliver frames.
	// An unready source degrades the loop to no-op ticks; it does not stop it.
	Ready() bool

	// CaptureFrame grabs a single still frame as JPEG bytes.
	CaptureFrame() ([]byte, error)

	// Close releases the underlying device.
	Close() error
}
