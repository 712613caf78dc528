package camera

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// jpegQuality matches the fixed ~0.7 quality factor used for frames sent
// to the vision service. Higher quality buys nothing for classification.
const jpegQuality = 70

// ErrClosed is returned when capturing from a closed webcam.
var ErrClosed = errors.New("camera: webcam closed")

// Webcam captures JPEG frames from a local camera via OpenCV.
type Webcam struct {
	mu       sync.Mutex
	deviceID int
	config   Config
	cap      *gocv.VideoCapture
}

// OpenWebcam acquires the camera device with default settings.
func OpenWebcam(deviceID int) (*Webcam, error) {
	return OpenWebcamWithConfig(deviceID, DefaultConfig())
}

// OpenWebcamWithConfig acquires the camera device and applies the capture
// settings. Acquisition failure (missing device, permission denied, device
// busy) is returned verbatim so the caller can surface it to the user.
func OpenWebcamWithConfig(deviceID int, cfg Config) (*Webcam, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cap, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("camera: open device %d: %w", deviceID, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("camera: device %d not available", deviceID)
	}

	if cfg.Width > 0 {
		cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.Framerate > 0 {
		cap.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	}

	return &Webcam{deviceID: deviceID, config: cfg, cap: cap}, nil
}

// Config returns the settings the webcam was opened with.
func (w *Webcam) Config() Config {
	return w.config
}

// Ready reports whether the device is open and delivering frames.
func (w *Webcam) Ready() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cap != nil && w.cap.IsOpened()
}

// CaptureFrame grabs one frame and encodes it as JPEG.
func (w *Webcam) CaptureFrame() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap == nil {
		return nil, ErrClosed
	}

	img := gocv.NewMat()
	defer img.Close()

	if ok := w.cap.Read(&img); !ok || img.Empty() {
		return nil, fmt.Errorf("camera: device %d returned no frame", w.deviceID)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, w.config.Quality})
	if err != nil {
		return nil, fmt.Errorf("camera: encode frame: %w", err)
	}
	defer buf.Close()

	// Copy out: the native buffer is freed on Close.
	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}

// Close releases the camera device. Safe to call more than once.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap == nil {
		return nil
	}
	err := w.cap.Close()
	w.cap = nil
	return err
}

// Verify Webcam implements Provider at compile time.
var _ Provider = (*Webcam)(nil)
