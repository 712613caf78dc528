package camera

import "fmt"

// Config holds capture settings applied when the webcam is opened.
type Config struct {
	Width     int `json:"width"`     // Frame width in pixels (0 = device default)
	Height    int `json:"height"`    // Frame height in pixels (0 = device default)
	Framerate int `json:"framerate"` // Target FPS (0 = device default)
	Quality   int `json:"quality"`   // JPEG quality 1-100
}

// DefaultConfig is tuned for classification frames: 640x480 keeps the
// vision payload small, and the fixed quality factor matches jpegQuality.
func DefaultConfig() Config {
	return Config{
		Width:   640,
		Height:  480,
		Quality: jpegQuality,
	}
}

// HD720Config is a higher-resolution preset for preview-heavy setups.
func HD720Config() Config {
	return Config{
		Width:   1280,
		Height:  720,
		Quality: jpegQuality,
	}
}

// Validate returns an error for out-of-range settings.
func (c Config) Validate() error {
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("camera: invalid resolution %dx%d", c.Width, c.Height)
	}
	if c.Framerate < 0 {
		return fmt.Errorf("camera: invalid framerate %d", c.Framerate)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("camera: quality %d out of range 1-100", c.Quality)
	}
	return nil
}
