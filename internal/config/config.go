// Package config provides configuration helpers for binsight commands.
package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults for the binsight daemon.
const (
	DefaultPort     = "8080"
	DefaultCameraID = 0
	DefaultInterval = 3 * time.Second
)

// SorterAddr returns the sorter device address from SORTER_ADDR.
// Falls back to the provided default if not set. May be empty, in which
// case dispatch short-circuits until the address is configured.
func SorterAddr(defaultAddr string) string {
	if addr := os.Getenv("SORTER_ADDR"); addr != "" {
		return addr
	}
	return defaultAddr
}

// GeminiAPIKey returns the Gemini API key from GEMINI_API_KEY.
// May be empty; the classifier reports the missing key as an error.
func GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

// Port returns the dashboard port from PORT or the default.
func Port(defaultPort string) string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	if defaultPort != "" {
		return defaultPort
	}
	return DefaultPort
}

// CameraID returns the camera device index from CAMERA_ID or the default.
func CameraID(defaultID int) int {
	if id := os.Getenv("CAMERA_ID"); id != "" {
		if n, err := strconv.Atoi(id); err == nil {
			return n
		}
	}
	return defaultID
}

// LoopInterval returns the capture loop interval from LOOP_INTERVAL
// (a Go duration string, e.g. "3s") or the default.
func LoopInterval(defaultInterval time.Duration) time.Duration {
	if v := os.Getenv("LOOP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	if defaultInterval > 0 {
		return defaultInterval
	}
	return DefaultInterval
}
