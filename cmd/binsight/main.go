// binsight: camera-based waste-sorting assistant.
//
// Captures frames from a local camera, classifies the pictured object with
// Gemini, and signals the matching bin to an embedded sorter device.
// A web dashboard exposes status, control, and a live camera preview.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/binsight/go-binsight/internal/config"
	"github.com/binsight/go-binsight/internal/log"
	"github.com/binsight/go-binsight/pkg/camera"
	"github.com/binsight/go-binsight/pkg/classify"
	"github.com/binsight/go-binsight/pkg/dispatch"
	"github.com/binsight/go-binsight/pkg/loop"
	"github.com/binsight/go-binsight/pkg/web"
)

var version = "1.0.0"

var (
	port       = flag.String("port", config.DefaultPort, "dashboard port")
	cameraID   = flag.Int("camera", config.DefaultCameraID, "camera device index")
	interval   = flag.Duration("interval", config.DefaultInterval, "delay between capture cycles")
	sorterAddr = flag.String("sorter", "", "sorter device address (e.g. 192.168.4.1)")
	autostart  = flag.Bool("autostart", false, "enable the loop on startup")
	logLevel   = flag.String("log-level", "info", "log level: debug, info, warn, error")
)

func main() {
	flag.Parse()
	log.Init(*logLevel)

	fmt.Println("♻️  binsight v" + version)
	fmt.Println("   camera → classify → sort")
	fmt.Println()

	apiKey := config.GeminiAPIKey()
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable is required")
		fmt.Fprintln(os.Stderr, "Get one at: https://aistudio.google.com/apikey")
		os.Exit(1)
	}

	// Camera acquisition failure is fatal: the loop cannot start without a
	// source, and the error is surfaced verbatim.
	cam, err := camera.OpenWebcam(config.CameraID(*cameraID))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cam.Close()

	classifier := classify.NewGemini(apiKey)
	dispatcher := dispatch.New(config.SorterAddr(*sorterAddr))
	lp := loop.New(cam, classifier, dispatcher, config.LoopInterval(*interval))

	server := web.NewServer(config.Port(*port), lp, dispatcher, cam)
	server.StartAsync()

	if dispatcher.Address() == "" {
		log.Warn("no sorter address configured; classifications will not be dispatched")
	}
	if *autostart {
		lp.Enable()
	}

	log.Info("binsight started",
		"version", version,
		"port", config.Port(*port),
		"camera", config.CameraID(*cameraID),
		"sorter", dispatcher.Address(),
		"autostart", *autostart,
	)

	// Block until interrupted.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\n👋 Shutting down")
	lp.Disable()
	server.Shutdown()
}
