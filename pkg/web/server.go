// Package web provides the binsight dashboard: REST control of the
// processing loop and websocket streams for status and camera preview.
package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/binsight/go-binsight/internal/log"
	"github.com/binsight/go-binsight/pkg/camera"
	"github.com/binsight/go-binsight/pkg/dispatch"
	"github.com/binsight/go-binsight/pkg/hub"
	"github.com/binsight/go-binsight/pkg/loop"
)

// Status is the composite state served to the dashboard.
type Status struct {
	Loop        loop.Snapshot `json:"loop"`
	SorterAddr  string        `json:"sorter_addr"`
	CameraReady bool          `json:"camera_ready"`
}

// Server is the dashboard server.
type Server struct {
	app  *fiber.App
	port string

	loop       *loop.Loop
	dispatcher *dispatch.Dispatcher
	camera     camera.Provider

	// Hubs for websocket broadcast
	statusHub *hub.Hub
	cameraHub *hub.Hub
}

// NewServer creates the dashboard server and wires the loop's callbacks
// into the websocket hubs.
func NewServer(port string, lp *loop.Loop, d *dispatch.Dispatcher, cam camera.Provider) *Server {
	s := &Server{
		port:       port,
		loop:       lp,
		dispatcher: d,
		camera:     cam,
		statusHub:  hub.New("status"),
		cameraHub:  hub.New("camera"),
	}

	// Push every loop state change and preview frame to connected clients.
	lp.OnUpdate = func(snap loop.Snapshot) {
		s.statusHub.BroadcastJSON(s.status(snap))
	}
	lp.OnFrame = func(jpeg []byte) {
		s.cameraHub.BroadcastBinary(jpeg)
	}

	app := fiber.New(fiber.Config{
		AppName:               "binsight",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/loop/start", s.handleLoopStart)
	api.Post("/loop/stop", s.handleLoopStop)
	api.Get("/config/endpoint", s.handleGetEndpoint)
	api.Put("/config/endpoint", s.handleSetEndpoint)
	api.Get("/frame", s.handleFrame)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// Start runs the hubs and listens. Blocks until shutdown.
func (s *Server) Start() error {
	go s.statusHub.Run()
	go s.cameraHub.Run()

	log.Info("dashboard listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("dashboard server failed", "error", err)
		}
	}()
}

// Shutdown gracefully stops the web server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// status composes the dashboard status from a loop snapshot.
func (s *Server) status(snap loop.Snapshot) Status {
	return Status{
		Loop:        snap,
		SorterAddr:  s.dispatcher.Address(),
		CameraReady: s.camera.Ready(),
	}
}
