package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/binsight/go-binsight/pkg/hub"
)

// handleHealth is a liveness probe.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleStatus returns the current loop and config state.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status(s.loop.Snapshot()))
}

// handleLoopStart enables the processing loop.
func (s *Server) handleLoopStart(c *fiber.Ctx) error {
	if !s.camera.Ready() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "camera not ready",
		})
	}
	s.loop.Enable()
	return c.JSON(s.status(s.loop.Snapshot()))
}

// handleLoopStop disables the processing loop. An in-flight
// classification drains on its own.
func (s *Server) handleLoopStop(c *fiber.Ctx) error {
	s.loop.Disable()
	return c.JSON(s.status(s.loop.Snapshot()))
}

// handleGetEndpoint returns the sorter address.
func (s *Server) handleGetEndpoint(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"address": s.dispatcher.Address()})
}

// EndpointRequest is the body for updating the sorter address.
type EndpointRequest struct {
	Address string `json:"address"`
}

// handleSetEndpoint updates the sorter address.
// The address is only editable while the loop is disabled.
func (s *Server) handleSetEndpoint(c *fiber.Ctx) error {
	if s.loop.Enabled() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "stop the loop before changing the sorter address",
		})
	}

	var req EndpointRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	s.dispatcher.SetAddress(req.Address)
	return c.JSON(fiber.Map{"address": s.dispatcher.Address()})
}

// handleFrame captures and returns a single JPEG frame.
func (s *Server) handleFrame(c *fiber.Ctx) error {
	if !s.camera.Ready() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "camera not ready",
		})
	}

	frame, err := s.camera.CaptureFrame()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(frame)
}

// handleStatusWS streams status snapshots over a websocket.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	// Send the current state immediately, then stream updates via the hub.
	c.WriteJSON(s.status(s.loop.Snapshot()))
	hub.NewClient(s.statusHub, c).Run()
}

// handleCameraWS streams camera preview frames over a websocket.
func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}
