package web

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-facepipe/pkg/capture"
	"github.com/teslashibe/go-facepipe/pkg/hub"
)

// handleStatus returns the session state, overlays and viewer counts
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

// handleStats returns the session counters
func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.opts.Session.Stats())
}

func (s *Server) handleGetOverlays(c *fiber.Ctx) error {
	return c.JSON(s.opts.Session.Toggles().State())
}

// OverlayRequest is the request body for POST /api/overlays.
// Omitted fields keep their current value.
type OverlayRequest struct {
	Parts  *bool `json:"parts"`
	Angles *bool `json:"angles"`
}

// handleSetOverlays flips the landmark and pose overlays
func (s *Server) handleSetOverlays(c *fiber.Ctx) error {
	var req OverlayRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid overlay request",
		})
	}

	toggles := s.opts.Session.Toggles()
	if req.Parts != nil {
		toggles.SetParts(*req.Parts)
	}
	if req.Angles != nil {
		toggles.SetAngles(*req.Angles)
	}

	state := toggles.State()
	s.logger.Info("overlays changed", "parts", state.Parts, "angles", state.Angles)
	s.PublishStatus()
	return c.JSON(state)
}

// handleStartSession starts capture. The run outlives the request.
func (s *Server) handleStartSession(c *fiber.Ctx) error {
	err := s.opts.Session.Start(s.base())

	var cerr *capture.ConfigurationError
	switch {
	case err == nil:
	case errors.Is(err, capture.ErrAlreadyRunning):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, capture.ErrDeviceUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &cerr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
			"stage": cerr.Stage,
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	s.PublishStatus()
	return c.JSON(s.Status())
}

// handleStopSession stops capture and waits for delivery to drain.
func (s *Server) handleStopSession(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.StopTimeout)
	defer cancel()

	if err := s.opts.Session.Stop(ctx); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	s.PublishStatus()
	return c.JSON(s.Status())
}

// subscribe registers each websocket connection with h until it closes.
func (s *Server) subscribe(h *hub.Hub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		client := hub.NewClient(h, c)
		if client == nil {
			c.Close()
			return
		}
		s.logger.Debug("viewer connected", "hub", h.Name(), "remote", c.RemoteAddr().String())
		client.Run()
	}
}
