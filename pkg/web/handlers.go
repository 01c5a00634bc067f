package web

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-ainex/pkg/hub"
)

// ObjectInfo is a trained object as listed by the API.
type ObjectInfo struct {
	Name      string    `json:"name"`
	Samples   int       `json:"samples"`
	TrainedAt time.Time `json:"trained_at"`
}

// SayRequest is the body of POST /api/say.
type SayRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.State())
}

func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	return c.JSON(s.Logs())
}

func (s *Server) handleGetTranscript(c *fiber.Ctx) error {
	return c.JSON(s.Transcript())
}

// handleSay stages typed text for the simulated microphone.
func (s *Server) handleSay(c *fiber.Ctx) error {
	if s.stager == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "staged input is only available in simulation mode",
		})
	}

	var req SayRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "text is required"})
	}

	s.stager.Stage(text)
	s.AddLog("info", "staged: "+text)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"staged": text})
}

func (s *Server) handleListObjects(c *fiber.Ctx) error {
	if s.objects == nil {
		return c.JSON([]ObjectInfo{})
	}
	objs := s.objects.Objects()
	out := make([]ObjectInfo, 0, len(objs))
	for _, o := range objs {
		out = append(out, ObjectInfo{Name: o.Name, Samples: len(o.Samples), TrainedAt: o.TrainedAt})
	}
	return c.JSON(out)
}

func (s *Server) handleDeleteObject(c *fiber.Ctx) error {
	if s.objects == nil {
		return fiber.ErrNotFound
	}
	name := c.Params("name")
	if !s.objects.Has(name) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no such object"})
	}
	if err := s.objects.Delete(c.UserContext(), name); err != nil {
		s.logger.Error("delete object", "name", name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	s.AddLog("info", "forgot object: "+name)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleMotionStop(c *fiber.Ctx) error {
	if s.motion == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "motion is disabled"})
	}
	reply := s.motion.Stop()
	s.AddLog("motion", reply)
	return c.JSON(fiber.Map{"result": reply})
}

func (s *Server) handleLastFrame(c *fiber.Ctx) error {
	frame := s.LastFrame()
	if frame == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no frame captured yet"})
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(frame)
}

func (s *Server) handleStatusWS(c *websocket.Conn) {
	data, err := json.Marshal(s.State())
	if err != nil {
		s.logger.Warn("encode status", "error", err)
		return
	}
	hub.NewClient(s.statusHub, c).Run(hub.NewJSONMessage(data))
}

func (s *Server) handleLogsWS(c *websocket.Conn) {
	hub.NewClient(s.logHub, c).Run()
}

func (s *Server) handleSpeechWS(c *websocket.Conn) {
	hub.NewClient(s.speechHub, c).Run()
}

func (s *Server) handleCameraWS(c *websocket.Conn) {
	var initial []hub.Message
	if frame := s.LastFrame(); frame != nil {
		initial = append(initial, hub.NewBinaryMessage(frame))
	}
	hub.NewClient(s.cameraHub, c).Run(initial...)
}
