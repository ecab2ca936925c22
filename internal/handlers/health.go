package handlers

import (
	"time"

	"github.com/afya-ehr/afya-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	Version  string
	started  time.Time
	sessions *services.SessionManager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, sessions *services.SessionManager) *HealthHandler {
	return &HealthHandler{
		Version:  version,
		started:  time.Now(),
		sessions: sessions,
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":          "OK",
		"service":         "Afya Backend",
		"version":         h.Version,
		"uptime":          time.Since(h.started).Round(time.Second).String(),
		"active_sessions": h.sessions.ActiveSessionCount(),
	})
}
