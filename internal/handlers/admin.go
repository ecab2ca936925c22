package handlers

import (
	"os"
	"strconv"
	"time"

	"github.com/afya-ehr/afya-backend/internal/services"
	"github.com/afya-ehr/afya-backend/internal/storage"
	"github.com/afya-ehr/afya-backend/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// AdminHandler handles the admin console: login, seeding, cleanup,
// dashboard and the activity feed
type AdminHandler struct {
	store    storage.Store
	records  *services.RecordService
	sessions *services.SessionManager
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(store storage.Store, records *services.RecordService, sessions *services.SessionManager) *AdminHandler {
	return &AdminHandler{store: store, records: records, sessions: sessions}
}

// Login checks admin credentials and issues a bearer token
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	secret := os.Getenv("JWT_SECRET")
	if username == "" || password == "" || secret == "" {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Admin access not configured",
		})
	}

	if body.Username != username || body.Password != password {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	token, err := utils.GenerateAdminToken(body.Username, secret, 24*time.Hour)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	return c.JSON(fiber.Map{
		"token":      token,
		"expires_in": int((24 * time.Hour).Seconds()),
	})
}

// Dashboard returns aggregate counts and the recent record feed
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.records.DashboardStats()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build dashboard",
		})
	}

	return c.JSON(stats)
}

// Logs returns the most recent activity log entries
func (h *AdminHandler) Logs(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}

	logs, err := h.store.GetLogs(limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch logs",
		})
	}

	return c.JSON(fiber.Map{
		"count": len(logs),
		"logs":  logs,
	})
}

// Seed loads the sample dataset
func (h *AdminHandler) Seed(c *fiber.Ctx) error {
	if err := services.SeedSampleData(h.records); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Seeding failed",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Sample data seeded successfully",
	})
}

// Cleanup sweeps expired sessions and orphaned records
func (h *AdminHandler) Cleanup(c *fiber.Ctx) error {
	sessionsEnded := h.sessions.CleanupExpiredSessions()
	recordsRemoved, err := h.records.CleanupInvalidRecords()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Cleanup failed",
		})
	}

	return c.JSON(fiber.Map{
		"message":         "Cleanup complete",
		"sessions_ended":  sessionsEnded,
		"records_removed": recordsRemoved,
	})
}
