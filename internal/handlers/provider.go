package handlers

import (
	"errors"

	"github.com/afya-ehr/afya-backend/internal/models"
	"github.com/afya-ehr/afya-backend/internal/services"
	"github.com/afya-ehr/afya-backend/internal/storage"
	"github.com/gofiber/fiber/v2"
)

// ProviderHandler handles provider-related requests
type ProviderHandler struct {
	records *services.RecordService
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(records *services.RecordService) *ProviderHandler {
	return &ProviderHandler{records: records}
}

// Register handles provider registration
func (h *ProviderHandler) Register(c *fiber.Ctx) error {
	var reg models.ProviderRegistration

	if err := c.BodyParser(&reg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	provider, err := h.records.CreateProvider(reg)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errors.Is(err, services.ErrDuplicatePhone):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Phone number already registered",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to register provider",
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Provider registered successfully",
		"provider": provider,
	})
}

// GetProvider retrieves a provider by ID
func (h *ProviderHandler) GetProvider(c *fiber.Ctx) error {
	id := c.Params("id")

	provider, err := h.records.GetProvider(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Provider not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch provider",
		})
	}

	return c.JSON(provider)
}

// ListProviders returns all providers
func (h *ProviderHandler) ListProviders(c *fiber.Ctx) error {
	providers, err := h.records.GetProviders()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch providers",
		})
	}

	return c.JSON(fiber.Map{
		"count":     len(providers),
		"providers": providers,
	})
}

// ResetPin replaces a provider's USSD PIN
func (h *ProviderHandler) ResetPin(c *fiber.Ctx) error {
	id := c.Params("id")

	var body struct {
		PIN string `json:"pin"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.records.ResetProviderPin(id, body.PIN); err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errors.Is(err, storage.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Provider not found",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to reset PIN",
			})
		}
	}

	return c.JSON(fiber.Map{
		"message": "PIN reset successfully",
	})
}

// ToggleStatus flips a provider between active and inactive
func (h *ProviderHandler) ToggleStatus(c *fiber.Ctx) error {
	id := c.Params("id")

	provider, err := h.records.ToggleProviderStatus(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Provider not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update provider",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Provider status updated",
		"provider": provider,
	})
}
