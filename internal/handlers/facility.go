package handlers

import (
	"errors"

	"github.com/afya-ehr/afya-backend/internal/models"
	"github.com/afya-ehr/afya-backend/internal/services"
	"github.com/afya-ehr/afya-backend/internal/storage"
	"github.com/gofiber/fiber/v2"
)

// FacilityHandler handles facility-related requests
type FacilityHandler struct {
	records *services.RecordService
}

// NewFacilityHandler creates a new facility handler
func NewFacilityHandler(records *services.RecordService) *FacilityHandler {
	return &FacilityHandler{records: records}
}

// Register handles facility registration
func (h *FacilityHandler) Register(c *fiber.Ctx) error {
	var reg models.FacilityRegistration

	if err := c.BodyParser(&reg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	facility, err := h.records.CreateFacility(reg)
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
				"error": "Failed to register facility",
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Facility registered successfully",
		"facility": facility,
	})
}

// GetFacility retrieves a facility by ID
func (h *FacilityHandler) GetFacility(c *fiber.Ctx) error {
	id := c.Params("id")

	facility, err := h.records.GetFacility(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Facility not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch facility",
		})
	}

	return c.JSON(facility)
}

// ListFacilities returns all facilities
func (h *FacilityHandler) ListFacilities(c *fiber.Ctx) error {
	facilities, err := h.records.GetFacilities()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch facilities",
		})
	}

	return c.JSON(fiber.Map{
		"count":      len(facilities),
		"facilities": facilities,
	})
}

// ToggleStatus flips a facility between active and inactive
func (h *FacilityHandler) ToggleStatus(c *fiber.Ctx) error {
	id := c.Params("id")

	facility, err := h.records.ToggleFacilityStatus(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Facility not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update facility",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Facility status updated",
		"facility": facility,
	})
}
