package handlers

import (
	"errors"
	"strconv"

	"github.com/afya-ehr/afya-backend/internal/models"
	"github.com/afya-ehr/afya-backend/internal/services"
	"github.com/afya-ehr/afya-backend/internal/storage"
	"github.com/gofiber/fiber/v2"
)

// RecordHandler handles medical record requests
type RecordHandler struct {
	records *services.RecordService
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(records *services.RecordService) *RecordHandler {
	return &RecordHandler{records: records}
}

// Create handles medical record creation from the REST API
func (h *RecordHandler) Create(c *fiber.Ctx) error {
	var input models.MedicalRecordInput

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	record, err := h.records.CreateMedicalRecord(input)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create medical record",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Medical record created successfully",
		"record":  record,
	})
}

// GetRecord retrieves a medical record by ID
func (h *RecordHandler) GetRecord(c *fiber.Ctx) error {
	id := c.Params("id")

	record, err := h.records.GetMedicalRecord(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Record not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch record",
		})
	}

	return c.JSON(record)
}

// RecentRecords returns the most recently created records
func (h *RecordHandler) RecentRecords(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}

	records, err := h.records.GetRecentRecords(limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch records",
		})
	}

	return c.JSON(fiber.Map{
		"count":   len(records),
		"records": records,
	})
}
