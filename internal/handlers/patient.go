package handlers

import (
	"errors"

	"github.com/afya-ehr/afya-backend/internal/models"
	"github.com/afya-ehr/afya-backend/internal/services"
	"github.com/afya-ehr/afya-backend/internal/storage"
	"github.com/gofiber/fiber/v2"
)

// PatientHandler handles patient-related requests
type PatientHandler struct {
	records *services.RecordService
}

// NewPatientHandler creates a new patient handler
func NewPatientHandler(records *services.RecordService) *PatientHandler {
	return &PatientHandler{records: records}
}

// Register handles patient registration
func (h *PatientHandler) Register(c *fiber.Ctx) error {
	var reg models.PatientRegistration

	if err := c.BodyParser(&reg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	patient, err := h.records.CreatePatient(reg)
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
				"error": "Failed to register patient",
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Patient registered successfully",
		"patient": patient,
	})
}

// GetPatient retrieves a patient by ID
func (h *PatientHandler) GetPatient(c *fiber.Ctx) error {
	id := c.Params("id")

	patient, err := h.records.GetPatient(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Patient not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch patient",
		})
	}

	return c.JSON(patient)
}

// ListPatients returns all patients
func (h *PatientHandler) ListPatients(c *fiber.Ctx) error {
	patients, err := h.records.GetPatients()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch patients",
		})
	}

	return c.JSON(fiber.Map{
		"count":    len(patients),
		"patients": patients,
	})
}

// SearchPatients matches patients by name, phone or ID substring
func (h *PatientHandler) SearchPatients(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query parameter 'q' is required",
		})
	}

	results, err := h.records.SearchPatients(query)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Search failed",
		})
	}

	return c.JSON(fiber.Map{
		"count":    len(results),
		"patients": results,
	})
}

// GetPatientRecords returns the medical records for one patient
func (h *PatientHandler) GetPatientRecords(c *fiber.Ctx) error {
	id := c.Params("id")

	if _, err := h.records.GetPatient(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Patient not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch patient",
		})
	}

	records, err := h.records.GetPatientRecords(id)
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
