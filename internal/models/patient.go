package models

import (
	"time"

	"gorm.io/gorm"
)

// Patient represents a patient whose records are managed in the system
type Patient struct {
	gorm.Model

	PatientID        string     `json:"id" gorm:"uniqueIndex"`
	Name             string     `json:"name"`
	Phone            string     `json:"phone" gorm:"uniqueIndex"`
	DateOfBirth      string     `json:"date_of_birth"` // DD/MM/YYYY, empty when not provided
	Gender           string     `json:"gender"`
	BloodType        string     `json:"blood_type"`
	Allergies        string     `json:"allergies"`
	EmergencyContact string     `json:"emergency_contact"`
	RegisteredBy     string     `json:"registered_by_phone"`
	LastVisit        *time.Time `json:"last_visit"`
	IsActive         bool       `json:"is_active" gorm:"default:true"`
}

// BeforeCreate hook to auto-generate the patient ID
func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.PatientID == "" {
		p.PatientID = GenerateID("pat_")
	}
	return nil
}

// PatientSummary is the denormalized patient reference embedded in
// medical records and session state
type PatientSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
}

// Summary returns the embeddable reference for this patient
func (p *Patient) Summary() PatientSummary {
	return PatientSummary{
		ID:          p.PatientID,
		Name:        p.Name,
		Phone:       p.Phone,
		DateOfBirth: p.DateOfBirth,
		Gender:      p.Gender,
	}
}

// PatientRegistration is the payload for creating a new patient
type PatientRegistration struct {
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	DateOfBirth      string `json:"date_of_birth"`
	Gender           string `json:"gender"`
	BloodType        string `json:"blood_type"`
	Allergies        string `json:"allergies"`
	EmergencyContact string `json:"emergency_contact"`
	RegisteredBy     string `json:"registered_by_phone"`
}
