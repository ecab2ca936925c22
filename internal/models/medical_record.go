package models

import (
	"time"

	"gorm.io/gorm"
)

// MedicalRecord is one clinical encounter captured by a provider
type MedicalRecord struct {
	gorm.Model

	RecordID   string `json:"id" gorm:"uniqueIndex"`
	PatientID  string `json:"patient_id" gorm:"index"`
	ProviderID string `json:"provider_id" gorm:"index"`
	FacilityID string `json:"facility_id" gorm:"index"`
	VisitDate  string `json:"visit_date"` // YYYY-MM-DD

	ChiefComplaint      string `json:"chief_complaint"`
	History             string `json:"history"`
	PhysicalExamination string `json:"physical_examination"`
	Diagnosis           string `json:"diagnosis"`
	Treatment           string `json:"treatment"`
	Prescription        string `json:"prescription"`
	FollowUp            string `json:"follow_up"`
	Notes               string `json:"notes"`

	Patient  PatientSummary  `json:"patient" gorm:"serializer:json"`
	Provider ProviderSummary `json:"provider" gorm:"serializer:json"`
	Facility FacilitySummary `json:"facility" gorm:"serializer:json"`
}

// BeforeCreate hook to auto-generate the record ID and default visit date
func (r *MedicalRecord) BeforeCreate(tx *gorm.DB) error {
	if r.RecordID == "" {
		r.RecordID = GenerateID("rec_")
	}
	if r.VisitDate == "" {
		r.VisitDate = time.Now().Format("2006-01-02")
	}
	return nil
}

// RecordDraft is the medical record accumulated field-by-field inside a
// USSD session before the final confirmation commits it
type RecordDraft struct {
	ChiefComplaint      string `json:"chief_complaint"`
	History             string `json:"history"`
	PhysicalExamination string `json:"physical_examination"`
	Diagnosis           string `json:"diagnosis"`
	Treatment           string `json:"treatment"`
	Prescription        string `json:"prescription"`
	FollowUp            string `json:"follow_up"`
}

// MedicalRecordInput is the payload for creating a medical record, from
// either the REST API or the USSD workflow commit
type MedicalRecordInput struct {
	PatientID           string `json:"patient_id"`
	ProviderID          string `json:"provider_id"`
	FacilityID          string `json:"facility_id"`
	VisitDate           string `json:"visit_date"`
	ChiefComplaint      string `json:"chief_complaint"`
	History             string `json:"history"`
	PhysicalExamination string `json:"physical_examination"`
	Diagnosis           string `json:"diagnosis"`
	Treatment           string `json:"treatment"`
	Prescription        string `json:"prescription"`
	FollowUp            string `json:"follow_up"`
	Notes               string `json:"notes"`
}
