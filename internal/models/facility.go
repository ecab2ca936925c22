package models

import (
	"time"

	"gorm.io/gorm"
)

// Facility represents a healthcare facility registered in the system
type Facility struct {
	gorm.Model

	FacilityID   string `json:"id" gorm:"uniqueIndex"`
	Name         string `json:"name"`
	FacilityType string `json:"facility_type"` // e.g. "Hospital", "Clinic", "Emergency Center"
	Location     string `json:"location"`
	Phone        string `json:"phone" gorm:"uniqueIndex"`
	Description  string `json:"description"`
	IsActive     bool   `json:"is_active" gorm:"default:true"`

	ProvidersCount int `json:"providers_count" gorm:"default:0"`
	RecordsCount   int `json:"records_count" gorm:"default:0"`
}

// BeforeCreate hook to auto-generate the facility ID
func (f *Facility) BeforeCreate(tx *gorm.DB) error {
	if f.FacilityID == "" {
		f.FacilityID = GenerateID("fac_")
	}
	return nil
}

// FacilitySummary is the denormalized facility reference embedded in
// providers and medical records
type FacilitySummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Summary returns the embeddable reference for this facility
func (f *Facility) Summary() FacilitySummary {
	return FacilitySummary{
		ID:       f.FacilityID,
		Name:     f.Name,
		Location: f.Location,
	}
}

// FacilityRegistration is the payload for creating a new facility
type FacilityRegistration struct {
	Name         string `json:"name"`
	FacilityType string `json:"facility_type"`
	Location     string `json:"location"`
	Phone        string `json:"phone"`
	Description  string `json:"description"`
}

// DashboardStats aggregates entity counts for the admin console
type DashboardStats struct {
	TotalFacilities  int64            `json:"total_facilities"`
	TotalProviders   int64            `json:"total_providers"`
	TotalPatients    int64            `json:"total_patients"`
	ActiveFacilities int64            `json:"active_facilities"`
	ActiveProviders  int64            `json:"active_providers"`
	RecentRecords    []*MedicalRecord `json:"recent_records"`
	GeneratedAt      time.Time        `json:"generated_at"`
}
