package models

import "gorm.io/gorm"

// Provider represents a healthcare provider who can authenticate over
// USSD and create medical records
type Provider struct {
	gorm.Model

	ProviderID     string `json:"id" gorm:"uniqueIndex"`
	Name           string `json:"name"`
	Phone          string `json:"phone" gorm:"uniqueIndex"`
	Specialization string `json:"specialization"`
	FacilityID     string `json:"facility_id" gorm:"index"`
	// 4-digit USSD credential. Stored in clear per current system
	// behavior; the attempt ceiling is the only lockout mechanism.
	PIN      string          `json:"-"`
	IsActive bool            `json:"is_active" gorm:"default:true"`
	Facility FacilitySummary `json:"facility" gorm:"serializer:json"`
}

// BeforeCreate hook to auto-generate the provider ID
func (p *Provider) BeforeCreate(tx *gorm.DB) error {
	if p.ProviderID == "" {
		p.ProviderID = GenerateID("prov_")
	}
	return nil
}

// ProviderSummary is the denormalized provider reference embedded in
// medical records and session state
type ProviderSummary struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	Specialization string          `json:"specialization"`
	FacilityID     string          `json:"facility_id"`
	IsActive       bool            `json:"is_active"`
	Facility       FacilitySummary `json:"facility"`
}

// Summary returns the embeddable reference for this provider
func (p *Provider) Summary() ProviderSummary {
	return ProviderSummary{
		ID:             p.ProviderID,
		Name:           p.Name,
		Phone:          p.Phone,
		Specialization: p.Specialization,
		FacilityID:     p.FacilityID,
		IsActive:       p.IsActive,
		Facility:       p.Facility,
	}
}

// ProviderRegistration is the payload for creating a new provider
type ProviderRegistration struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Specialization string `json:"specialization"`
	FacilityID     string `json:"facility_id"`
	PIN            string `json:"pin"`
}
