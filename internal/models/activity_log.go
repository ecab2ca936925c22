package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActivityLog is one audit event. Writes are best-effort; a failed
// audit write must never surface to the user-facing request.
type ActivityLog struct {
	gorm.Model

	LogID      string         `json:"id" gorm:"uniqueIndex"`
	Action     string         `json:"action" gorm:"index"`
	Details    string         `json:"details"`
	UserPhone  string         `json:"user_phone"`
	SessionID  string         `json:"session_id"`
	PatientID  string         `json:"patient_id"`
	ProviderID string         `json:"provider_id"`
	FacilityID string         `json:"facility_id"`
	RecordID   string         `json:"record_id"`
	Extra      datatypes.JSON `json:"extra"`
}

// BeforeCreate hook to auto-generate the log ID
func (l *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if l.LogID == "" {
		l.LogID = GenerateID("log_")
	}
	return nil
}
