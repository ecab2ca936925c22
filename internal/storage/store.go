package storage

import (
	"errors"
	"time"

	"gorm.io/datatypes"

	"github.com/afya-ehr/afya-backend/internal/models"
)

var (
	// ErrNotFound is returned when a keyed lookup misses
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint (phone) is violated
	ErrDuplicate = errors.New("record already exists")
)

var storeInstance Store

// SetStore sets the global store instance (call from main.go)
func SetStore(s Store) {
	storeInstance = s
}

// GetStore returns the global store instance
func GetStore() Store {
	return storeInstance
}

// SessionPatch is a shallow per-field merge applied to a stored
// session. A nil field leaves the stored value untouched; the Clear*
// flags null out the nullable references explicitly.
type SessionPatch struct {
	State        *string
	LastActivity *time.Time
	AttemptCount *int
	CurrentStep  *models.WorkflowStep

	Authenticated *bool

	Provider      *models.ProviderSummary
	ClearProvider bool

	Patient      *models.PatientSummary
	ClearPatient bool

	PatientDraft      *models.PatientDraft
	ClearPatientDraft bool

	RecordDraft      *models.RecordDraft
	ClearRecordDraft bool

	SearchResults      []models.PatientSummary
	ClearSearchResults bool

	AppendInput *models.SessionInput

	Context      datatypes.JSON
	ClearContext bool

	EndedAt   *time.Time
	EndReason *string
}

// ApplyPatch merges a patch into a session value, field by field.
// Both store implementations share this merge rule.
func ApplyPatch(s *models.Session, p SessionPatch) {
	if p.State != nil {
		s.State = *p.State
	}
	if p.LastActivity != nil {
		s.LastActivity = *p.LastActivity
	}
	if p.AttemptCount != nil {
		s.AttemptCount = *p.AttemptCount
	}
	if p.CurrentStep != nil {
		s.CurrentStep = *p.CurrentStep
	}
	if p.Authenticated != nil {
		s.Authenticated = *p.Authenticated
	}
	if p.Provider != nil {
		s.Provider = p.Provider
	} else if p.ClearProvider {
		s.Provider = nil
	}
	if p.Patient != nil {
		s.Patient = p.Patient
	} else if p.ClearPatient {
		s.Patient = nil
	}
	if p.PatientDraft != nil {
		s.PatientDraft = p.PatientDraft
	} else if p.ClearPatientDraft {
		s.PatientDraft = nil
	}
	if p.RecordDraft != nil {
		s.RecordDraft = p.RecordDraft
	} else if p.ClearRecordDraft {
		s.RecordDraft = nil
	}
	if p.SearchResults != nil {
		s.SearchResults = p.SearchResults
	} else if p.ClearSearchResults {
		s.SearchResults = nil
	}
	if p.AppendInput != nil {
		s.Inputs = append(s.Inputs, *p.AppendInput)
	}
	if p.Context != nil {
		s.Context = p.Context
	} else if p.ClearContext {
		s.Context = nil
	}
	if p.EndedAt != nil {
		s.EndedAt = p.EndedAt
	}
	if p.EndReason != nil {
		s.EndReason = *p.EndReason
	}
}

// Store defines the interface for storage operations
type Store interface {
	// Session operations
	CreateSession(session *models.Session) error
	GetSession(sessionID string) (*models.Session, error)
	PatchSession(sessionID string, patch SessionPatch) (*models.Session, error)
	DeleteSession(sessionID string) error
	GetActiveSessions() ([]*models.Session, error)

	// Facility operations
	CreateFacility(facility *models.Facility) (*models.Facility, error)
	GetFacility(id string) (*models.Facility, error)
	GetFacilityByPhone(phone string) (*models.Facility, error)
	GetFacilities() ([]*models.Facility, error)
	UpdateFacility(facility *models.Facility) error
	DeleteFacility(id string) error

	// Provider operations
	CreateProvider(provider *models.Provider) (*models.Provider, error)
	GetProvider(id string) (*models.Provider, error)
	GetProviderByPhone(phone string) (*models.Provider, error)
	GetProviders() ([]*models.Provider, error)
	UpdateProvider(provider *models.Provider) error
	DeleteProvider(id string) error

	// Patient operations
	CreatePatient(patient *models.Patient) (*models.Patient, error)
	GetPatient(id string) (*models.Patient, error)
	GetPatientByPhone(phone string) (*models.Patient, error)
	GetPatients() ([]*models.Patient, error)
	UpdatePatient(patient *models.Patient) error
	DeletePatient(id string) error

	// Medical record operations
	CreateMedicalRecord(record *models.MedicalRecord) (*models.MedicalRecord, error)
	GetMedicalRecord(id string) (*models.MedicalRecord, error)
	GetRecordsByPatient(patientID string) ([]*models.MedicalRecord, error)
	GetRecentRecords(limit int) ([]*models.MedicalRecord, error)
	DeleteMedicalRecord(id string) error

	// Activity log operations
	CreateActivityLog(entry *models.ActivityLog) error
	GetLogs(limit int) ([]*models.ActivityLog, error)
}
