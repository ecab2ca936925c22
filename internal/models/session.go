package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Session lifecycle states
const (
	SessionActive = "active"
	SessionEnded  = "ended"
)

// Session end reasons
const (
	EndReasonLogout      = "logout"
	EndReasonTimeout     = "timeout"
	EndReasonMaxAttempts = "max_attempts"
	EndReasonCompleted   = "completed"
)

// WorkflowStep is the closed set of positions in the guided
// patient-registration and medical-record workflow. The empty value
// means no workflow is active.
type WorkflowStep string

const (
	StepNone              WorkflowStep = ""
	StepPatientLookup     WorkflowStep = "patient_lookup"
	StepPatientPhone      WorkflowStep = "patient_phone"
	StepPatientNotFound   WorkflowStep = "patient_not_found"
	StepPatientSearch     WorkflowStep = "patient_search"
	StepSearchNoMatch     WorkflowStep = "search_no_match"
	StepPatientSelection  WorkflowStep = "patient_selection"
	StepNewPatientName    WorkflowStep = "new_patient_name"
	StepNewPatientDob     WorkflowStep = "new_patient_dob"
	StepNewPatientGender  WorkflowStep = "new_patient_gender"
	StepNewPatientConfirm WorkflowStep = "new_patient_confirm"
	StepChiefComplaint    WorkflowStep = "chief_complaint"
	StepHistory           WorkflowStep = "history"
	StepExamination       WorkflowStep = "examination"
	StepDiagnosis         WorkflowStep = "diagnosis"
	StepTreatment         WorkflowStep = "treatment"
	StepPrescription      WorkflowStep = "prescription"
	StepFollowUp          WorkflowStep = "follow_up"
	StepRecordConfirm     WorkflowStep = "record_confirm"
	StepEditMenu          WorkflowStep = "edit_menu"
	StepEditComplaint     WorkflowStep = "edit_complaint"
	StepEditDiagnosis     WorkflowStep = "edit_diagnosis"
	StepEditTreatment     WorkflowStep = "edit_treatment"
	StepEditPrescription  WorkflowStep = "edit_prescription"
)

// PatientDraft holds new-patient fields pending confirmation
type PatientDraft struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
}

// SessionInput is one raw user input with its arrival time
type SessionInput struct {
	Input     string    `json:"input"`
	Timestamp time.Time `json:"timestamp"`
}

// Session stores the state of one USSD interaction, keyed by the
// opaque session id supplied by the upstream gateway
type Session struct {
	gorm.Model

	SessionID    string    `json:"session_id" gorm:"uniqueIndex"`
	PhoneNumber  string    `json:"phone_number" gorm:"index"`
	ServiceCode  string    `json:"service_code"`
	State        string    `json:"state"` // active | ended
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`

	Inputs       []SessionInput `json:"user_input" gorm:"serializer:json"`
	AttemptCount int            `json:"attempt_count" gorm:"default:0"`

	CurrentStep   WorkflowStep `json:"current_step"`
	Authenticated bool         `json:"authenticated" gorm:"default:false"`

	Provider      *ProviderSummary `json:"provider" gorm:"serializer:json"`
	Patient       *PatientSummary  `json:"patient" gorm:"serializer:json"`
	PatientDraft  *PatientDraft    `json:"patient_draft" gorm:"serializer:json"`
	RecordDraft   *RecordDraft     `json:"medical_record" gorm:"serializer:json"`
	SearchResults []PatientSummary `json:"search_results" gorm:"serializer:json"`

	Context datatypes.JSON `json:"context"`

	EndedAt   *time.Time `json:"ended_at"`
	EndReason string     `json:"end_reason"`
}

// Duration reports how long the session has been (or was) alive
func (s *Session) Duration() time.Duration {
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return time.Since(s.StartedAt)
}
