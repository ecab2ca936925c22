package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/afya-ehr/afya-backend/internal/models"
)

func newSession(id string) *models.Session {
	now := time.Now()
	return &models.Session{
		SessionID:    id,
		PhoneNumber:  "0244123456",
		ServiceCode:  "*714*33#",
		State:        models.SessionActive,
		StartedAt:    now,
		LastActivity: now,
	}
}

func TestSessionLifecycle(t *testing.T) {
	store := NewMemoryStore()

	if err := store.CreateSession(newSession("sess1")); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}

	got, err := store.GetSession("sess1")
	if err != nil {
		t.Fatalf("GetSession returned error: %v", err)
	}
	if got.PhoneNumber != "0244123456" {
		t.Errorf("phone = %q, want 0244123456", got.PhoneNumber)
	}

	if err := store.DeleteSession("sess1"); err != nil {
		t.Fatalf("DeleteSession returned error: %v", err)
	}
	if _, err := store.GetSession("sess1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSession after delete = %v, want ErrNotFound", err)
	}
}

func TestPatchSessionMergesFields(t *testing.T) {
	store := NewMemoryStore()
	if err := store.CreateSession(newSession("sess1")); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}

	step := models.StepChiefComplaint
	attempts := 2
	patient := &models.PatientSummary{ID: "pat_1", Name: "Akosua Boateng"}

	if _, err := store.PatchSession("sess1", SessionPatch{
		CurrentStep:  &step,
		AttemptCount: &attempts,
		Patient:      patient,
	}); err != nil {
		t.Fatalf("PatchSession returned error: %v", err)
	}

	got, err := store.GetSession("sess1")
	if err != nil {
		t.Fatalf("GetSession returned error: %v", err)
	}
	if got.CurrentStep != models.StepChiefComplaint {
		t.Errorf("step = %q, want %q", got.CurrentStep, models.StepChiefComplaint)
	}
	if got.AttemptCount != 2 {
		t.Errorf("attempts = %d, want 2", got.AttemptCount)
	}
	if got.Patient == nil || got.Patient.Name != "Akosua Boateng" {
		t.Errorf("patient = %+v, want Akosua Boateng", got.Patient)
	}
	// Untouched fields survive the patch.
	if got.PhoneNumber != "0244123456" {
		t.Errorf("phone = %q, want 0244123456", got.PhoneNumber)
	}
	if got.State != models.SessionActive {
		t.Errorf("state = %q, want active", got.State)
	}
}

func TestPatchSessionClearsReferences(t *testing.T) {
	store := NewMemoryStore()
	if err := store.CreateSession(newSession("sess1")); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}

	patient := &models.PatientSummary{ID: "pat_1", Name: "Akosua Boateng"}
	draft := &models.RecordDraft{ChiefComplaint: "Fever"}
	if _, err := store.PatchSession("sess1", SessionPatch{Patient: patient, RecordDraft: draft}); err != nil {
		t.Fatalf("PatchSession returned error: %v", err)
	}

	if _, err := store.PatchSession("sess1", SessionPatch{
		ClearPatient:     true,
		ClearRecordDraft: true,
	}); err != nil {
		t.Fatalf("PatchSession returned error: %v", err)
	}

	got, err := store.GetSession("sess1")
	if err != nil {
		t.Fatalf("GetSession returned error: %v", err)
	}
	if got.Patient != nil {
		t.Errorf("patient = %+v, want nil", got.Patient)
	}
	if got.RecordDraft != nil {
		t.Errorf("record draft = %+v, want nil", got.RecordDraft)
	}
}

func TestPatchSessionAppendsInputs(t *testing.T) {
	store := NewMemoryStore()
	if err := store.CreateSession(newSession("sess1")); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}

	for _, input := range []string{"1", "1234", "2"} {
		if _, err := store.PatchSession("sess1", SessionPatch{
			AppendInput: &models.SessionInput{Input: input, Timestamp: time.Now()},
		}); err != nil {
			t.Fatalf("PatchSession returned error: %v", err)
		}
	}

	got, err := store.GetSession("sess1")
	if err != nil {
		t.Fatalf("GetSession returned error: %v", err)
	}
	if len(got.Inputs) != 3 {
		t.Fatalf("inputs = %d, want 3", len(got.Inputs))
	}
	if got.Inputs[2].Input != "2" {
		t.Errorf("last input = %q, want 2", got.Inputs[2].Input)
	}
}

func TestGetActiveSessionsFiltersEnded(t *testing.T) {
	store := NewMemoryStore()
	if err := store.CreateSession(newSession("sess1")); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if err := store.CreateSession(newSession("sess2")); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}

	ended := models.SessionEnded
	reason := models.EndReasonLogout
	if _, err := store.PatchSession("sess2", SessionPatch{State: &ended, EndReason: &reason}); err != nil {
		t.Fatalf("PatchSession returned error: %v", err)
	}

	active, err := store.GetActiveSessions()
	if err != nil {
		t.Fatalf("GetActiveSessions returned error: %v", err)
	}
	if len(active) != 1 || active[0].SessionID != "sess1" {
		t.Errorf("active sessions = %+v, want only sess1", active)
	}
}

func TestDuplicatePhoneRejected(t *testing.T) {
	store := NewMemoryStore()

	if _, err := store.CreatePatient(&models.Patient{Name: "Akosua Boateng", Phone: "0201111111"}); err != nil {
		t.Fatalf("CreatePatient returned error: %v", err)
	}
	if _, err := store.CreatePatient(&models.Patient{Name: "Other Person", Phone: "0201111111"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate create = %v, want ErrDuplicate", err)
	}
}

func TestGeneratedIDs(t *testing.T) {
	store := NewMemoryStore()

	patient, err := store.CreatePatient(&models.Patient{Name: "Akosua Boateng", Phone: "0201111111"})
	if err != nil {
		t.Fatalf("CreatePatient returned error: %v", err)
	}
	if patient.PatientID == "" {
		t.Error("expected a generated patient ID")
	}

	record, err := store.CreateMedicalRecord(&models.MedicalRecord{PatientID: patient.PatientID})
	if err != nil {
		t.Fatalf("CreateMedicalRecord returned error: %v", err)
	}
	if record.RecordID == "" {
		t.Error("expected a generated record ID")
	}
	if record.VisitDate == "" {
		t.Error("expected a defaulted visit date")
	}
}
