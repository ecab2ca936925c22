package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/afya-ehr/afya-backend/internal/models"
)

// dialer replays a USSD conversation, growing the *-joined trail the
// way a real gateway does.
type dialer struct {
	env       *testEnv
	sessionID string
	trail     string
}

func newDialer(env *testEnv, sessionID string) *dialer {
	env.turn(sessionID, "")
	return &dialer{env: env, sessionID: sessionID}
}

func (d *dialer) send(input string) string {
	if d.trail == "" {
		d.trail = input
	} else {
		d.trail += "*" + input
	}
	return d.env.turn(d.sessionID, d.trail)
}

// login drives the provider authentication turns.
func (d *dialer) login(t *testing.T) {
	t.Helper()
	d.send("1")
	reply := d.send("1234")
	if !strings.Contains(reply, "Welcome") {
		t.Fatalf("login failed: %q", reply)
	}
}

func (d *dialer) session(t *testing.T) *models.Session {
	t.Helper()
	session, err := d.env.store.GetSession(d.sessionID)
	if err != nil {
		t.Fatalf("store.GetSession returned error: %v", err)
	}
	return session
}

func TestRegisterPatientViaPhoneLookup(t *testing.T) {
	env := newTestEnv(t)
	env.seedProvider(t)
	d := newDialer(env, "sess1")
	d.login(t)

	reply := d.send("2")
	if !strings.Contains(reply, "Enter patient phone number") {
		t.Fatalf("expected phone prompt, got %q", reply)
	}

	reply = d.send("0201234567")
	if !strings.Contains(reply, "No patient found") {
		t.Fatalf("expected not-found options, got %q", reply)
	}

	reply = d.send("1")
	if !strings.Contains(reply, "Enter patient full name") {
		t.Fatalf("expected name prompt, got %q", reply)
	}

	reply = d.send("Ama Owusu")
	if !strings.Contains(reply, "date of birth") {
		t.Fatalf("expected DOB prompt, got %q", reply)
	}

	// 0 skips the optional date of birth.
	reply = d.send("0")
	if !strings.Contains(reply, "Select gender") {
		t.Fatalf("expected gender menu, got %q", reply)
	}

	reply = d.send("2")
	if !strings.Contains(reply, "Name: Ama Owusu") || !strings.Contains(reply, "Gender: Female") {
		t.Fatalf("expected confirmation screen, got %q", reply)
	}
	if !strings.Contains(reply, "DOB: -") {
		t.Errorf("expected skipped DOB shown as -, got %q", reply)
	}

	reply = d.send("1")
	if !strings.Contains(reply, "Patient registered") || !strings.Contains(reply, "chief complaint") {
		t.Fatalf("expected registration success, got %q", reply)
	}

	patient, err := env.records.GetPatientByPhone("0201234567")
	if err != nil {
		t.Fatalf("GetPatientByPhone returned error: %v", err)
	}
	if patient.Name != "Ama Owusu" {
		t.Errorf("name = %q, want Ama Owusu", patient.Name)
	}
	if patient.Gender != "Female" {
		t.Errorf("gender = %q, want Female", patient.Gender)
	}
	if patient.DateOfBirth != "" {
		t.Errorf("dob = %q, want empty", patient.DateOfBirth)
	}
	if patient.RegisteredBy != providerPhone {
		t.Errorf("registered by = %q, want %s", patient.RegisteredBy, providerPhone)
	}

	// Draft is cleared and the workflow moved on to record capture.
	session := d.session(t)
	if session.PatientDraft != nil {
		t.Error("expected patient draft to be cleared")
	}
	if session.CurrentStep != models.StepChiefComplaint {
		t.Errorf("step = %q, want chief_complaint", session.CurrentStep)
	}
}

func TestRegistrationDuplicatePhoneRestartsLookup(t *testing.T) {
	env := newTestEnv(t)
	env.seedProvider(t)
	d := newDialer(env, "sess1")
	d.login(t)

	d.send("2")
	d.send("0201234567")
	d.send("1")
	d.send("Ama Owusu")
	d.send("0")
	d.send("2")

	// Someone else registers the number while the draft sits on the
	// confirmation screen.
	if _, err := env.records.CreatePatient(models.PatientRegistration{
		Name:  "Ama Owusu",
		Phone: "0201234567",
	}); err != nil {
		t.Fatalf("CreatePatient returned error: %v", err)
	}

	reply := d.send("1")
	if !strings.Contains(reply, "already registered") || !strings.Contains(reply, "phone number") {
		t.Fatalf("expected restart-at-phone prompt, got %q", reply)
	}

	session := d.session(t)
	if session.CurrentStep != models.StepPatientPhone {
		t.Errorf("step = %q, want patient_phone", session.CurrentStep)
	}
	if session.PatientDraft != nil {
		t.Error("expected stale draft to be cleared")
	}

	// Re-entering the number now selects the existing patient instead
	// of resubmitting the doomed registration.
	reply = d.send("0201234567")
	if !strings.Contains(reply, "chief complaint") {
		t.Fatalf("expected existing patient selected, got %q", reply)
	}
	if session = d.session(t); session.Patient == nil || session.Patient.Name != "Ama Owusu" {
		t.Errorf("expected existing patient on session, got %+v", session.Patient)
	}
}

func TestFullRecordCaptureFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seedProvider(t)
	env.seedPatient(t, "Akosua Boateng", "0201111111")

	d := newDialer(env, "sess1")
	d.login(t)

	d.send("1")            // find patient
	d.send("1")            // by phone
	reply := d.send("0201111111")
	if !strings.Contains(reply, "Patient found") || !strings.Contains(reply, "chief complaint") {
		t.Fatalf("expected patient found, got %q", reply)
	}

	reply = d.send("Fever and chills")
	if !strings.Contains(reply, "history") {
		t.Fatalf("expected history prompt, got %q", reply)
	}
	reply = d.send("0") // skip history
	if !strings.Contains(reply, "examination") {
		t.Fatalf("expected examination prompt, got %q", reply)
	}
	reply = d.send("0") // skip examination
	if !strings.Contains(reply, "diagnosis") {
		t.Fatalf("expected diagnosis prompt, got %q", reply)
	}
	reply = d.send("Malaria")
	if !strings.Contains(reply, "treatment") {
		t.Fatalf("expected treatment prompt, got %q", reply)
	}
	reply = d.send("Antimalarials")
	if !strings.Contains(reply, "prescription") {
		t.Fatalf("expected prescription prompt, got %q", reply)
	}
	reply = d.send("ACT for 3 days")
	if !strings.Contains(reply, "follow-up") {
		t.Fatalf("expected follow-up prompt, got %q", reply)
	}
	reply = d.send("0") // skip follow-up
	if !strings.Contains(reply, "Review record") || !strings.Contains(reply, "Diagnosis: Malaria") {
		t.Fatalf("expected review screen, got %q", reply)
	}

	reply = d.send("1")
	if !strings.HasPrefix(reply, "END ") || !strings.Contains(reply, "record saved") {
		t.Fatalf("expected save confirmation, got %q", reply)
	}

	records, err := env.records.GetRecentRecords(10)
	if err != nil {
		t.Fatalf("GetRecentRecords returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	record := records[0]
	if record.Diagnosis != "Malaria" {
		t.Errorf("diagnosis = %q, want Malaria", record.Diagnosis)
	}
	if record.Treatment != "Antimalarials" {
		t.Errorf("treatment = %q, want Antimalarials", record.Treatment)
	}
	if record.History != "" || record.FollowUp != "" {
		t.Errorf("skipped fields not empty: history=%q follow_up=%q", record.History, record.FollowUp)
	}
	if record.Patient.Name != "Akosua Boateng" {
		t.Errorf("embedded patient = %q, want Akosua Boateng", record.Patient.Name)
	}

	// Workflow state is cleared and the session ends as completed.
	session := d.session(t)
	if session.RecordDraft != nil || session.Patient != nil {
		t.Error("expected drafts and patient binding to be cleared")
	}
	if session.CurrentStep != models.StepNone {
		t.Errorf("step = %q, want none", session.CurrentStep)
	}
	if session.EndReason != models.EndReasonCompleted {
		t.Errorf("end reason = %q, want completed", session.EndReason)
	}
}

func TestNameSearchSingleMatchAutoAdvances(t *testing.T) {
	env := newTestEnv(t)
	env.seedProvider(t)
	env.seedPatient(t, "Akosua Boateng", "0201111111")
	env.seedPatient(t, "Yaw Owusu", "0202222222")

	d := newDialer(env, "sess1")
	d.login(t)

	d.send("1") // find patient
	d.send("2") // by name
	reply := d.send("Akosua")
	if !strings.Contains(reply, "Patient selected") || !strings.Contains(reply, "chief complaint") {
		t.Fatalf("expected auto-advance to complaint, got %q", reply)
	}

	session := d.session(t)
	if session.CurrentStep != models.StepChiefComplaint {
		t.Errorf("step = %q, want chief_complaint", session.CurrentStep)
	}
	if session.Patient == nil || session.Patient.Name != "Akosua Boateng" {
		t.Errorf("patient = %+v, want Akosua Boateng", session.Patient)
	}
}

func TestNameSearchMultipleMatches(t *testing.T) {
	env := newTestEnv(t)
	env.seedProvider(t)
	env.seedPatient(t, "Akosua Boateng", "0201111111")
	env.seedPatient(t, "Akosua Mensah", "0202222222")

	d := newDialer(env, "sess1")
	d.login(t)

	d.send("1")
	d.send("2")
	reply := d.send("Akosua")
	if !strings.Contains(reply, "Select patient") || !strings.Contains(reply, "2.") {
		t.Fatalf("expected selection list, got %q", reply)
	}

	reply = d.send("2")
	if !strings.Contains(reply, "Patient selected") {
		t.Fatalf("expected selection, got %q", reply)
	}

	session := d.session(t)
	if session.Patient == nil {
		t.Fatal("expected a patient bound to the session")
	}
	if session.SearchResults != nil {
		t.Error("expected search results to be cleared after selection")
	}
}

func TestNameSearchCapsResults(t *testing.T) {
	env := newTestEnv(t)
	env.seedProvider(t)
	for i := 0; i < 10; i++ {
		env.seedPatient(t, fmt.Sprintf("Kofi Patient %d", i), fmt.Sprintf("020%07d", i))
	}

	d := newDialer(env, "sess1")
	d.login(t)

	d.send("1")
	d.send("2")
	d.send("Kofi")

	session := d.session(t)
	if len(session.SearchResults) != maxSearchResults {
		t.Errorf("stored results = %d, want %d", len(session.SearchResults), maxSearchResults)
	}
}

func TestNameSearchNoMatchesOffersOptions(t *testing.T) {
	env := newTestEnv(t)
	env.seedProvider(t)

	d := newDialer(env, "sess1")
	d.login(t)

	d.send("1")
	d.send("2")
	reply := d.send("Nobody")
	if !strings.Contains(reply, "No patients match") {
		t.Fatalf("expected no-match options, got %q", reply)
	}

	reply = d.send("1")
	if !strings.Contains(reply, "Enter patient name to search") {
		t.Errorf("expected retry prompt, got %q", reply)
	}
}

func TestEditDiagnosisReturnsToReview(t *testing.T) {
	env := newTestEnv(t)
	env.seedProvider(t)
	env.seedPatient(t, "Akosua Boateng", "0201111111")

	d := newDialer(env, "sess1")
	d.login(t)

	d.send("1")
	d.send("1")
	d.send("0201111111")
	d.send("Fever and chills")
	d.send("0")
	d.send("0")
	d.send("Malaria")
	d.send("0")
	d.send("0")
	d.send("0") // review

	reply := d.send("2")
	if !strings.Contains(reply, "Edit which field") {
		t.Fatalf("expected edit menu, got %q", reply)
	}
	reply = d.send("2")
	if !strings.Contains(reply, "Enter new diagnosis") {
		t.Fatalf("expected diagnosis prompt, got %q", reply)
	}

	// The edit drops straight back to the review screen.
	reply = d.send("Typhoid")
	if !strings.Contains(reply, "Review record") || !strings.Contains(reply, "Diagnosis: Typhoid") {
		t.Fatalf("expected updated review, got %q", reply)
	}

	reply = d.send("1")
	if !strings.Contains(reply, "record saved") {
		t.Fatalf("expected save, got %q", reply)
	}

	records, err := env.records.GetRecentRecords(10)
	if err != nil {
		t.Fatalf("GetRecentRecords returned error: %v", err)
	}
	if len(records) != 1 || records[0].Diagnosis != "Typhoid" {
		t.Errorf("saved diagnosis = %q, want Typhoid", records[0].Diagnosis)
	}
}

func TestCancelClearsWorkflowState(t *testing.T) {
	env := newTestEnv(t)
	env.seedProvider(t)
	env.seedPatient(t, "Akosua Boateng", "0201111111")

	d := newDialer(env, "sess1")
	d.login(t)

	d.send("1")
	d.send("1")
	d.send("0201111111")
	d.send("Fever and chills")
	d.send("0")
	d.send("0")
	d.send("Malaria")
	d.send("0")
	d.send("0")
	d.send("0") // review

	reply := d.send("3")
	if !strings.Contains(reply, "Record cancelled") || !strings.Contains(reply, "Welcome") {
		t.Fatalf("expected cancel back to provider menu, got %q", reply)
	}

	session := d.session(t)
	if session.CurrentStep != models.StepNone {
		t.Errorf("step = %q, want none", session.CurrentStep)
	}
	if session.RecordDraft != nil || session.PatientDraft != nil || session.Patient != nil {
		t.Error("expected all drafts and the patient binding to be cleared")
	}
	if session.State != models.SessionActive {
		t.Errorf("state = %q, want active after cancel", session.State)
	}

	// Nothing was persisted.
	records, err := env.records.GetRecentRecords(10)
	if err != nil {
		t.Fatalf("GetRecentRecords returned error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %d, want 0", len(records))
	}
}

func TestWorkflowInputValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seedProvider(t)
	env.seedPatient(t, "Akosua Boateng", "0201111111")

	d := newDialer(env, "sess1")
	d.login(t)

	d.send("1")
	d.send("1")
	reply := d.send("banana")
	if !strings.Contains(reply, "Invalid phone number format") {
		t.Fatalf("expected phone rejection, got %q", reply)
	}

	d.send("0201111111")
	reply = d.send("ab")
	if !strings.Contains(reply, "too short") {
		t.Fatalf("expected complaint rejection, got %q", reply)
	}

	// Rejection does not advance the step.
	session := d.session(t)
	if session.CurrentStep != models.StepChiefComplaint {
		t.Errorf("step = %q, want chief_complaint", session.CurrentStep)
	}

	d.send("Fever and chills")
	d.send("0")
	d.send("0")
	reply = d.send("x")
	if !strings.Contains(reply, "Diagnosis required") {
		t.Fatalf("expected diagnosis rejection, got %q", reply)
	}
}

func TestDobValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seedProvider(t)

	d := newDialer(env, "sess1")
	d.login(t)

	d.send("2")
	d.send("0201234567")
	d.send("1")
	d.send("Ama Owusu")

	reply := d.send("31-01-2000")
	if !strings.Contains(reply, "Invalid date format") {
		t.Fatalf("expected date rejection, got %q", reply)
	}
	reply = d.send("31/01/2000")
	if !strings.Contains(reply, "Select gender") {
		t.Fatalf("expected gender menu, got %q", reply)
	}

	reply = d.send("5")
	if !strings.Contains(reply, "Invalid choice") {
		t.Fatalf("expected gender rejection, got %q", reply)
	}
}
