package services

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/afya-ehr/afya-backend/internal/models"
	"github.com/afya-ehr/afya-backend/internal/storage"
	"github.com/afya-ehr/afya-backend/internal/utils"
)

// maxSearchResults caps the patient list a USSD screen can show
const maxSearchResults = 8

var dobPattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)

// MedicalMenu drives the guided patient-lookup, registration and
// record-capture workflow. Each step handler consumes exactly the last
// input token, computes the next state as a patch, persists it and
// returns the reply for this turn.
type MedicalMenu struct {
	sessions *SessionManager
	records  *RecordService
}

func NewMedicalMenu(sessions *SessionManager, records *RecordService) *MedicalMenu {
	return &MedicalMenu{sessions: sessions, records: records}
}

// StartPatientLookup opens the lookup menu for an authenticated provider.
func (m *MedicalMenu) StartPatientLookup(session *models.Session) string {
	step := models.StepPatientLookup
	return m.apply(session, storage.SessionPatch{CurrentStep: &step}, lookupMenuText())
}

// StartRegistration begins new-patient registration. The phone number
// is collected first so the draft always carries one.
func (m *MedicalMenu) StartRegistration(session *models.Session) string {
	step := models.StepPatientPhone
	return m.apply(session, storage.SessionPatch{CurrentStep: &step},
		"CON New Patient Registration\n\nEnter patient phone number (0XXXXXXXXX):")
}

// Continue advances an active workflow by one input token.
func (m *MedicalMenu) Continue(session *models.Session, input string) string {
	input = strings.TrimSpace(input)

	switch session.CurrentStep {
	case models.StepPatientLookup:
		return m.handleLookupMenu(session, input)
	case models.StepPatientPhone:
		return m.handlePatientPhone(session, input)
	case models.StepPatientNotFound:
		return m.handlePatientNotFound(session, input)
	case models.StepPatientSearch:
		return m.handlePatientSearch(session, input)
	case models.StepSearchNoMatch:
		return m.handleSearchNoMatch(session, input)
	case models.StepPatientSelection:
		return m.handlePatientSelection(session, input)
	case models.StepNewPatientName:
		return m.handleNewPatientName(session, input)
	case models.StepNewPatientDob:
		return m.handleNewPatientDob(session, input)
	case models.StepNewPatientGender:
		return m.handleNewPatientGender(session, input)
	case models.StepNewPatientConfirm:
		return m.handleNewPatientConfirm(session, input)
	case models.StepChiefComplaint:
		return m.handleChiefComplaint(session, input)
	case models.StepHistory:
		return m.handleFreeTextField(session, input, models.StepExamination,
			"CON Enter physical examination findings (or 0 to skip):",
			func(d *models.RecordDraft, v string) { d.History = v })
	case models.StepExamination:
		return m.handleFreeTextField(session, input, models.StepDiagnosis,
			"CON Enter diagnosis:",
			func(d *models.RecordDraft, v string) { d.PhysicalExamination = v })
	case models.StepDiagnosis:
		return m.handleDiagnosis(session, input)
	case models.StepTreatment:
		return m.handleFreeTextField(session, input, models.StepPrescription,
			"CON Enter prescription (or 0 to skip):",
			func(d *models.RecordDraft, v string) { d.Treatment = v })
	case models.StepPrescription:
		return m.handleFreeTextField(session, input, models.StepFollowUp,
			"CON Enter follow-up instructions (or 0 to skip):",
			func(d *models.RecordDraft, v string) { d.Prescription = v })
	case models.StepFollowUp:
		return m.handleFollowUp(session, input)
	case models.StepRecordConfirm:
		return m.handleRecordConfirm(session, input)
	case models.StepEditMenu:
		return m.handleEditMenu(session, input)
	case models.StepEditComplaint:
		return m.handleEditField(session, input, 3, "CON Chief complaint too short. Enter new chief complaint:",
			func(d *models.RecordDraft, v string) { d.ChiefComplaint = v })
	case models.StepEditDiagnosis:
		return m.handleEditField(session, input, 2, "CON Diagnosis required. Enter new diagnosis:",
			func(d *models.RecordDraft, v string) { d.Diagnosis = v })
	case models.StepEditTreatment:
		return m.handleEditField(session, input, 0, "",
			func(d *models.RecordDraft, v string) { d.Treatment = v })
	case models.StepEditPrescription:
		return m.handleEditField(session, input, 0, "",
			func(d *models.RecordDraft, v string) { d.Prescription = v })
	default:
		return m.backToProviderMenu(session)
	}
}

// apply persists a patch and returns the reply, degrading to a
// terminal message when the session vanished underneath us.
func (m *MedicalMenu) apply(session *models.Session, patch storage.SessionPatch, reply string) string {
	if _, err := m.sessions.UpdateSession(session.SessionID, patch); err != nil {
		log.Printf("Failed to update session %s: %v", session.SessionID, err)
		return "END Session expired. Please dial again."
	}
	return reply
}

// ---- Lookup ----

func (m *MedicalMenu) handleLookupMenu(session *models.Session, input string) string {
	switch input {
	case "1":
		step := models.StepPatientPhone
		return m.apply(session, storage.SessionPatch{CurrentStep: &step},
			"CON Enter patient phone number (0XXXXXXXXX):")
	case "2":
		step := models.StepPatientSearch
		return m.apply(session, storage.SessionPatch{CurrentStep: &step},
			"CON Enter patient name to search:")
	case "3":
		return m.StartRegistration(session)
	case "4":
		return m.backToProviderMenu(session)
	default:
		return "CON Invalid choice.\n\n" + strings.TrimPrefix(lookupMenuText(), "CON ")
	}
}

func (m *MedicalMenu) handlePatientPhone(session *models.Session, input string) string {
	phone, err := utils.ValidateGhanaPhone(input)
	if err != nil {
		return "CON Invalid phone number format.\n\nEnter patient phone number (0XXXXXXXXX):"
	}

	patient, err := m.records.GetPatientByPhone(phone)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			step := models.StepPatientNotFound
			draft := &models.PatientDraft{Phone: phone}
			return m.apply(session, storage.SessionPatch{CurrentStep: &step, PatientDraft: draft},
				fmt.Sprintf("CON No patient found for %s.\n\n1. Register as new patient\n2. Try different number\n3. Back to menu", phone))
		}
		log.Printf("Patient lookup failed for %s: %v", phone, err)
		return "END Service temporarily unavailable. Please try again later."
	}

	summary := patient.Summary()
	if err := m.sessions.SetPatient(session.SessionID, summary); err != nil {
		return "END Session expired. Please dial again."
	}
	step := models.StepChiefComplaint
	return m.apply(session, storage.SessionPatch{CurrentStep: &step},
		fmt.Sprintf("CON Patient found:\n\nName: %s\nPhone: %s\nGender: %s\n\nEnter chief complaint:",
			patient.Name, patient.Phone, orDash(patient.Gender)))
}

func (m *MedicalMenu) handlePatientNotFound(session *models.Session, input string) string {
	switch input {
	case "1":
		step := models.StepNewPatientName
		return m.apply(session, storage.SessionPatch{CurrentStep: &step},
			"CON New Patient Registration\n\nEnter patient full name:")
	case "2":
		step := models.StepPatientPhone
		return m.apply(session, storage.SessionPatch{CurrentStep: &step, ClearPatientDraft: true},
			"CON Enter patient phone number (0XXXXXXXXX):")
	case "3":
		step := models.StepPatientLookup
		return m.apply(session, storage.SessionPatch{CurrentStep: &step, ClearPatientDraft: true},
			lookupMenuText())
	default:
		return "CON Invalid choice.\n\n1. Register as new patient\n2. Try different number\n3. Back to menu"
	}
}

// ---- Name search ----

func (m *MedicalMenu) handlePatientSearch(session *models.Session, input string) string {
	if len(input) < 2 {
		return "CON Search term too short.\n\nEnter patient name to search:"
	}

	results, err := m.records.SearchPatients(input)
	if err != nil {
		log.Printf("Patient search failed for %q: %v", input, err)
		return "END Service temporarily unavailable. Please try again later."
	}

	if len(results) == 0 {
		step := models.StepSearchNoMatch
		return m.apply(session, storage.SessionPatch{CurrentStep: &step},
			fmt.Sprintf("CON No patients match '%s'.\n\n1. Try different name\n2. Search by phone\n3. Register new patient\n4. Back to menu", input))
	}

	// A single hit is selected without an extra confirmation screen.
	if len(results) == 1 {
		return m.selectPatient(session, results[0])
	}

	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}

	var b strings.Builder
	b.WriteString("CON Select patient:\n\n")
	for i, p := range results {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, p.Name, p.Phone)
	}
	b.WriteString("\n9. Search again\n0. Back to menu")

	step := models.StepPatientSelection
	return m.apply(session, storage.SessionPatch{CurrentStep: &step, SearchResults: results}, b.String())
}

func (m *MedicalMenu) handleSearchNoMatch(session *models.Session, input string) string {
	switch input {
	case "1":
		step := models.StepPatientSearch
		return m.apply(session, storage.SessionPatch{CurrentStep: &step},
			"CON Enter patient name to search:")
	case "2":
		step := models.StepPatientPhone
		return m.apply(session, storage.SessionPatch{CurrentStep: &step},
			"CON Enter patient phone number (0XXXXXXXXX):")
	case "3":
		return m.StartRegistration(session)
	case "4":
		step := models.StepPatientLookup
		return m.apply(session, storage.SessionPatch{CurrentStep: &step}, lookupMenuText())
	default:
		return "CON Invalid choice.\n\n1. Try different name\n2. Search by phone\n3. Register new patient\n4. Back to menu"
	}
}

func (m *MedicalMenu) handlePatientSelection(session *models.Session, input string) string {
	switch input {
	case "9":
		step := models.StepPatientSearch
		return m.apply(session, storage.SessionPatch{CurrentStep: &step, ClearSearchResults: true},
			"CON Enter patient name to search:")
	case "0":
		step := models.StepPatientLookup
		return m.apply(session, storage.SessionPatch{CurrentStep: &step, ClearSearchResults: true},
			lookupMenuText())
	}

	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > len(session.SearchResults) {
		return fmt.Sprintf("CON Invalid selection. Enter 1-%d, 9 to search again or 0 for menu:", len(session.SearchResults))
	}
	return m.selectPatient(session, session.SearchResults[n-1])
}

func (m *MedicalMenu) selectPatient(session *models.Session, patient models.PatientSummary) string {
	if err := m.sessions.SetPatient(session.SessionID, patient); err != nil {
		return "END Session expired. Please dial again."
	}
	step := models.StepChiefComplaint
	return m.apply(session, storage.SessionPatch{CurrentStep: &step, ClearSearchResults: true},
		fmt.Sprintf("CON Patient selected:\n\nName: %s\nPhone: %s\n\nEnter chief complaint:", patient.Name, patient.Phone))
}

// ---- New patient registration ----

func (m *MedicalMenu) handleNewPatientName(session *models.Session, input string) string {
	if len(input) < 2 {
		return "CON Name too short.\n\nEnter patient full name:"
	}

	draft := draftCopy(session.PatientDraft)
	draft.Name = input
	step := models.StepNewPatientDob
	return m.apply(session, storage.SessionPatch{CurrentStep: &step, PatientDraft: &draft},
		"CON Enter date of birth (DD/MM/YYYY) or 0 to skip:")
}

func (m *MedicalMenu) handleNewPatientDob(session *models.Session, input string) string {
	draft := draftCopy(session.PatientDraft)
	if input == "0" {
		draft.DateOfBirth = ""
	} else if dobPattern.MatchString(input) {
		draft.DateOfBirth = input
	} else {
		return "CON Invalid date format.\n\nEnter date of birth (DD/MM/YYYY) or 0 to skip:"
	}

	step := models.StepNewPatientGender
	return m.apply(session, storage.SessionPatch{CurrentStep: &step, PatientDraft: &draft},
		"CON Select gender:\n\n1. Male\n2. Female\n3. Other\n4. Skip")
}

func (m *MedicalMenu) handleNewPatientGender(session *models.Session, input string) string {
	var gender string
	switch input {
	case "1":
		gender = "Male"
	case "2":
		gender = "Female"
	case "3":
		gender = "Other"
	case "4":
		gender = ""
	default:
		return "CON Invalid choice.\n\nSelect gender:\n\n1. Male\n2. Female\n3. Other\n4. Skip"
	}

	draft := draftCopy(session.PatientDraft)
	draft.Gender = gender
	step := models.StepNewPatientConfirm
	return m.apply(session, storage.SessionPatch{CurrentStep: &step, PatientDraft: &draft},
		fmt.Sprintf("CON Confirm new patient:\n\nName: %s\nPhone: %s\nDOB: %s\nGender: %s\n\n1. Register\n2. Cancel",
			draft.Name, draft.Phone, orDash(draft.DateOfBirth), orDash(draft.Gender)))
}

func (m *MedicalMenu) handleNewPatientConfirm(session *models.Session, input string) string {
	switch input {
	case "1":
		if allowed, reason := m.sessions.CheckPermission(session.SessionID, "create_patient"); !allowed {
			return "END " + reason
		}
		draft := draftCopy(session.PatientDraft)
		reg := models.PatientRegistration{
			Name:         draft.Name,
			Phone:        draft.Phone,
			DateOfBirth:  draft.DateOfBirth,
			Gender:       draft.Gender,
			RegisteredBy: session.PhoneNumber,
		}
		patient, err := m.records.CreatePatient(reg)
		if err != nil {
			if errors.Is(err, ErrDuplicatePhone) {
				// Resubmitting the same draft would fail forever, so
				// restart from phone entry where the existing patient
				// gets picked up by the lookup.
				step := models.StepPatientPhone
				return m.apply(session, storage.SessionPatch{CurrentStep: &step, ClearPatientDraft: true},
					"CON This phone number is already registered.\n\nEnter patient's phone number:")
			}
			log.Printf("Patient registration failed: %v", err)
			return "CON Registration failed. Please check the details.\n\n1. Try again\n2. Cancel"
		}

		if err := m.sessions.SetPatient(session.SessionID, patient.Summary()); err != nil {
			return "END Session expired. Please dial again."
		}
		step := models.StepChiefComplaint
		return m.apply(session, storage.SessionPatch{CurrentStep: &step, ClearPatientDraft: true},
			fmt.Sprintf("CON Patient registered!\n\nName: %s\nID: %s\n\nEnter chief complaint:",
				patient.Name, shortID(patient.PatientID)))
	case "2":
		step := models.StepPatientLookup
		return m.apply(session, storage.SessionPatch{CurrentStep: &step, ClearPatientDraft: true},
			lookupMenuText())
	default:
		return "CON Invalid choice.\n\n1. Register\n2. Cancel"
	}
}

// ---- Record capture ----

func (m *MedicalMenu) handleChiefComplaint(session *models.Session, input string) string {
	if len(input) < 3 {
		return "CON Chief complaint too short.\n\nEnter patient's main concern:"
	}

	draft := recordDraftCopy(session.RecordDraft)
	draft.ChiefComplaint = input
	step := models.StepHistory
	return m.apply(session, storage.SessionPatch{CurrentStep: &step, RecordDraft: &draft},
		"CON Enter history of present illness (or 0 to skip):")
}

// handleFreeTextField covers the optional fields: 0 skips, anything
// else is recorded verbatim.
func (m *MedicalMenu) handleFreeTextField(session *models.Session, input string, next models.WorkflowStep, prompt string, set func(*models.RecordDraft, string)) string {
	value := input
	if input == "0" {
		value = ""
	}

	draft := recordDraftCopy(session.RecordDraft)
	set(&draft, value)
	return m.apply(session, storage.SessionPatch{CurrentStep: &next, RecordDraft: &draft}, prompt)
}

func (m *MedicalMenu) handleDiagnosis(session *models.Session, input string) string {
	if len(input) < 2 {
		return "CON Diagnosis required.\n\nEnter diagnosis:"
	}

	draft := recordDraftCopy(session.RecordDraft)
	draft.Diagnosis = input
	step := models.StepTreatment
	return m.apply(session, storage.SessionPatch{CurrentStep: &step, RecordDraft: &draft},
		"CON Enter treatment plan (or 0 to skip):")
}

func (m *MedicalMenu) handleFollowUp(session *models.Session, input string) string {
	value := input
	if input == "0" {
		value = ""
	}

	draft := recordDraftCopy(session.RecordDraft)
	draft.FollowUp = value
	step := models.StepRecordConfirm
	return m.apply(session, storage.SessionPatch{CurrentStep: &step, RecordDraft: &draft},
		reviewText(session.Patient, &draft))
}

func (m *MedicalMenu) handleRecordConfirm(session *models.Session, input string) string {
	switch input {
	case "1":
		return m.saveRecord(session)
	case "2":
		step := models.StepEditMenu
		return m.apply(session, storage.SessionPatch{CurrentStep: &step},
			"CON Edit which field?\n\n1. Chief complaint\n2. Diagnosis\n3. Treatment\n4. Prescription")
	case "3":
		step := models.StepNone
		reply := m.apply(session, storage.SessionPatch{
			CurrentStep:       &step,
			ClearPatient:      true,
			ClearPatientDraft: true,
			ClearRecordDraft:  true,
		}, providerMenuText(session.Provider))
		if !strings.HasPrefix(reply, "CON ") {
			return reply
		}
		return "CON Record cancelled.\n\n" + strings.TrimPrefix(reply, "CON ")
	default:
		return "CON Invalid choice.\n\n1. Save record\n2. Edit\n3. Cancel"
	}
}

func (m *MedicalMenu) saveRecord(session *models.Session) string {
	if allowed, reason := m.sessions.CheckPermission(session.SessionID, "create_medical_record"); !allowed {
		return "END " + reason
	}
	if session.Patient == nil || session.RecordDraft == nil {
		return "END Session state lost. Please dial again."
	}

	draft := session.RecordDraft
	input := models.MedicalRecordInput{
		PatientID:           session.Patient.ID,
		ProviderID:          session.Provider.ID,
		FacilityID:          session.Provider.FacilityID,
		ChiefComplaint:      draft.ChiefComplaint,
		History:             draft.History,
		PhysicalExamination: draft.PhysicalExamination,
		Diagnosis:           draft.Diagnosis,
		Treatment:           draft.Treatment,
		Prescription:        draft.Prescription,
		FollowUp:            draft.FollowUp,
	}

	record, err := m.records.CreateMedicalRecord(input)
	if err != nil {
		log.Printf("Record save failed for session %s: %v", session.SessionID, err)
		step := models.StepNone
		m.apply(session, storage.SessionPatch{
			CurrentStep:       &step,
			ClearPatient:      true,
			ClearPatientDraft: true,
			ClearRecordDraft:  true,
		}, "")
		return "END Failed to save record. Please dial again and retry."
	}

	step := models.StepNone
	reply := m.apply(session, storage.SessionPatch{
		CurrentStep:       &step,
		ClearPatient:      true,
		ClearPatientDraft: true,
		ClearRecordDraft:  true,
	}, fmt.Sprintf("END Medical record saved!\n\nRecord ID: %s\nPatient: %s\nDiagnosis: %s",
		shortID(record.RecordID), record.Patient.Name, record.Diagnosis))

	if strings.HasPrefix(reply, "END") {
		if err := m.sessions.EndSession(session.SessionID, models.EndReasonCompleted); err != nil {
			log.Printf("Failed to end session %s: %v", session.SessionID, err)
		}
	}
	return reply
}

// ---- Edit loop ----

func (m *MedicalMenu) handleEditMenu(session *models.Session, input string) string {
	var step models.WorkflowStep
	var prompt string
	switch input {
	case "1":
		step, prompt = models.StepEditComplaint, "CON Enter new chief complaint:"
	case "2":
		step, prompt = models.StepEditDiagnosis, "CON Enter new diagnosis:"
	case "3":
		step, prompt = models.StepEditTreatment, "CON Enter new treatment plan (or 0 to clear):"
	case "4":
		step, prompt = models.StepEditPrescription, "CON Enter new prescription (or 0 to clear):"
	default:
		return "CON Invalid choice.\n\n1. Chief complaint\n2. Diagnosis\n3. Treatment\n4. Prescription"
	}
	return m.apply(session, storage.SessionPatch{CurrentStep: &step}, prompt)
}

// handleEditField updates one draft field and drops straight back to
// the review screen.
func (m *MedicalMenu) handleEditField(session *models.Session, input string, minLen int, tooShort string, set func(*models.RecordDraft, string)) string {
	value := input
	if minLen == 0 && input == "0" {
		value = ""
	}
	if len(value) < minLen {
		return tooShort
	}

	draft := recordDraftCopy(session.RecordDraft)
	set(&draft, value)
	step := models.StepRecordConfirm
	return m.apply(session, storage.SessionPatch{CurrentStep: &step, RecordDraft: &draft},
		reviewText(session.Patient, &draft))
}

// ---- Shared ----

func (m *MedicalMenu) backToProviderMenu(session *models.Session) string {
	step := models.StepNone
	return m.apply(session, storage.SessionPatch{
		CurrentStep:        &step,
		ClearPatient:       true,
		ClearPatientDraft:  true,
		ClearRecordDraft:   true,
		ClearSearchResults: true,
	}, providerMenuText(session.Provider))
}

func lookupMenuText() string {
	return "CON Patient Lookup\n\n1. Search by phone\n2. Search by name\n3. Register new patient\n4. Back to menu"
}

func providerMenuText(provider *models.ProviderSummary) string {
	name := "Provider"
	if provider != nil {
		name = provider.Name
	}
	return fmt.Sprintf("CON Welcome %s\n\n1. Find patient\n2. Register new patient\n3. Create medical record\n4. My recent records\n5. My profile\n6. Logout", name)
}

func reviewText(patient *models.PatientSummary, draft *models.RecordDraft) string {
	name := "-"
	if patient != nil {
		name = patient.Name
	}
	return fmt.Sprintf("CON Review record:\n\nPatient: %s\nComplaint: %s\nDiagnosis: %s\nTreatment: %s\nPrescription: %s\n\n1. Save record\n2. Edit\n3. Cancel",
		name, draft.ChiefComplaint, draft.Diagnosis, orDash(draft.Treatment), orDash(draft.Prescription))
}

func draftCopy(d *models.PatientDraft) models.PatientDraft {
	if d == nil {
		return models.PatientDraft{}
	}
	return *d
}

func recordDraftCopy(d *models.RecordDraft) models.RecordDraft {
	if d == nil {
		return models.RecordDraft{}
	}
	return *d
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
