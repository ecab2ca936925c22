package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/afya-ehr/afya-backend/internal/models"
	"github.com/afya-ehr/afya-backend/internal/utils"
)

// ussdPayloadLimit is the byte ceiling most gateways apply to one
// USSD screen. Enforcement is opt-in via USSD_ENFORCE_LIMIT.
const ussdPayloadLimit = 182

// UssdService routes incoming USSD turns. The gateway resends the full
// *-joined input trail on every turn; routing consumes the first token
// to pick a branch and the last token as the answer to the current
// prompt.
type UssdService struct {
	sessions     *SessionManager
	records      *RecordService
	menu         *MedicalMenu
	audit        *AuditService
	enforceLimit bool
}

func NewUssdService(sessions *SessionManager, records *RecordService, menu *MedicalMenu, audit *AuditService) *UssdService {
	return &UssdService{
		sessions:     sessions,
		records:      records,
		menu:         menu,
		audit:        audit,
		enforceLimit: os.Getenv("USSD_ENFORCE_LIMIT") == "true",
	}
}

// HandleRequest processes one USSD turn and returns the full reply,
// prefixed CON to keep the session open or END to terminate it.
func (u *UssdService) HandleRequest(sessionID, serviceCode, phoneNumber, text string) string {
	session, err := u.sessions.GetSession(sessionID)
	if err != nil {
		// Expired or unknown sessions start over as a fresh dial.
		session, err = u.sessions.CreateSession(sessionID, phoneNumber, serviceCode)
		if err != nil {
			if errors.Is(err, utils.ErrInvalidPhone) {
				return "END Invalid phone number."
			}
			log.Printf("Failed to create session %s: %v", sessionID, err)
			return "END Service temporarily unavailable. Please try again later."
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return u.respond(sessionID, mainMenuText())
	}

	parts := strings.Split(text, "*")
	last := strings.TrimSpace(parts[len(parts)-1])

	if err := u.sessions.AddUserInput(sessionID, last); err != nil {
		log.Printf("Failed to record input for %s: %v", sessionID, err)
	}

	var reply string
	switch parts[0] {
	case "1":
		reply = u.handleProviderFlow(session, parts, last)
	case "2":
		reply = u.handlePatientFlow(session, parts, last)
	case "3":
		reply = u.handleEmergencyFlow(session, parts, last)
	case "4":
		reply = u.handleSystemInfo(parts, last)
	default:
		reply = "CON Invalid choice.\n\n" + strings.TrimPrefix(mainMenuText(), "CON ")
	}

	return u.respond(sessionID, reply)
}

// respond finalizes a reply: END terminates the stored session, and
// the payload is clamped to the gateway ceiling when enforcement is on.
func (u *UssdService) respond(sessionID, reply string) string {
	if strings.HasPrefix(reply, "END") {
		// No-op when a branch already ended it with a specific reason.
		if err := u.sessions.EndSession(sessionID, models.EndReasonCompleted); err != nil && !errors.Is(err, ErrSessionNotFound) {
			log.Printf("Failed to end session %s: %v", sessionID, err)
		}
	}
	if u.enforceLimit && len(reply) > ussdPayloadLimit {
		reply = reply[:ussdPayloadLimit]
	}
	return reply
}

// ---- Provider branch ----

func (u *UssdService) handleProviderFlow(session *models.Session, parts []string, last string) string {
	// An active workflow owns the turn regardless of menu position.
	if session.CurrentStep != models.StepNone && session.Provider != nil {
		return u.menu.Continue(session, last)
	}

	if !session.Authenticated {
		if len(parts) == 1 {
			return "CON Healthcare Provider Login\n\nEnter your 4-digit PIN:"
		}
		return u.handleProviderAuth(session, last)
	}

	switch last {
	case "1":
		return u.menu.StartPatientLookup(session)
	case "2":
		return u.menu.StartRegistration(session)
	case "3":
		// Record creation starts by finding the patient.
		return u.menu.StartPatientLookup(session)
	case "4":
		return u.recentRecords(session)
	case "5":
		return u.providerProfile(session)
	case "6":
		if err := u.sessions.EndSession(session.SessionID, models.EndReasonLogout); err != nil {
			log.Printf("Failed to end session %s: %v", session.SessionID, err)
		}
		return "END You have been logged out. Thank you."
	default:
		return "CON Invalid choice.\n\n" + strings.TrimPrefix(providerMenuText(session.Provider), "CON ")
	}
}

func (u *UssdService) handleProviderAuth(session *models.Session, pin string) string {
	fail := func(message string) string {
		attempts, err := u.sessions.IncrementAttempts(session.SessionID)
		if err != nil {
			return "END Session expired. Please dial again."
		}
		if attempts >= MaxAuthAttempts {
			if err := u.sessions.EndSession(session.SessionID, models.EndReasonMaxAttempts); err != nil {
				log.Printf("Failed to end session %s: %v", session.SessionID, err)
			}
			return "END Too many failed attempts. Access blocked."
		}
		return fmt.Sprintf("CON %s Attempt %d of %d.\n\nEnter your 4-digit PIN:", message, attempts, MaxAuthAttempts)
	}

	if !utils.IsValidPIN(pin) {
		return fail("PIN must be 4 digits.")
	}

	provider, err := u.records.AuthenticateProvider(session.PhoneNumber, pin)
	if err != nil {
		if errors.Is(err, ErrAuthFailed) {
			return fail("Invalid credentials.")
		}
		log.Printf("Provider auth failed for session %s: %v", session.SessionID, err)
		return "END Service temporarily unavailable. Please try again later."
	}

	summary := provider.Summary()
	if err := u.sessions.SetProvider(session.SessionID, summary); err != nil {
		return "END Session expired. Please dial again."
	}
	if err := u.sessions.ResetAttempts(session.SessionID); err != nil {
		log.Printf("Failed to reset attempts for %s: %v", session.SessionID, err)
	}
	return providerMenuText(&summary)
}

func (u *UssdService) recentRecords(session *models.Session) string {
	records, err := u.records.GetRecentRecordsByProvider(session.Provider.ID, 5)
	if err != nil {
		log.Printf("Recent records lookup failed: %v", err)
		return "END Service temporarily unavailable. Please try again later."
	}
	if len(records) == 0 {
		return "END No recent records found."
	}

	var b strings.Builder
	b.WriteString("END Your recent records:\n\n")
	for i, r := range records {
		fmt.Fprintf(&b, "%d. %s - %s (%s)\n", i+1, r.Patient.Name, r.Diagnosis, r.VisitDate)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (u *UssdService) providerProfile(session *models.Session) string {
	p := session.Provider
	return fmt.Sprintf("END Provider Profile\n\nName: %s\nSpecialization: %s\nFacility: %s\nPhone: %s",
		p.Name, orDash(p.Specialization), orDash(p.Facility.Name), p.Phone)
}

// ---- Patient branch ----

func (u *UssdService) handlePatientFlow(session *models.Session, parts []string, last string) string {
	if len(parts) == 1 {
		return patientMenuText()
	}

	switch last {
	case "1":
		if allowed, reason := u.sessions.CheckPermission(session.SessionID, "view_own_records"); !allowed {
			return "END " + reason
		}
		return u.ownRecords(session)
	case "2":
		return u.ownProfile(session)
	case "3":
		return u.medicalAlerts(session)
	case "4":
		return u.emergencyContact(session)
	case "5":
		return u.nearestFacilities()
	default:
		return "CON Invalid choice.\n\n" + strings.TrimPrefix(patientMenuText(), "CON ")
	}
}

func (u *UssdService) ownRecords(session *models.Session) string {
	patient, err := u.records.GetPatientByPhone(session.PhoneNumber)
	if err != nil {
		return "END No patient profile found for this number.\n\nVisit a healthcare facility to register."
	}

	records, err := u.records.GetPatientRecords(patient.PatientID)
	if err != nil {
		log.Printf("Own records lookup failed: %v", err)
		return "END Service temporarily unavailable. Please try again later."
	}
	if len(records) == 0 {
		return "END No medical records on file."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "END Records for %s:\n\n", patient.Name)
	limit := len(records)
	if limit > 3 {
		limit = 3
	}
	for _, r := range records[:limit] {
		fmt.Fprintf(&b, "%s: %s\n", r.VisitDate, r.Diagnosis)
	}
	b.WriteString("\nVisit a facility for full history.")
	return b.String()
}

func (u *UssdService) ownProfile(session *models.Session) string {
	patient, err := u.records.GetPatientByPhone(session.PhoneNumber)
	if err != nil {
		return "END No patient profile found for this number.\n\nVisit a healthcare facility to register."
	}
	return fmt.Sprintf("END Your Profile\n\nName: %s\nPhone: %s\nDOB: %s\nGender: %s\nBlood type: %s\nAllergies: %s",
		patient.Name, patient.Phone, orDash(patient.DateOfBirth), orDash(patient.Gender),
		orDash(patient.BloodType), orDash(patient.Allergies))
}

func (u *UssdService) medicalAlerts(session *models.Session) string {
	patient, err := u.records.GetPatientByPhone(session.PhoneNumber)
	if err != nil {
		return "END No patient profile found for this number.\n\nVisit a healthcare facility to register."
	}
	return fmt.Sprintf("END Medical Alerts\n\nBlood type: %s\nAllergies: %s\n\nShow this screen to emergency responders.",
		orDash(patient.BloodType), orDash(patient.Allergies))
}

func (u *UssdService) emergencyContact(session *models.Session) string {
	contact := "-"
	if patient, err := u.records.GetPatientByPhone(session.PhoneNumber); err == nil {
		contact = orDash(patient.EmergencyContact)
	}
	return fmt.Sprintf("END Emergency Contacts\n\nYour contact: %s\nAmbulance: 193\nPolice: 191\nFire: 192", contact)
}

func (u *UssdService) nearestFacilities() string {
	facilities, err := u.records.GetFacilities()
	if err != nil {
		log.Printf("Facility lookup failed: %v", err)
		return "END Service temporarily unavailable. Please try again later."
	}

	var b strings.Builder
	b.WriteString("END Nearby facilities:\n\n")
	listed := 0
	for _, f := range facilities {
		if !f.IsActive {
			continue
		}
		fmt.Fprintf(&b, "%s - %s\n", f.Name, f.Location)
		listed++
		if listed >= 3 {
			break
		}
	}
	if listed == 0 {
		return "END No facilities registered yet."
	}
	return strings.TrimRight(b.String(), "\n")
}

// ---- Emergency branch ----

func (u *UssdService) handleEmergencyFlow(session *models.Session, parts []string, last string) string {
	// Emergency access is never gated on authentication.
	if allowed, reason := u.sessions.CheckPermission(session.SessionID, "emergency_access"); !allowed {
		return "END " + reason
	}

	if len(parts) == 1 {
		return emergencyMenuText()
	}

	switch last {
	case "1":
		u.audit.Log(models.ActivityLog{
			Action:    "Emergency_Ambulance_Request",
			Details:   fmt.Sprintf("Ambulance requested by %s", session.PhoneNumber),
			UserPhone: session.PhoneNumber,
			SessionID: session.SessionID,
		})
		return "END Ambulance request logged.\n\nCall 193 now for immediate dispatch."
	case "2":
		return "END Poison Control\n\nCall 0302665065 immediately.\nDo not induce vomiting unless instructed."
	case "3":
		return "END Emergency Numbers\n\nAmbulance: 193\nPolice: 191\nFire: 192"
	case "4":
		return u.nearestHospital()
	default:
		return "CON Invalid choice.\n\n" + strings.TrimPrefix(emergencyMenuText(), "CON ")
	}
}

func (u *UssdService) nearestHospital() string {
	facilities, err := u.records.GetFacilities()
	if err != nil {
		return "END Call 193 for ambulance dispatch."
	}
	for _, f := range facilities {
		if f.IsActive && f.FacilityType == "Hospital" {
			return fmt.Sprintf("END Nearest hospital:\n\n%s\n%s\nPhone: %s", f.Name, f.Location, f.Phone)
		}
	}
	return "END No hospital registered.\n\nCall 193 for ambulance dispatch."
}

// ---- System info branch ----

func (u *UssdService) handleSystemInfo(parts []string, last string) string {
	if len(parts) == 1 {
		return systemInfoMenuText()
	}

	switch last {
	case "1":
		return "END Afya Health Records\n\nPortable medical records for every phone. No smartphone or internet required."
	case "2":
		return "END How to use\n\nProviders: option 1, log in with your PIN.\nPatients: option 2 to view your records.\nEmergencies: option 3."
	case "3":
		return "END Privacy\n\nYour records are only visible to you and authenticated healthcare providers. Access is logged."
	case "4":
		return "END Support\n\nCall 0302000000 or ask at any registered facility."
	default:
		return "CON Invalid choice.\n\n" + strings.TrimPrefix(systemInfoMenuText(), "CON ")
	}
}

// ---- Menus ----

func mainMenuText() string {
	return "CON Welcome to Afya Health Records\n\n1. Healthcare Provider\n2. Patient Services\n3. Emergency Services\n4. System Information"
}

func patientMenuText() string {
	return "CON Patient Services\n\n1. My medical records\n2. My profile\n3. Medical alerts\n4. Emergency contact\n5. Nearest facilities"
}

func emergencyMenuText() string {
	return "CON Emergency Services\n\n1. Request ambulance\n2. Poison control\n3. Emergency numbers\n4. Nearest hospital"
}

func systemInfoMenuText() string {
	return "CON System Information\n\n1. About\n2. How to use\n3. Privacy\n4. Support"
}
