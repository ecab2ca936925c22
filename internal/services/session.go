package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/afya-ehr/afya-backend/internal/models"
	"github.com/afya-ehr/afya-backend/internal/storage"
	"github.com/afya-ehr/afya-backend/internal/utils"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

const (
	// SessionTimeout is the inactivity window after which a session is
	// considered dead. Expiry is lazy: nothing fires a timer, the next
	// access notices and ends the session.
	SessionTimeout = 5 * time.Minute

	// MaxAuthAttempts is the PIN attempt ceiling before the session is
	// terminated.
	MaxAuthAttempts = 3

	// deleteGraceDefault is how long an ended session stays readable
	// before the row is physically removed.
	deleteGraceDefault = 60 * time.Second
)

// SessionManager owns the lifecycle of USSD sessions: creation, lazy
// expiry, attempt counting, provider/patient binding and termination.
type SessionManager struct {
	store       storage.Store
	audit       *AuditService
	timeout     time.Duration
	deleteGrace time.Duration
}

func NewSessionManager(store storage.Store, audit *AuditService) *SessionManager {
	return &SessionManager{
		store:       store,
		audit:       audit,
		timeout:     SessionTimeout,
		deleteGrace: deleteGraceDefault,
	}
}

// CreateSession registers a new session for an incoming dial. The
// phone number is validated and canonicalized before it is stored.
func (sm *SessionManager) CreateSession(sessionID, phoneNumber, serviceCode string) (*models.Session, error) {
	phone, err := utils.ValidateGhanaPhone(phoneNumber)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &models.Session{
		SessionID:    sessionID,
		PhoneNumber:  phone,
		ServiceCode:  serviceCode,
		State:        models.SessionActive,
		StartedAt:    now,
		LastActivity: now,
		Inputs:       []models.SessionInput{},
	}

	if err := sm.store.CreateSession(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sm.audit.Log(models.ActivityLog{
		Action:    "USSD_Session_Start",
		Details:   fmt.Sprintf("Session started for %s", phone),
		UserPhone: phone,
		SessionID: sessionID,
	})

	log.Printf("📱 USSD session started: %s (%s)", sessionID, phone)
	return session, nil
}

// GetSession returns an active session. A session past the inactivity
// window is ended with reason timeout and reported as expired; an
// ended or missing session is reported as not found.
func (sm *SessionManager) GetSession(sessionID string) (*models.Session, error) {
	session, err := sm.store.GetSession(sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if session.State != models.SessionActive {
		return nil, ErrSessionNotFound
	}

	if time.Since(session.LastActivity) > sm.timeout {
		if err := sm.EndSession(sessionID, models.EndReasonTimeout); err != nil {
			log.Printf("Failed to expire session %s: %v", sessionID, err)
		}
		return nil, ErrSessionExpired
	}

	return session, nil
}

// UpdateSession applies a patch to an active session and refreshes its
// activity timestamp.
func (sm *SessionManager) UpdateSession(sessionID string, patch storage.SessionPatch) (*models.Session, error) {
	if _, err := sm.GetSession(sessionID); err != nil {
		return nil, err
	}
	now := time.Now()
	patch.LastActivity = &now
	return sm.store.PatchSession(sessionID, patch)
}

// AddUserInput appends a raw input token to the session trail.
func (sm *SessionManager) AddUserInput(sessionID, input string) error {
	_, err := sm.UpdateSession(sessionID, storage.SessionPatch{
		AppendInput: &models.SessionInput{Input: input, Timestamp: time.Now()},
	})
	return err
}

// IncrementAttempts bumps the failed-authentication counter and
// returns the new value.
func (sm *SessionManager) IncrementAttempts(sessionID string) (int, error) {
	session, err := sm.GetSession(sessionID)
	if err != nil {
		return 0, err
	}
	attempts := session.AttemptCount + 1
	if _, err := sm.UpdateSession(sessionID, storage.SessionPatch{AttemptCount: &attempts}); err != nil {
		return 0, err
	}
	return attempts, nil
}

// ResetAttempts clears the failed-authentication counter.
func (sm *SessionManager) ResetAttempts(sessionID string) error {
	zero := 0
	_, err := sm.UpdateSession(sessionID, storage.SessionPatch{AttemptCount: &zero})
	return err
}

// SetProvider binds an authenticated provider to the session.
func (sm *SessionManager) SetProvider(sessionID string, provider models.ProviderSummary) error {
	authed := true
	session, err := sm.UpdateSession(sessionID, storage.SessionPatch{
		Provider:      &provider,
		Authenticated: &authed,
	})
	if err != nil {
		return err
	}

	sm.audit.Log(models.ActivityLog{
		Action:     "Provider_USSD_Login",
		Details:    fmt.Sprintf("%s logged in via USSD", provider.Name),
		UserPhone:  session.PhoneNumber,
		SessionID:  sessionID,
		ProviderID: provider.ID,
		FacilityID: provider.Facility.ID,
	})
	return nil
}

// SetPatient binds the patient the provider is working on.
func (sm *SessionManager) SetPatient(sessionID string, patient models.PatientSummary) error {
	session, err := sm.UpdateSession(sessionID, storage.SessionPatch{Patient: &patient})
	if err != nil {
		return err
	}

	sm.audit.Log(models.ActivityLog{
		Action:    "Patient_Selected",
		Details:   fmt.Sprintf("Patient %s selected", patient.Name),
		UserPhone: session.PhoneNumber,
		SessionID: sessionID,
		PatientID: patient.ID,
	})
	return nil
}

// SetStep moves the session to a workflow step without touching any
// other state.
func (sm *SessionManager) SetStep(sessionID string, step models.WorkflowStep) error {
	_, err := sm.UpdateSession(sessionID, storage.SessionPatch{CurrentStep: &step})
	return err
}

// EndSession marks a session as ended with the given reason and logs
// its duration. The record stays readable for a short grace window so
// late requests see a clean miss instead of a dangling row.
func (sm *SessionManager) EndSession(sessionID, reason string) error {
	session, err := sm.store.GetSession(sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	if session.State == models.SessionEnded {
		return nil
	}

	now := time.Now()
	ended := models.SessionEnded
	if _, err := sm.store.PatchSession(sessionID, storage.SessionPatch{
		State:     &ended,
		EndedAt:   &now,
		EndReason: &reason,
	}); err != nil {
		return err
	}

	sm.audit.Log(models.ActivityLog{
		Action:    "USSD_Session_End",
		Details:   fmt.Sprintf("Session ended (%s) after %s", reason, session.Duration().Round(time.Second)),
		UserPhone: session.PhoneNumber,
		SessionID: sessionID,
	})

	log.Printf("📴 USSD session ended: %s (%s)", sessionID, reason)

	time.AfterFunc(sm.deleteGrace, func() {
		if err := sm.store.DeleteSession(sessionID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Printf("Failed to delete session %s: %v", sessionID, err)
		}
	})
	return nil
}

// CheckPermission answers whether the session may perform an action.
// Provider actions require an authenticated, active provider on the
// session; emergency access is always granted.
func (sm *SessionManager) CheckPermission(sessionID, action string) (bool, string) {
	if action == "emergency_access" {
		return true, ""
	}

	session, err := sm.GetSession(sessionID)
	if err != nil {
		return false, "Session expired. Please dial again."
	}

	switch action {
	case "create_patient", "create_medical_record", "view_patient_records":
		if !session.Authenticated || session.Provider == nil {
			return false, "Provider login required."
		}
		if !session.Provider.IsActive {
			return false, "Provider account is inactive."
		}
		return true, ""
	case "view_own_records":
		return true, ""
	default:
		return false, "Unknown action."
	}
}

// CleanupExpiredSessions sweeps active sessions past the inactivity
// window. Expiry is already lazy on access; this keeps the table from
// accumulating sessions nobody touched again. Returns the count ended.
func (sm *SessionManager) CleanupExpiredSessions() int {
	sessions, err := sm.store.GetActiveSessions()
	if err != nil {
		log.Printf("Session cleanup failed: %v", err)
		return 0
	}

	cleaned := 0
	for _, s := range sessions {
		if time.Since(s.LastActivity) > sm.timeout {
			if err := sm.EndSession(s.SessionID, models.EndReasonTimeout); err != nil {
				log.Printf("Failed to end stale session %s: %v", s.SessionID, err)
				continue
			}
			cleaned++
		}
	}
	if cleaned > 0 {
		log.Printf("🧹 Cleaned up %d expired USSD sessions", cleaned)
	}
	return cleaned
}

// ActiveSessionCount reports how many sessions are currently live.
func (sm *SessionManager) ActiveSessionCount() int {
	sessions, err := sm.store.GetActiveSessions()
	if err != nil {
		return 0
	}
	return len(sessions)
}
