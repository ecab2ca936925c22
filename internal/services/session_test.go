package services

import (
	"errors"
	"testing"
	"time"

	"github.com/afya-ehr/afya-backend/internal/models"
	"github.com/afya-ehr/afya-backend/internal/storage"
)

func TestCreateSessionNormalizesPhone(t *testing.T) {
	env := newTestEnv(t)

	session, err := env.sessions.CreateSession("sess1", "+233244123456", "*714*33#")
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if session.PhoneNumber != "0244123456" {
		t.Errorf("phone = %q, want 0244123456", session.PhoneNumber)
	}
	if session.State != models.SessionActive {
		t.Errorf("state = %q, want active", session.State)
	}
}

func TestCreateSessionRejectsInvalidPhone(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.sessions.CreateSession("sess1", "12345", "*714*33#"); err == nil {
		t.Fatal("expected error for invalid phone")
	}
}

func TestGetSessionExpiresAfterTimeout(t *testing.T) {
	env := newTestEnv(t)
	env.sessions.timeout = time.Millisecond

	if _, err := env.sessions.CreateSession("sess1", providerPhone, "*714*33#"); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := env.sessions.GetSession("sess1"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("GetSession = %v, want ErrSessionExpired", err)
	}

	// The stored session is marked ended with the timeout reason.
	stored, err := env.store.GetSession("sess1")
	if err != nil {
		t.Fatalf("store.GetSession returned error: %v", err)
	}
	if stored.State != models.SessionEnded {
		t.Errorf("state = %q, want ended", stored.State)
	}
	if stored.EndReason != models.EndReasonTimeout {
		t.Errorf("end reason = %q, want timeout", stored.EndReason)
	}

	// The end is audited with its reason.
	logs := env.store.FindLogs("USSD_Session_End")
	if len(logs) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(logs))
	}

	// Further accesses behave as not found.
	if _, err := env.sessions.GetSession("sess1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second GetSession = %v, want ErrSessionNotFound", err)
	}
}

func TestEndSessionSchedulesDelete(t *testing.T) {
	env := newTestEnv(t)
	env.sessions.deleteGrace = 5 * time.Millisecond

	if _, err := env.sessions.CreateSession("sess1", providerPhone, "*714*33#"); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if err := env.sessions.EndSession("sess1", models.EndReasonLogout); err != nil {
		t.Fatalf("EndSession returned error: %v", err)
	}

	// Within the grace window the row is still readable.
	stored, err := env.store.GetSession("sess1")
	if err != nil {
		t.Fatalf("store.GetSession returned error: %v", err)
	}
	if stored.EndReason != models.EndReasonLogout {
		t.Errorf("end reason = %q, want logout", stored.EndReason)
	}

	time.Sleep(50 * time.Millisecond)
	if _, err := env.store.GetSession("sess1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("after grace window = %v, want ErrNotFound", err)
	}
}

func TestEndSessionIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.sessions.CreateSession("sess1", providerPhone, "*714*33#"); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if err := env.sessions.EndSession("sess1", models.EndReasonLogout); err != nil {
		t.Fatalf("EndSession returned error: %v", err)
	}
	if err := env.sessions.EndSession("sess1", models.EndReasonTimeout); err != nil {
		t.Fatalf("second EndSession returned error: %v", err)
	}

	stored, err := env.store.GetSession("sess1")
	if err != nil {
		t.Fatalf("store.GetSession returned error: %v", err)
	}
	// The first reason wins.
	if stored.EndReason != models.EndReasonLogout {
		t.Errorf("end reason = %q, want logout", stored.EndReason)
	}
}

func TestAttemptCounter(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.sessions.CreateSession("sess1", providerPhone, "*714*33#"); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}

	for want := 1; want <= 3; want++ {
		got, err := env.sessions.IncrementAttempts("sess1")
		if err != nil {
			t.Fatalf("IncrementAttempts returned error: %v", err)
		}
		if got != want {
			t.Errorf("attempts = %d, want %d", got, want)
		}
	}

	if err := env.sessions.ResetAttempts("sess1"); err != nil {
		t.Fatalf("ResetAttempts returned error: %v", err)
	}
	session, err := env.sessions.GetSession("sess1")
	if err != nil {
		t.Fatalf("GetSession returned error: %v", err)
	}
	if session.AttemptCount != 0 {
		t.Errorf("attempts after reset = %d, want 0", session.AttemptCount)
	}
}

func TestCheckPermission(t *testing.T) {
	env := newTestEnv(t)
	provider := env.seedProvider(t)

	if _, err := env.sessions.CreateSession("sess1", providerPhone, "*714*33#"); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}

	// Unauthenticated sessions cannot use provider actions.
	if allowed, _ := env.sessions.CheckPermission("sess1", "create_medical_record"); allowed {
		t.Error("expected create_medical_record to be denied before login")
	}

	// Emergency access needs no session at all.
	if allowed, _ := env.sessions.CheckPermission("missing", "emergency_access"); !allowed {
		t.Error("expected emergency_access to be allowed")
	}

	if err := env.sessions.SetProvider("sess1", provider.Summary()); err != nil {
		t.Fatalf("SetProvider returned error: %v", err)
	}
	for _, action := range []string{"create_patient", "create_medical_record", "view_patient_records"} {
		if allowed, reason := env.sessions.CheckPermission("sess1", action); !allowed {
			t.Errorf("expected %s to be allowed after login: %s", action, reason)
		}
	}

	if allowed, _ := env.sessions.CheckPermission("sess1", "launch_rockets"); allowed {
		t.Error("expected unknown action to be denied")
	}
}

func TestCleanupExpiredSessions(t *testing.T) {
	env := newTestEnv(t)
	env.sessions.timeout = time.Millisecond

	for _, id := range []string{"sess1", "sess2"} {
		if _, err := env.sessions.CreateSession(id, providerPhone, "*714*33#"); err != nil {
			t.Fatalf("CreateSession returned error: %v", err)
		}
	}
	time.Sleep(5 * time.Millisecond)

	if cleaned := env.sessions.CleanupExpiredSessions(); cleaned != 2 {
		t.Errorf("cleaned = %d, want 2", cleaned)
	}
	if count := env.sessions.ActiveSessionCount(); count != 0 {
		t.Errorf("active sessions = %d, want 0", count)
	}
}
