package services

import (
	"testing"

	"github.com/afya-ehr/afya-backend/internal/models"
	"github.com/afya-ehr/afya-backend/internal/storage"
)

// providerPhone is the caller number used for provider-flow tests; it
// has to match the seeded provider's registered phone.
const providerPhone = "0244123456"

type testEnv struct {
	store    *storage.MemoryStore
	sessions *SessionManager
	records  *RecordService
	menu     *MedicalMenu
	ussd     *UssdService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := storage.NewMemoryStore()
	audit := NewSyncAuditService(store)
	sessions := NewSessionManager(store, audit)
	records := NewRecordService(store, audit, nil)
	menu := NewMedicalMenu(sessions, records)
	ussd := NewUssdService(sessions, records, menu, audit)

	return &testEnv{
		store:    store,
		sessions: sessions,
		records:  records,
		menu:     menu,
		ussd:     ussd,
	}
}

// seedProvider registers a facility and an active provider with PIN 1234.
func (e *testEnv) seedProvider(t *testing.T) *models.Provider {
	t.Helper()

	facility, err := e.records.CreateFacility(models.FacilityRegistration{
		Name:         "Ridge Hospital",
		FacilityType: "Hospital",
		Location:     "Accra",
		Phone:        "0302228382",
	})
	if err != nil {
		t.Fatalf("failed to seed facility: %v", err)
	}

	provider, err := e.records.CreateProvider(models.ProviderRegistration{
		Name:           "Dr. Kwame Asante",
		Phone:          providerPhone,
		Specialization: "General Medicine",
		FacilityID:     facility.FacilityID,
		PIN:            "1234",
	})
	if err != nil {
		t.Fatalf("failed to seed provider: %v", err)
	}
	return provider
}

func (e *testEnv) seedPatient(t *testing.T, name, phone string) *models.Patient {
	t.Helper()

	patient, err := e.records.CreatePatient(models.PatientRegistration{
		Name:  name,
		Phone: phone,
	})
	if err != nil {
		t.Fatalf("failed to seed patient %s: %v", name, err)
	}
	return patient
}

// turn replays one USSD turn. The text argument carries the full
// *-joined input trail exactly as a gateway would resend it.
func (e *testEnv) turn(sessionID, text string) string {
	return e.ussd.HandleRequest(sessionID, "*714*33#", providerPhone, text)
}
