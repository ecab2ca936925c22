package storage

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/afya-ehr/afya-backend/internal/models"
)

// MemoryStore holds all data in memory, for tests and local development
type MemoryStore struct {
	sessions   map[string]*models.Session
	facilities map[string]*models.Facility
	providers  map[string]*models.Provider
	patients   map[string]*models.Patient
	records    map[string]*models.MedicalRecord
	logs       []*models.ActivityLog

	sessionMu  sync.RWMutex
	facilityMu sync.RWMutex
	providerMu sync.RWMutex
	patientMu  sync.RWMutex
	recordMu   sync.RWMutex
	logMu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:   make(map[string]*models.Session),
		facilities: make(map[string]*models.Facility),
		providers:  make(map[string]*models.Provider),
		patients:   make(map[string]*models.Patient),
		records:    make(map[string]*models.MedicalRecord),
	}
}

// Session operations

func (m *MemoryStore) CreateSession(session *models.Session) error {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	cp := *session
	m.sessions[session.SessionID] = &cp
	return nil
}

func (m *MemoryStore) GetSession(sessionID string) (*models.Session, error) {
	m.sessionMu.RLock()
	defer m.sessionMu.RUnlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, ErrNotFound
	}
	cp := *session
	return &cp, nil
}

func (m *MemoryStore) PatchSession(sessionID string, patch SessionPatch) (*models.Session, error) {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, ErrNotFound
	}

	ApplyPatch(session, patch)
	cp := *session
	return &cp, nil
}

func (m *MemoryStore) DeleteSession(sessionID string) error {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryStore) GetActiveSessions() ([]*models.Session, error) {
	m.sessionMu.RLock()
	defer m.sessionMu.RUnlock()

	var sessions []*models.Session
	for _, s := range m.sessions {
		if s.State == models.SessionActive {
			cp := *s
			sessions = append(sessions, &cp)
		}
	}
	return sessions, nil
}

// Facility operations

func (m *MemoryStore) CreateFacility(facility *models.Facility) (*models.Facility, error) {
	m.facilityMu.Lock()
	defer m.facilityMu.Unlock()

	for _, f := range m.facilities {
		if f.Phone == facility.Phone {
			return nil, ErrDuplicate
		}
	}

	if facility.FacilityID == "" {
		facility.FacilityID = models.GenerateID("fac_")
	}
	facility.CreatedAt = time.Now()
	facility.UpdatedAt = time.Now()

	m.facilities[facility.FacilityID] = facility
	return facility, nil
}

func (m *MemoryStore) GetFacility(id string) (*models.Facility, error) {
	m.facilityMu.RLock()
	defer m.facilityMu.RUnlock()

	facility, exists := m.facilities[id]
	if !exists {
		return nil, ErrNotFound
	}
	return facility, nil
}

func (m *MemoryStore) GetFacilityByPhone(phone string) (*models.Facility, error) {
	m.facilityMu.RLock()
	defer m.facilityMu.RUnlock()

	for _, f := range m.facilities {
		if f.Phone == phone {
			return f, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetFacilities() ([]*models.Facility, error) {
	m.facilityMu.RLock()
	defer m.facilityMu.RUnlock()

	var facilities []*models.Facility
	for _, f := range m.facilities {
		facilities = append(facilities, f)
	}
	sort.Slice(facilities, func(i, j int) bool {
		return facilities[i].CreatedAt.After(facilities[j].CreatedAt)
	})
	return facilities, nil
}

func (m *MemoryStore) UpdateFacility(facility *models.Facility) error {
	m.facilityMu.Lock()
	defer m.facilityMu.Unlock()

	if _, exists := m.facilities[facility.FacilityID]; !exists {
		return ErrNotFound
	}
	facility.UpdatedAt = time.Now()
	m.facilities[facility.FacilityID] = facility
	return nil
}

func (m *MemoryStore) DeleteFacility(id string) error {
	m.facilityMu.Lock()
	defer m.facilityMu.Unlock()

	delete(m.facilities, id)
	return nil
}

// Provider operations

func (m *MemoryStore) CreateProvider(provider *models.Provider) (*models.Provider, error) {
	m.providerMu.Lock()
	defer m.providerMu.Unlock()

	for _, p := range m.providers {
		if p.Phone == provider.Phone {
			return nil, ErrDuplicate
		}
	}

	if provider.ProviderID == "" {
		provider.ProviderID = models.GenerateID("prov_")
	}
	provider.CreatedAt = time.Now()
	provider.UpdatedAt = time.Now()

	m.providers[provider.ProviderID] = provider
	return provider, nil
}

func (m *MemoryStore) GetProvider(id string) (*models.Provider, error) {
	m.providerMu.RLock()
	defer m.providerMu.RUnlock()

	provider, exists := m.providers[id]
	if !exists {
		return nil, ErrNotFound
	}
	return provider, nil
}

func (m *MemoryStore) GetProviderByPhone(phone string) (*models.Provider, error) {
	m.providerMu.RLock()
	defer m.providerMu.RUnlock()

	for _, p := range m.providers {
		if p.Phone == phone {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetProviders() ([]*models.Provider, error) {
	m.providerMu.RLock()
	defer m.providerMu.RUnlock()

	var providers []*models.Provider
	for _, p := range m.providers {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool {
		return providers[i].CreatedAt.After(providers[j].CreatedAt)
	})
	return providers, nil
}

func (m *MemoryStore) UpdateProvider(provider *models.Provider) error {
	m.providerMu.Lock()
	defer m.providerMu.Unlock()

	if _, exists := m.providers[provider.ProviderID]; !exists {
		return ErrNotFound
	}
	provider.UpdatedAt = time.Now()
	m.providers[provider.ProviderID] = provider
	return nil
}

func (m *MemoryStore) DeleteProvider(id string) error {
	m.providerMu.Lock()
	defer m.providerMu.Unlock()

	delete(m.providers, id)
	return nil
}

// Patient operations

func (m *MemoryStore) CreatePatient(patient *models.Patient) (*models.Patient, error) {
	m.patientMu.Lock()
	defer m.patientMu.Unlock()

	for _, p := range m.patients {
		if p.Phone == patient.Phone {
			return nil, ErrDuplicate
		}
	}

	if patient.PatientID == "" {
		patient.PatientID = models.GenerateID("pat_")
	}
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = time.Now()

	m.patients[patient.PatientID] = patient
	return patient, nil
}

func (m *MemoryStore) GetPatient(id string) (*models.Patient, error) {
	m.patientMu.RLock()
	defer m.patientMu.RUnlock()

	patient, exists := m.patients[id]
	if !exists {
		return nil, ErrNotFound
	}
	return patient, nil
}

func (m *MemoryStore) GetPatientByPhone(phone string) (*models.Patient, error) {
	m.patientMu.RLock()
	defer m.patientMu.RUnlock()

	for _, p := range m.patients {
		if p.Phone == phone {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetPatients() ([]*models.Patient, error) {
	m.patientMu.RLock()
	defer m.patientMu.RUnlock()

	var patients []*models.Patient
	for _, p := range m.patients {
		patients = append(patients, p)
	}
	sort.Slice(patients, func(i, j int) bool {
		return patients[i].CreatedAt.After(patients[j].CreatedAt)
	})
	return patients, nil
}

func (m *MemoryStore) UpdatePatient(patient *models.Patient) error {
	m.patientMu.Lock()
	defer m.patientMu.Unlock()

	if _, exists := m.patients[patient.PatientID]; !exists {
		return ErrNotFound
	}
	patient.UpdatedAt = time.Now()
	m.patients[patient.PatientID] = patient
	return nil
}

func (m *MemoryStore) DeletePatient(id string) error {
	m.patientMu.Lock()
	defer m.patientMu.Unlock()

	delete(m.patients, id)
	return nil
}

// Medical record operations

func (m *MemoryStore) CreateMedicalRecord(record *models.MedicalRecord) (*models.MedicalRecord, error) {
	m.recordMu.Lock()
	defer m.recordMu.Unlock()

	if record.RecordID == "" {
		record.RecordID = models.GenerateID("rec_")
	}
	if record.VisitDate == "" {
		record.VisitDate = time.Now().Format("2006-01-02")
	}
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()

	m.records[record.RecordID] = record
	return record, nil
}

func (m *MemoryStore) GetMedicalRecord(id string) (*models.MedicalRecord, error) {
	m.recordMu.RLock()
	defer m.recordMu.RUnlock()

	record, exists := m.records[id]
	if !exists {
		return nil, ErrNotFound
	}
	return record, nil
}

func (m *MemoryStore) GetRecordsByPatient(patientID string) ([]*models.MedicalRecord, error) {
	m.recordMu.RLock()
	defer m.recordMu.RUnlock()

	var records []*models.MedicalRecord
	for _, r := range m.records {
		if r.PatientID == patientID {
			records = append(records, r)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].VisitDate > records[j].VisitDate
	})
	return records, nil
}

func (m *MemoryStore) GetRecentRecords(limit int) ([]*models.MedicalRecord, error) {
	m.recordMu.RLock()
	defer m.recordMu.RUnlock()

	var records []*models.MedicalRecord
	for _, r := range m.records {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (m *MemoryStore) DeleteMedicalRecord(id string) error {
	m.recordMu.Lock()
	defer m.recordMu.Unlock()

	if _, exists := m.records[id]; !exists {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

// Activity log operations

func (m *MemoryStore) CreateActivityLog(entry *models.ActivityLog) error {
	m.logMu.Lock()
	defer m.logMu.Unlock()

	if entry.LogID == "" {
		entry.LogID = models.GenerateID("log_")
	}
	entry.CreatedAt = time.Now()

	m.logs = append(m.logs, entry)
	return nil
}

func (m *MemoryStore) GetLogs(limit int) ([]*models.ActivityLog, error) {
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	logs := make([]*models.ActivityLog, len(m.logs))
	copy(logs, m.logs)
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// FindLogs returns logs whose action contains the given substring,
// newest first. Used by tests and the admin console.
func (m *MemoryStore) FindLogs(actionContains string) []*models.ActivityLog {
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	var out []*models.ActivityLog
	for _, l := range m.logs {
		if strings.Contains(l.Action, actionContains) {
			out = append(out, l)
		}
	}
	return out
}
