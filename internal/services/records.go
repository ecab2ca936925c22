package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/afya-ehr/afya-backend/internal/models"
	"github.com/afya-ehr/afya-backend/internal/storage"
	"github.com/afya-ehr/afya-backend/internal/utils"
)

var (
	// ErrAuthFailed covers every provider authentication failure.
	// Callers cannot tell an unknown phone from a wrong PIN.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrValidation wraps input validation failures
	ErrValidation = errors.New("validation failed")

	// ErrDuplicatePhone is returned when a phone number is already
	// registered for the same entity type
	ErrDuplicatePhone = errors.New("phone number already registered")
)

// RecordService is the façade over facilities, providers, patients and
// medical records. Both the USSD workflow and the REST API go through it.
type RecordService struct {
	store storage.Store
	audit *AuditService
	sms   *SMSService
}

func NewRecordService(store storage.Store, audit *AuditService, sms *SMSService) *RecordService {
	return &RecordService{store: store, audit: audit, sms: sms}
}

// AuthenticateProvider checks a phone/PIN pair against the provider
// registry. Inactive providers cannot log in.
func (rs *RecordService) AuthenticateProvider(phone, pin string) (*models.Provider, error) {
	normalized, err := utils.ValidateGhanaPhone(phone)
	if err != nil {
		return nil, ErrAuthFailed
	}

	provider, err := rs.store.GetProviderByPhone(normalized)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrAuthFailed
		}
		return nil, err
	}

	if !provider.IsActive || provider.PIN != pin {
		return nil, ErrAuthFailed
	}
	return provider, nil
}

// ---- Facilities ----

func (rs *RecordService) CreateFacility(reg models.FacilityRegistration) (*models.Facility, error) {
	if strings.TrimSpace(reg.Name) == "" {
		return nil, fmt.Errorf("%w: facility name is required", ErrValidation)
	}
	phone, err := utils.ValidateGhanaPhone(reg.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if _, err := rs.store.GetFacilityByPhone(phone); err == nil {
		return nil, ErrDuplicatePhone
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	facility := &models.Facility{
		Name:         strings.TrimSpace(reg.Name),
		FacilityType: reg.FacilityType,
		Location:     reg.Location,
		Phone:        phone,
		Description:  reg.Description,
		IsActive:     true,
	}

	created, err := rs.store.CreateFacility(facility)
	if err != nil {
		return nil, fmt.Errorf("failed to create facility: %w", err)
	}

	rs.audit.Log(models.ActivityLog{
		Action:     "Facility_Registration",
		Details:    fmt.Sprintf("Facility %s registered", created.Name),
		FacilityID: created.FacilityID,
	})
	log.Printf("🏥 Facility registered: %s (%s)", created.Name, created.FacilityID)
	return created, nil
}

func (rs *RecordService) GetFacility(id string) (*models.Facility, error) {
	return rs.store.GetFacility(id)
}

func (rs *RecordService) GetFacilities() ([]*models.Facility, error) {
	return rs.store.GetFacilities()
}

// ToggleFacilityStatus flips a facility between active and inactive.
func (rs *RecordService) ToggleFacilityStatus(id string) (*models.Facility, error) {
	facility, err := rs.store.GetFacility(id)
	if err != nil {
		return nil, err
	}
	facility.IsActive = !facility.IsActive
	if err := rs.store.UpdateFacility(facility); err != nil {
		return nil, err
	}
	return facility, nil
}

// ---- Providers ----

func (rs *RecordService) CreateProvider(reg models.ProviderRegistration) (*models.Provider, error) {
	if strings.TrimSpace(reg.Name) == "" {
		return nil, fmt.Errorf("%w: provider name is required", ErrValidation)
	}
	if !utils.IsValidPIN(reg.PIN) {
		return nil, fmt.Errorf("%w: PIN must be exactly 4 digits", ErrValidation)
	}
	phone, err := utils.ValidateGhanaPhone(reg.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	facility, err := rs.store.GetFacility(reg.FacilityID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: facility %s not found", ErrValidation, reg.FacilityID)
		}
		return nil, err
	}

	if _, err := rs.store.GetProviderByPhone(phone); err == nil {
		return nil, ErrDuplicatePhone
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	provider := &models.Provider{
		Name:           strings.TrimSpace(reg.Name),
		Phone:          phone,
		Specialization: reg.Specialization,
		FacilityID:     facility.FacilityID,
		PIN:            reg.PIN,
		IsActive:       true,
		Facility:       facility.Summary(),
	}

	created, err := rs.store.CreateProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	facility.ProvidersCount++
	if err := rs.store.UpdateFacility(facility); err != nil {
		log.Printf("Failed to bump provider count for %s: %v", facility.FacilityID, err)
	}

	rs.audit.Log(models.ActivityLog{
		Action:     "Provider_Registration",
		Details:    fmt.Sprintf("Provider %s registered at %s", created.Name, facility.Name),
		UserPhone:  created.Phone,
		ProviderID: created.ProviderID,
		FacilityID: facility.FacilityID,
	})
	log.Printf("👨‍⚕️ Provider registered: %s (%s)", created.Name, created.ProviderID)
	return created, nil
}

func (rs *RecordService) GetProvider(id string) (*models.Provider, error) {
	return rs.store.GetProvider(id)
}

func (rs *RecordService) GetProviders() ([]*models.Provider, error) {
	return rs.store.GetProviders()
}

// ResetProviderPin replaces a provider's USSD credential.
func (rs *RecordService) ResetProviderPin(id, pin string) error {
	if !utils.IsValidPIN(pin) {
		return fmt.Errorf("%w: PIN must be exactly 4 digits", ErrValidation)
	}
	provider, err := rs.store.GetProvider(id)
	if err != nil {
		return err
	}
	provider.PIN = pin
	if err := rs.store.UpdateProvider(provider); err != nil {
		return err
	}
	rs.audit.Log(models.ActivityLog{
		Action:     "Provider_PIN_Reset",
		Details:    fmt.Sprintf("PIN reset for %s", provider.Name),
		ProviderID: provider.ProviderID,
	})
	return nil
}

// ToggleProviderStatus flips a provider between active and inactive.
func (rs *RecordService) ToggleProviderStatus(id string) (*models.Provider, error) {
	provider, err := rs.store.GetProvider(id)
	if err != nil {
		return nil, err
	}
	provider.IsActive = !provider.IsActive
	if err := rs.store.UpdateProvider(provider); err != nil {
		return nil, err
	}
	return provider, nil
}

// ---- Patients ----

func (rs *RecordService) CreatePatient(reg models.PatientRegistration) (*models.Patient, error) {
	name := strings.TrimSpace(reg.Name)
	if len(name) < 2 {
		return nil, fmt.Errorf("%w: patient name is too short", ErrValidation)
	}
	phone, err := utils.ValidateGhanaPhone(reg.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if _, err := rs.store.GetPatientByPhone(phone); err == nil {
		return nil, ErrDuplicatePhone
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	patient := &models.Patient{
		Name:             name,
		Phone:            phone,
		DateOfBirth:      reg.DateOfBirth,
		Gender:           reg.Gender,
		BloodType:        reg.BloodType,
		Allergies:        reg.Allergies,
		EmergencyContact: reg.EmergencyContact,
		RegisteredBy:     reg.RegisteredBy,
		IsActive:         true,
	}

	created, err := rs.store.CreatePatient(patient)
	if err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	rs.audit.Log(models.ActivityLog{
		Action:    "Patient_Registration",
		Details:   fmt.Sprintf("Patient %s registered", created.Name),
		UserPhone: created.Phone,
		PatientID: created.PatientID,
	})
	log.Printf("🧑 Patient registered: %s (%s)", created.Name, created.PatientID)

	rs.sms.SendWelcome(created.Phone, created.Name)
	return created, nil
}

func (rs *RecordService) GetPatient(id string) (*models.Patient, error) {
	return rs.store.GetPatient(id)
}

// GetPatientByPhone looks a patient up by canonical local number.
func (rs *RecordService) GetPatientByPhone(phone string) (*models.Patient, error) {
	normalized, err := utils.ValidateGhanaPhone(phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return rs.store.GetPatientByPhone(normalized)
}

func (rs *RecordService) GetPatients() ([]*models.Patient, error) {
	return rs.store.GetPatients()
}

// SearchPatients matches the query as a case-insensitive substring of
// the patient name, phone or ID.
func (rs *RecordService) SearchPatients(query string) ([]models.PatientSummary, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	patients, err := rs.store.GetPatients()
	if err != nil {
		return nil, err
	}

	var results []models.PatientSummary
	for _, p := range patients {
		if !p.IsActive {
			continue
		}
		if strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(p.Phone, query) ||
			strings.Contains(strings.ToLower(p.PatientID), query) {
			results = append(results, p.Summary())
		}
	}
	return results, nil
}

// ---- Medical records ----

// CreateMedicalRecord validates the referenced entities, denormalizes
// their summaries into the record, and updates the patient's last
// visit and the facility's record count.
func (rs *RecordService) CreateMedicalRecord(input models.MedicalRecordInput) (*models.MedicalRecord, error) {
	if strings.TrimSpace(input.ChiefComplaint) == "" {
		return nil, fmt.Errorf("%w: chief complaint is required", ErrValidation)
	}
	if strings.TrimSpace(input.Diagnosis) == "" {
		return nil, fmt.Errorf("%w: diagnosis is required", ErrValidation)
	}

	patient, err := rs.store.GetPatient(input.PatientID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: patient %s not found", ErrValidation, input.PatientID)
		}
		return nil, err
	}
	provider, err := rs.store.GetProvider(input.ProviderID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: provider %s not found", ErrValidation, input.ProviderID)
		}
		return nil, err
	}

	facilityID := input.FacilityID
	if facilityID == "" {
		facilityID = provider.FacilityID
	}
	facility, err := rs.store.GetFacility(facilityID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: facility %s not found", ErrValidation, facilityID)
		}
		return nil, err
	}

	record := &models.MedicalRecord{
		PatientID:           patient.PatientID,
		ProviderID:          provider.ProviderID,
		FacilityID:          facility.FacilityID,
		VisitDate:           input.VisitDate,
		ChiefComplaint:      strings.TrimSpace(input.ChiefComplaint),
		History:             strings.TrimSpace(input.History),
		PhysicalExamination: strings.TrimSpace(input.PhysicalExamination),
		Diagnosis:           strings.TrimSpace(input.Diagnosis),
		Treatment:           strings.TrimSpace(input.Treatment),
		Prescription:        strings.TrimSpace(input.Prescription),
		FollowUp:            strings.TrimSpace(input.FollowUp),
		Notes:               strings.TrimSpace(input.Notes),
		Patient:             patient.Summary(),
		Provider:            provider.Summary(),
		Facility:            facility.Summary(),
	}

	created, err := rs.store.CreateMedicalRecord(record)
	if err != nil {
		return nil, fmt.Errorf("failed to create medical record: %w", err)
	}

	now := time.Now()
	patient.LastVisit = &now
	if err := rs.store.UpdatePatient(patient); err != nil {
		log.Printf("Failed to update last visit for %s: %v", patient.PatientID, err)
	}
	facility.RecordsCount++
	if err := rs.store.UpdateFacility(facility); err != nil {
		log.Printf("Failed to bump record count for %s: %v", facility.FacilityID, err)
	}

	rs.audit.Log(models.ActivityLog{
		Action:     "Medical_Record_Created",
		Details:    fmt.Sprintf("Record for %s by %s (%s)", patient.Name, provider.Name, created.Diagnosis),
		UserPhone:  provider.Phone,
		PatientID:  patient.PatientID,
		ProviderID: provider.ProviderID,
		FacilityID: facility.FacilityID,
		RecordID:   created.RecordID,
	})
	log.Printf("📋 Medical record created: %s (patient %s)", created.RecordID, patient.PatientID)
	return created, nil
}

func (rs *RecordService) GetMedicalRecord(id string) (*models.MedicalRecord, error) {
	return rs.store.GetMedicalRecord(id)
}

func (rs *RecordService) GetPatientRecords(patientID string) ([]*models.MedicalRecord, error) {
	return rs.store.GetRecordsByPatient(patientID)
}

func (rs *RecordService) GetRecentRecords(limit int) ([]*models.MedicalRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	return rs.store.GetRecentRecords(limit)
}

// GetRecentRecordsByProvider filters the recent feed down to one
// provider, for the USSD "my recent records" view.
func (rs *RecordService) GetRecentRecordsByProvider(providerID string, limit int) ([]*models.MedicalRecord, error) {
	records, err := rs.store.GetRecentRecords(100)
	if err != nil {
		return nil, err
	}
	var mine []*models.MedicalRecord
	for _, r := range records {
		if r.ProviderID == providerID {
			mine = append(mine, r)
			if len(mine) >= limit {
				break
			}
		}
	}
	return mine, nil
}

// DashboardStats aggregates counts for the admin console.
func (rs *RecordService) DashboardStats() (*models.DashboardStats, error) {
	facilities, err := rs.store.GetFacilities()
	if err != nil {
		return nil, err
	}
	providers, err := rs.store.GetProviders()
	if err != nil {
		return nil, err
	}
	patients, err := rs.store.GetPatients()
	if err != nil {
		return nil, err
	}
	recent, err := rs.store.GetRecentRecords(5)
	if err != nil {
		return nil, err
	}

	stats := &models.DashboardStats{
		TotalFacilities: int64(len(facilities)),
		TotalProviders:  int64(len(providers)),
		TotalPatients:   int64(len(patients)),
		RecentRecords:   recent,
		GeneratedAt:     time.Now(),
	}
	for _, f := range facilities {
		if f.IsActive {
			stats.ActiveFacilities++
		}
	}
	for _, p := range providers {
		if p.IsActive {
			stats.ActiveProviders++
		}
	}
	return stats, nil
}

// CleanupInvalidRecords removes medical records whose patient no
// longer exists, or that are missing mandatory clinical fields.
// Returns how many were removed.
func (rs *RecordService) CleanupInvalidRecords() (int, error) {
	records, err := rs.store.GetRecentRecords(1000)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, r := range records {
		reason := ""
		if strings.TrimSpace(r.ChiefComplaint) == "" || strings.TrimSpace(r.Diagnosis) == "" {
			reason = "blank mandatory fields"
		} else if _, err := rs.store.GetPatient(r.PatientID); errors.Is(err, storage.ErrNotFound) {
			reason = "patient " + r.PatientID + " missing"
		}
		if reason == "" {
			continue
		}
		if err := rs.store.DeleteMedicalRecord(r.RecordID); err != nil {
			log.Printf("Failed to delete invalid record %s: %v", r.RecordID, err)
			continue
		}
		log.Printf("🧹 Removed invalid record %s (%s)", r.RecordID, reason)
		removed++
	}
	return removed, nil
}
