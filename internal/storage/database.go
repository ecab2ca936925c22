package storage

import (
	"errors"

	"gorm.io/gorm"

	"github.com/afya-ehr/afya-backend/internal/models"
)

// DatabaseStore persists all data through GORM
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a store backed by the given database
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Session operations

func (d *DatabaseStore) CreateSession(session *models.Session) error {
	return d.db.Create(session).Error
}

func (d *DatabaseStore) GetSession(sessionID string) (*models.Session, error) {
	var session models.Session
	if err := d.db.Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

// PatchSession is a read-modify-write merge. Concurrent turns for the
// same session id are last-writer-wins; the upstream gateway delivers
// turns serially.
func (d *DatabaseStore) PatchSession(sessionID string, patch SessionPatch) (*models.Session, error) {
	var session models.Session
	if err := d.db.Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		return nil, translate(err)
	}

	ApplyPatch(&session, patch)
	if err := d.db.Save(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (d *DatabaseStore) DeleteSession(sessionID string) error {
	return d.db.Unscoped().Where("session_id = ?", sessionID).Delete(&models.Session{}).Error
}

func (d *DatabaseStore) GetActiveSessions() ([]*models.Session, error) {
	var sessions []*models.Session
	if err := d.db.Where("state = ?", models.SessionActive).Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// Facility operations

func (d *DatabaseStore) CreateFacility(facility *models.Facility) (*models.Facility, error) {
	var count int64
	d.db.Model(&models.Facility{}).Where("phone = ?", facility.Phone).Count(&count)
	if count > 0 {
		return nil, ErrDuplicate
	}
	if err := d.db.Create(facility).Error; err != nil {
		return nil, err
	}
	return facility, nil
}

func (d *DatabaseStore) GetFacility(id string) (*models.Facility, error) {
	var facility models.Facility
	if err := d.db.Where("facility_id = ?", id).First(&facility).Error; err != nil {
		return nil, translate(err)
	}
	return &facility, nil
}

func (d *DatabaseStore) GetFacilityByPhone(phone string) (*models.Facility, error) {
	var facility models.Facility
	if err := d.db.Where("phone = ?", phone).First(&facility).Error; err != nil {
		return nil, translate(err)
	}
	return &facility, nil
}

func (d *DatabaseStore) GetFacilities() ([]*models.Facility, error) {
	var facilities []*models.Facility
	if err := d.db.Order("created_at DESC").Find(&facilities).Error; err != nil {
		return nil, err
	}
	return facilities, nil
}

func (d *DatabaseStore) UpdateFacility(facility *models.Facility) error {
	return d.db.Save(facility).Error
}

func (d *DatabaseStore) DeleteFacility(id string) error {
	return d.db.Unscoped().Where("facility_id = ?", id).Delete(&models.Facility{}).Error
}

// Provider operations

func (d *DatabaseStore) CreateProvider(provider *models.Provider) (*models.Provider, error) {
	var count int64
	d.db.Model(&models.Provider{}).Where("phone = ?", provider.Phone).Count(&count)
	if count > 0 {
		return nil, ErrDuplicate
	}
	if err := d.db.Create(provider).Error; err != nil {
		return nil, err
	}
	return provider, nil
}

func (d *DatabaseStore) GetProvider(id string) (*models.Provider, error) {
	var provider models.Provider
	if err := d.db.Where("provider_id = ?", id).First(&provider).Error; err != nil {
		return nil, translate(err)
	}
	return &provider, nil
}

func (d *DatabaseStore) GetProviderByPhone(phone string) (*models.Provider, error) {
	var provider models.Provider
	if err := d.db.Where("phone = ?", phone).First(&provider).Error; err != nil {
		return nil, translate(err)
	}
	return &provider, nil
}

func (d *DatabaseStore) GetProviders() ([]*models.Provider, error) {
	var providers []*models.Provider
	if err := d.db.Order("created_at DESC").Find(&providers).Error; err != nil {
		return nil, err
	}
	return providers, nil
}

func (d *DatabaseStore) UpdateProvider(provider *models.Provider) error {
	return d.db.Save(provider).Error
}

func (d *DatabaseStore) DeleteProvider(id string) error {
	return d.db.Unscoped().Where("provider_id = ?", id).Delete(&models.Provider{}).Error
}

// Patient operations

func (d *DatabaseStore) CreatePatient(patient *models.Patient) (*models.Patient, error) {
	var count int64
	d.db.Model(&models.Patient{}).Where("phone = ?", patient.Phone).Count(&count)
	if count > 0 {
		return nil, ErrDuplicate
	}
	if err := d.db.Create(patient).Error; err != nil {
		return nil, err
	}
	return patient, nil
}

func (d *DatabaseStore) GetPatient(id string) (*models.Patient, error) {
	var patient models.Patient
	if err := d.db.Where("patient_id = ?", id).First(&patient).Error; err != nil {
		return nil, translate(err)
	}
	return &patient, nil
}

func (d *DatabaseStore) GetPatientByPhone(phone string) (*models.Patient, error) {
	var patient models.Patient
	if err := d.db.Where("phone = ?", phone).First(&patient).Error; err != nil {
		return nil, translate(err)
	}
	return &patient, nil
}

func (d *DatabaseStore) GetPatients() ([]*models.Patient, error) {
	var patients []*models.Patient
	if err := d.db.Order("created_at DESC").Find(&patients).Error; err != nil {
		return nil, err
	}
	return patients, nil
}

func (d *DatabaseStore) UpdatePatient(patient *models.Patient) error {
	return d.db.Save(patient).Error
}

func (d *DatabaseStore) DeletePatient(id string) error {
	return d.db.Unscoped().Where("patient_id = ?", id).Delete(&models.Patient{}).Error
}

// Medical record operations

func (d *DatabaseStore) CreateMedicalRecord(record *models.MedicalRecord) (*models.MedicalRecord, error) {
	if err := d.db.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (d *DatabaseStore) GetMedicalRecord(id string) (*models.MedicalRecord, error) {
	var record models.MedicalRecord
	if err := d.db.Where("record_id = ?", id).First(&record).Error; err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

func (d *DatabaseStore) GetRecordsByPatient(patientID string) ([]*models.MedicalRecord, error) {
	var records []*models.MedicalRecord
	if err := d.db.Where("patient_id = ?", patientID).Order("visit_date DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (d *DatabaseStore) GetRecentRecords(limit int) ([]*models.MedicalRecord, error) {
	var records []*models.MedicalRecord
	q := d.db.Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (d *DatabaseStore) DeleteMedicalRecord(id string) error {
	return d.db.Unscoped().Where("record_id = ?", id).Delete(&models.MedicalRecord{}).Error
}

// Activity log operations

func (d *DatabaseStore) CreateActivityLog(entry *models.ActivityLog) error {
	return d.db.Create(entry).Error
}

func (d *DatabaseStore) GetLogs(limit int) ([]*models.ActivityLog, error) {
	var logs []*models.ActivityLog
	q := d.db.Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
