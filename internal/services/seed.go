package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/afya-ehr/afya-backend/internal/models"
)

// SeedSampleData loads the demo facilities, providers and patients
// used for development and USSD testing. Entities that already exist
// are skipped, so seeding is safe to repeat.
func SeedSampleData(records *RecordService) error {
	facilities := []models.FacilityRegistration{
		{
			Name:         "Korle Bu Teaching Hospital",
			FacilityType: "Hospital",
			Location:     "Accra",
			Phone:        "0302674063",
			Description:  "Ghana's premier teaching hospital",
		},
		{
			Name:         "Ridge Hospital",
			FacilityType: "Hospital",
			Location:     "Accra",
			Phone:        "0302228382",
			Description:  "Greater Accra regional hospital",
		},
		{
			Name:         "Adabraka Polyclinic",
			FacilityType: "Clinic",
			Location:     "Adabraka, Accra",
			Phone:        "0302223468",
			Description:  "Community polyclinic",
		},
	}

	var facilityIDs []string
	for _, reg := range facilities {
		created, err := records.CreateFacility(reg)
		if err != nil {
			if errors.Is(err, ErrDuplicatePhone) {
				existing, lookupErr := records.store.GetFacilityByPhone(reg.Phone)
				if lookupErr != nil {
					return lookupErr
				}
				facilityIDs = append(facilityIDs, existing.FacilityID)
				continue
			}
			return fmt.Errorf("failed to seed facility %s: %w", reg.Name, err)
		}
		facilityIDs = append(facilityIDs, created.FacilityID)
	}

	providers := []models.ProviderRegistration{
		{
			Name:           "Dr. Kwame Asante",
			Phone:          "0244123456",
			Specialization: "General Medicine",
			FacilityID:     facilityIDs[0],
			PIN:            "1234",
		},
		{
			Name:           "Dr. Ama Darko",
			Phone:          "0244234567",
			Specialization: "Pediatrics",
			FacilityID:     facilityIDs[1],
			PIN:            "2345",
		},
		{
			Name:           "Nurse Kofi Mensah",
			Phone:          "0244345678",
			Specialization: "Community Health",
			FacilityID:     facilityIDs[2],
			PIN:            "3456",
		},
	}
	for _, reg := range providers {
		if _, err := records.CreateProvider(reg); err != nil && !errors.Is(err, ErrDuplicatePhone) {
			return fmt.Errorf("failed to seed provider %s: %w", reg.Name, err)
		}
	}

	patients := []models.PatientRegistration{
		{
			Name:        "Akosua Boateng",
			Phone:       "0201111111",
			DateOfBirth: "15/03/1985",
			Gender:      "Female",
			BloodType:   "O+",
		},
		{
			Name:             "Yaw Owusu",
			Phone:            "0202222222",
			DateOfBirth:      "22/07/1990",
			Gender:           "Male",
			Allergies:        "Penicillin",
			EmergencyContact: "0201111111",
		},
		{
			Name:        "Efua Mensah",
			Phone:       "0203333333",
			DateOfBirth: "08/12/1978",
			Gender:      "Female",
			BloodType:   "A-",
		},
	}
	for _, reg := range patients {
		if _, err := records.CreatePatient(reg); err != nil && !errors.Is(err, ErrDuplicatePhone) {
			return fmt.Errorf("failed to seed patient %s: %w", reg.Name, err)
		}
	}

	log.Printf("🌱 Sample data seeded: %d facilities, %d providers, %d patients",
		len(facilities), len(providers), len(patients))
	return nil
}
