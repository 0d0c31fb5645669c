package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Directory is the service layer over the patient, doctor and service
// catalogs. Other domains use it for lookups when pricing and rating events.
type Directory struct {
	services ServiceRepository
	doctors  DoctorRepository
	patients PatientRepository
}

func NewDirectory(services ServiceRepository, doctors DoctorRepository, patients PatientRepository) *Directory {
	return &Directory{services: services, doctors: doctors, patients: patients}
}

var validServiceTypes = map[string]bool{
	ServiceTypeGeneral: true, ServiceTypeAdmission: true,
}

func (s *Directory) CreateService(ctx context.Context, svc *Service) error {
	if svc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if svc.Category == "" {
		return fmt.Errorf("category is required")
	}
	if svc.ServiceType == "" {
		svc.ServiceType = ServiceTypeGeneral
	}
	if !validServiceTypes[svc.ServiceType] {
		return fmt.Errorf("invalid service type: %s", svc.ServiceType)
	}
	if svc.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	svc.IsActive = true
	return s.services.Create(ctx, svc)
}

func (s *Directory) GetService(ctx context.Context, id uuid.UUID) (*Service, error) {
	return s.services.GetByID(ctx, id)
}

func (s *Directory) GetServiceByNameAndCategory(ctx context.Context, name, category string) (*Service, error) {
	return s.services.GetByNameAndCategory(ctx, name, category)
}

func (s *Directory) UpdateService(ctx context.Context, svc *Service) error {
	if svc.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	if svc.ServiceType != "" && !validServiceTypes[svc.ServiceType] {
		return fmt.Errorf("invalid service type: %s", svc.ServiceType)
	}
	return s.services.Update(ctx, svc)
}

func (s *Directory) ListServices(ctx context.Context, category string, activeOnly bool, limit, offset int) ([]*Service, int, error) {
	return s.services.List(ctx, category, activeOnly, limit, offset)
}

func (s *Directory) CreateDoctor(ctx context.Context, d *Doctor) error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if d.ConsultationFee < 0 {
		return fmt.Errorf("consultation fee must not be negative")
	}
	d.IsActive = true
	return s.doctors.Create(ctx, d)
}

func (s *Directory) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Directory) UpdateDoctor(ctx context.Context, d *Doctor) error {
	if d.ConsultationFee < 0 {
		return fmt.Errorf("consultation fee must not be negative")
	}
	return s.doctors.Update(ctx, d)
}

func (s *Directory) ListDoctors(ctx context.Context, activeOnly bool, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, activeOnly, limit, offset)
}

func (s *Directory) CreatePatient(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.patients.Create(ctx, p)
}

func (s *Directory) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Directory) UpdatePatient(ctx context.Context, p *Patient) error {
	return s.patients.Update(ctx, p)
}

func (s *Directory) ListPatients(ctx context.Context, search string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, search, limit, offset)
}
