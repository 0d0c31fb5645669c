package encounters

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medicore/hms/internal/domain/catalog"
)

// EarningsCalculator records doctor commissions for billable events. All
// methods are best-effort: implementations log failures and never return
// them, so commission bookkeeping can never fail the billing action that
// triggered it.
type EarningsCalculator interface {
	CalculateForService(ctx context.Context, s *PatientService)
	CalculateForOpdVisit(ctx context.Context, v *OpdVisit)
	CalculateForPathologyOrder(ctx context.Context, o *PathologyOrder)
}

// ServiceCatalog is the catalog lookup surface this package needs,
// satisfied by catalog.Directory.
type ServiceCatalog interface {
	GetService(ctx context.Context, id uuid.UUID) (*catalog.Service, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*catalog.Doctor, error)
}

type Service struct {
	services   PatientServiceRepository
	opdVisits  OpdVisitRepository
	pathOrders PathologyOrderRepository
	admissions AdmissionRepository
	catalog    ServiceCatalog
	earnings   EarningsCalculator
}

func NewService(
	services PatientServiceRepository,
	opdVisits OpdVisitRepository,
	pathOrders PathologyOrderRepository,
	admissions AdmissionRepository,
	cat ServiceCatalog,
	earnings EarningsCalculator,
) *Service {
	return &Service{
		services:   services,
		opdVisits:  opdVisits,
		pathOrders: pathOrders,
		admissions: admissions,
		catalog:    cat,
		earnings:   earnings,
	}
}

// CreateService books one catalog service for a patient, snapshotting the
// catalog row's name, category, type and price. The doctor's commission is
// calculated after the row is committed and never blocks the booking.
func (s *Service) CreateService(ctx context.Context, ps *PatientService) error {
	if ps.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if ps.ServiceID == uuid.Nil {
		return fmt.Errorf("service_id is required")
	}
	svc, err := s.catalog.GetService(ctx, ps.ServiceID)
	if err != nil {
		return fmt.Errorf("service lookup: %w", err)
	}
	ps.ServiceName = svc.Name
	ps.ServiceCategory = svc.Category
	ps.ServiceType = svc.ServiceType
	if ps.Price == 0 {
		ps.Price = svc.Price
	}
	if ps.Quantity <= 0 {
		ps.Quantity = 1
	}
	if ps.Quantity > 1 && ps.CalculatedAmount == nil {
		amt := ps.Price * float64(ps.Quantity)
		ps.CalculatedAmount = &amt
	}
	if ps.ScheduledDate.IsZero() {
		ps.ScheduledDate = time.Now()
	}
	if ps.Status == "" {
		ps.Status = StatusScheduled
	}
	if err := s.services.Create(ctx, ps); err != nil {
		return err
	}
	s.earnings.CalculateForService(ctx, ps)
	return nil
}

func (s *Service) GetService(ctx context.Context, id uuid.UUID) (*PatientService, error) {
	return s.services.GetByID(ctx, id)
}

func (s *Service) UpdateService(ctx context.Context, ps *PatientService) error {
	if ps.Quantity <= 0 {
		ps.Quantity = 1
	}
	return s.services.Update(ctx, ps)
}

func (s *Service) ListServices(ctx context.Context, patientID, doctorID *uuid.UUID, limit, offset int) ([]*PatientService, int, error) {
	return s.services.List(ctx, patientID, doctorID, limit, offset)
}

// CreateOpdVisit schedules a consultation. A zero fee falls back to the
// doctor's default consultation fee.
func (s *Service) CreateOpdVisit(ctx context.Context, v *OpdVisit) error {
	if v.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if v.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if v.ConsultationFee < 0 {
		return fmt.Errorf("consultation fee must not be negative")
	}
	if v.ConsultationFee == 0 {
		doc, err := s.catalog.GetDoctor(ctx, v.DoctorID)
		if err != nil {
			return fmt.Errorf("doctor lookup: %w", err)
		}
		v.ConsultationFee = doc.ConsultationFee
	}
	if v.VisitDate.IsZero() {
		v.VisitDate = time.Now()
	}
	if v.Status == "" {
		v.Status = StatusScheduled
	}
	if err := s.opdVisits.Create(ctx, v); err != nil {
		return err
	}
	s.earnings.CalculateForOpdVisit(ctx, v)
	return nil
}

func (s *Service) GetOpdVisit(ctx context.Context, id uuid.UUID) (*OpdVisit, error) {
	return s.opdVisits.GetByID(ctx, id)
}

func (s *Service) ListOpdVisits(ctx context.Context, patientID, doctorID *uuid.UUID, limit, offset int) ([]*OpdVisit, int, error) {
	return s.opdVisits.List(ctx, patientID, doctorID, limit, offset)
}

// CreatePathologyOrder places an order of one or more tests. The order's
// total is always the sum of its test prices; callers cannot set it.
func (s *Service) CreatePathologyOrder(ctx context.Context, o *PathologyOrder) error {
	if o.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if len(o.Tests) == 0 {
		return fmt.Errorf("at least one test is required")
	}
	var total float64
	for _, t := range o.Tests {
		if t.TestName == "" {
			return fmt.Errorf("test name is required")
		}
		if t.Price < 0 {
			return fmt.Errorf("test price must not be negative")
		}
		total += t.Price
	}
	o.TotalPrice = total
	if o.OrderDate.IsZero() {
		o.OrderDate = time.Now()
	}
	if o.Status == "" {
		o.Status = StatusScheduled
	}
	if err := s.pathOrders.Create(ctx, o); err != nil {
		return err
	}
	s.earnings.CalculateForPathologyOrder(ctx, o)
	return nil
}

func (s *Service) GetPathologyOrder(ctx context.Context, id uuid.UUID) (*PathologyOrder, error) {
	return s.pathOrders.GetByID(ctx, id)
}

func (s *Service) ListPathologyOrders(ctx context.Context, patientID, doctorID *uuid.UUID, limit, offset int) ([]*PathologyOrder, int, error) {
	return s.pathOrders.List(ctx, patientID, doctorID, limit, offset)
}

// CreateAdmission opens a stay episode.
func (s *Service) CreateAdmission(ctx context.Context, a *Admission) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.DailyCost < 0 || a.InitialDeposit < 0 {
		return fmt.Errorf("daily cost and deposit must not be negative")
	}
	if a.AdmissionDate.IsZero() {
		a.AdmissionDate = time.Now()
	}
	a.Status = AdmissionStatusAdmitted
	a.DischargeDate = nil
	return s.admissions.Create(ctx, a)
}

func (s *Service) GetAdmission(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return s.admissions.GetByID(ctx, id)
}

func (s *Service) ListAdmissions(ctx context.Context, patientID *uuid.UUID, status string, limit, offset int) ([]*Admission, int, error) {
	return s.admissions.List(ctx, patientID, status, limit, offset)
}

// AddAdmissionPayment records an extra payment against an open stay.
func (s *Service) AddAdmissionPayment(ctx context.Context, id uuid.UUID, amount float64) (*Admission, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("payment amount must be positive")
	}
	a, err := s.admissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.AdditionalPayment += amount
	if err := s.admissions.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ApplyAdmissionDiscount adds to the stay's running discount.
func (s *Service) ApplyAdmissionDiscount(ctx context.Context, id uuid.UUID, amount float64) (*Admission, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("discount amount must be positive")
	}
	a, err := s.admissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.TotalDiscount += amount
	if err := s.admissions.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Discharge closes a stay. Discharging twice returns the episode unchanged.
func (s *Service) Discharge(ctx context.Context, id uuid.UUID, at time.Time) (*Admission, error) {
	a, err := s.admissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == AdmissionStatusDischarged {
		return a, nil
	}
	if at.IsZero() {
		at = time.Now()
	}
	if at.Before(a.AdmissionDate) {
		return nil, fmt.Errorf("discharge date precedes admission date")
	}
	a.DischargeDate = &at
	a.Status = AdmissionStatusDischarged
	if err := s.admissions.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
