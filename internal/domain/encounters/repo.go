package encounters

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("encounters: record not found")

type PatientServiceRepository interface {
	Create(ctx context.Context, s *PatientService) error
	GetByID(ctx context.Context, id uuid.UUID) (*PatientService, error)
	Update(ctx context.Context, s *PatientService) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*PatientService, error)
	// ListWithDoctor returns the services that have a doctor assigned,
	// optionally restricted to one doctor. Used by earnings backfill.
	ListWithDoctor(ctx context.Context, doctorID *uuid.UUID) ([]*PatientService, error)
	List(ctx context.Context, patientID, doctorID *uuid.UUID, limit, offset int) ([]*PatientService, int, error)
}

type OpdVisitRepository interface {
	Create(ctx context.Context, v *OpdVisit) error
	GetByID(ctx context.Context, id uuid.UUID) (*OpdVisit, error)
	Update(ctx context.Context, v *OpdVisit) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*OpdVisit, error)
	ListByDoctor(ctx context.Context, doctorID *uuid.UUID) ([]*OpdVisit, error)
	List(ctx context.Context, patientID, doctorID *uuid.UUID, limit, offset int) ([]*OpdVisit, int, error)
}

type PathologyOrderRepository interface {
	// Create persists the order and its tests in one transaction.
	Create(ctx context.Context, o *PathologyOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*PathologyOrder, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*PathologyOrder, error)
	ListByDoctor(ctx context.Context, doctorID *uuid.UUID) ([]*PathologyOrder, error)
	List(ctx context.Context, patientID, doctorID *uuid.UUID, limit, offset int) ([]*PathologyOrder, int, error)
}

type AdmissionRepository interface {
	Create(ctx context.Context, a *Admission) error
	GetByID(ctx context.Context, id uuid.UUID) (*Admission, error)
	Update(ctx context.Context, a *Admission) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Admission, error)
	List(ctx context.Context, patientID *uuid.UUID, status string, limit, offset int) ([]*Admission, int, error)
}
