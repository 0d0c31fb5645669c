package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("billing: record not found")

type PatientPaymentRepository interface {
	Create(ctx context.Context, p *PatientPayment) error
	GetByID(ctx context.Context, id uuid.UUID) (*PatientPayment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*PatientPayment, error)
	List(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*PatientPayment, int, error)
}

type PatientDiscountRepository interface {
	Create(ctx context.Context, d *PatientDiscount) error
	GetByID(ctx context.Context, id uuid.UUID) (*PatientDiscount, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*PatientDiscount, error)
	List(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*PatientDiscount, int, error)
}
