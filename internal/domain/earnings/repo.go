package earnings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("earnings: record not found")

	// ErrDuplicateSource is returned by Create when an earning for the same
	// source event already exists. The unique constraint on
	// (source_event_type, source_event_id) raises it under concurrent
	// calculation; callers treat it as "already calculated" and re-fetch.
	ErrDuplicateSource = errors.New("earnings: earning already exists for source event")
)

type EarningRepository interface {
	Create(ctx context.Context, e *Earning) error
	GetByID(ctx context.Context, id uuid.UUID) (*Earning, error)
	// GetBySource returns (nil, nil) when no earning exists for the event.
	GetBySource(ctx context.Context, sourceType SourceType, sourceID uuid.UUID) (*Earning, error)
	List(ctx context.Context, doctorID *uuid.UUID, status string, limit, offset int) ([]*Earning, int, error)

	// MarkPaid settles one pending earning: inserts the payment and flips
	// the earning to paid in one transaction.
	MarkPaid(ctx context.Context, e *Earning, p *DoctorPayment) error
	// PayAllPending settles every pending earning for a doctor in one
	// transaction, filling p's total, date range and count from the locked
	// set. Returns (nil, nil) when the doctor has nothing pending.
	PayAllPending(ctx context.Context, doctorID uuid.UUID, p *DoctorPayment) ([]*Earning, error)

	GetPaymentByID(ctx context.Context, id uuid.UUID) (*DoctorPayment, error)
	ListPayments(ctx context.Context, doctorID *uuid.UUID, limit, offset int) ([]*DoctorPayment, int, error)

	// PendingTotal sums the unpaid earned amounts per doctor since a date.
	PendingTotal(ctx context.Context, doctorID uuid.UUID, since time.Time) (float64, error)
}
