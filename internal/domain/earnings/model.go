package earnings

import (
	"time"

	"github.com/google/uuid"

	"github.com/medicore/hms/internal/domain/rates"
)

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
)

// SourceType tags which kind of billable event an earning came from. The
// (SourceEventType, SourceEventID) pair uniquely identifies the event and is
// backed by a unique constraint, so the same event can never earn twice.
type SourceType string

const (
	SourceService   SourceType = "service"
	SourceOpd       SourceType = "opd"
	SourcePathology SourceType = "pathology"
)

// Earning is one doctor commission for one billable event. Rate type and
// amount are copied from the rule at calculation time; editing the rule later
// never changes an existing earning.
type Earning struct {
	ID              uuid.UUID      `db:"id" json:"id"`
	EarningCode     string         `db:"earning_code" json:"earning_code"`
	DoctorID        uuid.UUID      `db:"doctor_id" json:"doctor_id"`
	PatientID       uuid.UUID      `db:"patient_id" json:"patient_id"`
	SourceEventType SourceType     `db:"source_event_type" json:"source_event_type"`
	SourceEventID   uuid.UUID      `db:"source_event_id" json:"source_event_id"`
	ServiceName     string         `db:"service_name" json:"service_name"`
	ServiceCategory string         `db:"service_category" json:"service_category"`
	ServiceDate     time.Time      `db:"service_date" json:"service_date"`
	RateType        rates.RateType `db:"rate_type" json:"rate_type"`
	RateAmount      float64        `db:"rate_amount" json:"rate_amount"`
	ServicePrice    float64        `db:"service_price" json:"service_price"`
	EarnedAmount    float64        `db:"earned_amount" json:"earned_amount"`
	Status          string         `db:"status" json:"status"`
	PaymentID       *uuid.UUID     `db:"payment_id" json:"payment_id,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// DoctorPayment settles one or more earnings. Immutable once created.
type DoctorPayment struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PaymentCode   string    `db:"payment_code" json:"payment_code"`
	DoctorID      uuid.UUID `db:"doctor_id" json:"doctor_id"`
	PaymentDate   time.Time `db:"payment_date" json:"payment_date"`
	TotalAmount   float64   `db:"total_amount" json:"total_amount"`
	PaymentMethod string    `db:"payment_method" json:"payment_method"`
	StartDate     time.Time `db:"start_date" json:"start_date"`
	EndDate       time.Time `db:"end_date" json:"end_date"`
	EarningsCount int       `db:"earnings_count" json:"earnings_count"`
	ProcessedBy   string    `db:"processed_by" json:"processed_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// PayResult reports a single mark-paid. AlreadyPaid is a benign outcome, not
// an error: the earning was settled before and nothing changed.
type PayResult struct {
	Earning     *Earning       `json:"earning"`
	Payment     *DoctorPayment `json:"payment,omitempty"`
	AlreadyPaid bool           `json:"already_paid"`
}

// BulkPayResult reports a mark-all-pending-paid. NothingToPay means the
// doctor had no pending earnings and no payment was created.
type BulkPayResult struct {
	Payment      *DoctorPayment `json:"payment,omitempty"`
	Count        int            `json:"count"`
	NothingToPay bool           `json:"nothing_to_pay"`
}

// RecalcResult reports a backfill pass: Processed events were examined,
// Created earnings were newly written.
type RecalcResult struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
}
