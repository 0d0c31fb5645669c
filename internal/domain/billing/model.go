package billing

import (
	"time"

	"github.com/google/uuid"
)

// PatientPayment is money received from a patient. Immutable once created;
// the receipt code is the reference handed to the patient.
type PatientPayment struct {
	ID            uuid.UUID `db:"id" json:"id"`
	ReceiptCode   string    `db:"receipt_code" json:"receipt_code"`
	PatientID     uuid.UUID `db:"patient_id" json:"patient_id"`
	Amount        float64   `db:"amount" json:"amount"`
	PaymentDate   time.Time `db:"payment_date" json:"payment_date"`
	PaymentMethod string    `db:"payment_method" json:"payment_method"`
	Reason        *string   `db:"reason" json:"reason,omitempty"`
	ProcessedBy   string    `db:"processed_by" json:"processed_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// PatientDiscount is a staff-approved reduction of a patient's bill.
type PatientDiscount struct {
	ID           uuid.UUID `db:"id" json:"id"`
	DiscountCode string    `db:"discount_code" json:"discount_code"`
	PatientID    uuid.UUID `db:"patient_id" json:"patient_id"`
	Amount       float64   `db:"amount" json:"amount"`
	DiscountDate time.Time `db:"discount_date" json:"discount_date"`
	Reason       *string   `db:"reason" json:"reason,omitempty"`
	ProcessedBy  string    `db:"processed_by" json:"processed_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// LineKind tags what a ledger line was derived from.
type LineKind string

const (
	LineService          LineKind = "service"
	LineOpd              LineKind = "opd"
	LinePathology        LineKind = "pathology"
	LineAdmissionService LineKind = "admission_service"
	LinePayment          LineKind = "payment"
	LineDiscount         LineKind = "discount"
)

// LedgerLine is one computed entry in a patient's financial ledger. Charges
// carry positive amounts, payments and discounts negative ones. Lines are
// never persisted; the ledger is rebuilt from source tables on every request.
type LedgerLine struct {
	Kind        LineKind  `json:"kind"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	SourceID    uuid.UUID `json:"source_id"`
}

// PatientLedger is the aggregate view. The totals are all positive;
// Balance = TotalCharges - TotalPayments - TotalDiscounts, which equals the
// sum of the signed line amounts.
type PatientLedger struct {
	PatientID      uuid.UUID     `json:"patient_id"`
	PatientName    string        `json:"patient_name"`
	PatientCode    string        `json:"patient_code"`
	Lines          []*LedgerLine `json:"lines"`
	TotalCharges   float64       `json:"total_charges"`
	TotalPayments  float64       `json:"total_payments"`
	TotalDiscounts float64       `json:"total_discounts"`
	Balance        float64       `json:"balance"`
}
