package encounters

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"

	AdmissionStatusAdmitted   = "admitted"
	AdmissionStatusDischarged = "discharged"
)

// PatientService is one scheduled or completed non-OPD, non-pathology
// service for a patient. Name, category and type are snapshotted from the
// catalog at booking time so later catalog edits do not rewrite history.
type PatientService struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID         *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	ServiceID        uuid.UUID  `db:"service_id" json:"service_id"`
	ServiceName      string     `db:"service_name" json:"service_name"`
	ServiceCategory  string     `db:"service_category" json:"service_category"`
	ServiceType      string     `db:"service_type" json:"service_type"`
	Price            float64    `db:"price" json:"price"`
	Quantity         int        `db:"quantity" json:"quantity"`
	CalculatedAmount *float64   `db:"calculated_amount" json:"calculated_amount,omitempty"`
	ScheduledDate    time.Time  `db:"scheduled_date" json:"scheduled_date"`
	Status           string     `db:"status" json:"status"`
	Notes            *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// BillableAmount is the base price commissions and ledger charges are
// computed from: the quantity-adjusted calculated amount when one was
// recorded, otherwise the unit price.
func (s *PatientService) BillableAmount() float64 {
	if s.CalculatedAmount != nil {
		return *s.CalculatedAmount
	}
	return s.Price
}

// OpdVisit is an outpatient consultation.
type OpdVisit struct {
	ID              uuid.UUID `db:"id" json:"id"`
	VisitCode       string    `db:"visit_code" json:"visit_code"`
	PatientID       uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID        uuid.UUID `db:"doctor_id" json:"doctor_id"`
	ConsultationFee float64   `db:"consultation_fee" json:"consultation_fee"`
	VisitDate       time.Time `db:"visit_date" json:"visit_date"`
	Status          string    `db:"status" json:"status"`
	Notes           *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// PathologyOrder is a batch of tests ordered together. Billing and doctor
// commission both work at the order level; TotalPrice is the sum of the
// order's test prices and never changes after the order is placed.
type PathologyOrder struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	OrderCode  string     `db:"order_code" json:"order_code"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID   *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	TotalPrice float64    `db:"total_price" json:"total_price"`
	OrderDate  time.Time  `db:"order_date" json:"order_date"`
	Status     string     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`

	Tests []*PathologyOrderTest `db:"-" json:"tests,omitempty"`
}

type PathologyOrderTest struct {
	ID       uuid.UUID `db:"id" json:"id"`
	OrderID  uuid.UUID `db:"order_id" json:"order_id"`
	TestName string    `db:"test_name" json:"test_name"`
	Price    float64   `db:"price" json:"price"`
}

// Admission is one hospital stay. Deposit, additional payment and discount
// live on the episode itself and feed the patient ledger directly.
type Admission struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	AdmissionCode     string     `db:"admission_code" json:"admission_code"`
	PatientID         uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID          *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	WardName          *string    `db:"ward_name" json:"ward_name,omitempty"`
	BedNumber         *string    `db:"bed_number" json:"bed_number,omitempty"`
	DailyCost         float64    `db:"daily_cost" json:"daily_cost"`
	InitialDeposit    float64    `db:"initial_deposit" json:"initial_deposit"`
	AdditionalPayment float64    `db:"additional_payment" json:"additional_payment"`
	TotalDiscount     float64    `db:"total_discount" json:"total_discount"`
	AdmissionDate     time.Time  `db:"admission_date" json:"admission_date"`
	DischargeDate     *time.Time `db:"discharge_date" json:"discharge_date,omitempty"`
	Status            string     `db:"status" json:"status"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}
