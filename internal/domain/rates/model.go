package rates

import (
	"time"

	"github.com/google/uuid"
)

// RateType determines how a rule's amount is applied to a billable event.
type RateType string

const (
	// RateAmount is a flat currency amount per billable event.
	RateAmount RateType = "amount"
	// RatePercentage applies rate_amount as a percentage (0-100) of the
	// event's base price.
	RatePercentage RateType = "percentage"
	// RateFixedDaily is a flat daily amount. The rate layer does not
	// multiply by day count; callers that want daily accrual must multiply
	// before applying.
	RateFixedDaily RateType = "fixed_daily"
	// RatePerInstance is a flat amount per service instance.
	RatePerInstance RateType = "per_instance"
)

// ServiceScope says what kind of billable target a rule covers. OPD
// consultations and pathology orders have no concrete service row, so rules
// for them are matched by scope rather than by service id.
type ServiceScope string

const (
	ScopeService   ServiceScope = "service"
	ScopeOpd       ServiceScope = "opd"
	ScopePathology ServiceScope = "pathology"
)

// ServiceRef identifies the billable target of a rate lookup.
type ServiceRef struct {
	Scope     ServiceScope
	ServiceID uuid.UUID // set only when Scope == ScopeService
}

// ConcreteService references a catalog service row.
func ConcreteService(id uuid.UUID) ServiceRef {
	return ServiceRef{Scope: ScopeService, ServiceID: id}
}

// OpdConsultation references OPD consultations as a category, independent of
// any service row.
func OpdConsultation() ServiceRef {
	return ServiceRef{Scope: ScopeOpd}
}

// PathologyAllTests references pathology orders as a whole; pathology is
// rated at the order level, never per test.
func PathologyAllTests() ServiceRef {
	return ServiceRef{Scope: ScopePathology}
}

// RateRule maps to the rate_rules table: one doctor's commission
// configuration for one billable target.
type RateRule struct {
	ID              uuid.UUID    `db:"id" json:"id"`
	DoctorID        uuid.UUID    `db:"doctor_id" json:"doctor_id"`
	ServiceScope    ServiceScope `db:"service_scope" json:"service_scope"`
	ServiceID       *uuid.UUID   `db:"service_id" json:"service_id,omitempty"`
	ServiceName     *string      `db:"service_name" json:"service_name,omitempty"`
	ServiceCategory *string      `db:"service_category" json:"service_category,omitempty"`
	RateType        RateType     `db:"rate_type" json:"rate_type"`
	RateAmount      float64      `db:"rate_amount" json:"rate_amount"`
	IsActive        bool         `db:"is_active" json:"is_active"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// Apply computes the commission earned on basePrice under this rule.
// Percentage rules scale with the price; every other rate type is a flat
// amount per event (fixed_daily included, see RateFixedDaily).
func (r *RateRule) Apply(basePrice float64) float64 {
	switch r.RateType {
	case RatePercentage:
		return basePrice * r.RateAmount / 100
	default:
		return r.RateAmount
	}
}
