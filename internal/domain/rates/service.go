package rates

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	rules RateRuleRepository
}

func NewService(rules RateRuleRepository) *Service {
	return &Service{rules: rules}
}

var validRateTypes = map[RateType]bool{
	RateAmount: true, RatePercentage: true, RateFixedDaily: true, RatePerInstance: true,
}

var validScopes = map[ServiceScope]bool{
	ScopeService: true, ScopeOpd: true, ScopePathology: true,
}

func (s *Service) CreateRule(ctx context.Context, r *RateRule) error {
	if r.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if r.ServiceScope == "" {
		r.ServiceScope = ScopeService
	}
	if !validScopes[r.ServiceScope] {
		return fmt.Errorf("invalid service scope: %s", r.ServiceScope)
	}
	if r.ServiceScope == ScopeService && r.ServiceID == nil && (r.ServiceName == nil || r.ServiceCategory == nil) {
		return fmt.Errorf("service-scoped rules need a service_id or a service_name and service_category")
	}
	if err := validateRate(r.RateType, r.RateAmount); err != nil {
		return err
	}
	return s.rules.Create(ctx, r)
}

func validateRate(rt RateType, amount float64) error {
	if !validRateTypes[rt] {
		return fmt.Errorf("invalid rate type: %s", rt)
	}
	if amount < 0 {
		return fmt.Errorf("rate amount must not be negative")
	}
	if rt == RatePercentage && amount > 100 {
		return fmt.Errorf("percentage rate must be between 0 and 100, got %g", amount)
	}
	return nil
}

func (s *Service) GetRule(ctx context.Context, id uuid.UUID) (*RateRule, error) {
	return s.rules.GetByID(ctx, id)
}

func (s *Service) UpdateRule(ctx context.Context, r *RateRule) error {
	if err := validateRate(r.RateType, r.RateAmount); err != nil {
		return err
	}
	return s.rules.Update(ctx, r)
}

func (s *Service) DeactivateRule(ctx context.Context, id uuid.UUID) error {
	return s.rules.Deactivate(ctx, id)
}

func (s *Service) ListRulesByDoctor(ctx context.Context, doctorID uuid.UUID, activeOnly bool, limit, offset int) ([]*RateRule, int, error) {
	return s.rules.ListByDoctor(ctx, doctorID, activeOnly, limit, offset)
}

// Resolve finds the rate rule applying to one billable event, walking an
// ordered fallback chain and stopping at the first match:
//
//  1. exact service-id match
//  2. service name + category match
//  3. the doctor's OPD category rule, when the event is an OPD consultation
//  4. the doctor's order-level pathology rule
//
// A nil, nil return means the doctor simply has no commission configured for
// this event. That is the expected case for most services and is never
// treated as an error.
func (s *Service) Resolve(ctx context.Context, doctorID uuid.UUID, ref ServiceRef, serviceName, serviceCategory string) (*RateRule, error) {
	switch ref.Scope {
	case ScopeOpd:
		return s.rules.FindByScope(ctx, doctorID, ScopeOpd)
	case ScopePathology:
		return s.rules.FindByScope(ctx, doctorID, ScopePathology)
	}

	if ref.ServiceID != uuid.Nil {
		rule, err := s.rules.FindByServiceID(ctx, doctorID, ref.ServiceID)
		if err != nil || rule != nil {
			return rule, err
		}
	}

	if serviceName != "" && serviceCategory != "" {
		rule, err := s.rules.FindByNameAndCategory(ctx, doctorID, serviceName, serviceCategory)
		if err != nil || rule != nil {
			return rule, err
		}
	}

	// Catalog OPD rows still resolve against the doctor's OPD rule.
	if strings.EqualFold(serviceCategory, "opd") {
		return s.rules.FindByScope(ctx, doctorID, ScopeOpd)
	}

	return nil, nil
}
