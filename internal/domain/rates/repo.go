package rates

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a rate rule does not exist. Lookup methods
// used by Resolve return (nil, nil) instead: a missing rule there is the
// normal "no commission configured" case, not an error.
var ErrNotFound = errors.New("rates: rule not found")

type RateRuleRepository interface {
	// Create inserts a rule and deactivates any previously active rule for
	// the same (doctor, target) so lookups resolve to at most one rule.
	Create(ctx context.Context, r *RateRule) error
	GetByID(ctx context.Context, id uuid.UUID) (*RateRule, error)
	Update(ctx context.Context, r *RateRule) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, activeOnly bool, limit, offset int) ([]*RateRule, int, error)

	// Active-rule lookups for resolution; all return (nil, nil) on no match.
	FindByServiceID(ctx context.Context, doctorID, serviceID uuid.UUID) (*RateRule, error)
	FindByNameAndCategory(ctx context.Context, doctorID uuid.UUID, name, category string) (*RateRule, error)
	FindByScope(ctx context.Context, doctorID uuid.UUID, scope ServiceScope) (*RateRule, error)
}
