package rates

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type mockRuleRepo struct {
	rules map[uuid.UUID]*RateRule
}

func newMockRuleRepo() *mockRuleRepo {
	return &mockRuleRepo{rules: make(map[uuid.UUID]*RateRule)}
}

func (m *mockRuleRepo) Create(ctx context.Context, r *RateRule) error {
	for _, ex := range m.rules {
		if ex.IsActive && ex.DoctorID == r.DoctorID && ex.ServiceScope == r.ServiceScope &&
			uuidPtrEq(ex.ServiceID, r.ServiceID) &&
			strPtrEqFold(ex.ServiceName, r.ServiceName) && strPtrEqFold(ex.ServiceCategory, r.ServiceCategory) {
			ex.IsActive = false
		}
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.IsActive = true
	m.rules[r.ID] = r
	return nil
}

func (m *mockRuleRepo) GetByID(ctx context.Context, id uuid.UUID) (*RateRule, error) {
	r, ok := m.rules[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func (m *mockRuleRepo) Update(ctx context.Context, r *RateRule) error {
	if _, ok := m.rules[r.ID]; !ok {
		return ErrNotFound
	}
	m.rules[r.ID] = r
	return nil
}

func (m *mockRuleRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	r, ok := m.rules[id]
	if !ok {
		return ErrNotFound
	}
	r.IsActive = false
	return nil
}

func (m *mockRuleRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID, activeOnly bool, limit, offset int) ([]*RateRule, int, error) {
	var out []*RateRule
	for _, r := range m.rules {
		if r.DoctorID != doctorID {
			continue
		}
		if activeOnly && !r.IsActive {
			continue
		}
		out = append(out, r)
	}
	return out, len(out), nil
}

func (m *mockRuleRepo) FindByServiceID(ctx context.Context, doctorID, serviceID uuid.UUID) (*RateRule, error) {
	for _, r := range m.rules {
		if r.IsActive && r.DoctorID == doctorID && r.ServiceScope == ScopeService && r.ServiceID != nil && *r.ServiceID == serviceID {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockRuleRepo) FindByNameAndCategory(ctx context.Context, doctorID uuid.UUID, name, category string) (*RateRule, error) {
	for _, r := range m.rules {
		if r.IsActive && r.DoctorID == doctorID && r.ServiceScope == ScopeService &&
			r.ServiceName != nil && strings.EqualFold(*r.ServiceName, name) &&
			r.ServiceCategory != nil && strings.EqualFold(*r.ServiceCategory, category) {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockRuleRepo) FindByScope(ctx context.Context, doctorID uuid.UUID, scope ServiceScope) (*RateRule, error) {
	for _, r := range m.rules {
		if r.IsActive && r.DoctorID == doctorID && r.ServiceScope == scope {
			return r, nil
		}
	}
	return nil, nil
}

func uuidPtrEq(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtrEqFold(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return strings.EqualFold(*a, *b)
}

func strPtr(s string) *string { return &s }

func TestCreateRuleValidation(t *testing.T) {
	svc := NewService(newMockRuleRepo())
	doctorID := uuid.New()

	err := svc.CreateRule(context.Background(), &RateRule{
		DoctorID: doctorID, ServiceScope: ScopeOpd, RateType: "bogus", RateAmount: 10,
	})
	if err == nil {
		t.Fatal("expected error for invalid rate type")
	}

	err = svc.CreateRule(context.Background(), &RateRule{
		DoctorID: doctorID, ServiceScope: ScopeOpd, RateType: RatePercentage, RateAmount: 150,
	})
	if err == nil {
		t.Fatal("expected error for percentage above 100")
	}

	err = svc.CreateRule(context.Background(), &RateRule{
		DoctorID: doctorID, ServiceScope: ScopeOpd, RateType: RateAmount, RateAmount: -5,
	})
	if err == nil {
		t.Fatal("expected error for negative amount")
	}

	err = svc.CreateRule(context.Background(), &RateRule{
		DoctorID: doctorID, ServiceScope: ScopeService, RateType: RateAmount, RateAmount: 100,
	})
	if err == nil {
		t.Fatal("expected error for service-scoped rule without a target")
	}

	err = svc.CreateRule(context.Background(), &RateRule{
		DoctorID: doctorID, ServiceScope: ScopeOpd, RateType: RatePercentage, RateAmount: 40,
	})
	if err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}
}

func TestResolveExactServiceMatchWins(t *testing.T) {
	repo := newMockRuleRepo()
	svc := NewService(repo)
	doctorID := uuid.New()
	serviceID := uuid.New()

	byName := &RateRule{DoctorID: doctorID, ServiceScope: ScopeService, ServiceName: strPtr("X-Ray Chest"), ServiceCategory: strPtr("radiology"), RateType: RateAmount, RateAmount: 50}
	if err := repo.Create(context.Background(), byName); err != nil {
		t.Fatal(err)
	}
	sid := serviceID
	byID := &RateRule{DoctorID: doctorID, ServiceScope: ScopeService, ServiceID: &sid, RateType: RateAmount, RateAmount: 80}
	if err := repo.Create(context.Background(), byID); err != nil {
		t.Fatal(err)
	}

	rule, err := svc.Resolve(context.Background(), doctorID, ConcreteService(serviceID), "X-Ray Chest", "radiology")
	if err != nil {
		t.Fatal(err)
	}
	if rule == nil || rule.ID != byID.ID {
		t.Fatalf("expected service-id rule to win, got %+v", rule)
	}
}

func TestResolveFallsBackToNameAndCategory(t *testing.T) {
	repo := newMockRuleRepo()
	svc := NewService(repo)
	doctorID := uuid.New()

	byName := &RateRule{DoctorID: doctorID, ServiceScope: ScopeService, ServiceName: strPtr("X-Ray Chest"), ServiceCategory: strPtr("radiology"), RateType: RatePercentage, RateAmount: 25}
	if err := repo.Create(context.Background(), byName); err != nil {
		t.Fatal(err)
	}

	rule, err := svc.Resolve(context.Background(), doctorID, ConcreteService(uuid.New()), "x-ray chest", "Radiology")
	if err != nil {
		t.Fatal(err)
	}
	if rule == nil || rule.ID != byName.ID {
		t.Fatalf("expected name+category rule, got %+v", rule)
	}
}

func TestCreateRuleSupersedesSameTargetOnly(t *testing.T) {
	repo := newMockRuleRepo()
	svc := NewService(repo)
	doctorID := uuid.New()

	xray := &RateRule{DoctorID: doctorID, ServiceScope: ScopeService, ServiceName: strPtr("X-Ray Chest"), ServiceCategory: strPtr("radiology"), RateType: RatePercentage, RateAmount: 25}
	if err := svc.CreateRule(context.Background(), xray); err != nil {
		t.Fatal(err)
	}

	// A rule for a different name-bound service must not touch the X-Ray rule.
	mri := &RateRule{DoctorID: doctorID, ServiceScope: ScopeService, ServiceName: strPtr("MRI Brain"), ServiceCategory: strPtr("radiology"), RateType: RatePercentage, RateAmount: 30}
	if err := svc.CreateRule(context.Background(), mri); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetByID(context.Background(), xray.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsActive {
		t.Fatal("X-Ray rule was deactivated by creating an unrelated MRI rule")
	}
	rule, err := svc.Resolve(context.Background(), doctorID, ConcreteService(uuid.New()), "X-Ray Chest", "radiology")
	if err != nil {
		t.Fatal(err)
	}
	if rule == nil || rule.ID != xray.ID {
		t.Fatalf("expected X-Ray rule to still resolve, got %+v", rule)
	}

	// Re-creating a rule for the same name (any case) supersedes it.
	xray2 := &RateRule{DoctorID: doctorID, ServiceScope: ScopeService, ServiceName: strPtr("x-ray chest"), ServiceCategory: strPtr("Radiology"), RateType: RatePercentage, RateAmount: 35}
	if err := svc.CreateRule(context.Background(), xray2); err != nil {
		t.Fatal(err)
	}
	got, err = repo.GetByID(context.Background(), xray.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.IsActive {
		t.Fatal("expected old X-Ray rule to be superseded by the new one")
	}
}

func TestResolveOpdCategoryService(t *testing.T) {
	repo := newMockRuleRepo()
	svc := NewService(repo)
	doctorID := uuid.New()

	opd := &RateRule{DoctorID: doctorID, ServiceScope: ScopeOpd, RateType: RatePercentage, RateAmount: 50}
	if err := repo.Create(context.Background(), opd); err != nil {
		t.Fatal(err)
	}

	// A catalog service in category "opd" resolves to the OPD rule even
	// without a direct match.
	rule, err := svc.Resolve(context.Background(), doctorID, ConcreteService(uuid.New()), "Follow-up Consultation", "opd")
	if err != nil {
		t.Fatal(err)
	}
	if rule == nil || rule.ID != opd.ID {
		t.Fatalf("expected opd rule, got %+v", rule)
	}

	rule, err = svc.Resolve(context.Background(), doctorID, OpdConsultation(), "", "")
	if err != nil {
		t.Fatal(err)
	}
	if rule == nil || rule.ID != opd.ID {
		t.Fatalf("expected opd rule for OPD ref, got %+v", rule)
	}
}

func TestResolvePathologyScope(t *testing.T) {
	repo := newMockRuleRepo()
	svc := NewService(repo)
	doctorID := uuid.New()

	path := &RateRule{DoctorID: doctorID, ServiceScope: ScopePathology, RateType: RatePercentage, RateAmount: 10}
	if err := repo.Create(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	rule, err := svc.Resolve(context.Background(), doctorID, PathologyAllTests(), "", "")
	if err != nil {
		t.Fatal(err)
	}
	if rule == nil || rule.ID != path.ID {
		t.Fatalf("expected pathology rule, got %+v", rule)
	}
}

func TestResolveNoMatchIsSilent(t *testing.T) {
	svc := NewService(newMockRuleRepo())

	rule, err := svc.Resolve(context.Background(), uuid.New(), ConcreteService(uuid.New()), "MRI", "radiology")
	if err != nil {
		t.Fatalf("no match must not be an error: %v", err)
	}
	if rule != nil {
		t.Fatalf("expected nil rule, got %+v", rule)
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		rule RateRule
		base float64
		want float64
	}{
		{"percentage", RateRule{RateType: RatePercentage, RateAmount: 50}, 300, 150},
		{"flat amount ignores price", RateRule{RateType: RateAmount, RateAmount: 120}, 999, 120},
		{"fixed daily is flat at this layer", RateRule{RateType: RateFixedDaily, RateAmount: 700}, 5000, 700},
		{"per instance", RateRule{RateType: RatePerInstance, RateAmount: 35}, 80, 35},
		{"zero percentage", RateRule{RateType: RatePercentage, RateAmount: 0}, 400, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Apply(tt.base); got != tt.want {
				t.Fatalf("Apply(%g) = %g, want %g", tt.base, got, tt.want)
			}
		})
	}
}
