package catalog

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repositories --

type mockServiceRepo struct {
	items map[uuid.UUID]*Service
}

func newMockServiceRepo() *mockServiceRepo {
	return &mockServiceRepo{items: make(map[uuid.UUID]*Service)}
}

func (m *mockServiceRepo) Create(_ context.Context, s *Service) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	m.items[s.ID] = s
	return nil
}

func (m *mockServiceRepo) GetByID(_ context.Context, id uuid.UUID) (*Service, error) {
	s, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *mockServiceRepo) GetByNameAndCategory(_ context.Context, name, category string) (*Service, error) {
	for _, s := range m.items {
		if strings.EqualFold(s.Name, name) && strings.EqualFold(s.Category, category) && s.IsActive {
			return s, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockServiceRepo) Update(_ context.Context, s *Service) error {
	m.items[s.ID] = s
	return nil
}

func (m *mockServiceRepo) List(_ context.Context, category string, activeOnly bool, limit, offset int) ([]*Service, int, error) {
	var result []*Service
	for _, s := range m.items {
		if category != "" && !strings.EqualFold(s.Category, category) {
			continue
		}
		if activeOnly && !s.IsActive {
			continue
		}
		result = append(result, s)
	}
	return result, len(result), nil
}

type mockDoctorRepo struct {
	items map[uuid.UUID]*Doctor
	seq   int
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{items: make(map[uuid.UUID]*Doctor)}
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	m.seq++
	d.ID = uuid.New()
	d.Code = fmt.Sprintf("DOC-%d-%04d", time.Now().Year(), m.seq)
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	m.items[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (m *mockDoctorRepo) Update(_ context.Context, d *Doctor) error {
	m.items[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) List(_ context.Context, activeOnly bool, limit, offset int) ([]*Doctor, int, error) {
	var result []*Doctor
	for _, d := range m.items {
		if activeOnly && !d.IsActive {
			continue
		}
		result = append(result, d)
	}
	return result, len(result), nil
}

type mockPatientRepo struct {
	items map[uuid.UUID]*Patient
	seq   int
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{items: make(map[uuid.UUID]*Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	m.seq++
	p.ID = uuid.New()
	p.Code = fmt.Sprintf("PAT-%d-%04d", time.Now().Year(), m.seq)
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.items[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	m.items[p.ID] = p
	return nil
}

func (m *mockPatientRepo) List(_ context.Context, search string, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.items {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(search)) {
			continue
		}
		result = append(result, p)
	}
	return result, len(result), nil
}

func newTestDirectory() *Directory {
	return NewDirectory(newMockServiceRepo(), newMockDoctorRepo(), newMockPatientRepo())
}

// -- Tests --

func TestCreateService(t *testing.T) {
	dir := newTestDirectory()
	s := &Service{Name: "X-Ray Chest", Category: "radiology", Price: 350}
	if err := dir.CreateService(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ServiceType != ServiceTypeGeneral {
		t.Errorf("expected default service type general, got %s", s.ServiceType)
	}
	if !s.IsActive {
		t.Error("expected new service to be active")
	}
}

func TestCreateService_NameRequired(t *testing.T) {
	dir := newTestDirectory()
	if err := dir.CreateService(context.Background(), &Service{Category: "radiology"}); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestCreateService_NegativePrice(t *testing.T) {
	dir := newTestDirectory()
	s := &Service{Name: "Bad", Category: "misc", Price: -10}
	if err := dir.CreateService(context.Background(), s); err == nil {
		t.Error("expected error for negative price")
	}
}

func TestCreateService_InvalidType(t *testing.T) {
	dir := newTestDirectory()
	s := &Service{Name: "Bed Charges", Category: "ward", ServiceType: "weekly"}
	if err := dir.CreateService(context.Background(), s); err == nil {
		t.Error("expected error for invalid service type")
	}
}

func TestGetServiceByNameAndCategory(t *testing.T) {
	dir := newTestDirectory()
	s := &Service{Name: "ECG", Category: "cardiology", Price: 200}
	dir.CreateService(context.Background(), s)

	found, err := dir.GetServiceByNameAndCategory(context.Background(), "ecg", "CARDIOLOGY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.ID != s.ID {
		t.Error("unexpected service returned")
	}
}

func TestCreateDoctor_AssignsCode(t *testing.T) {
	dir := newTestDirectory()
	d := &Doctor{Name: "Dr. Rao", ConsultationFee: 500}
	if err := dir.CreateDoctor(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Code == "" {
		t.Error("expected doctor code to be assigned")
	}
}

func TestCreateDoctor_NegativeFee(t *testing.T) {
	dir := newTestDirectory()
	d := &Doctor{Name: "Dr. Rao", ConsultationFee: -1}
	if err := dir.CreateDoctor(context.Background(), d); err == nil {
		t.Error("expected error for negative consultation fee")
	}
}

func TestCreatePatient_AssignsCode(t *testing.T) {
	dir := newTestDirectory()
	p := &Patient{Name: "Asha Verma"}
	if err := dir.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Code == "" {
		t.Error("expected patient code to be assigned")
	}
}

func TestGetPatient_NotFound(t *testing.T) {
	dir := newTestDirectory()
	if _, err := dir.GetPatient(context.Background(), uuid.New()); err == nil {
		t.Error("expected error for unknown patient")
	}
}
