package billing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medicore/hms/internal/domain/catalog"
	"github.com/medicore/hms/internal/domain/encounters"
)

type mockPaymentRepo struct {
	items map[uuid.UUID]*PatientPayment
	seq   int
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{items: make(map[uuid.UUID]*PatientPayment)}
}

func (m *mockPaymentRepo) Create(ctx context.Context, p *PatientPayment) error {
	m.seq++
	p.ID = uuid.New()
	p.ReceiptCode = fmt.Sprintf("RCPT-2026-%04d", m.seq)
	if p.PaymentDate.IsZero() {
		p.PaymentDate = time.Now()
	}
	m.items[p.ID] = p
	return nil
}

func (m *mockPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*PatientPayment, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockPaymentRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*PatientPayment, error) {
	var out []*PatientPayment
	for _, p := range m.items {
		if p.PatientID == patientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPaymentRepo) List(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*PatientPayment, int, error) {
	var out []*PatientPayment
	for _, p := range m.items {
		out = append(out, p)
	}
	return out, len(out), nil
}

type mockDiscountRepo struct {
	items map[uuid.UUID]*PatientDiscount
	seq   int
}

func newMockDiscountRepo() *mockDiscountRepo {
	return &mockDiscountRepo{items: make(map[uuid.UUID]*PatientDiscount)}
}

func (m *mockDiscountRepo) Create(ctx context.Context, d *PatientDiscount) error {
	m.seq++
	d.ID = uuid.New()
	d.DiscountCode = fmt.Sprintf("DISC-2026-%04d", m.seq)
	if d.DiscountDate.IsZero() {
		d.DiscountDate = time.Now()
	}
	m.items[d.ID] = d
	return nil
}

func (m *mockDiscountRepo) GetByID(ctx context.Context, id uuid.UUID) (*PatientDiscount, error) {
	d, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (m *mockDiscountRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*PatientDiscount, error) {
	var out []*PatientDiscount
	for _, d := range m.items {
		if d.PatientID == patientID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDiscountRepo) List(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*PatientDiscount, int, error) {
	var out []*PatientDiscount
	for _, d := range m.items {
		out = append(out, d)
	}
	return out, len(out), nil
}

type memEvents struct {
	services   []*encounters.PatientService
	visits     []*encounters.OpdVisit
	orders     []*encounters.PathologyOrder
	admissions []*encounters.Admission
}

type servicesSrc struct{ m *memEvents }

func (s servicesSrc) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*encounters.PatientService, error) {
	var out []*encounters.PatientService
	for _, ps := range s.m.services {
		if ps.PatientID == patientID {
			out = append(out, ps)
		}
	}
	return out, nil
}

type visitsSrc struct{ m *memEvents }

func (s visitsSrc) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*encounters.OpdVisit, error) {
	var out []*encounters.OpdVisit
	for _, v := range s.m.visits {
		if v.PatientID == patientID {
			out = append(out, v)
		}
	}
	return out, nil
}

type ordersSrc struct{ m *memEvents }

func (s ordersSrc) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*encounters.PathologyOrder, error) {
	var out []*encounters.PathologyOrder
	for _, o := range s.m.orders {
		if o.PatientID == patientID {
			out = append(out, o)
		}
	}
	return out, nil
}

type admissionsSrc struct{ m *memEvents }

func (s admissionsSrc) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*encounters.Admission, error) {
	// Most recent first, matching the repository ordering.
	var out []*encounters.Admission
	for _, a := range s.m.admissions {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].AdmissionDate.After(out[i].AdmissionDate) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

type mockDirectory struct {
	patients map[uuid.UUID]*catalog.Patient
	doctors  map[uuid.UUID]*catalog.Doctor
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		patients: make(map[uuid.UUID]*catalog.Patient),
		doctors:  make(map[uuid.UUID]*catalog.Doctor),
	}
}

func (m *mockDirectory) GetPatient(ctx context.Context, id uuid.UUID) (*catalog.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

func (m *mockDirectory) GetDoctor(ctx context.Context, id uuid.UUID) (*catalog.Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return d, nil
}

type noopRecorder struct{}

func (noopRecorder) Record(ctx context.Context, actorID, activityType, description string, metadata map[string]any) {
}

type fixture struct {
	svc    *Service
	events *memEvents
	dir    *mockDirectory
	pays   *mockPaymentRepo
	discs  *mockDiscountRepo
}

func newFixture() *fixture {
	events := &memEvents{}
	dir := newMockDirectory()
	pays := newMockPaymentRepo()
	discs := newMockDiscountRepo()
	svc := NewService(pays, discs,
		servicesSrc{events}, visitsSrc{events}, ordersSrc{events}, admissionsSrc{events},
		dir, noopRecorder{}, zerolog.Nop())
	return &fixture{svc: svc, events: events, dir: dir, pays: pays, discs: discs}
}

func (f *fixture) addPatient() uuid.UUID {
	id := uuid.New()
	f.dir.patients[id] = &catalog.Patient{ID: id, Code: "PAT-2026-0001", Name: "Asha Verma"}
	return id
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBuildLedgerBalanceIdentity(t *testing.T) {
	f := newFixture()
	patientID := f.addPatient()
	doctorID := uuid.New()
	f.dir.doctors[doctorID] = &catalog.Doctor{ID: doctorID, Name: "Dr. Rao", ConsultationFee: 400}

	f.events.services = append(f.events.services, &encounters.PatientService{
		ID: uuid.New(), PatientID: patientID, ServiceID: uuid.New(),
		ServiceName: "X-Ray Chest", ServiceCategory: "radiology", ServiceType: catalog.ServiceTypeGeneral,
		Price: 800, Quantity: 1, ScheduledDate: date(2026, 3, 2), Status: "completed",
	})
	f.events.visits = append(f.events.visits, &encounters.OpdVisit{
		ID: uuid.New(), VisitCode: "OPD-2026-0001", PatientID: patientID, DoctorID: doctorID,
		ConsultationFee: 500, VisitDate: date(2026, 3, 1), Status: "completed",
	})
	f.events.orders = append(f.events.orders, &encounters.PathologyOrder{
		ID: uuid.New(), OrderCode: "PATH-2026-0001", PatientID: patientID,
		TotalPrice: 450, OrderDate: date(2026, 3, 3), Status: "completed",
	})

	if err := f.svc.CreatePayment(context.Background(), &PatientPayment{
		PatientID: patientID, Amount: 1000, PaymentDate: date(2026, 3, 4), PaymentMethod: "cash", ProcessedBy: "user-1",
	}); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.CreateDiscount(context.Background(), &PatientDiscount{
		PatientID: patientID, Amount: 100, DiscountDate: date(2026, 3, 5), ProcessedBy: "user-1",
	}); err != nil {
		t.Fatal(err)
	}

	ledger, err := f.svc.BuildLedger(context.Background(), patientID)
	if err != nil {
		t.Fatal(err)
	}
	if ledger.TotalCharges != 1750 {
		t.Fatalf("charges = %g, want 1750", ledger.TotalCharges)
	}
	if ledger.TotalPayments != 1000 || ledger.TotalDiscounts != 100 {
		t.Fatalf("payments/discounts = %g/%g, want 1000/100", ledger.TotalPayments, ledger.TotalDiscounts)
	}
	if ledger.Balance != 650 {
		t.Fatalf("balance = %g, want 650", ledger.Balance)
	}

	var signed float64
	for _, l := range ledger.Lines {
		signed += l.Amount
	}
	if signed != ledger.Balance {
		t.Fatalf("signed line sum %g != balance %g", signed, ledger.Balance)
	}

	for i := 1; i < len(ledger.Lines); i++ {
		if ledger.Lines[i].Date.Before(ledger.Lines[i-1].Date) {
			t.Fatalf("lines not sorted ascending at %d", i)
		}
	}
}

func TestBuildLedgerPathologySingleLine(t *testing.T) {
	f := newFixture()
	patientID := f.addPatient()
	f.events.orders = append(f.events.orders, &encounters.PathologyOrder{
		ID: uuid.New(), OrderCode: "PATH-2026-0002", PatientID: patientID,
		TotalPrice: 450, OrderDate: date(2026, 3, 3), Status: "completed",
		Tests: []*encounters.PathologyOrderTest{
			{TestName: "CBC", Price: 100},
			{TestName: "LFT", Price: 150},
			{TestName: "KFT", Price: 200},
		},
	})

	ledger, err := f.svc.BuildLedger(context.Background(), patientID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ledger.Lines) != 1 {
		t.Fatalf("line count = %d, want 1 order-level line", len(ledger.Lines))
	}
	if ledger.Lines[0].Amount != 450 || ledger.Lines[0].Kind != LinePathology {
		t.Fatalf("line = %+v, want 450 pathology charge", ledger.Lines[0])
	}
}

func TestBuildLedgerStayDayBilling(t *testing.T) {
	f := newFixture()
	patientID := f.addPatient()

	admit := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	discharge := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
	f.events.admissions = append(f.events.admissions, &encounters.Admission{
		ID: uuid.New(), AdmissionCode: "ADM-2026-0001", PatientID: patientID,
		DailyCost: 1000, AdmissionDate: admit, DischargeDate: &discharge,
		Status: encounters.AdmissionStatusDischarged,
	})
	f.events.services = append(f.events.services, &encounters.PatientService{
		ID: uuid.New(), PatientID: patientID, ServiceID: uuid.New(),
		ServiceName: "Bed Charges", ServiceCategory: "admission", ServiceType: catalog.ServiceTypeAdmission,
		Price: 1000, Quantity: 1, ScheduledDate: admit, Status: "completed",
	})

	ledger, err := f.svc.BuildLedger(context.Background(), patientID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ledger.Lines) != 1 {
		t.Fatalf("line count = %d, want 1", len(ledger.Lines))
	}
	line := ledger.Lines[0]
	if line.Kind != LineAdmissionService {
		t.Fatalf("kind = %s, want admission_service", line.Kind)
	}
	// Mar 1 to Mar 3 with every started day counted is 3 days.
	if line.Amount != 3000 {
		t.Fatalf("amount = %g, want 1000 * 3 days", line.Amount)
	}
}

func TestBuildLedgerOngoingStayAccrues(t *testing.T) {
	f := newFixture()
	patientID := f.addPatient()

	admit := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.events.admissions = append(f.events.admissions, &encounters.Admission{
		ID: uuid.New(), AdmissionCode: "ADM-2026-0002", PatientID: patientID,
		DailyCost: 500, AdmissionDate: admit, Status: encounters.AdmissionStatusAdmitted,
	})
	f.events.services = append(f.events.services, &encounters.PatientService{
		ID: uuid.New(), PatientID: patientID, ServiceID: uuid.New(),
		ServiceName: "Nursing Charges", ServiceCategory: "admission", ServiceType: catalog.ServiceTypeAdmission,
		Price: 500, Quantity: 1, ScheduledDate: admit, Status: "scheduled",
	})
	// Pin "now" to the second day of the stay.
	f.svc.now = func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }

	ledger, err := f.svc.BuildLedger(context.Background(), patientID)
	if err != nil {
		t.Fatal(err)
	}
	if ledger.TotalCharges != 1000 {
		t.Fatalf("charges = %g, want 500 * 2 started days", ledger.TotalCharges)
	}
}

func TestBuildLedgerAdmissionMoneyLines(t *testing.T) {
	f := newFixture()
	patientID := f.addPatient()

	discharge := time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC)
	f.events.admissions = append(f.events.admissions, &encounters.Admission{
		ID: uuid.New(), AdmissionCode: "ADM-2026-0003", PatientID: patientID,
		DailyCost: 1000, InitialDeposit: 5000, AdditionalPayment: 2000, TotalDiscount: 300,
		AdmissionDate: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), DischargeDate: &discharge,
		Status: encounters.AdmissionStatusDischarged,
	})

	ledger, err := f.svc.BuildLedger(context.Background(), patientID)
	if err != nil {
		t.Fatal(err)
	}
	if ledger.TotalPayments != 7000 {
		t.Fatalf("payments = %g, want deposit 5000 + additional 2000", ledger.TotalPayments)
	}
	if ledger.TotalDiscounts != 300 {
		t.Fatalf("discounts = %g, want 300", ledger.TotalDiscounts)
	}
	if ledger.Balance != -7300 {
		t.Fatalf("balance = %g, want -7300 with no charges", ledger.Balance)
	}
}

func TestBuildLedgerOpdFeeFallback(t *testing.T) {
	f := newFixture()
	patientID := f.addPatient()
	doctorID := uuid.New()
	f.dir.doctors[doctorID] = &catalog.Doctor{ID: doctorID, Name: "Dr. Rao", ConsultationFee: 400}

	f.events.visits = append(f.events.visits, &encounters.OpdVisit{
		ID: uuid.New(), VisitCode: "OPD-2026-0003", PatientID: patientID, DoctorID: doctorID,
		ConsultationFee: 0, VisitDate: date(2026, 3, 1), Status: "completed",
	})

	ledger, err := f.svc.BuildLedger(context.Background(), patientID)
	if err != nil {
		t.Fatal(err)
	}
	if ledger.TotalCharges != 400 {
		t.Fatalf("charges = %g, want doctor default fee 400", ledger.TotalCharges)
	}
}

func TestBuildLedgerFailsWhenDoctorLookupFails(t *testing.T) {
	f := newFixture()
	patientID := f.addPatient()

	// Zero-fee visit pointing at a doctor the directory does not know: the
	// build must fail, not silently drop or zero the line.
	f.events.visits = append(f.events.visits, &encounters.OpdVisit{
		ID: uuid.New(), VisitCode: "OPD-2026-0004", PatientID: patientID, DoctorID: uuid.New(),
		ConsultationFee: 0, VisitDate: date(2026, 3, 1), Status: "completed",
	})

	if _, err := f.svc.BuildLedger(context.Background(), patientID); err == nil {
		t.Fatal("expected ledger build to fail loudly")
	}
}

func TestBuildLedgerUnknownPatient(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.BuildLedger(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error for unknown patient")
	}
}

func TestCreatePaymentValidation(t *testing.T) {
	f := newFixture()
	patientID := f.addPatient()

	if err := f.svc.CreatePayment(context.Background(), &PatientPayment{PatientID: patientID, Amount: 0}); err == nil {
		t.Fatal("expected error for zero amount")
	}
	if err := f.svc.CreatePayment(context.Background(), &PatientPayment{PatientID: uuid.New(), Amount: 100}); err == nil {
		t.Fatal("expected error for unknown patient")
	}
	p := &PatientPayment{PatientID: patientID, Amount: 250, ProcessedBy: "user-1"}
	if err := f.svc.CreatePayment(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if p.ReceiptCode == "" {
		t.Fatal("receipt code not assigned")
	}
	if p.PaymentMethod != "cash" {
		t.Fatalf("method = %q, want cash default", p.PaymentMethod)
	}
}
