package billing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medicore/hms/internal/domain/catalog"
	"github.com/medicore/hms/internal/domain/encounters"
)

// PatientDirectory is the catalog surface the ledger needs, satisfied by
// catalog.Directory.
type PatientDirectory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*catalog.Patient, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*catalog.Doctor, error)
}

// Per-patient event sources, satisfied by the encounters repositories. The
// ledger reads the same tables commissions are computed from but never the
// earnings tables themselves; a patient's bill must come out right even when
// doctor-rate configuration is missing or wrong.
type (
	ServicesByPatient interface {
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*encounters.PatientService, error)
	}
	VisitsByPatient interface {
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*encounters.OpdVisit, error)
	}
	OrdersByPatient interface {
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*encounters.PathologyOrder, error)
	}
	AdmissionsByPatient interface {
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*encounters.Admission, error)
	}
)

// ActivityRecorder writes audit entries, fire-and-forget.
type ActivityRecorder interface {
	Record(ctx context.Context, actorID, activityType, description string, metadata map[string]any)
}

type Service struct {
	payments   PatientPaymentRepository
	discounts  PatientDiscountRepository
	services   ServicesByPatient
	visits     VisitsByPatient
	orders     OrdersByPatient
	admissions AdmissionsByPatient
	directory  PatientDirectory
	activity   ActivityRecorder
	log        zerolog.Logger

	now func() time.Time
}

func NewService(
	payments PatientPaymentRepository,
	discounts PatientDiscountRepository,
	services ServicesByPatient,
	visits VisitsByPatient,
	orders OrdersByPatient,
	admissions AdmissionsByPatient,
	directory PatientDirectory,
	activity ActivityRecorder,
	log zerolog.Logger,
) *Service {
	return &Service{
		payments:   payments,
		discounts:  discounts,
		services:   services,
		visits:     visits,
		orders:     orders,
		admissions: admissions,
		directory:  directory,
		activity:   activity,
		log:        log.With().Str("component", "billing").Logger(),
		now:        time.Now,
	}
}

func (s *Service) CreatePayment(ctx context.Context, p *PatientPayment) error {
	if p.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if p.Amount <= 0 {
		return fmt.Errorf("payment amount must be positive")
	}
	if _, err := s.directory.GetPatient(ctx, p.PatientID); err != nil {
		return fmt.Errorf("patient lookup: %w", err)
	}
	if p.PaymentMethod == "" {
		p.PaymentMethod = "cash"
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return err
	}
	s.activity.Record(ctx, p.ProcessedBy, "patient_payment",
		fmt.Sprintf("Received payment %s", p.ReceiptCode),
		map[string]any{"patient_id": p.PatientID.String(), "amount": p.Amount})
	return nil
}

func (s *Service) GetPayment(ctx context.Context, id uuid.UUID) (*PatientPayment, error) {
	return s.payments.GetByID(ctx, id)
}

func (s *Service) ListPayments(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*PatientPayment, int, error) {
	return s.payments.List(ctx, patientID, limit, offset)
}

func (s *Service) CreateDiscount(ctx context.Context, d *PatientDiscount) error {
	if d.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if d.Amount <= 0 {
		return fmt.Errorf("discount amount must be positive")
	}
	if _, err := s.directory.GetPatient(ctx, d.PatientID); err != nil {
		return fmt.Errorf("patient lookup: %w", err)
	}
	if err := s.discounts.Create(ctx, d); err != nil {
		return err
	}
	s.activity.Record(ctx, d.ProcessedBy, "patient_discount",
		fmt.Sprintf("Applied discount %s", d.DiscountCode),
		map[string]any{"patient_id": d.PatientID.String(), "amount": d.Amount})
	return nil
}

func (s *Service) GetDiscount(ctx context.Context, id uuid.UUID) (*PatientDiscount, error) {
	return s.discounts.GetByID(ctx, id)
}

func (s *Service) ListDiscounts(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*PatientDiscount, int, error) {
	return s.discounts.List(ctx, patientID, limit, offset)
}

// BuildLedger recomputes a patient's full financial picture from the source
// tables. Any sub-query failure fails the whole build; a partial or zeroed
// ledger is worse than an error.
func (s *Service) BuildLedger(ctx context.Context, patientID uuid.UUID) (*PatientLedger, error) {
	patient, err := s.directory.GetPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("patient lookup: %w", err)
	}

	ledger := &PatientLedger{
		PatientID:   patient.ID,
		PatientName: patient.Name,
		PatientCode: patient.Code,
	}

	admissions, err := s.admissions.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("admissions: %w", err)
	}

	services, err := s.services.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("patient services: %w", err)
	}
	for _, ps := range services {
		ledger.Lines = append(ledger.Lines, s.serviceLine(ps, admissions))
	}

	visits, err := s.visits.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("opd visits: %w", err)
	}
	for _, v := range visits {
		fee := v.ConsultationFee
		if fee == 0 {
			doc, err := s.directory.GetDoctor(ctx, v.DoctorID)
			if err != nil {
				return nil, fmt.Errorf("doctor lookup for visit %s: %w", v.VisitCode, err)
			}
			fee = doc.ConsultationFee
		}
		ledger.Lines = append(ledger.Lines, &LedgerLine{
			Kind:        LineOpd,
			Date:        v.VisitDate,
			Description: fmt.Sprintf("OPD Consultation (%s)", v.VisitCode),
			Amount:      fee,
			SourceID:    v.ID,
		})
	}

	orders, err := s.orders.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("pathology orders: %w", err)
	}
	for _, o := range orders {
		// One line per order; tests are never billed individually.
		ledger.Lines = append(ledger.Lines, &LedgerLine{
			Kind:        LinePathology,
			Date:        o.OrderDate,
			Description: fmt.Sprintf("Pathology Order (%s)", o.OrderCode),
			Amount:      o.TotalPrice,
			SourceID:    o.ID,
		})
	}

	payments, err := s.payments.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("payments: %w", err)
	}
	for _, p := range payments {
		ledger.Lines = append(ledger.Lines, &LedgerLine{
			Kind:        LinePayment,
			Date:        p.PaymentDate,
			Description: fmt.Sprintf("Payment %s (%s)", p.ReceiptCode, p.PaymentMethod),
			Amount:      -p.Amount,
			SourceID:    p.ID,
		})
	}

	discounts, err := s.discounts.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("discounts: %w", err)
	}
	for _, d := range discounts {
		ledger.Lines = append(ledger.Lines, &LedgerLine{
			Kind:        LineDiscount,
			Date:        d.DiscountDate,
			Description: fmt.Sprintf("Discount %s", d.DiscountCode),
			Amount:      -d.Amount,
			SourceID:    d.ID,
		})
	}

	for _, a := range admissions {
		if a.InitialDeposit > 0 {
			ledger.Lines = append(ledger.Lines, &LedgerLine{
				Kind:        LinePayment,
				Date:        a.AdmissionDate,
				Description: fmt.Sprintf("Admission deposit (%s)", a.AdmissionCode),
				Amount:      -a.InitialDeposit,
				SourceID:    a.ID,
			})
		}
		if a.AdditionalPayment > 0 {
			ledger.Lines = append(ledger.Lines, &LedgerLine{
				Kind:        LinePayment,
				Date:        a.AdmissionDate,
				Description: fmt.Sprintf("Admission payment (%s)", a.AdmissionCode),
				Amount:      -a.AdditionalPayment,
				SourceID:    a.ID,
			})
		}
		if a.TotalDiscount > 0 {
			ledger.Lines = append(ledger.Lines, &LedgerLine{
				Kind:        LineDiscount,
				Date:        a.AdmissionDate,
				Description: fmt.Sprintf("Admission discount (%s)", a.AdmissionCode),
				Amount:      -a.TotalDiscount,
				SourceID:    a.ID,
			})
		}
	}

	sort.SliceStable(ledger.Lines, func(i, j int) bool {
		return ledger.Lines[i].Date.Before(ledger.Lines[j].Date)
	})

	for _, l := range ledger.Lines {
		switch l.Kind {
		case LinePayment:
			ledger.TotalPayments += -l.Amount
		case LineDiscount:
			ledger.TotalDiscounts += -l.Amount
		default:
			ledger.TotalCharges += l.Amount
		}
	}
	ledger.Balance = ledger.TotalCharges - ledger.TotalPayments - ledger.TotalDiscounts
	return ledger, nil
}

// serviceLine turns one patient service into a charge line. Admission-origin
// services (bed, nursing, RMO and similar per-day charges) are stored with a
// single per-day price; the billed amount is price times the stay's day
// count, taken from the matching admission episode.
func (s *Service) serviceLine(ps *encounters.PatientService, admissions []*encounters.Admission) *LedgerLine {
	if ps.ServiceType == catalog.ServiceTypeAdmission {
		if a := matchAdmission(ps, admissions); a != nil {
			end := s.now()
			if a.DischargeDate != nil {
				end = *a.DischargeDate
			}
			days := StayDays(a.AdmissionDate, end)
			return &LedgerLine{
				Kind:        LineAdmissionService,
				Date:        ps.ScheduledDate,
				Description: fmt.Sprintf("%s (%d days)", ps.ServiceName, days),
				Amount:      ps.Price * float64(days),
				SourceID:    ps.ID,
			}
		}
		// No admission on record; bill the stored amount as-is.
	}
	return &LedgerLine{
		Kind:        LineService,
		Date:        ps.ScheduledDate,
		Description: ps.ServiceName,
		Amount:      ps.BillableAmount(),
		SourceID:    ps.ID,
	}
}

// matchAdmission pairs an admission-origin service with its stay: an
// admission that began on the service's calendar day wins, else the
// patient's most recent admission. The fallback is a heuristic and can
// misattribute when stays overlap; admissions arrive most recent first.
func matchAdmission(ps *encounters.PatientService, admissions []*encounters.Admission) *encounters.Admission {
	for _, a := range admissions {
		ay, am, ad := a.AdmissionDate.Date()
		sy, sm, sd := ps.ScheduledDate.Date()
		if ay == sy && am == sm && ad == sd {
			return a
		}
	}
	if len(admissions) > 0 {
		return admissions[0]
	}
	return nil
}
