package earnings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medicore/hms/internal/domain/encounters"
	"github.com/medicore/hms/internal/domain/rates"
)

// RateResolver finds the commission rule for one billable event, or
// (nil, nil) when the doctor has none configured.
type RateResolver interface {
	Resolve(ctx context.Context, doctorID uuid.UUID, ref rates.ServiceRef, serviceName, serviceCategory string) (*rates.RateRule, error)
}

// Event sources used by Recalculate to backfill earnings for events recorded
// before their rate rules existed. Satisfied by the encounters repositories.
type (
	ServiceSource interface {
		ListWithDoctor(ctx context.Context, doctorID *uuid.UUID) ([]*encounters.PatientService, error)
	}
	VisitSource interface {
		ListByDoctor(ctx context.Context, doctorID *uuid.UUID) ([]*encounters.OpdVisit, error)
	}
	OrderSource interface {
		ListByDoctor(ctx context.Context, doctorID *uuid.UUID) ([]*encounters.PathologyOrder, error)
	}
)

// ActivityRecorder writes audit entries. Implementations never return
// errors; a failed record is logged and dropped.
type ActivityRecorder interface {
	Record(ctx context.Context, actorID, activityType, description string, metadata map[string]any)
}

type Service struct {
	repo     EarningRepository
	resolver RateResolver
	services ServiceSource
	visits   VisitSource
	orders   OrderSource
	activity ActivityRecorder
	log      zerolog.Logger
}

func NewService(repo EarningRepository, resolver RateResolver, services ServiceSource, visits VisitSource, orders OrderSource, activity ActivityRecorder, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		services: services,
		visits:   visits,
		orders:   orders,
		activity: activity,
		log:      log.With().Str("component", "earnings").Logger(),
	}
}

// calculate runs the shared idempotent calculation for one billable event.
// The bool reports whether a new earning row was written.
//
// The pre-insert GetBySource is an optimization; the unique constraint on the
// source key is what actually guarantees at-most-one earning per event.
// Losing the race surfaces as ErrDuplicateSource and resolves to the winner's
// row.
func (s *Service) calculate(ctx context.Context, doctorID *uuid.UUID, patientID uuid.UUID,
	sourceType SourceType, sourceID uuid.UUID, ref rates.ServiceRef,
	serviceName, serviceCategory string, basePrice float64, serviceDate time.Time,
) (*Earning, bool, error) {
	existing, err := s.repo.GetBySource(ctx, sourceType, sourceID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	if doctorID == nil || basePrice == 0 {
		return nil, false, nil
	}

	rule, err := s.resolver.Resolve(ctx, *doctorID, ref, serviceName, serviceCategory)
	if err != nil {
		return nil, false, err
	}
	if rule == nil {
		return nil, false, nil
	}

	e := &Earning{
		DoctorID:        *doctorID,
		PatientID:       patientID,
		SourceEventType: sourceType,
		SourceEventID:   sourceID,
		ServiceName:     serviceName,
		ServiceCategory: serviceCategory,
		ServiceDate:     serviceDate,
		RateType:        rule.RateType,
		RateAmount:      rule.RateAmount,
		ServicePrice:    basePrice,
		EarnedAmount:    rule.Apply(basePrice),
	}
	if err := s.repo.Create(ctx, e); err != nil {
		if errors.Is(err, ErrDuplicateSource) {
			won, ferr := s.repo.GetBySource(ctx, sourceType, sourceID)
			if ferr != nil {
				return nil, false, ferr
			}
			return won, false, nil
		}
		return nil, false, err
	}
	return e, true, nil
}

// CalculateService computes the commission for one patient service. Returns
// (nil, nil) when the service has no doctor, a zero amount, or no matching
// rate rule.
func (s *Service) CalculateService(ctx context.Context, ps *encounters.PatientService) (*Earning, error) {
	e, _, err := s.calculate(ctx, ps.DoctorID, ps.PatientID,
		SourceService, ps.ID, rates.ConcreteService(ps.ServiceID),
		ps.ServiceName, ps.ServiceCategory, ps.BillableAmount(), ps.ScheduledDate)
	return e, err
}

func (s *Service) CalculateOpdVisit(ctx context.Context, v *encounters.OpdVisit) (*Earning, error) {
	doctorID := v.DoctorID
	e, _, err := s.calculate(ctx, &doctorID, v.PatientID,
		SourceOpd, v.ID, rates.OpdConsultation(),
		"OPD Consultation", "opd", v.ConsultationFee, v.VisitDate)
	return e, err
}

func (s *Service) CalculatePathologyOrder(ctx context.Context, o *encounters.PathologyOrder) (*Earning, error) {
	e, _, err := s.calculate(ctx, o.DoctorID, o.PatientID,
		SourcePathology, o.ID, rates.PathologyAllTests(),
		"Pathology Order "+o.OrderCode, "pathology", o.TotalPrice, o.OrderDate)
	return e, err
}

// Best-effort variants used by encounter creation: commission bookkeeping
// must never fail the billing action that triggered it, so failures are
// logged at warn and swallowed. Recalculate backfills anything missed.

func (s *Service) CalculateForService(ctx context.Context, ps *encounters.PatientService) {
	if _, err := s.CalculateService(ctx, ps); err != nil {
		s.log.Warn().Err(err).Str("patient_service_id", ps.ID.String()).Msg("earning calculation failed")
	}
}

func (s *Service) CalculateForOpdVisit(ctx context.Context, v *encounters.OpdVisit) {
	if _, err := s.CalculateOpdVisit(ctx, v); err != nil {
		s.log.Warn().Err(err).Str("opd_visit_id", v.ID.String()).Msg("earning calculation failed")
	}
}

func (s *Service) CalculateForPathologyOrder(ctx context.Context, o *encounters.PathologyOrder) {
	if _, err := s.CalculatePathologyOrder(ctx, o); err != nil {
		s.log.Warn().Err(err).Str("pathology_order_id", o.ID.String()).Msg("earning calculation failed")
	}
}

func (s *Service) GetEarning(ctx context.Context, id uuid.UUID) (*Earning, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListEarnings(ctx context.Context, doctorID *uuid.UUID, status string, limit, offset int) ([]*Earning, int, error) {
	if status != "" && status != StatusPending && status != StatusPaid {
		return nil, 0, fmt.Errorf("invalid status: %s", status)
	}
	return s.repo.List(ctx, doctorID, status, limit, offset)
}

// MarkPaid settles one earning and issues a payment covering exactly it. A
// paid earning comes back with AlreadyPaid set and no new payment.
func (s *Service) MarkPaid(ctx context.Context, earningID uuid.UUID, processedBy, method string) (*PayResult, error) {
	e, err := s.repo.GetByID(ctx, earningID)
	if err != nil {
		return nil, err
	}
	if e.Status == StatusPaid {
		return &PayResult{Earning: e, AlreadyPaid: true}, nil
	}
	if method == "" {
		method = "cash"
	}
	p := &DoctorPayment{
		DoctorID:      e.DoctorID,
		TotalAmount:   e.EarnedAmount,
		PaymentMethod: method,
		StartDate:     e.ServiceDate,
		EndDate:       e.ServiceDate,
		EarningsCount: 1,
		ProcessedBy:   processedBy,
	}
	if err := s.repo.MarkPaid(ctx, e, p); err != nil {
		return nil, err
	}
	s.activity.Record(ctx, processedBy, "earning_paid",
		fmt.Sprintf("Paid earning %s (%s)", e.EarningCode, p.PaymentCode),
		map[string]any{"earning_id": e.ID.String(), "payment_id": p.ID.String(), "amount": p.TotalAmount})
	return &PayResult{Earning: e, Payment: p}, nil
}

// MarkAllPendingPaid settles every pending earning for the doctor under one
// payment, all or nothing. No pending earnings is the benign NothingToPay
// outcome.
func (s *Service) MarkAllPendingPaid(ctx context.Context, doctorID uuid.UUID, processedBy, method string) (*BulkPayResult, error) {
	if method == "" {
		method = "cash"
	}
	p := &DoctorPayment{PaymentMethod: method, ProcessedBy: processedBy}
	settled, err := s.repo.PayAllPending(ctx, doctorID, p)
	if err != nil {
		return nil, err
	}
	if settled == nil {
		return &BulkPayResult{NothingToPay: true}, nil
	}
	s.activity.Record(ctx, processedBy, "earnings_bulk_paid",
		fmt.Sprintf("Paid %d earnings (%s)", len(settled), p.PaymentCode),
		map[string]any{"doctor_id": doctorID.String(), "payment_id": p.ID.String(), "amount": p.TotalAmount})
	return &BulkPayResult{Payment: p, Count: len(settled)}, nil
}

// Recalculate re-runs the calculation over every billable event with a
// doctor assigned, creating earnings that are missing. Rates configured
// after the fact get picked up here.
func (s *Service) Recalculate(ctx context.Context, doctorID *uuid.UUID) (*RecalcResult, error) {
	res := &RecalcResult{}

	services, err := s.services.ListWithDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	for _, ps := range services {
		res.Processed++
		_, created, err := s.calculate(ctx, ps.DoctorID, ps.PatientID,
			SourceService, ps.ID, rates.ConcreteService(ps.ServiceID),
			ps.ServiceName, ps.ServiceCategory, ps.BillableAmount(), ps.ScheduledDate)
		if err != nil {
			return nil, err
		}
		if created {
			res.Created++
		}
	}

	visits, err := s.visits.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	for _, v := range visits {
		res.Processed++
		docID := v.DoctorID
		_, created, err := s.calculate(ctx, &docID, v.PatientID,
			SourceOpd, v.ID, rates.OpdConsultation(),
			"OPD Consultation", "opd", v.ConsultationFee, v.VisitDate)
		if err != nil {
			return nil, err
		}
		if created {
			res.Created++
		}
	}

	orders, err := s.orders.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		res.Processed++
		_, created, err := s.calculate(ctx, o.DoctorID, o.PatientID,
			SourcePathology, o.ID, rates.PathologyAllTests(),
			"Pathology Order "+o.OrderCode, "pathology", o.TotalPrice, o.OrderDate)
		if err != nil {
			return nil, err
		}
		if created {
			res.Created++
		}
	}

	s.log.Info().Int("processed", res.Processed).Int("created", res.Created).Msg("earnings recalculated")
	return res, nil
}

func (s *Service) GetPayment(ctx context.Context, id uuid.UUID) (*DoctorPayment, error) {
	return s.repo.GetPaymentByID(ctx, id)
}

func (s *Service) ListPayments(ctx context.Context, doctorID *uuid.UUID, limit, offset int) ([]*DoctorPayment, int, error) {
	return s.repo.ListPayments(ctx, doctorID, limit, offset)
}

func (s *Service) PendingTotal(ctx context.Context, doctorID uuid.UUID, since time.Time) (float64, error) {
	return s.repo.PendingTotal(ctx, doctorID, since)
}
