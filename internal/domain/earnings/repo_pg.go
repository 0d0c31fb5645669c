package earnings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicore/hms/internal/platform/db"
)

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type earningRepoPG struct{ pool *pgxpool.Pool }

func NewEarningRepoPG(pool *pgxpool.Pool) EarningRepository { return &earningRepoPG{pool: pool} }

func (r *earningRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const earnCols = `id, earning_code, doctor_id, patient_id, source_event_type, source_event_id,
	service_name, service_category, service_date, rate_type, rate_amount, service_price,
	earned_amount, status, payment_id, created_at, updated_at`

func scanEarning(row pgx.Row) (*Earning, error) {
	var e Earning
	err := row.Scan(&e.ID, &e.EarningCode, &e.DoctorID, &e.PatientID, &e.SourceEventType,
		&e.SourceEventID, &e.ServiceName, &e.ServiceCategory, &e.ServiceDate, &e.RateType,
		&e.RateAmount, &e.ServicePrice, &e.EarnedAmount, &e.Status, &e.PaymentID,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (r *earningRepoPG) Create(ctx context.Context, e *Earning) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.TxFromContext(ctx)
		e.ID = uuid.New()
		e.CreatedAt = time.Now()
		e.UpdatedAt = e.CreatedAt
		e.Status = StatusPending
		seq, err := db.NextSequence(ctx, q, "earning", e.CreatedAt.Year())
		if err != nil {
			return err
		}
		e.EarningCode = db.FormatCode("EARN", e.CreatedAt.Year(), seq)
		_, err = q.Exec(ctx, `
			INSERT INTO earnings (id, earning_code, doctor_id, patient_id, source_event_type, source_event_id,
				service_name, service_category, service_date, rate_type, rate_amount, service_price,
				earned_amount, status, payment_id, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
			e.ID, e.EarningCode, e.DoctorID, e.PatientID, e.SourceEventType, e.SourceEventID,
			e.ServiceName, e.ServiceCategory, e.ServiceDate, e.RateType, e.RateAmount,
			e.ServicePrice, e.EarnedAmount, e.Status, e.PaymentID, e.CreatedAt, e.UpdatedAt)
		if isUniqueViolation(err) {
			return ErrDuplicateSource
		}
		return err
	})
}

func (r *earningRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Earning, error) {
	return scanEarning(r.conn(ctx).QueryRow(ctx, `SELECT `+earnCols+` FROM earnings WHERE id = $1`, id))
}

func (r *earningRepoPG) GetBySource(ctx context.Context, sourceType SourceType, sourceID uuid.UUID) (*Earning, error) {
	e, err := scanEarning(r.conn(ctx).QueryRow(ctx, `
		SELECT `+earnCols+` FROM earnings
		WHERE source_event_type = $1 AND source_event_id = $2`, sourceType, sourceID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return e, err
}

func (r *earningRepoPG) List(ctx context.Context, doctorID *uuid.UUID, status string, limit, offset int) ([]*Earning, int, error) {
	where := `WHERE ($1::uuid IS NULL OR doctor_id = $1) AND ($2 = '' OR status = $2)`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM earnings `+where, doctorID, status).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+earnCols+` FROM earnings `+where+`
		ORDER BY service_date DESC LIMIT $3 OFFSET $4`, doctorID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Earning
	for rows.Next() {
		e, err := scanEarning(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *earningRepoPG) insertPayment(ctx context.Context, q db.Queryable, p *DoctorPayment) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	if p.PaymentDate.IsZero() {
		p.PaymentDate = p.CreatedAt
	}
	seq, err := db.NextSequence(ctx, q, "doctor_payment", p.CreatedAt.Year())
	if err != nil {
		return err
	}
	p.PaymentCode = db.FormatCode("DPAY", p.CreatedAt.Year(), seq)
	_, err = q.Exec(ctx, `
		INSERT INTO doctor_payments (id, payment_code, doctor_id, payment_date, total_amount,
			payment_method, start_date, end_date, earnings_count, processed_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.PaymentCode, p.DoctorID, p.PaymentDate, p.TotalAmount, p.PaymentMethod,
		p.StartDate, p.EndDate, p.EarningsCount, p.ProcessedBy, p.CreatedAt)
	return err
}

func (r *earningRepoPG) MarkPaid(ctx context.Context, e *Earning, p *DoctorPayment) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.TxFromContext(ctx)
		if err := r.insertPayment(ctx, q, p); err != nil {
			return err
		}
		e.Status = StatusPaid
		e.PaymentID = &p.ID
		e.UpdatedAt = time.Now()
		tag, err := q.Exec(ctx, `
			UPDATE earnings SET status=$2, payment_id=$3, updated_at=$4
			WHERE id = $1 AND status = 'pending'`,
			e.ID, e.Status, e.PaymentID, e.UpdatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *earningRepoPG) PayAllPending(ctx context.Context, doctorID uuid.UUID, p *DoctorPayment) ([]*Earning, error) {
	var settled []*Earning
	err := db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.TxFromContext(ctx)
		rows, err := q.Query(ctx, `
			SELECT `+earnCols+` FROM earnings
			WHERE doctor_id = $1 AND status = 'pending'
			ORDER BY service_date
			FOR UPDATE`, doctorID)
		if err != nil {
			return err
		}
		for rows.Next() {
			e, err := scanEarning(rows)
			if err != nil {
				rows.Close()
				return err
			}
			settled = append(settled, e)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(settled) == 0 {
			return nil
		}

		p.DoctorID = doctorID
		p.TotalAmount = 0
		p.StartDate = settled[0].ServiceDate
		p.EndDate = settled[0].ServiceDate
		for _, e := range settled {
			p.TotalAmount += e.EarnedAmount
			if e.ServiceDate.Before(p.StartDate) {
				p.StartDate = e.ServiceDate
			}
			if e.ServiceDate.After(p.EndDate) {
				p.EndDate = e.ServiceDate
			}
		}
		p.EarningsCount = len(settled)
		if err := r.insertPayment(ctx, q, p); err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(settled))
		now := time.Now()
		for i, e := range settled {
			ids[i] = e.ID
			e.Status = StatusPaid
			e.PaymentID = &p.ID
			e.UpdatedAt = now
		}
		_, err = q.Exec(ctx, `
			UPDATE earnings SET status='paid', payment_id=$1, updated_at=$2
			WHERE id = ANY($3)`, p.ID, now, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(settled) == 0 {
		return nil, nil
	}
	return settled, nil
}

const payCols = `id, payment_code, doctor_id, payment_date, total_amount, payment_method,
	start_date, end_date, earnings_count, processed_by, created_at`

func scanPayment(row pgx.Row) (*DoctorPayment, error) {
	var p DoctorPayment
	err := row.Scan(&p.ID, &p.PaymentCode, &p.DoctorID, &p.PaymentDate, &p.TotalAmount,
		&p.PaymentMethod, &p.StartDate, &p.EndDate, &p.EarningsCount, &p.ProcessedBy, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *earningRepoPG) GetPaymentByID(ctx context.Context, id uuid.UUID) (*DoctorPayment, error) {
	return scanPayment(r.conn(ctx).QueryRow(ctx, `SELECT `+payCols+` FROM doctor_payments WHERE id = $1`, id))
}

func (r *earningRepoPG) ListPayments(ctx context.Context, doctorID *uuid.UUID, limit, offset int) ([]*DoctorPayment, int, error) {
	where := `WHERE ($1::uuid IS NULL OR doctor_id = $1)`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctor_payments `+where, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+payCols+` FROM doctor_payments `+where+`
		ORDER BY payment_date DESC LIMIT $2 OFFSET $3`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*DoctorPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *earningRepoPG) PendingTotal(ctx context.Context, doctorID uuid.UUID, since time.Time) (float64, error) {
	var total float64
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(earned_amount), 0) FROM earnings
		WHERE doctor_id = $1 AND status = 'pending' AND service_date >= $2`,
		doctorID, since).Scan(&total)
	return total, err
}
