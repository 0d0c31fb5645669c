package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicore/hms/internal/platform/db"
)

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// =========== PatientPayment Repository ===========

type patientPaymentRepoPG struct{ pool *pgxpool.Pool }

func NewPatientPaymentRepoPG(pool *pgxpool.Pool) PatientPaymentRepository {
	return &patientPaymentRepoPG{pool: pool}
}

func (r *patientPaymentRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const payCols = `id, receipt_code, patient_id, amount, payment_date, payment_method, reason, processed_by, created_at`

func scanPayment(row pgx.Row) (*PatientPayment, error) {
	var p PatientPayment
	err := row.Scan(&p.ID, &p.ReceiptCode, &p.PatientID, &p.Amount, &p.PaymentDate,
		&p.PaymentMethod, &p.Reason, &p.ProcessedBy, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *patientPaymentRepoPG) Create(ctx context.Context, p *PatientPayment) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.TxFromContext(ctx)
		p.ID = uuid.New()
		p.CreatedAt = time.Now()
		if p.PaymentDate.IsZero() {
			p.PaymentDate = p.CreatedAt
		}
		seq, err := db.NextSequence(ctx, q, "patient_payment", p.CreatedAt.Year())
		if err != nil {
			return err
		}
		p.ReceiptCode = db.FormatCode("RCPT", p.CreatedAt.Year(), seq)
		_, err = q.Exec(ctx, `
			INSERT INTO patient_payments (id, receipt_code, patient_id, amount, payment_date, payment_method, reason, processed_by, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			p.ID, p.ReceiptCode, p.PatientID, p.Amount, p.PaymentDate, p.PaymentMethod,
			p.Reason, p.ProcessedBy, p.CreatedAt)
		return err
	})
}

func (r *patientPaymentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*PatientPayment, error) {
	return scanPayment(r.conn(ctx).QueryRow(ctx, `SELECT `+payCols+` FROM patient_payments WHERE id = $1`, id))
}

func (r *patientPaymentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*PatientPayment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+payCols+` FROM patient_payments
		WHERE patient_id = $1 ORDER BY payment_date`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PatientPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *patientPaymentRepoPG) List(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*PatientPayment, int, error) {
	where := `WHERE ($1::uuid IS NULL OR patient_id = $1)`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient_payments `+where, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+payCols+` FROM patient_payments `+where+`
		ORDER BY payment_date DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*PatientPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// =========== PatientDiscount Repository ===========

type patientDiscountRepoPG struct{ pool *pgxpool.Pool }

func NewPatientDiscountRepoPG(pool *pgxpool.Pool) PatientDiscountRepository {
	return &patientDiscountRepoPG{pool: pool}
}

func (r *patientDiscountRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const discCols = `id, discount_code, patient_id, amount, discount_date, reason, processed_by, created_at`

func scanDiscount(row pgx.Row) (*PatientDiscount, error) {
	var d PatientDiscount
	err := row.Scan(&d.ID, &d.DiscountCode, &d.PatientID, &d.Amount, &d.DiscountDate,
		&d.Reason, &d.ProcessedBy, &d.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *patientDiscountRepoPG) Create(ctx context.Context, d *PatientDiscount) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.TxFromContext(ctx)
		d.ID = uuid.New()
		d.CreatedAt = time.Now()
		if d.DiscountDate.IsZero() {
			d.DiscountDate = d.CreatedAt
		}
		seq, err := db.NextSequence(ctx, q, "patient_discount", d.CreatedAt.Year())
		if err != nil {
			return err
		}
		d.DiscountCode = db.FormatCode("DISC", d.CreatedAt.Year(), seq)
		_, err = q.Exec(ctx, `
			INSERT INTO patient_discounts (id, discount_code, patient_id, amount, discount_date, reason, processed_by, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			d.ID, d.DiscountCode, d.PatientID, d.Amount, d.DiscountDate, d.Reason,
			d.ProcessedBy, d.CreatedAt)
		return err
	})
}

func (r *patientDiscountRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*PatientDiscount, error) {
	return scanDiscount(r.conn(ctx).QueryRow(ctx, `SELECT `+discCols+` FROM patient_discounts WHERE id = $1`, id))
}

func (r *patientDiscountRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*PatientDiscount, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+discCols+` FROM patient_discounts
		WHERE patient_id = $1 ORDER BY discount_date`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PatientDiscount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *patientDiscountRepoPG) List(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*PatientDiscount, int, error) {
	where := `WHERE ($1::uuid IS NULL OR patient_id = $1)`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient_discounts `+where, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+discCols+` FROM patient_discounts `+where+`
		ORDER BY discount_date DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*PatientDiscount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}
