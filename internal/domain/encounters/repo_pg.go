package encounters

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

// =========== PatientService Repository ===========

type patientServiceRepoPG struct{ pool *pgxpool.Pool }

func NewPatientServiceRepoPG(pool *pgxpool.Pool) PatientServiceRepository {
	return &patientServiceRepoPG{pool: pool}
}

func (r *patientServiceRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const psCols = `id, patient_id, doctor_id, service_id, service_name, service_category, service_type,
	price, quantity, calculated_amount, scheduled_date, status, notes, created_at, updated_at`

func scanPatientService(row pgx.Row) (*PatientService, error) {
	var s PatientService
	err := row.Scan(&s.ID, &s.PatientID, &s.DoctorID, &s.ServiceID, &s.ServiceName,
		&s.ServiceCategory, &s.ServiceType, &s.Price, &s.Quantity, &s.CalculatedAmount,
		&s.ScheduledDate, &s.Status, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *patientServiceRepoPG) Create(ctx context.Context, s *PatientService) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_services (id, patient_id, doctor_id, service_id, service_name, service_category,
			service_type, price, quantity, calculated_amount, scheduled_date, status, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		s.ID, s.PatientID, s.DoctorID, s.ServiceID, s.ServiceName, s.ServiceCategory,
		s.ServiceType, s.Price, s.Quantity, s.CalculatedAmount, s.ScheduledDate, s.Status,
		s.Notes, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *patientServiceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*PatientService, error) {
	return scanPatientService(r.conn(ctx).QueryRow(ctx,
		`SELECT `+psCols+` FROM patient_services WHERE id = $1`, id))
}

func (r *patientServiceRepoPG) Update(ctx context.Context, s *PatientService) error {
	s.UpdatedAt = time.Now()
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_services SET doctor_id=$2, price=$3, quantity=$4, calculated_amount=$5,
			scheduled_date=$6, status=$7, notes=$8, updated_at=$9
		WHERE id = $1`,
		s.ID, s.DoctorID, s.Price, s.Quantity, s.CalculatedAmount, s.ScheduledDate,
		s.Status, s.Notes, s.UpdatedAt)
	return err
}

func (r *patientServiceRepoPG) queryMany(ctx context.Context, sql string, args ...any) ([]*PatientService, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PatientService
	for rows.Next() {
		s, err := scanPatientService(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *patientServiceRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*PatientService, error) {
	return r.queryMany(ctx, `
		SELECT `+psCols+` FROM patient_services
		WHERE patient_id = $1 AND status != 'cancelled'
		ORDER BY scheduled_date`, patientID)
}

func (r *patientServiceRepoPG) ListWithDoctor(ctx context.Context, doctorID *uuid.UUID) ([]*PatientService, error) {
	return r.queryMany(ctx, `
		SELECT `+psCols+` FROM patient_services
		WHERE doctor_id IS NOT NULL AND ($1::uuid IS NULL OR doctor_id = $1) AND status != 'cancelled'
		ORDER BY scheduled_date`, doctorID)
}

func (r *patientServiceRepoPG) List(ctx context.Context, patientID, doctorID *uuid.UUID, limit, offset int) ([]*PatientService, int, error) {
	where := `WHERE ($1::uuid IS NULL OR patient_id = $1) AND ($2::uuid IS NULL OR doctor_id = $2)`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient_services `+where, patientID, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := r.queryMany(ctx, `
		SELECT `+psCols+` FROM patient_services `+where+`
		ORDER BY scheduled_date DESC LIMIT $3 OFFSET $4`, patientID, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// =========== OpdVisit Repository ===========

type opdVisitRepoPG struct{ pool *pgxpool.Pool }

func NewOpdVisitRepoPG(pool *pgxpool.Pool) OpdVisitRepository { return &opdVisitRepoPG{pool: pool} }

func (r *opdVisitRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const opdCols = `id, visit_code, patient_id, doctor_id, consultation_fee, visit_date, status, notes, created_at, updated_at`

func scanOpdVisit(row pgx.Row) (*OpdVisit, error) {
	var v OpdVisit
	err := row.Scan(&v.ID, &v.VisitCode, &v.PatientID, &v.DoctorID, &v.ConsultationFee,
		&v.VisitDate, &v.Status, &v.Notes, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (r *opdVisitRepoPG) Create(ctx context.Context, v *OpdVisit) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.TxFromContext(ctx)
		v.ID = uuid.New()
		v.CreatedAt = time.Now()
		v.UpdatedAt = v.CreatedAt
		seq, err := db.NextSequence(ctx, q, "opd_visit", v.CreatedAt.Year())
		if err != nil {
			return err
		}
		v.VisitCode = db.FormatCode("OPD", v.CreatedAt.Year(), seq)
		_, err = q.Exec(ctx, `
			INSERT INTO opd_visits (id, visit_code, patient_id, doctor_id, consultation_fee, visit_date, status, notes, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			v.ID, v.VisitCode, v.PatientID, v.DoctorID, v.ConsultationFee, v.VisitDate,
			v.Status, v.Notes, v.CreatedAt, v.UpdatedAt)
		return err
	})
}

func (r *opdVisitRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*OpdVisit, error) {
	return scanOpdVisit(r.conn(ctx).QueryRow(ctx, `SELECT `+opdCols+` FROM opd_visits WHERE id = $1`, id))
}

func (r *opdVisitRepoPG) Update(ctx context.Context, v *OpdVisit) error {
	v.UpdatedAt = time.Now()
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE opd_visits SET consultation_fee=$2, visit_date=$3, status=$4, notes=$5, updated_at=$6
		WHERE id = $1`,
		v.ID, v.ConsultationFee, v.VisitDate, v.Status, v.Notes, v.UpdatedAt)
	return err
}

func (r *opdVisitRepoPG) queryMany(ctx context.Context, sql string, args ...any) ([]*OpdVisit, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*OpdVisit
	for rows.Next() {
		v, err := scanOpdVisit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (r *opdVisitRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*OpdVisit, error) {
	return r.queryMany(ctx, `
		SELECT `+opdCols+` FROM opd_visits
		WHERE patient_id = $1 AND status != 'cancelled'
		ORDER BY visit_date`, patientID)
}

func (r *opdVisitRepoPG) ListByDoctor(ctx context.Context, doctorID *uuid.UUID) ([]*OpdVisit, error) {
	return r.queryMany(ctx, `
		SELECT `+opdCols+` FROM opd_visits
		WHERE ($1::uuid IS NULL OR doctor_id = $1) AND status != 'cancelled'
		ORDER BY visit_date`, doctorID)
}

func (r *opdVisitRepoPG) List(ctx context.Context, patientID, doctorID *uuid.UUID, limit, offset int) ([]*OpdVisit, int, error) {
	where := `WHERE ($1::uuid IS NULL OR patient_id = $1) AND ($2::uuid IS NULL OR doctor_id = $2)`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM opd_visits `+where, patientID, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := r.queryMany(ctx, `
		SELECT `+opdCols+` FROM opd_visits `+where+`
		ORDER BY visit_date DESC LIMIT $3 OFFSET $4`, patientID, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// =========== PathologyOrder Repository ===========

type pathologyOrderRepoPG struct{ pool *pgxpool.Pool }

func NewPathologyOrderRepoPG(pool *pgxpool.Pool) PathologyOrderRepository {
	return &pathologyOrderRepoPG{pool: pool}
}

func (r *pathologyOrderRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const pathCols = `id, order_code, patient_id, doctor_id, total_price, order_date, status, created_at, updated_at`

func scanPathologyOrder(row pgx.Row) (*PathologyOrder, error) {
	var o PathologyOrder
	err := row.Scan(&o.ID, &o.OrderCode, &o.PatientID, &o.DoctorID, &o.TotalPrice,
		&o.OrderDate, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *pathologyOrderRepoPG) Create(ctx context.Context, o *PathologyOrder) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.TxFromContext(ctx)
		o.ID = uuid.New()
		o.CreatedAt = time.Now()
		o.UpdatedAt = o.CreatedAt
		seq, err := db.NextSequence(ctx, q, "pathology_order", o.CreatedAt.Year())
		if err != nil {
			return err
		}
		o.OrderCode = db.FormatCode("PATH", o.CreatedAt.Year(), seq)
		_, err = q.Exec(ctx, `
			INSERT INTO pathology_orders (id, order_code, patient_id, doctor_id, total_price, order_date, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			o.ID, o.OrderCode, o.PatientID, o.DoctorID, o.TotalPrice, o.OrderDate,
			o.Status, o.CreatedAt, o.UpdatedAt)
		if err != nil {
			return err
		}
		for _, t := range o.Tests {
			t.ID = uuid.New()
			t.OrderID = o.ID
			if _, err := q.Exec(ctx, `
				INSERT INTO pathology_order_tests (id, order_id, test_name, price)
				VALUES ($1,$2,$3,$4)`,
				t.ID, t.OrderID, t.TestName, t.Price); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *pathologyOrderRepoPG) loadTests(ctx context.Context, o *PathologyOrder) error {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, order_id, test_name, price FROM pathology_order_tests
		WHERE order_id = $1 ORDER BY test_name`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var t PathologyOrderTest
		if err := rows.Scan(&t.ID, &t.OrderID, &t.TestName, &t.Price); err != nil {
			return err
		}
		o.Tests = append(o.Tests, &t)
	}
	return rows.Err()
}

func (r *pathologyOrderRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*PathologyOrder, error) {
	o, err := scanPathologyOrder(r.conn(ctx).QueryRow(ctx,
		`SELECT `+pathCols+` FROM pathology_orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadTests(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *pathologyOrderRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE pathology_orders SET status=$2, updated_at=$3 WHERE id = $1`,
		id, status, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pathologyOrderRepoPG) queryMany(ctx context.Context, sql string, args ...any) ([]*PathologyOrder, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PathologyOrder
	for rows.Next() {
		o, err := scanPathologyOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

func (r *pathologyOrderRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*PathologyOrder, error) {
	return r.queryMany(ctx, `
		SELECT `+pathCols+` FROM pathology_orders
		WHERE patient_id = $1 AND status != 'cancelled'
		ORDER BY order_date`, patientID)
}

func (r *pathologyOrderRepoPG) ListByDoctor(ctx context.Context, doctorID *uuid.UUID) ([]*PathologyOrder, error) {
	return r.queryMany(ctx, `
		SELECT `+pathCols+` FROM pathology_orders
		WHERE doctor_id IS NOT NULL AND ($1::uuid IS NULL OR doctor_id = $1) AND status != 'cancelled'
		ORDER BY order_date`, doctorID)
}

func (r *pathologyOrderRepoPG) List(ctx context.Context, patientID, doctorID *uuid.UUID, limit, offset int) ([]*PathologyOrder, int, error) {
	where := `WHERE ($1::uuid IS NULL OR patient_id = $1) AND ($2::uuid IS NULL OR doctor_id = $2)`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM pathology_orders `+where, patientID, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := r.queryMany(ctx, `
		SELECT `+pathCols+` FROM pathology_orders `+where+`
		ORDER BY order_date DESC LIMIT $3 OFFSET $4`, patientID, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// =========== Admission Repository ===========

type admissionRepoPG struct{ pool *pgxpool.Pool }

func NewAdmissionRepoPG(pool *pgxpool.Pool) AdmissionRepository { return &admissionRepoPG{pool: pool} }

func (r *admissionRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const admCols = `id, admission_code, patient_id, doctor_id, ward_name, bed_number, daily_cost,
	initial_deposit, additional_payment, total_discount, admission_date, discharge_date, status, created_at, updated_at`

func scanAdmission(row pgx.Row) (*Admission, error) {
	var a Admission
	err := row.Scan(&a.ID, &a.AdmissionCode, &a.PatientID, &a.DoctorID, &a.WardName,
		&a.BedNumber, &a.DailyCost, &a.InitialDeposit, &a.AdditionalPayment, &a.TotalDiscount,
		&a.AdmissionDate, &a.DischargeDate, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *admissionRepoPG) Create(ctx context.Context, a *Admission) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.TxFromContext(ctx)
		a.ID = uuid.New()
		a.CreatedAt = time.Now()
		a.UpdatedAt = a.CreatedAt
		seq, err := db.NextSequence(ctx, q, "admission", a.CreatedAt.Year())
		if err != nil {
			return err
		}
		a.AdmissionCode = db.FormatCode("ADM", a.CreatedAt.Year(), seq)
		_, err = q.Exec(ctx, `
			INSERT INTO admissions (id, admission_code, patient_id, doctor_id, ward_name, bed_number,
				daily_cost, initial_deposit, additional_payment, total_discount, admission_date,
				discharge_date, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			a.ID, a.AdmissionCode, a.PatientID, a.DoctorID, a.WardName, a.BedNumber,
			a.DailyCost, a.InitialDeposit, a.AdditionalPayment, a.TotalDiscount,
			a.AdmissionDate, a.DischargeDate, a.Status, a.CreatedAt, a.UpdatedAt)
		return err
	})
}

func (r *admissionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return scanAdmission(r.conn(ctx).QueryRow(ctx, `SELECT `+admCols+` FROM admissions WHERE id = $1`, id))
}

func (r *admissionRepoPG) Update(ctx context.Context, a *Admission) error {
	a.UpdatedAt = time.Now()
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE admissions SET doctor_id=$2, ward_name=$3, bed_number=$4, daily_cost=$5,
			initial_deposit=$6, additional_payment=$7, total_discount=$8, admission_date=$9,
			discharge_date=$10, status=$11, updated_at=$12
		WHERE id = $1`,
		a.ID, a.DoctorID, a.WardName, a.BedNumber, a.DailyCost, a.InitialDeposit,
		a.AdditionalPayment, a.TotalDiscount, a.AdmissionDate, a.DischargeDate,
		a.Status, a.UpdatedAt)
	return err
}

func (r *admissionRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Admission, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+admCols+` FROM admissions
		WHERE patient_id = $1
		ORDER BY admission_date DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Admission
	for rows.Next() {
		a, err := scanAdmission(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *admissionRepoPG) List(ctx context.Context, patientID *uuid.UUID, status string, limit, offset int) ([]*Admission, int, error) {
	where := `WHERE ($1::uuid IS NULL OR patient_id = $1) AND ($2 = '' OR status = $2)`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM admissions `+where, patientID, status).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+admCols+` FROM admissions `+where+`
		ORDER BY admission_date DESC LIMIT $3 OFFSET $4`, patientID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Admission
	for rows.Next() {
		a, err := scanAdmission(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
