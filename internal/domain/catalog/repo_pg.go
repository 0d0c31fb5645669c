package catalog

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

// =========== Service Repository ===========

type serviceRepoPG struct{ pool *pgxpool.Pool }

func NewServiceRepoPG(pool *pgxpool.Pool) ServiceRepository { return &serviceRepoPG{pool: pool} }

func (r *serviceRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const svcCols = `id, name, category, service_type, price, is_active, created_at, updated_at`

func scanService(row pgx.Row) (*Service, error) {
	var s Service
	err := row.Scan(&s.ID, &s.Name, &s.Category, &s.ServiceType, &s.Price,
		&s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *serviceRepoPG) Create(ctx context.Context, s *Service) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO services (id, name, category, service_type, price, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		s.ID, s.Name, s.Category, s.ServiceType, s.Price, s.IsActive, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *serviceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Service, error) {
	return scanService(r.conn(ctx).QueryRow(ctx, `SELECT `+svcCols+` FROM services WHERE id = $1`, id))
}

func (r *serviceRepoPG) GetByNameAndCategory(ctx context.Context, name, category string) (*Service, error) {
	return scanService(r.conn(ctx).QueryRow(ctx, `
		SELECT `+svcCols+` FROM services
		WHERE LOWER(name) = LOWER($1) AND LOWER(category) = LOWER($2) AND is_active = TRUE
		LIMIT 1`, name, category))
}

func (r *serviceRepoPG) Update(ctx context.Context, s *Service) error {
	s.UpdatedAt = time.Now()
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE services SET name=$2, category=$3, service_type=$4, price=$5, is_active=$6, updated_at=$7
		WHERE id = $1`,
		s.ID, s.Name, s.Category, s.ServiceType, s.Price, s.IsActive, s.UpdatedAt)
	return err
}

func (r *serviceRepoPG) List(ctx context.Context, category string, activeOnly bool, limit, offset int) ([]*Service, int, error) {
	where := `WHERE ($1 = '' OR LOWER(category) = LOWER($1)) AND (NOT $2 OR is_active)`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM services `+where, category, activeOnly).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+svcCols+` FROM services `+where+` ORDER BY name LIMIT $3 OFFSET $4`,
		category, activeOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

// =========== Doctor Repository ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository { return &doctorRepoPG{pool: pool} }

func (r *doctorRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const docCols = `id, code, name, specialization, phone, consultation_fee, is_active, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Code, &d.Name, &d.Specialization, &d.Phone,
		&d.ConsultationFee, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.TxFromContext(ctx)
		d.ID = uuid.New()
		d.CreatedAt = time.Now()
		d.UpdatedAt = d.CreatedAt
		seq, err := db.NextSequence(ctx, q, "doctor", d.CreatedAt.Year())
		if err != nil {
			return err
		}
		d.Code = db.FormatCode("DOC", d.CreatedAt.Year(), seq)
		_, err = q.Exec(ctx, `
			INSERT INTO doctors (id, code, name, specialization, phone, consultation_fee, is_active, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			d.ID, d.Code, d.Name, d.Specialization, d.Phone, d.ConsultationFee, d.IsActive, d.CreatedAt, d.UpdatedAt)
		return err
	})
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+docCols+` FROM doctors WHERE id = $1`, id))
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	d.UpdatedAt = time.Now()
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET name=$2, specialization=$3, phone=$4, consultation_fee=$5, is_active=$6, updated_at=$7
		WHERE id = $1`,
		d.ID, d.Name, d.Specialization, d.Phone, d.ConsultationFee, d.IsActive, d.UpdatedAt)
	return err
}

func (r *doctorRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Doctor, int, error) {
	where := `WHERE (NOT $1 OR is_active)`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors `+where, activeOnly).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+docCols+` FROM doctors `+where+` ORDER BY name LIMIT $2 OFFSET $3`,
		activeOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patCols = `id, code, name, gender, date_of_birth, phone, address, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Gender, &p.DateOfBirth,
		&p.Phone, &p.Address, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.TxFromContext(ctx)
		p.ID = uuid.New()
		p.CreatedAt = time.Now()
		p.UpdatedAt = p.CreatedAt
		seq, err := db.NextSequence(ctx, q, "patient", p.CreatedAt.Year())
		if err != nil {
			return err
		}
		p.Code = db.FormatCode("PAT", p.CreatedAt.Year(), seq)
		_, err = q.Exec(ctx, `
			INSERT INTO patients (id, code, name, gender, date_of_birth, phone, address, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			p.ID, p.Code, p.Name, p.Gender, p.DateOfBirth, p.Phone, p.Address, p.CreatedAt, p.UpdatedAt)
		return err
	})
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patCols+` FROM patients WHERE id = $1`, id))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	p.UpdatedAt = time.Now()
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET name=$2, gender=$3, date_of_birth=$4, phone=$5, address=$6, updated_at=$7
		WHERE id = $1`,
		p.ID, p.Name, p.Gender, p.DateOfBirth, p.Phone, p.Address, p.UpdatedAt)
	return err
}

func (r *patientRepoPG) List(ctx context.Context, search string, limit, offset int) ([]*Patient, int, error) {
	where := `WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR code ILIKE '%' || $1 || '%' OR phone ILIKE '%' || $1 || '%')`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients `+where, search).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patCols+` FROM patients `+where+` ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
