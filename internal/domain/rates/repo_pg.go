package rates

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicore/hms/internal/platform/db"
)

type rateRuleRepoPG struct{ pool *pgxpool.Pool }

func NewRateRuleRepoPG(pool *pgxpool.Pool) RateRuleRepository { return &rateRuleRepoPG{pool: pool} }

func (r *rateRuleRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const ruleCols = `id, doctor_id, service_scope, service_id, service_name, service_category,
	rate_type, rate_amount, is_active, created_at, updated_at`

func scanRule(row pgx.Row) (*RateRule, error) {
	var rr RateRule
	err := row.Scan(&rr.ID, &rr.DoctorID, &rr.ServiceScope, &rr.ServiceID, &rr.ServiceName,
		&rr.ServiceCategory, &rr.RateType, &rr.RateAmount, &rr.IsActive, &rr.CreatedAt, &rr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rr, nil
}

func (r *rateRuleRepoPG) Create(ctx context.Context, rule *RateRule) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.TxFromContext(ctx)
		// Supersede the previously active rule for the same target only.
		// Name+category-bound rules all carry a NULL service_id, so they are
		// told apart by their binding (case-insensitive, matching lookup).
		// Historical earnings keep their own denormalized rate fields, so
		// this never rewrites past commissions.
		_, err := q.Exec(ctx, `
			UPDATE rate_rules SET is_active = FALSE, updated_at = NOW()
			WHERE doctor_id = $1 AND service_scope = $2 AND service_id IS NOT DISTINCT FROM $3
				AND LOWER(service_name) IS NOT DISTINCT FROM LOWER($4)
				AND LOWER(service_category) IS NOT DISTINCT FROM LOWER($5)
				AND is_active`,
			rule.DoctorID, rule.ServiceScope, rule.ServiceID, rule.ServiceName, rule.ServiceCategory)
		if err != nil {
			return err
		}

		rule.ID = uuid.New()
		rule.IsActive = true
		rule.CreatedAt = time.Now()
		rule.UpdatedAt = rule.CreatedAt
		_, err = q.Exec(ctx, `
			INSERT INTO rate_rules (id, doctor_id, service_scope, service_id, service_name, service_category,
				rate_type, rate_amount, is_active, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			rule.ID, rule.DoctorID, rule.ServiceScope, rule.ServiceID, rule.ServiceName, rule.ServiceCategory,
			rule.RateType, rule.RateAmount, rule.IsActive, rule.CreatedAt, rule.UpdatedAt)
		return err
	})
}

func (r *rateRuleRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*RateRule, error) {
	rule, err := scanRule(r.conn(ctx).QueryRow(ctx, `SELECT `+ruleCols+` FROM rate_rules WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rule, err
}

func (r *rateRuleRepoPG) Update(ctx context.Context, rule *RateRule) error {
	rule.UpdatedAt = time.Now()
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE rate_rules SET rate_type=$2, rate_amount=$3, is_active=$4, updated_at=$5
		WHERE id = $1`,
		rule.ID, rule.RateType, rule.RateAmount, rule.IsActive, rule.UpdatedAt)
	return err
}

func (r *rateRuleRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE rate_rules SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *rateRuleRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, activeOnly bool, limit, offset int) ([]*RateRule, int, error) {
	where := `WHERE doctor_id = $1 AND (NOT $2 OR is_active)`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM rate_rules `+where, doctorID, activeOnly).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+ruleCols+` FROM rate_rules `+where+` ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		doctorID, activeOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*RateRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rule)
	}
	return items, total, rows.Err()
}

func (r *rateRuleRepoPG) findOne(ctx context.Context, sql string, args ...interface{}) (*RateRule, error) {
	rule, err := scanRule(r.conn(ctx).QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rule, err
}

func (r *rateRuleRepoPG) FindByServiceID(ctx context.Context, doctorID, serviceID uuid.UUID) (*RateRule, error) {
	return r.findOne(ctx, `
		SELECT `+ruleCols+` FROM rate_rules
		WHERE doctor_id = $1 AND service_scope = 'service' AND service_id = $2 AND is_active
		ORDER BY created_at DESC LIMIT 1`, doctorID, serviceID)
}

func (r *rateRuleRepoPG) FindByNameAndCategory(ctx context.Context, doctorID uuid.UUID, name, category string) (*RateRule, error) {
	return r.findOne(ctx, `
		SELECT `+ruleCols+` FROM rate_rules
		WHERE doctor_id = $1 AND LOWER(service_name) = LOWER($2) AND LOWER(service_category) = LOWER($3) AND is_active
		ORDER BY created_at DESC LIMIT 1`, doctorID, name, category)
}

func (r *rateRuleRepoPG) FindByScope(ctx context.Context, doctorID uuid.UUID, scope ServiceScope) (*RateRule, error) {
	return r.findOne(ctx, `
		SELECT `+ruleCols+` FROM rate_rules
		WHERE doctor_id = $1 AND service_scope = $2 AND is_active
		ORDER BY created_at DESC LIMIT 1`, doctorID, scope)
}
