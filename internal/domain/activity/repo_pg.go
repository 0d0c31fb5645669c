package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicore/hms/internal/platform/db"
)

type activityRepoPG struct{ pool *pgxpool.Pool }

func NewActivityRepoPG(pool *pgxpool.Pool) ActivityRepository { return &activityRepoPG{pool: pool} }

func (r *activityRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *activityRepoPG) Create(ctx context.Context, a *Activity) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO activities (id, actor_id, activity_type, description, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.ActorID, a.ActivityType, a.Description, a.Metadata, a.CreatedAt)
	return err
}

func (r *activityRepoPG) List(ctx context.Context, activityType string, limit, offset int) ([]*Activity, int, error) {
	where := `WHERE ($1 = '' OR activity_type = $1)`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM activities `+where, activityType).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, actor_id, activity_type, description, metadata, created_at
		FROM activities `+where+`
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, activityType, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.ActorID, &a.ActivityType, &a.Description, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &a)
	}
	return items, total, rows.Err()
}
