package activity

import (
	"context"
)

type ActivityRepository interface {
	Create(ctx context.Context, a *Activity) error
	List(ctx context.Context, activityType string, limit, offset int) ([]*Activity, int, error)
}
