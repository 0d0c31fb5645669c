package activity

import (
	"time"

	"github.com/google/uuid"
)

// Activity is one audit trail entry. Metadata is free-form and stored as
// jsonb.
type Activity struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	ActorID      string         `db:"actor_id" json:"actor_id"`
	ActivityType string         `db:"activity_type" json:"activity_type"`
	Description  string         `db:"description" json:"description"`
	Metadata     map[string]any `db:"metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}
