package activity

import (
	"context"

	"github.com/rs/zerolog"
)

// Service records audit entries. Record is fire-and-forget: the audit trail
// is useful but never worth failing the operation it describes.
type Service struct {
	repo ActivityRepository
	log  zerolog.Logger
}

func NewService(repo ActivityRepository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log.With().Str("component", "activity").Logger()}
}

func (s *Service) Record(ctx context.Context, actorID, activityType, description string, metadata map[string]any) {
	a := &Activity{
		ActorID:      actorID,
		ActivityType: activityType,
		Description:  description,
		Metadata:     metadata,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		s.log.Warn().Err(err).Str("activity_type", activityType).Msg("activity record failed")
	}
}

func (s *Service) List(ctx context.Context, activityType string, limit, offset int) ([]*Activity, int, error) {
	return s.repo.List(ctx, activityType, limit, offset)
}
