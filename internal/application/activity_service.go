package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/repairops/internal/persistence"
)

// ActivityService appends to and reads from the activity log. Recording is
// best-effort: a failed append is logged but never fails the mutation that
// triggered it.
type ActivityService struct {
	activities  persistence.ActivityRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewActivityService constructs an ActivityService.
func NewActivityService(activities persistence.ActivityRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ActivityService {
	return &ActivityService{
		activities:  activities,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// Record appends an activity entry describing a mutation.
func (s *ActivityService) Record(ctx context.Context, actorID, entityKind, entityID, action, detail string) {
	entry := persistence.Activity{
		ID:         s.idGenerator(),
		ActorID:    actorID,
		EntityKind: entityKind,
		EntityID:   entityID,
		Action:     action,
		Detail:     detail,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.activities.AppendActivity(ctx, entry); err != nil {
		serviceLogger(ctx, s.logger, "activity", "record").Error("failed to append activity",
			"error", err, "entityKind", entityKind, "entityId", entityID, "action", action)
	}
}

// List returns the most recent activity entries, newest first.
func (s *ActivityService) List(ctx context.Context, limit int) ([]persistence.Activity, error) {
	entries, err := s.activities.ListActivities(ctx, limit)
	if err != nil {
		serviceLogger(ctx, s.logger, "activity", "list").Error("failed to list activities", "error", err)
		return nil, err
	}
	return entries, nil
}
