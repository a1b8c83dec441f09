// Package jobs runs the console's periodic maintenance work on a cron
// schedule: purging expired sessions and flagging repairs that blew past
// their SLA deadline.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/repairops/internal/persistence"
)

// systemActorID marks activity entries written by the scheduler rather
// than a logged-in user.
const systemActorID = "system"

// SessionPurger removes sessions whose expiry has passed.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// RepairLister loads repair tickets for the overdue sweep.
type RepairLister interface {
	List(ctx context.Context, filter persistence.RepairFilter) ([]persistence.Repair, error)
}

// ActivityRecorder appends an entry to the activity feed.
type ActivityRecorder interface {
	Record(ctx context.Context, actorID, entityKind, entityID, action, detail string)
}

// Publisher pushes realtime events to connected clients.
type Publisher interface {
	Publish(entity, id, action string)
}

// Scheduler owns the cron runner and the job state.
type Scheduler struct {
	cron       *cron.Cron
	sessions   SessionPurger
	repairs    RepairLister
	activities ActivityRecorder
	publisher  Publisher
	now        func() time.Time
	logger     *slog.Logger

	mu      sync.Mutex
	flagged map[string]struct{}
}

// NewScheduler constructs a Scheduler. Jobs are registered by Start.
func NewScheduler(
	sessions SessionPurger,
	repairs RepairLister,
	activities ActivityRecorder,
	publisher Publisher,
	now func() time.Time,
	logger *slog.Logger,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		cron:       cron.New(),
		sessions:   sessions,
		repairs:    repairs,
		activities: activities,
		publisher:  publisher,
		now:        now,
		logger:     logger,
		flagged:    make(map[string]struct{}),
	}
}

// Start registers the jobs and starts the cron runner. The context bounds
// each job run, not the runner itself; call Stop to halt scheduling.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc("@hourly", func() { s.PurgeSessions(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@every 15m", func() { s.SweepOverdueRepairs(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron runner and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

// PurgeSessions deletes expired sessions.
func (s *Scheduler) PurgeSessions(ctx context.Context) {
	purged, err := s.sessions.PurgeExpiredSessions(ctx)
	if err != nil {
		s.logger.Error("session purge failed", "error", err)
		return
	}
	if purged > 0 {
		s.logger.Info("purged expired sessions", "count", purged)
	}
}

// SweepOverdueRepairs flags open repairs whose SLA deadline lies in the
// past. Each ticket is flagged once per process lifetime; restarts flag
// it again, which is acceptable for an advisory feed entry.
func (s *Scheduler) SweepOverdueRepairs(ctx context.Context) {
	repairs, err := s.repairs.List(ctx, persistence.RepairFilter{})
	if err != nil {
		s.logger.Error("overdue sweep failed", "error", err)
		return
	}

	now := s.now()
	flagged := 0
	for _, repair := range repairs {
		if !overdue(repair, now) {
			continue
		}
		if s.alreadyFlagged(repair.ID) {
			continue
		}
		s.activities.Record(ctx, systemActorID, "repair", repair.ID, "sla_overdue",
			"SLA deadline "+repair.SLADeadline.UTC().Format(time.RFC3339)+" passed")
		if s.publisher != nil {
			s.publisher.Publish("repair", repair.ID, "overdue")
		}
		flagged++
	}
	if flagged > 0 {
		s.logger.Warn("repairs past SLA deadline", "count", flagged)
	}
}

func overdue(repair persistence.Repair, now time.Time) bool {
	if repair.SLADeadline == nil {
		return false
	}
	switch repair.Status {
	case "completed", "returned", "canceled":
		return false
	}
	return repair.SLADeadline.Before(now)
}

func (s *Scheduler) alreadyFlagged(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flagged[id]; ok {
		return true
	}
	s.flagged[id] = struct{}{}
	return false
}
