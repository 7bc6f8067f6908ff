package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jengzang/drk-backend-go/internal/models"
	"github.com/jengzang/drk-backend-go/internal/repository"
	"github.com/jengzang/drk-backend-go/internal/tracking"
)

// DefaultGrace is how old an open session must be before it is swept
const DefaultGrace = time.Minute

// ActiveSession reports the session currently owned by the live tracker
type ActiveSession func() (int64, bool)

// Sweeper finalizes sessions left open by a process that exited mid-run.
// It never applies progression: the run was not stopped by the user.
type Sweeper struct {
	store  *repository.Store
	active ActiveSession
	grace  time.Duration
	now    func() time.Time
	cron   *cron.Cron
}

// NewSweeper creates a sweeper. active may be nil when no tracker is running.
func NewSweeper(store *repository.Store, active ActiveSession) *Sweeper {
	return &Sweeper{
		store:  store,
		active: active,
		grace:  DefaultGrace,
		now:    time.Now,
		cron:   cron.New(),
	}
}

// Start registers the sweep on schedule and starts the scheduler.
// An empty schedule leaves the scheduler idle.
func (s *Sweeper) Start(schedule string) error {
	if schedule == "" {
		log.Println("[Sweeper] No schedule configured, periodic sweep disabled")
		return nil
	}

	_, err := s.cron.AddFunc(schedule, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			log.Printf("[Sweeper] Scheduled sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweeper %q: %w", schedule, err)
	}

	s.cron.Start()
	log.Printf("[Sweeper] Scheduled with %q", schedule)
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep finalizes every orphaned session and returns how many it closed
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	open, err := s.store.Sessions.ListOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list open sessions: %w", err)
	}

	cutoff := s.now().Add(-s.grace).UnixMilli()
	closed := 0
	for _, session := range open {
		if s.isActive(session.ID) || session.StartAtMs > cutoff {
			continue
		}

		final, ok, err := s.recover(ctx, session)
		if err != nil {
			return closed, err
		}
		if !ok {
			log.Printf("[Sweeper] Session %d was closed by the tracker, skipping", session.ID)
			continue
		}
		closed++
		log.Printf("[Sweeper] Recovered session %d: %.1f m, %d points", session.ID, final.DistanceM, final.PointsCount)
	}

	return closed, nil
}

func (s *Sweeper) isActive(id int64) bool {
	if s.active == nil {
		return false
	}
	activeID, ok := s.active()
	return ok && activeID == id
}

// recover closes session from its stored points. It reports false when the
// session was closed by someone else after it was listed.
func (s *Sweeper) recover(ctx context.Context, session models.Session) (models.SessionFinal, bool, error) {
	final := models.SessionFinal{SessionID: session.ID, EndAtMs: session.StartAtMs}

	last, err := s.store.Points.Last(ctx, session.ID)
	if err != nil {
		return final, false, fmt.Errorf("failed to read session %d: %w", session.ID, err)
	}
	count, err := s.store.Points.Count(ctx, session.ID)
	if err != nil {
		return final, false, fmt.Errorf("failed to read session %d: %w", session.ID, err)
	}

	if last != nil && last.TimestampMs > session.StartAtMs {
		final.EndAtMs = last.TimestampMs
	}
	if last != nil {
		final.DistanceM = last.CumulativeDistanceM
	}
	final.PointsCount = count
	final.DurationS = (final.EndAtMs - session.StartAtMs) / 1000
	final.AvgPaceSecPerKm = tracking.AvgPace(final.DistanceM, final.DurationS)

	ok, err := s.store.Sessions.FinalizeOpen(ctx, final)
	if err != nil {
		return final, false, fmt.Errorf("failed to recover session %d: %w", session.ID, err)
	}
	return final, ok, nil
}
