// Package tracking implements the live side of a run: filtering raw fixes
// and driving the Idle/Active session state machine.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/jengzang/drk-backend-go/internal/models"
	"github.com/jengzang/drk-backend-go/internal/progression"
	"github.com/jengzang/drk-backend-go/internal/stream"
)

var (
	// ErrClosed is returned once the tracker has been shut down
	ErrClosed = errors.New("tracker closed")
	// ErrPersistence wraps repository failures that survived all retries
	ErrPersistence = errors.New("persistence failed")
)

// Options configures a Tracker
type Options struct {
	Now          func() time.Time
	Location     *time.Location // zone used for the daily stat / streak calendar
	Retries      int            // attempts per repository write
	Backoff      time.Duration  // delay before the second attempt, doubled afterwards
	StateMirror  stream.Mirror
	ResultMirror stream.Mirror
}

// Tracker owns at most one active session. All session state is confined to
// a single worker goroutine; public methods post commands to it and wait.
type Tracker struct {
	repo    Repository
	opts    Options
	state   *stream.Hub[models.TrackingState]
	results *stream.Hub[models.ResultEvent]

	cmds      chan command
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	active *activeSession
}

type activeSession struct {
	id        int64
	startAtMs int64
	reference *models.LocationFix
	distanceM float64
	points    int
	pending   []models.TrackPoint // accepted but not yet durable, oldest first
	settling  *settlement         // set once the session row is closed without a transaction
}

// settlement records how far a non-transactional Stop got
type settlement struct {
	final       models.SessionFinal
	today       string
	outcome     *progression.Outcome
	playerSaved bool
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdFix
	cmdStop
)

type command struct {
	kind  commandKind
	ctx   context.Context
	fix   models.LocationFix
	reply chan result
}

type result struct {
	state    models.TrackingState
	event    *models.ResultEvent
	accepted bool
	err      error
}

// NewTracker creates a tracker and starts its worker
func NewTracker(repo Repository, opts Options) *Tracker {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Retries < 1 {
		opts.Retries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 200 * time.Millisecond
	}

	t := &Tracker{
		repo:    repo,
		opts:    opts,
		state:   stream.NewHub[models.TrackingState]("state", opts.StateMirror),
		results: stream.NewHub[models.ResultEvent]("results", opts.ResultMirror),
		cmds:    make(chan command),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	t.state.Seed(models.TrackingState{})

	go t.run()
	return t
}

// Start opens a new session. It is a no-op while a session is active.
func (t *Tracker) Start(ctx context.Context) (models.TrackingState, error) {
	r, err := t.send(ctx, command{kind: cmdStart})
	if err != nil {
		return models.TrackingState{}, err
	}
	return r.state, r.err
}

// OnFix ingests one fix and reports whether it was accepted.
// Fixes arriving while idle are ignored.
func (t *Tracker) OnFix(ctx context.Context, fix models.LocationFix) (bool, error) {
	r, err := t.send(ctx, command{kind: cmdFix, fix: fix})
	if err != nil {
		return false, err
	}
	return r.accepted, r.err
}

// Stop finalizes the active session and returns its result event.
// It returns nil, nil when no session is active.
func (t *Tracker) Stop(ctx context.Context) (*models.ResultEvent, error) {
	r, err := t.send(ctx, command{kind: cmdStop})
	if err != nil {
		return nil, err
	}
	return r.event, r.err
}

// State returns the most recent live snapshot
func (t *Tracker) State() models.TrackingState {
	s, _ := t.state.Latest()
	return s
}

// ActiveSessionID returns the id of the open session, if any
func (t *Tracker) ActiveSessionID() (int64, bool) {
	s := t.State()
	if !s.IsTracking || s.SessionID == nil {
		return 0, false
	}
	return *s.SessionID, true
}

// SubscribeState replays the latest snapshot and then every new one
func (t *Tracker) SubscribeState() *stream.Subscription[models.TrackingState] {
	return t.state.Subscribe()
}

// SubscribeResults replays the last result event and then every new one
func (t *Tracker) SubscribeResults() *stream.Subscription[models.ResultEvent] {
	return t.results.Subscribe()
}

// Close stops the worker. An active session is left open in the repository.
func (t *Tracker) Close() {
	t.closeOnce.Do(func() {
		close(t.quit)
		<-t.done
		t.state.Close()
		t.results.Close()
	})
}

func (t *Tracker) send(ctx context.Context, cmd command) (result, error) {
	cmd.ctx = context.WithoutCancel(ctx)
	cmd.reply = make(chan result, 1)

	select {
	case t.cmds <- cmd:
	case <-t.quit:
		return result{}, ErrClosed
	case <-ctx.Done():
		return result{}, ctx.Err()
	}

	// Once queued the command always runs to completion.
	select {
	case r := <-cmd.reply:
		return r, nil
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

func (t *Tracker) run() {
	defer close(t.done)
	for {
		select {
		case cmd := <-t.cmds:
			var r result
			switch cmd.kind {
			case cmdStart:
				r = t.handleStart(cmd.ctx)
			case cmdFix:
				r = t.handleFix(cmd.ctx, cmd.fix)
			case cmdStop:
				r = t.handleStop(cmd.ctx)
			}
			cmd.reply <- r
		case <-t.quit:
			if t.active != nil {
				log.Printf("[SessionTracker] Shutting down with session %d still open", t.active.id)
			}
			return
		}
	}
}

func (t *Tracker) handleStart(ctx context.Context) result {
	if t.active != nil {
		return result{state: t.snapshot()}
	}

	startAtMs := t.opts.Now().UnixMilli()
	var id int64
	err := t.retry(ctx, "create session", func() error {
		var err error
		id, err = t.repo.CreateSession(ctx, startAtMs)
		return err
	})
	if err != nil {
		return result{state: t.snapshot(), err: err}
	}

	t.active = &activeSession{id: id, startAtMs: startAtMs}
	state := t.snapshot()
	t.state.Publish(state)

	log.Printf("[SessionTracker] Session %d started at %d", id, startAtMs)
	return result{state: state}
}

func (t *Tracker) handleFix(ctx context.Context, fix models.LocationFix) result {
	s := t.active
	if s == nil {
		return result{}
	}
	if s.settling != nil {
		// the stored session is already closed
		return result{state: t.snapshot()}
	}

	if fix.TimestampMs == 0 {
		fix.TimestampMs = t.opts.Now().UnixMilli()
	}
	if s.reference != nil && fix.TimestampMs < s.reference.TimestampMs {
		return result{state: t.snapshot()}
	}

	delta := Accept(s.reference, fix)
	if !delta.Accepted {
		return result{state: t.snapshot()}
	}

	ref := fix
	s.reference = &ref
	if delta.DistanceM > 0 {
		s.distanceM += delta.DistanceM
	}
	s.points++

	accuracy := fix.AccuracyM
	if accuracy != nil && math.IsNaN(float64(*accuracy)) {
		accuracy = nil
	}
	s.pending = append(s.pending, models.TrackPoint{
		SessionID:           s.id,
		TimestampMs:         fix.TimestampMs,
		Latitude:            fix.Latitude,
		Longitude:           fix.Longitude,
		AccuracyM:           accuracy,
		SpeedMps:            fix.SpeedMps,
		CumulativeDistanceM: s.distanceM,
	})

	err := t.flush(ctx)
	state := t.snapshot()
	t.state.Publish(state)
	return result{state: state, accepted: true, err: err}
}

func (t *Tracker) handleStop(ctx context.Context) result {
	s := t.active
	if s == nil {
		return result{state: t.snapshot()}
	}

	if err := t.flush(ctx); err != nil {
		return result{state: t.snapshot(), err: err}
	}

	var final models.SessionFinal
	var today string
	if s.settling != nil {
		final, today = s.settling.final, s.settling.today
	} else {
		now := t.opts.Now()
		endAtMs := now.UnixMilli()
		durationS := (endAtMs - s.startAtMs) / 1000
		if durationS < 0 {
			durationS = 0
		}
		final = models.SessionFinal{
			SessionID:       s.id,
			EndAtMs:         endAtMs,
			DistanceM:       s.distanceM,
			DurationS:       durationS,
			AvgPaceSecPerKm: AvgPace(s.distanceM, durationS),
			PointsCount:     s.points,
		}
		today = progression.DateKey(now, t.opts.Location)
	}

	var event models.ResultEvent
	var err error
	if tx, ok := t.repo.(Transactor); ok {
		err = t.retry(ctx, "finalize session", func() error {
			return tx.InTx(ctx, func(repo Repository) error {
				out, err := t.settle(ctx, repo, final, today)
				if err != nil {
					return err
				}
				event = out.Event
				return nil
			})
		})
	} else {
		event, err = t.settleStepwise(ctx, s, final, today)
	}
	if err != nil {
		return result{state: t.snapshot(), err: err}
	}

	t.active = nil
	t.results.Publish(event)
	state := t.snapshot()
	t.state.Publish(state)

	log.Printf("[SessionTracker] Session %d finalized: %.1fm in %ds, +%d XP, level up=%v, new titles=%v",
		final.SessionID, final.DistanceM, final.DurationS, event.EarnedXp, event.LevelUp, event.NewTitles)
	return result{state: state, event: &event}
}

// settle writes the session and its progression outcome through repo.
// Only safe to retry as a whole inside a transaction.
func (t *Tracker) settle(ctx context.Context, repo Repository, final models.SessionFinal, today string) (progression.Outcome, error) {
	if err := repo.FinalizeSession(ctx, final); err != nil {
		return progression.Outcome{}, fmt.Errorf("failed to finalize session: %w", err)
	}
	out, err := t.score(ctx, repo, final, today)
	if err != nil {
		return progression.Outcome{}, err
	}
	if err := repo.UpsertPlayerState(ctx, out.Player); err != nil {
		return progression.Outcome{}, fmt.Errorf("failed to save player state: %w", err)
	}
	if err := repo.UpsertDailyStat(ctx, out.Daily); err != nil {
		return progression.Outcome{}, fmt.Errorf("failed to save daily stat: %w", err)
	}
	return out, nil
}

// settleStepwise is settle for repositories without transactions. Each
// write is retried on its own and the outcome is computed once, so a
// partial failure never credits the same session twice. Progress is kept
// on the session so a later Stop resumes where this one failed.
func (t *Tracker) settleStepwise(ctx context.Context, s *activeSession, final models.SessionFinal, today string) (models.ResultEvent, error) {
	st := s.settling
	if st == nil {
		err := t.retry(ctx, "finalize session", func() error {
			return t.repo.FinalizeSession(ctx, final)
		})
		if err != nil {
			return models.ResultEvent{}, err
		}
		st = &settlement{final: final, today: today}
		s.settling = st
	}

	if st.outcome == nil {
		var out progression.Outcome
		err := t.retry(ctx, "score session", func() error {
			var err error
			out, err = t.score(ctx, t.repo, st.final, st.today)
			return err
		})
		if err != nil {
			return models.ResultEvent{}, err
		}
		st.outcome = &out
	}

	if !st.playerSaved {
		err := t.retry(ctx, "save player state", func() error {
			return t.repo.UpsertPlayerState(ctx, st.outcome.Player)
		})
		if err != nil {
			return models.ResultEvent{}, err
		}
		st.playerSaved = true
	}

	err := t.retry(ctx, "save daily stat", func() error {
		return t.repo.UpsertDailyStat(ctx, st.outcome.Daily)
	})
	if err != nil {
		return models.ResultEvent{}, err
	}
	return st.outcome.Event, nil
}

// score reads the current progression and applies the finished session to it
func (t *Tracker) score(ctx context.Context, repo Repository, final models.SessionFinal, today string) (progression.Outcome, error) {
	player, err := repo.GetPlayerState(ctx)
	if err != nil {
		return progression.Outcome{}, fmt.Errorf("failed to load player state: %w", err)
	}
	daily, err := repo.GetDailyStat(ctx, today)
	if err != nil {
		return progression.Outcome{}, fmt.Errorf("failed to load daily stat: %w", err)
	}
	catalog, err := repo.GetAllTitleDefs(ctx)
	if err != nil {
		return progression.Outcome{}, fmt.Errorf("failed to load title catalog: %w", err)
	}
	total, err := repo.GetTotalDistance(ctx)
	if err != nil {
		return progression.Outcome{}, fmt.Errorf("failed to load total distance: %w", err)
	}

	return progression.Apply(progression.Input{
		SessionID:      final.SessionID,
		DistanceM:      final.DistanceM,
		DurationS:      final.DurationS,
		Today:          today,
		Player:         player,
		Daily:          daily,
		TotalDistanceM: total,
		Catalog:        catalog,
	}), nil
}

// flush persists pending points in order, stopping at the first failure
func (t *Tracker) flush(ctx context.Context) error {
	s := t.active
	for len(s.pending) > 0 {
		point := s.pending[0]
		err := t.retry(ctx, "append track point", func() error {
			return t.repo.AppendTrackPoint(ctx, point)
		})
		if err != nil {
			return err
		}
		s.pending = s.pending[1:]
	}
	return nil
}

func (t *Tracker) retry(ctx context.Context, op string, fn func() error) error {
	backoff := t.opts.Backoff
	var err error
	for attempt := 1; attempt <= t.opts.Retries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		log.Printf("[SessionTracker] %s failed (attempt %d/%d): %v", op, attempt, t.opts.Retries, err)
		if attempt == t.opts.Retries {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %w", ErrPersistence, op, ctx.Err())
		}
		backoff *= 2
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

func (t *Tracker) snapshot() models.TrackingState {
	s := t.active
	if s == nil {
		return models.TrackingState{}
	}
	id, start := s.id, s.startAtMs
	state := models.TrackingState{
		IsTracking:     true,
		SessionID:      &id,
		StartAtMs:      &start,
		TotalDistanceM: s.distanceM,
		PointsCount:    s.points,
	}
	if s.reference != nil {
		lat, lon := s.reference.Latitude, s.reference.Longitude
		state.LastLat = &lat
		state.LastLon = &lon
	}
	return state
}

// AvgPace returns whole seconds per kilometer, or nil when no distance was covered
func AvgPace(distanceM float64, durationS int64) *int64 {
	if distanceM <= 0 {
		return nil
	}
	pace := int64(math.Round(float64(durationS) / (distanceM / 1000)))
	return &pace
}
