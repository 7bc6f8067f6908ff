package jobs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jengzang/drk-backend-go/internal/database"
	"github.com/jengzang/drk-backend-go/internal/models"
	"github.com/jengzang/drk-backend-go/internal/repository"
)

var base = time.Date(2024, 1, 2, 7, 0, 0, 0, time.UTC)

func newTestSweeper(t *testing.T, active ActiveSession) (*Sweeper, *repository.Store) {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "drk.db")})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := repository.NewStore(db)
	s := NewSweeper(store, active)
	s.now = func() time.Time { return base.Add(time.Hour) }
	return s, store
}

func TestSweep_RecoversFromStoredPoints(t *testing.T) {
	ctx := context.Background()
	s, store := newTestSweeper(t, nil)

	start := base.UnixMilli()
	id, _ := store.CreateSession(ctx, start)
	for i, cum := range []float64{0, 400, 1000} {
		p := models.TrackPoint{SessionID: id, TimestampMs: start + int64(i)*150_000, Latitude: 1, Longitude: 1, CumulativeDistanceM: cum}
		if err := store.AppendTrackPoint(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.Sweep(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Sweep() = %d, %v", n, err)
	}

	got, _ := store.Sessions.GetByID(ctx, id)
	if got.Open() {
		t.Fatal("session should be finalized")
	}
	if *got.EndAtMs != start+300_000 || got.DurationS != 300 || got.DistanceM != 1000 || got.PointsCount != 3 {
		t.Errorf("recovered session = %+v", got)
	}
	if got.AvgPaceSecPerKm == nil || *got.AvgPaceSecPerKm != 300 {
		t.Errorf("pace = %v, want 300", got.AvgPaceSecPerKm)
	}

	if p, _ := store.GetPlayerState(ctx); p != nil {
		t.Errorf("sweeper must not apply progression, player = %+v", p)
	}
}

func TestSweep_EmptySessionEndsAtStart(t *testing.T) {
	ctx := context.Background()
	s, store := newTestSweeper(t, nil)

	id, _ := store.CreateSession(ctx, base.UnixMilli())
	if _, err := s.Sweep(ctx); err != nil {
		t.Fatal(err)
	}

	got, _ := store.Sessions.GetByID(ctx, id)
	if got.Open() || *got.EndAtMs != base.UnixMilli() || got.DurationS != 0 || got.AvgPaceSecPerKm != nil {
		t.Errorf("recovered empty session = %+v", got)
	}
}

func TestSweep_SkipsActiveAndRecentSessions(t *testing.T) {
	ctx := context.Background()
	var activeID int64
	s, store := newTestSweeper(t, func() (int64, bool) { return activeID, activeID != 0 })

	activeID, _ = store.CreateSession(ctx, base.UnixMilli())
	recent, _ := store.CreateSession(ctx, base.Add(time.Hour-10*time.Second).UnixMilli())

	n, err := s.Sweep(ctx)
	if err != nil || n != 0 {
		t.Fatalf("Sweep() = %d, %v; want 0", n, err)
	}

	for _, id := range []int64{activeID, recent} {
		if got, _ := store.Sessions.GetByID(ctx, id); !got.Open() {
			t.Errorf("session %d should remain open", id)
		}
	}
}

func TestSweep_LeavesSessionStoppedMidSweep(t *testing.T) {
	ctx := context.Background()
	var store *repository.Store
	var id int64
	pace := int64(300)
	stopped := models.SessionFinal{EndAtMs: base.Add(25 * time.Minute).UnixMilli(), DistanceM: 5000, DurationS: 1500, AvgPaceSecPerKm: &pace, PointsCount: 3}

	// The tracker stops the session between ListOpen and the active check.
	s, store := newTestSweeper(t, func() (int64, bool) {
		stopped.SessionID = id
		if err := store.FinalizeSession(ctx, stopped); err != nil {
			t.Fatalf("FinalizeSession() error = %v", err)
		}
		return 0, false
	})

	start := base.UnixMilli()
	id, _ = store.CreateSession(ctx, start)
	for i, cum := range []float64{0, 10, 20} {
		p := models.TrackPoint{SessionID: id, TimestampMs: start + int64(i)*1000, Latitude: 1, Longitude: 1, CumulativeDistanceM: cum}
		if err := store.AppendTrackPoint(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.Sweep(ctx)
	if err != nil || n != 0 {
		t.Fatalf("Sweep() = %d, %v; want 0", n, err)
	}

	got, _ := store.Sessions.GetByID(ctx, id)
	if *got.EndAtMs != stopped.EndAtMs || got.DistanceM != 5000 || got.DurationS != 1500 {
		t.Errorf("stopped session overwritten: %+v", got)
	}
	if got.AvgPaceSecPerKm == nil || *got.AvgPaceSecPerKm != 300 {
		t.Errorf("pace = %v, want 300", got.AvgPaceSecPerKm)
	}
}

func TestStart_Schedules(t *testing.T) {
	s, _ := newTestSweeper(t, nil)

	if err := s.Start("not a schedule"); err == nil {
		t.Error("Start() should reject an invalid schedule")
	}
	if err := s.Start(""); err != nil {
		t.Errorf("empty schedule should be accepted, got %v", err)
	}
	if err := s.Start("@every 1h"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(s.cron.Entries()) != 1 {
		t.Errorf("entries = %d, want 1", len(s.cron.Entries()))
	}
	s.Stop()
}
