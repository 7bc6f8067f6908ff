package tracking

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jengzang/drk-backend-go/internal/models"
)

var errDiskFull = errors.New("disk full")

// memRepo is an in-memory Repository with failure injection
type memRepo struct {
	mu       sync.Mutex
	nextID   int64
	sessions map[int64]*models.Session
	points   []models.TrackPoint
	daily    map[string]models.DailyStat
	player   *models.PlayerState
	titles   []models.TitleDef

	failAppend   int
	failFinalize int
	failDaily    int
}

func newMemRepo(titles ...models.TitleDef) *memRepo {
	return &memRepo{
		sessions: map[int64]*models.Session{},
		daily:    map[string]models.DailyStat{},
		titles:   titles,
	}
}

func (r *memRepo) CreateSession(_ context.Context, startAtMs int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.sessions[r.nextID] = &models.Session{ID: r.nextID, StartAtMs: startAtMs}
	return r.nextID, nil
}

func (r *memRepo) FinalizeSession(_ context.Context, f models.SessionFinal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFinalize > 0 {
		r.failFinalize--
		return errDiskFull
	}
	s, ok := r.sessions[f.SessionID]
	if !ok {
		return errors.New("no such session")
	}
	end := f.EndAtMs
	s.EndAtMs = &end
	s.DistanceM = f.DistanceM
	s.DurationS = f.DurationS
	s.AvgPaceSecPerKm = f.AvgPaceSecPerKm
	s.PointsCount = f.PointsCount
	return nil
}

func (r *memRepo) AppendTrackPoint(_ context.Context, p models.TrackPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAppend > 0 {
		r.failAppend--
		return errDiskFull
	}
	r.points = append(r.points, p)
	return nil
}

func (r *memRepo) GetDailyStat(_ context.Context, date string) (*models.DailyStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.daily[date]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *memRepo) UpsertDailyStat(_ context.Context, s models.DailyStat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDaily > 0 {
		r.failDaily--
		return errDiskFull
	}
	r.daily[s.Date] = s
	return nil
}

func (r *memRepo) GetPlayerState(context.Context) (*models.PlayerState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.player == nil {
		return nil, nil
	}
	p := *r.player
	return &p, nil
}

func (r *memRepo) UpsertPlayerState(_ context.Context, s models.PlayerState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.player = &s
	return nil
}

func (r *memRepo) GetAllTitleDefs(context.Context) ([]models.TitleDef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.TitleDef(nil), r.titles...), nil
}

func (r *memRepo) GetTotalDistance(context.Context) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total float64
	for _, s := range r.sessions {
		total += s.DistanceM
	}
	return total, nil
}

func (r *memRepo) playerXp() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.player == nil {
		return 0
	}
	return r.player.TotalXp
}

func (r *memRepo) session(id int64) models.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.sessions[id]
}

func (r *memRepo) pointsOf(id int64) []models.TrackPoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TrackPoint
	for _, p := range r.points {
		if p.SessionID == id {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TimestampMs < out[j].TimestampMs })
	return out
}

func (r *memRepo) setFailAppend(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failAppend = n
}
