package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jengzang/drk-backend-go/internal/models"
	"github.com/jengzang/drk-backend-go/internal/progression"
	"github.com/jengzang/drk-backend-go/internal/repository"
)

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidDate is returned for a date that is not YYYY-MM-DD
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
)

// SessionPage is one page of session history
type SessionPage struct {
	Data   []models.Session `json:"data"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// HistoryService answers read-side queries over stored sessions and progression
type HistoryService struct {
	store *repository.Store
}

// NewHistoryService creates a new history service
func NewHistoryService(store *repository.Store) *HistoryService {
	return &HistoryService{store: store}
}

// ListSessions returns sessions newest first
func (s *HistoryService) ListSessions(ctx context.Context, filter models.SessionFilter) (*SessionPage, error) {
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	sessions, total, err := s.store.Sessions.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return &SessionPage{Data: sessions, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// GetSession returns one session
func (s *HistoryService) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	session, err := s.store.Sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	return session, nil
}

// GetSessionPoints returns the points of a session ordered by timestamp
func (s *HistoryService) GetSessionPoints(ctx context.Context, filter models.TrackPointFilter) ([]models.TrackPoint, error) {
	if _, err := s.GetSession(ctx, filter.SessionID); err != nil {
		return nil, err
	}
	if filter.Limit < 0 {
		filter.Limit = 0
	}

	points, err := s.store.Points.ListBySession(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get session points: %w", err)
	}
	return points, nil
}

// DailyRange returns daily aggregates between from and to inclusive
func (s *HistoryService) DailyRange(ctx context.Context, filter models.DailyStatFilter) ([]models.DailyStat, error) {
	for _, d := range []string{filter.From, filter.To} {
		if d == "" {
			continue
		}
		if _, ok := progression.ParseDate(d); !ok {
			return nil, fmt.Errorf("%q: %w", d, ErrInvalidDate)
		}
	}

	stats, err := s.store.Daily.Range(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}
	return stats, nil
}

// Player returns the player state, or the initial state before any session
func (s *HistoryService) Player(ctx context.Context) (*models.PlayerState, error) {
	player, err := s.store.GetPlayerState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil {
		p := progression.DefaultPlayerState()
		player = &p
	}
	return player, nil
}

// Titles returns the catalog in evaluation order with the owned flag set
func (s *HistoryService) Titles(ctx context.Context) ([]models.TitleView, error) {
	defs, err := s.store.GetAllTitleDefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get titles: %w", err)
	}
	player, err := s.Player(ctx)
	if err != nil {
		return nil, err
	}

	owned := make(map[string]bool)
	for _, key := range player.Titles() {
		owned[key] = true
	}

	views := make([]models.TitleView, 0, len(defs))
	for _, def := range defs {
		views = append(views, models.TitleView{TitleDef: def, Owned: owned[def.Key]})
	}
	return views, nil
}
