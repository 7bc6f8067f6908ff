package repository

import (
	"context"
	"database/sql"

	"github.com/jengzang/drk-backend-go/internal/database"
	"github.com/jengzang/drk-backend-go/internal/models"
	"github.com/jengzang/drk-backend-go/internal/tracking"
)

// Store groups the per-table repositories over one connection or transaction
// and implements tracking.Repository
type Store struct {
	db *sql.DB

	Sessions *SessionRepository
	Points   *TrackPointRepository
	Daily    *DailyStatRepository
	Player   *PlayerRepository
	Titles   *TitleRepository
}

// NewStore creates a store backed by db
func NewStore(db *sql.DB) *Store {
	s := newStore(db)
	s.db = db
	return s
}

func newStore(db dbtx) *Store {
	return &Store{
		Sessions: NewSessionRepository(db),
		Points:   NewTrackPointRepository(db),
		Daily:    NewDailyStatRepository(db),
		Player:   NewPlayerRepository(db),
		Titles:   NewTitleRepository(db),
	}
}

var (
	_ tracking.Repository = (*Store)(nil)
	_ tracking.Transactor = (*Store)(nil)
)

// InTx runs fn against a store bound to a single transaction.
// Stores created inside fn must not start their own transactions.
func (s *Store) InTx(ctx context.Context, fn func(repo tracking.Repository) error) error {
	return database.Transaction(ctx, s.db, func(tx *sql.Tx) error {
		return fn(newStore(tx))
	})
}

func (s *Store) CreateSession(ctx context.Context, startAtMs int64) (int64, error) {
	return s.Sessions.Create(ctx, startAtMs)
}

func (s *Store) FinalizeSession(ctx context.Context, final models.SessionFinal) error {
	return s.Sessions.Finalize(ctx, final)
}

func (s *Store) AppendTrackPoint(ctx context.Context, point models.TrackPoint) error {
	return s.Points.Append(ctx, point)
}

func (s *Store) GetDailyStat(ctx context.Context, date string) (*models.DailyStat, error) {
	return s.Daily.Get(ctx, date)
}

func (s *Store) UpsertDailyStat(ctx context.Context, stat models.DailyStat) error {
	return s.Daily.Upsert(ctx, stat)
}

func (s *Store) GetPlayerState(ctx context.Context) (*models.PlayerState, error) {
	return s.Player.Get(ctx)
}

func (s *Store) UpsertPlayerState(ctx context.Context, state models.PlayerState) error {
	return s.Player.Upsert(ctx, state)
}

func (s *Store) GetAllTitleDefs(ctx context.Context) ([]models.TitleDef, error) {
	return s.Titles.All(ctx)
}

func (s *Store) GetTotalDistance(ctx context.Context) (float64, error) {
	return s.Sessions.TotalDistance(ctx)
}
