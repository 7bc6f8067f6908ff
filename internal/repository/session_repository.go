package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jengzang/drk-backend-go/internal/models"
)

// ErrSessionNotFound is returned when finalizing a session id that does not exist
var ErrSessionNotFound = errors.New("session not found")

const sessionColumns = `id, start_at_ms, end_at_ms, distance_m, duration_s, avg_pace_sec_per_km, points_count`

// SessionRepository handles database operations for sessions
type SessionRepository struct {
	db dbtx
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db dbtx) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts an open session and returns its id
func (r *SessionRepository) Create(ctx context.Context, startAtMs int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `INSERT INTO session (start_at_ms) VALUES (?)`, startAtMs)
	if err != nil {
		return 0, fmt.Errorf("failed to create session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get session id: %w", err)
	}
	return id, nil
}

// Finalize writes the end-of-session fields
func (r *SessionRepository) Finalize(ctx context.Context, final models.SessionFinal) error {
	rows, err := r.finalize(ctx, final, "")
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("finalize session %d: %w", final.SessionID, ErrSessionNotFound)
	}
	return nil
}

// FinalizeOpen closes the session only if it is still open. It reports
// false when the session is missing or was already closed, and then
// leaves the stored row untouched.
func (r *SessionRepository) FinalizeOpen(ctx context.Context, final models.SessionFinal) (bool, error) {
	rows, err := r.finalize(ctx, final, " AND end_at_ms IS NULL")
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *SessionRepository) finalize(ctx context.Context, final models.SessionFinal, cond string) (int64, error) {
	query := `UPDATE session
		SET end_at_ms = ?, distance_m = ?, duration_s = ?, avg_pace_sec_per_km = ?, points_count = ?
		WHERE id = ?` + cond

	result, err := r.db.ExecContext(ctx, query,
		final.EndAtMs, final.DistanceM, final.DurationS,
		nullInt64(final.AvgPaceSecPerKm), final.PointsCount, final.SessionID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to finalize session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

// GetByID retrieves a session, or nil when it does not exist
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM session WHERE id = ?`, id)

	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// List returns sessions newest first
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM session`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM session ORDER BY start_at_ms DESC, id DESC LIMIT ? OFFSET ?`,
		filter.Limit, filter.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions, err := scanSessions(rows)
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// ListOpen returns sessions that were never finalized, oldest first
func (r *SessionRepository) ListOpen(ctx context.Context) ([]models.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM session WHERE end_at_ms IS NULL ORDER BY start_at_ms, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query open sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// TotalDistance sums the distance of all finalized sessions
func (r *SessionRepository) TotalDistance(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(distance_m), 0) FROM session WHERE end_at_ms IS NOT NULL`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum session distance: %w", err)
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var s models.Session
	var endAt, pace sql.NullInt64
	if err := row.Scan(&s.ID, &s.StartAtMs, &endAt, &s.DistanceM, &s.DurationS, &pace, &s.PointsCount); err != nil {
		return nil, err
	}
	s.EndAtMs = int64Ptr(endAt)
	s.AvgPaceSecPerKm = int64Ptr(pace)
	return &s, nil
}

func scanSessions(rows *sql.Rows) ([]models.Session, error) {
	sessions := []models.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}
