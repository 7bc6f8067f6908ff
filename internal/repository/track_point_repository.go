package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jengzang/drk-backend-go/internal/models"
)

// TrackPointRepository handles database operations for track points
type TrackPointRepository struct {
	db dbtx
}

// NewTrackPointRepository creates a new track point repository
func NewTrackPointRepository(db dbtx) *TrackPointRepository {
	return &TrackPointRepository{db: db}
}

// Append stores one accepted point
func (r *TrackPointRepository) Append(ctx context.Context, p models.TrackPoint) error {
	query := `INSERT INTO track_point (session_id, t_ms, lat, lon, acc_m, speed_mps, cum_distance_m)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		p.SessionID, p.TimestampMs, p.Latitude, p.Longitude,
		nullFloat32(p.AccuracyM), nullFloat32(p.SpeedMps), p.CumulativeDistanceM,
	)
	if err != nil {
		return fmt.Errorf("failed to append track point: %w", err)
	}
	return nil
}

// ListBySession returns the points of one session ordered by timestamp
func (r *TrackPointRepository) ListBySession(ctx context.Context, filter models.TrackPointFilter) ([]models.TrackPoint, error) {
	query := `SELECT id, session_id, t_ms, lat, lon, acc_m, speed_mps, cum_distance_m FROM track_point`

	conditions := []string{"session_id = ?"}
	args := []any{filter.SessionID}

	if filter.StartTime > 0 {
		conditions = append(conditions, "t_ms >= ?")
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "t_ms <= ?")
		args = append(args, filter.EndTime)
	}

	query += " WHERE " + strings.Join(conditions, " AND ") + " ORDER BY t_ms, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query track points: %w", err)
	}
	defer rows.Close()

	points := []models.TrackPoint{}
	for rows.Next() {
		var p models.TrackPoint
		var acc, speed sql.NullFloat64
		if err := rows.Scan(&p.ID, &p.SessionID, &p.TimestampMs, &p.Latitude, &p.Longitude,
			&acc, &speed, &p.CumulativeDistanceM); err != nil {
			return nil, fmt.Errorf("failed to scan track point: %w", err)
		}
		p.AccuracyM = float32Ptr(acc)
		p.SpeedMps = float32Ptr(speed)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate track points: %w", err)
	}
	return points, nil
}

// Last returns the most recent point of a session, or nil when it has none
func (r *TrackPointRepository) Last(ctx context.Context, sessionID int64) (*models.TrackPoint, error) {
	query := `SELECT id, session_id, t_ms, lat, lon, acc_m, speed_mps, cum_distance_m
		FROM track_point WHERE session_id = ? ORDER BY t_ms DESC, id DESC LIMIT 1`

	var p models.TrackPoint
	var acc, speed sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(&p.ID, &p.SessionID, &p.TimestampMs,
		&p.Latitude, &p.Longitude, &acc, &speed, &p.CumulativeDistanceM)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last track point: %w", err)
	}
	p.AccuracyM = float32Ptr(acc)
	p.SpeedMps = float32Ptr(speed)
	return &p, nil
}

// Count returns the number of points stored for a session
func (r *TrackPointRepository) Count(ctx context.Context, sessionID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM track_point WHERE session_id = ?`, sessionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count track points: %w", err)
	}
	return n, nil
}
