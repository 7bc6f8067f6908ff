package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jengzang/drk-backend-go/internal/models"
	"github.com/jengzang/drk-backend-go/internal/progression"
)

// DailyStatRepository handles database operations for daily aggregates
type DailyStatRepository struct {
	db dbtx
}

// NewDailyStatRepository creates a new daily stat repository
func NewDailyStatRepository(db dbtx) *DailyStatRepository {
	return &DailyStatRepository{db: db}
}

// Get returns the aggregate for date, or nil when nothing was recorded that day
func (r *DailyStatRepository) Get(ctx context.Context, date string) (*models.DailyStat, error) {
	query := `SELECT date, total_distance_m, total_duration_s, earned_xp, earned_titles_csv
		FROM daily_stat WHERE date = ?`

	var s models.DailyStat
	err := r.db.QueryRowContext(ctx, query, date).Scan(
		&s.Date, &s.TotalDistanceM, &s.TotalDurationS, &s.EarnedXp, &s.EarnedTitlesCsv,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stat: %w", err)
	}
	return &s, nil
}

// Upsert replaces the aggregate row for stat.Date
func (r *DailyStatRepository) Upsert(ctx context.Context, stat models.DailyStat) error {
	query := `INSERT INTO daily_stat (date, total_distance_m, total_duration_s, earned_xp, earned_titles_csv)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			total_distance_m = excluded.total_distance_m,
			total_duration_s = excluded.total_duration_s,
			earned_xp = excluded.earned_xp,
			earned_titles_csv = excluded.earned_titles_csv`

	_, err := r.db.ExecContext(ctx, query,
		stat.Date, stat.TotalDistanceM, stat.TotalDurationS, stat.EarnedXp, stat.EarnedTitlesCsv,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily stat: %w", err)
	}
	return nil
}

// Range returns the aggregates between from and to inclusive, ordered by date.
// An empty bound is open.
func (r *DailyStatRepository) Range(ctx context.Context, filter models.DailyStatFilter) ([]models.DailyStat, error) {
	query := `SELECT date, total_distance_m, total_duration_s, earned_xp, earned_titles_csv FROM daily_stat
		WHERE (? = '' OR date >= ?) AND (? = '' OR date <= ?)
		ORDER BY date`

	rows, err := r.db.QueryContext(ctx, query, filter.From, filter.From, filter.To, filter.To)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	stats := []models.DailyStat{}
	for rows.Next() {
		var s models.DailyStat
		if err := rows.Scan(&s.Date, &s.TotalDistanceM, &s.TotalDurationS, &s.EarnedXp, &s.EarnedTitlesCsv); err != nil {
			return nil, fmt.Errorf("failed to scan daily stat: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily stats: %w", err)
	}
	return stats, nil
}

// PlayerRepository handles the singleton player row
type PlayerRepository struct {
	db dbtx
}

// NewPlayerRepository creates a new player repository
func NewPlayerRepository(db dbtx) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Get returns the player state, or nil before the first finalized session
func (r *PlayerRepository) Get(ctx context.Context) (*models.PlayerState, error) {
	query := `SELECT total_xp, level, next_level_xp, titles_csv, streak_days, last_active_date
		FROM player_state WHERE id = 0`

	var p models.PlayerState
	var lastActive sql.NullString
	err := r.db.QueryRowContext(ctx, query).Scan(
		&p.TotalXp, &p.Level, &p.NextLevelXp, &p.TitlesCsv, &p.StreakDays, &lastActive,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player state: %w", err)
	}
	if lastActive.Valid {
		p.LastActiveDate = &lastActive.String
	}
	return &p, nil
}

// Upsert replaces the player row
func (r *PlayerRepository) Upsert(ctx context.Context, p models.PlayerState) error {
	query := `INSERT INTO player_state (id, total_xp, level, next_level_xp, titles_csv, streak_days, last_active_date)
		VALUES (0, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			total_xp = excluded.total_xp,
			level = excluded.level,
			next_level_xp = excluded.next_level_xp,
			titles_csv = excluded.titles_csv,
			streak_days = excluded.streak_days,
			last_active_date = excluded.last_active_date`

	var lastActive sql.NullString
	if p.LastActiveDate != nil {
		lastActive = sql.NullString{String: *p.LastActiveDate, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query, p.TotalXp, p.Level, p.NextLevelXp, p.TitlesCsv, p.StreakDays, lastActive)
	if err != nil {
		return fmt.Errorf("failed to upsert player state: %w", err)
	}
	return nil
}

// TitleRepository handles the title catalog
type TitleRepository struct {
	db dbtx
}

// NewTitleRepository creates a new title repository
func NewTitleRepository(db dbtx) *TitleRepository {
	return &TitleRepository{db: db}
}

// All returns the catalog in its evaluation order. A stored condition type
// the engine does not know is an error.
func (r *TitleRepository) All(ctx context.Context) ([]models.TitleDef, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, name, condition_type, threshold FROM title_def ORDER BY sort_order, key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query title defs: %w", err)
	}
	defer rows.Close()

	titles := []models.TitleDef{}
	for rows.Next() {
		var t models.TitleDef
		var condition string
		if err := rows.Scan(&t.Key, &t.Name, &condition, &t.Threshold); err != nil {
			return nil, fmt.Errorf("failed to scan title def: %w", err)
		}
		if t.ConditionType, err = progression.ParseConditionType(condition); err != nil {
			return nil, fmt.Errorf("title %s: %w", t.Key, err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate title defs: %w", err)
	}
	return titles, nil
}

// Seed inserts the given titles, keeping rows that already exist.
// Slice position becomes the evaluation order.
func (r *TitleRepository) Seed(ctx context.Context, titles []models.TitleDef) (int, error) {
	query := `INSERT OR IGNORE INTO title_def (key, name, condition_type, threshold, sort_order)
		VALUES (?, ?, ?, ?, ?)`

	inserted := 0
	for i, t := range titles {
		if !t.ConditionType.Valid() {
			return inserted, fmt.Errorf("title %s: unknown condition type %q", t.Key, t.ConditionType)
		}
		result, err := r.db.ExecContext(ctx, query, t.Key, t.Name, string(t.ConditionType), t.Threshold, i)
		if err != nil {
			return inserted, fmt.Errorf("failed to seed title %s: %w", t.Key, err)
		}
		if n, err := result.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	return inserted, nil
}
