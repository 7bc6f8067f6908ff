package models

import "strings"

// DailyStat aggregates all sessions finalized on one local calendar day
type DailyStat struct {
	Date            string  `json:"date" db:"date"` // Format: 2006-01-02, local time zone
	TotalDistanceM  float64 `json:"totalDistanceM" db:"total_distance_m"`
	TotalDurationS  int64   `json:"totalDurationS" db:"total_duration_s"`
	EarnedXp        int64   `json:"earnedXp" db:"earned_xp"`
	EarnedTitlesCsv string  `json:"earnedTitlesCsv" db:"earned_titles_csv"`
}

// PlayerState is the singleton progression record
type PlayerState struct {
	TotalXp        int64   `json:"totalXp" db:"total_xp"`         // Progress inside the current level, always < NextLevelXp
	Level          int64   `json:"level" db:"level"`
	NextLevelXp    int64   `json:"nextLevelXp" db:"next_level_xp"`
	TitlesCsv      string  `json:"titlesCsv" db:"titles_csv"`
	StreakDays     int64   `json:"streakDays" db:"streak_days"`
	LastActiveDate *string `json:"lastActiveDate,omitempty" db:"last_active_date"`
}

// Titles returns the owned title keys
func (p PlayerState) Titles() []string {
	return SplitCSV(p.TitlesCsv)
}

// ConditionType selects the metric a title threshold is compared against
type ConditionType string

// ConditionType constants
const (
	ConditionSessionDistance ConditionType = "SESSION_DISTANCE"
	ConditionCumDistance     ConditionType = "CUM_DISTANCE"
	ConditionStreak          ConditionType = "STREAK"
)

// Valid reports whether c is one of the known condition types
func (c ConditionType) Valid() bool {
	switch c {
	case ConditionSessionDistance, ConditionCumDistance, ConditionStreak:
		return true
	}
	return false
}

// TitleDef is a static achievement rule
type TitleDef struct {
	Key           string        `json:"key" db:"key"`
	Name          string        `json:"name" db:"name"`
	ConditionType ConditionType `json:"conditionType" db:"condition_type"`
	Threshold     int64         `json:"threshold" db:"threshold"`
}

// TitleView is a catalog entry annotated with ownership
type TitleView struct {
	TitleDef
	Owned bool `json:"owned"`
}

// DailyStatFilter represents a date range query
type DailyStatFilter struct {
	From string `form:"from"` // 2006-01-02
	To   string `form:"to"`   // 2006-01-02
}

// SplitCSV splits a comma separated key list, dropping empty entries
func SplitCSV(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// JoinCSV is the inverse of SplitCSV
func JoinCSV(keys []string) string {
	return strings.Join(keys, ",")
}
