package models

// Session is one contiguous tracking interval.
// Only StartAtMs is set on creation; the rest is filled in exactly once at stop.
type Session struct {
	ID              int64   `json:"id" db:"id"`
	StartAtMs       int64   `json:"startAtMs" db:"start_at_ms"`
	EndAtMs         *int64  `json:"endAtMs,omitempty" db:"end_at_ms"`
	DistanceM       float64 `json:"distanceM" db:"distance_m"`
	DurationS       int64   `json:"durationS" db:"duration_s"`
	AvgPaceSecPerKm *int64  `json:"avgPaceSecPerKm,omitempty" db:"avg_pace_sec_per_km"` // nil when distance is zero
	PointsCount     int     `json:"pointsCount" db:"points_count"`
}

// Open reports whether the session has not been finalized yet
func (s Session) Open() bool {
	return s.EndAtMs == nil
}

// SessionFinal carries the fields written when a session is finalized
type SessionFinal struct {
	SessionID       int64
	EndAtMs         int64
	DistanceM       float64
	DurationS       int64
	AvgPaceSecPerKm *int64
	PointsCount     int
}

// SessionFilter represents pagination parameters for listing sessions
type SessionFilter struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}
