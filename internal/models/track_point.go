package models

// LocationFix is a single raw reading delivered by the location source
type LocationFix struct {
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	AccuracyM   *float32 `json:"accuracyM,omitempty"`   // Horizontal accuracy radius in meters
	SpeedMps    *float32 `json:"speedMps,omitempty"`
	TimestampMs int64    `json:"timestampMs"`           // Unix epoch milliseconds
}

// TrackPoint is an accepted fix persisted for a session
type TrackPoint struct {
	ID                  int64    `json:"id" db:"id"`
	SessionID           int64    `json:"sessionId" db:"session_id"`
	TimestampMs         int64    `json:"timestampMs" db:"t_ms"`
	Latitude            float64  `json:"latitude" db:"lat"`
	Longitude           float64  `json:"longitude" db:"lon"`
	AccuracyM           *float32 `json:"accuracyM,omitempty" db:"acc_m"`
	SpeedMps            *float32 `json:"speedMps,omitempty" db:"speed_mps"`
	CumulativeDistanceM float64  `json:"cumulativeDistanceM" db:"cum_distance_m"` // Running total at the time of this fix
}

// TrackPointFilter represents filter parameters for querying the points of a session
type TrackPointFilter struct {
	SessionID int64 `form:"-"`
	StartTime int64 `form:"startTime"` // Unix milliseconds, inclusive
	EndTime   int64 `form:"endTime"`   // Unix milliseconds, inclusive
	Limit     int   `form:"limit"`
}
