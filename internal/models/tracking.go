package models

// TrackingState is the live snapshot published after every tracker mutation
type TrackingState struct {
	IsTracking     bool     `json:"isTracking"`
	SessionID      *int64   `json:"sessionId,omitempty"`
	StartAtMs      *int64   `json:"startAtMs,omitempty"`
	TotalDistanceM float64  `json:"totalDistanceM"`
	LastLat        *float64 `json:"lastLat,omitempty"`
	LastLon        *float64 `json:"lastLon,omitempty"`
	PointsCount    int      `json:"pointsCount"`
}

// ResultEvent is emitted once per finalized session
type ResultEvent struct {
	SessionID  int64    `json:"sessionId"`
	EarnedXp   int64    `json:"earnedXp"`
	LevelUp    bool     `json:"levelUp"`
	NewTitles  []string `json:"newTitles"`
	Level      int64    `json:"level"`
	StreakDays int64    `json:"streakDays"`
}

// TrackingView is the formatted form of TrackingState shown by clients
type TrackingView struct {
	TrackingState
	DistanceText string `json:"distanceText"` // "1.23 km" or "0.76 mi"
	ElapsedText  string `json:"elapsedText"`  // "00:12:34"
	PaceText     string `json:"paceText"`     // "5:12/km" or "-:--/km"
}
