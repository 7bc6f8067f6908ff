package tracking

import (
	"math"

	"github.com/jengzang/drk-backend-go/internal/models"
	"github.com/jengzang/drk-backend-go/internal/spatial"
)

const (
	// MaxAccuracyM is the worst horizontal accuracy still accepted
	MaxAccuracyM = 40.0
	// JitterThresholdM is the minimum movement credited as distance
	JitterThresholdM = 3.0
)

// AcceptedDelta is the verdict of the filter for one candidate fix
type AcceptedDelta struct {
	DistanceM float64
	Accepted  bool
}

// Accept decides whether candidate is usable and how much distance it adds
// relative to previous, the last accepted fix. An accepted candidate always
// becomes the new reference, even when it adds nothing.
func Accept(previous *models.LocationFix, candidate models.LocationFix) AcceptedDelta {
	if !spatial.ValidCoordinate(candidate.Latitude, candidate.Longitude) {
		return AcceptedDelta{}
	}
	if acc := candidate.AccuracyM; acc != nil && !math.IsNaN(float64(*acc)) && float64(*acc) > MaxAccuracyM {
		return AcceptedDelta{}
	}
	if previous == nil {
		return AcceptedDelta{Accepted: true}
	}

	d := spatial.HaversineDistance(previous.Latitude, previous.Longitude, candidate.Latitude, candidate.Longitude)
	if d < JitterThresholdM || math.IsNaN(d) {
		return AcceptedDelta{Accepted: true}
	}
	return AcceptedDelta{DistanceM: d, Accepted: true}
}
