package spatial

import (
	"math"
	"testing"
)

func TestHaversineDistance_KnownDistances(t *testing.T) {
	tests := []struct {
		name       string
		lat1, lon1 float64
		lat2, lon2 float64
		wantM      float64
		tolerance  float64
	}{
		{name: "same point", lat1: 35.6812, lon1: 139.7671, lat2: 35.6812, lon2: 139.7671, wantM: 0, tolerance: 1e-9},
		{name: "one degree of latitude", lat1: 0, lon1: 0, lat2: 1, lon2: 0, wantM: EarthRadiusMeters * math.Pi / 180, tolerance: 1e-6},
		{name: "Tokyo to Osaka (~400km)", lat1: 35.6812, lon1: 139.7671, lat2: 34.7025, lon2: 135.4959, wantM: 403000, tolerance: 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineDistance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.wantM) > tt.tolerance {
				t.Errorf("HaversineDistance() = %f, want %f (±%f)", got, tt.wantM, tt.tolerance)
			}
		})
	}
}

func TestHaversineDistance_Symmetry(t *testing.T) {
	d1 := HaversineDistance(35.0, 139.0, 35.01, 139.02)
	d2 := HaversineDistance(35.01, 139.02, 35.0, 139.0)
	if math.Abs(d1-d2) > 1e-9 {
		t.Errorf("haversine is not symmetric: %f vs %f", d1, d2)
	}
}

func TestDestinationPoint_RoundTrip(t *testing.T) {
	for _, d := range []float64{2.9, 3.0, 100, 5000} {
		lat, lon := DestinationPoint(35.0, 139.0, 0, d)
		got := HaversineDistance(35.0, 139.0, lat, lon)
		if math.Abs(got-d) > 1e-6 {
			t.Errorf("distance %f: round trip gave %f", d, got)
		}
	}
}

func TestValidCoordinate(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     bool
	}{
		{35.0, 139.0, true},
		{90, 180, true},
		{-90, -180, true},
		{90.0001, 0, false},
		{0, 180.5, false},
		{math.NaN(), 0, false},
		{0, math.Inf(1), false},
	}
	for _, tt := range tests {
		if got := ValidCoordinate(tt.lat, tt.lon); got != tt.want {
			t.Errorf("ValidCoordinate(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
		}
	}
}
