package service

import (
	"testing"
	"time"

	"github.com/jengzang/drk-backend-go/internal/models"
)

func i64(v int64) *int64 { return &v }

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		meters float64
		unit   Unit
		want   string
	}{
		{0, UnitKm, "0.00 km"},
		{1234, UnitKm, "1.23 km"},
		{5000.05, UnitKm, "5.00 km"},
		{1000, UnitMi, "0.62 mi"},
		{-5, UnitKm, "0.00 km"},
	}
	for _, tt := range tests {
		if got := FormatDistance(tt.meters, tt.unit); got != tt.want {
			t.Errorf("FormatDistance(%v, %s) = %q, want %q", tt.meters, tt.unit, got, tt.want)
		}
	}
}

func TestFormatHMS(t *testing.T) {
	tests := map[int64]string{
		0:     "00:00:00",
		59:    "00:00:59",
		754:   "00:12:34",
		3600:  "01:00:00",
		45296: "12:34:56",
		-3:    "00:00:00",
	}
	for in, want := range tests {
		if got := FormatHMS(in); got != want {
			t.Errorf("FormatHMS(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatPace(t *testing.T) {
	if got := FormatPace(nil, UnitKm); got != "-:--/km" {
		t.Errorf("nil pace = %q", got)
	}
	if got := FormatPace(i64(312), UnitKm); got != "5:12/km" {
		t.Errorf("312 s/km = %q", got)
	}
	if got := FormatPace(i64(300), UnitMi); got != "8:03/mi" {
		t.Errorf("300 s/km in miles = %q", got)
	}
}

func TestParseUnit(t *testing.T) {
	if ParseUnit("mi") != UnitMi || ParseUnit("") != UnitKm || ParseUnit("furlong") != UnitKm {
		t.Error("ParseUnit should accept mi and default to km")
	}
}

func TestBuildView(t *testing.T) {
	start := time.Date(2024, 1, 2, 7, 0, 0, 0, time.UTC)
	id := int64(4)
	startMs := start.UnixMilli()

	idle := BuildView(models.TrackingState{}, start, UnitKm)
	if idle.ElapsedText != "00:00:00" || idle.PaceText != "-:--/km" || idle.DistanceText != "0.00 km" {
		t.Errorf("idle view = %+v", idle)
	}

	live := models.TrackingState{IsTracking: true, SessionID: &id, StartAtMs: &startMs, TotalDistanceM: 2000, PointsCount: 9}
	view := BuildView(live, start.Add(10*time.Minute), UnitKm)
	if view.ElapsedText != "00:10:00" || view.PaceText != "5:00/km" || view.DistanceText != "2.00 km" {
		t.Errorf("live view = %+v", view)
	}
	if view.PointsCount != 9 || *view.SessionID != 4 {
		t.Errorf("snapshot fields not embedded: %+v", view.TrackingState)
	}
}
