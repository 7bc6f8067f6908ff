package service

import (
	"fmt"
	"math"
	"time"

	"github.com/jengzang/drk-backend-go/internal/models"
	"github.com/jengzang/drk-backend-go/internal/tracking"
)

// Unit selects the distance unit used for display text
type Unit string

const (
	UnitKm Unit = "km"
	UnitMi Unit = "mi"
)

const (
	milesPerKm  = 0.621371
	metersPerMi = 1609.344
)

// ParseUnit maps a query value onto a Unit, defaulting to kilometers
func ParseUnit(s string) Unit {
	if s == string(UnitMi) {
		return UnitMi
	}
	return UnitKm
}

// FormatDistance renders meters as "1.23 km" or "0.76 mi"
func FormatDistance(meters float64, unit Unit) string {
	if meters < 0 || math.IsNaN(meters) {
		meters = 0
	}
	km := meters / 1000
	if unit == UnitMi {
		return fmt.Sprintf("%.2f mi", km*milesPerKm)
	}
	return fmt.Sprintf("%.2f km", km)
}

// FormatHMS renders a duration in whole seconds as HH:MM:SS
func FormatHMS(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}

// FormatPace renders seconds per kilometer as "m:ss/km" (or per mile).
// A nil pace renders as "-:--".
func FormatPace(secPerKm *int64, unit Unit) string {
	suffix := "/" + string(UnitKm)
	if unit == UnitMi {
		suffix = "/" + string(UnitMi)
	}
	if secPerKm == nil {
		return "-:--" + suffix
	}

	sec := *secPerKm
	if unit == UnitMi {
		sec = int64(math.Round(float64(sec) * metersPerMi / 1000))
	}
	return fmt.Sprintf("%d:%02d%s", sec/60, sec%60, suffix)
}

// BuildView formats a live snapshot as seen at now
func BuildView(state models.TrackingState, now time.Time, unit Unit) models.TrackingView {
	view := models.TrackingView{
		TrackingState: state,
		DistanceText:  FormatDistance(state.TotalDistanceM, unit),
		ElapsedText:   FormatHMS(0),
		PaceText:      FormatPace(nil, unit),
	}
	if !state.IsTracking || state.StartAtMs == nil {
		return view
	}

	elapsed := (now.UnixMilli() - *state.StartAtMs) / 1000
	if elapsed < 0 {
		elapsed = 0
	}
	view.ElapsedText = FormatHMS(elapsed)
	view.PaceText = FormatPace(tracking.AvgPace(state.TotalDistanceM, elapsed), unit)
	return view
}
