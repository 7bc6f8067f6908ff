package service

import (
	"context"
	"math"

	"github.com/jengzang/drk-backend-go/internal/models"
	"github.com/jengzang/drk-backend-go/internal/stats"
)

const splitMeters = 1000.0

// Split is the time taken for one kilometer, or for the trailing partial one
type Split struct {
	Index     int     `json:"index"` // 1-based
	DistanceM float64 `json:"distanceM"`
	DurationS int64   `json:"durationS"`
}

// SpeedStats summarizes the speeds observed during a session
type SpeedStats struct {
	MeanMps   float64 `json:"meanMps"`
	MedianMps float64 `json:"medianMps"`
	P90Mps    float64 `json:"p90Mps"`
	MaxMps    float64 `json:"maxMps"`
	Samples   int     `json:"samples"`
}

// SessionSummary is a session with its splits and speed distribution
type SessionSummary struct {
	Session models.Session `json:"session"`
	Splits  []Split        `json:"splits"`
	Speed   SpeedStats     `json:"speed"`
}

// SessionSummary builds per-kilometer splits and speed statistics from stored points
func (s *HistoryService) SessionSummary(ctx context.Context, id int64) (*SessionSummary, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	points, err := s.GetSessionPoints(ctx, models.TrackPointFilter{SessionID: id})
	if err != nil {
		return nil, err
	}

	return &SessionSummary{
		Session: *session,
		Splits:  Splits(session.StartAtMs, points),
		Speed:   Speeds(points),
	}, nil
}

// Splits interpolates the time each kilometer boundary was crossed.
// Timing starts at startAtMs; a trailing partial kilometer is reported with its own distance.
func Splits(startAtMs int64, points []models.TrackPoint) []Split {
	splits := []Split{}
	if len(points) == 0 {
		return splits
	}

	lastMark := float64(startAtMs)
	prev := points[0]
	for _, p := range points[1:] {
		for {
			boundary := float64(len(splits)+1) * splitMeters
			if p.CumulativeDistanceM < boundary || p.CumulativeDistanceM <= prev.CumulativeDistanceM {
				break
			}
			frac := (boundary - prev.CumulativeDistanceM) / (p.CumulativeDistanceM - prev.CumulativeDistanceM)
			crossed := float64(prev.TimestampMs) + frac*float64(p.TimestampMs-prev.TimestampMs)
			splits = append(splits, Split{
				Index:     len(splits) + 1,
				DistanceM: splitMeters,
				DurationS: int64(math.Round((crossed - lastMark) / 1000)),
			})
			lastMark = crossed
		}
		prev = p
	}

	last := points[len(points)-1]
	if rest := last.CumulativeDistanceM - float64(len(splits))*splitMeters; rest > 0 {
		splits = append(splits, Split{
			Index:     len(splits) + 1,
			DistanceM: rest,
			DurationS: int64(math.Round((float64(last.TimestampMs) - lastMark) / 1000)),
		})
	}
	return splits
}

// Speeds uses reported speeds when present, otherwise speeds derived between consecutive points
func Speeds(points []models.TrackPoint) SpeedStats {
	var samples []float64
	for i, p := range points {
		if p.SpeedMps != nil && !math.IsNaN(float64(*p.SpeedMps)) && *p.SpeedMps >= 0 {
			samples = append(samples, float64(*p.SpeedMps))
			continue
		}
		if i == 0 {
			continue
		}
		prev := points[i-1]
		if dt := float64(p.TimestampMs-prev.TimestampMs) / 1000; dt > 0 {
			samples = append(samples, (p.CumulativeDistanceM-prev.CumulativeDistanceM)/dt)
		}
	}

	return SpeedStats{
		MeanMps:   stats.Mean(samples),
		MedianMps: stats.Median(samples),
		P90Mps:    stats.Percentile(samples, 90),
		MaxMps:    stats.Max(samples),
		Samples:   len(samples),
	}
}
