// Package progression turns finished sessions into experience, levels,
// streaks and titles. Everything here is a pure function of its inputs.
package progression

import (
	"math"

	"github.com/jengzang/drk-backend-go/internal/models"
)

const (
	xpPerKm          = 10
	xpPerTimeBlock   = 5
	timeBlockSeconds = 600
	levelCostStep    = 100
)

// Input is everything Apply needs to score one finished session
type Input struct {
	SessionID      int64
	DistanceM      float64
	DurationS      int64
	Today          string              // 2006-01-02 in the player's local zone
	Player         *models.PlayerState // nil for a brand new player
	Daily          *models.DailyStat   // nil when nothing was recorded today yet
	TotalDistanceM float64             // lifetime distance, including this session
	Catalog        []models.TitleDef
}

// Outcome is the new state to persist plus the event to publish
type Outcome struct {
	Player models.PlayerState
	Daily  models.DailyStat
	Event  models.ResultEvent
}

// DefaultPlayerState is the state of a player who never finished a session
func DefaultPlayerState() models.PlayerState {
	return models.PlayerState{
		TotalXp:     0,
		Level:       1,
		NextLevelXp: NextLevelCost(1),
	}
}

// NextLevelCost is the XP needed to advance from level to level+1
func NextLevelCost(level int64) int64 {
	return level * levelCostStep
}

// EarnedXp scores a session: 10 XP per km and 5 XP per full 10 minutes,
// each part truncated on its own before summing.
func EarnedXp(distanceM float64, durationS int64) int64 {
	if distanceM < 0 || math.IsNaN(distanceM) {
		distanceM = 0
	}
	if durationS < 0 {
		durationS = 0
	}
	kmXp := math.Floor(distanceM / 1000 * xpPerKm)
	timeXp := math.Floor(float64(durationS) / timeBlockSeconds * xpPerTimeBlock)
	return int64(kmXp) + int64(timeXp)
}

// Apply scores one session. Inputs are never modified.
func Apply(in Input) Outcome {
	earned := EarnedXp(in.DistanceM, in.DurationS)

	player := DefaultPlayerState()
	if in.Player != nil {
		player = *in.Player
		if player.Level < 1 {
			player.Level = 1
		}
		if player.NextLevelXp <= 0 {
			player.NextLevelXp = NextLevelCost(player.Level)
		}
	}

	levelUp := addXp(&player, earned)

	player.StreakDays = NextStreak(player.LastActiveDate, player.StreakDays, in.Today)
	today := in.Today
	player.LastActiveDate = &today

	owned := player.Titles()
	newTitles := EvaluateTitles(in.Catalog, owned, Metrics{
		SessionDistanceM: in.DistanceM,
		TotalDistanceM:   in.TotalDistanceM,
		StreakDays:       player.StreakDays,
	})
	if len(newTitles) > 0 {
		player.TitlesCsv = models.JoinCSV(append(owned, newTitles...))
	}

	daily := accumulateDaily(in.Daily, in.Today, in.DistanceM, in.DurationS, earned, newTitles)

	if newTitles == nil {
		newTitles = []string{}
	}
	return Outcome{
		Player: player,
		Daily:  daily,
		Event: models.ResultEvent{
			SessionID:  in.SessionID,
			EarnedXp:   earned,
			LevelUp:    levelUp,
			NewTitles:  newTitles,
			Level:      player.Level,
			StreakDays: player.StreakDays,
		},
	}
}

// addXp carries XP over level boundaries and reports whether any level was gained
func addXp(p *models.PlayerState, earned int64) bool {
	levelUp := false
	p.TotalXp += earned
	for p.TotalXp >= p.NextLevelXp {
		p.TotalXp -= p.NextLevelXp
		p.Level++
		p.NextLevelXp = NextLevelCost(p.Level)
		levelUp = true
	}
	return levelUp
}

func accumulateDaily(prev *models.DailyStat, date string, distanceM float64, durationS, earned int64, newTitles []string) models.DailyStat {
	stat := models.DailyStat{Date: date}
	if prev != nil {
		stat = *prev
		stat.Date = date
	}
	if distanceM > 0 {
		stat.TotalDistanceM += distanceM
	}
	if durationS > 0 {
		stat.TotalDurationS += durationS
	}
	stat.EarnedXp += earned
	if len(newTitles) > 0 {
		stat.EarnedTitlesCsv = models.JoinCSV(append(models.SplitCSV(stat.EarnedTitlesCsv), newTitles...))
	}
	return stat
}
