package progression

import (
	"fmt"
	"strings"

	"github.com/jengzang/drk-backend-go/internal/models"
)

// Metrics are the values title conditions are evaluated against
type Metrics struct {
	SessionDistanceM float64
	TotalDistanceM   float64
	StreakDays       int64
}

// DefaultTitles is the catalog seeded into a fresh database
func DefaultTitles() []models.TitleDef {
	return []models.TitleDef{
		{Key: "FIRST_1KM", Name: "First Kilometer", ConditionType: models.ConditionSessionDistance, Threshold: 1000},
		{Key: "SESSION_5K", Name: "5K Runner", ConditionType: models.ConditionSessionDistance, Threshold: 5000},
		{Key: "SESSION_10K", Name: "10K Runner", ConditionType: models.ConditionSessionDistance, Threshold: 10000},
		{Key: "HALF_MARATHON", Name: "Half Marathoner", ConditionType: models.ConditionSessionDistance, Threshold: 21097},
		{Key: "CUM_10KM", Name: "Explorer", ConditionType: models.ConditionCumDistance, Threshold: 10000},
		{Key: "CUM_42KM", Name: "Marathon in Pieces", ConditionType: models.ConditionCumDistance, Threshold: 42195},
		{Key: "CUM_100KM", Name: "Centurion", ConditionType: models.ConditionCumDistance, Threshold: 100000},
		{Key: "CUM_500KM", Name: "Long Hauler", ConditionType: models.ConditionCumDistance, Threshold: 500000},
		{Key: "STREAK_3", Name: "Three in a Row", ConditionType: models.ConditionStreak, Threshold: 3},
		{Key: "STREAK_7", Name: "Full Week", ConditionType: models.ConditionStreak, Threshold: 7},
		{Key: "STREAK_30", Name: "Habit Formed", ConditionType: models.ConditionStreak, Threshold: 30},
	}
}

// ParseConditionType parses a stored condition name
func ParseConditionType(s string) (models.ConditionType, error) {
	c := models.ConditionType(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown title condition type %q", s)
	}
	return c, nil
}

// Satisfied reports whether def's threshold is met by m
func Satisfied(def models.TitleDef, m Metrics) bool {
	switch def.ConditionType {
	case models.ConditionSessionDistance:
		return m.SessionDistanceM >= float64(def.Threshold)
	case models.ConditionCumDistance:
		return m.TotalDistanceM >= float64(def.Threshold)
	case models.ConditionStreak:
		return m.StreakDays >= def.Threshold
	}
	return false
}

// EvaluateTitles returns the keys newly unlocked by m, in catalog order.
// Already owned keys are never reported again.
func EvaluateTitles(catalog []models.TitleDef, owned []string, m Metrics) []string {
	have := make(map[string]bool, len(owned))
	for _, k := range owned {
		have[k] = true
	}

	var unlocked []string
	for _, def := range catalog {
		if have[def.Key] || !Satisfied(def, m) {
			continue
		}
		have[def.Key] = true
		unlocked = append(unlocked, def.Key)
	}
	return unlocked
}
