package progression

import "time"

// DateLayout is the calendar-day key used for daily stats and streaks
const DateLayout = "2006-01-02"

// DateKey formats t as a calendar day in loc
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

// ParseDate parses a DateLayout day key
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, s)
	return t, err == nil
}

// NextStreak returns the streak after activity on today.
// Consecutive day extends it, same day keeps it, anything else restarts at 1.
func NextStreak(lastActiveDate *string, streak int64, today string) int64 {
	if lastActiveDate == nil || *lastActiveDate == "" {
		return 1
	}

	last, ok := ParseDate(*lastActiveDate)
	if !ok {
		return 1
	}
	current, ok := ParseDate(today)
	if !ok {
		return 1
	}

	switch {
	case last.Equal(current):
		if streak < 1 {
			return 1
		}
		return streak
	case last.AddDate(0, 0, 1).Equal(current):
		return streak + 1
	default:
		return 1
	}
}
