package constraints

import (
	"time"
)

func toUnixDay(t time.Time) int64 {
	return t.Unix() / 86400
}

func fromUnixDay(day int64) time.Time {
	return time.Unix(day*86400, 0).UTC()
}

// weekdayOf returns the time.Weekday number of a unix-day index; for
// the Monday-Friday dates the models hold, that is the 1..5 convention
// TimeSlot.DayOfWeek uses.
func weekdayOf(day int64) int {
	return int(fromUnixDay(day).Weekday())
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
