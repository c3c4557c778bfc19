package domain

import "time"

// DateOf returns the calendar date of t as YYYY-MM-DD in t's location.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// WeekStartOf returns the Monday anchoring the calendar week containing t,
// as YYYY-MM-DD. Sunday belongs to the week started the previous Monday.
func WeekStartOf(t time.Time) string {
	return mondayOf(t).Format(DateLayout)
}

// WeekBoundsOf returns [Monday 00:00, next Monday 00:00) of the week
// containing t, in t's location.
func WeekBoundsOf(t time.Time) (start, end time.Time) {
	start = mondayOf(t)
	return start, start.AddDate(0, 0, 7)
}

func mondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -offset)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}
