// Package timeutil converts between Unix epoch seconds and civil (local
// calendar) dates, and truncates timestamps to month or year boundaries.
package timeutil

import "time"

// CivilDate is a calendar date in local time.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

// FromUnix converts Unix epoch seconds to a civil date in local time.
func FromUnix(sec int64) CivilDate {
	t := time.Unix(sec, 0).Local()
	y, m, d := t.Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

// FromTime converts a timestamp to a civil date in local time.
func FromTime(t time.Time) CivilDate {
	y, m, d := t.Local().Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

// Unix returns the epoch seconds of local midnight on the date.
func (d CivilDate) Unix() int64 {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.Local).Unix()
}

// Time returns local midnight on the date.
func (d CivilDate) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.Local)
}

// StartOfMonth truncates t to the first instant of its containing calendar
// month, in local time.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Local().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.Local)
}

// StartOfYear truncates t to the first instant of its containing calendar
// year, in local time.
func StartOfYear(t time.Time) time.Time {
	y, _, _ := t.Local().Date()
	return time.Date(y, time.January, 1, 0, 0, 0, 0, time.Local)
}

// Round truncates t to the start of its month, or of its year when yearly
// is set.
func Round(t time.Time, yearly bool) time.Time {
	if yearly {
		return StartOfYear(t)
	}
	return StartOfMonth(t)
}
