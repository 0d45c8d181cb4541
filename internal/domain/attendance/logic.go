package attendance

import (
	"math"
	"time"
)

var presentStatuses = []string{StatusPresent, StatusLate, StatusHalfDay}

var allStatuses = []string{
	StatusPresent, StatusAbsent, StatusLate, StatusHalfDay, StatusLeave, StatusHoliday, StatusWeekoff,
}

// CountsAsPresent reports whether a record with status counts toward the
// attendance percentage. A half day counts as a full day.
func CountsAsPresent(status string) bool {
	for _, s := range presentStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func ValidStatus(status string) bool {
	for _, s := range allStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WorkingDays counts the days in [from, to] that fall Monday to Friday.
// It returns 0 when to is before from.
func WorkingDays(from, to time.Time) int {
	start, end := dateOnly(from), dateOnly(to)
	if end.Before(start) {
		return 0
	}
	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	return days
}

// Percentage is round(present/working*100) clamped to [0, 100]. With no
// working days there is nothing to miss, so the result is 100.
func Percentage(workingDays, presentDays int) int {
	if workingDays <= 0 {
		return 100
	}
	if presentDays <= 0 {
		return 0
	}
	pct := int(math.Round(float64(presentDays) / float64(workingDays) * 100))
	if pct > 100 {
		return 100
	}
	return pct
}

// MonthRange returns the first and last day of month, given as YYYY-MM.
func MonthRange(month string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return start, start.AddDate(0, 1, -1), nil
}

// CurrentMonth returns the range from the first of now's month to now.
func CurrentMonth(now time.Time) (time.Time, time.Time) {
	today := dateOnly(now)
	return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), today
}
