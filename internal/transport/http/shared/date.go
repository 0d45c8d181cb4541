package shared

import "time"

const dateLayout = "2006-01-02"

// ParseDate accepts RFC3339 or YYYY-MM-DD. Empty input is the zero time.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse(dateLayout, value)
}

// ParseRangeEnd is ParseDate for the upper bound of a filter: a bare date
// covers that whole day.
func ParseRangeEnd(value string) (time.Time, error) {
	if len(value) == len(dateLayout) {
		day, err := time.Parse(dateLayout, value)
		if err != nil {
			return time.Time{}, err
		}
		return day.Add(24*time.Hour - time.Nanosecond), nil
	}
	return ParseDate(value)
}
