package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// InvalidDateTime is what Combine returns when either part is missing.
// Callers compare against it before submitting.
const InvalidDateTime = "Invalid date or time"

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

var (
	ErrInvalidTime = errors.New("invalid time")
	ErrInvalidDate = errors.New("invalid date")
)

var canonicalClock = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// Combined timestamps are wall-clock; any offset present is kept as written.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// IsCanonicalTime reports whether s is a zero-padded 24-hour HH:mm label.
func IsCanonicalTime(s string) bool {
	return canonicalClock.MatchString(s)
}

// Combine joins a calendar date and a time label into the timestamp the
// backend expects, e.g. "2024-06-01" + "10:00" -> "2024-06-01T10:00:00.000".
func Combine(date, clock string) string {
	if date == "" || clock == "" {
		return InvalidDateTime
	}
	return date + "T" + clock + ":00.000"
}

// Split is the inverse of Combine. ok is false when ts does not parse.
func Split(ts string) (date, clock string, ok bool) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return "", "", false
	}
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, ts)
		if err != nil {
			continue
		}
		return t.Format(dateLayout), t.Format(clockLayout), true
	}
	return "", "", false
}

// CalendarDate reduces a date or timestamp to its YYYY-MM-DD part so that
// two values can be compared ignoring time of day.
func CalendarDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) < len(dateLayout) {
		return "", false
	}
	prefix := raw[:len(dateLayout)]
	if _, err := time.Parse(dateLayout, prefix); err != nil {
		return "", false
	}
	return prefix, true
}

// NormalizeTime converts "14:00", "9:05", "2:00:00 PM" or "12:30am" into the
// canonical 24-hour HH:mm label. Seconds are dropped.
func NormalizeTime(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidTime)
	}

	meridiem := ""
	if strings.HasSuffix(s, "AM") || strings.HasSuffix(s, "PM") {
		meridiem = s[len(s)-2:]
		s = strings.TrimSpace(s[:len(s)-2])
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 || (len(parts) == 1 && meridiem == "") {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	minute := 0
	if len(parts) > 1 {
		if minute, err = strconv.Atoi(parts[1]); err != nil || len(parts[1]) != 2 {
			return "", fmt.Errorf("%w: %q", ErrInvalidTime, raw)
		}
	}
	if minute < 0 || minute > 59 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}

	switch meridiem {
	case "":
		if hour < 0 || hour > 23 {
			return "", fmt.Errorf("%w: %q", ErrInvalidTime, raw)
		}
	default:
		if hour < 1 || hour > 12 {
			return "", fmt.Errorf("%w: %q", ErrInvalidTime, raw)
		}
		if meridiem == "PM" && hour != 12 {
			hour += 12
		} else if meridiem == "AM" && hour == 12 {
			hour = 0
		}
	}

	return formatClock(hour, minute), nil
}
