package format

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// InvalidDate is the label returned for timestamps that cannot be parsed.
const InvalidDate = "Invalid Date"

// timestampLayouts are tried in order. Layouts carrying a zone are parsed as
// such; the last two have no zone and are read in the local timezone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

var errEmptyTimestamp = errors.New("format: empty timestamp")

// ParseTimestamp parses an ISO-8601 timestamp as produced by the backends.
// Offset-less input is interpreted in time.Local.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmptyTimestamp
	}
	for i, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if i >= len(timestampLayouts)-2 {
			t, err = time.ParseInLocation(layout, s, time.Local)
		} else {
			t, err = time.Parse(layout, s)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("format: unrecognised timestamp %q", s)
}

// Time renders t as "M/D HH:MM" in the local timezone. The zero time renders
// as "".
func Time(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(time.Local)
	return fmt.Sprintf("%d/%d %02d:%02d", int(t.Month()), t.Day(), t.Hour(), t.Minute())
}

// Timestamp is Time for string input: "" for empty input, InvalidDate for
// input that does not parse.
func Timestamp(iso string) string {
	if strings.TrimSpace(iso) == "" {
		return ""
	}
	t, err := ParseTimestamp(iso)
	if err != nil {
		return InvalidDate
	}
	return Time(t)
}
