package metadata

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the EXIF date format "YYYY:MM:DD HH:MM:SS".
const TimestampLayout = "2006:01:02 15:04:05"

// ErrMalformedTimestamp is returned for values that are not in TimestampLayout.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// ParseTimestamp parses an EXIF timestamp as a floating wall clock time.
//
// EXIF values carry no zone, so the result is anchored in time.UTC and is
// never converted. Trailing NUL padding and surrounding spaces are ignored.
// Placeholders such as "0000:00:00 00:00:00" are rejected.
func ParseTimestamp(s string) (time.Time, error) {
	v := strings.TrimSpace(strings.TrimRight(s, "\x00"))
	if len(v) != len(TimestampLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
	}
	t, err := time.Parse(TimestampLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
	}
	return t, nil
}

// FormatTimestamp renders t in TimestampLayout using t's own location.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// WallClock returns the reading of t on a clock in loc as a floating time
// anchored in time.UTC. A nil loc means time.Local.
func WallClock(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), time.UTC)
}
