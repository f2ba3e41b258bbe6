// Package selector picks the most plausible date out of a PhotoRecord.
//
// Candidates are ranked by source trustworthiness:
//  1. EXIF DateTimeOriginal
//  2. EXIF DateTimeDigitized
//  3. a date embedded in the filename
//  4. EXIF DateTime
//  5. filesystem modification time
//
// The first candidate that passes the plausibility filter wins.
package selector

import (
	"errors"
	"fmt"
	"time"

	"github.com/quidome/photo-date-tools/pkg/metadata"
)

// SourceUnknown is reported when no candidate survives selection.
const SourceUnknown metadata.Field = "unknown"

var (
	ErrZeroDate   = errors.New("zero date")
	ErrEpochDate  = errors.New("unix epoch placeholder")
	ErrTooOld     = errors.New("date before minimum year")
	ErrFutureDate = errors.New("date in the future")
)

// SelectedDate is the chosen date and the field it came from.
type SelectedDate struct {
	Time  time.Time
	Field metadata.Field

	// RefinedFrom names the field that supplied the time of day when the
	// winning candidate was date-only. Empty when no refinement happened.
	RefinedFrom metadata.Field
}

// Plausibility decides which dates are clearly invalid.
type Plausibility struct {
	// MinYear rejects dates before January 1st of this year.
	MinYear int

	// FutureTolerance is how far past "now" a date may lie, to absorb
	// timezone skew between camera clocks and the host.
	FutureTolerance time.Duration

	// RejectEpoch rejects 1970-01-01 00:00:00, the usual placeholder for
	// an unset clock.
	RejectEpoch bool
}

// DefaultPlausibility returns the filter used by the command line tools.
func DefaultPlausibility() Plausibility {
	return Plausibility{
		MinYear:         1800,
		FutureTolerance: 24 * time.Hour,
		RejectEpoch:     true,
	}
}

// Check returns nil when t is a plausible capture date relative to now.
// Capture dates are floating wall clock times, so now is compared by its
// reading in its own zone.
func (p Plausibility) Check(t, now time.Time) error {
	if t.IsZero() {
		return ErrZeroDate
	}
	if p.RejectEpoch && isEpoch(t) {
		return ErrEpochDate
	}
	if p.MinYear != 0 && t.Year() < p.MinYear {
		return fmt.Errorf("%w %d: %s", ErrTooOld, p.MinYear, t.Format(time.DateTime))
	}
	if t.After(metadata.WallClock(now, now.Location()).Add(p.FutureTolerance)) {
		return fmt.Errorf("%w: %s", ErrFutureDate, t.Format(time.DateTime))
	}
	return nil
}

func isEpoch(t time.Time) bool {
	if t.Unix() == 0 {
		return true
	}
	y, m, d := t.Date()
	return y == 1970 && m == time.January && d == 1 && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0
}

// Options configures Select.
type Options struct {
	// Priority lists the fields to consider, most trusted first.
	// Fields not listed are never selected.
	Priority []metadata.Field

	Plausibility Plausibility

	// Now is the reference for the future-date check. If nil, time.Now is used.
	Now func() time.Time

	// RefinePrecision borrows the time of day from a lower ranked candidate
	// on the same calendar day when the winner is date-only.
	RefinePrecision bool
}

// DefaultPriority returns the default ranking.
func DefaultPriority() []metadata.Field {
	return []metadata.Field{
		metadata.FieldDateTimeOriginal,
		metadata.FieldDateTimeDigitized,
		metadata.FieldFilename,
		metadata.FieldDateTime,
		metadata.FieldModified,
	}
}

// DefaultOptions returns the default ranking and plausibility filter.
func DefaultOptions() Options {
	return Options{
		Priority:        DefaultPriority(),
		Plausibility:    DefaultPlausibility(),
		RefinePrecision: true,
	}
}

// Fixed returns a copy of opts whose clock is frozen at the current time, so
// every photo of a run is judged against the same instant.
func (o Options) Fixed() Options {
	now := time.Now()
	if o.Now != nil {
		now = o.Now()
	}
	o.Now = func() time.Time { return now }
	return o
}

// ErrEmptyPriority is returned for a priority list without fields, which
// would leave every photo without a date.
var ErrEmptyPriority = errors.New("empty priority list")

// ParsePriority converts field names into a priority list.
func ParsePriority(names []string) ([]metadata.Field, error) {
	if len(names) == 0 {
		return nil, ErrEmptyPriority
	}
	known := make(map[metadata.Field]bool)
	for _, f := range metadata.Fields() {
		known[f] = true
	}
	out := make([]metadata.Field, 0, len(names))
	for _, n := range names {
		f := metadata.Field(n)
		if !known[f] {
			return nil, fmt.Errorf("unknown date field %q", n)
		}
		out = append(out, f)
	}
	return out, nil
}

// Select returns the best date of rec. The second result is false when no
// candidate is present and plausible.
func Select(rec metadata.PhotoRecord, opts Options) (SelectedDate, bool) {
	now := time.Now()
	if opts.Now != nil {
		now = opts.Now()
	}
	priority := opts.Priority
	if priority == nil {
		priority = DefaultPriority()
	}

	ranked := make([]metadata.Candidate, 0, len(priority))
	for _, f := range priority {
		c, ok := rec.Get(f)
		if !ok {
			continue
		}
		if opts.Plausibility.Check(c.Time, now) != nil {
			continue
		}
		ranked = append(ranked, c)
	}
	if len(ranked) == 0 {
		return SelectedDate{Field: SourceUnknown}, false
	}

	best := ranked[0]
	selected := SelectedDate{Time: best.Time, Field: best.Field}
	if opts.RefinePrecision && best.DateOnly {
		if c, ok := morePrecise(best, ranked[1:]); ok {
			selected.Time = c.Time
			selected.RefinedFrom = c.Field
		}
	}
	return selected, true
}

// morePrecise finds the first candidate on the same calendar day as day
// that carries a time of day.
func morePrecise(day metadata.Candidate, rest []metadata.Candidate) (metadata.Candidate, bool) {
	y, m, d := day.Time.Date()
	for _, c := range rest {
		if c.DateOnly {
			continue
		}
		t := c.Time.In(day.Time.Location())
		cy, cm, cd := t.Date()
		if cy != y || cm != m || cd != d {
			continue
		}
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			continue
		}
		c.Time = t
		return c, true
	}
	return metadata.Candidate{}, false
}
