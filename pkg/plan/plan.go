package plan

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/quidome/photo-date-tools/pkg/metadata"
	"github.com/quidome/photo-date-tools/pkg/pathconv"
	"github.com/quidome/photo-date-tools/pkg/report"
)

var (
	// ErrNoDate means the row asks for no change.
	ErrNoDate = errors.New("no date")
	// ErrInvalidDate means the Set Date value matches none of the accepted layouts.
	ErrInvalidDate = errors.New("invalid date")
)

// setDateLayouts are tried in order. Spreadsheet tools tend to rewrite the
// report's own layout into one of the shorter forms on save.
var setDateLayouts = []string{
	report.DateLayout,
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"2006-01-02",
	metadata.TimestampLayout,
}

// Operation is a single planned date write.
type Operation struct {
	Line   int
	Path   string
	Target time.Time
}

// Raw returns the target in canonical on-disk form.
func (o Operation) Raw() string {
	return metadata.FormatTimestamp(o.Target)
}

// Options controls how report entries become operations.
type Options struct {
	PathStyle pathconv.Style
}

// FromEntry plans the write requested by one report entry.
//
// The photo path is Folder joined with Filename, rewritten by PathStyle.
// An empty Set Date yields ErrNoDate.
func FromEntry(e report.Entry, opts Options) (Operation, error) {
	if e.Filename == "" {
		return Operation{}, fmt.Errorf("line %d: empty filename", e.Line)
	}

	target, err := ParseSetDate(e.SetDate)
	if err != nil {
		return Operation{}, fmt.Errorf("line %d: %w", e.Line, err)
	}

	return Operation{
		Line:   e.Line,
		Path:   PhotoPath(e, opts.PathStyle),
		Target: target,
	}, nil
}

// ParseSetDate parses a Set Date value in any accepted layout. Like EXIF
// values it is a wall clock reading, returned as a floating time in time.UTC.
func ParseSetDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrNoDate
	}
	for _, layout := range setDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w %q", ErrInvalidDate, s)
}

// PhotoPath returns the path of the photo an entry names: Folder joined with
// Filename, rewritten by style.
func PhotoPath(e report.Entry, style pathconv.Style) string {
	return joinPath(e.Folder, e.Filename, style)
}

func joinPath(folder, filename string, style pathconv.Style) string {
	switch style {
	case pathconv.StyleWindows:
		folder = pathconv.ToWindows(folder)
		if folder == "" {
			return filename
		}
		return strings.TrimRight(folder, `\`) + `\` + filename
	case pathconv.StyleWSL:
		folder = pathconv.ToWSL(folder)
	}
	if folder == "" {
		return filename
	}
	return filepath.Join(folder, filename)
}
