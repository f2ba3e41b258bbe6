package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/quidome/photo-date-tools/pkg/metadata"
	"github.com/quidome/photo-date-tools/pkg/scan"
	"github.com/quidome/photo-date-tools/pkg/selector"
)

// DefaultOutput is the report file name used when none is given.
const DefaultOutput = "image_metadata.csv"

// PhotoReader reads the date candidates of one photo.
type PhotoReader interface {
	Read(path string) (metadata.PhotoRecord, error)
}

// Builder turns photos into report rows.
type Builder struct {
	reader PhotoReader
	opts   selector.Options
	log    *zap.Logger
}

// NewBuilder returns a Builder. A nil logger disables logging.
func NewBuilder(reader PhotoReader, opts selector.Options, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{reader: reader, opts: opts, log: log}
}

// BuildDir scans root recursively and builds one row per photo found.
// Only a failure to walk root is returned; unreadable photos become error rows.
func (b *Builder) BuildDir(root string, opts scan.Options) ([]Row, error) {
	rel, err := scan.Scan(os.DirFS(root), ".", opts)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	paths := make([]string, 0, len(rel))
	for _, p := range rel {
		paths = append(paths, filepath.Join(root, filepath.FromSlash(p)))
	}
	return b.Build(paths), nil
}

// Build returns one row per path, in input order.
func (b *Builder) Build(paths []string) []Row {
	opts := b.opts.Fixed()

	rows := make([]Row, 0, len(paths))
	for _, p := range paths {
		rows = append(rows, b.row(p, opts))
	}
	return rows
}

func (b *Builder) row(path string, opts selector.Options) Row {
	row := newRow(path)

	rec, err := b.reader.Read(path)
	if err != nil {
		b.log.Warn("unreadable photo", zap.String("path", path), zap.Error(err))
		row.Source = SourceError
		row.Error = err.Error()
		return row
	}

	for _, c := range rec.Candidates() {
		row.Dates[c.Field] = c.Time
	}

	selected, ok := selector.Select(rec, opts)
	if !ok {
		b.log.Info("no plausible date", zap.String("path", path))
		row.Source = string(selector.SourceUnknown)
		return row
	}
	row.SetDate = selected.Time
	row.Source = string(selected.Field)

	b.log.Debug("date selected",
		zap.String("path", path),
		zap.String("source", row.Source),
		zap.String("refined_from", string(selected.RefinedFrom)),
		zap.Time("date", selected.Time))
	return row
}

// Write encodes rows as CSV with a header.
func Write(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return fmt.Errorf("write row %s: %w", r.Path(), err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}

// WriteFile writes the report to path.
func WriteFile(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := Write(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	return nil
}

// Stats tallies a finished report.
type Stats struct {
	Rows    int
	Errors  int
	Unknown int
}

// Summarize counts error rows and rows without a selected date.
func Summarize(rows []Row) Stats {
	s := Stats{Rows: len(rows)}
	for _, r := range rows {
		switch {
		case r.Failed():
			s.Errors++
		case r.SetDate.IsZero():
			s.Unknown++
		}
	}
	return s
}
