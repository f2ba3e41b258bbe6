package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMissingColumn is returned when a report lacks a column the updater needs.
var ErrMissingColumn = errors.New("missing column")

// Entry is a report row as read back by the updater.
type Entry struct {
	// Line is the 1-based line of the record in the CSV file.
	Line int

	Folder   string
	Filename string
	SetDate  string
	Error    string
}

// EntryReader streams entries out of a report.
type EntryReader struct {
	cr      *csv.Reader
	columns map[string]int
}

// NewEntryReader reads the header of a report. Columns may appear in any
// order; Folder, Filename and Set Date are required.
func NewEntryReader(r io.Reader) (*EntryReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read header: empty report")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		name = strings.TrimSpace(name)
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	for _, required := range []string{ColumnFolder, ColumnFilename, ColumnSetDate} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, required)
		}
	}

	return &EntryReader{cr: cr, columns: columns}, nil
}

// Next returns the next entry, or io.EOF after the last one. A malformed
// record returns a non-EOF error; reading may continue afterwards.
func (er *EntryReader) Next() (Entry, error) {
	rec, err := er.cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Entry{}, io.EOF
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return Entry{Line: perr.StartLine}, fmt.Errorf("parse line %d: %w", perr.StartLine, err)
		}
		return Entry{}, err
	}

	line, _ := er.cr.FieldPos(0)
	return Entry{
		Line:     line,
		Folder:   er.field(rec, ColumnFolder),
		Filename: er.field(rec, ColumnFilename),
		SetDate:  er.field(rec, ColumnSetDate),
		Error:    er.field(rec, ColumnError),
	}, nil
}

func (er *EntryReader) field(rec []string, column string) string {
	i, ok := er.columns[column]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
