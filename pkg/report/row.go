// Package report builds the CSV date report and reads it back.
//
// Column set, in order:
//
//	Filename, File Extension, Folder,
//	From Filename, File Modified Date, File Created Date,
//	EXIF DateTime, EXIF DateTimeOriginal, EXIF DateTimeDigitized,
//	Set Date, Set Date Source, Error
//
// Dates are written as "YYYY-MM-DD HH:MM:SS". "Set Date" is the column a
// reviewer edits before running the updater; an empty value means "leave
// this photo alone".
package report

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/quidome/photo-date-tools/pkg/metadata"
)

const (
	ColumnFilename  = "Filename"
	ColumnExtension = "File Extension"
	ColumnFolder    = "Folder"
	ColumnSetDate   = "Set Date"
	ColumnSource    = "Set Date Source"
	ColumnError     = "Error"
)

// DateLayout is the layout of every date column.
const DateLayout = "2006-01-02 15:04:05"

// SourceError marks rows whose photo could not be read.
const SourceError = "error"

// Header returns the report's column names.
func Header() []string {
	h := []string{ColumnFilename, ColumnExtension, ColumnFolder}
	for _, f := range metadata.Fields() {
		h = append(h, string(f))
	}
	return append(h, ColumnSetDate, ColumnSource, ColumnError)
}

// Row is one photo in the report.
type Row struct {
	Folder   string
	Filename string

	Dates map[metadata.Field]time.Time

	// SetDate is zero when no date was found or the photo was unreadable.
	SetDate time.Time
	Source  string
	Error   string
}

func newRow(path string) Row {
	return Row{
		Folder:   filepath.Dir(path),
		Filename: filepath.Base(path),
		Dates:    make(map[metadata.Field]time.Time),
	}
}

// Path returns the photo's path.
func (r Row) Path() string {
	return filepath.Join(r.Folder, r.Filename)
}

// Failed reports whether the row carries an error marker.
func (r Row) Failed() bool {
	return r.Error != ""
}

// Record renders r in Header order.
func (r Row) Record() []string {
	rec := []string{r.Filename, strings.ToLower(filepath.Ext(r.Filename)), r.Folder}
	for _, f := range metadata.Fields() {
		rec = append(rec, formatDate(r.Dates[f]))
	}
	return append(rec, formatDate(r.SetDate), r.Source, r.Error)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
