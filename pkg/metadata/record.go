package metadata

import "time"

// Field names the source a candidate date was read from.
//
// The values double as the CSV report's column headers.
type Field string

const (
	FieldDateTimeOriginal  Field = "EXIF DateTimeOriginal"
	FieldDateTimeDigitized Field = "EXIF DateTimeDigitized"
	FieldDateTime          Field = "EXIF DateTime"
	FieldFilename          Field = "From Filename"
	FieldModified          Field = "File Modified Date"
	FieldCreated           Field = "File Created Date"
)

// Fields lists every known field in report column order.
func Fields() []Field {
	return []Field{
		FieldFilename,
		FieldModified,
		FieldCreated,
		FieldDateTime,
		FieldDateTimeOriginal,
		FieldDateTimeDigitized,
	}
}

// Candidate is a single date found in one source, before selection.
type Candidate struct {
	Field Field
	Time  time.Time

	// Raw is the value as stored in the source, e.g. "2015:03:29 09:10:00".
	Raw string

	// DateOnly is set when the source carries no time of day.
	DateOnly bool
}

// PhotoRecord holds the candidates extracted from one photo.
//
// A record is immutable; accessors return copies.
type PhotoRecord struct {
	Path   string
	Format Format

	candidates []Candidate
}

// NewPhotoRecord builds a record from candidates in the order given.
// When a field occurs more than once, the first occurrence wins.
func NewPhotoRecord(path string, format Format, candidates []Candidate) PhotoRecord {
	seen := make(map[Field]bool, len(candidates))
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if seen[c.Field] {
			continue
		}
		seen[c.Field] = true
		kept = append(kept, c)
	}
	return PhotoRecord{Path: path, Format: format, candidates: kept}
}

// Candidates returns the candidates in extraction order.
func (r PhotoRecord) Candidates() []Candidate {
	out := make([]Candidate, len(r.candidates))
	copy(out, r.candidates)
	return out
}

// Get returns the candidate for a field.
func (r PhotoRecord) Get(field Field) (Candidate, bool) {
	for _, c := range r.candidates {
		if c.Field == field {
			return c, true
		}
	}
	return Candidate{}, false
}

// Len reports the number of candidates.
func (r PhotoRecord) Len() int {
	return len(r.candidates)
}
