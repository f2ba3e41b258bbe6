package metadata

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
)

var registerMakernotes sync.Once

// exifFields maps goexif field names to record fields, in extraction order.
var exifFields = []struct {
	name  exif.FieldName
	field Field
}{
	{exif.DateTimeOriginal, FieldDateTimeOriginal},
	{exif.DateTimeDigitized, FieldDateTimeDigitized},
	{exif.DateTime, FieldDateTime},
}

// exifExtractor reads EXIF blocks from JPEG and TIFF files.
type exifExtractor struct{}

func newExifExtractor() exifExtractor {
	registerMakernotes.Do(func() {
		exif.RegisterParsers(mknote.All...)
	})
	return exifExtractor{}
}

func (e exifExtractor) Extract(r io.ReadSeeker) ([]Candidate, error) {
	x, err := exif.Decode(r)
	if err != nil {
		// Non-critical errors come with a partially populated *Exif; keep what decoded.
		if x == nil || exif.IsCriticalError(err) {
			return nil, fmt.Errorf("decode exif: %w", err)
		}
	}

	var candidates []Candidate
	for _, f := range exifFields {
		if c, ok := e.candidate(x, f.name, f.field); ok {
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

func (e exifExtractor) candidate(x *exif.Exif, name exif.FieldName, field Field) (Candidate, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return Candidate{}, false
	}
	s, err := tag.StringVal()
	if err != nil {
		return Candidate{}, false
	}
	tm, err := ParseTimestamp(s)
	if err != nil {
		return Candidate{}, false
	}
	return Candidate{Field: field, Time: tm, Raw: strings.TrimSpace(strings.TrimRight(s, "\x00"))}, true
}
