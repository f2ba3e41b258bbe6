package metadata

import (
	"fmt"
	"io"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/evanoberholster/imagemeta/exif2"
)

// imagemetaExtractor reads EXIF from HEIF/HEIC containers.
type imagemetaExtractor struct{}

func (e imagemetaExtractor) Extract(r io.ReadSeeker) ([]Candidate, error) {
	x, err := decodeImagemeta(r)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, f := range []struct {
		field Field
		t     time.Time
	}{
		{FieldDateTimeOriginal, x.DateTimeOriginal()},
		{FieldDateTimeDigitized, x.CreateDate()},
		{FieldDateTime, x.ModifyDate()},
	} {
		if f.t.IsZero() {
			continue
		}
		// Only the wall clock is kept, whatever zone imagemeta attached. It goes
		// through the same parser as every other tag.
		raw := FormatTimestamp(f.t)
		tm, err := ParseTimestamp(raw)
		if err != nil {
			continue
		}
		candidates = append(candidates, Candidate{Field: f.field, Time: tm, Raw: raw})
	}
	return candidates, nil
}

func decodeImagemeta(r io.ReadSeeker) (exif2.Exif, error) {
	x, err := imagemeta.Decode(r)
	if err != nil {
		return x, fmt.Errorf("decode metadata: %w", err)
	}
	return x, nil
}
