package selector

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/quidome/photo-date-tools/pkg/metadata"
)

var now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return now }
	return opts
}

func candidate(field metadata.Field, t time.Time) metadata.Candidate {
	return metadata.Candidate{Field: field, Time: t, Raw: metadata.FormatTimestamp(t)}
}

func TestSelect_Priorities(t *testing.T) {
	original := time.Date(2015, 3, 29, 9, 10, 0, 0, time.UTC)
	digitized := time.Date(2015, 3, 30, 10, 0, 0, 0, time.UTC)
	filename := time.Date(2016, 4, 1, 11, 12, 13, 0, time.UTC)
	exifDateTime := time.Date(2017, 5, 2, 1, 2, 3, 0, time.UTC)
	mtime := time.Date(2024, 10, 12, 15, 45, 0, 0, time.UTC)

	testCases := []struct {
		name       string
		candidates []metadata.Candidate
		wantTime   time.Time
		wantField  metadata.Field
	}{
		{
			name: "capture time beats digitized time",
			candidates: []metadata.Candidate{
				candidate(metadata.FieldModified, mtime),
				candidate(metadata.FieldDateTimeDigitized, digitized),
				candidate(metadata.FieldDateTimeOriginal, original),
			},
			wantTime:  original,
			wantField: metadata.FieldDateTimeOriginal,
		},
		{
			name: "digitized time beats filename",
			candidates: []metadata.Candidate{
				candidate(metadata.FieldFilename, filename),
				candidate(metadata.FieldDateTimeDigitized, digitized),
				candidate(metadata.FieldModified, mtime),
			},
			wantTime:  digitized,
			wantField: metadata.FieldDateTimeDigitized,
		},
		{
			name: "filename beats exif modify time and mtime",
			candidates: []metadata.Candidate{
				candidate(metadata.FieldDateTime, exifDateTime),
				candidate(metadata.FieldFilename, filename),
				candidate(metadata.FieldModified, mtime),
			},
			wantTime:  filename,
			wantField: metadata.FieldFilename,
		},
		{
			name: "exif modify time beats mtime",
			candidates: []metadata.Candidate{
				candidate(metadata.FieldModified, mtime),
				candidate(metadata.FieldDateTime, exifDateTime),
			},
			wantTime:  exifDateTime,
			wantField: metadata.FieldDateTime,
		},
		{
			name: "mtime is the last resort",
			candidates: []metadata.Candidate{
				candidate(metadata.FieldModified, mtime),
			},
			wantTime:  mtime,
			wantField: metadata.FieldModified,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := metadata.NewPhotoRecord("a.jpg", metadata.FormatJPEG, tc.candidates)

			got, ok := Select(rec, testOptions())
			if !ok {
				t.Fatalf("expected a selection")
			}
			if got.Field != tc.wantField {
				t.Fatalf("unexpected field\n got: %q\nwant: %q", got.Field, tc.wantField)
			}
			if !got.Time.Equal(tc.wantTime) {
				t.Fatalf("unexpected time\n got: %v\nwant: %v", got.Time, tc.wantTime)
			}
		})
	}
}

func TestSelect_PlausibilityFallsThrough(t *testing.T) {
	digitized := time.Date(2015, 3, 29, 9, 10, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		original time.Time
	}{
		{name: "zero time", original: time.Time{}},
		{name: "unix epoch instant", original: time.Unix(0, 0).UTC()},
		{name: "epoch wall clock in another zone", original: time.Date(1970, 1, 1, 0, 0, 0, 0, time.FixedZone("X", 3600))},
		{name: "before minimum year", original: time.Date(1015, 3, 29, 0, 0, 0, 0, time.UTC)},
		{name: "far future", original: time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := metadata.NewPhotoRecord("a.jpg", metadata.FormatJPEG, []metadata.Candidate{
				candidate(metadata.FieldDateTimeOriginal, tc.original),
				candidate(metadata.FieldDateTimeDigitized, digitized),
			})

			got, ok := Select(rec, testOptions())
			if !ok {
				t.Fatalf("expected a selection")
			}
			if got.Field != metadata.FieldDateTimeDigitized {
				t.Fatalf("expected digitized time, got %q", got.Field)
			}
			if !got.Time.Equal(digitized) {
				t.Fatalf("unexpected time %v", got.Time)
			}
		})
	}
}

func TestSelect_NoCandidate(t *testing.T) {
	testCases := []struct {
		name       string
		candidates []metadata.Candidate
	}{
		{name: "empty record"},
		{
			name: "only implausible dates",
			candidates: []metadata.Candidate{
				candidate(metadata.FieldDateTimeOriginal, time.Time{}),
				candidate(metadata.FieldModified, time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC)),
			},
		},
		{
			name: "unranked field only",
			candidates: []metadata.Candidate{
				candidate(metadata.FieldCreated, time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC)),
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := metadata.NewPhotoRecord("a.jpg", metadata.FormatJPEG, tc.candidates)
			got, ok := Select(rec, testOptions())
			if ok {
				t.Fatalf("expected no selection, got %+v", got)
			}
			if got.Field != SourceUnknown {
				t.Fatalf("expected unknown source, got %q", got.Field)
			}
		})
	}
}

func TestSelect_Deterministic(t *testing.T) {
	rec := metadata.NewPhotoRecord("IMG_20240102_030405.jpg", metadata.FormatJPEG, []metadata.Candidate{
		candidate(metadata.FieldDateTimeOriginal, time.Unix(0, 0).UTC()),
		candidate(metadata.FieldFilename, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)),
		candidate(metadata.FieldModified, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	})
	opts := testOptions()

	first, ok := Select(rec, opts)
	if !ok {
		t.Fatalf("expected a selection")
	}
	for i := 0; i < 100; i++ {
		got, _ := Select(rec, opts)
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("iteration %d: got %+v, want %+v", i, got, first)
		}
	}
}

func TestSelect_RefinesDateOnlyWinner(t *testing.T) {
	day := metadata.Candidate{
		Field:    metadata.FieldFilename,
		Time:     time.Date(2015, 3, 29, 0, 0, 0, 0, time.UTC),
		Raw:      "2015-03-29",
		DateOnly: true,
	}
	mtime := time.Date(2015, 3, 29, 19, 46, 0, 0, time.UTC)

	rec := metadata.NewPhotoRecord("2015-03-29_trip.jpg", metadata.FormatJPEG, []metadata.Candidate{
		day,
		candidate(metadata.FieldModified, mtime),
	})

	got, ok := Select(rec, testOptions())
	if !ok {
		t.Fatalf("expected a selection")
	}
	if got.Field != metadata.FieldFilename || got.RefinedFrom != metadata.FieldModified {
		t.Fatalf("unexpected selection %+v", got)
	}
	if !got.Time.Equal(mtime) {
		t.Fatalf("unexpected time %v", got.Time)
	}

	opts := testOptions()
	opts.RefinePrecision = false
	got, _ = Select(rec, opts)
	if !got.Time.Equal(day.Time) || got.RefinedFrom != "" {
		t.Fatalf("expected unrefined selection, got %+v", got)
	}
}

func TestSelect_DoesNotRefineAcrossDays(t *testing.T) {
	day := metadata.Candidate{
		Field:    metadata.FieldFilename,
		Time:     time.Date(2015, 3, 29, 0, 0, 0, 0, time.UTC),
		DateOnly: true,
	}
	rec := metadata.NewPhotoRecord("2015-03-29.jpg", metadata.FormatJPEG, []metadata.Candidate{
		day,
		candidate(metadata.FieldModified, time.Date(2015, 3, 30, 8, 0, 0, 0, time.UTC)),
	})

	got, _ := Select(rec, testOptions())
	if !got.Time.Equal(day.Time) || got.RefinedFrom != "" {
		t.Fatalf("unexpected refinement %+v", got)
	}
}

func TestSelect_CustomPriority(t *testing.T) {
	mtime := time.Date(2024, 10, 12, 15, 45, 0, 0, time.UTC)
	rec := metadata.NewPhotoRecord("a.jpg", metadata.FormatJPEG, []metadata.Candidate{
		candidate(metadata.FieldDateTimeOriginal, time.Date(2015, 3, 29, 9, 10, 0, 0, time.UTC)),
		candidate(metadata.FieldModified, mtime),
	})

	opts := testOptions()
	opts.Priority = []metadata.Field{metadata.FieldModified, metadata.FieldDateTimeOriginal}
	got, _ := Select(rec, opts)
	if got.Field != metadata.FieldModified {
		t.Fatalf("expected mtime first, got %q", got.Field)
	}
}

func TestPlausibility_Check(t *testing.T) {
	p := DefaultPlausibility()

	testCases := []struct {
		name    string
		t       time.Time
		wantErr error
	}{
		{name: "ordinary date", t: time.Date(2015, 3, 29, 9, 10, 0, 0, time.UTC)},
		{name: "minimum year", t: time.Date(1800, 1, 1, 0, 0, 1, 0, time.UTC)},
		{name: "within future tolerance", t: now.Add(23 * time.Hour)},
		{name: "zero", t: time.Time{}, wantErr: ErrZeroDate},
		{name: "epoch", t: time.Unix(0, 0), wantErr: ErrEpochDate},
		{name: "too old", t: time.Date(1799, 12, 31, 0, 0, 0, 0, time.UTC), wantErr: ErrTooOld},
		{name: "beyond tolerance", t: now.Add(25 * time.Hour), wantErr: ErrFutureDate},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := p.Check(tc.t, now)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestParsePriority(t *testing.T) {
	got, err := ParsePriority([]string{"EXIF DateTimeOriginal", "File Modified Date"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []metadata.Field{metadata.FieldDateTimeOriginal, metadata.FieldModified}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected priority\n got: %#v\nwant: %#v", got, want)
	}

	if _, err := ParsePriority([]string{"GPS Date"}); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestOptions_FixedFreezesClock(t *testing.T) {
	calls := 0
	opts := DefaultOptions()
	opts.Now = func() time.Time {
		calls++
		return now.Add(time.Duration(calls) * time.Hour)
	}

	fixed := opts.Fixed()
	a, b := fixed.Now(), fixed.Now()
	if !a.Equal(b) {
		t.Fatalf("expected frozen clock, got %v and %v", a, b)
	}
}

func TestParsePriority_Errors(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  error
	}{
		{name: "nil", names: nil, want: ErrEmptyPriority},
		{name: "empty", names: []string{}, want: ErrEmptyPriority},
		{name: "unknown", names: []string{"EXIF Nonsense"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePriority(tt.names)
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
