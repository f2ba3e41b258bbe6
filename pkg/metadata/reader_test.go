package metadata

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/quidome/photo-date-tools/internal/fixture"
	"go.uber.org/zap/zaptest"
)

func TestReader_ExtractsExifCandidates(t *testing.T) {
	dir := t.TempDir()
	mtime := time.Date(2024, 10, 12, 15, 45, 0, 0, time.UTC)
	path := fixture.WriteJPEG(t, dir, "2015-03-29_183026659.jpg", &fixture.Exif{
		DateTime:          "2015:03:29 19:46:00",
		DateTimeOriginal:  "2015:03:29 09:10:00",
		DateTimeDigitized: "2015:03:29 09:10:30",
	}, mtime)

	r := NewReader(Options{Location: time.UTC, Logger: zaptest.NewLogger(t)})
	rec, err := r.Read(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Format != FormatJPEG {
		t.Fatalf("expected jpeg format, got %q", rec.Format)
	}

	want := map[Field]time.Time{
		FieldDateTimeOriginal:  time.Date(2015, 3, 29, 9, 10, 0, 0, time.UTC),
		FieldDateTimeDigitized: time.Date(2015, 3, 29, 9, 10, 30, 0, time.UTC),
		FieldDateTime:          time.Date(2015, 3, 29, 19, 46, 0, 0, time.UTC),
		FieldFilename:          time.Date(2015, 3, 29, 0, 0, 0, 0, time.UTC),
		FieldModified:          mtime,
	}
	for field, wantTime := range want {
		c, ok := rec.Get(field)
		if !ok {
			t.Fatalf("missing candidate %q", field)
		}
		if !c.Time.Equal(wantTime) {
			t.Fatalf("unexpected %q\n got: %v\nwant: %v", field, c.Time, wantTime)
		}
	}

	c, _ := rec.Get(FieldDateTimeOriginal)
	if c.Raw != "2015:03:29 09:10:00" {
		t.Fatalf("unexpected raw value %q", c.Raw)
	}

	candidates := rec.Candidates()
	if candidates[0].Field != FieldDateTimeOriginal {
		t.Fatalf("expected metadata candidates first, got %q", candidates[0].Field)
	}
}

func TestReader_NoExifStillHasModifiedTime(t *testing.T) {
	dir := t.TempDir()
	mtime := time.Date(2020, 6, 7, 8, 9, 10, 0, time.UTC)
	path := fixture.WriteJPEG(t, dir, "holiday.jpg", nil, mtime)

	rec, err := NewReader(Options{Location: time.UTC}).Read(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := rec.Get(FieldDateTimeOriginal); ok {
		t.Fatalf("expected no capture-time candidate")
	}
	if _, ok := rec.Get(FieldFilename); ok {
		t.Fatalf("expected no filename candidate")
	}
	c, ok := rec.Get(FieldModified)
	if !ok {
		t.Fatalf("expected modified-time candidate")
	}
	if !c.Time.Equal(mtime) {
		t.Fatalf("unexpected mtime\n got: %v\nwant: %v", c.Time, mtime)
	}
}

func TestReader_ModifiedTimeIsWallClockInLocation(t *testing.T) {
	dir := t.TempDir()
	mtime := time.Date(2020, 6, 7, 8, 9, 10, 0, time.UTC)
	path := fixture.WriteJPEG(t, dir, "holiday.jpg", nil, mtime)

	loc := time.FixedZone("TEST", 2*60*60)
	rec, err := NewReader(Options{Location: loc}).Read(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, _ := rec.Get(FieldModified)
	if c.Raw != "2020:06:07 10:09:10" {
		t.Fatalf("unexpected modified time %q", c.Raw)
	}
}

func TestReader_CaptureTimeInDSTGapIsKept(t *testing.T) {
	ams, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	dir := t.TempDir()
	path := fixture.WriteJPEG(t, dir, "a.jpg", &fixture.Exif{DateTimeOriginal: "2021:03:28 02:30:00"}, time.Time{})

	rec, err := NewReader(Options{Location: ams}).Read(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, ok := rec.Get(FieldDateTimeOriginal)
	if !ok {
		t.Fatalf("missing capture time")
	}
	if got := FormatTimestamp(c.Time); got != "2021:03:28 02:30:00" {
		t.Fatalf("capture time shifted to %q", got)
	}
}

func TestReader_PNGExifChunk(t *testing.T) {
	dir := t.TempDir()
	path := fixture.WritePNG(t, dir, "scan.png", &fixture.Exif{
		DateTime:         "2016:01:01 10:00:00",
		DateTimeOriginal: "2015:03:29 09:10:11",
	}, time.Time{})

	rec, err := NewReader(Options{Location: time.UTC, Logger: zaptest.NewLogger(t)}).Read(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Format != FormatPNG {
		t.Fatalf("expected png format, got %q", rec.Format)
	}
	for field, want := range map[Field]string{
		FieldDateTimeOriginal: "2015:03:29 09:10:11",
		FieldDateTime:         "2016:01:01 10:00:00",
	} {
		c, ok := rec.Get(field)
		if !ok {
			t.Fatalf("missing candidate %q", field)
		}
		if c.Raw != want || FormatTimestamp(c.Time) != want {
			t.Fatalf("unexpected %q: %q", field, c.Raw)
		}
	}
}

func TestReader_PNGWithoutExif(t *testing.T) {
	dir := t.TempDir()
	path := fixture.WritePNG(t, dir, "plain.png", nil, time.Time{})

	rec, err := NewReader(Options{Location: time.UTC}).Read(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := rec.Get(FieldDateTimeOriginal); ok {
		t.Fatalf("expected no capture-time candidate")
	}
	if _, ok := rec.Get(FieldModified); !ok {
		t.Fatalf("expected modified candidate")
	}
}

func TestReader_HEIFWithoutMetadata(t *testing.T) {
	dir := t.TempDir()
	path := fixture.WriteFile(t, dir, "IMG_20240102_030405.heic", fixture.HEIFHeader(), time.Time{})

	rec, err := NewReader(Options{Location: time.UTC, Logger: zaptest.NewLogger(t)}).Read(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Format != FormatHEIF {
		t.Fatalf("expected heif format, got %q", rec.Format)
	}
	if _, ok := rec.Get(FieldDateTimeOriginal); ok {
		t.Fatalf("expected no capture-time candidate")
	}
	if _, ok := rec.Get(FieldFilename); !ok {
		t.Fatalf("expected filename candidate")
	}
}

func TestFindExifChunk(t *testing.T) {
	payload := fixture.TIFF(fixture.Exif{DateTimeOriginal: "2015:03:29 09:10:11"})
	// The IEND chunk is the last 12 bytes.
	plain := fixture.PNG(t, nil)
	iend := len(plain) - 12
	var late []byte
	late = append(late, plain[:iend]...)
	late = append(late, fixture.Chunk("eXIf", append([]byte("Exif\x00\x00"), payload...))...)
	late = append(late, plain[iend:]...)

	testCases := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{name: "after IHDR", data: fixture.PNG(t, &fixture.Exif{DateTimeOriginal: "2015:03:29 09:10:11"})},
		{name: "prefixed after IDAT", data: late},
		{name: "missing", data: fixture.PNG(t, nil), wantErr: true},
		{name: "not png", data: fixture.JPEG(t, nil), wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := findExifChunk(bytes.NewReader(tc.data))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Fatalf("unexpected payload % x", got)
			}
		})
	}
}

func TestReader_MalformedTagIsOmitted(t *testing.T) {
	dir := t.TempDir()
	path := fixture.WriteJPEG(t, dir, "a.jpg", &fixture.Exif{
		DateTimeOriginal:  "0000:00:00 00:00:00",
		DateTimeDigitized: "2015:03:29 09:10:00",
	}, time.Time{})

	rec, err := NewReader(Options{Location: time.UTC}).Read(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := rec.Get(FieldDateTimeOriginal); ok {
		t.Fatalf("expected malformed capture time to be omitted")
	}
	if _, ok := rec.Get(FieldDateTimeDigitized); !ok {
		t.Fatalf("expected digitized time to survive")
	}
}

func TestReader_CorruptFileIsReadFailure(t *testing.T) {
	dir := t.TempDir()
	path := fixture.WriteFile(t, dir, "broken.jpg", []byte("definitely not an image"), time.Time{})

	_, err := NewReader(Options{}).Read(path)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestReader_MissingFileReturnsError(t *testing.T) {
	_, err := NewReader(Options{}).Read(filepath.Join(t.TempDir(), "missing.jpg"))
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestReader_DirectoryReturnsError(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "album.jpg"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := NewReader(Options{}).Read(filepath.Join(dir, "album.jpg"))
	if !errors.Is(err, fs.ErrInvalid) {
		t.Fatalf("expected fs.ErrInvalid, got %v", err)
	}
}

func TestReader_ExtractorFailureOmitsContainer(t *testing.T) {
	testCases := []struct {
		name      string
		extractor Extractor
	}{
		{name: "error", extractor: &fakeExtractor{err: errors.New("boom")}},
		{name: "panic", extractor: &fakeExtractor{panics: true}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			path := fixture.WriteJPEG(t, dir, "IMG_20240102_030405.jpg", nil, time.Time{})

			r := NewReader(Options{
				Location:   time.UTC,
				Extractors: map[Format]Extractor{FormatJPEG: tc.extractor},
				Logger:     zaptest.NewLogger(t),
			})
			rec, err := r.Read(path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, ok := rec.Get(FieldFilename); !ok {
				t.Fatalf("expected filename candidate")
			}
			if _, ok := rec.Get(FieldModified); !ok {
				t.Fatalf("expected modified candidate")
			}
			if _, ok := rec.Get(FieldDateTimeOriginal); ok {
				t.Fatalf("expected no metadata candidates")
			}
		})
	}
}

func TestReader_UsesInjectedExtractor(t *testing.T) {
	dir := t.TempDir()
	path := fixture.WriteJPEG(t, dir, "a.jpg", nil, time.Time{})
	want := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)

	fake := &fakeExtractor{candidates: []Candidate{{Field: FieldDateTimeOriginal, Time: want, Raw: FormatTimestamp(want)}}}
	rec, err := NewReader(Options{Location: time.UTC, Extractors: map[Format]Extractor{FormatJPEG: fake}}).Read(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.calls != 1 {
		t.Fatalf("expected one extractor call, got %d", fake.calls)
	}
	c, ok := rec.Get(FieldDateTimeOriginal)
	if !ok || !c.Time.Equal(want) {
		t.Fatalf("unexpected candidate %+v", c)
	}
}

func TestNewPhotoRecord_FirstOccurrenceWins(t *testing.T) {
	a := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2002, 1, 1, 0, 0, 0, 0, time.UTC)

	rec := NewPhotoRecord("x.jpg", FormatJPEG, []Candidate{
		{Field: FieldDateTime, Time: a},
		{Field: FieldDateTime, Time: b},
	})
	if rec.Len() != 1 {
		t.Fatalf("expected 1 candidate, got %d", rec.Len())
	}
	c, _ := rec.Get(FieldDateTime)
	if !c.Time.Equal(a) {
		t.Fatalf("expected first occurrence, got %v", c.Time)
	}

	got := rec.Candidates()
	got[0].Time = b
	c, _ = rec.Get(FieldDateTime)
	if !c.Time.Equal(a) {
		t.Fatalf("record was mutated through Candidates()")
	}
}

type fakeExtractor struct {
	candidates []Candidate
	err        error
	panics     bool

	calls int
}

func (f *fakeExtractor) Extract(r io.ReadSeeker) ([]Candidate, error) {
	f.calls++
	if f.panics {
		panic("corrupt container")
	}
	_, _ = io.ReadAll(r)
	return f.candidates, f.err
}
