package metadata

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/djherbis/times"
	"go.uber.org/zap"
)

// Extractor reads the embedded date candidates of one container format.
//
// Implementations return only candidates whose values parsed; an error means
// the container could not be decoded and contributes nothing to the record.
type Extractor interface {
	Extract(r io.ReadSeeker) ([]Candidate, error)
}

// Options configures a Reader.
type Options struct {
	// Location is the zone whose wall clock file system times are read in.
	// Embedded timestamps carry no zone and are never converted.
	// If nil, time.Local is used.
	Location *time.Location

	// Extractors overrides the default adapter for a format.
	Extractors map[Format]Extractor

	// Logger receives per-container decode failures at debug level.
	// If nil, logging is disabled.
	Logger *zap.Logger
}

// Reader extracts PhotoRecords from files on disk. It never writes.
type Reader struct {
	loc        *time.Location
	extractors map[Format]Extractor
	log        *zap.Logger
}

// NewReader returns a Reader with the default adapters: goexif for JPEG and
// TIFF, the eXIf chunk for PNG and imagemeta for HEIF.
func NewReader(opts Options) *Reader {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	ex := newExifExtractor()
	extractors := map[Format]Extractor{
		FormatJPEG: ex,
		FormatTIFF: ex,
		FormatHEIF: imagemetaExtractor{},
		FormatPNG:  pngExtractor{exif: ex},
	}
	for f, e := range opts.Extractors {
		extractors[f] = e
	}

	return &Reader{loc: loc, extractors: extractors, log: log}
}

// Location returns the zone file system times are read in.
func (r *Reader) Location() *time.Location {
	return r.loc
}

// Read opens path and returns its PhotoRecord.
//
// A missing file, a directory, or a file that is not a recognized image is a
// read failure. Metadata that cannot be decoded is omitted from the record.
func (r *Reader) Read(path string) (PhotoRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return PhotoRecord{}, err
	}
	if info.IsDir() {
		return PhotoRecord{}, &fs.PathError{Op: "read", Path: path, Err: fs.ErrInvalid}
	}

	f, err := os.Open(path)
	if err != nil {
		return PhotoRecord{}, err
	}
	defer f.Close()

	format, err := DetectFormat(f)
	if err != nil {
		return PhotoRecord{}, fmt.Errorf("read %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return PhotoRecord{}, fmt.Errorf("read %s: %w", path, err)
	}

	var candidates []Candidate
	if ex, ok := r.extractors[format]; ok {
		found, exErr := extractSafe(ex, f)
		if exErr != nil {
			r.log.Debug("metadata omitted",
				zap.String("path", path),
				zap.String("format", string(format)),
				zap.Error(exErr))
		}
		candidates = append(candidates, found...)
	}

	if c, ok := ParseFilename(filepath.Base(path)); ok {
		candidates = append(candidates, c)
	}

	mtime := WallClock(info.ModTime(), r.loc).Truncate(time.Second)
	candidates = append(candidates, Candidate{
		Field: FieldModified,
		Time:  mtime,
		Raw:   FormatTimestamp(mtime),
	})

	if created, ok := createdTime(path); ok {
		created = WallClock(created, r.loc).Truncate(time.Second)
		candidates = append(candidates, Candidate{
			Field: FieldCreated,
			Time:  created,
			Raw:   FormatTimestamp(created),
		})
	}

	return NewPhotoRecord(path, format, candidates), nil
}

// extractSafe runs an extractor, turning decoder panics on malformed
// containers into errors.
func extractSafe(ex Extractor, rs io.ReadSeeker) (candidates []Candidate, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			candidates = nil
			err = fmt.Errorf("panic while decoding: %v", rec)
		}
	}()
	return ex.Extract(rs)
}

// createdTime returns the birth time of a file, or its change time on file
// systems that do not record one.
func createdTime(path string) (time.Time, bool) {
	ts, err := times.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	if ts.HasBirthTime() {
		return ts.BirthTime(), true
	}
	if ts.HasChangeTime() {
		return ts.ChangeTime(), true
	}
	return time.Time{}, false
}
