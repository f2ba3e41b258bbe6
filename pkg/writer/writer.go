// Package writer sets the capture-time field of a photo.
//
// A write never modifies the original in place. The new content is staged in
// a temp file in the same directory, verified by reading it back, and only
// then renamed over the original. A failed write leaves the original
// byte-for-byte unchanged.
package writer

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/djherbis/times"
	"go.uber.org/zap"

	"github.com/quidome/photo-date-tools/pkg/metadata"
)

var (
	// ErrEmptyTarget is returned for an empty target timestamp.
	ErrEmptyTarget = errors.New("empty target timestamp")
	// ErrInvalidTarget is returned for a target that is not "YYYY:MM:DD HH:MM:SS".
	ErrInvalidTarget = errors.New("invalid target timestamp")
	// ErrNoBackend is returned when the native backend can neither patch nor
	// insert the tag and no fallback backend is configured.
	ErrNoBackend = errors.New("no backend can write this file")
)

var timestampLen = len(metadata.TimestampLayout)

// ValidationError reports a target rejected before the file was touched.
type ValidationError struct {
	Target string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("target %q: %v", e.Target, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Status is the result of a successful Write.
type Status int

const (
	// StatusWritten means the capture time was changed.
	StatusWritten Status = iota
	// StatusUnchanged means the file already carried the target value.
	StatusUnchanged
)

func (s Status) String() string {
	switch s {
	case StatusWritten:
		return "written"
	case StatusUnchanged:
		return "unchanged"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// PhotoReader reads a photo's date candidates.
type PhotoReader interface {
	Read(path string) (metadata.PhotoRecord, error)
}

// Options configures a Writer.
type Options struct {
	// Reader validates files before writing and verifies staged copies.
	Reader PhotoReader

	// Fallback writes files the native backend cannot handle. May be nil.
	Fallback Backend

	// PreserveModTime keeps the original modification time.
	PreserveModTime bool

	// DryRun validates and reports without touching any file.
	DryRun bool

	Logger *zap.Logger
}

// Writer sets capture times.
type Writer struct {
	opts Options
	log  *zap.Logger
}

// New returns a Writer. A nil Reader means a metadata.Reader in time.Local.
func New(opts Options) *Writer {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Reader == nil {
		opts.Reader = metadata.NewReader(metadata.Options{Logger: log})
	}
	return &Writer{opts: opts, log: log}
}

// Write sets the capture-time field of the photo at path to target, given in
// canonical "YYYY:MM:DD HH:MM:SS" form.
func (w *Writer) Write(path, target string) (Status, error) {
	value, err := validateTarget(target)
	if err != nil {
		return 0, err
	}

	before, err := w.opts.Reader.Read(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	if c, ok := before.Get(metadata.FieldDateTimeOriginal); ok && c.Raw == value {
		return StatusUnchanged, nil
	}

	if w.opts.DryRun {
		w.log.Info("dry run, not writing", zap.String("path", path), zap.String("target", value))
		return StatusWritten, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	original, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	backend := "native"
	data, patched := patchCaptureTime(original, value)
	if !patched {
		data, patched = insertCaptureTime(original, value)
	}
	if !patched {
		if w.opts.Fallback == nil {
			return 0, fmt.Errorf("write %s (%s): %w", path, before.Format, ErrNoBackend)
		}
		backend = "exiftool"
		data = original
	}

	tmp, err := stageFile(path, data, info.Mode())
	if err != nil {
		return 0, fmt.Errorf("stage %s: %w", path, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp)
		}
	}()

	if !patched {
		if err := w.opts.Fallback.SetCaptureTime(tmp, value); err != nil {
			return 0, fmt.Errorf("write %s: %w", path, err)
		}
		if err := syncFile(tmp); err != nil {
			return 0, fmt.Errorf("write %s: %w", path, err)
		}
	}

	if err := w.verify(tmp, value, original, before.Format); err != nil {
		return 0, fmt.Errorf("verify %s: %w", path, err)
	}

	if w.opts.PreserveModTime {
		atime := info.ModTime()
		if ts := times.Get(info); ts != nil {
			atime = ts.AccessTime()
		}
		if err := os.Chtimes(tmp, atime, info.ModTime()); err != nil {
			return 0, fmt.Errorf("preserve mtime %s: %w", path, err)
		}
	}

	if err := os.Rename(tmp, path); err != nil {
		return 0, fmt.Errorf("replace %s: %w", path, err)
	}
	committed = true

	w.log.Debug("capture time written",
		zap.String("path", path),
		zap.String("backend", backend),
		zap.String("target", value))
	return StatusWritten, nil
}

// verify checks that the staged file reads back with the target value and,
// for JPEG, that nothing outside the metadata segments changed.
func (w *Writer) verify(tmp, value string, original []byte, format metadata.Format) error {
	after, err := w.opts.Reader.Read(tmp)
	if err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	c, ok := after.Get(metadata.FieldDateTimeOriginal)
	if !ok {
		return errors.New("capture time missing after write")
	}
	if c.Raw != value {
		return fmt.Errorf("capture time reads back as %q", c.Raw)
	}

	if format != metadata.FormatJPEG {
		return nil
	}
	staged, err := os.ReadFile(tmp)
	if err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	want, err := PayloadHash(original)
	if err != nil {
		return fmt.Errorf("hash original: %w", err)
	}
	got, err := PayloadHash(staged)
	if err != nil {
		return fmt.Errorf("hash staged copy: %w", err)
	}
	if got != want {
		return errors.New("image payload changed")
	}
	return nil
}

func validateTarget(target string) (string, error) {
	s := strings.TrimSpace(target)
	if s == "" {
		return "", &ValidationError{Target: target, Err: ErrEmptyTarget}
	}
	t, err := metadata.ParseTimestamp(s)
	if err != nil {
		return "", &ValidationError{Target: target, Err: fmt.Errorf("%w: %v", ErrInvalidTarget, err)}
	}
	return metadata.FormatTimestamp(t), nil
}
