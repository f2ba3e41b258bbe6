package writer

import (
	"fmt"
	"sync"

	"github.com/barasher/go-exiftool"
)

// Backend writes a capture time into a file in place.
type Backend interface {
	SetCaptureTime(path, value string) error
}

// ExifTool is a Backend driven by a long-lived exiftool process. The process
// is started on first use and shared by all writes until Close.
type ExifTool struct {
	binPath string

	mu sync.Mutex
	et *exiftool.Exiftool
}

// NewExifTool returns an ExifTool backend. An empty binPath looks exiftool
// up on PATH.
func NewExifTool(binPath string) *ExifTool {
	return &ExifTool{binPath: binPath}
}

// SetCaptureTime implements Backend.
func (e *ExifTool) SetCaptureTime(path, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensure(); err != nil {
		return err
	}

	fm := exiftool.FileMetadata{File: path, Fields: map[string]interface{}{}}
	fm.SetString("DateTimeOriginal", value)

	files := []exiftool.FileMetadata{fm}
	e.et.WriteMetadata(files)
	if err := files[0].Err; err != nil {
		return fmt.Errorf("exiftool write %s: %w", path, err)
	}
	return nil
}

// ensure starts the exiftool process. e.mu must be held.
func (e *ExifTool) ensure() error {
	if e.et != nil {
		return nil
	}

	var opts []func(*exiftool.Exiftool) error
	if e.binPath != "" {
		opts = append(opts, exiftool.SetExiftoolBinaryPath(e.binPath))
	}
	et, err := exiftool.NewExiftool(opts...)
	if err != nil {
		return fmt.Errorf("start exiftool: %w", err)
	}
	e.et = et
	return nil
}

// Close stops the exiftool process if it was started.
func (e *ExifTool) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.et == nil {
		return nil
	}
	err := e.et.Close()
	e.et = nil
	return err
}
