package metadata

import (
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// Format identifies an image container.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatTIFF    Format = "tiff"
	FormatPNG     Format = "png"
	FormatHEIF    Format = "heif"
	FormatUnknown Format = "unknown"
)

// ErrUnsupportedFormat is returned when a file is not a recognized image.
var ErrUnsupportedFormat = errors.New("unsupported image format")

var mimeFormats = []struct {
	mime   string
	format Format
}{
	{"image/jpeg", FormatJPEG},
	{"image/tiff", FormatTIFF},
	{"image/png", FormatPNG},
	{"image/heic", FormatHEIF},
	{"image/heic-sequence", FormatHEIF},
	{"image/heif", FormatHEIF},
	{"image/heif-sequence", FormatHEIF},
}

// DetectFormat sniffs the container format from the leading bytes of r.
func DetectFormat(r io.Reader) (Format, error) {
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return FormatUnknown, fmt.Errorf("detect format: %w", err)
	}
	for _, mf := range mimeFormats {
		if mt.Is(mf.mime) {
			return mf.format, nil
		}
	}
	return FormatUnknown, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mt.String())
}
