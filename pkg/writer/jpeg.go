package writer

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

const (
	markerSOI = 0xD8
	markerEOI = 0xD9
	markerSOS = 0xDA
	markerCOM = 0xFE
	markerAPP = 0xE0
	markerAP1 = 0xE1
	markerAPF = 0xEF
)

var (
	errNotJPEG   = errors.New("not a jpeg stream")
	errTruncated = errors.New("truncated jpeg segment")

	exifHeader = []byte("Exif\x00\x00")
)

// segment is one marker segment of a JPEG stream. For SOS, end runs to the
// end of the data so the entropy coded scan is included.
type segment struct {
	marker byte
	start  int // offset of the 0xFF byte
	data   int // offset of the first payload byte
	end    int
}

// segments walks a JPEG stream.
func segments(data []byte) ([]segment, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, errNotJPEG
	}

	out := []segment{{marker: markerSOI, start: 0, data: 2, end: 2}}
	pos := 2
	for pos < len(data) {
		if data[pos] != 0xFF {
			return nil, fmt.Errorf("offset %d: %w", pos, errTruncated)
		}
		// Fill bytes.
		for pos < len(data) && data[pos] == 0xFF {
			pos++
		}
		if pos >= len(data) {
			return nil, errTruncated
		}
		marker := data[pos]
		start := pos - 1
		pos++

		if marker == markerEOI || marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			out = append(out, segment{marker: marker, start: start, data: pos, end: pos})
			if marker == markerEOI {
				return out, nil
			}
			continue
		}

		if pos+2 > len(data) {
			return nil, errTruncated
		}
		length := int(binary.BigEndian.Uint16(data[pos:]))
		if length < 2 || pos+length > len(data) {
			return nil, fmt.Errorf("marker %#x at %d: %w", marker, start, errTruncated)
		}

		if marker == markerSOS {
			out = append(out, segment{marker: marker, start: start, data: pos + 2, end: len(data)})
			return out, nil
		}
		out = append(out, segment{marker: marker, start: start, data: pos + 2, end: pos + length})
		pos += length
	}
	return out, nil
}

// PayloadHash returns the sha256 of a JPEG stream with every APPn and COM
// segment left out. Two files with the same payload hash differ only in
// their metadata.
func PayloadHash(data []byte) ([32]byte, error) {
	segs, err := segments(data)
	if err != nil {
		return [32]byte{}, err
	}

	h := sha256.New()
	for _, s := range segs {
		if isMetadataMarker(s.marker) {
			continue
		}
		h.Write(data[s.start:s.end])
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}

func isMetadataMarker(m byte) bool {
	return m == markerCOM || (m >= markerAPP && m <= markerAPF)
}

// tiffStart returns the offset of the TIFF header inside data: 0 for a bare
// TIFF file, the start of the EXIF block for a JPEG.
func tiffStart(data []byte) (int, bool) {
	if len(data) >= 4 {
		h := string(data[:4])
		if h == "II*\x00" || h == "MM\x00*" {
			return 0, true
		}
	}

	segs, err := segments(data)
	if err != nil {
		return 0, false
	}
	for _, s := range segs {
		if s.marker == markerAP1 && bytes.HasPrefix(data[s.data:s.end], exifHeader) {
			return s.data + len(exifHeader), true
		}
	}
	return 0, false
}

// patchCaptureTime returns a copy of data with the capture-time value
// replaced by value. It reports false when the file has no capture-time tag
// of the standard 20 byte ASCII shape, leaving the write to another backend.
func patchCaptureTime(data []byte, value string) ([]byte, bool) {
	if len(value) != timestampLen {
		return nil, false
	}

	base, ok := tiffStart(data)
	if !ok {
		return nil, false
	}

	x, err := exif.Decode(bytes.NewReader(data))
	if x == nil || (err != nil && exif.IsCriticalError(err)) {
		return nil, false
	}
	tag, err := x.Get(exif.DateTimeOriginal)
	if err != nil || tag.Type != tiff.DTAscii || tag.Count != uint32(timestampLen+1) {
		return nil, false
	}

	off := base + int(tag.ValOffset)
	if off < base || off+timestampLen+1 > len(data) {
		return nil, false
	}
	// The offset must point at the value goexif decoded.
	if !bytes.Equal(data[off:off+len(tag.Val)], tag.Val) {
		return nil, false
	}

	out := make([]byte, len(data))
	copy(out, data)
	copy(out[off:off+timestampLen], value)
	out[off+timestampLen] = 0
	return out, true
}
