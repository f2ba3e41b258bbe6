package metadata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	pngSignature = []byte("\x89PNG\r\n\x1a\n")
	exifPrefix   = []byte("Exif\x00\x00")

	errNoExifChunk = errors.New("no eXIf chunk")
)

// maxExifChunk bounds the eXIf payload; TIFF offsets are 32 bit but real
// blocks stay far below this.
const maxExifChunk = 16 << 20

// pngExtractor reads the eXIf chunk of a PNG file and hands its TIFF payload
// to the EXIF decoder.
type pngExtractor struct {
	exif exifExtractor
}

func (e pngExtractor) Extract(r io.ReadSeeker) ([]Candidate, error) {
	payload, err := findExifChunk(r)
	if err != nil {
		return nil, err
	}
	return e.exif.Extract(bytes.NewReader(payload))
}

// findExifChunk walks the chunk list until eXIf or IEND. Some writers put
// eXIf after the image data, so the walk does not stop at IDAT.
func findExifChunk(r io.Reader) ([]byte, error) {
	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(r, sig); err != nil || !bytes.Equal(sig, pngSignature) {
		return nil, errors.New("not a png stream")
	}

	var hdr [8]byte
	for {
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errNoExifChunk
			}
			return nil, fmt.Errorf("read chunk header: %w", err)
		}
		length := binary.BigEndian.Uint32(hdr[:4])
		typ := string(hdr[4:])

		switch typ {
		case "eXIf":
			if length > maxExifChunk {
				return nil, fmt.Errorf("eXIf chunk of %d bytes", length)
			}
			data := make([]byte, length)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("read eXIf chunk: %w", err)
			}
			return bytes.TrimPrefix(data, exifPrefix), nil
		case "IEND":
			return nil, errNoExifChunk
		}

		// Skip the data and the CRC.
		if _, err := io.CopyN(io.Discard, r, int64(length)+4); err != nil {
			return nil, fmt.Errorf("skip %s chunk: %w", typ, err)
		}
	}
}
