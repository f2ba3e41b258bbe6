package writer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sort"

	"github.com/rwcarlsen/goexif/tiff"
)

const (
	tagExifIFDPointer   = 0x8769
	tagDateTimeOriginal = 0x9003

	// maxSegment is the largest payload a JPEG marker segment can carry.
	maxSegment = math.MaxUint16 - 2
)

var errBadTIFF = errors.New("malformed tiff structure")

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// insertCaptureTime returns a copy of data with a capture-time tag added,
// for files where patchCaptureTime found nothing to overwrite. A JPEG
// without EXIF gets a new APP1 segment. Existing TIFF structures are only
// appended to, so every offset they hold stays valid.
func insertCaptureTime(data []byte, value string) ([]byte, bool) {
	if len(value) != timestampLen {
		return nil, false
	}
	if orderOf(data) != nil {
		out, err := addCaptureTime(data, value)
		return out, err == nil
	}

	segs, err := segments(data)
	if err != nil {
		return nil, false
	}
	for _, s := range segs {
		if s.marker != markerAP1 || !bytes.HasPrefix(data[s.data:s.end], exifHeader) {
			continue
		}
		t, err := addCaptureTime(data[s.data+len(exifHeader):s.end], value)
		if err != nil {
			return nil, false
		}
		return spliceAPP1(data, s.start, s.end, t)
	}

	// No EXIF yet. Keep a leading JFIF segment first.
	at := 2
	if len(segs) > 1 && segs[1].marker == markerAPP {
		at = segs[1].end
	}
	return spliceAPP1(data, at, at, newTIFF(value))
}

// spliceAPP1 replaces data[from:to] with an EXIF APP1 segment holding t.
func spliceAPP1(data []byte, from, to int, t []byte) ([]byte, bool) {
	size := len(exifHeader) + len(t)
	if size > maxSegment {
		return nil, false
	}
	out := make([]byte, 0, len(data)-(to-from)+4+size)
	out = append(out, data[:from]...)
	out = append(out, 0xFF, markerAP1)
	out = binary.BigEndian.AppendUint16(out, uint16(2+size))
	out = append(out, exifHeader...)
	out = append(out, t...)
	out = append(out, data[to:]...)
	return out, true
}

func orderOf(t []byte) byteOrder {
	if len(t) < 8 {
		return nil
	}
	switch string(t[:4]) {
	case "II*\x00":
		return binary.LittleEndian
	case "MM\x00*":
		return binary.BigEndian
	}
	return nil
}

// newTIFF returns a little-endian TIFF structure holding only an Exif
// sub-IFD with the capture time.
func newTIFF(value string) []byte {
	le := binary.LittleEndian
	out := []byte("II*\x00")
	out = le.AppendUint32(out, 8)

	// IFD0: the sub-IFD pointer.
	subOff := uint32(8 + 2 + 12 + 4)
	out = le.AppendUint16(out, 1)
	out = appendEntry(out, le, &tiff.Tag{Id: tagExifIFDPointer, Type: tiff.DTLong, Count: 1, Val: le.AppendUint32(nil, subOff)})
	out = le.AppendUint32(out, 0)

	// Exif sub-IFD with the value right behind it.
	valOff := subOff + 2 + 12 + 4
	out = le.AppendUint16(out, 1)
	out = appendEntry(out, le, asciiTag(tagDateTimeOriginal, value, valOff))
	out = le.AppendUint32(out, 0)
	out = append(out, value...)
	return append(out, 0)
}

// addCaptureTime appends a new Exif sub-IFD carrying the capture time to t,
// copying the existing sub-IFD entries. IFD0 is repointed in place when it
// already links a sub-IFD, and rewritten at the end otherwise.
func addCaptureTime(t []byte, value string) ([]byte, error) {
	order := orderOf(t)
	if order == nil {
		return nil, errBadTIFF
	}
	ifd0Off := order.Uint32(t[4:8])
	ifd0, next0, err := readDir(t, order, ifd0Off)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(t), len(t)+256)
	copy(out, t)
	out = pad(out)

	pointer := -1
	var sub []*tiff.Tag
	var subNext int32
	for i, tag := range ifd0.Tags {
		if tag.Id != tagExifIFDPointer {
			continue
		}
		if tag.Type != tiff.DTLong || len(tag.Val) != 4 {
			return nil, errBadTIFF
		}
		dir, next, err := readDir(t, order, order.Uint32(tag.Val))
		if err != nil {
			return nil, err
		}
		for _, st := range dir.Tags {
			if st.Id != tagDateTimeOriginal {
				sub = append(sub, st)
			}
		}
		pointer, subNext = i, next
		break
	}

	valOff := len(out)
	out = pad(append(append(out, value...), 0))
	sub = append(sub, asciiTag(tagDateTimeOriginal, value, uint32(valOff)))

	subOff := len(out)
	out = appendDir(out, order, sub, subNext)

	if pointer >= 0 {
		at := int(ifd0Off) + 2 + 12*pointer + 8
		order.PutUint32(out[at:], uint32(subOff))
	} else {
		tags := append([]*tiff.Tag{}, ifd0.Tags...)
		tags = append(tags, &tiff.Tag{Id: tagExifIFDPointer, Type: tiff.DTLong, Count: 1, Val: order.AppendUint32(nil, uint32(subOff))})
		newIFD0 := len(out)
		out = appendDir(out, order, tags, next0)
		order.PutUint32(out[4:8], uint32(newIFD0))
	}

	if uint64(len(out)) > math.MaxUint32 {
		return nil, errBadTIFF
	}
	return out, nil
}

func readDir(t []byte, order binary.ByteOrder, off uint32) (*tiff.Dir, int32, error) {
	if off < 8 || int64(off)+2 > int64(len(t)) {
		return nil, 0, errBadTIFF
	}
	r := bytes.NewReader(t)
	if _, err := r.Seek(int64(off), io.SeekStart); err != nil {
		return nil, 0, err
	}
	return tiff.DecodeDir(r, order)
}

func asciiTag(id uint16, value string, off uint32) *tiff.Tag {
	v := append([]byte(value), 0)
	return &tiff.Tag{Id: id, Type: tiff.DTAscii, Count: uint32(len(v)), Val: v, ValOffset: off}
}

// appendDir writes an IFD with its entries sorted by tag id.
func appendDir(out []byte, order byteOrder, tags []*tiff.Tag, next int32) []byte {
	sort.SliceStable(tags, func(i, j int) bool { return tags[i].Id < tags[j].Id })
	out = order.AppendUint16(out, uint16(len(tags)))
	for _, tag := range tags {
		out = appendEntry(out, order, tag)
	}
	return pad(order.AppendUint32(out, uint32(next)))
}

// appendEntry writes one 12 byte IFD entry. Values of up to four bytes are
// stored inline, longer ones by offset.
func appendEntry(out []byte, order byteOrder, tag *tiff.Tag) []byte {
	out = order.AppendUint16(out, tag.Id)
	out = order.AppendUint16(out, uint16(tag.Type))
	out = order.AppendUint32(out, tag.Count)
	if len(tag.Val) > 4 {
		return order.AppendUint32(out, tag.ValOffset)
	}
	var inline [4]byte
	copy(inline[:], tag.Val)
	return append(out, inline[:]...)
}

// pad keeps IFDs and values on word boundaries.
func pad(b []byte) []byte {
	if len(b)%2 == 1 {
		return append(b, 0)
	}
	return b
}
