// Package fixture builds small but genuine image files for tests.
package fixture

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

// Exif lists the date tags to embed. Empty values are left out.
type Exif struct {
	DateTime          string
	DateTimeOriginal  string
	DateTimeDigitized string
}

const (
	tagDateTime          = 0x0132
	tagExifIFDPointer    = 0x8769
	tagDateTimeOriginal  = 0x9003
	tagDateTimeDigitized = 0x9004

	typeASCII = 2
	typeLong  = 4
)

// JPEG returns an 8x8 baseline JPEG. When x is non-nil an EXIF APP1
// segment carrying its tags is inserted right after SOI.
func JPEG(tb testing.TB, x *Exif) []byte {
	tb.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for xx := 0; xx < 8; xx++ {
			img.Set(xx, y, color.RGBA{R: uint8(xx * 32), G: uint8(y * 32), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		tb.Fatalf("encode jpeg: %v", err)
	}
	data := buf.Bytes()
	if x == nil {
		return data
	}

	tiff := TIFF(*x)
	app1 := make([]byte, 0, 4+6+len(tiff))
	app1 = append(app1, 0xFF, 0xE1)
	app1 = binary.BigEndian.AppendUint16(app1, uint16(2+6+len(tiff)))
	app1 = append(app1, "Exif\x00\x00"...)
	app1 = append(app1, tiff...)

	out := make([]byte, 0, len(data)+len(app1))
	out = append(out, data[:2]...)
	out = append(out, app1...)
	out = append(out, data[2:]...)
	return out
}

// WriteJPEG writes JPEG(x) to dir/name, creating parent directories, and
// sets its modification time when mtime is non-zero.
func WriteJPEG(tb testing.TB, dir, name string, x *Exif, mtime time.Time) string {
	tb.Helper()
	return WriteFile(tb, dir, name, JPEG(tb, x), mtime)
}

// WriteFile writes data to dir/name and optionally sets its mtime.
func WriteFile(tb testing.TB, dir, name string, data []byte, mtime time.Time) string {
	tb.Helper()

	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("write file: %v", err)
	}
	if !mtime.IsZero() {
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			tb.Fatalf("chtimes: %v", err)
		}
	}
	return path
}

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	value []byte // ASCII payload, stored out of line when longer than 4 bytes
	long  uint32
}

// TIFF returns a little-endian TIFF structure with IFD0 and, when needed,
// an Exif sub-IFD.
func TIFF(x Exif) []byte {
	ascii := func(tag uint16, s string) entry {
		v := append([]byte(s), 0)
		return entry{tag: tag, typ: typeASCII, count: uint32(len(v)), value: v}
	}

	var ifd0, sub []entry
	if x.DateTime != "" {
		ifd0 = append(ifd0, ascii(tagDateTime, x.DateTime))
	}
	if x.DateTimeOriginal != "" {
		sub = append(sub, ascii(tagDateTimeOriginal, x.DateTimeOriginal))
	}
	if x.DateTimeDigitized != "" {
		sub = append(sub, ascii(tagDateTimeDigitized, x.DateTimeDigitized))
	}
	if len(sub) > 0 {
		ifd0 = append(ifd0, entry{tag: tagExifIFDPointer, typ: typeLong, count: 1})
	}
	sort.Slice(ifd0, func(i, j int) bool { return ifd0[i].tag < ifd0[j].tag })

	ifdSize := func(n int) uint32 { return uint32(2 + 12*n + 4) }
	ifd0Off := uint32(8)
	subOff := ifd0Off + ifdSize(len(ifd0))
	dataOff := subOff
	if len(sub) > 0 {
		dataOff += ifdSize(len(sub))
	}
	for i := range ifd0 {
		if ifd0[i].tag == tagExifIFDPointer {
			ifd0[i].long = subOff
		}
	}

	var data []byte
	place := func(es []entry) {
		for i := range es {
			if es[i].typ != typeASCII || len(es[i].value) <= 4 {
				continue
			}
			es[i].long = dataOff + uint32(len(data))
			data = append(data, es[i].value...)
			if len(data)%2 == 1 {
				data = append(data, 0)
			}
		}
	}
	place(ifd0)
	place(sub)

	le := binary.LittleEndian
	out := []byte{'I', 'I', 0x2A, 0x00}
	out = le.AppendUint32(out, ifd0Off)
	writeIFD := func(es []entry) {
		out = le.AppendUint16(out, uint16(len(es)))
		for _, e := range es {
			out = le.AppendUint16(out, e.tag)
			out = le.AppendUint16(out, e.typ)
			out = le.AppendUint32(out, e.count)
			if e.typ == typeASCII && len(e.value) <= 4 {
				var inline [4]byte
				copy(inline[:], e.value)
				out = append(out, inline[:]...)
				continue
			}
			out = le.AppendUint32(out, e.long)
		}
		out = le.AppendUint32(out, 0)
	}
	writeIFD(ifd0)
	if len(sub) > 0 {
		writeIFD(sub)
	}
	return append(out, data...)
}
