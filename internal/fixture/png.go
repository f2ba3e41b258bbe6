package fixture

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"
)

// ihdrEnd is the offset right after the IHDR chunk: signature, length,
// type, 13 data bytes and the CRC.
const ihdrEnd = 8 + 4 + 4 + 13 + 4

// PNG returns an 8x8 PNG. When x is non-nil an eXIf chunk carrying its tags
// is inserted right after IHDR.
func PNG(tb testing.TB, x *Exif) []byte {
	tb.Helper()

	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 4)
	}
	img.Set(0, 0, color.Gray{Y: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		tb.Fatalf("encode png: %v", err)
	}
	data := buf.Bytes()
	if x == nil {
		return data
	}

	out := make([]byte, 0, len(data)+64)
	out = append(out, data[:ihdrEnd]...)
	out = append(out, Chunk("eXIf", TIFF(*x))...)
	out = append(out, data[ihdrEnd:]...)
	return out
}

// WritePNG writes PNG(x) to dir/name and sets its mtime when non-zero.
func WritePNG(tb testing.TB, dir, name string, x *Exif, mtime time.Time) string {
	tb.Helper()
	return WriteFile(tb, dir, name, PNG(tb, x), mtime)
}

// Chunk encodes one PNG chunk with its CRC.
func Chunk(typ string, data []byte) []byte {
	out := binary.BigEndian.AppendUint32(nil, uint32(len(data)))
	out = append(out, typ...)
	out = append(out, data...)
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	return binary.BigEndian.AppendUint32(out, crc.Sum32())
}

// HEIFHeader returns the ftyp box of a HEIC file with nothing after it. It
// is detected as HEIF but holds no metadata.
func HEIFHeader() []byte {
	body := []byte("heic\x00\x00\x00\x00mif1heic")
	out := binary.BigEndian.AppendUint32(nil, uint32(8+len(body)))
	out = append(out, "ftyp"...)
	return append(out, body...)
}
