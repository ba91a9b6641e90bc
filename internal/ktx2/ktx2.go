// Package ktx2 writes the narrow subset of the KTX2 container this
// transcoder needs: a fixed {width, height, format} header followed by raw
// pixel bytes. It is not a general KTX2 encoder/decoder — the real KTX2
// header builder is an external collaborator; this is a compatible stand-in
// so the format decoders have
// something concrete to emit and tests have something concrete to assert on.
package ktx2

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Format identifies the pixel layout of the raster that follows the header.
type Format uint32

const (
	FormatR8Unorm       Format = 1
	FormatR8G8B8A8Unorm Format = 2
)

// Magic begins every payload this package writes, distinguishing it from a
// genuine KTX2 file so downstream consumers never confuse the two.
var Magic = [8]byte{'L', 'K', 'T', 'X', '2', 0, 0, 0}

// Header is the fixed-size record preceding the raw pixel bytes.
type Header struct {
	Width  uint32
	Height uint32
	Format Format
}

// Encode writes the header followed by pix and returns the full payload.
// len(pix) must equal Width*Height*bytesPerPixel(Format).
func Encode(h Header, pix []byte) ([]byte, error) {
	want := int(h.Width) * int(h.Height) * BytesPerPixel(h.Format)
	if len(pix) != want {
		return nil, fmt.Errorf("ktx2: pixel buffer is %d bytes, want %d for %dx%d format %d", len(pix), want, h.Width, h.Height, h.Format)
	}
	buf := new(bytes.Buffer)
	buf.Write(Magic[:])
	binary.Write(buf, binary.LittleEndian, h.Width)
	binary.Write(buf, binary.LittleEndian, h.Height)
	binary.Write(buf, binary.LittleEndian, uint32(h.Format))
	buf.Write(pix)
	return buf.Bytes(), nil
}

// BytesPerPixel reports the pixel stride for a Format.
func BytesPerPixel(f Format) int {
	switch f {
	case FormatR8Unorm:
		return 1
	case FormatR8G8B8A8Unorm:
		return 4
	default:
		return 0
	}
}
