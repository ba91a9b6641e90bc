package epf

import (
	"encoding/binary"
	"testing"
)

func buildEPF(pixelW, pixelH uint16, boxes [][4]uint16) []byte {
	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint16(header[0:2], uint16(len(boxes)))
	binary.LittleEndian.PutUint16(header[2:4], pixelW)
	binary.LittleEndian.PutUint16(header[4:6], pixelH)
	tocAddr := uint32(headerSize)
	binary.LittleEndian.PutUint32(header[8:12], tocAddr)

	var pixels []byte
	entries := make([]byte, len(boxes)*tocEntrySize)
	cursor := int(tocAddr) + len(entries)
	for i, b := range boxes {
		top, left, bottom, right := b[0], b[1], b[2], b[3]
		w, h := int(right-left), int(bottom-top)
		base := i * tocEntrySize
		binary.LittleEndian.PutUint16(entries[base:base+2], top)
		binary.LittleEndian.PutUint16(entries[base+2:base+4], left)
		binary.LittleEndian.PutUint16(entries[base+4:base+6], bottom)
		binary.LittleEndian.PutUint16(entries[base+6:base+8], right)
		binary.LittleEndian.PutUint32(entries[base+8:base+12], uint32(cursor))
		frame := make([]byte, w*h)
		for j := range frame {
			frame[j] = byte(i + 1)
		}
		pixels = append(pixels, frame...)
		cursor += w * h
	}

	out := append([]byte{}, header...)
	out = append(out, entries...)
	out = append(out, pixels...)
	return out
}

func TestParseReadsFrames(t *testing.T) {
	data := buildEPF(8, 8, [][4]uint16{{0, 0, 2, 2}, {0, 0, 3, 1}})
	img, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(img.Frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(img.Frames))
	}
	if img.Frames[0].Width != 2 || img.Frames[0].Height != 2 {
		t.Fatalf("frame 0 dims = %dx%d, want 2x2", img.Frames[0].Width, img.Frames[0].Height)
	}
	if len(img.Frames[0].Pixels) != 4 {
		t.Fatalf("frame 0 pixel count = %d, want 4", len(img.Frames[0].Pixels))
	}
}

func TestShouldQueueForAnim(t *testing.T) {
	tests := []struct {
		dat, leaf string
		want      bool
	}{
		{"khanm", "mf01101a.epf", true},
		{"Legend", "emot001.epf", true},
		{"Legend", mf03423Name, false},
		{"Legend", "item001.epf", false},
		{"seo", "whatever.epf", false},
	}
	for _, tt := range tests {
		if got := ShouldQueueForAnim(tt.dat, tt.leaf); got != tt.want {
			t.Errorf("ShouldQueueForAnim(%q, %q) = %v, want %v", tt.dat, tt.leaf, got, tt.want)
		}
	}
}
