package ktx2

import (
	"bytes"
	"testing"
)

func TestEncodeHeaderAndMagic(t *testing.T) {
	pix := make([]byte, 4*4)
	out, err := Encode(Header{Width: 4, Height: 4, Format: FormatR8Unorm}, pix)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(out[:8], Magic[:]) {
		t.Fatalf("magic = %x, want %x", out[:8], Magic)
	}
	if len(out) <= len(pix) {
		t.Fatalf("encoded length %d should exceed pixel length %d", len(out), len(pix))
	}
}

func TestEncodeRejectsSizeMismatch(t *testing.T) {
	_, err := Encode(Header{Width: 4, Height: 4, Format: FormatR8Unorm}, make([]byte, 3))
	if err == nil {
		t.Fatalf("Encode with mismatched pixel length: want error, got nil")
	}
}

func TestBytesPerPixel(t *testing.T) {
	if got := BytesPerPixel(FormatR8Unorm); got != 1 {
		t.Fatalf("BytesPerPixel(R8Unorm) = %d, want 1", got)
	}
	if got := BytesPerPixel(FormatR8G8B8A8Unorm); got != 4 {
		t.Fatalf("BytesPerPixel(R8G8B8A8Unorm) = %d, want 4", got)
	}
}
