package mpf

import (
	"bytes"
	"testing"

	"github.com/darkages-tools/legacytranscode/internal/codec"
)

func TestDecodeWrapsPayloadVerbatim(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5}
	artifacts, err := Decode("hades", "mf01101.mpf", raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(artifacts) != 1 {
		t.Fatalf("got %d artifacts, want 1", len(artifacts))
	}
	if want := "hades/mf01101.mpf.mpf.bin"; artifacts[0].LogicalPath != want {
		t.Fatalf("LogicalPath = %q, want %q", artifacts[0].LogicalPath, want)
	}

	var img Image
	if err := codec.Unmarshal(artifacts[0].Bytes, &img); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !bytes.Equal(img.Raw, raw) {
		t.Fatalf("Raw = %v, want %v", img.Raw, raw)
	}
}
