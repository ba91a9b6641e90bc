package efa

import (
	"bytes"
	"testing"

	"github.com/darkages-tools/legacytranscode/internal/codec"
	"github.com/darkages-tools/legacytranscode/legacyerr"
)

func TestDecodeWrapsPayloadVerbatim(t *testing.T) {
	raw := []byte{9, 8, 7}
	artifacts, err := Decode("roh", "fx01.efa", raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var img Image
	if err := codec.Unmarshal(artifacts[0].Bytes, &img); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !bytes.Equal(img.Raw, raw) {
		t.Fatalf("Raw = %v, want %v", img.Raw, raw)
	}
}

func TestDecodeEmptyPayloadIsNonFatal(t *testing.T) {
	_, err := Decode("roh", "fx01.efa", nil)
	if err == nil {
		t.Fatal("Decode(nil): want error, got nil")
	}
	de, ok := err.(*legacyerr.DecoderError)
	if !ok {
		t.Fatalf("err = %T, want *legacyerr.DecoderError", err)
	}
	if de.Fatal {
		t.Error("empty efa payload should be reported non-fatal")
	}
}
