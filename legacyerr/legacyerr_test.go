package legacyerr

import (
	"errors"
	"testing"
)

func TestCrc32MismatchError(t *testing.T) {
	err := &Crc32Mismatch{Path: "foo.dat", Expected: 0xAA, Actual: 0xBB}
	if got := err.Error(); got == "" {
		t.Fatal("Error() is empty")
	}
}

func TestDecoderErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &DecoderError{Kind: "hpf", Leaf: "a.hpf", Err: inner, Fatal: true}
	if !errors.Is(err, inner) {
		t.Fatal("errors.Is should find the wrapped inner error")
	}
}

func TestSourceUnavailableUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &SourceUnavailable{Path: "http://example", Err: inner}
	if errors.Unwrap(err) != inner {
		t.Fatal("Unwrap should return the inner error")
	}
}
