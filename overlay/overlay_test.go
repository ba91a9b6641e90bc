package overlay

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/rs/zerolog"

	"github.com/darkages-tools/legacytranscode/sourceio"
)

// buildOverlay assembles a minimal header + raw-deflate script + CRC
// footer, padded out to exactly HeaderWindow bytes so Parse's final drain
// succeeds.
func buildOverlay(t *testing.T, script []byte, eofOffset uint32) []byte {
	t.Helper()
	var buf bytes.Buffer

	buf.WriteByte(0x00)               // marker
	buf.Write(make([]byte, 24))       // skipped
	binary.Write(&buf, binary.LittleEndian, uint32(len(script)))
	buf.Write(make([]byte, 48))       // skipped
	binary.Write(&buf, binary.LittleEndian, eofOffset)
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // dibSize
	buf.Write(make([]byte, 6))        // skipped
	buf.WriteByte(0)                  // initLen

	var zbuf bytes.Buffer
	zw, err := flate.NewWriter(&zbuf, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("flate.NewWriter: %v", err)
	}
	if _, err := zw.Write(script); err != nil {
		t.Fatalf("flate write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("flate close: %v", err)
	}
	buf.Write(zbuf.Bytes())
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // trailing crc (mismatched, logged only)

	consumed := buf.Len()
	if consumed > HeaderWindow {
		t.Fatalf("test header content (%d bytes) exceeds HeaderWindow (%d)", consumed, HeaderWindow)
	}
	buf.Write(make([]byte, HeaderWindow-consumed))
	return buf.Bytes()
}

func TestParseRoundTrip(t *testing.T) {
	script := []byte("a wise installer script body")
	raw := buildOverlay(t, script, 999999)

	r := sourceio.NewReader(bytes.NewReader(raw))
	header, got, err := Parse(r, 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !bytes.Equal(got, script) {
		t.Fatalf("script = %q, want %q", got, script)
	}
	if header.ScriptUncompressedSize != uint32(len(script)) {
		t.Errorf("ScriptUncompressedSize = %d, want %d", header.ScriptUncompressedSize, len(script))
	}
	if header.EOFOffset != 999999 {
		t.Errorf("EOFOffset = %d, want 999999", header.EOFOffset)
	}
	if r.Offset() != HeaderWindow {
		t.Errorf("reader offset after Parse = %d, want %d", r.Offset(), HeaderWindow)
	}
}

func TestParseRejectsNonZeroMarker(t *testing.T) {
	raw := buildOverlay(t, []byte("x"), 0)
	raw[0] = 0x01
	r := sourceio.NewReader(bytes.NewReader(raw))
	if _, _, err := Parse(r, 0, zerolog.Nop()); err == nil {
		t.Fatal("Parse with non-zero marker: want error, got nil")
	}
}
