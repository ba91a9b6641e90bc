package wisescript

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func cstr(s string) []byte { return append([]byte(s), 0) }

// buildPreamble returns the fixed preamble Walk requires before any opcode
// record: 43 skipped bytes, 3 strings, 6 skipped bytes, the 0x01 marker, 7
// skipped bytes, and languageCount strings.
func buildPreamble() []byte {
	var buf bytes.Buffer
	buf.Write(make([]byte, 43))
	for i := 0; i < 3; i++ {
		buf.Write(cstr(""))
	}
	buf.Write(make([]byte, 6))
	buf.WriteByte(0x01)
	buf.Write(make([]byte, 7))
	for i := 0; i < languageCount; i++ {
		buf.Write(cstr(""))
	}
	return buf.Bytes()
}

func u32le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func TestWalkParsesCreateFileAndNoOp(t *testing.T) {
	var script bytes.Buffer
	script.Write(buildPreamble())

	// CreateFile record (opcode 0x00).
	script.WriteByte(0x00)
	script.Write(make([]byte, 2))
	script.Write(u32le(10))
	script.Write(u32le(20))
	script.Write(make([]byte, 28))
	script.Write(u32le(0xDEADBEEF))
	script.Write(cstr(`%MAINDIR%\foo\BAR.DAT`))
	script.Write(cstr(""))
	script.Write(cstr(""))

	// NoOp record (opcode 0x0D takes no operands).
	script.WriteByte(0x0D)

	ops, err := Walk(script.Bytes())
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("got %d ops, want 2", len(ops))
	}

	cf, ok := ops[0].(CreateFile)
	if !ok {
		t.Fatalf("ops[0] = %T, want CreateFile", ops[0])
	}
	want := CreateFile{DeflateStart: 10, DeflateEnd: 20, Crc32: 0xDEADBEEF, Path: "foo/BAR.DAT"}
	if diff := cmp.Diff(want, cf); diff != "" {
		t.Errorf("CreateFile mismatch (-want +got):\n%s", diff)
	}

	if _, ok := ops[1].(NoOp); !ok {
		t.Errorf("ops[1] = %T, want NoOp", ops[1])
	}
}

func TestWalkRejectsUnknownOpcode(t *testing.T) {
	script := append(buildPreamble(), 0xFE)
	_, err := Walk(script)
	if err == nil {
		t.Fatalf("Walk with unknown opcode: want error, got nil")
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct{ in, want string }{
		{`%MAINDIR%\a\b.dat`, "a/b.dat"},
		{`sub\dir\file.mus`, "sub/dir/file.mus"},
		{"already/slash.dat", "already/slash.dat"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.in); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
