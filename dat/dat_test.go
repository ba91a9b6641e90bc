package dat

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildDat constructs a minimal in-memory DAT stream: a TOC of (offset,
// name) pairs followed by the concatenated payload bytes, matching the
// layout Unpack expects.
func buildDat(t *testing.T, names []string, payloads [][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	count := uint32(len(names))
	binary.Write(&buf, binary.LittleEndian, count)

	var offset uint32
	offsets := make([]uint32, len(names))
	for i, p := range payloads {
		offsets[i] = offset
		offset += uint32(len(p))
	}
	for i, name := range names {
		binary.Write(&buf, binary.LittleEndian, offsets[i])
		nameBuf := make([]byte, 13)
		copy(nameBuf, name)
		buf.Write(nameBuf)
	}
	for _, p := range payloads {
		buf.Write(p)
	}
	return buf.Bytes()
}

func TestUnpackYieldsLeavesInOrder(t *testing.T) {
	names := []string{"one.txt", "two.txt", "three.txt"}
	payloads := [][]byte{
		[]byte("hello"),
		[]byte("world!!"),
		[]byte("last"),
	}
	data := buildDat(t, names, payloads)

	var got []Leaf
	err := Unpack("test.dat", bytes.NewReader(data), func(l Leaf) error {
		got = append(got, Leaf{Name: l.Name, Data: append([]byte(nil), l.Data...)})
		return nil
	})
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if len(got) != len(names) {
		t.Fatalf("got %d leaves, want %d", len(got), len(names))
	}
	for i, name := range names {
		if got[i].Name != name {
			t.Errorf("leaf %d name = %q, want %q", i, got[i].Name, name)
		}
	}
	if !bytes.Equal(got[0].Data, payloads[0]) {
		t.Errorf("leaf 0 data = %q, want %q", got[0].Data, payloads[0])
	}
	if !bytes.Equal(got[2].Data, payloads[2]) {
		t.Errorf("leaf 2 (final, remainder-drained) data = %q, want %q", got[2].Data, payloads[2])
	}
}

func TestUnpackSkipsEmptyNames(t *testing.T) {
	names := []string{"", "kept.txt"}
	payloads := [][]byte{[]byte("ignored"), []byte("keep me")}
	data := buildDat(t, names, payloads)

	var got []Leaf
	err := Unpack("test.dat", bytes.NewReader(data), func(l Leaf) error {
		got = append(got, l)
		return nil
	})
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if len(got) != 1 || got[0].Name != "kept.txt" {
		t.Fatalf("got %+v, want a single kept.txt leaf", got)
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		raw  []byte
		want string
	}{
		{[]byte("FOO.TXT\x00\x00\x00\x00\x00\x00"), "foo.txt"},
		{[]byte("bar   \x00\x00\x00\x00\x00\x00\x00"), "bar"},
	}
	for _, tt := range tests {
		if got := cleanName(tt.raw); got != tt.want {
			t.Errorf("cleanName(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
