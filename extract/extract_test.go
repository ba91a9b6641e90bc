package extract

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"testing"

	"github.com/klauspost/compress/flate"

	"github.com/darkages-tools/legacytranscode/legacyerr"
	"github.com/darkages-tools/legacytranscode/sourceio"
	"github.com/darkages-tools/legacytranscode/wisescript"
)

func deflateOf(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("flate.NewWriter: %v", err)
	}
	if _, err := zw.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

func TestOpenInflatesAndVerifiesCRC(t *testing.T) {
	payload := []byte("this is the leaf content carried inside the deflate chunk")
	compressed := deflateOf(t, payload)
	crc := crc32.ChecksumIEEE(payload)

	const pad = 16
	var stream bytes.Buffer
	stream.Write(make([]byte, pad))
	stream.Write(compressed)
	binary.Write(&stream, binary.LittleEndian, crc)

	rec := wisescript.CreateFile{
		DeflateStart: 0,
		DeflateEnd:   uint32(len(compressed) + 4),
		Crc32:        crc,
		Path:         "x.dat",
	}

	r := sourceio.NewReader(bytes.NewReader(stream.Bytes()))
	body, err := Open(r, rec, pad)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("inflated = %q, want %q", got, payload)
	}
	if err := body.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestCloseDetectsCrcMismatch(t *testing.T) {
	payload := []byte("payload")
	compressed := deflateOf(t, payload)
	wrongCrc := crc32.ChecksumIEEE(payload) ^ 0xFFFFFFFF

	var stream bytes.Buffer
	stream.Write(compressed)
	binary.Write(&stream, binary.LittleEndian, wrongCrc)

	rec := wisescript.CreateFile{DeflateStart: 0, DeflateEnd: uint32(len(compressed) + 4), Crc32: wrongCrc, Path: "y.dat"}
	r := sourceio.NewReader(bytes.NewReader(stream.Bytes()))
	body, err := Open(r, rec, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	io.ReadAll(body)

	// Declared CRC (in the record) matches the corrupted trailing CRC we
	// wrote, but neither matches the CRC of the actually-inflated payload.
	err = body.Close()
	if err == nil {
		t.Fatal("Close: want crc mismatch error, got nil")
	}
	if _, ok := err.(*legacyerr.Crc32Mismatch); !ok {
		t.Fatalf("err = %T, want *legacyerr.Crc32Mismatch", err)
	}
}

func TestOpenRejectsOutOfOrderRecord(t *testing.T) {
	r := sourceio.NewReader(bytes.NewReader(make([]byte, 100)))
	r.SkipForward(50)

	rec := wisescript.CreateFile{DeflateStart: 0, DeflateEnd: 10, Path: "z.dat"}
	if _, err := Open(r, rec, 0); err == nil {
		t.Fatal("Open behind current offset: want error, got nil")
	}
}

func TestDataRegionOrigin(t *testing.T) {
	ops := []wisescript.Op{
		wisescript.CreateFile{DeflateEnd: 100},
		wisescript.UnknownFile{DeflateEnd: 250},
		wisescript.CreateFile{DeflateEnd: 200},
		wisescript.NoOp{},
	}
	if got := DataRegionOrigin(ops); got != 250 {
		t.Errorf("DataRegionOrigin = %d, want 250", got)
	}
}

func TestExtractable(t *testing.T) {
	if !Extractable("foo.dat") || !Extractable("bar.mus") {
		t.Error("Extractable should accept .dat and .mus")
	}
	if Extractable("readme.txt") {
		t.Error("Extractable should reject unrelated extensions")
	}
}
