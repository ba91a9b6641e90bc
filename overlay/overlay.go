// Package overlay parses the Wise installer overlay: it skips past the PE
// executable, reads the fixed-layout overlay header, skips the embedded DIB
// preview image, and inflates the appended Wise script.
package overlay

import (
	"debug/pe"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/rs/zerolog"

	"github.com/darkages-tools/legacytranscode/legacyerr"
	"github.com/darkages-tools/legacytranscode/sourceio"
)

// Constants that must match the targeted installer.
const (
	// DefaultExecutableOffset is used when PE-aware offset resolution is
	// disabled.
	DefaultExecutableOffset = 0x3A00

	// HeaderWindow bounds the header+DIB+script region following the
	// executable offset. The reader always lands at
	// executableOffset+HeaderWindow once Parse returns, regardless of how
	// much of the window the header/DIB/script actually occupied, since
	// everything downstream addresses file-data chunks by absolute offset
	// from end-of-file rather than from this window.
	HeaderWindow = 51200

	maxScriptSize = 16 * 1024 * 1024
)

// Header is the fixed-size record at the front of the overlay.
type Header struct {
	ScriptUncompressedSize uint32
	EOFOffset              uint32
	DIBCompressedSize      uint32
}

// PEExecutableOffset computes the offset past the end of the .rsrc section,
// for installers where the plain constant offset does not hold. r must
// support io.ReaderAt (a local file; HTTP bodies fall back to the constant).
func PEExecutableOffset(r io.ReaderAt, size int64) (int64, error) {
	f, err := pe.NewFile(io.NewSectionReader(r, 0, size))
	if err != nil {
		return 0, &legacyerr.MalformedOverlay{Reason: "pe: " + err.Error()}
	}
	defer f.Close()
	sec := f.Section(".rsrc")
	if sec == nil {
		return 0, &legacyerr.MalformedOverlay{Reason: "pe: no .rsrc section"}
	}
	return int64(sec.Offset) + int64(sec.Size), nil
}

// Parse positions r past the PE image, reads the overlay header, skips the
// DIB, and returns the fully inflated Wise script. On return, r is
// positioned at the start of the file-data region's containing window
// (executableOffset+HeaderWindow); callers compute the actual data-region
// origin separately from eof_offset and the maximum deflate_end.
func Parse(r *sourceio.Reader, executableOffset int64, log zerolog.Logger) (Header, []byte, error) {
	if err := r.SkipForward(executableOffset - r.Offset()); err != nil {
		return Header{}, nil, &legacyerr.MalformedOverlay{Reason: "skip to executable offset: " + err.Error()}
	}
	start := r.Offset()

	marker, err := r.ReadExact(1)
	if err != nil {
		return Header{}, nil, &legacyerr.MalformedOverlay{Reason: "read marker: " + err.Error()}
	}
	if marker[0] != 0 {
		return Header{}, nil, &legacyerr.MalformedOverlay{Reason: "marker byte is non-zero"}
	}
	if err := r.SkipForward(24); err != nil {
		return Header{}, nil, &legacyerr.MalformedOverlay{Reason: err.Error()}
	}
	scriptSizeBuf, err := r.ReadExact(4)
	if err != nil {
		return Header{}, nil, &legacyerr.MalformedOverlay{Reason: err.Error()}
	}
	scriptSize := binary.LittleEndian.Uint32(scriptSizeBuf)
	if scriptSize > maxScriptSize {
		return Header{}, nil, &legacyerr.MalformedOverlay{Reason: "implausible script_uncompressed_size"}
	}

	if err := r.SkipForward(48); err != nil {
		return Header{}, nil, &legacyerr.MalformedOverlay{Reason: err.Error()}
	}
	eofBuf, err := r.ReadExact(4)
	if err != nil {
		return Header{}, nil, &legacyerr.MalformedOverlay{Reason: err.Error()}
	}
	eofOffset := binary.LittleEndian.Uint32(eofBuf)

	dibBuf, err := r.ReadExact(4)
	if err != nil {
		return Header{}, nil, &legacyerr.MalformedOverlay{Reason: err.Error()}
	}
	dibSize := binary.LittleEndian.Uint32(dibBuf)

	if err := r.SkipForward(6); err != nil {
		return Header{}, nil, &legacyerr.MalformedOverlay{Reason: err.Error()}
	}
	initLenBuf, err := r.ReadExact(1)
	if err != nil {
		return Header{}, nil, &legacyerr.MalformedOverlay{Reason: err.Error()}
	}
	if err := r.SkipForward(int64(initLenBuf[0])); err != nil {
		return Header{}, nil, &legacyerr.MalformedOverlay{Reason: err.Error()}
	}

	if err := r.SkipForward(int64(dibSize)); err != nil {
		return Header{}, nil, &legacyerr.MalformedOverlay{Reason: "skip dib: " + err.Error()}
	}

	script, err := inflateScript(r, int(scriptSize), log)
	if err != nil {
		return Header{}, nil, err
	}

	consumed := r.Offset() - start
	if consumed > HeaderWindow {
		return Header{}, nil, &legacyerr.MalformedOverlay{Reason: "header+dib+script exceeded header window"}
	}
	if err := r.SkipForward(HeaderWindow - consumed); err != nil {
		return Header{}, nil, &legacyerr.MalformedOverlay{Reason: "drain header window: " + err.Error()}
	}

	return Header{
		ScriptUncompressedSize: scriptSize,
		EOFOffset:              eofOffset,
		DIBCompressedSize:      dibSize,
	}, script, nil
}

// inflateScript decompresses the script's raw deflate stream (no zlib
// header or trailer, the same codec extract.Open uses for DAT/MUS chunks)
// until want bytes have been produced, then reads and (non-fatally) checks
// the trailing 4-byte CRC32 the reference implementation writes but never
// verifies; a mismatch is logged, not fatal.
func inflateScript(r *sourceio.Reader, want int, log zerolog.Logger) ([]byte, error) {
	zr := flate.NewReader(r)
	out := make([]byte, want)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, &legacyerr.MalformedOverlay{Reason: "inflate script: " + err.Error()}
	}
	zr.Close()

	crcBuf, err := r.ReadExact(4)
	if err != nil {
		return nil, &legacyerr.MalformedOverlay{Reason: "read script crc: " + err.Error()}
	}
	want32 := binary.LittleEndian.Uint32(crcBuf)
	if got := crc32.ChecksumIEEE(out); got != want32 {
		log.Warn().Uint32("expected", want32).Uint32("actual", got).Msg("overlay: script crc32 mismatch, continuing")
	}
	return out, nil
}
