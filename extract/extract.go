// Package extract implements the File Extractor: for each
// CreateFile record ending in .dat or .mus, it seeks the forward-only
// source reader to the record's deflate chunk, inflates it, and validates
// both CRC32s the script carries for that chunk.
package extract

import (
	"encoding/binary"
	"hash"
	"hash/crc32"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/darkages-tools/legacytranscode/legacyerr"
	"github.com/darkages-tools/legacytranscode/sourceio"
	"github.com/darkages-tools/legacytranscode/wisescript"
)

// Extractable reports whether a CreateFile record is one the extractor
// processes at all; every other record is ignored completely.
func Extractable(path string) bool {
	return strings.HasSuffix(path, ".dat") || strings.HasSuffix(path, ".mus")
}

// DataRegionOrigin returns the maximum deflate_end across every CreateFile
// and UnknownFile record, which anchors the file-data region.
func DataRegionOrigin(ops []wisescript.Op) uint32 {
	var max uint32
	for _, op := range ops {
		var end uint32
		switch o := op.(type) {
		case wisescript.CreateFile:
			end = o.DeflateEnd
		case wisescript.UnknownFile:
			end = o.DeflateEnd
		default:
			continue
		}
		if end > max {
			max = end
		}
	}
	return max
}

// Body is the inflated, CRC-checked payload of one CreateFile record. The
// caller must read it to completion and call Close, which performs the
// forward-only drain to the next record's position and the CRC32
// validation; Close returns a *legacyerr.Crc32Mismatch or
// *legacyerr.TruncatedFile on failure.
type Body struct {
	path        string
	declaredCrc uint32
	src         *sourceio.Reader
	limited     *io.LimitedReader
	inflater    io.ReadCloser
	hash        hash.Hash32
}

func (b *Body) Read(p []byte) (int, error) {
	n, err := b.inflater.Read(p)
	if n > 0 {
		b.hash.Write(p[:n])
	}
	return n, err
}

// Close finalizes the record: drains any unread compressed bytes so the
// reader lands exactly at the next record's origin, reads the trailing
// CRC32, and checks computed == declared == trailing.
func (b *Body) Close() error {
	b.inflater.Close()
	if _, err := io.Copy(io.Discard, b.limited); err != nil {
		return &legacyerr.TruncatedFile{Path: b.path}
	}
	trailingBuf, err := b.src.ReadExact(4)
	if err != nil {
		return &legacyerr.TruncatedFile{Path: b.path}
	}
	trailingCrc := binary.LittleEndian.Uint32(trailingBuf)
	got := b.hash.Sum32()
	if got != b.declaredCrc {
		return &legacyerr.Crc32Mismatch{Path: b.path, Expected: b.declaredCrc, Actual: got}
	}
	if got != trailingCrc {
		return &legacyerr.Crc32Mismatch{Path: b.path, Expected: trailingCrc, Actual: got}
	}
	return nil
}

// Open positions r at rec's data and returns a Body streaming the inflated,
// CRC-accumulating payload. dataRegionOrigin is the absolute byte offset
// (from the start of the overlay) of the data region's first byte, computed
// once per installation as eofOffset - DataRegionOrigin(ops).
func Open(r *sourceio.Reader, rec wisescript.CreateFile, dataRegionOrigin int64) (*Body, error) {
	dataStart := dataRegionOrigin + int64(rec.DeflateStart)
	if r.Offset() > dataStart {
		return nil, &legacyerr.OutOfOrderRecord{Path: rec.Path, At: r.Offset(), Want: dataStart}
	}
	if err := r.SkipForward(dataStart - r.Offset()); err != nil {
		return nil, err
	}

	size := int64(rec.DeflateEnd) - int64(rec.DeflateStart) - 4
	if size < 0 {
		return nil, &legacyerr.DatParseError{DatName: rec.Path, Reason: "deflate span too small for trailing crc"}
	}
	limited := &io.LimitedReader{R: r, N: size}
	body := &Body{
		path:        rec.Path,
		declaredCrc: rec.Crc32,
		src:         r,
		limited:     limited,
		inflater:    flate.NewReader(limited),
		hash:        crc32.NewIEEE(),
	}
	return body, nil
}
