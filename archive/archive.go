// Package archive implements the content-addressed archive writer/reader
// adapter this installer treats as an external collaborator: entries are
// referenced by content hash so identical payloads are stored once, each
// entry is zstd-compressed on ingest, and Finalize performs an atomic
// create-temp-then-rename swap into the requested output path.
//
// Grounded on the pack's beam-cloud/clip content-addressed archiver: a
// gob-encoded index keyed by logical path, deduplicated by content hash.
package archive

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/darkages-tools/legacytranscode/legacyerr"
)

var footerMagic = [8]byte{'L', 'E', 'G', 'A', 'R', 'X', '0', '1'}

const footerSize = 8 + 8 + 8 // magic + indexOffset + indexLength

type entryRecord struct {
	Path       string
	Hash       [32]byte
	Offset     int64
	CompLength int64
	RawLength  int64
}

// Writer accumulates entries into a temporary file and produces a single
// finalized archive on Finalize.
type Writer struct {
	outputPath string
	tmpPath    string
	tmp        *os.File
	offset     int64
	index      []entryRecord
	byPath     map[string]entryRecord
	byHash     map[[32]byte]entryRecord
}

// NewWriter creates the temporary backing file for a new archive destined
// for outputPath.
func NewWriter(outputPath string) (*Writer, error) {
	tmpPath := outputPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, &legacyerr.WriterError{Op: "create", Err: err}
	}
	return &Writer{
		outputPath: outputPath,
		tmpPath:    tmpPath,
		tmp:        f,
		byPath:     make(map[string]entryRecord),
		byHash:     make(map[[32]byte]entryRecord),
	}, nil
}

// AddEntry stores data under logical path p, compressing it with zstd. Two
// adds of the same path with identical bytes are a no-op; two adds of the
// same path with differing bytes is a WriterError. Two different paths with
// identical bytes share the same compressed storage.
func (w *Writer) AddEntry(p string, data []byte) error {
	sum := sha256.Sum256(data)

	if existing, ok := w.byPath[p]; ok {
		if existing.Hash == sum {
			return nil
		}
		return &legacyerr.WriterError{Op: "add_entry", Err: fmt.Errorf("path %q already added with different contents", p)}
	}

	if existing, ok := w.byHash[sum]; ok {
		rec := existing
		rec.Path = p
		w.index = append(w.index, rec)
		w.byPath[p] = rec
		return nil
	}

	var comp bytes.Buffer
	zw, err := zstd.NewWriter(&comp)
	if err != nil {
		return &legacyerr.WriterError{Op: "add_entry", Err: err}
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return &legacyerr.WriterError{Op: "add_entry", Err: err}
	}
	if err := zw.Close(); err != nil {
		return &legacyerr.WriterError{Op: "add_entry", Err: err}
	}

	n, err := w.tmp.Write(comp.Bytes())
	if err != nil {
		return &legacyerr.WriterError{Op: "add_entry", Err: err}
	}
	rec := entryRecord{Path: p, Hash: sum, Offset: w.offset, CompLength: int64(n), RawLength: int64(len(data))}
	w.offset += int64(n)
	w.index = append(w.index, rec)
	w.byPath[p] = rec
	w.byHash[sum] = rec
	return nil
}

// Finalize writes the index and footer, then atomically renames the
// temporary file into place at the writer's output path.
func (w *Writer) Finalize() error {
	var idx bytes.Buffer
	if err := gob.NewEncoder(&idx).Encode(w.index); err != nil {
		return &legacyerr.WriterError{Op: "finalize", Err: err}
	}
	indexOffset := w.offset
	if _, err := w.tmp.Write(idx.Bytes()); err != nil {
		return &legacyerr.WriterError{Op: "finalize", Err: err}
	}

	var footer bytes.Buffer
	footer.Write(footerMagic[:])
	binary.Write(&footer, binary.LittleEndian, uint64(indexOffset))
	binary.Write(&footer, binary.LittleEndian, uint64(idx.Len()))
	if _, err := w.tmp.Write(footer.Bytes()); err != nil {
		return &legacyerr.WriterError{Op: "finalize", Err: err}
	}

	if err := w.tmp.Close(); err != nil {
		return &legacyerr.WriterError{Op: "finalize", Err: err}
	}
	if err := os.Rename(w.tmpPath, w.outputPath); err != nil {
		return &legacyerr.WriterError{Op: "finalize", Err: err}
	}
	return nil
}

// Abort discards the temporary file without producing an archive.
func (w *Writer) Abort() error {
	w.tmp.Close()
	return os.Remove(w.tmpPath)
}

// Reader provides random-access lookup of individual entries by logical
// path; only the installer's local archive file is ever read this way —
// the distinction between "forward-only" and "random access" in this
// codebase is about the *source* installer stream, not the output archive.
type Reader struct {
	f     *os.File
	index map[string]entryRecord
}

// Open opens path as an archive and loads its index.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if stat.Size() < footerSize {
		f.Close()
		return nil, &legacyerr.WriterError{Op: "open", Err: fmt.Errorf("archive too small")}
	}

	footer := make([]byte, footerSize)
	if _, err := f.ReadAt(footer, stat.Size()-footerSize); err != nil {
		f.Close()
		return nil, &legacyerr.WriterError{Op: "open", Err: err}
	}
	if !bytes.Equal(footer[:8], footerMagic[:]) {
		f.Close()
		return nil, &legacyerr.WriterError{Op: "open", Err: fmt.Errorf("bad archive magic")}
	}
	indexOffset := int64(binary.LittleEndian.Uint64(footer[8:16]))
	indexLength := int64(binary.LittleEndian.Uint64(footer[16:24]))

	idxBuf := make([]byte, indexLength)
	if _, err := f.ReadAt(idxBuf, indexOffset); err != nil {
		f.Close()
		return nil, &legacyerr.WriterError{Op: "open", Err: err}
	}
	var entries []entryRecord
	if err := gob.NewDecoder(bytes.NewReader(idxBuf)).Decode(&entries); err != nil {
		f.Close()
		return nil, &legacyerr.WriterError{Op: "open", Err: err}
	}
	index := make(map[string]entryRecord, len(entries))
	for _, e := range entries {
		index[e.Path] = e
	}
	return &Reader{f: f, index: index}, nil
}

// ReadEntry returns the decompressed bytes stored at logical path p, or
// (nil, false) if no such entry exists.
func (r *Reader) ReadEntry(p string) ([]byte, bool, error) {
	rec, ok := r.index[p]
	if !ok {
		return nil, false, nil
	}
	comp := make([]byte, rec.CompLength)
	if _, err := r.f.ReadAt(comp, rec.Offset); err != nil {
		return nil, false, err
	}
	zr, err := zstd.NewReader(bytes.NewReader(comp))
	if err != nil {
		return nil, false, err
	}
	defer zr.Close()
	out := make([]byte, rec.RawLength)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error { return r.f.Close() }
