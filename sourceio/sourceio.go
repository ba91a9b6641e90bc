// Package sourceio exposes the installer blob as a forward-only byte
// stream, backed by either a local override file or an HTTP response body.
// No random access is required or permitted anywhere in the pipeline; every
// component is written around monotonically increasing offsets, so the
// reader here need only support reading and discarding bytes.
package sourceio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/darkages-tools/legacytranscode/legacyerr"
)

// LocalOverrideName is the filename checked for in the output directory
// before falling back to a network fetch.
const LocalOverrideName = "DarkAges741single.exe"

// Reader is a buffered forward-only cursor with offset tracking, a byte
// granularity generalization of bitReader (flate/bit_reader.go): same
// separation between the buffered lookahead and the logical read offset,
// same guarantee of never consuming more than asked.
type Reader struct {
	rd     *bufio.Reader
	closer io.Closer
	offset int64
}

// NewReader wraps an arbitrary io.Reader as a Reader with no associated
// closer, letting callers (tests, or any in-process byte source) drive the
// same forward-only API Open provides for a file or HTTP body.
func NewReader(r io.Reader) *Reader {
	return &Reader{rd: bufio.NewReader(r)}
}

// Offset reports the number of bytes consumed from the stream so far.
func (r *Reader) Offset() int64 { return r.offset }

// ReadExact returns exactly n bytes or fails with io.ErrUnexpectedEOF.
func (r *Reader) ReadExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.rd, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("sourceio: read %d bytes at offset %d: %w", n, r.offset, io.ErrUnexpectedEOF)
		}
		return nil, fmt.Errorf("sourceio: read %d bytes at offset %d: %w", n, r.offset, err)
	}
	r.offset += int64(n)
	return buf, nil
}

// ReadByte satisfies io.ByteReader so Reader can feed a flate/zlib decoder
// directly.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.rd.ReadByte()
	if err == nil {
		r.offset++
	}
	return b, err
}

// Read satisfies io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.rd.Read(p)
	r.offset += int64(n)
	return n, err
}

// SkipForward advances n bytes without yielding them. Implemented as a bulk
// copy to io.Discard so it works identically whether the underlying stream
// is a local file or a non-seekable HTTP body.
func (r *Reader) SkipForward(n int64) error {
	cnt, err := io.CopyN(io.Discard, r.rd, n)
	r.offset += cnt
	if err != nil {
		return fmt.Errorf("sourceio: skip %d bytes at offset %d: %w", n, r.offset-cnt, err)
	}
	return nil
}

// Close releases the underlying transport (file handle or HTTP body).
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Open returns a Reader backed by <outputDir>/DarkAges741single.exe if it
// exists, else performs an HTTP GET against sourceURL. ctx only governs the
// network path; the local-file path is synchronous like the rest of the
// pipeline.
func Open(ctx context.Context, outputDir, sourceURL string) (*Reader, error) {
	localPath := filepath.Join(outputDir, LocalOverrideName)
	if f, err := os.Open(localPath); err == nil {
		return &Reader{rd: bufio.NewReaderSize(f, 64*1024), closer: f}, nil
	} else if !os.IsNotExist(err) {
		return nil, &legacyerr.SourceUnavailable{Path: localPath, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, &legacyerr.SourceUnavailable{Path: sourceURL, Err: err}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, &legacyerr.SourceUnavailable{Path: sourceURL, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &legacyerr.SourceUnavailable{Path: sourceURL, Err: fmt.Errorf("http status %s", resp.Status)}
	}
	return &Reader{rd: bufio.NewReaderSize(resp.Body, 64*1024), closer: resp.Body}, nil
}
