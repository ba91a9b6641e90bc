// Package legacyerr defines the error kinds produced by the transcoder
// pipeline. Each kind carries the context needed to diagnose a failed
// installation without re-parsing the source.
package legacyerr

import (
	"errors"
	"fmt"
)

// ErrArchiveUpToDate is returned by Install when the prior output already
// carries the current version marker. Callers should treat it as success.
var ErrArchiveUpToDate = errors.New("legacytranscode: archive up to date")

// SourceUnavailable indicates neither the local override file nor the
// network fetch could produce a readable installer blob.
type SourceUnavailable struct {
	Path string
	Err  error
}

func (e *SourceUnavailable) Error() string {
	return fmt.Sprintf("legacytranscode: source unavailable (%s): %v", e.Path, e.Err)
}

func (e *SourceUnavailable) Unwrap() error { return e.Err }

// MalformedOverlay indicates the Wise overlay header failed a sanity check.
type MalformedOverlay struct {
	Reason string
}

func (e *MalformedOverlay) Error() string {
	return "legacytranscode: malformed overlay: " + e.Reason
}

// MalformedScript indicates the decompressed Wise script deviated from the
// fixed preamble or opcode grammar this installer version requires.
type MalformedScript struct {
	Reason string
	Offset int
}

func (e *MalformedScript) Error() string {
	return fmt.Sprintf("legacytranscode: malformed script at offset %d: %s", e.Offset, e.Reason)
}

// UnknownOpcode is fatal: the script walker has no entry for the byte.
type UnknownOpcode struct {
	Opcode byte
	Offset int
}

func (e *UnknownOpcode) Error() string {
	return fmt.Sprintf("legacytranscode: unknown script opcode 0x%02x at offset %d", e.Opcode, e.Offset)
}

// Crc32Mismatch is fatal per-file: the declared or trailing CRC32 disagreed
// with the CRC32 of the inflated bytes.
type Crc32Mismatch struct {
	Path     string
	Expected uint32
	Actual   uint32
}

func (e *Crc32Mismatch) Error() string {
	return fmt.Sprintf("legacytranscode: crc32 mismatch for %q: expected %08x, got %08x", e.Path, e.Expected, e.Actual)
}

// TruncatedFile indicates the inflater produced fewer bytes than the
// record's declared span promised.
type TruncatedFile struct {
	Path string
	Want int
	Got  int
}

func (e *TruncatedFile) Error() string {
	return fmt.Sprintf("legacytranscode: truncated file %q: wanted %d bytes, got %d", e.Path, e.Want, e.Got)
}

// OutOfOrderRecord indicates a CreateFile record's data-region offset lies
// behind the reader's current position; the forward-only reader cannot
// satisfy it.
type OutOfOrderRecord struct {
	Path string
	At   int64
	Want int64
}

func (e *OutOfOrderRecord) Error() string {
	return fmt.Sprintf("legacytranscode: out-of-order record %q: reader at %d, record wants %d", e.Path, e.At, e.Want)
}

// DatParseError indicates a malformed DAT table of contents or a sub-file
// whose declared bounds don't fit the stream.
type DatParseError struct {
	DatName string
	Reason  string
}

func (e *DatParseError) Error() string {
	return fmt.Sprintf("legacytranscode: dat parse error in %q: %s", e.DatName, e.Reason)
}

// DecoderError describes a format-decoder failure. Callers in §4.6 treat
// EFA, SPF, and some EPF frame failures as non-fatal: log and skip the
// leaf rather than abort the whole install.
type DecoderError struct {
	Kind   string // "tile", "hpf", "mpf", "efa", "epf", "spf", "colortable", "palette", "epfanim"
	Leaf   string
	Err    error
	Fatal  bool
}

func (e *DecoderError) Error() string {
	return fmt.Sprintf("legacytranscode: %s decoder error for %q: %v", e.Kind, e.Leaf, e.Err)
}

func (e *DecoderError) Unwrap() error { return e.Err }

// WriterError wraps a failure from the archive writer adapter.
type WriterError struct {
	Op  string
	Err error
}

func (e *WriterError) Error() string {
	return fmt.Sprintf("legacytranscode: archive writer %s: %v", e.Op, e.Err)
}

func (e *WriterError) Unwrap() error { return e.Err }
