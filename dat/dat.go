// Package dat implements the DAT Unpacker: it walks the
// in-DAT directory of sub-files from an inflated DAT byte stream using a
// growable ring buffer, so a DAT well over 100 MiB never needs to be fully
// materialized in memory.
package dat

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/darkages-tools/legacytranscode/internal/ringbuf"
	"github.com/darkages-tools/legacytranscode/legacyerr"
)

const (
	entrySize  = 17 // 4-byte offset + 13-byte NUL-padded name
	feedChunk  = 4 * 1024
	initialCap = 8 * 1024
)

// Leaf is one sub-file yielded by Unpack.
type Leaf struct {
	Name string
	Data []byte
}

// Unpack streams r (the already-inflated DAT body) and invokes onLeaf for
// every named sub-file in TOC order. Entries with an empty name (after
// NUL-stripping and whitespace trimming) are skipped silently.
func Unpack(datName string, r io.Reader, onLeaf func(Leaf) error) error {
	rb := ringbuf.New(initialCap)
	eof := false

	feed := func() error {
		if eof {
			return nil
		}
		chunk := make([]byte, feedChunk)
		n, err := r.Read(chunk)
		if n > 0 {
			rb.Write(chunk[:n])
		}
		if err == io.EOF {
			eof = true
			return nil
		}
		return err
	}
	ensure := func(n int) error {
		for rb.Len() < n {
			if eof {
				return io.ErrUnexpectedEOF
			}
			if err := feed(); err != nil {
				return err
			}
		}
		return nil
	}

	if err := ensure(4); err != nil {
		return &legacyerr.DatParseError{DatName: datName, Reason: "truncated count: " + err.Error()}
	}
	count := int(binary.LittleEndian.Uint32(rb.Peek(4)))
	if count < 0 || count > 1<<20 {
		return &legacyerr.DatParseError{DatName: datName, Reason: "implausible entry count"}
	}
	tocSize := 4 + count*entrySize
	if err := ensure(tocSize); err != nil {
		return &legacyerr.DatParseError{DatName: datName, Reason: "truncated toc: " + err.Error()}
	}
	toc := rb.Take(tocSize)

	offsets := make([]uint32, count)
	names := make([]string, count)
	for i := 0; i < count; i++ {
		base := 4 + i*entrySize
		offsets[i] = binary.LittleEndian.Uint32(toc[base : base+4])
		names[i] = cleanName(toc[base+4 : base+entrySize])
	}

	for i := 0; i < count; i++ {
		isLast := i == count-1
		name := names[i]

		if isLast {
			payload, err := drainRemainder(rb, feed, &eof)
			if err != nil {
				return &legacyerr.DatParseError{DatName: datName, Reason: err.Error()}
			}
			if name != "" {
				if err := onLeaf(Leaf{Name: name, Data: payload}); err != nil {
					return err
				}
			}
			continue
		}

		size := int(offsets[i+1]) - int(offsets[i])
		if size < 0 {
			return &legacyerr.DatParseError{DatName: datName, Reason: "non-monotonic toc offsets"}
		}
		if err := ensure(size); err != nil {
			return &legacyerr.DatParseError{DatName: datName, Reason: "truncated payload: " + err.Error()}
		}
		payload := rb.Take(size)
		if name != "" {
			if err := onLeaf(Leaf{Name: name, Data: payload}); err != nil {
				return err
			}
		}
	}
	return nil
}

// drainRemainder reads the underlying source to EOF, returning every byte
// left in the ring buffer (already-buffered bytes first), satisfying the
// "flush buffered payload bytes on inflater EOF" requirement for the
// convention-0-sized final entry.
func drainRemainder(rb *ringbuf.Buffer, feed func() error, eof *bool) ([]byte, error) {
	for !*eof {
		if err := feed(); err != nil {
			return nil, err
		}
	}
	return rb.Take(rb.Len()), nil
}

// cleanName strips NULs, trims trailing ASCII whitespace, and lowercases a
// 13-byte padded DAT TOC name.
func cleanName(raw []byte) string {
	s := string(raw)
	if idx := strings.IndexByte(s, 0); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimRight(s, " \t\r\n")
	return strings.ToLower(s)
}
