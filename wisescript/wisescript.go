// Package wisescript decodes the Wise installer's decompressed script into
// an ordered list of file-create operations. The script is a stream of
// length-free, tag-first records: a fixed preamble (this installer
// version's language table), then opcode-tagged records until end of
// script.
package wisescript

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/darkages-tools/legacytranscode/legacyerr"
)

// Op is the tagged variant emitted per record.
type Op interface{ isOp() }

// CreateFile names a deflate-compressed chunk of the file-data region.
// DeflateStart/DeflateEnd are relative to the file-data region;
// the installer package resolves them to absolute offsets.
type CreateFile struct {
	DeflateStart uint32
	DeflateEnd   uint32
	Crc32        uint32
	Path         string
}

func (CreateFile) isOp() {}

// UnknownFile carries only a deflate_end used to establish the data-region
// origin; its payload is deliberately ignored.
type UnknownFile struct {
	DeflateEnd uint32
}

func (UnknownFile) isOp() {}

// NoOp is any script record that has no bearing on file extraction.
type NoOp struct{}

func (NoOp) isOp() {}

type cursor struct {
	b   []byte
	pos int
}

func (c *cursor) remaining() int { return len(c.b) - c.pos }

func (c *cursor) skip(n int) error {
	if n < 0 || c.remaining() < n {
		return &legacyerr.MalformedScript{Reason: "skip past end of script", Offset: c.pos}
	}
	c.pos += n
	return nil
}

func (c *cursor) readByte() (byte, error) {
	if c.remaining() < 1 {
		return 0, &legacyerr.MalformedScript{Reason: "read byte past end of script", Offset: c.pos}
	}
	b := c.b[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) readU32() (uint32, error) {
	if c.remaining() < 4 {
		return 0, &legacyerr.MalformedScript{Reason: "read u32 past end of script", Offset: c.pos}
	}
	v := binary.LittleEndian.Uint32(c.b[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *cursor) readCString() (string, error) {
	idx := bytes.IndexByte(c.b[c.pos:], 0)
	if idx < 0 {
		return "", &legacyerr.MalformedScript{Reason: "unterminated string", Offset: c.pos}
	}
	s := string(c.b[c.pos : c.pos+idx])
	c.pos += idx + 1
	return s, nil
}

func (c *cursor) readCStrings(n int) ([]string, error) {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		s, err := c.readCString()
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// languageCount is the number of NUL-terminated strings in the preamble's
// language table for this installer version. Spec §9 flags this as an
// undocumented constant that may vary across installer versions. Walk reads
// exactly this many strings and does not check the table's real size: a
// table that ends early is only reported (as MalformedScript) if the script
// runs out while reading it, and a table of any other size shifts where the
// opcode records are read from.
const languageCount = 56

// Walk parses the fixed preamble, then decodes opcode records until the
// script is exhausted.
func Walk(script []byte) ([]Op, error) {
	c := &cursor{b: script}

	if err := c.skip(43); err != nil {
		return nil, err
	}
	if _, err := c.readCStrings(3); err != nil {
		return nil, err
	}
	if err := c.skip(6); err != nil {
		return nil, err
	}
	marker, err := c.readByte()
	if err != nil {
		return nil, err
	}
	if marker != 0x01 {
		return nil, &legacyerr.MalformedScript{Reason: "preamble marker byte is not 0x01", Offset: c.pos - 1}
	}
	if err := c.skip(7); err != nil {
		return nil, err
	}
	if _, err := c.readCStrings(languageCount); err != nil {
		return nil, err
	}

	var ops []Op
	for c.remaining() > 0 {
		op, err := readRecord(c)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func readRecord(c *cursor) (Op, error) {
	opStart := c.pos
	opcode, err := c.readByte()
	if err != nil {
		return nil, err
	}

	switch opcode {
	case 0x00:
		if err := c.skip(2); err != nil {
			return nil, err
		}
		start, err := c.readU32()
		if err != nil {
			return nil, err
		}
		end, err := c.readU32()
		if err != nil {
			return nil, err
		}
		if err := c.skip(28); err != nil {
			return nil, err
		}
		crc, err := c.readU32()
		if err != nil {
			return nil, err
		}
		path, err := c.readCString()
		if err != nil {
			return nil, err
		}
		if _, err := c.readCStrings(2); err != nil {
			return nil, err
		}
		return CreateFile{DeflateStart: start, DeflateEnd: end, Crc32: crc, Path: normalizePath(path)}, nil

	case 0x03:
		return noOpSkipStrings(c, 1, 2)
	case 0x04:
		return noOpSkipStrings(c, 1, 1)
	case 0x05:
		return noOpSkipStrings(c, 0, 3)
	case 0x07:
		return noOpSkipStrings(c, 1, 3)
	case 0x08:
		if err := c.skip(1); err != nil {
			return nil, err
		}
		return NoOp{}, nil
	case 0x09:
		return noOpSkipStrings(c, 1, 5)
	case 0x0A:
		return noOpSkipStrings(c, 2, 3)
	case 0x0B:
		return noOpSkipStrings(c, 1, 1)
	case 0x0C:
		return noOpSkipStrings(c, 1, 2)
	case 0x0D, 0x0F, 0x10, 0x1B:
		return NoOp{}, nil
	case 0x11, 0x16, 0x1C:
		return noOpSkipStrings(c, 0, 1)
	case 0x14:
		if err := c.skip(4); err != nil {
			return nil, err
		}
		end, err := c.readU32()
		if err != nil {
			return nil, err
		}
		if err := c.skip(4); err != nil {
			return nil, err
		}
		if _, err := c.readCStrings(2); err != nil {
			return nil, err
		}
		return UnknownFile{DeflateEnd: end}, nil
	case 0x15:
		return noOpSkipStrings(c, 1, 2)
	case 0x18:
		b, err := c.readByte()
		if err != nil {
			return nil, err
		}
		if b != 0x1B {
			return nil, &legacyerr.MalformedScript{Reason: "opcode 0x18 expected 0x1B", Offset: c.pos - 1}
		}
		return NoOp{}, nil
	case 0x1E:
		return noOpSkipStrings(c, 1, 1)
	default:
		return nil, &legacyerr.UnknownOpcode{Opcode: opcode, Offset: opStart}
	}
}

func noOpSkipStrings(c *cursor, skipBytes, numStrings int) (Op, error) {
	if skipBytes > 0 {
		if err := c.skip(skipBytes); err != nil {
			return nil, err
		}
	}
	if numStrings > 0 {
		if _, err := c.readCStrings(numStrings); err != nil {
			return nil, err
		}
	}
	return NoOp{}, nil
}

// normalizePath applies the CreateFile path normalization: backslash to
// forward slash, the %MAINDIR%/ prefix stripped. Lowercasing is a C5
// (DAT-leaf) concern, not applied here.
func normalizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	const prefix = "%MAINDIR%/"
	if strings.HasPrefix(p, prefix) {
		p = p[len(prefix):]
	}
	return p
}
