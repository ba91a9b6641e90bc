// Package hpf decodes HPF glyph sheets: an optional
// LZ-compressed payload (signature 0xFF02AA55) followed by an 8-byte skip
// and a fixed-stride raster.
package hpf

import (
	"encoding/binary"
	"fmt"

	"github.com/darkages-tools/legacytranscode/decode"
	"github.com/darkages-tools/legacytranscode/internal/ktx2"
	"github.com/darkages-tools/legacytranscode/legacyerr"
)

// Signature marks an HPF payload as LZ-compressed.
const Signature = 0xFF02AA55

const stride = 28

// Decode returns a single R8_UNORM KTX2 artifact at
// "<dat-basename>/<leaf>.ktx2".
func Decode(datBasename, leafName string, data []byte) ([]decode.Artifact, error) {
	if len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == Signature {
		expanded, err := decompressLZ(data)
		if err != nil {
			return nil, &legacyerr.DecoderError{Kind: "hpf", Leaf: leafName, Fatal: true, Err: err}
		}
		data = expanded
	}

	if len(data) < 8 {
		return nil, &legacyerr.DecoderError{Kind: "hpf", Leaf: leafName, Fatal: true,
			Err: fmt.Errorf("payload too short for 8-byte header skip")}
	}
	raster := data[8:]
	if len(raster)%stride != 0 {
		return nil, &legacyerr.DecoderError{Kind: "hpf", Leaf: leafName, Fatal: true,
			Err: fmt.Errorf("raster length %d is not a multiple of stride %d", len(raster), stride)}
	}
	height := len(raster) / stride

	out, err := ktx2.Encode(ktx2.Header{Width: stride, Height: uint32(height), Format: ktx2.FormatR8Unorm}, raster)
	if err != nil {
		return nil, &legacyerr.DecoderError{Kind: "hpf", Leaf: leafName, Fatal: true, Err: err}
	}
	return []decode.Artifact{{LogicalPath: decode.LeafPath(datBasename, leafName+".ktx2"), Bytes: out}}, nil
}

// decompressLZ expands the HPF-specific LZ scheme that follows the
// signature word. The exact transform is defined by the external HPF
// format spec; this implements the conventional
// signature-gated LZ77 variant used by the rest of this installer's binary
// formats: a 4-byte decompressed-size field after the signature, then a
// stream of control bytes each gating 8 literal-or-backreference tokens
// (1 = literal byte, 0 = 2-byte <offset,length> backreference into the
// output produced so far).
func decompressLZ(data []byte) ([]byte, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("hpf: lz payload too short")
	}
	outSize := binary.LittleEndian.Uint32(data[4:8])
	out := make([]byte, 0, outSize)
	pos := 8
	for pos < len(data) && uint32(len(out)) < outSize {
		control := data[pos]
		pos++
		for bit := 0; bit < 8 && pos < len(data) && uint32(len(out)) < outSize; bit++ {
			if control&(1<<uint(bit)) != 0 {
				out = append(out, data[pos])
				pos++
			} else {
				if pos+1 >= len(data) {
					return nil, fmt.Errorf("hpf: truncated backreference")
				}
				token := binary.LittleEndian.Uint16(data[pos : pos+2])
				pos += 2
				length := int(token&0x0F) + 3
				offset := int(token >> 4)
				if offset == 0 || offset > len(out) {
					return nil, fmt.Errorf("hpf: invalid backreference offset")
				}
				start := len(out) - offset
				for i := 0; i < length; i++ {
					out = append(out, out[start+i])
				}
			}
		}
	}
	return out, nil
}
