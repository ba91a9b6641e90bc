// Package spf decodes SPF sprite frames into per-frame RGBA
// KTX2 artifacts.
//
// SPF's exact binary layout is, like MPF/EFA, an external spec not
// reproduced anywhere in this pack. Given the domain (this installer's
// other screen-sprite formats are all header+TOC shapes — see decode/epf),
// this decoder follows the same header+TOC convention, except SPF frames
// already carry raw RGBA bytes rather than indexed pixels needing a
// palette join.
package spf

import (
	"encoding/binary"
	"fmt"

	"github.com/darkages-tools/legacytranscode/decode"
	"github.com/darkages-tools/legacytranscode/internal/ktx2"
	"github.com/darkages-tools/legacytranscode/legacyerr"
)

const (
	headerSize   = 2
	tocEntrySize = 8 // u16 width, u16 height, u32 offset
)

// Decode parses data and emits one "<base>.<frame_index>.ktx2" artifact per
// frame with nonzero width and height. A parse failure is reported as a
// non-fatal *legacyerr.DecoderError so the installer logs and continues.
func Decode(base, leafName string, data []byte) ([]decode.Artifact, error) {
	if len(data) < headerSize {
		return nil, &legacyerr.DecoderError{Kind: "spf", Leaf: leafName, Fatal: false,
			Err: fmt.Errorf("spf: payload shorter than header")}
	}
	frameCount := int(binary.LittleEndian.Uint16(data[0:2]))
	tocStart := headerSize
	tocEnd := tocStart + frameCount*tocEntrySize
	if tocEnd > len(data) {
		return nil, &legacyerr.DecoderError{Kind: "spf", Leaf: leafName, Fatal: false,
			Err: fmt.Errorf("spf: toc exceeds payload of %d bytes", len(data))}
	}

	var artifacts []decode.Artifact
	for i := 0; i < frameCount; i++ {
		entry := data[tocStart+i*tocEntrySize : tocStart+(i+1)*tocEntrySize]
		width := binary.LittleEndian.Uint16(entry[0:2])
		height := binary.LittleEndian.Uint16(entry[2:4])
		offset := binary.LittleEndian.Uint32(entry[4:8])
		if width == 0 || height == 0 {
			continue
		}
		need := int(width) * int(height) * 4
		if int(offset)+need > len(data) {
			return nil, &legacyerr.DecoderError{Kind: "spf", Leaf: leafName, Fatal: false,
				Err: fmt.Errorf("spf: frame %d exceeds payload bounds", i)}
		}
		pix := data[int(offset) : int(offset)+need]
		enc, err := ktx2.Encode(ktx2.Header{Width: uint32(width), Height: uint32(height), Format: ktx2.FormatR8G8B8A8Unorm}, pix)
		if err != nil {
			return nil, &legacyerr.DecoderError{Kind: "spf", Leaf: leafName, Fatal: false, Err: err}
		}
		artifacts = append(artifacts, decode.Artifact{
			LogicalPath: decode.LeafPath(base, fmt.Sprintf("%s.%d.ktx2", leafName, i)),
			Bytes:       enc,
		})
	}
	return artifacts, nil
}
