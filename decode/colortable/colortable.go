// Package colortable decodes the color0.tbl dye table into a
// single 256x256 RGBA KTX2 raster.
package colortable

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/darkages-tools/legacytranscode/decode"
	"github.com/darkages-tools/legacytranscode/internal/ktx2"
	"github.com/darkages-tools/legacytranscode/legacyerr"
)

// DyeRowStart is the fixed column offset where each palette's colors begin.
const DyeRowStart = 98

const (
	tableSize = 256
	bpp       = 4
)

// Decode parses data as color0.tbl text and emits "<dat>/color0.ktx2".
func Decode(datBasename, leafName string, data []byte) ([]decode.Artifact, error) {
	lines := nonEmptyLines(string(data))
	if len(lines) == 0 {
		return nil, &legacyerr.DecoderError{Kind: "colortable", Leaf: leafName, Fatal: true,
			Err: fmt.Errorf("empty color table")}
	}

	colorsPerPalette, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil || colorsPerPalette <= 0 {
		return nil, &legacyerr.DecoderError{Kind: "colortable", Leaf: leafName, Fatal: true,
			Err: fmt.Errorf("invalid colors_per_palette line %q", lines[0])}
	}
	groupSize := colorsPerPalette + 1
	rest := lines[1:]
	if len(rest)%groupSize != 0 {
		return nil, &legacyerr.DecoderError{Kind: "colortable", Leaf: leafName, Fatal: true,
			Err: fmt.Errorf("line count %d is not a multiple of group size %d", len(rest), groupSize)}
	}

	buf := make([]byte, tableSize*tableSize*bpp)
	for g := 0; g+groupSize <= len(rest); g += groupSize {
		paletteIdx, err := strconv.Atoi(strings.TrimSpace(rest[g]))
		if err != nil || paletteIdx < 0 || paletteIdx >= tableSize {
			return nil, &legacyerr.DecoderError{Kind: "colortable", Leaf: leafName, Fatal: true,
				Err: fmt.Errorf("invalid palette index line %q", rest[g])}
		}
		rowBase := paletteIdx * tableSize * bpp
		for i := 0; i < colorsPerPalette; i++ {
			r, gg, b, err := parseRGB(rest[g+1+i])
			if err != nil {
				return nil, &legacyerr.DecoderError{Kind: "colortable", Leaf: leafName, Fatal: true, Err: err}
			}
			col := DyeRowStart + i
			if col >= tableSize {
				continue
			}
			off := rowBase + col*bpp
			buf[off+0] = r
			buf[off+1] = gg
			buf[off+2] = b
			buf[off+3] = 255
		}
	}

	enc, err := ktx2.Encode(ktx2.Header{Width: tableSize, Height: tableSize, Format: ktx2.FormatR8G8B8A8Unorm}, buf)
	if err != nil {
		return nil, &legacyerr.DecoderError{Kind: "colortable", Leaf: leafName, Fatal: true, Err: err}
	}
	return []decode.Artifact{{LogicalPath: decode.LeafPath(datBasename, "color0.ktx2"), Bytes: enc}}, nil
}

func nonEmptyLines(s string) []string {
	raw := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	var out []string
	for _, l := range raw {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func parseRGB(line string) (r, g, b byte, err error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid color line %q", line)
	}
	vals := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return 0, 0, 0, fmt.Errorf("invalid color component %q in line %q", p, line)
		}
		vals[i] = v
	}
	return byte(vals[0]), byte(vals[1]), byte(vals[2]), nil
}
