// Package palette implements the palette bundle pass: for a
// fixed set of (dat_name, palette_name) pairs, it concatenates every
// buffered .tbl/.pal file sharing that palette_name prefix within the
// emitting DAT into a range-table artifact and a super-palette raster, then
// (except for the khanpal DAT) re-emits whatever .tbl/.pal files were left
// over untouched at their original names.
//
// This pass needs every deferred .tbl/.pal leaf of a DAT available at once,
// unlike every other format decoder under decode/, which holds at most one
// sub-file's bytes in memory at a time.
package palette

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/darkages-tools/legacytranscode/decode"
	"github.com/darkages-tools/legacytranscode/internal/codec"
	"github.com/darkages-tools/legacytranscode/internal/ktx2"
	"github.com/darkages-tools/legacytranscode/legacyerr"
)

// Leaf is a deferred .tbl/.pal sub-file buffered for the current DAT.
type Leaf struct {
	Name string
	Data []byte
}

// Pairs enumerates the fixed (dat_name, palette_name) combinations this pass
// handles. khanpal carries many palette names within one DAT.
var Pairs = map[string][]string{
	"seo":     {"mpt"},
	"ia":      {"stc", "sts"},
	"khanpal": {"palb", "palc", "pale", "palf", "palh", "pali", "pall", "palm", "palp", "palu", "palw"},
	"hades":   {"mns"},
	"setoa":   {"gui"},
	"Legend":  {"item"},
	"roh":     {"eff"},
}

const rasterSize = 256 * 256 * 4
const perFilePad = 256 * 4

// RangeTable is the codec-serialized interval map for one palette/partition.
type RangeTable struct {
	Entries []RangeEntry
}

// RangeEntry is a half-open [Start, End) interval mapping to Value.
type RangeEntry struct {
	Start, End, Value uint16
}

// Decode runs the full palette bundle pass for one DAT's deferred leaves.
func Decode(datBasename string, leaves []Leaf) ([]decode.Artifact, error) {
	consumed := make(map[string]bool)
	var artifacts []decode.Artifact

	for _, paletteName := range Pairs[datBasename] {
		rt, rtConsumed, err := buildRangeTables(datBasename, paletteName, leaves)
		if err != nil {
			return nil, err
		}
		for _, a := range rt {
			artifacts = append(artifacts, a)
		}
		for n := range rtConsumed {
			consumed[n] = true
		}

		sp, spConsumed, err := buildSuperPalette(datBasename, paletteName, leaves)
		if err != nil {
			return nil, err
		}
		if sp != nil {
			artifacts = append(artifacts, *sp)
		}
		for n := range spConsumed {
			consumed[n] = true
		}
	}

	if datBasename != "khanpal" {
		for _, leaf := range leaves {
			if consumed[leaf.Name] {
				continue
			}
			if decode.HasExt(leaf.Name, ".tbl") || decode.HasExt(leaf.Name, ".pal") {
				artifacts = append(artifacts, decode.Artifact{
					LogicalPath: decode.LeafPath(datBasename, leaf.Name),
					Bytes:       leaf.Data,
				})
			}
		}
	}
	return artifacts, nil
}

var excludedTblSuffixes = []string{"ani.tbl", "attr.tbl", "effect.tbl"}

func buildRangeTables(datBasename, paletteName string, leaves []Leaf) ([]decode.Artifact, map[string]bool, error) {
	consumed := make(map[string]bool)
	if datBasename == "hades" {
		return nil, consumed, nil
	}

	var matches []Leaf
	for _, l := range leaves {
		lower := strings.ToLower(l.Name)
		if !strings.HasPrefix(lower, strings.ToLower(paletteName)) || !strings.HasSuffix(lower, ".tbl") {
			continue
		}
		excluded := false
		for _, suf := range excludedTblSuffixes {
			if strings.HasSuffix(lower, suf) {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		matches = append(matches, l)
		consumed[l.Name] = true
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })

	var all []byte
	for _, m := range matches {
		all = append(all, m.Data...)
	}
	lines := splitCRLF(all)

	general, male, female := make([]RangeEntry, 0), make([]RangeEntry, 0), make([]RangeEntry, 0)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		bucket := &general
		if strings.HasSuffix(line, " -1") {
			bucket = &male
			line = strings.TrimSuffix(line, " -1")
		} else if strings.HasSuffix(line, " -2") {
			bucket = &female
			line = strings.TrimSuffix(line, " -2")
		}
		entry, err := parseRangeLine(line)
		if err != nil {
			return nil, nil, &legacyerr.DecoderError{Kind: "palette", Leaf: paletteName, Fatal: true, Err: err}
		}
		*bucket = append(*bucket, entry)
	}

	var artifacts []decode.Artifact
	for suffix, entries := range map[string][]RangeEntry{"": general, "_m": male, "_f": female} {
		if len(entries) == 0 {
			continue
		}
		enc, err := codec.Marshal(RangeTable{Entries: entries})
		if err != nil {
			return nil, nil, &legacyerr.DecoderError{Kind: "palette", Leaf: paletteName, Fatal: true, Err: err}
		}
		artifacts = append(artifacts, decode.Artifact{
			LogicalPath: decode.LeafPath(datBasename, fmt.Sprintf("%s%s.tbl.bin", paletteName, suffix)),
			Bytes:       enc,
		})
	}
	return artifacts, consumed, nil
}

func parseRangeLine(line string) (RangeEntry, error) {
	fields := strings.Fields(line)
	switch len(fields) {
	case 3:
		start, err1 := strconv.Atoi(fields[0])
		endOrID, err2 := strconv.Atoi(fields[1])
		id, err3 := strconv.Atoi(fields[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return RangeEntry{}, fmt.Errorf("invalid range line %q", line)
		}
		return RangeEntry{Start: uint16(start), End: uint16(endOrID + 1), Value: uint16(id)}, nil
	case 2:
		start, err1 := strconv.Atoi(fields[0])
		endOrID, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			return RangeEntry{}, fmt.Errorf("invalid range line %q", line)
		}
		return RangeEntry{Start: uint16(start), End: uint16(start + 1), Value: uint16(endOrID)}, nil
	default:
		return RangeEntry{}, fmt.Errorf("invalid range line %q", line)
	}
}

func buildSuperPalette(datBasename, paletteName string, leaves []Leaf) (*decode.Artifact, map[string]bool, error) {
	consumed := make(map[string]bool)
	var matches []Leaf
	for _, l := range leaves {
		lower := strings.ToLower(l.Name)
		if strings.HasPrefix(lower, strings.ToLower(paletteName)) && strings.HasSuffix(lower, ".pal") {
			matches = append(matches, l)
			consumed[l.Name] = true
		}
	}
	if len(matches) == 0 {
		return nil, consumed, nil
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })

	raster := make([]byte, 0, rasterSize)
	for _, m := range matches {
		expanded := make([]byte, 0, len(m.Data)/3*4)
		for i := 0; i+3 <= len(m.Data); i += 3 {
			expanded = append(expanded, m.Data[i], m.Data[i+1], m.Data[i+2], 0xFF)
		}
		if len(expanded) < perFilePad {
			expanded = append(expanded, make([]byte, perFilePad-len(expanded))...)
		} else if len(expanded) > perFilePad {
			expanded = expanded[:perFilePad]
		}
		raster = append(raster, expanded...)
	}
	if len(raster) < rasterSize {
		raster = append(raster, make([]byte, rasterSize-len(raster))...)
	} else if len(raster) > rasterSize {
		raster = raster[:rasterSize]
	}

	enc, err := ktx2.Encode(ktx2.Header{Width: 256, Height: 256, Format: ktx2.FormatR8G8B8A8Unorm}, raster)
	if err != nil {
		return nil, nil, &legacyerr.DecoderError{Kind: "palette", Leaf: paletteName, Fatal: true, Err: err}
	}
	return &decode.Artifact{LogicalPath: decode.LeafPath(datBasename, paletteName+".ktx2"), Bytes: enc}, consumed, nil
}

func splitCRLF(b []byte) []string {
	return strings.Split(string(b), "\r\n")
}
