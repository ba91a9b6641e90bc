// Package epfanim implements the khan/emot concatenation pass: EPF leaves
// routed here by epf.ShouldQueueForAnim are grouped by a (prefix, group)
// key derived from the leaf's own name, sorted by leaf name for a
// deterministic frame order, and concatenated into one animation artifact
// per group at "khan/<prefix>/<group>.epfanim".
//
// Grouping: prefix is "em" for a leaf name starting with "emot", else the
// leaf name's first two characters; group is "0"+name[4:6] for an "emot"
// leaf, else name[2:5]. The per-file suffix tag carried into the
// concatenated animation is "emot" for an "emot" leaf, else name[5:] with
// the ".epf" extension stripped.
package epfanim

import (
	"sort"
	"strings"

	"github.com/darkages-tools/legacytranscode/decode"
	"github.com/darkages-tools/legacytranscode/decode/epf"
	"github.com/darkages-tools/legacytranscode/internal/codec"
	"github.com/darkages-tools/legacytranscode/legacyerr"
)

// Animation is the codec-serialized concatenation of one group's frames.
type Animation struct {
	Frames []epf.AnimationFrame
}

type pendingEntry struct {
	leafName string
	suffix   string
	img      epf.Image
}

// Accumulator collects queued EPF images across the whole install run and
// emits one animation artifact per (prefix, group) key at Finalize.
type Accumulator struct {
	groups map[string][]pendingEntry
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{groups: make(map[string][]pendingEntry)}
}

// Add queues img, parsed from leafName, for later concatenation. Callers
// should only call this when epf.ShouldQueueForAnim(datBasename, leafName)
// is true.
func (a *Accumulator) Add(leafName string, img epf.Image) {
	prefix, group, suffix := deriveKey(leafName)
	key := prefix + "/" + group
	a.groups[key] = append(a.groups[key], pendingEntry{leafName: leafName, suffix: suffix, img: img})
}

// Finalize concatenates every accumulated group's frames in leaf-name order
// and returns one "khan/<prefix>/<group>.epfanim" artifact per group.
func (a *Accumulator) Finalize() ([]decode.Artifact, error) {
	keys := make([]string, 0, len(a.groups))
	for k := range a.groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var artifacts []decode.Artifact
	for _, key := range keys {
		entries := a.groups[key]
		sort.Slice(entries, func(i, j int) bool { return entries[i].leafName < entries[j].leafName })

		var frames []epf.AnimationFrame
		for _, e := range entries {
			frames = append(frames, epf.IntoAnimation(e.img, e.suffix)...)
		}

		enc, err := codec.Marshal(Animation{Frames: frames})
		if err != nil {
			return nil, &legacyerr.DecoderError{Kind: "epfanim", Leaf: key, Fatal: true, Err: err}
		}
		artifacts = append(artifacts, decode.Artifact{
			LogicalPath: "khan/" + key + ".epfanim",
			Bytes:       enc,
		})
	}
	return artifacts, nil
}

// deriveKey computes the (prefix, group, suffix) triple for leafName: an
// "emot"-prefixed name groups by "em"/"0"+name[4:6] with a constant "emot"
// suffix tag; every other name groups by its own first two/three characters
// with name[5:] (".epf" stripped) as the suffix tag.
func deriveKey(leafName string) (prefix, group, suffix string) {
	name := strings.ToLower(leafName)

	if strings.HasPrefix(name, "emot") {
		return "em", "0" + safeSlice(name, 4, 6), "emot"
	}
	prefix = safeSlice(name, 0, 2)
	group = safeSlice(name, 2, 5)
	suffix = strings.TrimSuffix(safeSlice(name, 5, len(name)), ".epf")
	return prefix, group, suffix
}

// safeSlice returns name[start:end], clamped to name's bounds, so a
// shorter-than-expected leaf name degrades gracefully instead of panicking.
func safeSlice(name string, start, end int) string {
	if start > len(name) {
		start = len(name)
	}
	if end > len(name) {
		end = len(name)
	}
	if end < start {
		end = start
	}
	return name[start:end]
}
