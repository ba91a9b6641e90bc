// Package epf decodes EPF sprite sheets: a fixed header, a
// table of per-frame bounding boxes, and per-frame indexed pixel payloads.
package epf

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/darkages-tools/legacytranscode/decode"
	"github.com/darkages-tools/legacytranscode/internal/codec"
	"github.com/darkages-tools/legacytranscode/legacyerr"
)

const (
	headerSize    = 12
	tocEntrySize  = 16
	mf03423Name   = "mf03423.epf"
)

// Frame is one sprite frame's indexed pixel payload. An empty frame (zero
// width, zero height, and nil Pixels) is valid.
type Frame struct {
	Width, Height uint16
	Pixels        []byte
}

// Image is the re-serializable EPF payload.
type Image struct {
	Width, Height uint16
	Frames        []Frame
}

// AnimationFrame is one frame of a concatenated animation produced by the
// khan/emot grouping pass.
type AnimationFrame struct {
	Suffix string
	Index  int
	Frame  Frame
}

// Parse reads the EPF header, TOC, and per-frame pixel payloads.
func Parse(data []byte) (Image, error) {
	if len(data) < headerSize {
		return Image{}, fmt.Errorf("epf: payload shorter than header (%d bytes)", len(data))
	}
	frameCount := binary.LittleEndian.Uint16(data[0:2])
	pixelWidth := binary.LittleEndian.Uint16(data[2:4])
	pixelHeight := binary.LittleEndian.Uint16(data[4:6])
	tocAddress := binary.LittleEndian.Uint32(data[8:12])

	img := Image{Width: pixelWidth, Height: pixelHeight, Frames: make([]Frame, frameCount)}

	tocEnd := int(tocAddress) + int(frameCount)*tocEntrySize
	if int(tocAddress) < 0 || tocEnd > len(data) {
		return Image{}, fmt.Errorf("epf: toc at %d (%d entries) exceeds payload of %d bytes", tocAddress, frameCount, len(data))
	}

	for i := 0; i < int(frameCount); i++ {
		base := int(tocAddress) + i*tocEntrySize
		top := binary.LittleEndian.Uint16(data[base : base+2])
		left := binary.LittleEndian.Uint16(data[base+2 : base+4])
		bottom := binary.LittleEndian.Uint16(data[base+4 : base+6])
		right := binary.LittleEndian.Uint16(data[base+6 : base+8])
		startAddr := binary.LittleEndian.Uint32(data[base+8 : base+12])

		width := int(right) - int(left)
		height := int(bottom) - int(top)
		available := len(data) - int(startAddr)

		if width <= 0 || height <= 0 || width*height > available || startAddr > uint32(len(data)) {
			img.Frames[i] = Frame{}
			continue
		}
		pix := make([]byte, width*height)
		copy(pix, data[int(startAddr):int(startAddr)+width*height])
		img.Frames[i] = Frame{Width: uint16(width), Height: uint16(height), Pixels: pix}
	}
	return img, nil
}

// ShouldQueueForAnim reports whether an EPF leaf is routed to the khan/emot
// concatenation pass instead of being emitted individually.
func ShouldQueueForAnim(datBasename, leafName string) bool {
	lower := strings.ToLower(leafName)
	if strings.HasPrefix(strings.ToLower(datBasename), "khan") {
		return true
	}
	if datBasename == "Legend" && strings.HasPrefix(lower, "emot") && lower != mf03423Name {
		return true
	}
	return false
}

// Decode parses data and emits a single "<dat-basename>/<leaf>.epf.bin"
// artifact. It does not consult ShouldQueueForAnim: leaves routed to the
// khan/emot pass are handled by calling Parse directly instead.
func Decode(datBasename, leafName string, data []byte) ([]decode.Artifact, error) {
	img, err := Parse(data)
	if err != nil {
		return nil, &legacyerr.DecoderError{Kind: "epf", Leaf: leafName, Fatal: false, Err: err}
	}
	enc, err := codec.Marshal(img)
	if err != nil {
		return nil, &legacyerr.DecoderError{Kind: "epf", Leaf: leafName, Fatal: false, Err: err}
	}
	return []decode.Artifact{{LogicalPath: decode.LeafPath(datBasename, leafName+".epf.bin"), Bytes: enc}}, nil
}

// IntoAnimation flattens img's frames into AnimationFrame records tagged
// with suffix, the per-file label used when concatenating across EPFs in
// the same khan/emot group.
func IntoAnimation(img Image, suffix string) []AnimationFrame {
	out := make([]AnimationFrame, len(img.Frames))
	for i, f := range img.Frames {
		out[i] = AnimationFrame{Suffix: suffix, Index: i, Frame: f}
	}
	return out
}
