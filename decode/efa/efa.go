// Package efa re-serializes EFA effect animation payloads.
// Like MPF (see decode/mpf), the EFA binary layout is an external spec not
// reproduced in this pack, so the payload is carried verbatim inside the
// shared codec envelope. Unlike MPF, an EFA parse failure is non-fatal: this
// decoder treats an empty payload as the detectable failure mode and
// logs-and-skips rather than erroring the whole install.
package efa

import (
	"fmt"

	"github.com/darkages-tools/legacytranscode/decode"
	"github.com/darkages-tools/legacytranscode/internal/codec"
	"github.com/darkages-tools/legacytranscode/legacyerr"
)

// Image is the re-serializable EFA payload.
type Image struct {
	Raw []byte
}

// Decode wraps data in the codec envelope and emits
// "<dat-basename>/<leaf>.efa.bin". An empty payload is reported as a
// non-fatal *legacyerr.DecoderError so the installer can log and continue
// rather than abort.
func Decode(datBasename, leafName string, data []byte) ([]decode.Artifact, error) {
	if len(data) == 0 {
		return nil, &legacyerr.DecoderError{Kind: "efa", Leaf: leafName, Fatal: false,
			Err: fmt.Errorf("empty efa payload")}
	}
	enc, err := codec.Marshal(Image{Raw: data})
	if err != nil {
		return nil, &legacyerr.DecoderError{Kind: "efa", Leaf: leafName, Fatal: false, Err: err}
	}
	return []decode.Artifact{{LogicalPath: decode.LeafPath(datBasename, leafName+".efa.bin"), Bytes: enc}}, nil
}
