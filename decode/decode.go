// Package decode defines the shared artifact type every format-specific
// decoder subpackage (tilesheet, hpf, mpf, efa, epf, spf, colortable,
// palette, epfanim) produces, and the DAT-leaf name matching helpers the
// installer's dispatch table uses to route each unpacked leaf to a
// decoder.
package decode

import "strings"

// Artifact is the logical object handed to the archive writer: a path plus
// the bytes that live at it.
type Artifact struct {
	LogicalPath string
	Bytes       []byte
}

// LeafPath joins a DAT's basename with a leaf's (possibly transformed) name,
// the default logical-path rule every decoder uses unless it is explicitly
// rerouted.
func LeafPath(datBasename, leafName string) string {
	return datBasename + "/" + leafName
}

// HasExt reports whether name ends in ext, case-insensitively.
func HasExt(name, ext string) bool {
	return strings.HasSuffix(strings.ToLower(name), ext)
}
