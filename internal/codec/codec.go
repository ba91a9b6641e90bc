// Package codec implements the single binary serialization used for every
// structured artifact the format decoders emit (MPF, EFA, EPF, epfanim,
// palette range tables). It is deliberately the same codec across all of
// them, per §4.6: a small versioned envelope around encoding/gob, which
// gives deterministic bytes for a given Go gob runtime and a given input
// value without hand-rolling a TLV format. The envelope lets a future
// format revision bump Version without breaking readers of old archives.
package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Version identifies the envelope layout. Bump when the envelope itself
// (not the payload types) changes shape.
const Version = 1

type envelope struct {
	Version int
	Payload []byte
}

// Marshal encodes v (which must be registered with gob if it is an
// interface-holding type) into a versioned envelope.
func Marshal(v interface{}) ([]byte, error) {
	var inner bytes.Buffer
	if err := gob.NewEncoder(&inner).Encode(v); err != nil {
		return nil, fmt.Errorf("codec: encode payload: %w", err)
	}
	var outer bytes.Buffer
	if err := gob.NewEncoder(&outer).Encode(envelope{Version: Version, Payload: inner.Bytes()}); err != nil {
		return nil, fmt.Errorf("codec: encode envelope: %w", err)
	}
	return outer.Bytes(), nil
}

// Unmarshal decodes bytes previously produced by Marshal into v.
func Unmarshal(b []byte, v interface{}) error {
	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&env); err != nil {
		return fmt.Errorf("codec: decode envelope: %w", err)
	}
	if env.Version != Version {
		return fmt.Errorf("codec: unsupported envelope version %d", env.Version)
	}
	if err := gob.NewDecoder(bytes.NewReader(env.Payload)).Decode(v); err != nil {
		return fmt.Errorf("codec: decode payload: %w", err)
	}
	return nil
}
