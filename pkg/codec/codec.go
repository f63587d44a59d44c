// Package codec selects the serialization format used for snapshots and
// mutation payloads. CBOR is self-describing, so the caller's data type
// round-trips without an external schema.
package codec

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Marshal serializes v to its byte form.
func Marshal(v any) ([]byte, error) {
	buf, err := cbor.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("duralog: encode: %w", err)
	}
	return buf, nil
}

// Unmarshal deserializes buf into v.
func Unmarshal(buf []byte, v any) error {
	if err := cbor.Unmarshal(buf, v); err != nil {
		return fmt.Errorf("duralog: decode: %w", err)
	}
	return nil
}

// Encode serializes v directly to w.
func Encode(w io.Writer, v any) error {
	if err := cbor.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("duralog: encode: %w", err)
	}
	return nil
}

// Decode deserializes one value from r into v.
func Decode(r io.Reader, v any) error {
	if err := cbor.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("duralog: decode: %w", err)
	}
	return nil
}
