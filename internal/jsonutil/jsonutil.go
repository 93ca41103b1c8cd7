// Package jsonutil wraps sonic with the encoding/json compatible
// configuration (sorted map keys, HTML escaping) so generated documents are
// byte-stable.
package jsonutil

import (
	"io"

	"github.com/bytedance/sonic"
)

var api = sonic.ConfigStd

// Marshal returns the JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// MarshalIndent is like Marshal but applies indentation.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

// Unmarshal parses JSON data into v.
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// Encode writes the JSON encoding of v followed by a newline.
func Encode(w io.Writer, v any) error {
	return api.NewEncoder(w).Encode(v)
}

// EncodeIndent writes the indented JSON encoding of v.
func EncodeIndent(w io.Writer, v any, indent string) error {
	enc := api.NewEncoder(w)
	enc.SetIndent("", indent)
	return enc.Encode(v)
}

// Decode reads a single JSON value from r into v.
func Decode(r io.Reader, v any) error {
	return api.NewDecoder(r).Decode(v)
}
