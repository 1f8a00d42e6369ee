// Package codec defines how cached values are serialized for the disk tier.
//
// A Codec is supplied per cache instance; the tiers treat it as an external
// collaborator and never interpret the produced bytes.
package codec

import "encoding/json"

// Codec converts values to and from their stored byte form.
// Decode(Encode(v)) must return a value equal to v.
type Codec[V any] interface {
	Encode(v V) ([]byte, error)
	Decode(data []byte) (V, error)
}

// jsonCodec serializes values with encoding/json.
type jsonCodec[V any] struct{}

// JSON returns a Codec backed by encoding/json. Suitable for any value
// type that round-trips through JSON.
func JSON[V any]() Codec[V] { return jsonCodec[V]{} }

func (jsonCodec[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec[V]) Decode(data []byte) (V, error) {
	var v V
	err := json.Unmarshal(data, &v)
	return v, err
}

// bytesCodec stores raw byte blobs as-is.
type bytesCodec struct{}

// Bytes returns the identity Codec for raw []byte values. Use it together
// with hard-link adoption, where file contents are not produced by Encode.
func Bytes() Codec[[]byte] { return bytesCodec{} }

func (bytesCodec) Encode(v []byte) ([]byte, error) { return v, nil }

func (bytesCodec) Decode(data []byte) ([]byte, error) { return data, nil }

// funcCodec adapts a pair of plain functions to the Codec interface.
type funcCodec[V any] struct {
	enc func(V) ([]byte, error)
	dec func([]byte) (V, error)
}

// Funcs adapts caller-supplied encode/decode functions to a Codec.
func Funcs[V any](enc func(V) ([]byte, error), dec func([]byte) (V, error)) Codec[V] {
	return funcCodec[V]{enc: enc, dec: dec}
}

func (c funcCodec[V]) Encode(v V) ([]byte, error) { return c.enc(v) }

func (c funcCodec[V]) Decode(data []byte) (V, error) { return c.dec(data) }
