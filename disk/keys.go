package disk

// KeyCodec maps cache keys to strings and back. The mapping must be
// injective: DecodeKey(EncodeKey(k)) == k for every key. The string form
// is further percent-escaped before it is used as a filename, so any
// string is acceptable output.
type KeyCodec[K comparable] interface {
	EncodeKey(k K) string
	DecodeKey(s string) (K, error)
}

type stringKeys struct{}

// StringKeys returns the identity KeyCodec for string keys.
func StringKeys() KeyCodec[string] { return stringKeys{} }

func (stringKeys) EncodeKey(k string) string          { return k }
func (stringKeys) DecodeKey(s string) (string, error) { return s, nil }
