package disk

import (
	"errors"
	"strings"
)

// Filename escaping: a key is stored under a percent-encoded form of
// itself. Only ASCII letters, digits, '-' and '_' pass through; every
// other byte (including '%', '/', '\' and '.') becomes %XX. Because dots
// are always escaped, an encoded name can never be "." or "..", and
// because separators are escaped it can never leave the cache directory.
// Decoding recovers the exact original key, so the mapping is injective.

var errBadFilename = errors.New("disk: malformed escaped filename")

const hexDigits = "0123456789ABCDEF"

// emptyName stands in for the empty key. A bare '%' cannot be produced by
// escaping any other key ('%' in a key always becomes "%25"), so the
// mapping stays injective.
const emptyName = "%"

func escapeFilename(key string) string {
	if key == "" {
		return emptyName
	}
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if isSafeByte(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0xF])
	}
	return b.String()
}

func unescapeFilename(name string) (string, error) {
	if name == emptyName {
		return "", nil
	}
	if name == "" {
		return "", errBadFilename
	}
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c != '%' {
			if !isSafeByte(c) {
				return "", errBadFilename
			}
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(name) {
			return "", errBadFilename
		}
		hi, ok1 := unhex(name[i+1])
		lo, ok2 := unhex(name[i+2])
		if !ok1 || !ok2 {
			return "", errBadFilename
		}
		b.WriteByte(hi<<4 | lo)
		i += 2
	}
	return b.String(), nil
}

func isSafeByte(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '-' || c == '_'
}

// unhex only accepts the uppercase digits escapeFilename emits: a name
// with lowercase hex was not written by this tier, and accepting it
// would let two filenames decode to the same key.
func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
