package highlights

import (
	"bytes"
	"unicode/utf16"
	"unicode/utf8"
)

var (
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
)

// DecodeString converts a raw PDF string to text. It tries, in order, UTF-16BE
// behind a FE FF marker, UTF-8 behind an EF BB BF marker and plain UTF-8. A
// payload that is malformed for its marker falls through to the next rule.
// As a last resort every byte becomes the rune of the same value, so decoding
// never fails.
func DecodeString(raw []byte) string {
	if bytes.HasPrefix(raw, bomUTF16BE) {
		if s, ok := decodeUTF16BE(raw[len(bomUTF16BE):]); ok {
			return s
		}
	}
	if bytes.HasPrefix(raw, bomUTF8) {
		if rest := raw[len(bomUTF8):]; utf8.Valid(rest) {
			return string(rest)
		}
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	return latin1(raw)
}

// decodeUTF16BE ignores a stray trailing byte.
func decodeUTF16BE(b []byte) (string, bool) {
	b = b[:len(b)&^1]
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
	for i := 0; i < len(units); i++ {
		u := rune(units[i])
		if !utf16.IsSurrogate(u) {
			continue
		}
		if u >= 0xDC00 || i+1 == len(units) {
			return "", false
		}
		next := rune(units[i+1])
		if next < 0xDC00 || next > 0xDFFF {
			return "", false
		}
		i++
	}
	return string(utf16.Decode(units)), true
}

func latin1(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
