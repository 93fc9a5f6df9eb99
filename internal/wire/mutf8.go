package wire

import (
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// String fields use the JVM's modified UTF-8: NUL travels as C0 80 and
// runes outside the BMP travel as a pair of 3-byte surrogates. Plain 4-byte
// UTF-8 sequences are accepted on decode as well.

func errInvalidString(off int) error {
	return fmt.Errorf("%w: invalid modified UTF-8 at byte %d of string field", ErrMalformedMessage, off)
}

func plainASCII(b []byte) bool {
	for _, c := range b {
		if c == 0 || c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func isContinuation(c byte) bool {
	return c&0xC0 == 0x80
}

func decodeThreeByte(b []byte) (rune, bool) {
	if len(b) < 3 || b[0]&0xF0 != 0xE0 || !isContinuation(b[1]) || !isContinuation(b[2]) {
		return 0, false
	}
	return rune(b[0]&0x0F)<<12 | rune(b[1]&0x3F)<<6 | rune(b[2]&0x3F), true
}

func decodeModifiedUTF8(b []byte) (string, error) {
	if plainASCII(b) {
		return string(b), nil
	}

	var sb strings.Builder
	sb.Grow(len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < utf8.RuneSelf:
			sb.WriteByte(c)
			i++

		case c&0xE0 == 0xC0:
			if i+1 >= len(b) || !isContinuation(b[i+1]) {
				return "", errInvalidString(i)
			}
			r := rune(c&0x1F)<<6 | rune(b[i+1]&0x3F)
			if r != 0 && r < 0x80 {
				return "", errInvalidString(i)
			}
			sb.WriteRune(r)
			i += 2

		case c&0xF0 == 0xE0:
			r, ok := decodeThreeByte(b[i:])
			if !ok || (r < 0x800) {
				return "", errInvalidString(i)
			}
			if utf16.IsSurrogate(r) {
				lo, ok := decodeThreeByte(b[i+3:])
				if !ok || r >= 0xDC00 || lo < 0xDC00 || lo > 0xDFFF {
					return "", errInvalidString(i)
				}
				r = utf16.DecodeRune(r, lo)
				i += 3
			}
			sb.WriteRune(r)
			i += 3

		case c&0xF8 == 0xF0:
			r, size := utf8.DecodeRune(b[i:])
			if r == utf8.RuneError && size <= 1 {
				return "", errInvalidString(i)
			}
			sb.WriteRune(r)
			i += size

		default:
			return "", errInvalidString(i)
		}
	}
	return sb.String(), nil
}

func appendThreeByte(dst []byte, r rune) []byte {
	return append(dst, 0xE0|byte(r>>12), 0x80|byte(r>>6)&0x3F, 0x80|byte(r)&0x3F)
}

// appendModifiedUTF8 encodes s the way DataOutputStream.writeUTF does.
// Invalid UTF-8 in s is replaced with U+FFFD.
func appendModifiedUTF8(dst []byte, s string) []byte {
	for _, r := range s {
		switch {
		case r == 0:
			dst = append(dst, 0xC0, 0x80)
		case r < utf8.RuneSelf:
			dst = append(dst, byte(r))
		case r < 0x800:
			dst = append(dst, 0xC0|byte(r>>6), 0x80|byte(r)&0x3F)
		case r < 0x10000:
			dst = appendThreeByte(dst, r)
		default:
			hi, lo := utf16.EncodeRune(r)
			dst = appendThreeByte(appendThreeByte(dst, hi), lo)
		}
	}
	return dst
}
