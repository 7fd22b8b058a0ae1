package device

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DetectAndDecode sniffs the encoding of an export file, strips any BOM,
// and returns UTF-8 bytes plus the detected encoding name. Vendor export
// tools on Windows produce UTF-16 and Latin-1 files routinely; bytes that
// are neither BOM-marked nor valid UTF-8 are treated as Latin-1, which
// cannot fail.
func DetectAndDecode(data []byte) ([]byte, string) {
	if len(data) == 0 {
		return data, "utf-8"
	}
	if bytes.HasPrefix(data, bomUTF8) {
		return data[3:], "utf-8-bom"
	}
	if bytes.HasPrefix(data, bomUTF16LE) {
		return decodeUTF16(data[2:], binary.LittleEndian), "utf-16le"
	}
	if bytes.HasPrefix(data, bomUTF16BE) {
		return decodeUTF16(data[2:], binary.BigEndian), "utf-16be"
	}
	if utf8.Valid(data) {
		return data, "utf-8"
	}
	return decodeLatin1(data), "latin-1"
}

// decodeLatin1 maps ISO 8859-1 bytes directly to code points U+0000..U+00FF.
func decodeLatin1(data []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(data) * 2)
	for _, b := range data {
		buf.WriteRune(rune(b))
	}
	return buf.Bytes()
}

// decodeUTF16 converts UTF-16 bytes in the given order to UTF-8. An odd
// trailing byte is dropped; broken surrogates become U+FFFD.
func decodeUTF16(data []byte, order binary.ByteOrder) []byte {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for i := 0; i < len(data); i += 2 {
		unit := order.Uint16(data[i : i+2])

		switch {
		case unit >= 0xD800 && unit <= 0xDBFF:
			// High surrogate; needs a low surrogate to complete the pair.
			if i+3 < len(data) {
				low := order.Uint16(data[i+2 : i+4])
				if low >= 0xDC00 && low <= 0xDFFF {
					buf.WriteRune(0x10000 + (rune(unit-0xD800)<<10 | rune(low-0xDC00)))
					i += 2
					continue
				}
			}
			buf.WriteRune(utf8.RuneError)
		case unit >= 0xDC00 && unit <= 0xDFFF:
			// Lone low surrogate.
			buf.WriteRune(utf8.RuneError)
		default:
			buf.WriteRune(rune(unit))
		}
	}
	return buf.Bytes()
}
