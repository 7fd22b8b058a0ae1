package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectAndDecodePlainUTF8(t *testing.T) {
	data := []byte("device_user_id,name\n7,Said Bouzit\n")
	decoded, enc := DetectAndDecode(data)
	assert.Equal(t, "utf-8", enc)
	assert.Equal(t, data, decoded)
}

func TestDetectAndDecodeUTF8BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a,b\n")...)
	decoded, enc := DetectAndDecode(data)
	assert.Equal(t, "utf-8-bom", enc)
	assert.Equal(t, "a,b\n", string(decoded))
}

func TestDetectAndDecodeUTF16LE(t *testing.T) {
	// "id" with FF FE BOM.
	data := []byte{0xFF, 0xFE, 'i', 0x00, 'd', 0x00}
	decoded, enc := DetectAndDecode(data)
	assert.Equal(t, "utf-16le", enc)
	assert.Equal(t, "id", string(decoded))
}

func TestDetectAndDecodeUTF16BE(t *testing.T) {
	data := []byte{0xFE, 0xFF, 0x00, 'i', 0x00, 'd'}
	decoded, enc := DetectAndDecode(data)
	assert.Equal(t, "utf-16be", enc)
	assert.Equal(t, "id", string(decoded))
}

func TestDetectAndDecodeUTF16SurrogatePair(t *testing.T) {
	// U+10000 encoded as D800 DC00 little-endian.
	data := []byte{0xFF, 0xFE, 0x00, 0xD8, 0x00, 0xDC}
	decoded, enc := DetectAndDecode(data)
	assert.Equal(t, "utf-16le", enc)
	assert.Equal(t, "\U00010000", string(decoded))
}

func TestDetectAndDecodeLoneSurrogate(t *testing.T) {
	data := []byte{0xFF, 0xFE, 0x00, 0xD8, 'x', 0x00}
	decoded, _ := DetectAndDecode(data)
	assert.Equal(t, "�x", string(decoded))
}

func TestDetectAndDecodeLatin1Fallback(t *testing.T) {
	// 0xE9 is é in Latin-1 and invalid as a standalone UTF-8 byte.
	data := []byte{'c', 'a', 'f', 0xE9}
	decoded, enc := DetectAndDecode(data)
	assert.Equal(t, "latin-1", enc)
	assert.Equal(t, "café", string(decoded))
}

func TestDetectAndDecodeEmpty(t *testing.T) {
	decoded, enc := DetectAndDecode(nil)
	assert.Equal(t, "utf-8", enc)
	assert.Empty(t, decoded)
}

func TestDetectAndDecodeOddLengthUTF16(t *testing.T) {
	// Trailing odd byte is dropped rather than failing.
	data := []byte{0xFF, 0xFE, 'a', 0x00, 'b'}
	decoded, enc := DetectAndDecode(data)
	assert.Equal(t, "utf-16le", enc)
	assert.Equal(t, "a", string(decoded))
}
