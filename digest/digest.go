package digest

import (
	"crypto/md5"
)

// Size is the length of a digest value in bytes.
const Size = md5.Size

// lookup maps a nibble to its lowercase hexadecimal character.
var lookup = [16]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', 'a', 'b', 'c', 'd', 'e', 'f'}

// Sum returns the digest of data. It is defined for every input length,
// including empty and nil input.
func Sum(data []byte) [Size]byte {
	return md5.Sum(data)
}

// Hex8 renders a single byte as two lowercase hexadecimal characters, high
// nibble first.
func Hex8(b byte) string {
	var out [2]byte
	putHex8(out[:], b)
	return string(out[:])
}

// Hex32 renders v as eight lowercase hexadecimal characters with the most
// significant byte first. The result does not depend on host byte order.
func Hex32(v uint32) string {
	var out [8]byte
	putHex8(out[0:2], byte(v>>24))
	putHex8(out[2:4], byte(v>>16))
	putHex8(out[4:6], byte(v>>8))
	putHex8(out[6:8], byte(v))
	return string(out[:])
}

// String renders a digest value as 2*Size lowercase hexadecimal characters,
// starting from index 0.
func String(d [Size]byte) string {
	var out [2 * Size]byte
	for i, b := range d {
		putHex8(out[2*i:], b)
	}
	return string(out[:])
}

// putHex8 writes the two characters for b into dst[0:2].
func putHex8(dst []byte, b byte) {
	dst[0] = lookup[b>>4]
	dst[1] = lookup[b&0x0f]
}
