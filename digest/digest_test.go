package digest

import (
	"encoding/binary"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSumKnownVectors checks Sum against the RFC 1321 test suite.
func TestSumKnownVectors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "d41d8cd98f00b204e9800998ecf8427e"},
		{"a", "0cc175b9c0f1b6a831c399e269772661"},
		{"abc", "900150983cd24fb0d6963f7d28e17f72"},
		{"message digest", "f96b697d7cb7938d525a2f31aaf161d0"},
		{"abcdefghijklmnopqrstuvwxyz", "c3fcd3d76192e4007dfb496cca67e13b"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, String(Sum([]byte(tt.input))))
		})
	}
}

// TestSumNilInput verifies that nil and empty input hash identically.
func TestSumNilInput(t *testing.T) {
	assert.Equal(t, Sum(nil), Sum([]byte{}))
}

// TestSumDeterministic hashes the same inputs from many goroutines and
// expects byte-identical results.
func TestSumDeterministic(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("PASSWORD1234abcd"),
		make([]byte, 4096),
		[]byte(strings.Repeat("echolink", 100)),
	}

	for _, in := range inputs {
		want := Sum(in)

		var wg sync.WaitGroup
		results := make([][Size]byte, 16)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = Sum(in)
			}(i)
		}
		wg.Wait()

		for _, got := range results {
			require.Equal(t, want, got)
		}
	}
}

// TestHex8AllBytes verifies every byte value renders through the lookup
// table and matches the single byte rendering of String.
func TestHex8AllBytes(t *testing.T) {
	for v := 0; v < 256; v++ {
		got := Hex8(byte(v))
		require.Len(t, got, 2)

		var d [Size]byte
		d[0] = byte(v)
		assert.Equal(t, got, String(d)[:2])

		for _, c := range got {
			assert.True(t, strings.ContainsRune("0123456789abcdef", c), "unexpected character %q", c)
		}
	}

	assert.Equal(t, "00", Hex8(0x00))
	assert.Equal(t, "0f", Hex8(0x0f))
	assert.Equal(t, "f0", Hex8(0xf0))
	assert.Equal(t, "ff", Hex8(0xff))
}

// TestHex32ByteOrder builds the input from explicit bytes so the test holds
// on hosts of either byte order.
func TestHex32ByteOrder(t *testing.T) {
	assert.Equal(t, "12345678", Hex32(0x12345678))

	bigEndian := binary.BigEndian.Uint32([]byte{0x12, 0x34, 0x56, 0x78})
	assert.Equal(t, "12345678", Hex32(bigEndian))

	littleEndian := binary.LittleEndian.Uint32([]byte{0x12, 0x34, 0x56, 0x78})
	assert.Equal(t, "78563412", Hex32(littleEndian))

	assert.Equal(t, "00000000", Hex32(0))
	assert.Equal(t, "ffffffff", Hex32(0xffffffff))
	assert.Equal(t, "000000ab", Hex32(0xab))
}

// TestStringLength checks the rendering length and alphabet.
func TestStringLength(t *testing.T) {
	s := String(Sum([]byte("W1AW")))
	assert.Len(t, s, 2*Size)
	assert.Equal(t, strings.ToLower(s), s)
	for _, c := range s {
		assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'))
	}
}
