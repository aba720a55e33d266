package protocol

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"io"
	"strings"
	"testing"

	"github.com/opd-ai/openelp/limits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewChallenge tests challenge shape and that successive challenges differ.
func TestNewChallenge(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		c, err := NewChallenge()
		require.NoError(t, err)
		require.Len(t, c, ChallengeSize)
		_, err = ReadChallenge(strings.NewReader(c))
		require.NoError(t, err)
		seen[c] = true
	}
	assert.Greater(t, len(seen), 1)
}

// TestExpectedResponseMatchesMD5 tests the response against a direct MD5 of password+challenge.
func TestExpectedResponseMatchesMD5(t *testing.T) {
	sum := md5.Sum([]byte("PUBLIC" + "0badc0de"))
	assert.Equal(t, hex.EncodeToString(sum[:]), ExpectedResponse("PUBLIC", "0badc0de"))
}

// TestLoginExchange runs the client and proxy halves over a buffer.
func TestLoginExchange(t *testing.T) {
	challenge, err := NewChallenge()
	require.NoError(t, err)

	var wire bytes.Buffer
	require.NoError(t, WriteLogin(&wire, "W1AW-L", "secret", challenge))

	callsign, response, err := ReadLogin(bufio.NewReader(&wire))
	require.NoError(t, err)
	assert.Equal(t, "W1AW-L", callsign)
	assert.True(t, VerifyResponse("secret", challenge, response))
	assert.False(t, VerifyResponse("Secret", challenge, response))
	assert.False(t, VerifyResponse("secret", "00000000", response))
}

// TestReadLoginErrors tests malformed logins.
func TestReadLoginErrors(t *testing.T) {
	var response [ResponseSize]byte
	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{"no newline", []byte("W1AW"), io.EOF},
		{"empty callsign", append([]byte("\n"), response[:]...), limits.ErrCallsign},
		{"callsign too long", []byte(strings.Repeat("K", limits.MaxCallsign+1) + "\n"), limits.ErrCallsign},
		{"control byte", append([]byte("W1\tAW\n"), response[:]...), limits.ErrCallsign},
		{"short response", []byte("W1AW\n0123"), io.ErrUnexpectedEOF},
		{"missing response", []byte("W1AW\n"), io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadLogin(bufio.NewReader(bytes.NewReader(tt.input)))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// TestReadLoginMaxCallsign tests that a callsign of exactly the limit is accepted.
func TestReadLoginMaxCallsign(t *testing.T) {
	callsign := strings.Repeat("K", limits.MaxCallsign)
	var wire bytes.Buffer
	require.NoError(t, WriteLogin(&wire, callsign, "pw", "12345678"))

	got, _, err := ReadLogin(bufio.NewReader(&wire))
	require.NoError(t, err)
	assert.Equal(t, callsign, got)
}

// TestReadChallengeRejectsNonHex tests challenge validation on the client side.
func TestReadChallengeRejectsNonHex(t *testing.T) {
	_, err := ReadChallenge(strings.NewReader("0123456Z"))
	assert.ErrorIs(t, err, ErrBadChallenge)

	_, err = ReadChallenge(strings.NewReader("ABCDEF01"))
	assert.ErrorIs(t, err, ErrBadChallenge)

	_, err = ReadChallenge(strings.NewReader("0123"))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
