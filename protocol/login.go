package protocol

import (
	"bufio"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/opd-ai/openelp/digest"
	"github.com/opd-ai/openelp/limits"
)

const (
	// ChallengeSize is the length of the login challenge in bytes.
	ChallengeSize = 8

	// ResponseSize is the length of the binary login response in bytes.
	ResponseSize = digest.Size
)

// ErrBadChallenge indicates a challenge that is not 8 lowercase hex digits.
var ErrBadChallenge = errors.New("malformed challenge")

// NewChallenge returns a fresh random challenge rendered with digest.Hex32.
func NewChallenge() (string, error) {
	var nonce [4]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generate challenge: %w", err)
	}
	return digest.Hex32(binary.BigEndian.Uint32(nonce[:])), nil
}

// Response returns the binary login response for secret and challenge.
func Response(secret, challenge string) [ResponseSize]byte {
	return digest.Sum([]byte(secret + challenge))
}

// ExpectedResponse returns the hex rendering of Response.
func ExpectedResponse(secret, challenge string) string {
	return digest.String(Response(secret, challenge))
}

// VerifyResponse renders the received response as hex and compares it with
// the expected rendering in constant time.
func VerifyResponse(secret, challenge string, response [ResponseSize]byte) bool {
	want := ExpectedResponse(secret, challenge)
	got := digest.String(response)
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

// ReadLogin reads the client's callsign line and binary response. The
// callsign is validated with limits.ValidateCallsign.
func ReadLogin(r *bufio.Reader) (string, [ResponseSize]byte, error) {
	var response [ResponseSize]byte

	line := make([]byte, 0, limits.MaxCallsign)
	for {
		c, err := r.ReadByte()
		if err != nil {
			return "", response, err
		}
		if c == '\n' {
			break
		}
		if len(line) == limits.MaxCallsign {
			return "", response, fmt.Errorf("%w: no newline within %d bytes", limits.ErrCallsign, limits.MaxCallsign)
		}
		line = append(line, c)
	}

	callsign := string(line)
	if err := limits.ValidateCallsign(callsign); err != nil {
		return "", response, err
	}

	if _, err := io.ReadFull(r, response[:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return "", response, err
	}

	return callsign, response, nil
}

// ReadChallenge reads and validates the proxy's challenge. It is the client
// half of the login exchange.
func ReadChallenge(r io.Reader) (string, error) {
	var buf [ChallengeSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return "", err
	}
	for _, c := range buf {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", fmt.Errorf("%w: %q", ErrBadChallenge, buf[:])
		}
	}
	return string(buf[:]), nil
}

// WriteLogin writes the client's login for challenge with a single Write.
func WriteLogin(w io.Writer, callsign, secret, challenge string) error {
	response := Response(secret, challenge)

	buf := make([]byte, 0, len(callsign)+1+ResponseSize)
	buf = append(buf, callsign...)
	buf = append(buf, '\n')
	buf = append(buf, response[:]...)

	_, err := w.Write(buf)
	return err
}
