// Package limits provides centralized size limits for the proxy protocol.
// This ensures consistent validation across the codec and the session engine.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxCallsign is the longest callsign accepted during login, including
	// suffixes such as "-L" or "-R".
	MaxCallsign = 32

	// MaxMessageData is the largest payload carried by one proxy message.
	// EchoLink control and audio frames are far smaller; anything above this
	// is treated as a corrupt stream.
	MaxMessageData = 4096

	// MaxDatagram is the receive buffer for relayed UDP datagrams.
	MaxDatagram = 4096

	// MaxPassword is the longest shared secret the configuration accepts.
	MaxPassword = 256
)

var (
	// ErrMessageTooLarge indicates a payload exceeds MaxMessageData.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrCallsign indicates a malformed callsign.
	ErrCallsign = errors.New("invalid callsign")
)

// ValidateMessageSize checks a declared payload size against MaxMessageData.
// Empty payloads are valid; TCP_CLOSE carries none.
func ValidateMessageSize(size uint32) error {
	if size > MaxMessageData {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrMessageTooLarge, size, MaxMessageData)
	}
	return nil
}

// ValidateMessageData checks a payload against MaxMessageData.
func ValidateMessageData(data []byte) error {
	return ValidateMessageSize(uint32(len(data)))
}

// ValidateCallsign checks that a callsign is non-empty, not longer than
// MaxCallsign and made only of printable ASCII without spaces.
func ValidateCallsign(callsign string) error {
	if len(callsign) == 0 {
		return fmt.Errorf("%w: empty", ErrCallsign)
	}
	if len(callsign) > MaxCallsign {
		return fmt.Errorf("%w: length %d exceeds limit %d", ErrCallsign, len(callsign), MaxCallsign)
	}
	for i := 0; i < len(callsign); i++ {
		if c := callsign[i]; c <= ' ' || c > '~' {
			return fmt.Errorf("%w: byte 0x%02x at offset %d", ErrCallsign, c, i)
		}
	}
	return nil
}
