package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/netip"

	"github.com/opd-ai/openelp/limits"
)

// Type identifies the kind of a proxy message.
type Type byte

const (
	// TypeTCPOpen asks the proxy to connect to the peer's TCP port.
	TypeTCPOpen Type = iota + 1
	// TypeTCPData carries bytes of the relayed TCP stream.
	TypeTCPData
	// TypeTCPClose closes the relayed TCP stream.
	TypeTCPClose
	// TypeTCPStatus reports the outcome of a TypeTCPOpen request.
	TypeTCPStatus
	// TypeUDPData carries an audio datagram.
	TypeUDPData
	// TypeUDPControl carries a control datagram.
	TypeUDPControl
	// TypeSystem carries a proxy notice such as a rejected login.
	TypeSystem
)

// HeaderSize is the length of a message header in bytes.
const HeaderSize = 9

// System notice codes carried in the single payload byte of TypeSystem.
const (
	SystemBadPassword  byte = 1
	SystemAccessDenied byte = 2
)

// StatusOK is the TypeTCPStatus code for a successful connect.
const StatusOK uint32 = 0

var (
	// ErrUnknownType indicates a header with an undefined message type.
	ErrUnknownType = errors.New("unknown message type")

	// ErrShortMessage indicates a buffer shorter than its header declares.
	ErrShortMessage = errors.New("message too short")

	// ErrNotIPv4 indicates an address that cannot be carried in a header.
	ErrNotIPv4 = errors.New("address is not IPv4")
)

// String returns the name of the message type.
func (t Type) String() string {
	switch t {
	case TypeTCPOpen:
		return "TCP_OPEN"
	case TypeTCPData:
		return "TCP_DATA"
	case TypeTCPClose:
		return "TCP_CLOSE"
	case TypeTCPStatus:
		return "TCP_STATUS"
	case TypeUDPData:
		return "UDP_DATA"
	case TypeUDPControl:
		return "UDP_CONTROL"
	case TypeSystem:
		return "SYSTEM"
	default:
		return fmt.Sprintf("TYPE(%d)", byte(t))
	}
}

// Valid reports whether t is a defined message type.
func (t Type) Valid() bool {
	return t >= TypeTCPOpen && t <= TypeSystem
}

// Message is one framed proxy message.
type Message struct {
	Type    Type
	Address netip.Addr
	Data    []byte
}

// encodeAddress returns the 4 header bytes for addr. The zero Addr encodes
// as 0.0.0.0.
func encodeAddress(addr netip.Addr) ([4]byte, error) {
	if !addr.IsValid() {
		return [4]byte{}, nil
	}
	addr = addr.Unmap()
	if !addr.Is4() {
		return [4]byte{}, fmt.Errorf("%w: %s", ErrNotIPv4, addr)
	}
	return addr.As4(), nil
}

// Serialize converts a message to its wire representation.
func (m *Message) Serialize() ([]byte, error) {
	if !m.Type.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, byte(m.Type))
	}
	if err := limits.ValidateMessageData(m.Data); err != nil {
		return nil, err
	}
	addr, err := encodeAddress(m.Address)
	if err != nil {
		return nil, err
	}

	// Format: [type (1)][address (4)][size (4, little-endian)][data]
	result := make([]byte, HeaderSize+len(m.Data))
	result[0] = byte(m.Type)
	copy(result[1:5], addr[:])
	binary.LittleEndian.PutUint32(result[5:9], uint32(len(m.Data)))
	copy(result[HeaderSize:], m.Data)

	return result, nil
}

// parseHeader decodes a header and validates the type and declared size.
func parseHeader(header []byte) (Type, netip.Addr, uint32, error) {
	t := Type(header[0])
	if !t.Valid() {
		return 0, netip.Addr{}, 0, fmt.Errorf("%w: %d", ErrUnknownType, header[0])
	}

	var raw [4]byte
	copy(raw[:], header[1:5])
	size := binary.LittleEndian.Uint32(header[5:9])
	if err := limits.ValidateMessageSize(size); err != nil {
		return 0, netip.Addr{}, 0, err
	}

	return t, netip.AddrFrom4(raw), size, nil
}

// ParseMessage decodes a single message occupying all of data.
func ParseMessage(data []byte) (*Message, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortMessage, len(data))
	}

	t, addr, size, err := parseHeader(data[:HeaderSize])
	if err != nil {
		return nil, err
	}
	if uint32(len(data)-HeaderSize) != size {
		return nil, fmt.Errorf("%w: header declares %d bytes, have %d", ErrShortMessage, size, len(data)-HeaderSize)
	}

	msg := &Message{
		Type:    t,
		Address: addr,
		Data:    make([]byte, size),
	}
	copy(msg.Data, data[HeaderSize:])

	return msg, nil
}

// ReadMessage reads exactly one message from r.
func ReadMessage(r io.Reader) (*Message, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	t, addr, size, err := parseHeader(header[:])
	if err != nil {
		return nil, err
	}

	msg := &Message{Type: t, Address: addr, Data: make([]byte, size)}
	if _, err := io.ReadFull(r, msg.Data); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	return msg, nil
}

// WriteMessage writes m to w with a single Write call.
func WriteMessage(w io.Writer, m *Message) error {
	data, err := m.Serialize()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// NewStatus builds a TypeTCPStatus reply for addr.
func NewStatus(addr netip.Addr, code uint32) *Message {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, code)
	return &Message{Type: TypeTCPStatus, Address: addr, Data: data}
}

// Status decodes the code of a TypeTCPStatus message.
func (m *Message) Status() (uint32, error) {
	if m.Type != TypeTCPStatus || len(m.Data) != 4 {
		return 0, fmt.Errorf("%w: not a status message", ErrShortMessage)
	}
	return binary.LittleEndian.Uint32(m.Data), nil
}

// NewSystem builds a TypeSystem notice.
func NewSystem(code byte) *Message {
	return &Message{Type: TypeSystem, Data: []byte{code}}
}
