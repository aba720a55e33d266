// Package protocol implements the wire format spoken between an EchoLink
// client and the proxy.
//
// # Login
//
// After accepting a connection the proxy writes an eight character
// challenge. The client answers with its callsign, a newline, and the 16 byte
// digest of the shared password followed by the challenge:
//
//	challenge, _ := protocol.NewChallenge()
//	// ... send challenge, then on the other side:
//	callsign, response, err := protocol.ReadLogin(r)
//	ok := protocol.VerifyResponse(password, challenge, response)
//
// # Messages
//
// Once logged in, both directions carry framed messages. Each message has a
// 9 byte header followed by its payload:
//
//	+------+------------------+-------------------+-----------+
//	| type | IPv4 address (4) | size (4, LE)      | payload   |
//	+------+------------------+-------------------+-----------+
//
// The address is in network byte order and names the EchoLink peer the
// payload is for or came from. The size is little-endian, as the reference
// clients write it.
//
//	msg := &protocol.Message{
//	    Type:    protocol.TypeUDPData,
//	    Address: netip.MustParseAddr("192.0.2.10"),
//	    Data:    frame,
//	}
//	err := protocol.WriteMessage(conn, msg)
package protocol
