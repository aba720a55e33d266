// Package limits provides centralized size constants and validation functions
// for the proxy protocol. The codec in package protocol and the session
// engine both validate untrusted input against these limits.
//
// # Limits
//
//   - MaxCallsign (32 bytes): the longest callsign accepted during login.
//
//   - MaxMessageData (4096 bytes): the largest payload of a single proxy
//     message. A header declaring more ends the session, since the stream can
//     no longer be trusted.
//
//   - MaxDatagram (4096 bytes): the receive buffer for relayed UDP traffic.
//
//   - MaxPassword (256 bytes): the longest configured shared secret.
//
// # Validation Functions
//
//	if err := limits.ValidateMessageSize(size); err != nil {
//	    return err // wraps limits.ErrMessageTooLarge
//	}
//
//	if err := limits.ValidateCallsign(callsign); err != nil {
//	    return err // wraps limits.ErrCallsign
//	}
package limits
