// Package digest computes the MD5 fingerprints used by the proxy login and
// renders them as lowercase hexadecimal text.
//
// The EchoLink proxy login never sends the shared password over the wire.
// The proxy issues an eight character challenge, the client answers with the
// digest of the password followed by that challenge, and both sides compare
// the hexadecimal renderings:
//
//	challenge := digest.Hex32(nonce)
//	expected := digest.String(digest.Sum([]byte(password + challenge)))
//
// Every function in this package is pure and holds no shared state, so it is
// safe to call from any number of goroutines without synchronization.
package digest
