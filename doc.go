// Package openelp implements an EchoLink proxy.
//
// An EchoLink client that cannot accept inbound connections logs in to a
// proxy, which then makes and accepts EchoLink connections on the client's
// behalf. Traffic between client and proxy is carried over one TCP
// connection using the framing in package protocol; the proxy relays it to
// and from the EchoLink directory and peers using its own addresses.
//
// # Getting Started
//
// A Proxy moves through a fixed lifecycle:
//
//	proxy, err := openelp.New(openelp.NewOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer proxy.Free()
//
//	if err := proxy.LoadConfig("ELProxy.conf"); err != nil {
//	    log.Fatal(err)
//	}
//	if err := proxy.Open(); err != nil {
//	    log.Fatal(err)
//	}
//	proxy.Ident()
//
//	// Shutdown may be called from any goroutine, such as a signal handler.
//	go func() {
//	    <-sigs
//	    proxy.Shutdown()
//	}()
//
//	if err := proxy.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// Run is a loop over Process; callers that need to interleave other work can
// call Process themselves while Status is above StatusDown.
//
// # Sessions
//
// Each accepted client occupies one slot. There is one slot per configured
// external address, so a proxy with a single address serves one client at
// a time. A session first authenticates the client: the proxy sends a random
// challenge and the client answers with its callsign and the MD5 digest of
// the password followed by the challenge. After a successful login, the
// session relays:
//
//   - TCP streams opened by the client to a peer's server port,
//   - datagrams on the EchoLink data and control ports, in both directions.
//
// Every session runs on its own thread.Handle and is joined before its slot
// is reused or the proxy is freed.
//
// # Logging
//
// Records go to the console until SelectMedium switches to a file or to
// syslog. Switching is atomic: if the new backend cannot be opened the old
// one keeps receiving records.
package openelp
