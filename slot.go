package openelp

import (
	"net"
	"net/netip"
)

// slot is one external address a client can be relayed from. Only one
// session may hold a slot at a time.
type slot struct {
	index   int
	addr    netip.Addr
	session *session
}

// localIP returns the address outbound sockets bind to, or nil to let the
// system choose.
func (s *slot) localIP() net.IP {
	if !s.addr.IsValid() {
		return nil
	}
	return net.IP(s.addr.AsSlice())
}

// freeSlot returns the first unused slot, or nil when all are taken.
func (p *Proxy) freeSlot() *slot {
	for _, s := range p.slots {
		if s.session == nil {
			return s
		}
	}
	return nil
}
