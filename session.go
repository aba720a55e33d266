package openelp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/openelp/config"
	"github.com/opd-ai/openelp/limits"
	"github.com/opd-ai/openelp/logging"
	"github.com/opd-ai/openelp/metrics"
	"github.com/opd-ai/openelp/protocol"
	"github.com/opd-ai/openelp/thread"
)

// clientWriteTimeout bounds a single write to a stalled client.
const clientWriteTimeout = 10 * time.Second

// session is one client connection from accept to close. Its worker runs on
// handle; the dispatch loop owns everything else about it.
type session struct {
	id      string
	cfg     *config.Config
	metrics *metrics.Metrics
	log     *logging.Entry
	slot    *slot
	started time.Time
	retired chan<- *session

	client net.Conn
	reader *bufio.Reader
	handle thread.Handle

	// Peer ports for relayed traffic.
	serverPort  int
	dataPort    int
	controlPort int

	writeMu sync.Mutex

	group *errgroup.Group
	ctx   context.Context

	// tcp is the current relayed stream. cancelDial aborts the dial or
	// stream that tcp belongs to; both change together under tcpMu.
	tcpMu      sync.Mutex
	tcp        net.Conn
	cancelDial context.CancelFunc

	data    *net.UDPConn
	control *net.UDPConn
}

func newSession(p *Proxy, sl *slot, conn net.Conn) *session {
	cfg := p.cfg.Load()
	id := uuid.NewString()

	return &session{
		id:      id,
		cfg:     cfg,
		metrics: p.metrics,
		log: p.log.WithFields(logging.Fields{
			"session": id,
			"slot":    sl.index,
			"client":  conn.RemoteAddr().String(),
		}),
		slot:        sl,
		started:     time.Now(),
		retired:     p.retired,
		client:      conn,
		reader:      bufio.NewReader(conn),
		serverPort:  cfg.ServerPort,
		dataPort:    cfg.DataPort,
		controlPort: cfg.ControlPort,
	}
}

// run is the session worker. Whatever happens, the session reports itself
// on the retired channel as its last action.
func (s *session) run(h *thread.Handle) {
	defer func() { s.retired <- s }()
	defer s.client.Close()

	callsign, err := s.authenticate()
	if err != nil {
		s.reject(callsign, err)
		return
	}

	s.log = s.log.WithField("callsign", callsign)
	if err := s.bindUDP(); err != nil {
		s.metrics.Rejected(metrics.ReasonBind)
		s.log.WithError(err).Errorf("Cannot relay for client")
		return
	}
	s.metrics.SessionsAccepted.Inc()
	s.log.Infof("Client authorized")

	if err := s.relay(); err != nil {
		s.log.WithError(err).Warnf("Session ended with error")
		return
	}
	s.log.Infof("Client disconnected")
}

// reject records and logs a failed login.
func (s *session) reject(callsign string, err error) {
	log := s.log.WithError(err)
	if callsign != "" {
		log = log.WithField("callsign", callsign)
	}

	switch {
	case errors.Is(err, ErrBadPassword):
		s.metrics.Rejected(metrics.ReasonBadPassword)
		log.Warnf("Client failed authentication")
	case errors.Is(err, ErrAccessDenied):
		s.metrics.Rejected(metrics.ReasonDenied)
		log.Warnf("Callsign not permitted")
	case errors.Is(err, ErrAuthTimeout):
		s.metrics.Rejected(metrics.ReasonTimeout)
		log.Infof("Client did not log in")
	default:
		s.metrics.Rejected(metrics.ReasonProtocol)
		log.Infof("Client login failed")
	}
}

// authenticate sends the challenge and checks the client's response and
// callsign. The whole exchange must finish within AuthTimeout.
func (s *session) authenticate() (string, error) {
	if err := s.client.SetDeadline(time.Now().Add(s.cfg.AuthTimeoutDuration())); err != nil {
		return "", err
	}

	challenge, err := protocol.NewChallenge()
	if err != nil {
		return "", err
	}
	if _, err := io.WriteString(s.client, challenge); err != nil {
		return "", fmt.Errorf("send challenge: %w", err)
	}

	callsign, response, err := protocol.ReadLogin(s.reader)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return "", fmt.Errorf("%w: %w", ErrAuthTimeout, err)
		}
		return "", fmt.Errorf("read login: %w", err)
	}

	if !protocol.VerifyResponse(s.cfg.Password, challenge, response) {
		s.send(protocol.NewSystem(protocol.SystemBadPassword))
		return callsign, ErrBadPassword
	}
	if !s.cfg.Permits(callsign) {
		s.send(protocol.NewSystem(protocol.SystemAccessDenied))
		return callsign, ErrAccessDenied
	}

	if err := s.client.SetDeadline(time.Time{}); err != nil {
		return callsign, err
	}
	return callsign, nil
}

// send writes one message to the client. Writers from every pump are
// serialized so messages never interleave.
func (s *session) send(msg *protocol.Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.client.SetWriteDeadline(time.Now().Add(clientWriteTimeout)); err != nil {
		return err
	}
	return protocol.WriteMessage(s.client, msg)
}

// bindUDP opens the data and control sockets on the slot's address.
func (s *session) bindUDP() error {
	ip := s.slot.localIP()

	data, err := net.ListenUDP("udp4", &net.UDPAddr{IP: ip, Port: s.cfg.DataPort})
	if err != nil {
		return fmt.Errorf("bind data port: %w", err)
	}
	control, err := net.ListenUDP("udp4", &net.UDPAddr{IP: ip, Port: s.cfg.ControlPort})
	if err != nil {
		data.Close()
		return fmt.Errorf("bind control port: %w", err)
	}

	s.data, s.control = data, control
	return nil
}

// relay moves traffic until the client disconnects or a pump fails. The
// first pump to return cancels the group, and the closer then closes every
// socket so the remaining pumps and any pending dial return too. The UDP
// sockets must already be bound.
func (s *session) relay() error {
	g, ctx := errgroup.WithContext(context.Background())
	s.group, s.ctx = g, ctx

	g.Go(s.readClient)
	g.Go(func() error {
		return s.pumpDatagrams(s.data, protocol.TypeUDPData, metrics.KindData)
	})
	g.Go(func() error {
		return s.pumpDatagrams(s.control, protocol.TypeUDPControl, metrics.KindControl)
	})
	g.Go(func() error {
		<-ctx.Done()
		s.client.Close()
		s.data.Close()
		s.control.Close()
		s.closeTCP()
		return nil
	})

	err := g.Wait()
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// readClient decodes client messages until the connection ends.
func (s *session) readClient() error {
	for {
		msg, err := protocol.ReadMessage(s.reader)
		if err != nil {
			return err
		}
		if err := s.dispatch(msg); err != nil {
			return err
		}
	}
}

// dispatch acts on one client message.
func (s *session) dispatch(msg *protocol.Message) error {
	switch msg.Type {
	case protocol.TypeTCPOpen:
		s.openTCP(msg.Address)
		return nil
	case protocol.TypeTCPData:
		s.writeTCP(msg.Data)
		return nil
	case protocol.TypeTCPClose:
		s.closeTCP()
		return nil
	case protocol.TypeUDPData:
		s.sendDatagram(s.data, msg, s.dataPort, metrics.KindData)
		return nil
	case protocol.TypeUDPControl:
		s.sendDatagram(s.control, msg, s.controlPort, metrics.KindControl)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedMessage, msg.Type)
	}
}

// statusCode converts a dial failure to the code reported in TCP_STATUS.
func statusCode(err error) uint32 {
	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return uint32(errno)
	}
	return uint32(syscall.ECONNREFUSED)
}

// openTCP replaces the current stream with a dial to the peer's server port.
// The dial runs on its own goroutine so client messages keep flowing while
// it is pending, and closing the session aborts it.
func (s *session) openTCP(addr netip.Addr) {
	ctx, cancel := context.WithCancel(s.ctx)

	s.tcpMu.Lock()
	s.resetTCPLocked()
	s.cancelDial = cancel
	s.tcpMu.Unlock()

	s.group.Go(func() error {
		return s.connectTCP(ctx, addr)
	})
}

// connectTCP dials from the slot's address, reports the result to the client
// and then pumps the stream. A dial cancelled by a newer TCP_OPEN, a
// TCP_CLOSE or the end of the session is dropped without a status.
func (s *session) connectTCP(ctx context.Context, addr netip.Addr) error {
	dialer := net.Dialer{Timeout: s.cfg.ConnectTimeoutDuration()}
	if ip := s.slot.localIP(); ip != nil {
		dialer.LocalAddr = &net.TCPAddr{IP: ip}
	}

	target := netip.AddrPortFrom(addr, uint16(s.serverPort)).String()
	conn, err := dialer.DialContext(ctx, "tcp4", target)
	if err != nil {
		if ctx.Err() != nil {
			s.log.WithField("peer", target).Debugf("TCP connect abandoned")
			return nil
		}
		s.metrics.TCPConnects.WithLabelValues("failed").Inc()
		s.log.WithField("peer", target).WithError(err).Infof("TCP connect failed")
		return s.send(protocol.NewStatus(addr, statusCode(err)))
	}

	s.tcpMu.Lock()
	if ctx.Err() != nil {
		s.tcpMu.Unlock()
		conn.Close()
		return nil
	}
	s.tcp = conn
	s.tcpMu.Unlock()

	s.metrics.TCPConnects.WithLabelValues("ok").Inc()
	s.log.WithField("peer", target).Debugf("TCP connected")

	if err := s.send(protocol.NewStatus(addr, protocol.StatusOK)); err != nil {
		return err
	}
	s.pumpTCP(conn, addr)
	return nil
}

// pumpTCP forwards bytes from the peer until it closes. The client only
// hears TCP_CLOSE when conn is still the current stream.
func (s *session) pumpTCP(conn net.Conn, addr netip.Addr) {
	buf := make([]byte, limits.MaxMessageData)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			msg := &protocol.Message{Type: protocol.TypeTCPData, Address: addr, Data: buf[:n]}
			if werr := s.send(msg); werr != nil {
				conn.Close()
				return
			}
			s.metrics.Relayed(metrics.DirectionToClient, metrics.KindTCP, n)
		}
		if err != nil {
			break
		}
	}

	s.tcpMu.Lock()
	current := s.tcp == conn
	if current {
		s.tcp = nil
	}
	s.tcpMu.Unlock()
	conn.Close()

	if current {
		s.log.Debugf("TCP closed by peer")
		s.send(&protocol.Message{Type: protocol.TypeTCPClose, Address: addr})
	}
}

// writeTCP forwards client bytes to the current stream. A failed write
// closes the stream, which pumpTCP then reports.
func (s *session) writeTCP(data []byte) {
	s.tcpMu.Lock()
	conn := s.tcp
	s.tcpMu.Unlock()

	if conn == nil {
		s.log.Debugf("Dropping TCP data without an open connection")
		return
	}
	if _, err := conn.Write(data); err != nil {
		s.log.WithError(err).Debugf("TCP write failed")
		conn.Close()
		return
	}
	s.metrics.Relayed(metrics.DirectionFromClient, metrics.KindTCP, len(data))
}

// closeTCP closes the current stream or aborts its pending dial, without
// notifying the client.
func (s *session) closeTCP() {
	s.tcpMu.Lock()
	s.resetTCPLocked()
	s.tcpMu.Unlock()
}

func (s *session) resetTCPLocked() {
	if s.cancelDial != nil {
		s.cancelDial()
		s.cancelDial = nil
	}
	if s.tcp != nil {
		s.tcp.Close()
		s.tcp = nil
	}
}

// pumpDatagrams forwards datagrams arriving on conn to the client, tagged
// with the sender's address.
func (s *session) pumpDatagrams(conn *net.UDPConn, typ protocol.Type, kind string) error {
	buf := make([]byte, limits.MaxDatagram)
	for {
		n, from, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			return err
		}

		msg := &protocol.Message{Type: typ, Address: from.Addr().Unmap(), Data: buf[:n]}
		if err := s.send(msg); err != nil {
			return err
		}
		s.metrics.Relayed(metrics.DirectionToClient, kind, n)
	}
}

// sendDatagram forwards a client datagram to the peer. UDP delivery is best
// effort, so failures are logged and the session continues.
func (s *session) sendDatagram(conn *net.UDPConn, msg *protocol.Message, port int, kind string) {
	dst := netip.AddrPortFrom(msg.Address, uint16(port))
	if _, err := conn.WriteToUDPAddrPort(msg.Data, dst); err != nil {
		s.log.WithField("peer", dst.String()).WithError(err).Debugf("Datagram send failed")
		return
	}
	s.metrics.Relayed(metrics.DirectionFromClient, kind, len(msg.Data))
}
