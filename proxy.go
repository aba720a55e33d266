package openelp

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/openelp/config"
	"github.com/opd-ai/openelp/logging"
	"github.com/opd-ai/openelp/metrics"
)

// Status is the lifecycle state of a Proxy. States are ordered; the dispatch
// loop continues while the status is above StatusDown.
type Status int32

const (
	StatusDown Status = iota
	StatusConfigured
	StatusOpen
	StatusRunning
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusDown:
		return "down"
	case StatusConfigured:
		return "configured"
	case StatusOpen:
		return "open"
	case StatusRunning:
		return "running"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// DefaultPollInterval bounds each wait for a new client in Process.
const DefaultPollInterval = 250 * time.Millisecond

// metricsCloseTimeout bounds the wait for open scrapes during Free.
const metricsCloseTimeout = 2 * time.Second

// Options contains the process-level settings of a Proxy. Everything about
// the service itself comes from the configuration file.
type Options struct {
	// Console receives log records while the console medium is active.
	// Nil means os.Stderr.
	Console io.Writer

	// PollInterval bounds how long Process waits for a connection, and
	// therefore how quickly Shutdown is observed.
	PollInterval time.Duration
}

// NewOptions creates a new default Options.
func NewOptions() *Options {
	return &Options{
		Console:      os.Stderr,
		PollInterval: DefaultPollInterval,
	}
}

// Proxy is one EchoLink proxy instance. Proxies are independent; a process
// may run several.
type Proxy struct {
	options *Options
	status  atomic.Int32
	cfg     atomic.Pointer[config.Config]
	addr    atomic.Pointer[net.TCPAddr]

	sink    *logging.Sink
	log     *logging.Entry
	metrics *metrics.Metrics

	// mu serializes lifecycle calls and dispatch steps. The session table and
	// slots are only touched while it is held.
	mu            sync.Mutex
	listener      *net.TCPListener
	metricsServer *metrics.Server
	slots         []*slot
	sessions      map[*session]struct{}
	retired       chan *session
	freed         bool
}

// New creates a Proxy in StatusDown with console logging.
func New(options *Options) (*Proxy, error) {
	if options == nil {
		options = NewOptions()
	}
	if options.PollInterval < 0 {
		return nil, fmt.Errorf("negative poll interval %v", options.PollInterval)
	}

	opts := *options
	if opts.PollInterval == 0 {
		opts.PollInterval = DefaultPollInterval
	}

	sink := logging.NewSink(opts.Console)

	return &Proxy{
		options:  &opts,
		sink:     sink,
		log:      sink.WithFields(nil),
		metrics:  metrics.New(),
		sessions: make(map[*session]struct{}),
	}, nil
}

// Status returns the current lifecycle state.
func (p *Proxy) Status() Status {
	return Status(p.status.Load())
}

// Config returns the active configuration, or nil before one is loaded.
func (p *Proxy) Config() *config.Config {
	return p.cfg.Load()
}

// Metrics returns the proxy's instrumentation.
func (p *Proxy) Metrics() *metrics.Metrics {
	return p.metrics
}

// Addr returns the listening address, or nil before Open.
func (p *Proxy) Addr() net.Addr {
	if a := p.addr.Load(); a != nil {
		return a
	}
	return nil
}

// LoadConfig reads the configuration file at path and moves the proxy to
// StatusConfigured. On error the proxy is unchanged.
func (p *Proxy) LoadConfig(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := p.SetConfig(cfg); err != nil {
		return err
	}

	p.log.WithFields(logging.Fields{
		"function": "LoadConfig",
		"path":     path,
	}).Debugf("Configuration loaded")

	return nil
}

// SetConfig validates cfg and installs it. The configuration cannot change
// once the proxy is open.
func (p *Proxy) SetConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.freed {
		return ErrFreed
	}
	if p.listener != nil {
		return ErrAlreadyOpen
	}

	p.cfg.Store(cfg)
	p.sink.SetLevel(cfg.Level())
	p.status.CompareAndSwap(int32(StatusDown), int32(StatusConfigured))

	return nil
}

// Open binds the client listener and the optional metrics endpoint, and
// prepares one client slot per external address. A Shutdown that arrived
// after configuration is preserved: the listener opens but the status stays
// StatusDown.
func (p *Proxy) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.freed {
		return ErrFreed
	}
	cfg := p.cfg.Load()
	if cfg == nil {
		return ErrNotConfigured
	}
	if p.listener != nil {
		return ErrAlreadyOpen
	}

	laddr, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress())
	if err != nil {
		return fmt.Errorf("resolve %s: %w", cfg.ListenAddress(), err)
	}
	ln, err := net.ListenTCP("tcp", laddr)
	if err != nil {
		return err
	}

	if cfg.MetricsAddress != "" {
		srv, err := metrics.Serve(cfg.MetricsAddress, p.metrics, p.log.WithField("component", "metrics"))
		if err != nil {
			ln.Close()
			return fmt.Errorf("metrics endpoint: %w", err)
		}
		p.metricsServer = srv
	}

	externals := cfg.ExternalAddresses()
	p.slots = make([]*slot, len(externals))
	for i, addr := range externals {
		p.slots[i] = &slot{index: i, addr: addr}
	}
	p.retired = make(chan *session, len(p.slots))
	p.listener = ln
	p.addr.Store(ln.Addr().(*net.TCPAddr))

	p.status.CompareAndSwap(int32(StatusConfigured), int32(StatusOpen))

	p.log.WithFields(logging.Fields{
		"function": "Open",
		"address":  ln.Addr().String(),
		"slots":    len(p.slots),
	}).Infof("Listening for clients")

	return nil
}

// Process performs one dispatch step: it retires finished sessions, waits
// up to the poll interval for a client and starts a session for it. Only
// conditions that should end the dispatch loop are returned.
func (p *Proxy) Process() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.freed {
		return ErrFreed
	}
	if p.listener == nil {
		return ErrNotOpen
	}
	if p.Status() == StatusDown {
		return nil
	}
	p.status.CompareAndSwap(int32(StatusOpen), int32(StatusRunning))

	p.reap()

	if err := p.listener.SetDeadline(time.Now().Add(p.options.PollInterval)); err != nil {
		return fmt.Errorf("%w: %w", ErrListenerFailed, err)
	}
	conn, err := p.listener.AcceptTCP()
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrListenerFailed, err)
	}

	p.accept(conn)
	return nil
}

// Run calls Process until the status drops to StatusDown or Process fails.
func (p *Proxy) Run() error {
	for p.Status() > StatusDown {
		if err := p.Process(); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown requests that the dispatch loop stop. It only stores the new
// status, so it is safe to call from a signal handling goroutine and any
// number of times.
func (p *Proxy) Shutdown() {
	p.status.Store(int32(StatusDown))
}

// Free releases everything the proxy holds: the listener, every session
// (closing its client connection and joining its worker), the metrics
// endpoint and the active log backend. It may be called at any point after
// New, more than once, and on a nil Proxy.
func (p *Proxy) Free() error {
	if p == nil {
		return nil
	}
	p.Shutdown()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.freed {
		return nil
	}
	p.freed = true

	var errs []error
	if p.listener != nil {
		if err := p.listener.Close(); err != nil {
			errs = append(errs, err)
		}
		p.listener = nil
	}

	for s := range p.sessions {
		s.client.Close()
	}
	for s := range p.sessions {
		p.release(s)
	}
	if p.retired != nil {
		for len(p.retired) > 0 {
			<-p.retired
		}
	}

	if p.metricsServer != nil {
		if err := p.metricsServer.Close(metricsCloseTimeout); err != nil {
			errs = append(errs, err)
		}
		p.metricsServer = nil
	}

	p.log.WithField("function", "Free").Debugf("Proxy resources released")

	if err := p.sink.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Ident logs the proxy banner and its registration details.
func (p *Proxy) Ident() {
	p.log.Infof("%s", Banner())

	cfg := p.cfg.Load()
	if cfg == nil {
		return
	}
	if cfg.RegistrationName != "" {
		p.log.Infof("Registration name: %s", cfg.RegistrationName)
	}
	if cfg.RegistrationComment != "" {
		p.log.Infof("Registration comment: %s", cfg.RegistrationComment)
	}
}

// Log writes one record to the active log backend.
func (p *Proxy) Log(level logging.Level, format string, args ...interface{}) {
	p.sink.Log(level, format, args...)
}

// SelectMedium switches the log backend. On failure the previous backend
// stays active.
func (p *Proxy) SelectMedium(medium logging.Medium, target string) error {
	return p.sink.Select(medium, target)
}

// accept hands conn to a free slot or turns it away.
func (p *Proxy) accept(conn *net.TCPConn) {
	log := p.log.WithFields(logging.Fields{
		"function": "accept",
		"client":   conn.RemoteAddr().String(),
	})

	sl := p.freeSlot()
	if sl == nil {
		p.metrics.Rejected(metrics.ReasonBusy)
		log.WithError(ErrNoSlot).Warnf("Rejecting client")
		conn.Close()
		return
	}

	s := newSession(p, sl, conn)
	if err := s.handle.Init(); err != nil {
		log.WithError(err).Errorf("Failed to initialize session worker")
		conn.Close()
		return
	}
	sl.session = s
	p.sessions[s] = struct{}{}
	p.metrics.ActiveSessions.Inc()
	s.log.Debugf("Client connected")

	if err := s.handle.Start(s.run); err != nil {
		log.WithError(err).Errorf("Failed to start session worker")
		conn.Close()
		p.release(s)
	}
}

// reap releases every session whose worker has finished.
func (p *Proxy) reap() {
	for {
		select {
		case s := <-p.retired:
			if _, ok := p.sessions[s]; ok {
				p.release(s)
			}
		default:
			return
		}
	}
}

// release joins the session's worker, then returns its slot.
func (p *Proxy) release(s *session) {
	if err := s.handle.Free(); err != nil {
		s.log.WithError(err).Errorf("Session worker failed")
	}
	s.slot.session = nil
	delete(p.sessions, s)
	p.metrics.ActiveSessions.Dec()
	p.metrics.SessionDuration.Observe(time.Since(s.started).Seconds())
}
