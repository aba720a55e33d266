package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/opd-ai/openelp/logging"
)

// Server serves a Metrics handler on its own listener.
type Server struct {
	listener net.Listener
	http     *http.Server
	done     chan struct{}
}

// Serve starts an HTTP server for m on addr. The path /metrics carries the
// metrics; every other path returns 404. Server failures are reported to log.
func Serve(addr string, m *Metrics, log *logging.Entry) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	s := &Server{
		listener: ln,
		http: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		done: make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithFields(logging.Fields{
				"function": "Serve",
				"address":  ln.Addr().String(),
			}).WithError(err).Errorf("Metrics server stopped")
		}
	}()

	log.WithFields(logging.Fields{
		"function": "Serve",
		"address":  ln.Addr().String(),
	}).Debugf("Metrics server listening")

	return s, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close stops the server, waiting up to timeout for open requests.
func (s *Server) Close(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := s.http.Shutdown(ctx)
	<-s.done
	return err
}
