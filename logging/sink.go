package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// ErrUnknownMedium indicates a Medium value outside the known set.
	ErrUnknownMedium = errors.New("unknown log medium")

	// ErrNoTarget indicates MediumFile was selected without a path.
	ErrNoTarget = errors.New("log file path is empty")

	// ErrSyslogUnsupported indicates the platform has no system log.
	ErrSyslogUnsupported = errors.New("syslog is not supported on this platform")
)

// Medium identifies a logging backend.
type Medium int

const (
	// MediumConsole writes to the sink's console writer.
	MediumConsole Medium = iota
	// MediumFile appends to a file.
	MediumFile
	// MediumSyslog sends records to the system log.
	MediumSyslog
)

// String returns the name of the medium.
func (m Medium) String() string {
	switch m {
	case MediumConsole:
		return "console"
	case MediumFile:
		return "file"
	case MediumSyslog:
		return "syslog"
	default:
		return fmt.Sprintf("medium(%d)", int(m))
	}
}

// Fields carries structured key/value pairs attached to a record.
type Fields = logrus.Fields

// backend is one opened logging destination.
type backend struct {
	medium Medium
	logger *logrus.Logger
	closer io.Closer
}

// close releases the backend's resources, if it owns any.
func (b *backend) close() error {
	if b == nil || b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// Sink holds the active logging backend.
type Sink struct {
	// selectMu serializes Select calls so backends are opened one at a time.
	selectMu sync.Mutex

	// mu guards active and level. Writers hold it for reading.
	mu      sync.RWMutex
	active  *backend
	level   Level
	console io.Writer
}

// NewSink creates a sink writing to console, or to os.Stderr when console is
// nil. The minimum level is LevelInfo.
func NewSink(console io.Writer) *Sink {
	if console == nil {
		console = os.Stderr
	}

	s := &Sink{
		level:   LevelInfo,
		console: console,
	}
	s.active = s.newConsole()
	s.active.logger.SetLevel(s.level.logrusLevel())

	return s
}

// newConsole builds the console backend. The console writer is shared and is
// never closed by the sink.
func (s *Sink) newConsole() *backend {
	logger := logrus.New()
	logger.SetOutput(s.console)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return &backend{medium: MediumConsole, logger: logger}
}

// openFile builds a backend appending to path.
func openFile(path string) (*backend, error) {
	if path == "" {
		return nil, ErrNoTarget
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(f)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: true,
	})

	return &backend{medium: MediumFile, logger: logger, closer: f}, nil
}

// open builds a backend for medium without touching the active one.
func (s *Sink) open(medium Medium, target string) (*backend, error) {
	switch medium {
	case MediumConsole:
		return s.newConsole(), nil
	case MediumFile:
		return openFile(target)
	case MediumSyslog:
		return openSyslog()
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMedium, int(medium))
	}
}

// Select makes medium the active backend. target is the file path for
// MediumFile and is ignored otherwise. On error the previous backend stays
// active. The previous backend is closed once no record is using it; an
// error from that close is returned but the switch has already happened.
func (s *Sink) Select(medium Medium, target string) error {
	s.selectMu.Lock()
	defer s.selectMu.Unlock()

	next, err := s.open(medium, target)
	if err != nil {
		return err
	}

	s.mu.Lock()
	next.logger.SetLevel(s.level.logrusLevel())
	prev := s.active
	s.active = next
	s.mu.Unlock()

	return prev.close()
}

// Medium returns the active backend's medium.
func (s *Sink) Medium() Medium {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.active.medium
}

// SetLevel sets the minimum level written by the sink.
func (s *Sink) SetLevel(level Level) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.level = level
	s.active.logger.SetLevel(level.logrusLevel())
}

// Level returns the minimum level written by the sink.
func (s *Sink) Level() Level {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.level
}

// Log writes one record to the active backend.
func (s *Sink) Log(level Level, format string, args ...interface{}) {
	s.write(level, nil, format, args...)
}

// write formats and emits a single record while holding the read lock, so
// the backend cannot be closed underneath it.
func (s *Sink) write(level Level, fields Fields, format string, args ...interface{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry := logrus.NewEntry(s.active.logger)
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}

	// Entry.Logf only writes; unlike Entry.Fatalf it never calls os.Exit.
	entry.Logf(level.logrusLevel(), format, args...)
}

// Close switches the sink back to the console and releases the previous
// backend. The sink remains usable.
func (s *Sink) Close() error {
	return s.Select(MediumConsole, "")
}
