//go:build windows || nacl || plan9

package logging

// SyslogTag identifies the daemon's records in the system log.
const SyslogTag = "openelpd"

func openSyslog() (*backend, error) {
	return nil, ErrSyslogUnsupported
}
