//go:build !windows && !nacl && !plan9

package logging

import (
	"fmt"
	"io"
	"log/syslog"

	"github.com/sirupsen/logrus"
	lSyslog "github.com/sirupsen/logrus/hooks/syslog"
)

// SyslogTag identifies the daemon's records in the system log.
const SyslogTag = "openelpd"

// openSyslog builds a backend that delivers records through the logrus
// syslog hook. The logger's own output is discarded.
func openSyslog() (*backend, error) {
	hook, err := lSyslog.NewSyslogHook("", "", syslog.LOG_INFO|syslog.LOG_DAEMON, SyslogTag)
	if err != nil {
		return nil, fmt.Errorf("connect to syslog: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    true,
	})
	logger.AddHook(hook)

	return &backend{medium: MediumSyslog, logger: logger, closer: hook.Writer}, nil
}
