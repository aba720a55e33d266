package logging

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrUnknownLevel indicates a level name that ParseLevel does not recognize.
var ErrUnknownLevel = errors.New("unknown log level")

// Level is the severity of a record. Levels are ordered from least to most
// severe.
type Level int

const (
	// LevelDebug is for diagnostic detail.
	LevelDebug Level = iota
	// LevelInfo is for normal operational records.
	LevelInfo
	// LevelWarning is for recoverable per-session problems.
	LevelWarning
	// LevelError is for failures that tear down a session or a feature.
	LevelError
	// LevelFatal is reserved for records that immediately precede exit.
	LevelFatal
)

// String returns the lowercase name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel converts a case-insensitive level name to a Level. "warn" is
// accepted as an alias for "warning".
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	}
	return LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
}

// logrusLevel maps a Level onto the logrus scale.
func (l Level) logrusLevel() logrus.Level {
	switch {
	case l <= LevelDebug:
		return logrus.DebugLevel
	case l == LevelInfo:
		return logrus.InfoLevel
	case l == LevelWarning:
		return logrus.WarnLevel
	case l == LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.FatalLevel
	}
}
