// Package logging routes the proxy's log records to one runtime-selectable
// backend: the console, an append-mode file, or the system log.
//
// # Backends
//
// A Sink starts on the console. Select swaps the active backend:
//
//	sink := logging.NewSink(os.Stderr)
//	if err := sink.Select(logging.MediumFile, "/var/log/openelpd.log"); err != nil {
//	    sink.Log(logging.LevelError, "Failed to open log file: %v", err)
//	}
//
// Selection is all-or-nothing. The new backend is opened before anything is
// swapped, so a failed Select leaves the previous backend receiving records.
// Each backend owns its own logrus.Logger. Writers hold a read lock for the
// duration of one record and Select takes the write lock only to swap the
// pointer, so a concurrent record lands entirely in the old backend or
// entirely in the new one. The previous backend is closed after the swap.
//
// # Records
//
// Log and the Entry helpers are best effort: a failed write is never returned
// to the caller. LevelFatal marks records that immediately precede process
// exit; the sink itself never exits or panics.
//
//	sink.WithField("callsign", "W1AW").WithError(err).Warnf("Login rejected")
package logging
