// Package thread provides a reusable worker handle with explicit start, join
// and release operations.
//
// A Handle owns at most one running goroutine at a time. The proxy gives each
// accepted session its own Handle so that the dispatch loop can always wait
// for a session's worker before it releases the session's sockets.
//
// # Lifecycle
//
// The zero value is not ready; call Init first:
//
//	var h thread.Handle
//	if err := h.Init(); err != nil {
//	    return err
//	}
//	defer h.Free()
//
//	if err := h.Start(func(h *thread.Handle) {
//	    // session work
//	}); err != nil {
//	    return err
//	}
//
//	h.Join()
//
// Start on a handle whose previous worker has not been joined joins it first,
// so two workers never share a handle. If that worker panicked, Start returns
// ErrPanicked instead of launching the new one. Join is idempotent and a Join without
// a prior Start returns immediately. Free joins before it releases the
// handle's private state.
//
// A worker must not Join or Free its own handle; like joining a thread from
// itself, it would wait forever.
package thread
