package openelp

import "errors"

// Lifecycle errors returned by Proxy methods.
var (
	// ErrNotConfigured is returned by Open before a configuration is loaded.
	ErrNotConfigured = errors.New("proxy not configured")

	// ErrNotOpen is returned by Process before Open succeeds.
	ErrNotOpen = errors.New("proxy not open")

	// ErrAlreadyOpen is returned by Open and by configuration changes once the
	// listener exists.
	ErrAlreadyOpen = errors.New("proxy already open")

	// ErrListenerFailed wraps an accept failure that ends the dispatch loop.
	ErrListenerFailed = errors.New("listener failed")

	// ErrFreed is returned by every lifecycle method after Free.
	ErrFreed = errors.New("proxy freed")
)

// Session errors. They end one session and are logged, never returned from
// the dispatch loop.
var (
	ErrBadPassword       = errors.New("bad password")
	ErrAccessDenied      = errors.New("access denied")
	ErrAuthTimeout       = errors.New("authentication timed out")
	ErrNoSlot            = errors.New("no free client slot")
	ErrUnexpectedMessage = errors.New("unexpected message from client")
)
