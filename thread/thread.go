package thread

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrNotInitialized indicates the handle was used before Init or after Free.
	ErrNotInitialized = errors.New("thread handle not initialized")

	// ErrNoEntry indicates Start was called without an entry point.
	ErrNoEntry = errors.New("thread entry point is nil")

	// ErrPanicked indicates the joined worker panicked.
	ErrPanicked = errors.New("thread worker panicked")
)

// EntryFunc is the body of a worker. It receives the handle that started it.
type EntryFunc func(h *Handle)

// nextID hands out worker identifiers. Zero means "no worker".
var nextID atomic.Uint64

// state is the private bookkeeping of an initialized handle.
type state struct {
	mu sync.Mutex

	// dirty is true while a started worker has not been joined.
	dirty bool
	// id identifies the outstanding worker; zero when none.
	id uint64
	// done is closed by the worker when it returns.
	done chan struct{}
	// current mirrors id for lock-free readers; written only under mu, in
	// the same critical section that updates dirty and id.
	current atomic.Uint64
	// panicked holds a recovered panic value until the next join.
	panicked interface{}
}

// Handle runs at most one worker goroutine at a time.
type Handle struct {
	// StackSize is a stack size hint in bytes. Zero selects the platform
	// default. Goroutine stacks grow on demand, so the hint is only recorded.
	StackSize int

	priv atomic.Pointer[state]
}

// Init allocates the handle's private state. Calling Init on an initialized
// handle is a no-op that keeps the existing state.
func (h *Handle) Init() error {
	if h.priv.Load() != nil {
		return nil
	}
	h.priv.CompareAndSwap(nil, &state{})
	return nil
}

// Start launches entry on a new goroutine. A worker that is still outstanding
// is joined first; if that worker panicked, Start reports ErrPanicked and
// launches nothing. The dirty flag and the worker identifier are updated
// under the same lock acquisition.
func (h *Handle) Start(entry EntryFunc) error {
	s := h.priv.Load()
	if s == nil {
		return ErrNotInitialized
	}
	if entry == nil {
		return ErrNoEntry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.joinLocked(); err != nil {
		return fmt.Errorf("previous worker: %w", err)
	}

	done := make(chan struct{})
	s.dirty = true
	s.id = nextID.Add(1)
	s.done = done
	s.current.Store(s.id)

	go h.run(s, entry, done)

	return nil
}

// run executes entry and records a panic instead of crashing the process.
func (h *Handle) run(s *state, entry EntryFunc, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			s.panicked = r
		}
	}()

	entry(h)
}

// Join blocks until the outstanding worker, if any, has returned. Joining a
// handle with no outstanding worker returns nil without blocking. Concurrent
// callers serialize on the handle's lock; only the first one waits.
func (h *Handle) Join() error {
	s := h.priv.Load()
	if s == nil {
		return ErrNotInitialized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.joinLocked()
}

// joinLocked waits for the outstanding worker. s.mu must be held.
func (s *state) joinLocked() error {
	if !s.dirty {
		return nil
	}

	<-s.done

	// The worker closed done after its deferred recover ran, so reading
	// panicked here is ordered after the write.
	r := s.panicked
	s.panicked = nil
	s.dirty = false
	s.id = 0
	s.done = nil
	s.current.Store(0)

	if r != nil {
		return fmt.Errorf("%w: %v", ErrPanicked, r)
	}
	return nil
}

// Free joins the outstanding worker and releases the handle's private state.
// The handle must be initialized again before further use. Freeing a handle
// that was never initialized is a no-op.
func (h *Handle) Free() error {
	s := h.priv.Load()
	if s == nil {
		return nil
	}

	err := h.Join()
	h.priv.CompareAndSwap(s, nil)

	return err
}

// Running reports whether a started worker has not yet been joined. It does
// not take the handle's lock, so a worker may call it on its own handle.
func (h *Handle) Running() bool {
	return h.ID() != 0
}

// ID returns the identifier of the outstanding worker, or zero. Like Running
// it is safe to call from the worker itself.
func (h *Handle) ID() uint64 {
	s := h.priv.Load()
	if s == nil {
		return 0
	}
	return s.current.Load()
}

// Initialized reports whether Init has been called since the last Free.
func (h *Handle) Initialized() bool {
	return h.priv.Load() != nil
}
