// Package eventbus implements the single-threaded FIFO event dispatcher
// shared by the central controller's worker loop. Components register a
// handler per event kind, publish events from anywhere (including the HTTP
// acceptor goroutine), and the worker loop drains one event per tick.
package eventbus

import (
	"errors"
	"sync"
)

// Kind identifies one of the closed set of recognised event kinds.
type Kind string

const (
	KeypadKeyCodeEntered   Kind = "KeypadKeyCodeEntered"
	SensorDeviceStateChange Kind = "SensorDeviceStateChange"
	ActivateSiren          Kind = "ActivateSiren"
	DeactivateSiren        Kind = "DeactivateSiren"
	AlarmActivated         Kind = "AlarmActivated"
	AlarmDeactivated       Kind = "AlarmDeactivated"
	KeypadApiSendAlivePing Kind = "KeypadApiSendAlivePing"
	KeypadApiSendKeypadLock Kind = "KeypadApiSendKeypadLock"
)

// knownKinds is the closed set from spec §4.1. Queue rejects anything else
// with ErrInvalidEventID even if a handler somehow got registered for it.
var knownKinds = map[Kind]struct{}{
	KeypadKeyCodeEntered:    {},
	SensorDeviceStateChange: {},
	ActivateSiren:           {},
	DeactivateSiren:         {},
	AlarmActivated:          {},
	AlarmDeactivated:        {},
	KeypadApiSendAlivePing:  {},
	KeypadApiSendKeypadLock: {},
}

// Event is the generic envelope carried on the bus. Body is kind-specific
// and handlers are expected to type-assert it to the concrete shape they
// registered for.
type Event struct {
	Kind Kind
	Body any
}

// Handler processes one drained event. A handler that wants to retry later
// (e.g. a failed outbound HTTP call) re-queues the same event itself via
// the Bus it was registered on; the re-queued event lands at the tail.
type Handler func(Event)

var (
	// ErrInvalidEventID is returned by Queue when no handler is registered
	// for the event's kind.
	ErrInvalidEventID = errors.New("eventbus: no handler registered for event kind")
	// ErrDisabled is returned by Queue once the bus has been quiesced.
	ErrDisabled = errors.New("eventbus: bus is disabled")
)

// Bus is a single-threaded FIFO dispatcher. Queue is safe to call
// concurrently (the HTTP acceptor is a different goroutine than the worker
// loop that calls ProcessNext); ProcessNext must only ever be called from
// the worker loop goroutine.
type Bus struct {
	mu       sync.Mutex
	handlers map[Kind]Handler
	queue    []Event
	disabled bool
}

// New creates an empty, enabled bus.
func New() *Bus {
	return &Bus{
		handlers: make(map[Kind]Handler),
	}
}

// Register installs handler for kind. Idempotent: the first registration
// for a given kind wins, later calls are ignored, matching the "at most one
// handler per kind" invariant.
func (b *Bus) Register(kind Kind, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[kind]; exists {
		return
	}
	b.handlers[kind] = handler
}

// Queue appends event to the tail of the queue.
func (b *Bus) Queue(event Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.disabled {
		return ErrDisabled
	}
	if _, ok := knownKinds[event.Kind]; !ok {
		return ErrInvalidEventID
	}
	if _, ok := b.handlers[event.Kind]; !ok {
		return ErrInvalidEventID
	}
	b.queue = append(b.queue, event)
	return nil
}

// ProcessNext pops the head event and invokes its handler synchronously.
// If the queue is empty this is a no-op success. Must be called from the
// worker loop goroutine only — handlers run on the caller's goroutine and
// may themselves call Queue, which re-enters the mutex, so the handler
// itself must not be holding the lock (it never is: we release it before
// invoking).
func (b *Bus) ProcessNext() {
	b.mu.Lock()
	if len(b.queue) == 0 {
		b.mu.Unlock()
		return
	}
	event := b.queue[0]
	b.queue = b.queue[1:]
	handler := b.handlers[event.Kind]
	b.mu.Unlock()

	if handler != nil {
		handler(event)
	}
}

// DeleteAll empties the queue without invoking any handlers.
func (b *Bus) DeleteAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = nil
}

// Disable quiesces the bus; subsequent Queue calls fail with ErrDisabled.
func (b *Bus) Disable() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disabled = true
}

// Len reports the current queue depth, mostly useful for tests and metrics.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}
