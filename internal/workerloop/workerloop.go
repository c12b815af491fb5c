// Package workerloop implements the single-threaded cooperative tick that
// drives both controller processes (spec §4.2): sweep transitory events,
// poll devices, drain one bus event, sleep. Grounded on
// sentinel/internal/health/guardian.go's ticker-driven supervision goroutine
// and sentinel/internal/ignition/monitor.go's cooperative stop handling,
// generalized from their fixed 10s health check down to the spec's 100ms
// (central controller) / 10ms (keypad controller) cadence.
package workerloop

import (
	"sync"
	"time"

	"secureshed/internal/logging"
)

// Tick is invoked once per interval. Implementations are expected to be
// cheap and non-blocking: a slow tick delays every subsequent one, since the
// loop is single-threaded by design (spec §4.2).
type Tick func()

// Loop drives a single Tick function at a fixed interval until stopped.
// Shutdown is cooperative: Stop sets a flag, the loop finishes its current
// iteration, then ShuttingDownComplete reports true. There is no forced
// cancellation mid-tick, matching spec §4.2's "the loop completes its
// current iteration" contract.
type Loop struct {
	interval time.Duration
	tick     Tick
	log      *logging.Logger

	mu        sync.Mutex
	stopping  bool
	completed bool
	done      chan struct{}
}

// New builds a loop that calls tick every interval. Call Run to start it.
func New(interval time.Duration, tick Tick, log *logging.Logger) *Loop {
	return &Loop{
		interval: interval,
		tick:     tick,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Run blocks, ticking at interval until Stop is called. Intended to be the
// entire body of the goroutine a cmd/* entrypoint launches at boot.
func (l *Loop) Run() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for range ticker.C {
		if l.shouldStop() {
			break
		}
		l.runTick()
	}

	l.mu.Lock()
	l.completed = true
	l.mu.Unlock()
	close(l.done)
}

func (l *Loop) runTick() {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("worker tick panicked, recovered: %v", r)
		}
	}()
	l.tick()
}

func (l *Loop) shouldStop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopping
}

// Stop requests shutdown. The loop finishes whatever iteration is in flight
// (or the next ticker fire, if idle) before marking itself complete.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopping = true
	l.mu.Unlock()
}

// ShuttingDownComplete reports the shutdown_completed flag from spec §4.2,
// polled by a supervisor at 1s granularity.
func (l *Loop) ShuttingDownComplete() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.completed
}

// Done returns a channel closed once the loop has fully stopped, for tests
// and supervisors that prefer to block rather than poll.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// BusDrainer is the subset of *eventbus.Bus the central tick needs.
type BusDrainer interface {
	ProcessNext()
}

// GPIORescanner is the subset of *gpio.Controller the central tick needs.
type GPIORescanner interface {
	Rescan() error
}

// DeviceChecker is the subset of *devicemanager.Manager the central tick
// needs.
type DeviceChecker interface {
	CheckAll()
}

// CentralTick composes the central controller's per-iteration work (spec
// §4.2): sweep transitory events (reserved hook, no-op in the default
// policy), rescan the GPIO backend and poll every live device, then drain
// exactly one bus event. sweepTransitoryEvents may be nil.
func CentralTick(gpioCtl GPIORescanner, devices DeviceChecker, bus BusDrainer, log *logging.Logger, sweepTransitoryEvents func()) Tick {
	return func() {
		if sweepTransitoryEvents != nil {
			sweepTransitoryEvents()
		}
		if err := gpioCtl.Rescan(); err != nil {
			log.Warning("gpio rescan failed: %v", err)
		}
		devices.CheckAll()
		bus.ProcessNext()
	}
}

// PanelTicker is the subset of *panel.Panel the keypad tick needs.
type PanelTicker interface {
	Tick()
}

// KeypadTick composes the keypad controller's per-iteration work: drive the
// panel state machine once (reconnect probe cadence, lock-deadline expiry,
// digit-sequence timeout).
func KeypadTick(p PanelTicker) Tick {
	return func() {
		p.Tick()
	}
}
