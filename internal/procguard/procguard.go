// Package procguard enforces a single running instance per controller
// process via an exclusive flock on a lock file, matching the
// try-lock-with-retry idiom in
// nucleus/internal/supervisor/supervisor.go (there used to serialise
// telemetry writes; here used to guard process singleton instead).
package procguard

import (
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// Guard holds the exclusive lock for the lifetime of a process.
type Guard struct {
	lock *flock.Flock
}

// Acquire tries to take the exclusive lock at path, retrying briefly to
// absorb a lock held by a process that is mid-shutdown. Returns an error if
// another live instance already holds it.
func Acquire(path string) (*Guard, error) {
	lock := flock.New(path)

	var locked bool
	var err error
	for i := 0; i < 5; i++ {
		locked, err = lock.TryLock()
		if err == nil && locked {
			return &Guard{lock: lock}, nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err != nil {
		return nil, fmt.Errorf("procguard: acquiring lock %s: %w", path, err)
	}
	return nil, fmt.Errorf("procguard: another instance already holds %s", path)
}

// Release gives up the lock. Safe to call once at shutdown.
func (g *Guard) Release() error {
	return g.lock.Unlock()
}
