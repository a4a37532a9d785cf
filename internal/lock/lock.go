// Package lock serializes writers of the same key, in process or across
// instances through Redis.
package lock

import (
	"context"
	"errors"
)

// ErrNotAcquired is returned when the lock could not be taken before the
// context ended.
var ErrNotAcquired = errors.New("lock not acquired")

// Release gives a held lock back. Calling it more than once is a no-op.
type Release func()

// Locker hands out exclusive locks by name
type Locker interface {
	// Acquire blocks until the named lock is held or ctx is done
	Acquire(ctx context.Context, name string) (Release, error)

	// Close releases the resources of the locker
	Close() error
}
