package lock

import (
	"context"
	"fmt"
	"sync"
)

type keyedEntry struct {
	sem  chan struct{}
	refs int
}

// KeyedMutex is an in-process Locker with one mutex per name. Entries are
// dropped once nobody holds or waits for them.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyedEntry)}
}

func (k *KeyedMutex) Acquire(ctx context.Context, name string) (Release, error) {
	k.mu.Lock()
	e, ok := k.entries[name]
	if !ok {
		e = &keyedEntry{sem: make(chan struct{}, 1)}
		k.entries[name] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		k.unref(name, e)
		return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, name, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			k.unref(name, e)
		})
	}, nil
}

func (k *KeyedMutex) unref(name string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, name)
	}
}

// Len returns the number of names currently held or waited for
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

func (k *KeyedMutex) Close() error {
	return nil
}
