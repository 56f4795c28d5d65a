package story

import (
	"context"
	"sync"
)

// runLocks serialises runs that write under the same output directory.
// The zero value is ready to use.
type runLocks struct {
	mu   sync.Mutex
	held map[string]*runLock
}

type runLock struct {
	slot chan struct{}
	refs int
}

// acquire blocks until key is free or ctx is done.
func (l *runLocks) acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	if l.held == nil {
		l.held = make(map[string]*runLock)
	}
	e := l.held[key]
	if e == nil {
		e = &runLock{slot: make(chan struct{}, 1)}
		l.held[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.slot <- struct{}{}:
		return func() {
			<-e.slot
			l.forget(key, e)
		}, nil
	case <-ctx.Done():
		l.forget(key, e)
		return nil, ctx.Err()
	}
}

func (l *runLocks) forget(key string, e *runLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.held, key)
	}
}
