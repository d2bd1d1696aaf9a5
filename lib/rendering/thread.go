package rendering

import (
	"runtime"
	"sync"
)

// contextThread runs submitted work on one locked OS thread, which is what
// GL contexts require.
type contextThread struct {
	tasks    chan func()
	stopped  chan struct{}
	stopOnce sync.Once
	mu       sync.RWMutex
	closed   bool
}

// startContextThread starts the thread and runs setup on it. teardown runs
// on the same thread once the thread is stopped.
func startContextThread(setup func() error, teardown func()) (*contextThread, error) {
	t := &contextThread{
		tasks:   make(chan func()),
		stopped: make(chan struct{}),
	}
	ready := make(chan error)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(t.stopped)

		if setup != nil {
			if err := setup(); err != nil {
				ready <- err
				return
			}
		}
		close(ready)

		for fn := range t.tasks {
			fn()
		}
		if teardown != nil {
			teardown()
		}
	}()
	if err := <-ready; err != nil {
		return nil, err
	}
	return t, nil
}

// run executes fn on the thread and waits for it. It reports false when the
// thread has been stopped.
func (t *contextThread) run(fn func()) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return false
	}
	done := make(chan struct{})
	t.tasks <- func() {
		defer close(done)
		fn()
	}
	<-done
	return true
}

func (t *contextThread) stop() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		close(t.tasks)
		t.mu.Unlock()
		<-t.stopped
	})
}
