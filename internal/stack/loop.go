package stack

import (
	"sync"
	"time"
)

// Loop runs functions one at a time on a single logical thread.
// Post must be safe to call from any goroutine.
type Loop interface {
	Post(fn func())
}

// LoopFunc adapts a function to the Loop interface.
type LoopFunc func(fn func())

// Post calls f(fn).
func (f LoopFunc) Post(fn func()) {
	f(fn)
}

// Timer is a cancellable delayed action. Stop is safe to call more than once
// and after the timer has fired.
type Timer interface {
	Stop() bool
}

// Clock creates timers and reports the current time.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// AfterFunc wraps time.AfterFunc.
func (SystemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// SerialLoop is a goroutine-backed Loop for hosts without their own event loop.
type SerialLoop struct {
	mu      sync.Mutex
	queue   chan func()
	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped bool
}

// NewSerialLoop starts a loop with room for size pending functions.
func NewSerialLoop(size int) *SerialLoop {
	if size <= 0 {
		size = 64
	}
	l := &SerialLoop{
		queue:  make(chan func(), size),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go l.run()
	return l
}

// Post queues fn. Functions posted after Stop are dropped.
func (l *SerialLoop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	select {
	case l.queue <- fn:
	case <-l.stopCh:
	}
}

// Do posts fn and waits for it to run. It returns false if the loop stopped first.
func (l *SerialLoop) Do(fn func()) bool {
	done := make(chan struct{})
	l.Post(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
		return true
	case <-l.doneCh:
		return false
	}
}

// Stop ends the loop after the function currently running returns.
func (l *SerialLoop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	close(l.stopCh)
	l.mu.Unlock()

	<-l.doneCh
}

func (l *SerialLoop) run() {
	defer close(l.doneCh)
	for {
		select {
		case fn := <-l.queue:
			fn()
		case <-l.stopCh:
			return
		}
	}
}
