package promise

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// A Loop is a single-threaded cooperative scheduler: a microtask queue
// for promise reactions and a timer queue for macrotasks.
//
// Run pops and runs tasks on the calling goroutine until nothing is
// left. The microtask queue is always drained completely before a timer
// fires, so reactions of a settlement run after the current task
// completes and before any subsequently queued timer work.
//
// Promises may be settled and tasks posted from other goroutines; the
// queues are mutex-guarded and a sleeping Run is woken up. But the
// tasks themselves only ever run on the Run goroutine. If one task
// blocks, no other task can run. The best practice is not to block.
type Loop struct {
	mu      sync.Mutex
	micro   []func()
	timers  timerqueue
	seq     uint64
	refs    int
	running bool
	wake    chan struct{}

	rejections  []*Promise
	onUnhandled func(reason error)
}

func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
	}
}

// Run executes tasks until the loop is quiescent: no microtasks, no
// timers and a zero reference count. It sleeps between timers and wakes
// up on cross-goroutine settlements and posts.
//
// Run must not be called twice at the same time, and must not be called
// from a task.
func (l *Loop) Run() {
	l.mu.Lock()

	if l.running {
		l.mu.Unlock()
		panic("promise: Loop.Run called twice at the same time")
	}

	l.running = true

	for {
		l.drain()
		l.report()

		if 0 != len(l.micro) {
			continue
		}

		if !l.timers.Empty() {
			t := l.timers.Peek()

			if t.stopped {
				l.timers.Pop()
				continue
			}

			d := time.Until(t.when)
			if d <= 0 {
				l.timers.Pop()

				l.mu.Unlock()
				t.fn()
				l.mu.Lock()

				continue
			}

			l.sleep(d)

			continue
		}

		if 0 == l.refs {
			break
		}

		l.mu.Unlock()
		<-l.wake
		l.mu.Lock()
	}

	l.running = false
	l.mu.Unlock()
}

// drain runs microtasks in FIFO order until none are left, including
// the ones they enqueue themselves. The caller holds l.mu.
func (l *Loop) drain() {
	for 0 != len(l.micro) {
		t := l.micro[0]
		l.micro = l.micro[1:]

		l.mu.Unlock()
		t()
		l.mu.Lock()
	}
}

// report surfaces rejections that still have no handler now that the
// microtask queue is drained. Each promise is reported at most once.
// The caller holds l.mu.
func (l *Loop) report() {
	for 0 != len(l.rejections) {
		p := l.rejections[0]
		l.rejections = l.rejections[1:]

		if p.handled {
			continue
		}

		p.handled = true

		handler := l.onUnhandled
		if nil == handler {
			handler = defaultUnhandled
		}
		reason := p.err

		l.mu.Unlock()
		handler(reason)
		l.mu.Lock()
	}
}

// sleep waits for the earliest timer deadline or an earlier wakeup.
// The caller holds l.mu.
func (l *Loop) sleep(d time.Duration) {
	l.mu.Unlock()

	t := time.NewTimer(d)
	select {
	case <-l.wake:
		t.Stop()
	case <-t.C:
	}

	l.mu.Lock()
}

// notify wakes up a sleeping Run. Non-blocking; a single pending token
// is enough since Run re-checks its queues on every lap.
func (l *Loop) notify() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// microtask enqueues t behind every queued microtask. The caller must
// not hold l.mu.
func (l *Loop) microtask(t func()) {
	l.mu.Lock()
	l.micro = append(l.micro, t)
	l.mu.Unlock()
	l.notify()
}

// SetTimeout schedules fn to run once delay has elapsed, after every
// timer with an earlier deadline and every microtask queued by then.
// Safe for concurrent use.
func (l *Loop) SetTimeout(fn func(), delay time.Duration) *Timer {
	if delay < 0 {
		delay = 0
	}

	l.mu.Lock()

	l.seq++
	t := &Timer{
		loop: l,
		when: time.Now().Add(delay),
		seq:  l.seq,
		fn:   fn,
	}
	l.timers.Push(t)

	l.mu.Unlock()
	l.notify()

	return t
}

// Post schedules fn to run on the loop as a macrotask. Safe for
// concurrent use.
func (l *Loop) Post(fn func()) {
	l.SetTimeout(fn, 0)
}

// Ref keeps Run from returning while an external operation is in
// flight, e.g. a goroutine that settles a promise later. Pair it with
// Unref.
func (l *Loop) Ref() {
	l.mu.Lock()
	l.refs++
	l.mu.Unlock()
}

func (l *Loop) Unref() {
	l.mu.Lock()
	l.refs--

	if l.refs < 0 {
		l.mu.Unlock()
		panic("promise: Loop.Unref without a matching Ref")
	}

	l.mu.Unlock()
	l.notify()
}

// OnUnhandledRejection replaces the diagnostic for rejections that
// never got a handler. The default logs a warning.
func (l *Loop) OnUnhandledRejection(handler func(reason error)) {
	l.mu.Lock()
	l.onUnhandled = handler
	l.mu.Unlock()
}

func defaultUnhandled(reason error) {
	logrus.WithField("reason", reason).Warn("unhandled promise rejection")
}
