package promise

import (
	"errors"
	"fmt"
	"time"
)

// ErrSelfResolution rejects a promise that was resolved with itself.
var ErrSelfResolution = errors.New("promise cannot adopt itself")

// Promise is a write-once container for a value that is not available
// yet. All state is guarded by its Loop's mutex; reactions run as
// microtasks on that Loop.
type Promise struct {
	loop      *Loop
	state     State
	value     any
	err       error
	reactions []*reaction

	// resolving locks the promise while it adopts another promise:
	// state is still pending, but the public settlers are no-ops.
	resolving bool

	// handled reports whether anything ever observed a rejection of
	// this promise. Rejections with handled == false are diagnosed.
	handled bool

	done chan struct{}
}

// A reaction is one registered observer of a settlement. Exactly one of
// the handler fields or settled is in use; child is the promise the
// reaction settles (nil for internal subscribers).
type reaction struct {
	onFulfilled FulfillHandler
	onRejected  RejectHandler
	onFinalized FinallyHandler
	child       *Promise
	settled     func(settled *Promise)
}

func newPromise(l *Loop) *Promise {
	return &Promise{
		loop:  l,
		state: StatePending,
		done:  make(chan struct{}),
	}
}

// New creates a promise and runs executor synchronously with its
// settlement pair. The executor typically hands resolve/reject to a
// timer callback or a goroutine (remember to Ref the loop for the
// latter).
func New(l *Loop, executor func(resolve Resolver, reject Rejector)) *Promise {
	p := newPromise(l)
	executor(p.Resolve, p.Reject)
	return p
}

// Pending creates a promise that is settled later via its Resolve and
// Reject methods.
func Pending(l *Loop) *Promise {
	return newPromise(l)
}

// Resolve creates a fulfilled promise. If value is itself a *Promise,
// it is returned as is.
func Resolve(l *Loop, value any) *Promise {
	if inner, ok := value.(*Promise); ok {
		return inner
	}

	p := newPromise(l)
	p.Resolve(value)

	return p
}

// Reject creates a rejected promise.
func Reject(l *Loop, reason error) *Promise {
	p := newPromise(l)
	p.Reject(reason)

	return p
}

// Delay creates a promise that fulfills with value once d has elapsed.
func Delay(l *Loop, value any, d time.Duration) *Promise {
	p := newPromise(l)
	l.SetTimeout(func() { p.Resolve(value) }, d)

	return p
}

func (p *Promise) Then(handler FulfillHandler) *Promise {
	return p.registerHandlers(handler, nil, nil)
}

func (p *Promise) Catch(handler RejectHandler) *Promise {
	return p.registerHandlers(nil, handler, nil)
}

func (p *Promise) Finally(handler FinallyHandler) *Promise {
	return p.registerHandlers(nil, nil, handler)
}

func (p *Promise) registerHandlers(fulfillHandler FulfillHandler, rejectHandler RejectHandler, finallyHandler FinallyHandler) *Promise {
	l := p.loop

	child := newPromise(l)
	r := &reaction{
		onFulfilled: fulfillHandler,
		onRejected:  rejectHandler,
		onFinalized: finallyHandler,
		child:       child,
	}

	l.mu.Lock()

	p.handled = true

	if StatePending == p.state {
		p.reactions = append(p.reactions, r)
		l.mu.Unlock()

		return child
	}

	p.schedule(r)
	l.mu.Unlock()
	l.notify()

	return child
}

// subscribe registers an internal observer: fn runs as a microtask with
// p once p settles. Counts as handling a rejection.
func (p *Promise) subscribe(fn func(settled *Promise)) {
	l := p.loop
	r := &reaction{settled: fn}

	l.mu.Lock()

	p.handled = true

	if StatePending == p.state {
		p.reactions = append(p.reactions, r)
		l.mu.Unlock()

		return
	}

	p.schedule(r)
	l.mu.Unlock()
	l.notify()
}

// Resolve fulfills the promise, or makes it adopt value's outcome when
// value is a *Promise. No-op once the promise is settled or resolving.
// Safe for concurrent use.
func (p *Promise) Resolve(value any) {
	if inner, ok := value.(*Promise); ok {
		p.adopt(inner)
		return
	}

	l := p.loop

	l.mu.Lock()

	if StatePending != p.state || p.resolving {
		l.mu.Unlock()
		return
	}

	p.settleLocked(StateFulfilled, value, nil)
	l.mu.Unlock()
	l.notify()
}

// Reject rejects the promise. No-op once the promise is settled or
// resolving. Safe for concurrent use.
func (p *Promise) Reject(reason error) {
	l := p.loop

	l.mu.Lock()

	if StatePending != p.state || p.resolving {
		l.mu.Unlock()
		return
	}

	p.settleLocked(StateRejected, nil, reason)
	l.mu.Unlock()
	l.notify()
}

// adopt resolves p with another promise: p stays pending until inner
// settles, then takes over inner's outcome. Flattening, not nesting.
func (p *Promise) adopt(inner *Promise) {
	if inner == p {
		p.Reject(ErrSelfResolution)
		return
	}

	l := p.loop

	l.mu.Lock()

	if StatePending != p.state || p.resolving {
		l.mu.Unlock()
		return
	}

	p.resolving = true

	r := &reaction{settled: p.settleFrom}
	inner.handled = true

	if StatePending == inner.state {
		inner.reactions = append(inner.reactions, r)
		l.mu.Unlock()

		return
	}

	inner.schedule(r)
	l.mu.Unlock()
	l.notify()
}

// settleFrom copies a settled promise's outcome onto p, releasing the
// resolving lock taken by adopt.
func (p *Promise) settleFrom(settled *Promise) {
	l := p.loop

	l.mu.Lock()

	p.resolving = false

	if StatePending != p.state {
		l.mu.Unlock()
		return
	}

	p.settleLocked(settled.state, settled.value, settled.err)
	l.mu.Unlock()
	l.notify()
}

// settleLocked performs the one-time transition out of pending and
// schedules every registered reaction, in registration order. The
// caller holds l.mu and has verified p is pending and not resolving.
func (p *Promise) settleLocked(state State, value any, reason error) {
	p.state = state
	p.value = value
	p.err = reason

	close(p.done)

	for _, r := range p.reactions {
		p.schedule(r)
	}
	p.reactions = nil

	if StateRejected == state && !p.handled {
		p.loop.rejections = append(p.loop.rejections, p)
	}
}

// schedule enqueues a reaction of the settled promise p as a microtask.
// The caller holds p.loop.mu.
func (p *Promise) schedule(r *reaction) {
	p.loop.micro = append(p.loop.micro, func() { r.run(p) })
}

// run delivers a settlement to the reaction. It runs as a microtask on
// the loop goroutine; parent is settled and immutable by now.
func (r *reaction) run(parent *Promise) {
	if nil != r.settled {
		r.settled(parent)
		return
	}

	if nil != r.onFinalized {
		if _, err := protect(func() (any, error) {
			r.onFinalized()
			return nil, nil
		}); nil != err {
			r.child.Reject(err)
			return
		}

		r.passThrough(parent)

		return
	}

	switch parent.state {
	case StateFulfilled:
		if nil == r.onFulfilled {
			r.child.Resolve(parent.value)
			return
		}

		r.settleChild(protect(func() (any, error) { return r.onFulfilled(parent.value) }))

	case StateRejected:
		if nil == r.onRejected {
			r.child.Reject(parent.err)
			return
		}

		r.settleChild(protect(func() (any, error) { return r.onRejected(parent.err) }))
	}
}

func (r *reaction) settleChild(result any, err error) {
	if nil != err {
		r.child.Reject(err)
		return
	}

	r.child.Resolve(result)
}

func (r *reaction) passThrough(parent *Promise) {
	if StateRejected == parent.state {
		r.child.Reject(parent.err)
		return
	}

	r.child.Resolve(parent.value)
}

// protect converts a panic in a handler into an error, so that it
// becomes a rejection instead of tearing down the loop.
func protect(f func() (any, error)) (result any, err error) {
	defer func() {
		if v := recover(); nil != v {
			if e, ok := v.(error); ok {
				err = fmt.Errorf("promise: recovered panic: %w", e)
			} else {
				err = fmt.Errorf("promise: recovered panic: %v", v)
			}
		}
	}()

	return f()
}

// State reports the promise's current state. Safe for concurrent use.
func (p *Promise) State() State {
	l := p.loop

	l.mu.Lock()
	defer l.mu.Unlock()

	return p.state
}

// Await blocks the calling goroutine until the promise settles and
// returns the unwrapped outcome. It is meant for goroutines outside the
// loop; calling it from a reaction or a timer callback deadlocks the
// loop. Inside a coroutine, use [Coroutine.Await] instead.
func (p *Promise) Await() (any, error) {
	l := p.loop

	l.mu.Lock()
	p.handled = true
	l.mu.Unlock()

	<-p.done

	if StateRejected == p.state {
		return nil, p.err
	}

	return p.value, nil
}
