package promise

// CoroutineFunc is the body of an [Async] computation. Its return
// settles the Async promise: a non-nil err rejects it, a *Promise
// result is adopted, anything else fulfills it.
type CoroutineFunc func(co *Coroutine) (result any, err error)

// A Coroutine is the suspension handle passed to a [CoroutineFunc].
//
// The body runs on its own goroutine, but in strict alternation with
// the loop: whenever the body is executing, the loop goroutine is
// parked, and vice versa. Handoff happens at Await points only, so the
// body observes the same single-threaded world as any reaction.
type Coroutine struct {
	loop *Loop
	in   chan struct{}
	out  chan *Promise
	p    *Promise
}

// Async runs fn as a coroutine on l and returns the promise of its
// result. The body starts asynchronously, in a microtask.
func Async(l *Loop, fn CoroutineFunc) *Promise {
	co := &Coroutine{
		loop: l,
		in:   make(chan struct{}),
		out:  make(chan *Promise),
		p:    newPromise(l),
	}

	go co.run(fn)
	l.microtask(co.step)

	return co.p
}

func (co *Coroutine) run(fn CoroutineFunc) {
	<-co.in

	result, err := protect(func() (any, error) { return fn(co) })
	if nil != err {
		co.p.Reject(err)
	} else {
		co.p.Resolve(result)
	}

	co.out <- nil
}

// step resumes the coroutine and parks until it suspends again. A nil
// yield means the body returned; otherwise the coroutine is awaiting
// the yielded promise, and step re-arms itself for its settlement.
// step always runs on the loop goroutine.
func (co *Coroutine) step() {
	co.in <- struct{}{}

	awaited := <-co.out
	if nil == awaited {
		return
	}

	awaited.subscribe(func(*Promise) { co.step() })
}

// Await suspends the coroutine until p settles and returns the
// unwrapped outcome. The loop keeps running other work during the
// suspension; the coroutine resumes in a microtask after settlement,
// even if p is already settled. Awaiting a rejection counts as
// handling it.
func (co *Coroutine) Await(p *Promise) (any, error) {
	co.out <- p
	<-co.in

	if StateRejected == p.state {
		return nil, p.err
	}

	return p.value, nil
}
