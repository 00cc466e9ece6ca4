package promise

import (
	"sort"
	"time"
)

// A Timer is a scheduled macrotask, as returned by [Loop.SetTimeout].
type Timer struct {
	loop    *Loop
	when    time.Time
	seq     uint64
	fn      func()
	stopped bool
}

// Stop cancels the timer. It has no effect if the timer already fired.
// A sleeping Run is woken up so that a stopped timer never delays
// quiescence.
func (t *Timer) Stop() {
	t.loop.mu.Lock()
	t.stopped = true
	t.loop.mu.Unlock()
	t.loop.notify()
}

func (t *Timer) less(u *Timer) bool {
	if !t.when.Equal(u.when) {
		return t.when.Before(u.when)
	}

	return t.seq < u.seq
}

// timerqueue keeps timers sorted by deadline, FIFO among equal
// deadlines. Stopped timers stay queued; the loop discards them as
// they surface at the head, before they contribute a sleep deadline.
type timerqueue []*Timer

func (q timerqueue) Empty() bool {
	return 0 == len(q)
}

func (q timerqueue) Peek() *Timer {
	return q[0]
}

func (q *timerqueue) Push(t *Timer) {
	s := *q

	i := sort.Search(len(s), func(i int) bool { return t.less(s[i]) })

	s = append(s, nil)
	copy(s[i+1:], s[i:])
	s[i] = t

	*q = s
}

func (q *timerqueue) Pop() *Timer {
	s := *q

	t := s[0]
	s[0] = nil
	*q = s[1:]

	return t
}
