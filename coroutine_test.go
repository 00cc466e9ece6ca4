package promise

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAsync(t *testing.T) {
	t.Run("Body runs asynchronously", func(t *testing.T) {
		loop := NewLoop()
		registry := NewCallsRegistry()

		Async(loop, func(co *Coroutine) (any, error) {
			registry.Register("body")
			return nil, nil
		})

		registry.AssertCurrentCallsStackIs(t, "")
		loop.Run()
		registry.AssertCurrentCallsStackIs(t, "body")
	})

	t.Run("Return value fulfills the promise", func(t *testing.T) {
		loop := NewLoop()

		promise := Async(loop, func(co *Coroutine) (any, error) {
			return 42, nil
		})
		loop.Run()

		require.Equal(t, StateFulfilled, promise.state)
		require.Equal(t, 42, promise.value)
	})

	t.Run("Returned error rejects the promise", func(t *testing.T) {
		loop := NewLoop()
		silenceRejections(loop)
		reason := errors.New("kaput")

		promise := Async(loop, func(co *Coroutine) (any, error) {
			return nil, reason
		})
		loop.Run()

		require.Equal(t, StateRejected, promise.state)
		require.Same(t, reason, promise.err)
	})

	t.Run("Panic in the body rejects the promise", func(t *testing.T) {
		loop := NewLoop()
		silenceRejections(loop)

		promise := Async(loop, func(co *Coroutine) (any, error) {
			panic("boom")
		})
		loop.Run()

		require.Equal(t, StateRejected, promise.state)
		require.ErrorContains(t, promise.err, "boom")
	})

	t.Run("Returned promise is adopted", func(t *testing.T) {
		loop := NewLoop()

		promise := Async(loop, func(co *Coroutine) (any, error) {
			return Delay(loop, "inner", 5*time.Millisecond), nil
		})
		loop.Run()

		require.Equal(t, StateFulfilled, promise.state)
		require.Equal(t, "inner", promise.value)
	})
}

func TestCoroutineAwait(t *testing.T) {
	t.Run("Await unwraps the fulfillment value", func(t *testing.T) {
		loop := NewLoop()

		promise := Async(loop, func(co *Coroutine) (any, error) {
			value, err := co.Await(Delay(loop, 41, 5*time.Millisecond))
			if nil != err {
				return nil, err
			}

			return value.(int) + 1, nil
		})
		loop.Run()

		require.Equal(t, StateFulfilled, promise.state)
		require.Equal(t, 42, promise.value)
	})

	t.Run("Await surfaces the rejection reason", func(t *testing.T) {
		loop := NewLoop()
		reason := errors.New("kaput")

		promise := Async(loop, func(co *Coroutine) (any, error) {
			if _, err := co.Await(Reject(loop, reason)); nil != err {
				return "recovered: " + err.Error(), nil
			}

			return nil, errors.New("expected a rejection")
		})
		loop.Run()

		require.Equal(t, StateFulfilled, promise.state)
		require.Equal(t, "recovered: kaput", promise.value)
	})

	t.Run("The loop keeps running during a suspension", func(t *testing.T) {
		loop := NewLoop()
		registry := NewCallsRegistry()

		loop.SetTimeout(func() { registry.Register("timer") }, 5*time.Millisecond)

		Async(loop, func(co *Coroutine) (any, error) {
			registry.Register("before")
			co.Await(Delay(loop, nil, 10*time.Millisecond))
			registry.Register("after")
			return nil, nil
		})
		loop.Run()

		registry.AssertCurrentCallsStackIs(t, "before|timer|after")
	})

	t.Run("Await resumes a turn later even for settled promises", func(t *testing.T) {
		loop := NewLoop()
		registry := NewCallsRegistry()

		Async(loop, func(co *Coroutine) (any, error) {
			registry.Register("start")
			co.Await(Resolve(loop, 1))
			registry.Register("resumed")
			return nil, nil
		})

		Resolve(loop, 1).Then(func(value any) (any, error) {
			registry.Register("reaction")
			return nil, nil
		})

		loop.Run()

		registry.AssertCurrentCallsStackIs(t, "start|reaction|resumed")
	})

	t.Run("Coroutines can await each other", func(t *testing.T) {
		loop := NewLoop()

		promise := Async(loop, func(co *Coroutine) (any, error) {
			inner := Async(loop, func(co *Coroutine) (any, error) {
				value, err := co.Await(Delay(loop, 20, 5*time.Millisecond))
				if nil != err {
					return nil, err
				}

				return value.(int) + 1, nil
			})

			value, err := co.Await(inner)
			if nil != err {
				return nil, err
			}

			return value.(int) * 2, nil
		})
		loop.Run()

		require.Equal(t, StateFulfilled, promise.state)
		require.Equal(t, 42, promise.value)
	})
}
