package promise

// Outcome records how one input of [AllSettled] settled. Value is set
// for fulfilled inputs, Reason for rejected ones.
type Outcome struct {
	Status State
	Value  any
	Reason error
}

// AggregateError is the rejection reason of [Any] once every input has
// rejected. Reasons is index-aligned with the inputs.
type AggregateError struct {
	Reasons []error
}

func (e *AggregateError) Error() string {
	return "all promises were rejected"
}

func (e *AggregateError) Unwrap() []error {
	return e.Reasons
}

// All returns a promise that fulfills with every input's fulfillment
// value, index-aligned regardless of settlement order, once all inputs
// fulfill. It rejects with the first rejection as soon as it happens.
// With no inputs it fulfills with an empty slice.
func All(l *Loop, promises ...*Promise) *Promise {
	result := newPromise(l)

	if 0 == len(promises) {
		result.Resolve([]any{})

		return result
	}

	values := make([]any, len(promises))
	remaining := len(promises)

	for i, p := range promises {
		i := i

		p.subscribe(func(settled *Promise) {
			if StateRejected == settled.state {
				result.Reject(settled.err)
				return
			}

			values[i] = settled.value

			remaining--
			if 0 == remaining {
				result.Resolve(values)
			}
		})
	}

	return result
}

// Race returns a promise that settles like the first input to settle,
// fulfilled or rejected. "First" is settlement order: among inputs
// settling in the same turn, the one whose reaction was enqueued
// earlier wins. With no inputs the promise never settles.
func Race(l *Loop, promises ...*Promise) *Promise {
	result := newPromise(l)

	for _, p := range promises {
		p.subscribe(func(settled *Promise) {
			if StateRejected == settled.state {
				result.Reject(settled.err)
				return
			}

			result.Resolve(settled.value)
		})
	}

	return result
}

// AllSettled returns a promise that fulfills with one [Outcome] per
// input, index-aligned, once every input has settled. It never
// rejects. With no inputs it fulfills with an empty slice.
func AllSettled(l *Loop, promises ...*Promise) *Promise {
	result := newPromise(l)

	if 0 == len(promises) {
		result.Resolve([]Outcome{})

		return result
	}

	outcomes := make([]Outcome, len(promises))
	remaining := len(promises)

	for i, p := range promises {
		i := i

		p.subscribe(func(settled *Promise) {
			outcomes[i] = Outcome{
				Status: settled.state,
				Value:  settled.value,
				Reason: settled.err,
			}

			remaining--
			if 0 == remaining {
				result.Resolve(outcomes)
			}
		})
	}

	return result
}

// Any returns a promise that fulfills with the first fulfillment value.
// Only once every input has rejected does it reject, with an
// [AggregateError] carrying the reasons in input order. With no inputs
// it rejects immediately with an empty-cause AggregateError.
func Any(l *Loop, promises ...*Promise) *Promise {
	result := newPromise(l)

	if 0 == len(promises) {
		result.Reject(&AggregateError{})

		return result
	}

	reasons := make([]error, len(promises))
	remaining := len(promises)

	for i, p := range promises {
		i := i

		p.subscribe(func(settled *Promise) {
			if StateFulfilled == settled.state {
				result.Resolve(settled.value)
				return
			}

			reasons[i] = settled.err

			remaining--
			if 0 == remaining {
				result.Reject(&AggregateError{Reasons: reasons})
			}
		})
	}

	return result
}
