package promise

type State string

const (
	StatePending   = State("pending")
	StateFulfilled = State("fulfilled")
	StateRejected  = State("rejected")
)

// Resolver fulfills a pending promise. Passing a *Promise makes the
// promise adopt that promise's eventual outcome instead.
type Resolver func(value any)

// Rejector rejects a pending promise.
type Rejector func(reason error)

// FulfillHandler consumes a fulfillment value. Returning a non-nil err
// rejects the chained promise; returning a *Promise result makes the
// chained promise adopt it.
type FulfillHandler func(value any) (result any, err error)

// RejectHandler consumes a rejection reason. Returning a nil err
// recovers: the chained promise fulfills with result.
type RejectHandler func(reason error) (result any, err error)

// FinallyHandler runs on either outcome and sees neither value nor
// reason. The chained promise passes the original outcome through.
type FinallyHandler func()

type Promiser interface {
	Then(handler FulfillHandler) *Promise
	Catch(handler RejectHandler) *Promise
	Finally(handler FinallyHandler) *Promise
	Resolve(value any)
	Reject(reason error)
}
