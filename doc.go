// Package promise implements JavaScript-style promises on top of an
// explicit, single-threaded event loop.
//
// A [Promise] is a container for a value that is not available yet.
// It starts out pending and settles exactly once, either fulfilled with
// a value or rejected with an error. Reactions registered with
// [Promise.Then], [Promise.Catch] and [Promise.Finally] each return a new
// Promise and always run asynchronously, as microtasks on the promise's
// [Loop], in registration order.
//
// A [Loop] is a cooperative scheduler: it drains its microtask queue
// completely before firing any timer, the way a JavaScript event loop
// interleaves promise reactions and setTimeout callbacks. Everything
// scheduled on a Loop runs on the single goroutine that called
// [Loop.Run]; promises may be settled from other goroutines, but their
// reactions never run there.
//
// The aggregation combinators [All], [Race], [AllSettled] and [Any]
// follow the semantics of their Promise counterparts; their inputs must
// all live on the same Loop as the result. [Async] with
// [Coroutine.Await] provides the async/await form: a coroutine suspends
// at each Await without blocking the loop, and resumes with the
// unwrapped value once the awaited promise settles.
//
// A rejection that never gets a handler is reported through
// [Loop.OnUnhandledRejection] once the microtask queue drains. It is a
// diagnostic, not a crash.
package promise
