// Package dispatch implements the notification dispatch pipeline: persisting
// in-app messages, deciding per user and category whether an email copy is
// warranted, and delivering that email without blocking the HTTP response.
//
// # Control flow
//
// A business event calls a Dispatcher method (Notify, NotifyBatch,
// Broadcast, or one of the dedicated producers). The in-app message is
// always written through messages.Store; the email copy is gated by
// prefs.Service and recipient resolution, and when it survives the gates it
// is enqueued as a typed Job in the dispatcher's pending batch.
//
// At end-of-request the batch is flushed through one of three paths, in
// order of preference:
//
//   - inline: flush the HTTP response to the client, then run the jobs in
//     the same process (the client never waits on email work)
//   - spawned: serialize the batch to a temp file and hand it to a detached
//     worker process (cmd/emailworker), fire-and-forget
//   - synchronous fallback: if spawning fails for any reason, run the jobs
//     before the request completes — delivery is never dropped, only the
//     non-blocking property
//
// Hand-off is at-most-once: the batch leaves the dispatcher before any
// execution starts. If the spawned worker crashes after reading the job
// file, those jobs are lost; there is no retry and no delivery confirmation
// at this layer.
//
// # Concurrency
//
// One request owns one Dispatcher on one goroutine; there are no locks. The
// only concurrency in this subsystem is the detached worker, which shares
// nothing with its parent.
//
// Nothing in this package returns errors to the originating business
// action: a message send never fails because email delivery failed.
package dispatch
