package dispatch

import "context"

// Gateway performs the actual delivery of one email job: rendering and
// transport live behind it. The same Gateway is invoked from the inline,
// spawned-worker, and synchronous-fallback paths.
//
// A nil Gateway on the Dispatcher disables every email path; in-app messages
// are still written.
type Gateway interface {
	Send(ctx context.Context, job Job) error
}
