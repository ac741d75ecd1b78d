package dispatch

import (
	"context"
	"net/http"
)

type ctxKey struct{}

// FromContext returns the request-scoped Dispatcher installed by Middleware,
// or nil when the request did not pass through it.
func FromContext(ctx context.Context) *Dispatcher {
	d, _ := ctx.Value(ctxKey{}).(*Dispatcher)
	return d
}

// Middleware gives every request its own Dispatcher and flushes it after the
// handler returns. newDispatcher is called once per request.
//
// When the ResponseWriter supports http.Flusher the inline path is armed:
// the flush pushes the buffered response to the client before any email work
// runs. Otherwise the flush hands the batch to a detached worker process.
func Middleware(newDispatcher func() *Dispatcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := newDispatcher()
			if f, ok := w.(http.Flusher); ok && d.responseFlush == nil {
				d.responseFlush = f.Flush
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, d)
			next.ServeHTTP(w, r.WithContext(ctx))

			// Email work must survive the client connection ending with
			// the handler.
			d.Flush(context.WithoutCancel(r.Context()))
		})
	}
}
