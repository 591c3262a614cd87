package ports

import (
	"context"

	"github.com/tracklab-io/statefeed/internal/domain"
)

// Handler processes one decoded entity event. Implementations decide
// what an observation means for the business; the worker only promises
// that every event it delivers came from a packet with IsValid set.
//
// Handle should complete quickly: it runs on the worker goroutine and
// slow handlers delay every datagram behind the current one. A returned
// error is logged by the worker and the loop continues.
type Handler interface {
	Handle(ctx context.Context, ev domain.Event) error
}

// The HandlerFunc type is an adapter to allow the use of ordinary
// functions as event handlers.
type HandlerFunc func(ctx context.Context, ev domain.Event) error

// Handle calls f(ctx, ev).
func (f HandlerFunc) Handle(ctx context.Context, ev domain.Event) error {
	return f(ctx, ev)
}
