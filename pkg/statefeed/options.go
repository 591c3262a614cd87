package statefeed

import (
	"github.com/tracklab-io/statefeed/internal/domain"
	"github.com/tracklab-io/statefeed/internal/ports"
	"github.com/tracklab-io/statefeed/internal/store"
	"github.com/tracklab-io/statefeed/pkg/log"
)

// Logger is the structured logging interface consumed by the receiver.
type Logger = log.Logger

// Event is one observed entity event as delivered to handlers.
type Event = domain.Event

// Handler processes one entity event.
type Handler = ports.Handler

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc = ports.HandlerFunc

// DistanceFunc compares a new state vector against the stored one.
type DistanceFunc = store.DistanceFunc

// StateVector is the six-component domain measurement.
type StateVector = domain.StateVector

// Option configures optional behavior of a receiver.
type Option func(*options)

// options holds the optional configuration for a Statefeed instance.
type options struct {
	logger   ports.Logger
	handler  ports.Handler
	distance store.DistanceFunc
}

// WithLogger sets the logger for receiver internals and the default
// handler's event records. Without it, logging is discarded.
func WithLogger(l Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHandler replaces the default diff-and-log handler with custom
// business logic.
func WithHandler(h Handler) Option {
	return func(o *options) { o.handler = h }
}

// WithDistanceFunc replaces the Euclidean distance used by the default
// handler. Ignored when WithHandler is set.
func WithDistanceFunc(d DistanceFunc) Option {
	return func(o *options) { o.distance = d }
}
