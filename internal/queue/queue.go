// Package queue provides the bounded arrival buffer between the
// listener and the worker pool.
package queue

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tracklab-io/statefeed/internal/domain"
	"github.com/tracklab-io/statefeed/internal/ports"
	"github.com/tracklab-io/statefeed/pkg/log"
)

// DefaultCapacity is the arrival queue capacity used when none is
// configured.
const DefaultCapacity = 10000

// Arrival is one raw datagram as taken off the socket, before any
// decoding.
type Arrival struct {
	Addr       net.Addr
	Data       []byte
	ReceivedAt time.Time
}

// ArrivalQueue is a fixed-capacity FIFO of arrivals. Enqueue never
// blocks: on a full queue the new arrival is dropped with a warning so
// the listener keeps receiving. Dequeue blocks until an arrival is
// available, the context is canceled, or the queue is closed.
//
// Safe for one producer and any number of consumers.
type ArrivalQueue struct {
	ch      chan Arrival
	logger  ports.Logger
	dropped atomic.Uint64

	closeOnce sync.Once
}

// New creates an arrival queue with the given capacity. A capacity of
// zero or less uses DefaultCapacity. A nil logger disables drop
// warnings.
func New(capacity int, logger ports.Logger) *ArrivalQueue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &ArrivalQueue{
		ch:     make(chan Arrival, capacity),
		logger: logger,
	}
}

// Enqueue appends a without blocking. On a full queue the arrival is
// dropped, a warning is logged, and ErrQueueFull is returned.
// Enqueue must not be called after Close.
func (q *ArrivalQueue) Enqueue(a Arrival) error {
	select {
	case q.ch <- a:
		return nil
	default:
		q.dropped.Add(1)
		q.logger.Warn("arrival queue full, dropping datagram",
			ports.String("addr", addrString(a.Addr)),
			ports.Int("bytes", len(a.Data)),
			ports.Uint64("dropped_total", q.dropped.Load()),
		)
		return domain.ErrQueueFull
	}
}

// Dequeue removes and returns the oldest arrival. It blocks until one
// is available; it returns ctx.Err() on cancellation and ErrQueueClosed
// once the queue is closed and drained.
func (q *ArrivalQueue) Dequeue(ctx context.Context) (Arrival, error) {
	select {
	case a, ok := <-q.ch:
		if !ok {
			return Arrival{}, domain.ErrQueueClosed
		}
		return a, nil
	case <-ctx.Done():
		return Arrival{}, ctx.Err()
	}
}

// Close delivers the shutdown sentinel: pending arrivals remain
// consumable, after which Dequeue returns ErrQueueClosed. Safe to call
// more than once.
func (q *ArrivalQueue) Close() {
	q.closeOnce.Do(func() { close(q.ch) })
}

// Len returns the number of queued arrivals.
func (q *ArrivalQueue) Len() int {
	return len(q.ch)
}

// Dropped returns the total number of arrivals dropped on a full queue.
func (q *ArrivalQueue) Dropped() uint64 {
	return q.dropped.Load()
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}
