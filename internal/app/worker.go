package app

import (
	"context"
	"net"

	"github.com/tracklab-io/statefeed/internal/domain"
	"github.com/tracklab-io/statefeed/internal/ports"
	"github.com/tracklab-io/statefeed/internal/queue"
	"github.com/tracklab-io/statefeed/internal/wire"
)

// Worker drains the arrival queue: decode, then dispatch every valid
// packet to the handler. A decode failure condemns only that datagram;
// a handler error condemns only that event. The loop only ever stops
// between datagrams, when cancellation or queue shutdown is observed.
type Worker struct {
	queue   *queue.ArrivalQueue
	codec   wire.Codec
	handler ports.Handler
	logger  ports.Logger
}

// NewWorker creates a worker. Several workers may share one queue; each
// arrival is delivered to exactly one of them.
func NewWorker(q *queue.ArrivalQueue, codec wire.Codec, handler ports.Handler, logger ports.Logger) *Worker {
	return &Worker{queue: q, codec: codec, handler: handler, logger: logger}
}

// Run processes arrivals until ctx is canceled or the queue is closed.
func (w *Worker) Run(ctx context.Context) {
	for {
		arrival, err := w.queue.Dequeue(ctx)
		if err != nil {
			return
		}
		w.process(ctx, arrival)
	}
}

func (w *Worker) process(ctx context.Context, arrival queue.Arrival) {
	header, packets, err := w.codec.DecodeDatagram(arrival.Data)
	if err != nil {
		w.logger.Warn("dropping undecodable datagram",
			ports.String("addr", addrString(arrival.Addr)),
			ports.Time("received_at", arrival.ReceivedAt),
			ports.Int("bytes", len(arrival.Data)),
			ports.Err(err),
		)
		return
	}

	for _, p := range packets {
		if !p.IsValid {
			continue
		}

		ev := domain.Event{
			Addr:       arrival.Addr,
			ID:         p.ID,
			ParentID:   p.ParentID,
			Name:       p.Name,
			State:      p.State,
			ReceivedAt: arrival.ReceivedAt,
			Header:     header,
		}
		if err := w.handler.Handle(ctx, ev); err != nil {
			w.logger.Error("handler failed",
				ports.String("addr", addrString(arrival.Addr)),
				ports.Int32("id", p.ID),
				ports.Err(err),
			)
		}
	}
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}
