package app

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/tracklab-io/statefeed/internal/ports"
	"github.com/tracklab-io/statefeed/internal/queue"
)

// readBufferSize covers the largest UDP payload the protocol allows.
const readBufferSize = 65535

// PacketConn is the receive side of the listener. *net.UDPConn
// satisfies it.
type PacketConn interface {
	ReadFrom(b []byte) (n int, addr net.Addr, err error)
	Close() error
	LocalAddr() net.Addr
}

// Listener owns one bound socket. It receives datagrams, timestamps
// them, and hands them to the arrival queue; it never decodes and never
// touches business logic, so reception is not blocked by slow
// processing.
type Listener struct {
	conn   PacketConn
	queue  *queue.ArrivalQueue
	logger ports.Logger
}

// NewListener wraps an already-bound socket.
func NewListener(conn PacketConn, q *queue.ArrivalQueue, logger ports.Logger) *Listener {
	return &Listener{conn: conn, queue: q, logger: logger}
}

// Run receives until the socket fails or ctx is canceled. Cancellation
// closes the socket, which unblocks the pending receive; in that case
// Run returns ctx.Err(). Any other socket error is fatal to the
// listener: it is logged, the socket is closed, and the error is
// returned for the owner to decide on a restart.
//
// Enqueueing uses the queue's non-blocking drop policy; a full queue
// never stalls reception.
func (l *Listener) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { l.conn.Close() })
	defer stop()
	defer l.conn.Close()

	l.logger.Info("listening", ports.String("addr", l.conn.LocalAddr().String()))

	buf := make([]byte, readBufferSize)
	for {
		n, addr, err := l.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, net.ErrClosed) {
				l.logger.Info("listener stopped")
				return ctx.Err()
			}
			l.logger.Error("socket receive failed, listener exiting",
				ports.String("addr", l.conn.LocalAddr().String()),
				ports.Err(err),
			)
			return err
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		// Drops are logged by the queue; reception continues regardless.
		_ = l.queue.Enqueue(queue.Arrival{
			Addr:       addr,
			Data:       data,
			ReceivedAt: time.Now(),
		})
	}
}
