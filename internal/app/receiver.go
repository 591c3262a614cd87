package app

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/tracklab-io/statefeed/internal/domain"
	"github.com/tracklab-io/statefeed/internal/ports"
	"github.com/tracklab-io/statefeed/internal/queue"
	"github.com/tracklab-io/statefeed/internal/wire"
)

// Defaults for the receiver.
const (
	DefaultListenAddr = "0.0.0.0:5005"
	DefaultWorkers    = 1
)

// ReceiverConfig controls the listener, queue, and worker pool.
type ReceiverConfig struct {
	// ListenAddr is the local UDP bind address.
	ListenAddr string

	// QueueCapacity bounds the arrival queue; zero uses the queue default.
	QueueCapacity int

	// Workers is the consumer goroutine count.
	Workers int

	// Strict makes a PackageLength mismatch fatal per datagram instead
	// of a best-effort decode.
	Strict bool

	// RestartListener rebinds the socket with exponential backoff after
	// a fatal socket error instead of stopping the receiver.
	RestartListener bool
}

// Validate checks the configuration and fills defaults.
func (c *ReceiverConfig) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1", domain.ErrInvalidConfig)
	}
	if c.QueueCapacity < 0 {
		return fmt.Errorf("%w: queue capacity must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}

// Receiver wires the listener, the bounded arrival queue, and the
// worker pool together. The listener and the workers share nothing but
// the queue.
type Receiver struct {
	cfg     ReceiverConfig
	handler ports.Handler
	logger  ports.Logger

	// Listen binds the socket. The default binds UDP on cfg.ListenAddr;
	// tests substitute their own.
	Listen func() (PacketConn, error)

	queue     *queue.ArrivalQueue
	boundAddr atomic.Value // net.Addr
}

// NewReceiver creates a receiver dispatching to handler. cfg must have
// been validated.
func NewReceiver(cfg ReceiverConfig, handler ports.Handler, logger ports.Logger) *Receiver {
	r := &Receiver{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		queue:   queue.New(cfg.QueueCapacity, logger),
	}
	r.Listen = func() (PacketConn, error) {
		conn, err := net.ListenPacket("udp", cfg.ListenAddr)
		if err != nil {
			return nil, fmt.Errorf("bind %s: %w", cfg.ListenAddr, err)
		}
		return conn, nil
	}
	return r
}

// BoundAddr returns the actual local address once the socket is bound,
// or nil before that. Useful when ListenAddr requests an ephemeral port.
func (r *Receiver) BoundAddr() net.Addr {
	a, _ := r.boundAddr.Load().(net.Addr)
	return a
}

// Queue exposes the arrival queue for observability (depth and drop
// counts).
func (r *Receiver) Queue() *queue.ArrivalQueue {
	return r.queue
}

// Run starts the worker pool and the listener and blocks until ctx is
// canceled or the listener fails without a restart policy. Workers
// drain between datagrams only; in-flight dispatch is never aborted.
func (r *Receiver) Run(ctx context.Context) error {
	codec := wire.Codec{Strict: r.cfg.Strict, Log: r.logger}

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		w := NewWorker(r.queue, codec, r.handler, r.logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}

	err := r.runListener(ctx)

	// Close delivers the shutdown sentinel for workers blocked on an
	// empty queue after cancellation has already been consumed.
	r.queue.Close()
	wg.Wait()
	return err
}

func (r *Receiver) runListener(ctx context.Context) error {
	back := newBackoff(DefaultBackoffInitial, DefaultBackoffMax)

	for {
		conn, err := r.Listen()
		if err != nil {
			if !r.cfg.RestartListener {
				return err
			}
			r.logger.Warn("bind failed, retrying",
				ports.Err(err),
				ports.Duration("backoff", back.Current()),
			)
			if err := back.Sleep(ctx); err != nil {
				return err
			}
			continue
		}
		r.boundAddr.Store(conn.LocalAddr())
		back.Reset()

		err = NewListener(conn, r.queue, r.logger).Run(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !r.cfg.RestartListener {
			return err
		}

		r.logger.Warn("listener failed, restarting",
			ports.Err(err),
			ports.Duration("backoff", back.Current()),
		)
		if err := back.Sleep(ctx); err != nil {
			return err
		}
	}
}
