package app

import (
	"context"
	"net"
	"sync"

	"github.com/tracklab-io/statefeed/internal/domain"
)

// fakeAddr is a minimal net.Addr for fake sockets.
type fakeAddr string

func (a fakeAddr) Network() string { return "udp" }
func (a fakeAddr) String() string  { return string(a) }

type fakeDatagram struct {
	data []byte
	addr net.Addr
	err  error
}

// fakeConn scripts a sequence of receives for listener tests.
type fakeConn struct {
	incoming chan fakeDatagram
	closed   chan struct{}
	once     sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming: make(chan fakeDatagram, 16),
		closed:   make(chan struct{}),
	}
}

func (c *fakeConn) deliver(data []byte, from string) {
	c.incoming <- fakeDatagram{data: data, addr: fakeAddr(from)}
}

func (c *fakeConn) fail(err error) {
	c.incoming <- fakeDatagram{err: err}
}

func (c *fakeConn) ReadFrom(b []byte) (int, net.Addr, error) {
	select {
	case <-c.closed:
		return 0, nil, net.ErrClosed
	case d := <-c.incoming:
		if d.err != nil {
			return 0, nil, d.err
		}
		n := copy(b, d.data)
		return n, d.addr, nil
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) LocalAddr() net.Addr { return fakeAddr("0.0.0.0:5005") }

// captureHandler collects every dispatched event.
type captureHandler struct {
	mu     sync.Mutex
	events []domain.Event
	notify chan domain.Event
}

func newCaptureHandler() *captureHandler {
	return &captureHandler{notify: make(chan domain.Event, 64)}
}

func (h *captureHandler) Handle(ctx context.Context, ev domain.Event) error {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
	h.notify <- ev
	return nil
}

func (h *captureHandler) all() []domain.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.Event, len(h.events))
	copy(out, h.events)
	return out
}
