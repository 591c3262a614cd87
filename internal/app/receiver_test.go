package app

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tracklab-io/statefeed/internal/domain"
	"github.com/tracklab-io/statefeed/pkg/log"
)

func TestReceiverEndToEnd(t *testing.T) {
	cfg := ReceiverConfig{ListenAddr: "127.0.0.1:0", Workers: 2}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	h := newCaptureHandler()
	r := NewReceiver(cfg, h, log.NoopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// Wait for the ephemeral port.
	var addr net.Addr
	deadline := time.Now().Add(2 * time.Second)
	for addr == nil {
		if time.Now().After(deadline) {
			t.Fatal("receiver never bound")
		}
		addr = r.BoundAddr()
		time.Sleep(5 * time.Millisecond)
	}

	conn, err := net.Dial("udp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	dgram := encodeTestDatagram(t, domain.Packet{IsValid: true, ID: 7, Name: "Obj_7"})
	if _, err := conn.Write(dgram); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case ev := <-h.notify:
		if ev.ID != 7 || ev.Name != "Obj_7" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("datagram was not dispatched")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("receiver did not shut down")
	}
}

func TestReceiverSurfacesListenerError(t *testing.T) {
	cfg := ReceiverConfig{Workers: 1}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	r := NewReceiver(cfg, newCaptureHandler(), log.NoopLogger{})
	conn := newFakeConn()
	r.Listen = func() (PacketConn, error) { return conn, nil }

	sockErr := errors.New("recvfrom: bad file descriptor")
	conn.fail(sockErr)

	if err := r.Run(context.Background()); !errors.Is(err, sockErr) {
		t.Fatalf("expected socket error surfaced, got %v", err)
	}
}

func TestReceiverRestartsListener(t *testing.T) {
	cfg := ReceiverConfig{Workers: 1, RestartListener: true}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	h := newCaptureHandler()
	r := NewReceiver(cfg, h, log.NoopLogger{})

	var binds atomic.Int32
	second := newFakeConn()
	r.Listen = func() (PacketConn, error) {
		if binds.Add(1) == 1 {
			c := newFakeConn()
			c.fail(errors.New("transient"))
			return c, nil
		}
		return second, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// After the rebind the receiver must still dispatch.
	dgram := encodeTestDatagram(t, domain.Packet{IsValid: true, ID: 1, Name: "n"})
	deadline := time.Now().Add(5 * time.Second)
	for binds.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("listener was not restarted")
		}
		time.Sleep(10 * time.Millisecond)
	}
	second.deliver(dgram, "10.0.0.2:1")

	select {
	case <-h.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("no dispatch after restart")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("receiver did not shut down")
	}
}
