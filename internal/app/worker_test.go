package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tracklab-io/statefeed/internal/domain"
	"github.com/tracklab-io/statefeed/internal/queue"
	"github.com/tracklab-io/statefeed/internal/wire"
	"github.com/tracklab-io/statefeed/pkg/log"
)

func encodeTestDatagram(t *testing.T, packets ...domain.Packet) []byte {
	t.Helper()
	buf, err := wire.EncodeDatagram(domain.Header{MsgType: 1}, packets)
	if err != nil {
		t.Fatalf("encode datagram: %v", err)
	}
	return buf
}

func TestWorkerDispatchesValidPackets(t *testing.T) {
	q := queue.New(8, nil)
	h := newCaptureHandler()
	w := NewWorker(q, wire.Codec{}, h, log.NoopLogger{})

	dgram := encodeTestDatagram(t,
		domain.Packet{IsValid: true, ID: 1, Name: "a", State: domain.StateVector{1}},
		domain.Packet{IsValid: false, ID: 2, Name: "b"},
		domain.Packet{IsValid: true, ID: 3, ParentID: 1, Name: "c"},
	)
	q.Enqueue(queue.Arrival{Addr: fakeAddr("10.0.0.1:9"), Data: dgram, ReceivedAt: time.Now()})
	q.Close()

	w.Run(context.Background())

	events := h.all()
	if len(events) != 2 {
		t.Fatalf("dispatched %d events, want 2 (IsValid=false must be skipped)", len(events))
	}
	if events[0].ID != 1 || events[1].ID != 3 {
		t.Fatalf("wrong events: %+v", events)
	}
	if events[1].ParentID != 1 {
		t.Fatalf("parent id lost: %+v", events[1])
	}
	if events[0].Header.MsgType != 1 || events[0].Header.PackageNumber != 3 {
		t.Fatalf("header context lost: %+v", events[0].Header)
	}
	if events[0].Addr.String() != "10.0.0.1:9" {
		t.Fatalf("addr lost: %v", events[0].Addr)
	}
}

func TestWorkerDiscardsUndecodableDatagram(t *testing.T) {
	q := queue.New(8, nil)
	h := newCaptureHandler()
	w := NewWorker(q, wire.Codec{}, h, log.NoopLogger{})

	q.Enqueue(queue.Arrival{Data: []byte("garbage"), ReceivedAt: time.Now()})
	q.Enqueue(queue.Arrival{
		Data:       encodeTestDatagram(t, domain.Packet{IsValid: true, ID: 9, Name: "ok"}),
		ReceivedAt: time.Now(),
	})
	q.Close()

	w.Run(context.Background())

	events := h.all()
	if len(events) != 1 || events[0].ID != 9 {
		t.Fatalf("loop must continue past a bad datagram, got %+v", events)
	}
}

func TestWorkerPoolExactlyOnce(t *testing.T) {
	const (
		datagrams = 200
		workers   = 4
	)
	q := queue.New(datagrams, nil)
	h := newCaptureHandler()
	h.notify = make(chan domain.Event, datagrams)

	for i := 0; i < datagrams; i++ {
		q.Enqueue(queue.Arrival{
			Data:       encodeTestDatagram(t, domain.Packet{IsValid: true, ID: int32(i), Name: "n"}),
			ReceivedAt: time.Now(),
		})
	}
	q.Close()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		w := NewWorker(q, wire.Codec{}, h, log.NoopLogger{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(context.Background())
		}()
	}
	wg.Wait()

	seen := make(map[int32]int, datagrams)
	for _, ev := range h.all() {
		seen[ev.ID]++
	}
	if len(seen) != datagrams {
		t.Fatalf("saw %d distinct IDs, want %d", len(seen), datagrams)
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("ID %d delivered %d times", id, n)
		}
	}
}
