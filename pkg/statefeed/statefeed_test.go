package statefeed_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/tracklab-io/statefeed/internal/domain"
	"github.com/tracklab-io/statefeed/internal/wire"
	"github.com/tracklab-io/statefeed/pkg/statefeed"
)

func waitForAddr(t *testing.T, s *statefeed.Statefeed) net.Addr {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a := s.Addr(); a != nil {
			return a
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("receiver never bound")
	return nil
}

func buildDatagram(t *testing.T, packets []domain.Packet) []byte {
	t.Helper()
	h := domain.Header{MsgType: 1, Timestamp: domain.TimestampFromTime(time.Now())}
	data, err := wire.EncodeDatagram(h, packets)
	if err != nil {
		t.Fatalf("EncodeDatagram: %v", err)
	}
	return data
}

func TestStatefeedEndToEnd(t *testing.T) {
	var (
		mu     sync.Mutex
		events []statefeed.Event
	)
	got := make(chan struct{}, 16)
	handler := statefeed.HandlerFunc(func(ctx context.Context, ev statefeed.Event) error {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
		got <- struct{}{}
		return nil
	})

	s, err := statefeed.New(statefeed.Config{ListenAddr: "127.0.0.1:0"},
		statefeed.WithHandler(handler))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if s.Status() != statefeed.StateStopped {
		t.Fatalf("initial state = %v, want Stopped", s.Status())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	addr := waitForAddr(t, s)

	if s.Status() != statefeed.StateRunning {
		t.Fatalf("state after start = %v, want Running", s.Status())
	}
	if err := s.Start(ctx); err != statefeed.ErrAlreadyRunning {
		t.Fatalf("second Start = %v, want ErrAlreadyRunning", err)
	}

	conn, err := net.Dial("udp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	data := buildDatagram(t, []domain.Packet{
		{IsValid: true, ID: 10, ParentID: -1, Name: "Obj_10", State: domain.StateVector{1, 2, 3, 0, 0, 0}},
		{IsValid: true, ID: 11, ParentID: 10, Name: "Obj_11", State: domain.StateVector{4, 5, 6, 0, 0, 0}},
	})
	if _, err := conn.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}

	mu.Lock()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ID != 10 || events[0].Name != "Obj_10" {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].ID != 11 || events[1].ParentID != 10 {
		t.Errorf("second event = %+v", events[1])
	}
	mu.Unlock()

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.Status() != statefeed.StateStopped {
		t.Fatalf("state after stop = %v, want Stopped", s.Status())
	}
	if err := s.Stop(); err != statefeed.ErrNotRunning {
		t.Fatalf("second Stop = %v, want ErrNotRunning", err)
	}
}

func TestStatefeedDefaultHandlerTracksStore(t *testing.T) {
	s, err := statefeed.New(statefeed.Config{ListenAddr: "127.0.0.1:0", Threshold: 1.0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()
	addr := waitForAddr(t, s)

	conn, err := net.Dial("udp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	data := buildDatagram(t, []domain.Packet{
		{IsValid: true, ID: 42, Name: "Obj_42", State: domain.StateVector{7, 8, 9, 0, 0, 0}},
	})
	if _, err := conn.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Store().Len() == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	entry, ok := s.Store().Get(42)
	if !ok {
		t.Fatal("entity 42 never recorded")
	}
	if entry.State != (domain.StateVector{7, 8, 9, 0, 0, 0}) {
		t.Errorf("stored state = %v", entry.State)
	}
	if got := s.DiffHandler().Threshold(); got != 1.0 {
		t.Errorf("Threshold() = %v, want 1.0", got)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     statefeed.Config
		wantErr bool
	}{
		{"defaults", statefeed.Config{}, false},
		{"negative workers", statefeed.Config{Workers: -1}, true},
		{"negative queue", statefeed.Config{QueueCapacity: -5}, true},
		{"negative threshold", statefeed.Config{Threshold: -0.1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := statefeed.New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%+v) error = %v, wantErr %v", tt.cfg, err, tt.wantErr)
			}
		})
	}
}
