package app

import (
	"testing"
	"time"

	"github.com/tracklab-io/statefeed/internal/domain"
	"github.com/tracklab-io/statefeed/pkg/log"
)

func TestNewLifecycle(t *testing.T) {
	l := NewLifecycle(log.NoopLogger{})

	if l == nil {
		t.Fatal("NewLifecycle returned nil")
	}
	if l.State() != StateStopped {
		t.Errorf("initial state = %v, want StateStopped", l.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateStopped, "Stopped"},
		{StateStarting, "Starting"},
		{StateRunning, "Running"},
		{StateStopping, "Stopping"},
		{StateCrashed, "Crashed"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		got := tt.state.String()
		if got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestLifecycle_TransitionTo_ValidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
	}{
		{"stopped to starting", StateStopped, StateStarting},
		{"starting to running", StateStarting, StateRunning},
		{"starting to stopping", StateStarting, StateStopping},
		{"starting to crashed", StateStarting, StateCrashed},
		{"running to stopping", StateRunning, StateStopping},
		{"running to crashed", StateRunning, StateCrashed},
		{"stopping to stopped", StateStopping, StateStopped},
		{"stopping to crashed", StateStopping, StateCrashed},
		{"crashed to starting", StateCrashed, StateStarting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLifecycle(log.NoopLogger{})
			l.state = tt.from

			if err := l.TransitionTo(tt.to, "test"); err != nil {
				t.Fatalf("TransitionTo() error = %v", err)
			}
			if l.State() != tt.to {
				t.Errorf("state = %v after transition, want %v", l.State(), tt.to)
			}
		})
	}
}

func TestLifecycle_TransitionTo_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		wantErr error
	}{
		{"stopped to running", StateStopped, StateRunning, domain.ErrNotRunning},
		{"stopped to stopping", StateStopped, StateStopping, domain.ErrNotRunning},
		{"running to starting", StateRunning, StateStarting, domain.ErrAlreadyRunning},
		{"crashed to running", StateCrashed, StateRunning, domain.ErrNotRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLifecycle(log.NoopLogger{})
			l.state = tt.from

			err := l.TransitionTo(tt.to, "test")
			if err != tt.wantErr {
				t.Errorf("TransitionTo() error = %v, want %v", err, tt.wantErr)
			}
			if l.State() != tt.from {
				t.Errorf("failed transition must not change state: %v", l.State())
			}
		})
	}
}

func TestLifecycle_CanStartCanStop(t *testing.T) {
	l := NewLifecycle(log.NoopLogger{})

	if !l.CanStart() {
		t.Error("stopped lifecycle must be startable")
	}
	if l.CanStop() {
		t.Error("stopped lifecycle must not be stoppable")
	}

	l.state = StateRunning
	if l.CanStart() {
		t.Error("running lifecycle must not be startable")
	}
	if !l.CanStop() {
		t.Error("running lifecycle must be stoppable")
	}
}

func TestLifecycle_WaitWithTimeout(t *testing.T) {
	l := NewLifecycle(log.NoopLogger{})

	l.AddWorker()
	go func() {
		time.Sleep(20 * time.Millisecond)
		l.WorkerDone()
	}()
	if err := l.WaitWithTimeout(2 * time.Second); err != nil {
		t.Fatalf("WaitWithTimeout: %v", err)
	}

	l.AddWorker()
	defer l.WorkerDone()
	if err := l.WaitWithTimeout(20 * time.Millisecond); err != domain.ErrShutdownTimeout {
		t.Fatalf("expected ErrShutdownTimeout, got %v", err)
	}
}
