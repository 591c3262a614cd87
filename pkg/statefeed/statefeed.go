package statefeed

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/tracklab-io/statefeed/internal/app"
	"github.com/tracklab-io/statefeed/internal/domain"
	"github.com/tracklab-io/statefeed/internal/ports"
	"github.com/tracklab-io/statefeed/internal/store"
	"github.com/tracklab-io/statefeed/pkg/log"
)

// State reports where in its lifecycle a Statefeed instance is.
type State = app.State

// Lifecycle states of a Statefeed instance.
const (
	StateStopped  = app.StateStopped
	StateStarting = app.StateStarting
	StateRunning  = app.StateRunning
	StateStopping = app.StateStopping
	StateCrashed  = app.StateCrashed
)

// Re-exported sentinel errors for callers of the public API.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
)

// Config controls a receiver instance.
type Config struct {
	// ListenAddr is the local UDP bind address, host:port. An empty
	// string binds 0.0.0.0:5005; port 0 requests an ephemeral port.
	ListenAddr string

	// QueueCapacity bounds the arrival queue between the socket reader
	// and the workers. Zero uses the default of 10000.
	QueueCapacity int

	// Workers is the number of concurrent datagram consumers. Zero
	// means one.
	Workers int

	// Threshold is the distance above which the default handler records
	// a state update. Only meaningful without WithHandler.
	Threshold float64

	// Strict rejects datagrams whose declared PackageLength disagrees
	// with the compiled packet size instead of decoding best-effort.
	Strict bool

	// RestartListener rebinds the socket with backoff after a fatal
	// socket error instead of stopping the receiver.
	RestartListener bool
}

// SetDefaults fills zero-valued fields with working defaults.
func (c *Config) SetDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = app.DefaultListenAddr
	}
	if c.Workers == 0 {
		c.Workers = app.DefaultWorkers
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return errors.New("statefeed: workers must be at least 1")
	}
	if c.QueueCapacity < 0 {
		return errors.New("statefeed: queue capacity must not be negative")
	}
	if c.Threshold < 0 {
		return errors.New("statefeed: threshold must not be negative")
	}
	return nil
}

// Statefeed is an embeddable UDP entity-state receiver. Use New to
// create an instance, then Start to begin listening.
type Statefeed struct {
	config    Config
	lifecycle *app.Lifecycle
	receiver  *app.Receiver
	store     *store.Store
	diff      *store.DiffHandler
	logger    ports.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a Statefeed instance with the given configuration. The
// instance starts in StateStopped; call Start to begin receiving.
func New(cfg Config, opts ...Option) (*Statefeed, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = log.NoopLogger{}
	}

	st := store.New()
	diff := store.NewDiffHandler(st, o.distance, cfg.Threshold, logger)

	handler := o.handler
	if handler == nil {
		handler = diff
	}

	rcfg := app.ReceiverConfig{
		ListenAddr:      cfg.ListenAddr,
		QueueCapacity:   cfg.QueueCapacity,
		Workers:         cfg.Workers,
		Strict:          cfg.Strict,
		RestartListener: cfg.RestartListener,
	}
	if err := rcfg.Validate(); err != nil {
		return nil, err
	}

	return &Statefeed{
		config:    cfg,
		lifecycle: app.NewLifecycle(logger),
		receiver:  app.NewReceiver(rcfg, handler, logger),
		store:     st,
		diff:      diff,
		logger:    logger,
	}, nil
}

// Start begins receiving in the background and returns once the
// receiver goroutine is launched. The provided context bounds the
// lifetime of the receive loop; canceling it is equivalent to Stop
// without the shutdown wait.
func (s *Statefeed) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.lifecycle.SetCancel(cancel)

	s.lifecycle.AddWorker()
	go func() {
		defer s.lifecycle.WorkerDone()

		if err := s.lifecycle.TransitionTo(app.StateRunning, "receiver starting"); err != nil {
			s.logger.Error("failed to transition to running", ports.Err(err))
			return
		}

		err := s.receiver.Run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("receiver error", ports.Err(err))
			_ = s.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		}
	}()

	return nil
}

// Stop shuts the receiver down: the socket is closed, queued datagrams
// are drained, and workers finish their in-flight events. Waits up to
// 30 seconds before giving up; returns ErrShutdownTimeout in that case.
func (s *Statefeed) Stop() error {
	s.mu.Lock()

	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	err := s.lifecycle.WaitWithTimeout(app.ShutdownTimeout)
	if err != nil {
		_ = s.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = s.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// Status returns the current lifecycle state. Safe to call from any
// goroutine.
func (s *Statefeed) Status() State {
	return s.lifecycle.State()
}

// Addr returns the bound local address once the socket is up, or nil
// before that. Useful when ListenAddr requested an ephemeral port.
func (s *Statefeed) Addr() net.Addr {
	return s.receiver.BoundAddr()
}

// Store returns the per-entity state store maintained by the default
// handler. Entries appear only when the default handler is in use.
func (s *Statefeed) Store() *store.Store {
	return s.store
}

// DiffHandler returns the default handler, whose threshold can be
// adjusted at runtime.
func (s *Statefeed) DiffHandler() *store.DiffHandler {
	return s.diff
}

// Dropped reports how many datagrams were discarded because the
// arrival queue was full.
func (s *Statefeed) Dropped() uint64 {
	return s.receiver.Queue().Dropped()
}
