// Package sender builds statefeed datagrams on a timer and transmits
// them over an unreliable, unacknowledged datagram socket. Loss is
// accepted silently: there is no retry and no delivery-order guarantee.
package sender

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/tracklab-io/statefeed/internal/domain"
	"github.com/tracklab-io/statefeed/internal/ports"
	"github.com/tracklab-io/statefeed/internal/wire"
	"github.com/tracklab-io/statefeed/pkg/log"
)

// Defaults for the send loop.
const (
	DefaultTarget     = "127.0.0.1:5005"
	DefaultInterval   = time.Second
	DefaultNumPackets = 3
	DefaultMsgType    = 1
)

// Conn is the transmit side of the sender: a connected datagram socket.
// *net.UDPConn satisfies it.
type Conn interface {
	Write(b []byte) (int, error)
	Close() error
}

// PacketSource produces the packets for one send cycle.
type PacketSource func(cycle int) []domain.Packet

// Config controls the send loop.
type Config struct {
	// Target is the receiver's host:port.
	Target string

	// NumPackets is the packet count per datagram.
	NumPackets int

	// Interval separates consecutive sends.
	Interval time.Duration

	// MsgType is stamped into every header.
	MsgType int32

	// Cycles bounds the loop; zero or less runs until the context is
	// canceled.
	Cycles int
}

// Validate checks the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.Target == "" {
		c.Target = DefaultTarget
	}
	if c.NumPackets == 0 {
		c.NumPackets = DefaultNumPackets
	}
	if c.NumPackets < 1 || c.NumPackets > wire.MaxPacketsPerDatagram {
		return fmt.Errorf("%w: num-packets must be in [1, %d], got %d",
			domain.ErrInvalidConfig, wire.MaxPacketsPerDatagram, c.NumPackets)
	}
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}
	if c.Interval < 0 {
		return fmt.Errorf("%w: interval must be positive", domain.ErrInvalidConfig)
	}
	if c.MsgType == 0 {
		c.MsgType = DefaultMsgType
	}
	return nil
}

// Sender runs the timed build-and-transmit loop.
type Sender struct {
	cfg    Config
	logger ports.Logger
	source PacketSource

	// Clock is the time source for the loop; replace it in tests.
	Clock clock.Clock

	// Dial opens the datagram socket. The default dials UDP to
	// cfg.Target.
	Dial func() (Conn, error)
}

// New creates a sender. A nil source uses an ExampleSource seeded from
// the config; a nil logger disables logging. cfg must have been
// validated.
func New(cfg Config, source PacketSource, logger ports.Logger) *Sender {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	if source == nil {
		source = ExampleSource(cfg.NumPackets, 1, "Obj")
	}
	s := &Sender{
		cfg:    cfg,
		logger: logger,
		source: source,
		Clock:  clock.New(),
	}
	s.Dial = func() (Conn, error) {
		conn, err := net.Dial("udp", cfg.Target)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", cfg.Target, err)
		}
		return conn, nil
	}
	return s
}

// Run transmits one datagram per cycle until the cycle budget is spent
// or the context is canceled. Transmit failures are logged and the loop
// continues; the protocol is fire-and-forget either way.
func (s *Sender) Run(ctx context.Context) error {
	conn, err := s.Dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	s.logger.Info("sender started",
		ports.String("target", s.cfg.Target),
		ports.Int("num_packets", s.cfg.NumPackets),
		ports.Duration("interval", s.cfg.Interval),
		ports.Int("cycles", s.cfg.Cycles),
	)

	ticker := s.Clock.Ticker(s.cfg.Interval)
	defer ticker.Stop()

	for cycle := 0; ; cycle++ {
		if err := s.sendOne(conn, cycle); err != nil {
			return err
		}
		if s.cfg.Cycles > 0 && cycle+1 >= s.cfg.Cycles {
			s.logger.Info("sender finished", ports.Int("cycles", s.cfg.Cycles))
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Sender) sendOne(conn Conn, cycle int) error {
	packets := s.source(cycle)
	header := domain.Header{
		MsgType:   s.cfg.MsgType,
		Timestamp: domain.TimestampFromTime(s.Clock.Now()),
	}

	dgram, err := wire.EncodeDatagram(header, packets)
	if err != nil {
		// Only a source producing too many packets gets here;
		// that is a config error, not a transient one.
		return err
	}

	if _, err := conn.Write(dgram); err != nil {
		s.logger.Warn("transmit failed",
			ports.Int("cycle", cycle),
			ports.Err(err),
		)
		return nil
	}

	s.logger.Debug("datagram sent",
		ports.Int("cycle", cycle),
		ports.Int("bytes", len(dgram)),
		ports.Int("packets", len(packets)),
	)
	return nil
}
