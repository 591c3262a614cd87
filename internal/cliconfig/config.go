// Package cliconfig loads statefeed CLI configuration from file,
// environment, and flags, in ascending precedence.
package cliconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tracklab-io/statefeed/internal/wire"
)

// Defaults for the two subcommands.
const (
	DefaultListenAddr    = "0.0.0.0:5005"
	DefaultTarget        = "127.0.0.1:5005"
	DefaultQueueCapacity = 10000
	DefaultWorkers       = 1
	DefaultNumPackets    = 3
	DefaultInterval      = time.Second
	DefaultMsgType       = 1
	DefaultHTTPTimeout   = 15 * time.Second
)

// Config holds CLI configuration for statefeed. Listen-side and
// send-side settings share one struct so one config file serves both
// subcommands.
type Config struct {
	// Listen side.
	ListenAddr      string
	QueueCapacity   int
	Workers         int
	Threshold       float64
	Strict          bool
	RestartListener bool
	EventLog        string
	WatchConfig     bool

	// Optional HTTP event forwarding.
	ForwardURL  string
	AuthKey     string
	HTTPTimeout time.Duration

	// Send side.
	Target     string
	NumPackets int
	Interval   time.Duration
	MsgType    int
	Cycles     int
	IDStart    int
	NamePrefix string

	Verbose bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ListenAddr:    DefaultListenAddr,
		QueueCapacity: DefaultQueueCapacity,
		Workers:       DefaultWorkers,
		Threshold:     0,
		HTTPTimeout:   DefaultHTTPTimeout,
		Target:        DefaultTarget,
		NumPackets:    DefaultNumPackets,
		Interval:      DefaultInterval,
		MsgType:       DefaultMsgType,
		IDStart:       1,
		NamePrefix:    "Obj",
		AuthKey:       os.Getenv("STATEFEED_AUTH_KEY"),
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Target == "" {
		return fmt.Errorf("target is required")
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queue capacity must be positive")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must not be negative")
	}
	if c.NumPackets < 1 || c.NumPackets > wire.MaxPacketsPerDatagram {
		return fmt.Errorf("num-packets must be in [1, %d]", wire.MaxPacketsPerDatagram)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag
// precedence. It only applies values if the corresponding flag hasn't
// been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
