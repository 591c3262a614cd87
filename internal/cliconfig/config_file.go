package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	ListenAddr      string  `toml:"listen_addr"`
	QueueCapacity   int     `toml:"queue_capacity"`
	Workers         int     `toml:"workers"`
	Threshold       float64 `toml:"threshold"`
	Strict          *bool   `toml:"strict"`
	RestartListener *bool   `toml:"restart_listener"`
	EventLog        string  `toml:"event_log"`
	WatchConfig     *bool   `toml:"watch_config"`

	ForwardURL  string `toml:"forward_url"`
	AuthKey     string `toml:"auth_key"`
	HTTPTimeout string `toml:"http_timeout"`

	Target     string `toml:"target"`
	NumPackets int    `toml:"num_packets"`
	Interval   string `toml:"interval"`
	MsgType    int    `toml:"msg_type"`
	Cycles     int    `toml:"cycles"`
	IDStart    int    `toml:"id_start"`
	NamePrefix string `toml:"name_prefix"`

	Verbose *bool `toml:"verbose"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.statefeed/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".statefeed", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("listen", fc.ListenAddr, &cfg.ListenAddr)
	s.setInt("queue-capacity", fc.QueueCapacity, &cfg.QueueCapacity)
	s.setInt("workers", fc.Workers, &cfg.Workers)
	s.setFloat("threshold", fc.Threshold, &cfg.Threshold)
	s.setBool("strict", fc.Strict, &cfg.Strict)
	s.setBool("restart-listener", fc.RestartListener, &cfg.RestartListener)
	s.setString("event-log", fc.EventLog, &cfg.EventLog)
	s.setBool("watch-config", fc.WatchConfig, &cfg.WatchConfig)

	s.setString("forward-url", fc.ForwardURL, &cfg.ForwardURL)
	s.setString("auth-key", fc.AuthKey, &cfg.AuthKey)
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}

	s.setString("target", fc.Target, &cfg.Target)
	s.setInt("num-packets", fc.NumPackets, &cfg.NumPackets)
	if err := s.setDuration("interval", fc.Interval, &cfg.Interval); err != nil {
		return err
	}
	s.setInt("msg-type", fc.MsgType, &cfg.MsgType)
	s.setInt("loop", fc.Cycles, &cfg.Cycles)
	s.setInt("id-start", fc.IDStart, &cfg.IDStart)
	s.setString("name-prefix", fc.NamePrefix, &cfg.NamePrefix)

	s.setBool("verbose", fc.Verbose, &cfg.Verbose)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
