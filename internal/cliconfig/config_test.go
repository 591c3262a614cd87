package cliconfig

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ListenAddr != "0.0.0.0:5005" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.Target != "127.0.0.1:5005" {
		t.Errorf("Target = %q", cfg.Target)
	}
	if cfg.QueueCapacity != 10000 {
		t.Errorf("QueueCapacity = %d", cfg.QueueCapacity)
	}
	if cfg.Workers != 1 {
		t.Errorf("Workers = %d", cfg.Workers)
	}
	if cfg.Threshold != 0 {
		t.Errorf("Threshold = %v", cfg.Threshold)
	}
	if cfg.NumPackets != 3 {
		t.Errorf("NumPackets = %d", cfg.NumPackets)
	}
	if cfg.Interval != time.Second {
		t.Errorf("Interval = %v", cfg.Interval)
	}
	if cfg.MsgType != 1 {
		t.Errorf("MsgType = %d", cfg.MsgType)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing listen addr", func(c *Config) { c.ListenAddr = "" }, "listen address"},
		{"missing target", func(c *Config) { c.Target = "" }, "target"},
		{"zero queue capacity", func(c *Config) { c.QueueCapacity = 0 }, "queue capacity"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"negative threshold", func(c *Config) { c.Threshold = -1 }, "threshold"},
		{"zero packets", func(c *Config) { c.NumPackets = 0 }, "num-packets"},
		{"oversized packets", func(c *Config) { c.NumPackets = 100000 }, "num-packets"},
		{"zero interval", func(c *Config) { c.Interval = 0 }, "interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
