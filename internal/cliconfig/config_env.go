package cliconfig

import "os"

// ApplyEnvConfig applies STATEFEED_* environment variables to the
// Config. Env values override file config but lose to explicitly set
// flags (tracked in changed).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("listen", os.Getenv("STATEFEED_LISTEN_ADDR"), &cfg.ListenAddr)
	if err := s.setIntFromString("queue-capacity", os.Getenv("STATEFEED_QUEUE_CAPACITY"), &cfg.QueueCapacity); err != nil {
		return err
	}
	if err := s.setIntFromString("workers", os.Getenv("STATEFEED_WORKERS"), &cfg.Workers); err != nil {
		return err
	}
	if err := s.setFloatFromString("threshold", os.Getenv("STATEFEED_THRESHOLD"), &cfg.Threshold); err != nil {
		return err
	}
	s.setBoolFromString("strict", os.Getenv("STATEFEED_STRICT"), &cfg.Strict)
	s.setBoolFromString("restart-listener", os.Getenv("STATEFEED_RESTART_LISTENER"), &cfg.RestartListener)
	s.setString("event-log", os.Getenv("STATEFEED_EVENT_LOG"), &cfg.EventLog)
	s.setBoolFromString("watch-config", os.Getenv("STATEFEED_WATCH_CONFIG"), &cfg.WatchConfig)

	s.setString("forward-url", os.Getenv("STATEFEED_FORWARD_URL"), &cfg.ForwardURL)
	s.setString("auth-key", os.Getenv("STATEFEED_AUTH_KEY"), &cfg.AuthKey)
	if err := s.setDuration("timeout", os.Getenv("STATEFEED_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}

	s.setString("target", os.Getenv("STATEFEED_TARGET"), &cfg.Target)
	if err := s.setIntFromString("num-packets", os.Getenv("STATEFEED_NUM_PACKETS"), &cfg.NumPackets); err != nil {
		return err
	}
	if err := s.setDuration("interval", os.Getenv("STATEFEED_INTERVAL"), &cfg.Interval); err != nil {
		return err
	}
	if err := s.setIntFromString("msg-type", os.Getenv("STATEFEED_MSG_TYPE"), &cfg.MsgType); err != nil {
		return err
	}
	if err := s.setIntFromString("loop", os.Getenv("STATEFEED_CYCLES"), &cfg.Cycles); err != nil {
		return err
	}
	if err := s.setIntFromString("id-start", os.Getenv("STATEFEED_ID_START"), &cfg.IDStart); err != nil {
		return err
	}
	s.setString("name-prefix", os.Getenv("STATEFEED_NAME_PREFIX"), &cfg.NamePrefix)

	s.setBoolFromString("verbose", os.Getenv("STATEFEED_VERBOSE"), &cfg.Verbose)

	return nil
}
