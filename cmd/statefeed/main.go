package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	httpadapter "github.com/tracklab-io/statefeed/internal/adapters/http"
	"github.com/tracklab-io/statefeed/internal/cliconfig"
	"github.com/tracklab-io/statefeed/internal/sender"
	"github.com/tracklab-io/statefeed/internal/store"
	"github.com/tracklab-io/statefeed/pkg/log"
	"github.com/tracklab-io/statefeed/pkg/statefeed"
)

var longHelp = strings.TrimSpace(`
Receive and track periodic entity-state updates over UDP.

statefeed listens for self-describing binary datagrams, each carrying a
batch of per-entity state vectors, and records an event whenever an
entity's state moves farther than a configurable threshold from its
last recorded state. A companion send subcommand transmits synthetic
updates for testing and demos.

Configure via file ($HOME/.statefeed/config.toml), environment
(STATEFEED_*), or flags; flags win over environment, environment over
file.
`)

var exampleUsage = strings.TrimSpace(`
  statefeed listen --listen 0.0.0.0:5005 --threshold 0.5 --workers 4
  statefeed send --target 127.0.0.1:5005 --num-packets 10 --interval 500ms
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// mergeConfig applies file and environment configuration beneath any
// flags the user set explicitly.
func mergeConfig(cmd *cobra.Command, cfgPath string, cfg *cliconfig.Config) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}
	return cliconfig.ApplyEnvConfig(cfg, changed)
}

func main() {
	consoleLog := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "statefeed",
		Short:   "Receive and track periodic entity-state updates over UDP",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
	}

	root.AddCommand(newListenCmd())
	root.AddCommand(newSendCmd())

	if err := root.Execute(); err != nil {
		consoleLog.Error().Err(err).Msg("statefeed")
		os.Exit(1)
	}
}

func newListenCmd() *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Listen for entity-state datagrams and track state changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := mergeConfig(cmd, cfgPath, &cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			zl, closeLog, err := cliconfig.EventLogger(cfg.EventLog, cfg.Verbose)
			if err != nil {
				return fmt.Errorf("open event log: %w", err)
			}
			defer func() { _ = closeLog() }()
			logger := log.NewZerologAdapterWithLogger(zl)

			logCfg := cfg
			if len(logCfg.AuthKey) > 0 {
				logCfg.AuthKey = "*****"
			}
			zl.Info().Interface("config", logCfg).Msg("configuration")

			opts := []statefeed.Option{statefeed.WithLogger(logger)}

			// With forwarding enabled the diff handler is built here so
			// the forwarder can wrap it; otherwise the library builds
			// its own.
			var target cliconfig.ThresholdTarget
			if cfg.ForwardURL != "" {
				diff := store.NewDiffHandler(store.New(), nil, cfg.Threshold, logger)
				fwd := httpadapter.NewEventForwarder(
					&http.Client{Timeout: cfg.HTTPTimeout},
					cfg.ForwardURL, cfg.AuthKey, diff, logger,
				)
				opts = append(opts, statefeed.WithHandler(fwd))
				target = diff
			}

			s, err := statefeed.New(statefeed.Config{
				ListenAddr:      cfg.ListenAddr,
				QueueCapacity:   cfg.QueueCapacity,
				Workers:         cfg.Workers,
				Threshold:       cfg.Threshold,
				Strict:          cfg.Strict,
				RestartListener: cfg.RestartListener,
			}, opts...)
			if err != nil {
				return fmt.Errorf("create receiver: %w", err)
			}
			if target == nil {
				target = s.DiffHandler()
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			if err := s.Start(ctx); err != nil {
				return fmt.Errorf("start receiver: %w", err)
			}

			if cfg.WatchConfig {
				watchPath := cfgPath
				if watchPath == "" {
					watchPath = cliconfig.DefaultConfigPath()
				}
				if watchPath != "" {
					go cliconfig.NewConfigWatcher(watchPath, target, logger).Run(ctx)
				}
			}

			doneCh := make(chan struct{})
			go func() {
				ticker := time.NewTicker(100 * time.Millisecond)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if s.Status() == statefeed.StateCrashed {
							close(doneCh)
							return
						}
					}
				}
			}()

			select {
			case <-sigCh:
				zl.Info().Msg("received signal, stopping...")
			case <-doneCh:
				zl.Error().Msg("receiver crashed")
			}

			if err := s.Stop(); err != nil && err != statefeed.ErrNotRunning {
				return fmt.Errorf("stop receiver: %w", err)
			}
			if n := s.Dropped(); n > 0 {
				zl.Warn().Uint64("dropped", n).Msg("datagrams dropped under load")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.statefeed/config.toml)")
	cmd.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "UDP listen address (host:port)")
	cmd.Flags().IntVar(&cfg.QueueCapacity, "queue-capacity", cfg.QueueCapacity, "arrival queue capacity before datagrams are dropped")
	cmd.Flags().IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent datagram consumers")
	cmd.Flags().Float64Var(&cfg.Threshold, "threshold", cfg.Threshold, "distance above which a state change is recorded")
	cmd.Flags().BoolVar(&cfg.Strict, "strict", cfg.Strict, "reject datagrams whose declared packet size disagrees with the wire format")
	cmd.Flags().BoolVar(&cfg.RestartListener, "restart-listener", cfg.RestartListener, "rebind the socket with backoff after socket errors")
	cmd.Flags().StringVar(&cfg.EventLog, "event-log", cfg.EventLog, "append event records to this file as well as the console")
	cmd.Flags().BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "reload threshold from the config file on change")
	cmd.Flags().StringVar(&cfg.ForwardURL, "forward-url", cfg.ForwardURL, "forward events to this HTTP service (optional)")
	cmd.Flags().StringVar(&cfg.AuthKey, "auth-key", cfg.AuthKey, "bearer token for event forwarding")
	cmd.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout for event forwarding")
	cmd.Flags().BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "log per-datagram debug detail")
	return cmd
}

func newSendCmd() *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Transmit synthetic entity-state datagrams on a timer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := mergeConfig(cmd, cfgPath, &cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			zl, closeLog, err := cliconfig.EventLogger("", cfg.Verbose)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()
			logger := log.NewZerologAdapterWithLogger(zl)

			sendCfg := sender.Config{
				Target:     cfg.Target,
				NumPackets: cfg.NumPackets,
				Interval:   cfg.Interval,
				MsgType:    int32(cfg.MsgType),
				Cycles:     cfg.Cycles,
			}
			if err := sendCfg.Validate(); err != nil {
				return err
			}
			source := sender.ExampleSource(cfg.NumPackets, int32(cfg.IDStart), cfg.NamePrefix)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err = sender.New(sendCfg, source, logger).Run(ctx)
			if err == context.Canceled {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.statefeed/config.toml)")
	cmd.Flags().StringVar(&cfg.Target, "target", cfg.Target, "receiver address (host:port)")
	cmd.Flags().IntVar(&cfg.NumPackets, "num-packets", cfg.NumPackets, "packets per datagram")
	cmd.Flags().DurationVar(&cfg.Interval, "interval", cfg.Interval, "delay between datagrams")
	cmd.Flags().IntVar(&cfg.MsgType, "msg-type", cfg.MsgType, "message type stamped into each header")
	cmd.Flags().IntVar(&cfg.Cycles, "loop", cfg.Cycles, "number of datagrams to send (0 = until interrupted)")
	cmd.Flags().IntVar(&cfg.IDStart, "id-start", cfg.IDStart, "first entity ID in the synthetic batch")
	cmd.Flags().StringVar(&cfg.NamePrefix, "name-prefix", cfg.NamePrefix, "entity name prefix for the synthetic batch")
	cmd.Flags().BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "log per-datagram debug detail")
	return cmd
}
