package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/merklejerk/wacom-profile-daemon/internal/config"
	"github.com/merklejerk/wacom-profile-daemon/internal/control"
	"github.com/merklejerk/wacom-profile-daemon/internal/engine"
	"github.com/merklejerk/wacom-profile-daemon/internal/logging"
	"github.com/merklejerk/wacom-profile-daemon/internal/metrics"
	"github.com/merklejerk/wacom-profile-daemon/internal/rules"
	"github.com/merklejerk/wacom-profile-daemon/internal/xorg"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	var (
		dryRun       bool
		pollInterval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), opts, dryRun, pollInterval)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log settings instead of dispatching them")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", time.Second, "how often to poll for focus and device changes")
	return cmd
}

func runDaemon(parent context.Context, opts *rootOptions, dryRun bool, pollInterval time.Duration) error {
	logging.Setup(opts.verbosity, opts.logFile)
	logger := logging.Component("daemon")

	raw, err := os.ReadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	cfg, err := config.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	rulesets, err := rules.Compile(cfg)
	if err != nil {
		return fmt.Errorf("compile rules: %w", err)
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	collector := metrics.NewCollector()
	eng := engine.New(xorg.NewWacom(), xorg.NewXServer(), logging.Component("engine"), collector, rulesets, dryRun, pollInterval)

	reloader := newConfigReloader(opts.configPath, logging.Component("reload"), eng, raw)
	reload := func(reason string) error {
		return reloader.Reload(ctx, reason)
	}

	ctrlSrv, err := control.NewServer(eng, collector, logging.Component("control"), reload)
	if err != nil {
		return fmt.Errorf("start control server: %w", err)
	}

	cfgFullPath, err := filepath.Abs(opts.configPath)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	cfgFullPath = filepath.Clean(cfgFullPath)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(cfgFullPath)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}
	if err := watcher.Add(cfgFullPath); err != nil {
		logger.Debug().Err(err).Msg("unable to watch config file directly")
	}
	reloadRequests := make(chan string, 1)
	go watchConfig(logger, watcher, cfgFullPath, reloadRequests)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)

	errs := make(chan error, 2)
	go func() {
		errs <- eng.Run(ctx)
	}()
	go func() {
		errs <- ctrlSrv.Serve(ctx)
	}()

	logger.Info().Str("config", cfgFullPath).Bool("dryRun", dryRun).Msg("daemon started")

	for {
		select {
		case err := <-errs:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info().Msg("daemon stopped")
			return nil
		case reason := <-reloadRequests:
			if err := reload(reason); err != nil {
				logger.Error().Err(err).Msg("reload failed")
			}
		case sig := <-sigs:
			switch sig {
			case syscall.SIGHUP:
				if err := reload("received SIGHUP"); err != nil {
					logger.Error().Err(err).Msg("reload failed")
				}
			case os.Interrupt, syscall.SIGTERM:
				logger.Info().Str("signal", sig.String()).Msg("shutting down")
				cancel()
			}
		}
	}
}

func watchConfig(logger zerolog.Logger, watcher *fsnotify.Watcher, target string, reloadRequests chan<- string) {
	const debounceWindow = 250 * time.Millisecond
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					<-timerCh
				}
				timer.Reset(debounceWindow)
			}
		case <-timerCh:
			timer = nil
			timerCh = nil
			select {
			case reloadRequests <- "config file updated":
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("config watcher error")
		}
	}
}
