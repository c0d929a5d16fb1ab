package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"swarmrelay/internal/config"
	"swarmrelay/internal/dispatch"
	"swarmrelay/internal/engine"
	"swarmrelay/internal/eventbus"
	"swarmrelay/internal/roster"
	"swarmrelay/internal/routing"
	"swarmrelay/internal/storage"
	"swarmrelay/internal/sweep"
	logx "swarmrelay/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config json/yaml")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	defer logs.Close()
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	bus := eventbus.New()

	var audit storage.Store
	if cfg.Storage != nil {
		busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
		if err != nil {
			return err
		}
		audit, err = storage.Open(storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busyTimeout,
		}, log.With(logx.String("comp", "storage")))
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		if audit != nil {
			defer audit.Close()
		}
	}

	store := roster.New(roster.Config{
		Path:   cfg.Roster.Path,
		Bounds: roster.Bounds{Min: cfg.Roster.CoordMin, Max: cfg.Roster.CoordMax},
	}, log.With(logx.String("comp", "roster")))
	if err := store.Load(); err != nil {
		return err
	}

	// No real actuator is linked into this daemon; delivery runs the full
	// validation path and stops short of the screen.
	var act dispatch.Actuator = dispatch.DryRun{}
	if !cfg.Dispatch.DryRun {
		log.Warn("no actuator available; forcing dry-run")
	}

	bc := dispatch.NewBroadcaster(dispatch.Config{
		Workers:    cfg.Dispatch.Workers,
		RatePerSec: cfg.Dispatch.RatePerSec,
	}, store, act, log.With(logx.String("comp", "dispatch")))
	bc.SetBus(bus)
	bc.SetAudit(audit)

	table := routing.DefaultTable()
	eng, err := engine.New(engine.Config{HistorySize: cfg.Engine.HistorySize}, table, log.With(logx.String("comp", "engine")))
	if err != nil {
		return err
	}
	eng.SetBus(bus)
	eng.SetAudit(audit)

	var sweepCfg sweep.Config
	if cfg.Sweep != nil {
		sweepCfg = sweep.Config{Enabled: cfg.Sweep.Enabled, Spec: cfg.Sweep.Spec}
	}
	sw := sweep.New(sweepCfg, store, log.With(logx.String("comp", "sweep")))
	sw.SetBus(bus)
	if err := sw.Start(); err != nil {
		return fmt.Errorf("start sweep: %w", err)
	}

	go func() {
		if err := cfgm.Watch(ctx); err != nil {
			log.Warn("config watch stopped", logx.Err(err))
		}
	}()
	if cfg.Roster.Watch {
		go func() {
			_ = store.Watch(ctx, bus)
		}()
	}

	// Re-apply live-tunable settings on config reload.
	updates := cfgm.Subscribe(1)
	defer cfgm.Unsubscribe(updates)
	go func() {
		for next := range updates {
			if next == nil {
				continue
			}
			logs.Apply(logx.Config{
				Level:   next.Logging.Level,
				Console: next.Logging.Console,
				File:    logx.FileConfig{Enabled: next.Logging.File.Enabled, Path: next.Logging.File.Path},
			})
			bc.Apply(dispatch.Config{
				Workers:    next.Dispatch.Workers,
				RatePerSec: next.Dispatch.RatePerSec,
			})
		}
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	log.Info("relayd up",
		logx.Int("agents", store.Len()),
		logx.Bool("roster_watch", cfg.Roster.Watch),
		logx.Bool("sweep", sw.Enabled()),
	)

	if cfg.Announce != "" {
		msg := routing.NewMessage("relayd", "all", routing.PriorityNormal, routing.TypeSystemBroadcast, routing.ClassSystem, cfg.Announce)
		if res := eng.Process(msg); res.Success {
			results := bc.BroadcastContext(ctx, cfg.Announce)
			delivered := 0
			for _, ok := range results {
				if ok {
					delivered++
				}
			}
			log.Info("announce broadcast",
				logx.String("strategy", string(res.Strategy)),
				logx.Int("delivered", delivered),
				logx.Int("total", len(results)),
			)
		}
	}

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	sw.Stop(stopCtx)

	stats := eng.GetStats()
	log.Info("relayd stopped",
		logx.Uint64("processed", stats.TotalProcessed),
		logx.Uint64("failed", stats.FailureCount),
	)
	return nil
}
