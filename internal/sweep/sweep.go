// Package sweep revalidates the roster on a schedule, so coordinate drift
// shows up in the logs before a delivery trips over it.
package sweep

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"swarmrelay/internal/eventbus"
	"swarmrelay/internal/roster"
	logx "swarmrelay/pkg/logx"
)

type Config struct {
	Enabled bool
	// Spec is a cron expression. Both 5-field and 6-field (with seconds)
	// forms are accepted.
	Spec string
}

type Service struct {
	cfg    Config
	store  *roster.Store
	log    logx.Logger
	bus    eventbus.Bus
	parser cron.Parser

	mu sync.Mutex
	c  *cron.Cron
}

func New(cfg Config, store *roster.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:   cfg,
		store: store,
		log:   log,
		// SecondOptional allows both 5-field and 6-field cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

func (s *Service) SetBus(bus eventbus.Bus) { s.bus = bus }

func (s *Service) Enabled() bool { return s.cfg.Enabled }

// Start begins scheduled sweeps. No-op when disabled.
func (s *Service) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	spec := strings.TrimSpace(s.cfg.Spec)
	if spec == "" {
		return errors.New("sweep spec is empty")
	}
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	s.c = cron.New(cron.WithParser(s.parser))
	s.c.Schedule(sched, cron.FuncJob(s.Run))
	s.c.Start()
	s.log.Info("sweep started", logx.String("spec", spec))
	return nil
}

// Stop halts scheduling, waiting for an in-flight sweep up to ctx.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("sweep stopped")
}

// Run performs one revalidation pass immediately.
func (s *Service) Run() {
	report := s.store.ValidateAll()

	warns, errs := 0, 0
	for _, is := range report.Issues {
		switch is.Level {
		case roster.LevelError:
			errs++
			s.log.Error("sweep: agent not deliverable", logx.String("agent", is.AgentID), logx.String("issue", is.Message))
		default:
			warns++
			s.log.Warn("sweep: agent flagged", logx.String("agent", is.AgentID), logx.String("issue", is.Message))
		}
	}
	s.log.Info("sweep finished",
		logx.Int("ok", len(report.OK)),
		logx.Int("warn", warns),
		logx.Int("error", errs),
	)

	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Type: eventbus.EventRosterValidated,
			Data: map[string]any{"ok": len(report.OK), "warn": warns, "error": errs},
		})
	}
}
