package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"swarmrelay/internal/eventbus"
	"swarmrelay/internal/roster"
	"swarmrelay/internal/storage"
	logx "swarmrelay/pkg/logx"
)

// Config controls broadcast fanout.
type Config struct {
	Workers    int
	RatePerSec int
}

// Broadcaster fans one message out to every known agent, best-effort: a
// single bad recipient never blocks the rest, and every known agent gets
// exactly one entry in the result map.
type Broadcaster struct {
	mu  sync.Mutex
	cfg Config

	store *roster.Store
	act   Actuator
	log   logx.Logger

	limiter *rate.Limiter

	bus   eventbus.Bus
	audit storage.Store
}

func NewBroadcaster(cfg Config, store *roster.Store, act Actuator, log logx.Logger) *Broadcaster {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 10
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Broadcaster{
		cfg:     cfg,
		store:   store,
		act:     act,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

func (b *Broadcaster) SetBus(bus eventbus.Bus)   { b.bus = bus }
func (b *Broadcaster) SetAudit(st storage.Store) { b.audit = st }

// Apply swaps fanout settings at runtime.
func (b *Broadcaster) Apply(cfg Config) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 10
	}
	b.cfg = cfg
	b.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Broadcast delivers text to all known agents and returns one result per
// agent. Validation runs once up front; agents with an ERROR issue are
// recorded false without ever reaching the actuator. The result map is the
// same regardless of worker completion order.
func (b *Broadcaster) Broadcast(text string) map[string]bool {
	return b.BroadcastContext(context.Background(), text)
}

// BroadcastContext is Broadcast with caller-controlled cancellation. A
// cancelled context records false for the agents not yet attempted.
func (b *Broadcaster) BroadcastContext(ctx context.Context, text string) map[string]bool {
	id := uuid.NewString()
	start := time.Now()

	ids := b.store.GetIDs()
	report := b.store.ValidateAll()
	bad := report.ErrorSet()

	results := make(map[string]bool, len(ids))
	var deliverable []string
	for _, agentID := range ids {
		if bad[agentID] {
			results[agentID] = false
			b.record(id, agentID, roster.Coordinate{}, false, "validation failed", start)
			continue
		}
		deliverable = append(deliverable, agentID)
	}

	b.log.Info("broadcast started",
		logx.String("broadcast", id),
		logx.Int("agents", len(ids)),
		logx.Int("blocked", len(ids)-len(deliverable)),
	)

	b.mu.Lock()
	workers := b.cfg.Workers
	limiter := b.limiter
	b.mu.Unlock()
	if workers > len(deliverable) {
		workers = len(deliverable)
	}

	var (
		resMu sync.Mutex
		wg    sync.WaitGroup
		jobs  = make(chan string)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for agentID := range jobs {
				ok := b.sendOne(ctx, limiter, id, agentID, text)
				resMu.Lock()
				results[agentID] = ok
				resMu.Unlock()
			}
		}()
	}
	for _, agentID := range deliverable {
		jobs <- agentID
	}
	close(jobs)
	wg.Wait()

	done, failed := 0, 0
	for _, ok := range results {
		if ok {
			done++
		} else {
			failed++
		}
	}
	b.log.Info("broadcast finished",
		logx.String("broadcast", id),
		logx.Int("ok", done),
		logx.Int("failed", failed),
		logx.Duration("took", time.Since(start)),
	)
	if b.bus != nil {
		b.bus.Publish(eventbus.Event{
			Type: eventbus.EventBroadcastDone,
			Data: map[string]any{"broadcast": id, "ok": done, "failed": failed},
		})
	}
	return results
}

func (b *Broadcaster) sendOne(ctx context.Context, limiter *rate.Limiter, broadcastID, agentID, text string) bool {
	start := time.Now()

	coord, err := b.store.GetCoordinate(agentID)
	if err != nil {
		// Roster swapped mid-broadcast; the agent still gets its entry.
		b.record(broadcastID, agentID, roster.Coordinate{}, false, err.Error(), start)
		return false
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			b.record(broadcastID, agentID, coord, false, err.Error(), start)
			return false
		}
	}

	ok, derr := b.deliver(ctx, coord, text)
	if derr != nil {
		b.log.Error("broadcast delivery failed",
			logx.String("broadcast", broadcastID),
			logx.String("agent", agentID),
			logx.Err(derr),
		)
		ok = false
	}
	errStr := ""
	if derr != nil {
		errStr = derr.Error()
	}
	b.record(broadcastID, agentID, coord, ok, errStr, start)
	return ok
}

func (b *Broadcaster) deliver(ctx context.Context, coord roster.Coordinate, text string) (ok bool, err error) {
	if b.act == nil {
		return true, nil
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("actuator panic: %v", r)
		}
	}()
	return b.act.Deliver(ctx, coord.X, coord.Y, text)
}

func (b *Broadcaster) record(broadcastID, agentID string, coord roster.Coordinate, ok bool, errStr string, start time.Time) {
	if b.audit == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := b.audit.AppendDelivery(actx, storage.DeliveryRecord{
		At:          start,
		Kind:        storage.KindBroadcast,
		BroadcastID: broadcastID,
		AgentID:     agentID,
		X:           coord.X,
		Y:           coord.Y,
		OK:          ok,
		Error:       errStr,
		TookMS:      time.Since(start).Milliseconds(),
	}); err != nil {
		b.log.Debug("audit append failed", logx.Err(err))
	}
}
