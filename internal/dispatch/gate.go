package dispatch

import (
	"context"
	"fmt"
	"time"

	"swarmrelay/internal/eventbus"
	"swarmrelay/internal/roster"
	"swarmrelay/internal/routing"
	"swarmrelay/internal/storage"
	logx "swarmrelay/pkg/logx"
)

// Gate wraps a single outbound delivery: validate the target, then (and
// only then) touch the actuator.
type Gate struct {
	store *roster.Store
	act   Actuator
	log   logx.Logger

	bus   eventbus.Bus
	audit storage.Store
}

// NewGate builds a delivery gate. A nil actuator means dry-run: the full
// validation path executes, but the final step always succeeds.
func NewGate(store *roster.Store, act Actuator, log logx.Logger) *Gate {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Gate{store: store, act: act, log: log}
}

// SetBus wires an optional event bus; events are best-effort.
func (g *Gate) SetBus(bus eventbus.Bus) { g.bus = bus }

// SetAudit wires an optional persistent audit trail; appends are best-effort.
func (g *Gate) SetAudit(st storage.Store) { g.audit = st }

// Send delivers text to one agent. False means "not delivered, see logs":
// a blocked target, an actuator failure, and an actuator panic all land
// here rather than escaping to the caller.
func (g *Gate) Send(agentID, text string) bool {
	return g.send(context.Background(), agentID, text, "")
}

// SendPolicy is Send with the resolved routing policy's timeout enforced as
// a deadline on the actuator call. A zero timeout means no deadline.
func (g *Gate) SendPolicy(agentID, text string, policy routing.Policy) bool {
	ctx := context.Background()
	if policy.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(policy.TimeoutSeconds)*time.Second)
		defer cancel()
	}
	return g.send(ctx, agentID, text, "")
}

func (g *Gate) send(ctx context.Context, agentID, text, broadcastID string) bool {
	start := time.Now()

	report := g.store.ValidateOne(agentID)
	for _, is := range report.Issues {
		if is.Level == roster.LevelWarn {
			g.log.Warn("delivery target flagged", logx.String("agent", agentID), logx.String("issue", is.Message))
		}
	}
	if report.HasError(agentID) {
		g.log.Error("delivery blocked: target failed validation",
			logx.String("agent", agentID),
			logx.Int("issues", len(report.Issues)),
		)
		g.record(agentID, roster.Coordinate{}, broadcastID, false, "validation failed", start)
		return false
	}

	coord, err := g.store.GetCoordinate(agentID)
	if err != nil {
		// Roster swapped between validation and lookup; treat like a bad target.
		g.log.Error("delivery blocked: coordinate lookup failed", logx.String("agent", agentID), logx.Err(err))
		g.record(agentID, roster.Coordinate{}, broadcastID, false, err.Error(), start)
		return false
	}

	ok, derr := g.deliver(ctx, coord, text)
	if derr != nil {
		g.log.Error("actuator failed", logx.String("agent", agentID), logx.Err(derr))
		ok = false
	}
	errStr := ""
	if derr != nil {
		errStr = derr.Error()
	}
	g.record(agentID, coord, broadcastID, ok, errStr, start)

	g.log.Debug("delivery finished",
		logx.String("agent", agentID),
		logx.Bool("ok", ok),
		logx.Duration("took", time.Since(start)),
	)
	return ok
}

// deliver runs the actuator with panic containment. A nil actuator is the
// dry-run path and always succeeds.
func (g *Gate) deliver(ctx context.Context, coord roster.Coordinate, text string) (ok bool, err error) {
	if g.act == nil {
		return true, nil
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("actuator panic: %v", r)
		}
	}()
	return g.act.Deliver(ctx, coord.X, coord.Y, text)
}

func (g *Gate) record(agentID string, coord roster.Coordinate, broadcastID string, ok bool, errStr string, start time.Time) {
	if g.bus != nil {
		g.bus.Publish(eventbus.Event{
			Type: eventbus.EventDeliverySent,
			Data: map[string]any{"agent": agentID, "ok": ok, "broadcast": broadcastID},
		})
	}
	if g.audit != nil {
		kind := storage.KindSend
		if broadcastID != "" {
			kind = storage.KindBroadcast
		}
		actx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := g.audit.AppendDelivery(actx, storage.DeliveryRecord{
			At:          start,
			Kind:        kind,
			BroadcastID: broadcastID,
			AgentID:     agentID,
			X:           coord.X,
			Y:           coord.Y,
			OK:          ok,
			Error:       errStr,
			TookMS:      time.Since(start).Milliseconds(),
		}); err != nil {
			g.log.Debug("audit append failed", logx.Err(err))
		}
	}
}
