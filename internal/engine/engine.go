package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"swarmrelay/internal/eventbus"
	"swarmrelay/internal/routing"
	"swarmrelay/internal/storage"
	logx "swarmrelay/pkg/logx"
)

// ErrBadTable means the routing table is missing required strategies; the
// engine refuses to start on it.
var ErrBadTable = errors.New("routing table failed validation")

// Execution statuses, derived purely from the resolved strategy.
const (
	StatusProcessed   = "processed"
	StatusCoordinated = "coordinated"
	StatusBroadcasted = "broadcasted"
	StatusPrioritized = "prioritized"
	StatusFailed      = "failed"
)

// Config controls engine bookkeeping.
type Config struct {
	// HistorySize bounds the retrievable execution window. Default 10.
	HistorySize int
}

// Result is the outcome of processing one message.
type Result struct {
	MessageID string
	Success   bool
	Strategy  routing.Strategy
	Status    string
	Timestamp time.Time
	Errors    []string
}

// Stats is a point-in-time snapshot of engine bookkeeping.
type Stats struct {
	TotalProcessed uint64
	SuccessCount   uint64
	FailureCount   uint64
	SuccessRate    float64
	Recent         []Result
}

// Service is the coordination engine. Safe for concurrent producers; each
// Process call runs to completion synchronously.
type Service struct {
	cfg   Config
	table *routing.Table
	log   logx.Logger

	bus   eventbus.Bus
	audit storage.Store

	mu      sync.Mutex
	total   uint64
	success uint64
	failure uint64
	history []Result
}

// New builds an engine over the given routing table. The table must pass
// Validate; a table that cannot route the required strategies is a
// configuration bug, not something to limp along with.
func New(cfg Config, table *routing.Table, log logx.Logger) (*Service, error) {
	if table == nil || !table.Validate() {
		return nil, ErrBadTable
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 10
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, table: table, log: log}, nil
}

// SetBus wires an optional event bus; publishes are best-effort.
func (s *Service) SetBus(bus eventbus.Bus) { s.bus = bus }

// SetAudit wires an optional persistent audit trail; appends are best-effort.
func (s *Service) SetAudit(st storage.Store) { s.audit = st }

// Validate checks message shape: non-empty sender and recipient, all three
// enums within their closed sets. Empty content is valid; a contentless
// coordination ping is legitimate traffic.
func (s *Service) Validate(msg routing.Message) (bool, []string) {
	var errs []string
	if msg.Sender == "" {
		errs = append(errs, "sender is empty")
	}
	if msg.Recipient == "" {
		errs = append(errs, "recipient is empty")
	}
	if !msg.Priority.Valid() {
		errs = append(errs, fmt.Sprintf("unknown priority %q", string(msg.Priority)))
	}
	if !msg.Type.Valid() {
		errs = append(errs, fmt.Sprintf("unknown message type %q", string(msg.Type)))
	}
	if !msg.SenderClass.Valid() {
		errs = append(errs, fmt.Sprintf("unknown sender class %q", string(msg.SenderClass)))
	}
	return len(errs) == 0, errs
}

// Process runs one message through validation, strategy resolution, policy
// lookup, and simulated execution, updating counters and history.
func (s *Service) Process(msg routing.Message) Result {
	res := Result{MessageID: msg.ID, Timestamp: time.Now()}

	ok, errs := s.Validate(msg)
	if !ok {
		res.Status = StatusFailed
		res.Errors = errs
		s.commit(res)
		s.log.Warn("message rejected",
			logx.String("message", msg.ID),
			logx.Strings("errors", errs),
		)
		return res
	}

	strategy := routing.Resolve(msg)
	policy, found := s.table.Lookup(strategy)
	if !found {
		// Validate() guarantees the required strategies; an operator Update
		// can still remove an optional one out from under us.
		res.Status = StatusFailed
		res.Errors = []string{fmt.Sprintf("no policy for strategy %q", string(strategy))}
		s.commit(res)
		s.log.Error("strategy has no policy", logx.String("strategy", string(strategy)))
		return res
	}

	res.Success = true
	res.Strategy = strategy
	res.Status = statusFor(strategy)
	s.commit(res)

	s.log.Debug("message processed",
		logx.String("message", msg.ID),
		logx.String("strategy", string(strategy)),
		logx.String("status", res.Status),
		logx.Int("timeout_s", policy.TimeoutSeconds),
		logx.Int("retries", policy.MaxRetries),
	)
	return res
}

// ProcessBulk processes messages sequentially, preserving input order.
// Every message is attempted; an invalid one never short-circuits the rest.
func (s *Service) ProcessBulk(msgs []routing.Message) []Result {
	out := make([]Result, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, s.Process(m))
	}
	return out
}

// GetStats returns a snapshot. Recent holds the newest records first-in,
// oldest first, at most HistorySize of them.
func (s *Service) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		TotalProcessed: s.total,
		SuccessCount:   s.success,
		FailureCount:   s.failure,
		Recent:         append([]Result(nil), s.history...),
	}
	if s.total > 0 {
		st.SuccessRate = float64(s.success) / float64(s.total)
	}
	return st
}

// commit updates counters and history atomically, then fans the result out
// to the bus and audit trail.
func (s *Service) commit(res Result) {
	s.mu.Lock()
	s.total++
	if res.Success {
		s.success++
	} else {
		s.failure++
	}
	s.history = append(s.history, res)
	if len(s.history) > s.cfg.HistorySize {
		s.history = s.history[len(s.history)-s.cfg.HistorySize:]
	}
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Type: eventbus.EventMessageProcessed,
			Data: map[string]any{
				"message":  res.MessageID,
				"ok":       res.Success,
				"strategy": string(res.Strategy),
				"status":   res.Status,
			},
		})
	}
	if s.audit != nil {
		errStr := ""
		if len(res.Errors) > 0 {
			errStr = res.Errors[0]
		}
		actx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := s.audit.AppendDelivery(actx, storage.DeliveryRecord{
			At:        res.Timestamp,
			Kind:      storage.KindProcess,
			MessageID: res.MessageID,
			Strategy:  string(res.Strategy),
			Status:    res.Status,
			OK:        res.Success,
			Error:     errStr,
		}); err != nil {
			s.log.Debug("audit append failed", logx.Err(err))
		}
	}
}

func statusFor(strategy routing.Strategy) string {
	switch strategy {
	case routing.StrategyHighest, routing.StrategyCoordination:
		return StatusCoordinated
	case routing.StrategyBroadcast:
		return StatusBroadcasted
	case routing.StrategySystem:
		return StatusPrioritized
	default:
		return StatusProcessed
	}
}
