package routing

import "sync"

// Policy carries the delivery knobs for one strategy.
//
// TimeoutSeconds bounds a single delivery attempt (0 = no deadline).
// MaxRetries is exposed as policy data for the actuator layer; nothing in
// this core loops on it.
type Policy struct {
	TimeoutSeconds int
	MaxRetries     int
}

// Strategies the table must always carry. A table missing any of these is
// rejected by Validate, and the engine refuses to start on it.
var requiredStrategies = []Strategy{
	StrategyStandard,
	StrategyCoordination,
	StrategyBroadcast,
	StrategySystem,
}

// Table maps strategy names to policies. Lookups dominate; Update exists as
// an operator escape hatch and must not race them.
type Table struct {
	mu       sync.RWMutex
	policies map[Strategy]Policy
}

// DefaultTable returns the standard policy set.
func DefaultTable() *Table {
	return &Table{policies: map[Strategy]Policy{
		StrategyImmediate:    {TimeoutSeconds: 0, MaxRetries: 3},
		StrategyHighest:      {TimeoutSeconds: 0, MaxRetries: 5},
		StrategyHighPriority: {TimeoutSeconds: 5, MaxRetries: 3},
		StrategyStandard:     {TimeoutSeconds: 10, MaxRetries: 2},
		StrategyLowPriority:  {TimeoutSeconds: 30, MaxRetries: 1},
		StrategyBroadcast:    {TimeoutSeconds: 15, MaxRetries: 2},
		StrategyCoordination: {TimeoutSeconds: 0, MaxRetries: 4},
		StrategySystem:       {TimeoutSeconds: 5, MaxRetries: 3},
	}}
}

// NewTable builds a table from an explicit policy set (copied, not aliased).
func NewTable(policies map[Strategy]Policy) *Table {
	m := make(map[Strategy]Policy, len(policies))
	for k, v := range policies {
		m[k] = v
	}
	return &Table{policies: m}
}

func (t *Table) Lookup(name Strategy) (Policy, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.policies[name]
	return p, ok
}

// Update replaces one strategy's policy at runtime.
func (t *Table) Update(name Strategy, p Policy) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.policies[name] = p
}

// Validate reports whether the table is usable: every required strategy
// present, no negative timeout or retry count anywhere.
func (t *Table) Validate() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, name := range requiredStrategies {
		if _, ok := t.policies[name]; !ok {
			return false
		}
	}
	for _, p := range t.policies {
		if p.TimeoutSeconds < 0 || p.MaxRetries < 0 {
			return false
		}
	}
	return true
}

// Names returns the strategies currently in the table (order not significant).
func (t *Table) Names() []Strategy {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Strategy, 0, len(t.policies))
	for k := range t.policies {
		out = append(out, k)
	}
	return out
}
