package routing

// Strategy names a routing/priority class. Each maps to one Policy in the
// strategy table.
type Strategy string

const (
	StrategyImmediate    Strategy = "immediate"
	StrategyHighPriority Strategy = "high_priority"
	StrategyStandard     Strategy = "standard"
	StrategyLowPriority  Strategy = "low_priority"
	StrategyBroadcast    Strategy = "broadcast"
	StrategyCoordination Strategy = "coordination_priority"
	StrategySystem       Strategy = "system_priority"
	StrategyHighest      Strategy = "highest_priority"
)

// Fixed lookup tables for the generic (non-coordinator) rules.
var (
	priorityStrategies = map[Priority]Strategy{
		PriorityUrgent: StrategyImmediate,
		PriorityHigh:   StrategyHighPriority,
		PriorityNormal: StrategyStandard,
		PriorityLow:    StrategyLowPriority,
	}

	typeStrategies = map[MessageType]Strategy{
		TypeAgentToCoordinator: StrategyCoordination,
		TypeSystemBroadcast:    StrategyBroadcast,
		TypeCoordinatorToAgent: StrategySystem,
	}

	senderStrategies = map[SenderClass]Strategy{
		ClassAgent:  StrategyStandard,
		ClassSystem: StrategySystem,
		ClassHuman:  StrategyStandard,
	}
)

// Resolve maps a message to its strategy. Pure and deterministic: identical
// messages always resolve identically.
//
// Rule order is load-bearing and matches the observable behavior the rest of
// the system was built against. Who is speaking outranks how urgent the
// message claims to be, which outranks what kind of message it is. A
// coordinator's routine note therefore still outranks a regular agent's
// urgent one. Rule 3 does subsume rules 1-2 for coordinator senders; keep
// all three anyway so edge-case traffic keeps resolving exactly as before
// (see TestResolvePrecedence before reordering anything here).
func Resolve(msg Message) Strategy {
	// 1-3: coordinator senders always win.
	if msg.SenderClass == ClassCoordinator {
		if msg.Type == TypeAgentToCoordinator {
			return StrategyHighest
		}
		if msg.Priority == PriorityUrgent {
			return StrategyImmediate
		}
		return StrategyHighest
	}

	// 4: urgent traffic from anyone else.
	if msg.Priority == PriorityUrgent {
		return priorityStrategies[PriorityUrgent]
	}

	// 5: coordination-flavored message types.
	if s, ok := typeStrategies[msg.Type]; ok {
		return s
	}

	// 6: plain sender class.
	if s, ok := senderStrategies[msg.SenderClass]; ok {
		return s
	}

	// 7: plain priority.
	if s, ok := priorityStrategies[msg.Priority]; ok {
		return s
	}

	// 8: fallback.
	return StrategyStandard
}
