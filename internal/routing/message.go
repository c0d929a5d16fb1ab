package routing

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Priority orders a message relative to its peers.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// MessageType categorizes who a message is meant for.
type MessageType string

const (
	TypeAgentToAgent       MessageType = "AGENT_TO_AGENT"
	TypeAgentToCoordinator MessageType = "AGENT_TO_COORDINATOR"
	TypeCoordinatorToAgent MessageType = "COORDINATOR_TO_AGENT"
	TypeSystemBroadcast    MessageType = "SYSTEM_BROADCAST"
	TypeHumanToAgent       MessageType = "HUMAN_TO_AGENT"
)

// SenderClass identifies what kind of participant sent a message.
type SenderClass string

const (
	ClassCoordinator SenderClass = "COORDINATOR"
	ClassAgent       SenderClass = "AGENT"
	ClassSystem      SenderClass = "SYSTEM"
	ClassHuman       SenderClass = "HUMAN"
)

// ParsePriority accepts any casing ("high", "HIGH") but returns exactly one
// canonical value. Unknown strings are rejected; there is no legacy
// lowercase variant anywhere past this boundary.
func ParsePriority(s string) (Priority, error) {
	switch Priority(strings.ToUpper(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow, nil
	case PriorityNormal, "REGULAR":
		return PriorityNormal, nil
	case PriorityHigh:
		return PriorityHigh, nil
	case PriorityUrgent:
		return PriorityUrgent, nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}

func ParseMessageType(s string) (MessageType, error) {
	switch MessageType(strings.ToUpper(strings.TrimSpace(s))) {
	case TypeAgentToAgent:
		return TypeAgentToAgent, nil
	case TypeAgentToCoordinator:
		return TypeAgentToCoordinator, nil
	case TypeCoordinatorToAgent:
		return TypeCoordinatorToAgent, nil
	case TypeSystemBroadcast:
		return TypeSystemBroadcast, nil
	case TypeHumanToAgent:
		return TypeHumanToAgent, nil
	default:
		return "", fmt.Errorf("unknown message type %q", s)
	}
}

func ParseSenderClass(s string) (SenderClass, error) {
	switch SenderClass(strings.ToUpper(strings.TrimSpace(s))) {
	case ClassCoordinator:
		return ClassCoordinator, nil
	case ClassAgent:
		return ClassAgent, nil
	case ClassSystem:
		return ClassSystem, nil
	case ClassHuman:
		return ClassHuman, nil
	default:
		return "", fmt.Errorf("unknown sender class %q", s)
	}
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

func (t MessageType) Valid() bool {
	switch t {
	case TypeAgentToAgent, TypeAgentToCoordinator, TypeCoordinatorToAgent,
		TypeSystemBroadcast, TypeHumanToAgent:
		return true
	}
	return false
}

func (c SenderClass) Valid() bool {
	switch c {
	case ClassCoordinator, ClassAgent, ClassSystem, ClassHuman:
		return true
	}
	return false
}

// Message is one unit of coordination traffic. Immutable once constructed;
// pass it by value.
//
// Content may be empty: a contentless "ping" is a legitimate coordination
// message and must validate cleanly.
type Message struct {
	ID          string
	Sender      string
	Recipient   string
	Priority    Priority
	Type        MessageType
	SenderClass SenderClass
	Content     string
}

// NewMessage builds a message with a fresh ID.
func NewMessage(sender, recipient string, prio Priority, typ MessageType, class SenderClass, content string) Message {
	return Message{
		ID:          uuid.NewString(),
		Sender:      sender,
		Recipient:   recipient,
		Priority:    prio,
		Type:        typ,
		SenderClass: class,
		Content:     content,
	}
}
