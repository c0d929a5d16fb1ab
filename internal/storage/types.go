package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Record kinds.
const (
	KindSend      = "send"
	KindBroadcast = "broadcast"
	KindProcess   = "process"
)

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// DeliveryRecord is one audited delivery or processing outcome.
// Keep it compact and schema-stable.
type DeliveryRecord struct {
	At          time.Time `json:"at"`
	Kind        string    `json:"kind"`
	MessageID   string    `json:"message_id,omitempty"`
	BroadcastID string    `json:"broadcast_id,omitempty"`
	AgentID     string    `json:"agent_id,omitempty"`
	X           int       `json:"x,omitempty"`
	Y           int       `json:"y,omitempty"`
	Strategy    string    `json:"strategy,omitempty"`
	Status      string    `json:"status,omitempty"`
	OK          bool      `json:"ok"`
	Error       string    `json:"err,omitempty"`
	TookMS      int64     `json:"took_ms,omitempty"`
}
