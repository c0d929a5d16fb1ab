package roster

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	logx "swarmrelay/pkg/logx"
)

// ErrNotFound is returned when an agent ID is not in the current snapshot.
var ErrNotFound = errors.New("agent not found")

// Default coordinate bounds. Anything outside is an actuator target we
// refuse to touch.
const (
	DefaultCoordMin = -10000
	DefaultCoordMax = 10000
)

// Bounds is the inclusive valid range for both coordinate axes.
type Bounds struct {
	Min int
	Max int
}

func (b Bounds) withDefaults() Bounds {
	if b.Min == 0 && b.Max == 0 {
		return Bounds{Min: DefaultCoordMin, Max: DefaultCoordMax}
	}
	return b
}

// Config configures the store.
//
// Bounds may be overridden per store (tests use tight ranges); the zero
// value means the default ±10000 window.
type Config struct {
	Path   string
	Bounds Bounds
}

// Coordinate is an agent's delivery target. Immutable after Load; Raw keeps
// the source record for operators debugging a bad entry.
type Coordinate struct {
	X   int
	Y   int
	Raw json.RawMessage
}

// IsZero reports the (0,0) "never configured" sentinel.
func (c Coordinate) IsZero() bool { return c.X == 0 && c.Y == 0 }

// AgentRecord pairs an agent ID with its parsed coordinate.
type AgentRecord struct {
	ID         string
	Coordinate Coordinate
}

// snapshot is an immutable view of the roster. Load builds a fresh one and
// swaps the pointer; nothing mutates a snapshot after publication.
type snapshot struct {
	agents map[string]AgentRecord
}

// Store loads and serves the agent roster.
type Store struct {
	cfg Config
	log logx.Logger

	mu   sync.RWMutex
	snap *snapshot
}

func New(cfg Config, log logx.Logger) *Store {
	cfg.Bounds = cfg.Bounds.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{
		cfg:  cfg,
		log:  log,
		snap: &snapshot{agents: map[string]AgentRecord{}},
	}
}

// Bounds returns the configured coordinate bounds.
func (s *Store) Bounds() Bounds { return s.cfg.Bounds }

// rosterFile mirrors the on-disk schema. Agent entries keep their raw form
// so extra fields survive as opaque metadata.
type rosterFile struct {
	Agents map[string]json.RawMessage `json:"agents"`
}

type agentEntry struct {
	ChatInputCoordinates []json.Number `json:"chat_input_coordinates"`
}

// Load reads and parses the whole roster file, then atomically replaces the
// current snapshot. On any error the previous snapshot keeps serving.
func (s *Store) Load() error {
	b, err := os.ReadFile(s.cfg.Path)
	if err != nil {
		return fmt.Errorf("read roster %s: %w", s.cfg.Path, err)
	}

	next, err := parseRoster(b)
	if err != nil {
		return fmt.Errorf("parse roster %s: %w", s.cfg.Path, err)
	}

	s.mu.Lock()
	prev := len(s.snap.agents)
	s.snap = next
	s.mu.Unlock()

	s.log.Info("roster loaded",
		logx.String("path", s.cfg.Path),
		logx.Int("agents", len(next.agents)),
		logx.Int("previous", prev),
	)
	return nil
}

func parseRoster(b []byte) (*snapshot, error) {
	var file rosterFile
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&file); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, errors.New("trailing data after roster object")
		}
		return nil, err
	}
	if file.Agents == nil {
		return nil, errors.New(`missing "agents" object`)
	}

	agents := make(map[string]AgentRecord, len(file.Agents))
	for id, raw := range file.Agents {
		coord, err := parseCoordinate(raw)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", id, err)
		}
		agents[id] = AgentRecord{ID: id, Coordinate: coord}
	}
	return &snapshot{agents: agents}, nil
}

func parseCoordinate(raw json.RawMessage) (Coordinate, error) {
	var entry agentEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Coordinate{}, fmt.Errorf("malformed entry: %w", err)
	}
	if entry.ChatInputCoordinates == nil {
		return Coordinate{}, errors.New("missing chat_input_coordinates")
	}
	if len(entry.ChatInputCoordinates) != 2 {
		return Coordinate{}, fmt.Errorf("chat_input_coordinates must have exactly 2 elements, got %d", len(entry.ChatInputCoordinates))
	}

	x, err := entry.ChatInputCoordinates[0].Int64()
	if err != nil {
		return Coordinate{}, fmt.Errorf("x is not an integer: %w", err)
	}
	y, err := entry.ChatInputCoordinates[1].Int64()
	if err != nil {
		return Coordinate{}, fmt.Errorf("y is not an integer: %w", err)
	}

	// Keep our own copy; raw aliases the decode buffer.
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	return Coordinate{X: int(x), Y: int(y), Raw: cp}, nil
}

func (s *Store) current() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// GetIDs returns all known agent IDs, sorted for stable logs and tests.
func (s *Store) GetIDs() []string {
	snap := s.current()
	ids := make([]string, 0, len(snap.agents))
	for id := range snap.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetCoordinate returns the parsed coordinate for one agent.
func (s *Store) GetCoordinate(id string) (Coordinate, error) {
	snap := s.current()
	rec, ok := snap.agents[id]
	if !ok {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return rec.Coordinate, nil
}

// Len reports how many agents the current snapshot holds.
func (s *Store) Len() int {
	return len(s.current().agents)
}
