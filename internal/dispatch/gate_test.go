package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"swarmrelay/internal/roster"
	"swarmrelay/internal/routing"
	logx "swarmrelay/pkg/logx"
)

type call struct {
	x, y int
	text string
}

// fakeActuator records calls and can be told to fail, error, or panic.
type fakeActuator struct {
	mu    sync.Mutex
	calls []call

	refuse  bool  // return (false, nil)
	err     error // return (false, err)
	panicky bool
}

func (f *fakeActuator) Deliver(ctx context.Context, x, y int, text string) (bool, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{x: x, y: y, text: text})
	f.mu.Unlock()
	if f.panicky {
		panic("actuator exploded")
	}
	if f.err != nil {
		return false, f.err
	}
	return !f.refuse, nil
}

func (f *fakeActuator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testStore(t *testing.T, content string) *roster.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	s := roster.New(roster.Config{Path: path}, logx.Nop())
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

const gateRoster = `{"agents": {
	"good": {"chat_input_coordinates": [100, 200]},
	"zero": {"chat_input_coordinates": [0, 0]},
	"bad": {"chat_input_coordinates": [99999, 1]}
}}`

func TestSendHappyPath(t *testing.T) {
	act := &fakeActuator{}
	g := NewGate(testStore(t, gateRoster), act, logx.Nop())

	if !g.Send("good", "hello") {
		t.Fatal("Send should succeed")
	}
	if act.callCount() != 1 {
		t.Fatalf("actuator calls = %d, want 1", act.callCount())
	}
	got := act.calls[0]
	if got.x != 100 || got.y != 200 || got.text != "hello" {
		t.Fatalf("actuator called with %+v", got)
	}
}

func TestSendBlocksOnError(t *testing.T) {
	act := &fakeActuator{}
	g := NewGate(testStore(t, gateRoster), act, logx.Nop())

	if g.Send("bad", "hello") {
		t.Fatal("out-of-range target must not deliver")
	}
	if g.Send("ghost", "hello") {
		t.Fatal("unknown target must not deliver")
	}
	if act.callCount() != 0 {
		t.Fatalf("actuator must stay untouched, got %d calls", act.callCount())
	}
}

func TestSendWarnDoesNotBlock(t *testing.T) {
	act := &fakeActuator{}
	g := NewGate(testStore(t, gateRoster), act, logx.Nop())

	if !g.Send("zero", "ping") {
		t.Fatal("(0,0) is WARN-only and must still deliver")
	}
	if act.callCount() != 1 {
		t.Fatalf("actuator calls = %d, want 1", act.callCount())
	}
}

func TestSendActuatorFailure(t *testing.T) {
	act := &fakeActuator{err: errors.New("click missed")}
	g := NewGate(testStore(t, gateRoster), act, logx.Nop())

	if g.Send("good", "hello") {
		t.Fatal("actuator error must surface as false")
	}
}

func TestSendActuatorRefusal(t *testing.T) {
	act := &fakeActuator{refuse: true}
	g := NewGate(testStore(t, gateRoster), act, logx.Nop())

	if g.Send("good", "hello") {
		t.Fatal("actuator false must propagate")
	}
}

func TestSendActuatorPanicContained(t *testing.T) {
	act := &fakeActuator{panicky: true}
	g := NewGate(testStore(t, gateRoster), act, logx.Nop())

	// Must not panic the caller.
	if g.Send("good", "hello") {
		t.Fatal("panicking actuator must surface as false")
	}
}

func TestSendDryRun(t *testing.T) {
	g := NewGate(testStore(t, gateRoster), nil, logx.Nop())

	if !g.Send("good", "hello") {
		t.Fatal("dry-run send to valid target should succeed")
	}
	// Validation still runs in dry-run mode.
	if g.Send("bad", "hello") {
		t.Fatal("dry-run must still block invalid targets")
	}
}

func TestSendPolicyTimeout(t *testing.T) {
	act := &fakeActuator{}
	g := NewGate(testStore(t, gateRoster), act, logx.Nop())

	ok := g.SendPolicy("good", "hello", routing.Policy{TimeoutSeconds: 5, MaxRetries: 2})
	if !ok {
		t.Fatal("SendPolicy should succeed")
	}
	if act.callCount() != 1 {
		t.Fatalf("actuator calls = %d, want 1", act.callCount())
	}
}
