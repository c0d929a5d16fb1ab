package dispatch

import (
	"errors"
	"testing"

	logx "swarmrelay/pkg/logx"
)

const broadcastRoster = `{"agents": {
	"alpha": {"chat_input_coordinates": [10, 10]},
	"beta": {"chat_input_coordinates": [20, 20]},
	"gamma": {"chat_input_coordinates": [30, 30]},
	"broken": {"chat_input_coordinates": [50000, 1]}
}}`

func TestBroadcastTotality(t *testing.T) {
	store := testStore(t, broadcastRoster)
	act := &fakeActuator{}
	b := NewBroadcaster(Config{Workers: 2}, store, act, logx.Nop())

	results := b.Broadcast("all hands")
	if len(results) != len(store.GetIDs()) {
		t.Fatalf("result entries = %d, want %d", len(results), len(store.GetIDs()))
	}
	for _, id := range store.GetIDs() {
		if _, ok := results[id]; !ok {
			t.Fatalf("agent %q missing from results", id)
		}
	}
}

func TestBroadcastBadRecipientIsolation(t *testing.T) {
	store := testStore(t, broadcastRoster)
	act := &fakeActuator{}
	b := NewBroadcaster(Config{Workers: 4}, store, act, logx.Nop())

	results := b.Broadcast("all hands")

	if results["broken"] {
		t.Fatal("bad recipient must be false")
	}
	for _, id := range []string{"alpha", "beta", "gamma"} {
		if !results[id] {
			t.Fatalf("agent %q should have been delivered", id)
		}
	}
	// The bad recipient never reaches the actuator.
	if act.callCount() != 3 {
		t.Fatalf("actuator calls = %d, want 3", act.callCount())
	}
}

func TestBroadcastActuatorErrorIsPerRecipient(t *testing.T) {
	store := testStore(t, broadcastRoster)
	act := &fakeActuator{err: errors.New("screen locked")}
	b := NewBroadcaster(Config{Workers: 2}, store, act, logx.Nop())

	results := b.Broadcast("all hands")
	if len(results) != 4 {
		t.Fatalf("result entries = %d, want 4", len(results))
	}
	for id, ok := range results {
		if ok {
			t.Fatalf("agent %q reported success with a failing actuator", id)
		}
	}
}

func TestBroadcastPanicContained(t *testing.T) {
	store := testStore(t, broadcastRoster)
	act := &fakeActuator{panicky: true}
	b := NewBroadcaster(Config{Workers: 2}, store, act, logx.Nop())

	// Must not panic; every deliverable agent is false.
	results := b.Broadcast("all hands")
	for id, ok := range results {
		if ok {
			t.Fatalf("agent %q reported success despite actuator panic", id)
		}
	}
}

func TestBroadcastDryRun(t *testing.T) {
	store := testStore(t, broadcastRoster)
	b := NewBroadcaster(Config{}, store, nil, logx.Nop())

	results := b.Broadcast("all hands")
	if results["broken"] {
		t.Fatal("dry-run must still block the bad recipient")
	}
	for _, id := range []string{"alpha", "beta", "gamma"} {
		if !results[id] {
			t.Fatalf("dry-run should succeed for %q", id)
		}
	}
}

func TestBroadcastDeterministicAcrossRuns(t *testing.T) {
	store := testStore(t, broadcastRoster)
	act := &fakeActuator{}
	b := NewBroadcaster(Config{Workers: 3}, store, act, logx.Nop())

	first := b.Broadcast("msg")
	for i := 0; i < 5; i++ {
		next := b.Broadcast("msg")
		if len(next) != len(first) {
			t.Fatalf("run %d: %d entries, want %d", i, len(next), len(first))
		}
		for id, ok := range first {
			if next[id] != ok {
				t.Fatalf("run %d: agent %q flipped from %v to %v", i, id, ok, next[id])
			}
		}
	}
}

func TestBroadcastEmptyRoster(t *testing.T) {
	store := testStore(t, `{"agents": {}}`)
	b := NewBroadcaster(Config{}, store, &fakeActuator{}, logx.Nop())

	results := b.Broadcast("anyone?")
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %v", results)
	}
}

func TestBroadcasterApply(t *testing.T) {
	store := testStore(t, broadcastRoster)
	b := NewBroadcaster(Config{Workers: 1, RatePerSec: 1}, store, &fakeActuator{}, logx.Nop())

	b.Apply(Config{Workers: 8, RatePerSec: 100})
	results := b.Broadcast("after apply")
	if len(results) != 4 {
		t.Fatalf("result entries = %d, want 4", len(results))
	}
}
