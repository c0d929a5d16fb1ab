package roster

import (
	"math/rand"
	"testing"

	logx "swarmrelay/pkg/logx"
)

func TestValidateOneOK(t *testing.T) {
	s := newStore(t, goodRoster)
	r := s.ValidateOne("agent-1")
	if !r.IsAllOK() {
		t.Fatalf("expected clean report, got issues %v", r.Issues)
	}
	if len(r.OK) != 1 || r.OK[0] != "agent-1" {
		t.Fatalf("OK = %v", r.OK)
	}
}

func TestValidateOneUnknownAgent(t *testing.T) {
	s := newStore(t, goodRoster)
	r := s.ValidateOne("ghost")
	if len(r.OK) != 0 {
		t.Fatalf("OK should be empty, got %v", r.OK)
	}
	if len(r.Issues) != 1 || r.Issues[0].Level != LevelError {
		t.Fatalf("expected one ERROR issue, got %v", r.Issues)
	}
}

func TestValidateZeroSentinelIsWarnOnly(t *testing.T) {
	s := newStore(t, goodRoster)
	r := s.ValidateOne("agent-3")
	if len(r.Issues) != 1 {
		t.Fatalf("expected exactly one issue, got %v", r.Issues)
	}
	if r.Issues[0].Level != LevelWarn {
		t.Fatalf("(0,0) must be WARN, got %s", r.Issues[0].Level)
	}
	if r.HasError("agent-3") {
		t.Fatal("(0,0) must never be an ERROR on its own")
	}
}

func TestValidateOutOfRange(t *testing.T) {
	content := `{"agents": {
		"far-x": {"chat_input_coordinates": [10001, 5]},
		"far-y": {"chat_input_coordinates": [5, -10001]},
		"far-both": {"chat_input_coordinates": [20000, -20000]}
	}}`
	s := newStore(t, content)

	for _, id := range []string{"far-x", "far-y"} {
		r := s.ValidateOne(id)
		if !r.HasError(id) {
			t.Fatalf("%s should have an ERROR", id)
		}
		if len(r.Issues) != 1 {
			t.Fatalf("%s: expected one issue per bad axis, got %v", id, r.Issues)
		}
	}

	r := s.ValidateOne("far-both")
	if len(r.Issues) != 2 {
		t.Fatalf("both axes bad should yield two issues, got %v", r.Issues)
	}
}

// Range invariant: an ERROR is produced exactly when an axis leaves the
// configured bounds.
func TestValidateRangeInvariant(t *testing.T) {
	s := New(Config{Path: "unused", Bounds: Bounds{Min: -50, Max: 50}}, logx.Nop())
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		x := rng.Intn(301) - 150
		y := rng.Intn(301) - 150
		out := x < -50 || x > 50 || y < -50 || y > 50

		r := s.validateCoordinate("a", Coordinate{X: x, Y: y})
		if got := r.HasError("a"); got != out {
			t.Fatalf("(%d,%d): HasError = %v, want %v", x, y, got, out)
		}
	}
}

func TestValidateAll(t *testing.T) {
	content := `{"agents": {
		"good-1": {"chat_input_coordinates": [10, 20]},
		"good-2": {"chat_input_coordinates": [30, 40]},
		"zero": {"chat_input_coordinates": [0, 0]},
		"bad": {"chat_input_coordinates": [99999, 1]}
	}}`
	s := newStore(t, content)

	r := s.ValidateAll()
	if r.IsAllOK() {
		t.Fatal("report should carry issues")
	}
	if len(r.OK) != 2 {
		t.Fatalf("OK = %v, want the two good agents", r.OK)
	}

	bad := r.ErrorSet()
	if len(bad) != 1 || !bad["bad"] {
		t.Fatalf("ErrorSet = %v", bad)
	}
	if bad["zero"] {
		t.Fatal("WARN-only agent must not be in the error set")
	}
}

func TestCustomBounds(t *testing.T) {
	content := `{"agents": {"a": {"chat_input_coordinates": [100, 100]}}}`
	s := New(Config{Path: writeRoster(t, content), Bounds: Bounds{Min: -10, Max: 10}}, logx.Nop())
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !s.ValidateOne("a").HasError("a") {
		t.Fatal("custom bounds should flag (100,100)")
	}
}
