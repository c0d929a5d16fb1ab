package roster

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	logx "swarmrelay/pkg/logx"
)

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	return path
}

func newStore(t *testing.T, content string) *Store {
	t.Helper()
	s := New(Config{Path: writeRoster(t, content)}, logx.Nop())
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

const goodRoster = `{
  "agents": {
    "agent-1": {"chat_input_coordinates": [100, 200], "role": "captain"},
    "agent-2": {"chat_input_coordinates": [-300, 400]},
    "agent-3": {"chat_input_coordinates": [0, 0]}
  }
}`

func TestLoad(t *testing.T) {
	s := newStore(t, goodRoster)

	ids := s.GetIDs()
	want := []string{"agent-1", "agent-2", "agent-3"}
	if len(ids) != len(want) {
		t.Fatalf("GetIDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("GetIDs() = %v, want %v", ids, want)
		}
	}

	c, err := s.GetCoordinate("agent-2")
	if err != nil {
		t.Fatalf("GetCoordinate: %v", err)
	}
	if c.X != -300 || c.Y != 400 {
		t.Fatalf("coordinate = (%d,%d), want (-300,400)", c.X, c.Y)
	}
	if len(c.Raw) == 0 {
		t.Fatal("expected raw source record to be kept")
	}
}

func TestGetCoordinateNotFound(t *testing.T) {
	s := newStore(t, goodRoster)
	_, err := s.GetCoordinate("ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := New(Config{Path: filepath.Join(t.TempDir(), "missing.json")}, logx.Nop())
	if err := s.Load(); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", `{{`},
		{"missing agents key", `{"other": 1}`},
		{"missing coordinates", `{"agents": {"a": {"role": "x"}}}`},
		{"one element", `{"agents": {"a": {"chat_input_coordinates": [1]}}}`},
		{"three elements", `{"agents": {"a": {"chat_input_coordinates": [1, 2, 3]}}}`},
		{"non numeric", `{"agents": {"a": {"chat_input_coordinates": ["x", 2]}}}`},
		{"float coordinate", `{"agents": {"a": {"chat_input_coordinates": [1.5, 2]}}}`},
		{"trailing data", `{"agents": {}} {"agents": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Config{Path: writeRoster(t, tt.content)}, logx.Nop())
			if err := s.Load(); err == nil {
				t.Fatal("expected load error")
			}
		})
	}
}

func TestFailedReloadKeepsPreviousSnapshot(t *testing.T) {
	path := writeRoster(t, goodRoster)
	s := New(Config{Path: path}, logx.Nop())
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := os.WriteFile(path, []byte(`broken`), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if err := s.Load(); err == nil {
		t.Fatal("expected reload error")
	}

	// Old snapshot must still serve.
	if got := s.Len(); got != 3 {
		t.Fatalf("Len() = %d after failed reload, want 3", got)
	}
	if _, err := s.GetCoordinate("agent-1"); err != nil {
		t.Fatalf("previous snapshot gone: %v", err)
	}
}

func TestReloadReplacesWholesale(t *testing.T) {
	path := writeRoster(t, goodRoster)
	s := New(Config{Path: path}, logx.Nop())
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	next := `{"agents": {"agent-9": {"chat_input_coordinates": [7, 7]}}}`
	if err := os.WriteFile(path, []byte(next), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if err := s.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if got := s.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
	if _, err := s.GetCoordinate("agent-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old agent should be gone, got %v", err)
	}
}
