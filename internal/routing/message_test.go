package routing

import "testing"

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{"LOW", PriorityLow, false},
		{"normal", PriorityNormal, false},
		{"Regular", PriorityNormal, false},
		{" high ", PriorityHigh, false},
		{"URGENT", PriorityUrgent, false},
		{"critical", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePriority(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParsePriority(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParsePriority(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParsePriority(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseMessageType(t *testing.T) {
	if _, err := ParseMessageType("agent_to_agent"); err != nil {
		t.Fatalf("lowercase should parse: %v", err)
	}
	if _, err := ParseMessageType("AGENT_TO_NOWHERE"); err == nil {
		t.Fatal("unknown type should be rejected")
	}
}

func TestParseSenderClass(t *testing.T) {
	got, err := ParseSenderClass("coordinator")
	if err != nil {
		t.Fatalf("ParseSenderClass: %v", err)
	}
	if got != ClassCoordinator {
		t.Fatalf("got %q", got)
	}
	if _, err := ParseSenderClass("robot"); err == nil {
		t.Fatal("unknown class should be rejected")
	}
}

func TestNewMessageFillsID(t *testing.T) {
	a := NewMessage("s", "r", PriorityNormal, TypeAgentToAgent, ClassAgent, "hi")
	b := NewMessage("s", "r", PriorityNormal, TypeAgentToAgent, ClassAgent, "hi")
	if a.ID == "" || b.ID == "" {
		t.Fatal("expected generated IDs")
	}
	if a.ID == b.ID {
		t.Fatal("expected unique IDs")
	}
}
