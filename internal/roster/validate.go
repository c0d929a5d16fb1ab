package roster

import "fmt"

// IssueLevel separates "delivery must not happen" from "worth a look".
type IssueLevel string

const (
	LevelWarn  IssueLevel = "WARN"
	LevelError IssueLevel = "ERROR"
)

// ValidationIssue is one finding about one agent. ERROR blocks delivery to
// that agent; WARN is informational only.
type ValidationIssue struct {
	AgentID string
	Level   IssueLevel
	Message string
}

// ValidationReport is the derived result of validating one or more agents.
// It is recomputed on demand, never stored.
type ValidationReport struct {
	OK     []string
	Issues []ValidationIssue
}

// IsAllOK reports whether validation produced no issues at all.
func (r ValidationReport) IsAllOK() bool { return len(r.Issues) == 0 }

// HasError reports whether the given agent has at least one ERROR issue.
func (r ValidationReport) HasError(agentID string) bool {
	for _, is := range r.Issues {
		if is.AgentID == agentID && is.Level == LevelError {
			return true
		}
	}
	return false
}

// ErrorSet returns the agents that must not receive deliveries.
func (r ValidationReport) ErrorSet() map[string]bool {
	bad := map[string]bool{}
	for _, is := range r.Issues {
		if is.Level == LevelError {
			bad[is.AgentID] = true
		}
	}
	return bad
}

// ValidateOne checks a single agent's deliverability.
//
// An unknown agent is one ERROR issue. A known agent gets a WARN when its
// coordinate is the (0,0) unconfigured sentinel, and an ERROR per axis that
// falls outside the configured bounds. No issues puts it in OK.
func (s *Store) ValidateOne(id string) ValidationReport {
	coord, err := s.GetCoordinate(id)
	if err != nil {
		return ValidationReport{Issues: []ValidationIssue{{
			AgentID: id,
			Level:   LevelError,
			Message: err.Error(),
		}}}
	}
	return s.validateCoordinate(id, coord)
}

// ValidateAll checks every known agent in one pass.
func (s *Store) ValidateAll() ValidationReport {
	var out ValidationReport
	for _, id := range s.GetIDs() {
		r := s.ValidateOne(id)
		out.OK = append(out.OK, r.OK...)
		out.Issues = append(out.Issues, r.Issues...)
	}
	return out
}

func (s *Store) validateCoordinate(id string, coord Coordinate) ValidationReport {
	b := s.cfg.Bounds
	var issues []ValidationIssue

	if coord.IsZero() {
		issues = append(issues, ValidationIssue{
			AgentID: id,
			Level:   LevelWarn,
			Message: "coordinate is (0,0); agent was likely never configured",
		})
	}
	if coord.X < b.Min || coord.X > b.Max {
		issues = append(issues, ValidationIssue{
			AgentID: id,
			Level:   LevelError,
			Message: fmt.Sprintf("x=%d outside [%d, %d]", coord.X, b.Min, b.Max),
		})
	}
	if coord.Y < b.Min || coord.Y > b.Max {
		issues = append(issues, ValidationIssue{
			AgentID: id,
			Level:   LevelError,
			Message: fmt.Sprintf("y=%d outside [%d, %d]", coord.Y, b.Min, b.Max),
		})
	}

	if len(issues) > 0 {
		return ValidationReport{Issues: issues}
	}
	return ValidationReport{OK: []string{id}}
}
