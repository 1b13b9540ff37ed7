package execution

import "fmt"

// Status represents the lifecycle state of a phase or of a whole run
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "inProgress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is one of the known values
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for completed and failed
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo checks if transition to another status is allowed.
// A completed phase never leaves completed; a failed one may be retried.
func (s Status) CanTransitionTo(next Status) bool {
	validTransitions := map[Status][]Status{
		StatusPending:    {StatusInProgress, StatusFailed},
		StatusInProgress: {StatusCompleted, StatusFailed},
		StatusFailed:     {StatusInProgress},
		StatusCompleted:  {},
	}

	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}

	for _, validNext := range allowed {
		if validNext == next {
			return true
		}
	}

	return false
}

// ParseStatus converts a persisted value into a Status.
// The empty string is read as pending, matching records written by the planner.
func ParseStatus(value string) (Status, error) {
	if value == "" {
		return StatusPending, nil
	}
	s := Status(value)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown status %q", value)
	}
	return s, nil
}
