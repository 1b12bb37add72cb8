package model

import "fmt"

// Task status constants
const (
	StatusToDo       = "To Do"
	StatusInProgress = "In Progress"
	StatusDone       = "Done"
)

// Task type constants
const (
	TaskTypeRestocking    = "Restocking"
	TaskTypeInvestigation = "Investigation"
	TaskTypeLayoutChange  = "Layout Change"
	TaskTypePO            = "PO"
	TaskTypeCompliance    = "Compliance"
)

// Priority constants
const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

// Task source constants
const (
	SourceStoreManager = "Store Manager"
	SourceAutonomous   = "Autonomous"
)

// TimestampLayout is the hour:minute display format of task timestamps.
const TimestampLayout = "15:04"

// Task is a unit of committed work. Only Status and the operator flags
// change after creation.
type Task struct {
	ID               string   `json:"id" yaml:"id"`
	Description      string   `json:"description" yaml:"description"`
	Details          string   `json:"details" yaml:"details"`
	Status           string   `json:"status" yaml:"status"`
	Type             string   `json:"type" yaml:"type"`
	Priority         string   `json:"priority" yaml:"priority"`
	Source           string   `json:"source" yaml:"source"`
	Category         Category `json:"category" yaml:"category"`
	Timestamp        string   `json:"timestamp" yaml:"timestamp"`
	Paused           bool     `json:"paused,omitempty" yaml:"paused"`
	PauseReason      string   `json:"pause_reason,omitempty" yaml:"pause_reason"`
	Escalated        bool     `json:"escalated,omitempty" yaml:"escalated"`
	EscalationReason string   `json:"escalation_reason,omitempty" yaml:"escalation_reason"`
}

// TaskFilter holds query parameters for listing tasks.
type TaskFilter struct {
	Status   []string
	Category Category
}

// statusRank orders statuses; a task may only move to a higher rank.
var statusRank = map[string]int{
	StatusToDo:       0,
	StatusInProgress: 1,
	StatusDone:       2,
}

// ValidStatus reports whether s is a known task status.
func ValidStatus(s string) bool {
	_, ok := statusRank[s]
	return ok
}

// ValidateTransition checks that moving from one status to another only
// advances the task.
func ValidateTransition(from, to string) error {
	fr, ok := statusRank[from]
	if !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, from)
	}
	tr, ok := statusRank[to]
	if !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if tr <= fr {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// NextStatus returns the status that follows s, or "" when s is terminal.
func NextStatus(s string) string {
	switch s {
	case StatusToDo:
		return StatusInProgress
	case StatusInProgress:
		return StatusDone
	}
	return ""
}
