package task

import (
	"fmt"
	"strings"

	"github.com/sarkhq/console/pkg/isotime"
)

// Priority orders tasks.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Task is a to-do item.
type Task struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	DueDate     isotime.Time `json:"dueDate"`
	Priority    Priority     `json:"priority"`
	Completed   bool         `json:"completed"`
}

// Input carries the fields accepted when creating a task.
type Input struct {
	Title       string
	Description string
	DueDate     isotime.Time
	Priority    Priority
}

// ParsePriority validates a priority, defaulting blank input to Medium.
func ParsePriority(s string) (Priority, error) {
	switch Priority(strings.TrimSpace(s)) {
	case "", PriorityMedium:
		return PriorityMedium, nil
	case PriorityHigh:
		return PriorityHigh, nil
	case PriorityLow:
		return PriorityLow, nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}
