package notification

import "github.com/sarkhq/console/pkg/isotime"

// Tone drives how a notification is rendered.
type Tone string

const (
	ToneInfo    Tone = "info"
	ToneSuccess Tone = "success"
	ToneWarning Tone = "warning"
	ToneError   Tone = "error"
)

// Notification is an informational event surfaced to the operator.
type Notification struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Timestamp   isotime.Time `json:"timestamp"`
	Read        bool         `json:"read"`
	Icon        string       `json:"icon,omitempty"`
	Tone        Tone         `json:"tone,omitempty"`
}
