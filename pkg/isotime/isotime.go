// Package isotime provides a time value that always serializes as an
// ISO-8601 UTC timestamp with millisecond precision, e.g.
// 2024-03-01T09:30:00.000Z.
package isotime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// Layout is the wire layout of every persisted timestamp.
const Layout = "2006-01-02T15:04:05.000Z"

// Pattern matches strings produced by Layout.
var Pattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`)

// Time is a millisecond-precision UTC instant.
type Time struct {
	time.Time
}

// Now returns the current instant truncated to milliseconds.
func Now() Time {
	return From(time.Now())
}

// From normalizes t to UTC with millisecond precision.
func From(t time.Time) Time {
	if t.IsZero() {
		return Time{}
	}
	return Time{Time: t.UTC().Truncate(time.Millisecond)}
}

// Ptr returns a pointer to From(t).
func Ptr(t time.Time) *Time {
	v := From(t)
	return &v
}

// Parse reads a timestamp in Layout, falling back to RFC 3339.
func Parse(s string) (Time, error) {
	if Pattern.MatchString(s) {
		t, err := time.Parse(Layout, s)
		if err != nil {
			return Time{}, err
		}
		return From(t), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return From(t), nil
}

// Add returns t+d.
func (t Time) Add(d time.Duration) Time {
	return From(t.Time.Add(d))
}

// String formats t in Layout.
func (t Time) String() string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(Layout)
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(Layout))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*t = Time{}
		return nil
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (t Time) MarshalYAML() (any, error) {
	return t.String(), nil
}
