package managedapp

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sarkhq/console/pkg/isotime"
)

// HistoryLength is the fixed size of the CPU and memory sample windows.
const HistoryLength = 30

// Platform is the kind of workload an app runs.
type Platform string

const (
	PlatformWebApp     Platform = "Web App"
	PlatformAPIService Platform = "API Service"
	PlatformMobileApp  Platform = "Mobile App"
	PlatformDatabase   Platform = "Database"
)

// Status is an app's runtime state.
type Status string

const (
	StatusRunning   Status = "Running"
	StatusStopped   Status = "Stopped"
	StatusDeploying Status = "Deploying"
	StatusError     Status = "Error"
)

var envKeyPattern = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)

// StorageUsage is disk usage in gigabytes. Used is never bounded by Total.
type StorageUsage struct {
	Used  float64 `json:"used"`
	Total float64 `json:"total"`
}

// Resources holds the sliding usage windows of an app.
type Resources struct {
	CPU     []float64    `json:"cpu"`
	Memory  []float64    `json:"memory"`
	Storage StorageUsage `json:"storage"`
}

// Deployment records one deploy attempt.
type Deployment struct {
	ID        string       `json:"id"`
	Version   string       `json:"version"`
	Status    string       `json:"status"`
	Timestamp isotime.Time `json:"timestamp"`
}

// LogEntry is one line of an app's log.
type LogEntry struct {
	Timestamp isotime.Time `json:"timestamp"`
	Level     string       `json:"level"`
	Message   string       `json:"message"`
}

// ManagedApp is a deployable workload tracked by the console.
type ManagedApp struct {
	ID                   int64             `json:"id"`
	Name                 string            `json:"name"`
	Platform             Platform          `json:"platform"`
	Status               Status            `json:"status"`
	Repository           string            `json:"repository"`
	LastDeployed         *isotime.Time     `json:"lastDeployed"`
	Resources            Resources         `json:"resources"`
	EnvironmentVariables map[string]string `json:"environmentVariables"`
	Deployments          []Deployment      `json:"deployments"`
	Logs                 []LogEntry        `json:"logs"`
}

// Input carries the fields accepted when creating an app.
type Input struct {
	Name       string
	Platform   Platform
	Repository string
}

// ParsePlatform validates a platform string.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(strings.TrimSpace(s)) {
	case PlatformWebApp:
		return PlatformWebApp, nil
	case PlatformAPIService:
		return PlatformAPIService, nil
	case PlatformMobileApp:
		return PlatformMobileApp, nil
	case PlatformDatabase:
		return PlatformDatabase, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusRunning, StatusStopped, StatusDeploying, StatusError:
		return true
	}
	return false
}

// DefaultStorageQuota returns the disk quota in gigabytes for a platform.
func DefaultStorageQuota(p Platform) float64 {
	switch p {
	case PlatformDatabase:
		return 100
	case PlatformAPIService:
		return 20
	default:
		return 10
	}
}

// ValidateEnvKey rejects keys that are not upper-case shell identifiers.
func ValidateEnvKey(key string) error {
	if !envKeyPattern.MatchString(key) {
		return fmt.Errorf("invalid environment variable name %q", key)
	}
	return nil
}

// Push appends v to window, dropping the oldest samples so the window stays
// at HistoryLength.
func Push(window []float64, v float64) []float64 {
	out := make([]float64, 0, HistoryLength)
	if len(window) >= HistoryLength {
		window = window[len(window)-HistoryLength+1:]
	}
	out = append(out, window...)
	return append(out, v)
}

// NormalizeWindow pads or trims window to exactly HistoryLength samples.
// Missing leading samples repeat the oldest known value (or zero).
func NormalizeWindow(window []float64) []float64 {
	if len(window) >= HistoryLength {
		out := make([]float64, HistoryLength)
		copy(out, window[len(window)-HistoryLength:])
		return out
	}
	fill := 0.0
	if len(window) > 0 {
		fill = window[0]
	}
	out := make([]float64, HistoryLength-len(window), HistoryLength)
	for i := range out {
		out[i] = fill
	}
	return append(out, window...)
}

// Last returns the newest sample of window.
func Last(window []float64) float64 {
	if len(window) == 0 {
		return 0
	}
	return window[len(window)-1]
}
