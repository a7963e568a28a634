// Package logger provides the structured logger shared by every console
// component. It is a thin layer over logrus that fixes the output format and
// tags entries with the emitting component.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LoggingConfig controls logger construction.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	Format     string `yaml:"format" env:"LOG_FORMAT"`
	Output     string `yaml:"output" env:"LOG_OUTPUT"`
	FilePrefix string `yaml:"file_prefix" env:"LOG_FILE_PREFIX"`
}

// Logger wraps logrus.Logger so callers get the full logrus API.
type Logger struct {
	*logrus.Logger
}

// New builds a logger from configuration. Unknown levels fall back to info
// and an unusable log file falls back to stdout.
func New(cfg LoggingConfig) *Logger {
	base := logrus.New()

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	default:
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	out, err := openOutput(cfg)
	if err != nil {
		base.SetOutput(os.Stdout)
		base.WithError(err).Warn("log output unavailable, using stdout")
	} else {
		base.SetOutput(out)
	}

	return &Logger{Logger: base}
}

// NewDefault returns an info-level text logger tagged with component.
func NewDefault(component string) *Logger {
	l := New(LoggingConfig{Level: "info", Format: "text", Output: "stdout"})
	if component != "" {
		l.AddHook(componentHook{name: component})
	}
	return l
}

// NewNop returns a logger that discards everything. Handy in tests.
func NewNop() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return &Logger{Logger: base}
}

// Named returns a logger sharing this logger's configuration whose entries
// carry the given component name.
func (l *Logger) Named(component string) *Logger {
	if l == nil {
		return NewDefault(component)
	}
	clone := logrus.New()
	clone.SetLevel(l.GetLevel())
	clone.SetFormatter(l.Formatter)
	clone.SetOutput(l.Out)
	clone.ReportCaller = l.ReportCaller
	for level, hooks := range l.Hooks {
		for _, h := range hooks {
			if _, ok := h.(componentHook); ok {
				continue
			}
			clone.Hooks[level] = append(clone.Hooks[level], h)
		}
	}
	clone.AddHook(componentHook{name: component})
	return &Logger{Logger: clone}
}

func openOutput(cfg LoggingConfig) (io.Writer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "file":
		prefix := strings.TrimSpace(cfg.FilePrefix)
		if prefix == "" {
			prefix = "console"
		}
		name := fmt.Sprintf("%s-%s.log", prefix, time.Now().UTC().Format("20060102"))
		return os.OpenFile(filepath.Clean(name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	default:
		return nil, fmt.Errorf("unsupported log output %q", cfg.Output)
	}
}

type componentHook struct {
	name string
}

func (h componentHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h componentHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["component"]; !ok {
		entry.Data["component"] = h.name
	}
	return nil
}
