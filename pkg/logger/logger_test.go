package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParsesLevelAndFormat(t *testing.T) {
	l := New(LoggingConfig{Level: "debug", Format: "json"})
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	fallback := New(LoggingConfig{Level: "loud"})
	assert.Equal(t, logrus.InfoLevel, fallback.GetLevel())
}

func TestNamedTagsComponent(t *testing.T) {
	base := New(LoggingConfig{Level: "info", Format: "json"})
	var buf bytes.Buffer
	base.SetOutput(&buf)

	named := base.Named("finance")
	named.WithField("account_id", 7).Info("balance adjusted")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "finance", entry["component"])
	assert.Equal(t, "balance adjusted", entry["msg"])
	assert.EqualValues(t, 7, entry["account_id"])
}
