package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarkhq/console/internal/app/storage/kv"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv(FileEnv, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, kv.DriverBolt, cfg.Storage.Driver)
	assert.Equal(t, 3*time.Second, cfg.Simulation.TickInterval)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "console.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  driver: memory
simulation:
  tick_interval: 10s
  flap_probability: 0.5
  replies: ["hey", "later"]
  budget_templates:
    - category: Software
      limit: "250.50"
`), 0o600))
	t.Setenv(FileEnv, path)
	t.Setenv("CONSOLE_SIM_FLAP_PROBABILITY", "0.25")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, kv.DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 10*time.Second, cfg.Simulation.TickInterval)
	assert.Equal(t, 0.25, cfg.Simulation.FlapProbability)
	assert.Equal(t, []string{"hey", "later"}, cfg.Simulation.Replies)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 0.15, cfg.Simulation.ChurnProbability)

	templates, err := cfg.Simulation.Templates()
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "250.5", templates[0].Limit.String())
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv(FileEnv, "")
	t.Setenv("CONSOLE_METRICS_ADDR", "")
	require.NoError(t, os.Unsetenv("CONSOLE_METRICS_ADDR"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CONSOLE_METRICS_ADDR=:9102\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9102", cfg.Metrics.Addr)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Storage.Driver = "etcd"
	cfg.Simulation.IncomeProbability = 1.5
	cfg.Simulation.ReplyDelayMin = 3 * time.Second
	cfg.Simulation.BudgetTemplates = []BudgetTemplate{{Category: "Travel", Limit: "lots"}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.driver")
	assert.Contains(t, err.Error(), "income_probability")
	assert.Contains(t, err.Error(), "reply_delay_min")
	assert.Contains(t, err.Error(), "Travel")

	cfg = Default()
	cfg.Storage.Driver = kv.DriverPostgres
	assert.ErrorContains(t, cfg.Validate(), "postgres_dsn")
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	assert.Error(t, LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), &cfg))
}
