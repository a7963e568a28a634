// Package config loads console configuration. Values come from built-in
// defaults, an optional YAML file named by CONSOLE_CONFIG_FILE and the
// environment (optionally seeded from a .env file), in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/sarkhq/console/internal/app/domain/finance"
	"github.com/sarkhq/console/internal/app/storage/kv"
	"github.com/sarkhq/console/pkg/logger"
)

// FileEnv names the environment variable pointing at the YAML file.
const FileEnv = "CONSOLE_CONFIG_FILE"

// Config is the full console configuration.
type Config struct {
	Logging    logger.LoggingConfig `yaml:"logging"`
	Storage    StorageConfig        `yaml:"storage"`
	Metrics    MetricsConfig        `yaml:"metrics"`
	APIKeys    APIKeyConfig         `yaml:"api_keys"`
	Simulation SimulationConfig     `yaml:"simulation"`
}

// StorageConfig selects and tunes the persistence backend.
type StorageConfig struct {
	Driver        string  `yaml:"driver" env:"CONSOLE_STORAGE_DRIVER"`
	Path          string  `yaml:"path" env:"CONSOLE_STORAGE_PATH"`
	RedisAddr     string  `yaml:"redis_addr" env:"CONSOLE_REDIS_ADDR"`
	RedisPassword string  `yaml:"redis_password" env:"CONSOLE_REDIS_PASSWORD"`
	RedisDB       int     `yaml:"redis_db" env:"CONSOLE_REDIS_DB"`
	Prefix        string  `yaml:"prefix" env:"CONSOLE_STORAGE_PREFIX"`
	PostgresDSN   string  `yaml:"postgres_dsn" env:"CONSOLE_POSTGRES_DSN"`
	WriteRate     float64 `yaml:"write_rate" env:"CONSOLE_WRITE_RATE"`
	WriteBurst    int     `yaml:"write_burst" env:"CONSOLE_WRITE_BURST"`
}

// MetricsConfig controls the Prometheus listener. An empty address disables
// it.
type MetricsConfig struct {
	Addr string `yaml:"addr" env:"CONSOLE_METRICS_ADDR"`
}

// APIKeyConfig tunes API key hashing.
type APIKeyConfig struct {
	HashCost int `yaml:"hash_cost" env:"CONSOLE_APIKEY_HASH_COST"`
}

// SimulationConfig holds every simulated delay and probability.
type SimulationConfig struct {
	Seed              uint64        `yaml:"seed" env:"CONSOLE_SIM_SEED"`
	TickInterval      time.Duration `yaml:"tick_interval" env:"CONSOLE_SIM_TICK_INTERVAL"`
	IncomeProbability float64       `yaml:"income_probability" env:"CONSOLE_SIM_INCOME_PROBABILITY"`
	IncomeMax         float64       `yaml:"income_max" env:"CONSOLE_SIM_INCOME_MAX"`
	IncomeAccount     string        `yaml:"income_account" env:"CONSOLE_SIM_INCOME_ACCOUNT"`
	FlapProbability   float64       `yaml:"flap_probability" env:"CONSOLE_SIM_FLAP_PROBABILITY"`
	FlapRevertAfter   time.Duration `yaml:"flap_revert_after" env:"CONSOLE_SIM_FLAP_REVERT_AFTER"`
	ChurnProbability  float64       `yaml:"churn_probability" env:"CONSOLE_SIM_CHURN_PROBABILITY"`
	DeployDuration    time.Duration `yaml:"deploy_duration" env:"CONSOLE_SIM_DEPLOY_DURATION"`
	VerifyDelay       time.Duration `yaml:"verify_delay" env:"CONSOLE_SIM_VERIFY_DELAY"`
	VerifySuccessRate float64       `yaml:"verify_success_rate" env:"CONSOLE_SIM_VERIFY_SUCCESS_RATE"`
	ReplyDelayMin     time.Duration `yaml:"reply_delay_min" env:"CONSOLE_SIM_REPLY_DELAY_MIN"`
	ReplyDelayMax     time.Duration `yaml:"reply_delay_max" env:"CONSOLE_SIM_REPLY_DELAY_MAX"`
	Replies           []string      `yaml:"replies" env:"CONSOLE_SIM_REPLIES"`
	ResetDelay        time.Duration `yaml:"reset_delay" env:"CONSOLE_SIM_RESET_DELAY"`

	// BudgetTemplates overrides the seeded dashboard templates. File only.
	BudgetTemplates []BudgetTemplate `yaml:"budget_templates"`
}

// BudgetTemplate is a dashboard budget category with its monthly limit.
type BudgetTemplate struct {
	Category string `yaml:"category"`
	Limit    string `yaml:"limit"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Logging: logger.LoggingConfig{Level: "info", Format: "text", Output: "stdout", FilePrefix: "console"},
		Storage: StorageConfig{
			Driver:     kv.DriverBolt,
			Path:       "console.db",
			RedisAddr:  "localhost:6379",
			Prefix:     "console:",
			WriteRate:  50,
			WriteBurst: 10,
		},
		APIKeys: APIKeyConfig{HashCost: 10},
		Simulation: SimulationConfig{
			TickInterval:      3 * time.Second,
			IncomeProbability: 0.2,
			IncomeMax:         5,
			IncomeAccount:     "Checking Account",
			FlapProbability:   0.1,
			FlapRevertAfter:   5 * time.Second,
			ChurnProbability:  0.15,
			DeployDuration:    4 * time.Second,
			VerifyDelay:       2500 * time.Millisecond,
			VerifySuccessRate: 0.7,
			ReplyDelayMin:     1500 * time.Millisecond,
			ReplyDelayMax:     2500 * time.Millisecond,
			ResetDelay:        time.Second,
		},
	}
}

// Load builds the configuration. A missing .env file is not an error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Validate reports every problem found, joined.
func (c Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case kv.DriverMemory, kv.DriverBolt, kv.DriverRedis, kv.DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is unknown", c.Storage.Driver))
	}
	if c.Storage.Driver == kv.DriverBolt && strings.TrimSpace(c.Storage.Path) == "" {
		errs = append(errs, fmt.Errorf("storage.path is required for bolt"))
	}
	if c.Storage.Driver == kv.DriverRedis && strings.TrimSpace(c.Storage.RedisAddr) == "" {
		errs = append(errs, fmt.Errorf("storage.redis_addr is required for redis"))
	}
	if c.Storage.Driver == kv.DriverPostgres && strings.TrimSpace(c.Storage.PostgresDSN) == "" {
		errs = append(errs, fmt.Errorf("storage.postgres_dsn is required for postgres"))
	}
	if c.Storage.WriteRate < 0 || c.Storage.WriteBurst < 0 {
		errs = append(errs, fmt.Errorf("storage write rate and burst must not be negative"))
	}

	sim := c.Simulation
	for name, p := range map[string]float64{
		"income_probability":  sim.IncomeProbability,
		"flap_probability":    sim.FlapProbability,
		"churn_probability":   sim.ChurnProbability,
		"verify_success_rate": sim.VerifySuccessRate,
	} {
		if p < 0 || p > 1 {
			errs = append(errs, fmt.Errorf("simulation.%s must be within [0,1], got %v", name, p))
		}
	}
	if sim.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("simulation.tick_interval must be positive"))
	}
	if sim.ReplyDelayMin > sim.ReplyDelayMax {
		errs = append(errs, fmt.Errorf("simulation.reply_delay_min must not exceed reply_delay_max"))
	}
	if _, err := sim.Templates(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Templates parses the configured budget templates. Nil means none were
// configured.
func (s SimulationConfig) Templates() ([]finance.BudgetTemplate, error) {
	if len(s.BudgetTemplates) == 0 {
		return nil, nil
	}
	out := make([]finance.BudgetTemplate, 0, len(s.BudgetTemplates))
	for _, t := range s.BudgetTemplates {
		category := strings.TrimSpace(t.Category)
		if category == "" {
			return nil, fmt.Errorf("simulation.budget_templates: category is required")
		}
		limit, err := decimal.NewFromString(strings.TrimSpace(t.Limit))
		if err != nil {
			return nil, fmt.Errorf("simulation.budget_templates %s: limit: %w", category, err)
		}
		out = append(out, finance.BudgetTemplate{Category: category, Limit: limit})
	}
	return out, nil
}
