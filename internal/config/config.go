// Package config loads run configuration from YAML with environment
// variable overrides. Components never read process-wide state; the loaded
// Config is passed explicitly into every constructor.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level run configuration.
type Config struct {
	Storage   Storage   `yaml:"storage"`
	Run       Run       `yaml:"run"`
	Session   Session   `yaml:"session"`
	Execution Execution `yaml:"execution"`
	SLA       SLA       `yaml:"sla"`
}

// Storage selects and parameterizes the bar and record stores.
type Storage struct {
	// Backend is one of: memory, postgres, clickhouse, parquet.
	Backend string `yaml:"backend"`

	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	ParquetDir    string `yaml:"parquet_dir"`

	// ArtifactsDir is the root under which per-run directories are created.
	ArtifactsDir string `yaml:"artifacts_dir"`
}

// Run identifies the strategy and the data range of one backtest.
type Run struct {
	Strategy         string   `yaml:"strategy"`
	Version          string   `yaml:"version"`
	Symbols          []string `yaml:"symbols"`
	TimeframeMinutes int      `yaml:"timeframe_minutes"`
	Start            string   `yaml:"start"` // RFC3339
	End              string   `yaml:"end"`   // RFC3339
	AutoFetch        bool     `yaml:"auto_fetch"`
}

// Session describes trading windows in a named timezone.
type Session struct {
	Timezone string          `yaml:"timezone"`
	Windows  []SessionWindow `yaml:"windows"`
	Mode     string          `yaml:"mode"` // market (default) | display
}

// SessionWindow is one local-time window, e.g. "15:00" to "16:00".
type SessionWindow struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Execution holds validity and cost parameters.
type Execution struct {
	ValidityPolicy  string `yaml:"validity_policy"`
	ValidFromPolicy string `yaml:"valid_from_policy"`
	ValidityMinutes int    `yaml:"validity_minutes"`
	// EodClose is the market close as local "HH:MM" in the session
	// timezone. Required when validity_policy is eod.
	EodClose      string `yaml:"eod_close"`
	InitialCash   string `yaml:"initial_cash"` // decimal string
	FixedQty      int64  `yaml:"fixed_qty"`
	SlippageBps   int64  `yaml:"slippage_bps"`
	CommissionBps int64  `yaml:"commission_bps"`
}

// SLA holds data quality gate parameters.
type SLA struct {
	LookbackBars    int     `yaml:"lookback_bars"`
	CompletenessMin float64 `yaml:"completeness_min"`
}

// Load reads the YAML configuration file at the given path, parses it into
// a Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BACKTEST_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv("BACKTEST_PARQUET_DIR"); v != "" {
		cfg.Storage.ParquetDir = v
	}
	if v := os.Getenv("BACKTEST_ARTIFACTS_DIR"); v != "" {
		cfg.Storage.ArtifactsDir = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Storage.ArtifactsDir == "" {
		cfg.Storage.ArtifactsDir = "runs"
	}
	if cfg.Run.TimeframeMinutes == 0 {
		cfg.Run.TimeframeMinutes = 5
	}
	if cfg.Session.Mode == "" {
		cfg.Session.Mode = "market"
	}
	if cfg.Execution.ValidityPolicy == "" {
		cfg.Execution.ValidityPolicy = "one_bar"
	}
	if cfg.Execution.ValidFromPolicy == "" {
		cfg.Execution.ValidFromPolicy = "signal_ts"
	}
	if cfg.Execution.InitialCash == "" {
		cfg.Execution.InitialCash = "1000"
	}
}

// Validate rejects configurations that cannot produce a run.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "postgres", "clickhouse", "parquet":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("postgres backend requires postgres_dsn")
	}
	if c.Storage.Backend == "clickhouse" && c.Storage.ClickhouseDSN == "" {
		return fmt.Errorf("clickhouse backend requires clickhouse_dsn")
	}
	if len(c.Run.Symbols) == 0 {
		return fmt.Errorf("run requires at least one symbol")
	}
	if c.Run.TimeframeMinutes <= 0 {
		return fmt.Errorf("timeframe_minutes must be positive")
	}
	switch c.Execution.ValidityPolicy {
	case "one_bar", "session_end", "fixed_minutes", "eod", "good_till_cancel":
	default:
		return fmt.Errorf("unknown validity_policy %q", c.Execution.ValidityPolicy)
	}
	switch c.Execution.ValidFromPolicy {
	case "signal_ts", "next_bar_open":
	default:
		return fmt.Errorf("unknown valid_from_policy %q", c.Execution.ValidFromPolicy)
	}
	if c.Execution.ValidityPolicy == "fixed_minutes" && c.Execution.ValidityMinutes <= 0 {
		return fmt.Errorf("validity_policy fixed_minutes requires positive validity_minutes")
	}
	if c.Execution.ValidityPolicy == "eod" {
		if c.Execution.EodClose == "" {
			return fmt.Errorf("validity_policy eod requires eod_close")
		}
		if _, err := parseClockTime(c.Execution.EodClose); err != nil {
			return fmt.Errorf("eod_close: %w", err)
		}
	}
	return nil
}
