package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: memory
  artifacts_dir: /tmp/runs
run:
  strategy: breakout
  version: v3
  symbols: [EURUSD, DAX]
  timeframe_minutes: 5
  start: 2025-01-01T00:00:00Z
  end: 2025-06-30T00:00:00Z
session:
  timezone: Europe/Berlin
  windows:
    - start: "15:00"
      end: "16:00"
execution:
  validity_policy: fixed_minutes
  validity_minutes: 30
  initial_cash: "1000"
  slippage_bps: 10
  commission_bps: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, []string{"EURUSD", "DAX"}, cfg.Run.Symbols)
	assert.Equal(t, "Europe/Berlin", cfg.Session.Timezone)
	assert.Equal(t, "15:00", cfg.Session.Windows[0].Start)
	assert.Equal(t, "fixed_minutes", cfg.Execution.ValidityPolicy)
	assert.Equal(t, int64(10), cfg.Execution.SlippageBps)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
run:
  strategy: breakout
  symbols: [EURUSD]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "runs", cfg.Storage.ArtifactsDir)
	assert.Equal(t, 5, cfg.Run.TimeframeMinutes)
	assert.Equal(t, "one_bar", cfg.Execution.ValidityPolicy)
	assert.Equal(t, "signal_ts", cfg.Execution.ValidFromPolicy)
	assert.Equal(t, "1000", cfg.Execution.InitialCash)
	assert.Equal(t, "market", cfg.Session.Mode)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: memory
run:
  strategy: breakout
  symbols: [EURUSD]
`)

	t.Setenv("BACKTEST_STORAGE_BACKEND", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Storage.Backend)
	assert.Equal(t, "postgres://test", cfg.Storage.PostgresDSN)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "unknown backend",
			content: `
storage:
  backend: sqlite
run:
  symbols: [EURUSD]
`,
			wantErr: "unknown storage backend",
		},
		{
			name: "postgres without dsn",
			content: `
storage:
  backend: postgres
run:
  symbols: [EURUSD]
`,
			wantErr: "requires postgres_dsn",
		},
		{
			name: "no symbols",
			content: `
run:
  strategy: breakout
`,
			wantErr: "at least one symbol",
		},
		{
			name: "unknown validity policy",
			content: `
run:
  symbols: [EURUSD]
execution:
  validity_policy: end_of_week
`,
			wantErr: "unknown validity_policy",
		},
		{
			name: "unknown valid from policy",
			content: `
run:
  symbols: [EURUSD]
execution:
  valid_from_policy: prev_bar_close
`,
			wantErr: "unknown valid_from_policy",
		},
		{
			name: "fixed minutes without duration",
			content: `
run:
  symbols: [EURUSD]
execution:
  validity_policy: fixed_minutes
`,
			wantErr: "positive validity_minutes",
		},
		{
			name: "eod without close time",
			content: `
run:
  symbols: [EURUSD]
execution:
  validity_policy: eod
`,
			wantErr: "requires eod_close",
		},
		{
			name: "eod with malformed close time",
			content: `
run:
  symbols: [EURUSD]
execution:
  validity_policy: eod
  eod_close: "25:99"
`,
			wantErr: "eod_close",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
