package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, BillingModelProration, cfg.Billing.Model)
	assert.Equal(t, "UTC", cfg.Billing.Timezone)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 5, cfg.Registration.BatchSize)
	assert.Equal(t, "statement_jobs", cfg.Queue.StatementQueue)
	assert.Equal(t, 3, cfg.Cron.AlertDaysBefore)
}

func TestLoad_MergesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
server:
  port: 9090
billing:
  model: usage
  tax_rate: 0.1
database:
  driver: sqlite
  database: powerplan.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, BillingModelUsage, cfg.Billing.Model)
	assert.InDelta(t, 0.1, cfg.Billing.TaxRate, 1e-9)
	assert.InDelta(t, 0.12, cfg.Billing.RatePerKwh, 1e-9)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_PrefersLocalConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", "jwt:\n  secret: public\n")
	writeConfig(t, dir, "config.local.yaml", "jwt:\n  secret: local-secret\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "local-secret", cfg.JWT.Secret)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", "jwt:\n  secret: from-file\n")
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Default().Validate())

	cases := map[string]func(*Config){
		"billing.model":         func(c *Config) { c.Billing.Model = "flat" },
		"billing.days_in_month": func(c *Config) { c.Billing.DaysInMonth = 0 },
		"billing.tax_rate":      func(c *Config) { c.Billing.TaxRate = 1.5 },
		"storage.backend":       func(c *Config) { c.Storage.Backend = "ftp" },
		"queue.max_workers":     func(c *Config) { c.Queue.MaxWorkers = 0 },
		"jwt.secret":            func(c *Config) { c.Server.Mode = "release" },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), field)
		})
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "billing:\n  model: flat\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "billing.model")
}
