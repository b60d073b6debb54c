package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultBatchSize, cfg.Export.BatchSize)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.False(t, cfg.Publish.S3.Enabled())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero batch size", func(c *Config) { c.Export.BatchSize = 0 }},
		{"missing driver", func(c *Config) { c.Store.Driver = "" }},
		{"missing dir", func(c *Config) { c.Export.Dir = "" }},
		{"no attempts", func(c *Config) { c.Connect.MaxAttempts = 0 }},
		{"sample rate", func(c *Config) { c.Tracing.SampleRate = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_SubstitutesEnv(t *testing.T) {
	t.Setenv("TF_TEST_URI", "postgres://localhost/tenders")

	path := filepath.Join(t.TempDir(), "tenderflow.yaml")
	content := `
store:
  driver: postgres
  uri: ${TF_TEST_URI}
export:
  batch_size: 250
connect:
  timeout: 3s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := Default()
	require.NoError(t, Load(path, cfg))

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/tenders", cfg.Store.URI)
	assert.Equal(t, 250, cfg.Export.BatchSize)
	assert.Equal(t, 3*time.Second, cfg.Connect.Timeout)
	// untouched defaults survive
	assert.Equal(t, "exports", cfg.Export.Dir)
}

func TestLoad_MissingFile(t *testing.T) {
	err := Load(filepath.Join(t.TempDir(), "absent.yaml"), Default())
	assert.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Store.Table = "procurement"
	require.NoError(t, Save(path, cfg))

	loaded := Default()
	require.NoError(t, Load(path, loaded))
	assert.Equal(t, "procurement", loaded.Store.Table)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TENDERFLOW_STORE_DRIVER", "sqlite")
	t.Setenv("TENDERFLOW_EXPORT_BATCH_SIZE", "42")
	t.Setenv("TENDERFLOW_CONNECT_MAX_DELAY", "2s")
	t.Setenv("TENDERFLOW_PUBLISH_S3_BUCKET", "tender-exports")

	cfg := Default()
	require.NoError(t, ApplyEnv("TENDERFLOW_", cfg))

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 42, cfg.Export.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Connect.MaxDelay)
	assert.Equal(t, "tender-exports", cfg.Publish.S3.Bucket)
	assert.Equal(t, "tenders", cfg.Store.Table)
}
