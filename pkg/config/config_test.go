package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"CONFIG_FILE", "REPORT_WORKERS", "REPORT_MAX_LOCATIONS", "REPORT_ATTRIBUTION",
		"REPORT_FORMAT", "REPORT_JOB_TIMEOUT", "KAFKA_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Report.MaxLocations)
	assert.Equal(t, "segment-start", cfg.Report.Attribution)
	assert.Equal(t, "csv", cfg.Report.Format)
	assert.Equal(t, time.Hour, cfg.Report.JobTimeout)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "host=localhost port=5432 user=store_user password=store_pass dbname=store_monitor sslmode=disable",
		defaultConfig().Database.ConnectionString())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("REPORT_WORKERS", "16")
	t.Setenv("REPORT_QUERY_RATE", "12.5")
	t.Setenv("REPORT_ATTRIBUTION", "clip")
	t.Setenv("REPORT_RUN_TIMEOUT", "90s")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Report.Workers)
	assert.Equal(t, 12.5, cfg.Report.QueryRate)
	assert.Equal(t, "clip", cfg.Report.Attribution)
	assert.Equal(t, 90*time.Second, cfg.Report.RunTimeout)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
report:
  maxLocations: 50
  format: xlsx
  jobTimeout: 10m
http:
  port: 9000
`), 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("REPORT_WORKERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Report.MaxLocations)
	assert.Equal(t, "xlsx", cfg.Report.Format)
	assert.Equal(t, 10*time.Minute, cfg.Report.JobTimeout)
	assert.Equal(t, 9100, cfg.HTTP.Port)
	// untouched keys keep their defaults
	assert.Equal(t, 8, cfg.Report.Workers)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Report.Workers = 0
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = nil
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Kafka.Enabled = true
	cfg.Redis.Enabled = false
	assert.Error(t, cfg.Validate())
}

func TestGetEnvAsInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	assert.Equal(t, 7, getEnvAsInt("SOME_INT", 7))
}
