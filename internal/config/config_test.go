package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "./result", cfg.ResultDir)
	assert.Equal(t, "2006/01/02 15:04:05", cfg.TimestampLayout)
	assert.Equal(t, "Site Name", cfg.SiteColumn)
	assert.Equal(t, "Local(yyyy/MM/dd HH:mm:ss)", cfg.TimestampColumn)
	assert.Equal(t, "Sample Value", cfg.ValueColumn)
	assert.False(t, cfg.StatsPerDay)
	assert.Equal(t, 4, cfg.AggregateWorkers)
	assert.Empty(t, cfg.ExcelReport)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "level-outliers", cfg.KafkaOutlierTopic)
	assert.False(t, cfg.Serve)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.PushgatewayURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/level/data")
	t.Setenv("RESULT_DIR", "/srv/level/result")
	t.Setenv("TIMESTAMP_LAYOUT", "2006-01-02T15:04:05")
	t.Setenv("SITE_COLUMN", "site")
	t.Setenv("TIMESTAMP_COLUMN", "ts")
	t.Setenv("VALUE_COLUMN", "level")
	t.Setenv("STATS_PER_DAY", "true")
	t.Setenv("AGGREGATE_WORKERS", "16")
	t.Setenv("EXCEL_REPORT", "/srv/level/report.xlsx")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_OUTLIER_TOPIC", "custom-outliers")
	t.Setenv("SERVE", "1")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("PUSHGATEWAY_URL", "http://pushgateway:9091")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/level/data", cfg.DataDir)
	assert.Equal(t, "/srv/level/result", cfg.ResultDir)
	assert.Equal(t, "2006-01-02T15:04:05", cfg.TimestampLayout)
	assert.Equal(t, "site", cfg.SiteColumn)
	assert.Equal(t, "ts", cfg.TimestampColumn)
	assert.Equal(t, "level", cfg.ValueColumn)
	assert.True(t, cfg.StatsPerDay)
	assert.Equal(t, 16, cfg.AggregateWorkers)
	assert.Equal(t, "/srv/level/report.xlsx", cfg.ExcelReport)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-outliers", cfg.KafkaOutlierTopic)
	assert.True(t, cfg.Serve)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "http://pushgateway:9091", cfg.PushgatewayURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidAggregateWorkers(t *testing.T) {
	for _, v := range []string{"0", "-3", "257", "many"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("AGGREGATE_WORKERS", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "AGGREGATE_WORKERS")
		})
	}
}

func TestLoad_InvalidBool(t *testing.T) {
	for _, key := range []string{"STATS_PER_DAY", "KAFKA_ENABLED", "SERVE"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, "maybe")
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}
