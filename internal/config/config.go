package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const maxAggregateWorkers = 256

// Config holds all profiler settings, populated from environment variables.
type Config struct {
	DataDir         string
	ResultDir       string
	TimestampLayout string

	SiteColumn      string
	TimestampColumn string
	ValueColumn     string

	StatsPerDay      bool
	AggregateWorkers int
	ExcelReport      string

	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaOutlierTopic string

	Serve           bool
	HTTPAddr        string
	PushgatewayURL  string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	workers, err := parseWorkers(sharedcfg.EnvOrDefault("AGGREGATE_WORKERS", "4"))
	if err != nil {
		return nil, err
	}

	statsPerDay, err := parseBool("STATS_PER_DAY")
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED")
	if err != nil {
		return nil, err
	}
	serve, err := parseBool("SERVE")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:         sharedcfg.EnvOrDefault("DATA_DIR", "./data"),
		ResultDir:       sharedcfg.EnvOrDefault("RESULT_DIR", "./result"),
		TimestampLayout: sharedcfg.EnvOrDefault("TIMESTAMP_LAYOUT", "2006/01/02 15:04:05"),

		SiteColumn:      sharedcfg.EnvOrDefault("SITE_COLUMN", "Site Name"),
		TimestampColumn: sharedcfg.EnvOrDefault("TIMESTAMP_COLUMN", "Local(yyyy/MM/dd HH:mm:ss)"),
		ValueColumn:     sharedcfg.EnvOrDefault("VALUE_COLUMN", "Sample Value"),

		StatsPerDay:      statsPerDay,
		AggregateWorkers: workers,
		ExcelReport:      sharedcfg.EnvOrDefault("EXCEL_REPORT", ""),

		KafkaEnabled:      kafkaEnabled,
		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaOutlierTopic: sharedcfg.EnvOrDefault("KAFKA_OUTLIER_TOPIC", "level-outliers"),

		Serve:           serve,
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		PushgatewayURL:  sharedcfg.EnvOrDefault("PUSHGATEWAY_URL", ""),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR is required")
	}
	if cfg.ResultDir == "" {
		return nil, errors.New("RESULT_DIR is required")
	}
	if cfg.SiteColumn == "" || cfg.TimestampColumn == "" || cfg.ValueColumn == "" {
		return nil, errors.New("SITE_COLUMN, TIMESTAMP_COLUMN and VALUE_COLUMN must not be empty")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaOutlierTopic == "" {
			return nil, errors.New("KAFKA_OUTLIER_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func parseWorkers(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > maxAggregateWorkers {
		return 0, fmt.Errorf("invalid AGGREGATE_WORKERS %q: must be between 1 and %d", s, maxAggregateWorkers)
	}
	return n, nil
}

func parseBool(key string) (bool, error) {
	s := sharedcfg.EnvOrDefault(key, "false")
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, s)
	}
	return v, nil
}
