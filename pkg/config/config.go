// Package config defines the tenderflow configuration.
//
// A configuration is built in three layers, later layers winning:
//
//  1. Default() values
//  2. an optional YAML file (Load), with ${VAR} references expanded
//  3. TENDERFLOW_<SECTION>_<KEY> environment variables (ApplyEnv)
//
// Example:
//
//	cfg := config.Default()
//	if err := config.Load("tenderflow.yaml", cfg); err != nil {
//	    return err
//	}
//	if err := config.ApplyEnv("TENDERFLOW_", cfg); err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config

import (
	"fmt"
	"time"

	"github.com/ajitpratap0/tenderflow/pkg/logger"
)

// DefaultBatchSize is the number of records fetched per backend round-trip.
const DefaultBatchSize = 1000

// Config is the root configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Connect ConnectConfig `yaml:"connect" mapstructure:"connect"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Publish PublishConfig `yaml:"publish" mapstructure:"publish"`
	Logging logger.Config `yaml:"logging" mapstructure:"logging"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	// Driver is one of the registered drivers: memory, mongodb, postgres, mysql, sqlite
	Driver string `yaml:"driver" mapstructure:"driver"`
	// URI is the driver specific connection string
	URI string `yaml:"uri" mapstructure:"uri"`
	// Database and Collection are used by the mongodb driver
	Database   string `yaml:"database" mapstructure:"database"`
	Collection string `yaml:"collection" mapstructure:"collection"`
	// Table is used by the SQL drivers
	Table string `yaml:"table" mapstructure:"table"`
	// SeedFile is a JSON array of records loaded into the memory driver
	SeedFile string `yaml:"seed_file" mapstructure:"seed_file"`
}

// ConnectConfig controls connection acquisition.
type ConnectConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxAttempts  int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay" mapstructure:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	MaxConns     int32         `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns     int32         `yaml:"min_conns" mapstructure:"min_conns"`
}

// ExportConfig controls the streaming exporter.
type ExportConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
	Format      string `yaml:"format" mapstructure:"format"`
	Compression string `yaml:"compression" mapstructure:"compression"`
	// ProfileMemory samples process memory after every batch
	ProfileMemory bool `yaml:"profile_memory" mapstructure:"profile_memory"`
}

// PublishConfig controls where finished exports are uploaded.
type PublishConfig struct {
	S3 S3Config `yaml:"s3" mapstructure:"s3"`
}

// S3Config describes the upload bucket. An empty bucket disables publishing.
type S3Config struct {
	Bucket       string `yaml:"bucket" mapstructure:"bucket"`
	Prefix       string `yaml:"prefix" mapstructure:"prefix"`
	Region       string `yaml:"region" mapstructure:"region"`
	Endpoint     string `yaml:"endpoint" mapstructure:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style" mapstructure:"use_path_style"`
}

// Enabled reports whether a bucket is configured.
func (s S3Config) Enabled() bool { return s.Bucket != "" }

// MetricsConfig controls metric output. Metrics are written in the
// Prometheus text format to TextfilePath when a command finishes.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path" mapstructure:"textfile_path"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled"`
	ServiceName string  `yaml:"service_name" mapstructure:"service_name"`
	SampleRate  float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// Default returns a configuration that exports the in-memory store to ./exports.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:     "memory",
			Database:   "tender_db",
			Collection: "tenders",
			Table:      "tenders",
		},
		Connect: ConnectConfig{
			Timeout:      10 * time.Second,
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			MaxConns:     4,
			MinConns:     1,
		},
		Export: ExportConfig{
			Dir:         "exports",
			BatchSize:   DefaultBatchSize,
			Format:      "json",
			Compression: "none",
		},
		Logging: logger.Config{
			Level:    "info",
			Encoding: "json",
		},
		Tracing: TracingConfig{
			ServiceName: "tenderflow",
			SampleRate:  1.0,
		},
	}
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	if c.Store.Driver == "" {
		return fmt.Errorf("store.driver is required")
	}
	if c.Export.BatchSize < 1 {
		return fmt.Errorf("export.batch_size must be at least 1, got %d", c.Export.BatchSize)
	}
	if c.Export.Dir == "" {
		return fmt.Errorf("export.dir is required")
	}
	if c.Connect.MaxAttempts < 1 {
		return fmt.Errorf("connect.max_attempts must be at least 1")
	}
	if c.Connect.Timeout < 0 || c.Connect.InitialDelay < 0 || c.Connect.MaxDelay < 0 {
		return fmt.Errorf("connect durations cannot be negative")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
	}
	return nil
}
