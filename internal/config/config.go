package config

import (
	"fmt"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	"order-analysis/internal/export"
	"order-analysis/internal/report"
	"order-analysis/internal/source"
)

// Config holds all server configuration
type Config struct {
	// Server configuration
	ServerPort      string
	ServerHost      string
	ShutdownTimeout time.Duration

	// AdminAPIKey guards the mutating admin routes when set
	AdminAPIKey string

	// Database configuration
	DBPath string

	// Logging
	LogLevel string

	// Order source
	SourceKind string
	Metabase   source.MetabaseConfig
	Sheets     source.SheetsConfig
	Postgres   source.PostgresConfig
	CSV        source.CSVConfig
	Sample     source.SampleConfig

	// Snapshot cache
	CacheTTL     time.Duration
	DisableCache bool

	// Report enumerations and constants
	Hubs                       []string
	Customers                  []string
	Buckets                    []report.Bucket
	BacklogCutoff              time.Duration
	Location                   *time.Location
	DateFilterDriverExceptions bool

	// Export destinations
	ExportDir    string
	S3Bucket     string
	S3Region     string
	S3Prefix     string
	S3Endpoint   string
	ChromePath   string
	ExportTables []string

	// Scheduled snapshots
	SnapshotEnabled  bool
	SnapshotSchedule string
	SnapshotFormats  []string
	RunRetention     time.Duration
}

var validLogLevels = []string{"debug", "info", "warn", "error"}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if _, err := strconv.Atoi(c.ServerPort); err != nil {
		return fmt.Errorf("invalid server port: %s", c.ServerPort)
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	if c.DBPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if !contains(source.Kinds, c.SourceKind) {
		return fmt.Errorf("invalid source kind: %s (must be one of: %v)", c.SourceKind, source.Kinds)
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}

	if err := c.ReportConfig().Validate(); err != nil {
		return err
	}

	for _, format := range c.SnapshotFormats {
		if _, err := export.NewWriter(format, export.Options{}); err != nil {
			return err
		}
	}
	for _, table := range c.ExportTables {
		if !contains(export.TableNames, table) {
			return fmt.Errorf("invalid export table: %s", table)
		}
	}
	if c.SnapshotEnabled {
		if _, err := cron.ParseStandard(c.SnapshotSchedule); err != nil {
			return fmt.Errorf("invalid snapshot schedule %q: %w", c.SnapshotSchedule, err)
		}
	}
	if c.RunRetention < 0 {
		return fmt.Errorf("run retention must not be negative")
	}

	return nil
}

// Address returns the full server address
func (c *Config) Address() string {
	return c.ServerHost + ":" + c.ServerPort
}

// ReportConfig builds the aggregation configuration. Empty lists fall back to
// the production enumerations.
func (c *Config) ReportConfig() *report.Config {
	cfg := report.DefaultConfig()
	if len(c.Hubs) > 0 {
		cfg.Hubs = append([]string(nil), c.Hubs...)
	}
	if len(c.Customers) > 0 {
		cfg.Customers = append([]string(nil), c.Customers...)
	}
	if len(c.Buckets) > 0 {
		cfg.Buckets = append([]report.Bucket(nil), c.Buckets...)
	}
	if c.BacklogCutoff > 0 {
		cfg.BacklogCutoff = c.BacklogCutoff
	}
	if c.Location != nil {
		cfg.Location = c.Location
	}
	cfg.DateFilterDriverExceptions = c.DateFilterDriverExceptions
	return cfg
}

// SourceConfig builds the order source configuration.
func (c *Config) SourceConfig() source.Config {
	rc := c.ReportConfig()
	sample := c.Sample
	if len(sample.Hubs) == 0 {
		sample.Hubs = rc.Hubs
	}
	if len(sample.Customers) == 0 {
		sample.Customers = rc.Customers
	}
	return source.Config{
		Kind:     c.SourceKind,
		Location: rc.Location,
		Metabase: c.Metabase,
		Sheets:   c.Sheets,
		Postgres: c.Postgres,
		CSV:      c.CSV,
		Sample:   sample,
	}
}

// S3Config returns the S3 export destination, or nil when exports stay local.
func (c *Config) S3Config() *export.S3Config {
	if c.S3Bucket == "" {
		return nil
	}
	return &export.S3Config{
		Bucket:   c.S3Bucket,
		Region:   c.S3Region,
		Prefix:   c.S3Prefix,
		Endpoint: c.S3Endpoint,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
