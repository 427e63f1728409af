package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"order-analysis/internal/orders"
	"order-analysis/internal/report"
	"order-analysis/internal/source"
)

// EnvPrefix prefixes every environment variable the service reads.
const EnvPrefix = "ORDER_REPORT"

// LoadServerConfigWithViper loads server configuration using Viper
func LoadServerConfigWithViper(v *viper.Viper) (*Config, error) {
	setServerDefaults(v)
	setupServerEnvBinding(v)

	if err := loadConfigFile(v, "config"); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	config := &Config{}
	if err := unmarshalServerConfig(v, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setServerDefaults sets default values for server configuration
func setServerDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.path", "./order-analysis.db")

	v.SetDefault("logging.level", "info")

	// Order source defaults
	v.SetDefault("source.kind", source.KindMetabase)
	v.SetDefault("source.metabase.card_id", 0)
	v.SetDefault("source.metabase.timeout", "60s")
	v.SetDefault("source.metabase.retry_count", 3)
	v.SetDefault("source.metabase.retry_delay", "1s")
	v.SetDefault("source.metabase.backoff_factor", 2.0)
	v.SetDefault("source.sheets.range", "Sheet1")
	v.SetDefault("source.postgres.query", source.DefaultPostgresQuery)
	v.SetDefault("source.csv.delimiter", ",")
	v.SetDefault("source.sample.seed", 1)
	v.SetDefault("source.sample.orders", 500)
	v.SetDefault("source.sample.drivers_per_hub", 8)

	// Cache defaults
	v.SetDefault("cache.ttl", "15m")
	v.SetDefault("cache.disabled", false)

	// Report defaults
	v.SetDefault("report.backlog_cutoff", "15h")
	v.SetDefault("report.location", report.DefaultLocation)
	v.SetDefault("report.date_filter_driver_exceptions", false)

	// Export defaults
	v.SetDefault("export.dir", "./exports")
	v.SetDefault("export.s3.region", "ap-south-1")

	// Snapshot defaults
	v.SetDefault("snapshot.enabled", false)
	v.SetDefault("snapshot.schedule", "0 20 * * *")
	v.SetDefault("snapshot.formats", []string{"csv"})
	v.SetDefault("snapshot.run_retention", "720h")
}

// setupServerEnvBinding sets up environment variable binding for server configuration
func setupServerEnvBinding(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	envBindings := map[string]string{
		"server.port":                          "SERVER_PORT",
		"server.host":                          "SERVER_HOST",
		"server.shutdown_timeout":              "SERVER_SHUTDOWN_TIMEOUT",
		"admin.api_key":                        "ADMIN_API_KEY",
		"database.path":                        "DATABASE_PATH",
		"logging.level":                        "LOGGING_LEVEL",
		"source.kind":                          "SOURCE_KIND",
		"source.metabase.url":                  "METABASE_URL",
		"source.metabase.username":             "METABASE_USERNAME",
		"source.metabase.password":             "METABASE_PASSWORD",
		"source.metabase.card_id":              "METABASE_CARD_ID",
		"source.metabase.timeout":              "METABASE_TIMEOUT",
		"source.metabase.retry_count":          "METABASE_RETRY_COUNT",
		"source.metabase.retry_delay":          "METABASE_RETRY_DELAY",
		"source.metabase.backoff_factor":       "METABASE_BACKOFF_FACTOR",
		"source.sheets.spreadsheet_id":         "SHEETS_SPREADSHEET_ID",
		"source.sheets.range":                  "SHEETS_RANGE",
		"source.sheets.client_id":              "SHEETS_CLIENT_ID",
		"source.sheets.client_secret":          "SHEETS_CLIENT_SECRET",
		"source.sheets.refresh_token":          "SHEETS_REFRESH_TOKEN",
		"source.sheets.credentials_file":       "SHEETS_CREDENTIALS_FILE",
		"source.postgres.dsn":                  "POSTGRES_DSN",
		"source.postgres.query":                "POSTGRES_QUERY",
		"source.csv.path":                      "CSV_PATH",
		"source.csv.delimiter":                 "CSV_DELIMITER",
		"source.sample.seed":                   "SAMPLE_SEED",
		"source.sample.orders":                 "SAMPLE_ORDERS",
		"source.sample.drivers_per_hub":        "SAMPLE_DRIVERS_PER_HUB",
		"source.sample.date":                   "SAMPLE_DATE",
		"cache.ttl":                            "CACHE_TTL",
		"cache.disabled":                       "CACHE_DISABLED",
		"report.hubs":                          "REPORT_HUBS",
		"report.customers":                     "REPORT_CUSTOMERS",
		"report.backlog_cutoff":                "REPORT_BACKLOG_CUTOFF",
		"report.location":                      "REPORT_LOCATION",
		"report.date_filter_driver_exceptions": "REPORT_DATE_FILTER_DRIVER_EXCEPTIONS",
		"export.dir":                           "EXPORT_DIR",
		"export.tables":                        "EXPORT_TABLES",
		"export.chrome_path":                   "EXPORT_CHROME_PATH",
		"export.s3.bucket":                     "EXPORT_S3_BUCKET",
		"export.s3.region":                     "EXPORT_S3_REGION",
		"export.s3.prefix":                     "EXPORT_S3_PREFIX",
		"export.s3.endpoint":                   "EXPORT_S3_ENDPOINT",
		"snapshot.enabled":                     "SNAPSHOT_ENABLED",
		"snapshot.schedule":                    "SNAPSHOT_SCHEDULE",
		"snapshot.formats":                     "SNAPSHOT_FORMATS",
		"snapshot.run_retention":               "SNAPSHOT_RUN_RETENTION",
	}

	for configKey, envSuffix := range envBindings {
		v.BindEnv(configKey, EnvPrefix+"_"+envSuffix)
	}
}

// unmarshalServerConfig unmarshals Viper configuration into Config struct
func unmarshalServerConfig(v *viper.Viper, config *Config) error {
	config.ServerPort = v.GetString("server.port")
	config.ServerHost = v.GetString("server.host")
	config.DBPath = v.GetString("database.path")
	config.LogLevel = v.GetString("logging.level")
	config.AdminAPIKey = v.GetString("admin.api_key")

	var err error
	config.ShutdownTimeout, err = time.ParseDuration(v.GetString("server.shutdown_timeout"))
	if err != nil {
		return fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	// Source
	config.SourceKind = v.GetString("source.kind")
	config.Metabase = source.MetabaseConfig{
		URL:           v.GetString("source.metabase.url"),
		Username:      v.GetString("source.metabase.username"),
		Password:      v.GetString("source.metabase.password"),
		CardID:        v.GetInt("source.metabase.card_id"),
		RetryCount:    v.GetInt("source.metabase.retry_count"),
		BackoffFactor: v.GetFloat64("source.metabase.backoff_factor"),
	}
	config.Metabase.Timeout, err = time.ParseDuration(v.GetString("source.metabase.timeout"))
	if err != nil {
		return fmt.Errorf("invalid metabase timeout: %w", err)
	}
	config.Metabase.RetryDelay, err = time.ParseDuration(v.GetString("source.metabase.retry_delay"))
	if err != nil {
		return fmt.Errorf("invalid metabase retry delay: %w", err)
	}

	config.Sheets = source.SheetsConfig{
		SpreadsheetID:   v.GetString("source.sheets.spreadsheet_id"),
		Range:           v.GetString("source.sheets.range"),
		ClientID:        v.GetString("source.sheets.client_id"),
		ClientSecret:    v.GetString("source.sheets.client_secret"),
		RefreshToken:    v.GetString("source.sheets.refresh_token"),
		CredentialsFile: v.GetString("source.sheets.credentials_file"),
	}
	config.Postgres = source.PostgresConfig{
		DSN:   v.GetString("source.postgres.dsn"),
		Query: v.GetString("source.postgres.query"),
	}
	config.CSV = source.CSVConfig{
		Path:      v.GetString("source.csv.path"),
		Delimiter: v.GetString("source.csv.delimiter"),
	}
	config.Sample = source.SampleConfig{
		Seed:          v.GetInt64("source.sample.seed"),
		Orders:        v.GetInt("source.sample.orders"),
		DriversPerHub: v.GetInt("source.sample.drivers_per_hub"),
	}
	if s := v.GetString("source.sample.date"); s != "" {
		if config.Sample.Date, err = orders.ParseDate(s); err != nil {
			return fmt.Errorf("invalid sample date: %w", err)
		}
	}

	// Cache
	config.CacheTTL, err = time.ParseDuration(v.GetString("cache.ttl"))
	if err != nil {
		return fmt.Errorf("invalid cache TTL: %w", err)
	}
	config.DisableCache = v.GetBool("cache.disabled")

	// Report
	config.Hubs = getList(v, "report.hubs")
	config.Customers = getList(v, "report.customers")
	if err := v.UnmarshalKey("report.buckets", &config.Buckets); err != nil {
		return fmt.Errorf("invalid report buckets: %w", err)
	}
	config.BacklogCutoff, err = time.ParseDuration(v.GetString("report.backlog_cutoff"))
	if err != nil {
		return fmt.Errorf("invalid backlog cutoff: %w", err)
	}
	config.Location, err = time.LoadLocation(v.GetString("report.location"))
	if err != nil {
		return fmt.Errorf("invalid report location: %w", err)
	}
	config.DateFilterDriverExceptions = v.GetBool("report.date_filter_driver_exceptions")

	// Export
	config.ExportDir = v.GetString("export.dir")
	config.ExportTables = getList(v, "export.tables")
	config.ChromePath = v.GetString("export.chrome_path")
	config.S3Bucket = v.GetString("export.s3.bucket")
	config.S3Region = v.GetString("export.s3.region")
	config.S3Prefix = v.GetString("export.s3.prefix")
	config.S3Endpoint = v.GetString("export.s3.endpoint")

	// Snapshot
	config.SnapshotEnabled = v.GetBool("snapshot.enabled")
	config.SnapshotSchedule = v.GetString("snapshot.schedule")
	config.SnapshotFormats = getList(v, "snapshot.formats")
	config.RunRetention, err = time.ParseDuration(v.GetString("snapshot.run_retention"))
	if err != nil {
		return fmt.Errorf("invalid run retention: %w", err)
	}

	return nil
}

// LoadServerConfig loads server configuration using default Viper instance
func LoadServerConfig() (*Config, error) {
	v := viper.New()
	return LoadServerConfigWithViper(v)
}

// LoadServerConfigWithFile loads server configuration from a specific file
func LoadServerConfigWithFile(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	return LoadServerConfigWithViper(v)
}

// LoadServerConfigWithEnvFile loads server configuration with .env file support
func LoadServerConfigWithEnvFile(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := LoadEnvFile(envFile); err != nil {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	v := viper.New()
	return LoadServerConfigWithViper(v)
}
