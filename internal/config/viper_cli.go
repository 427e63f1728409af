package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"order-analysis/internal/cli"
)

// LoadCLIConfigWithViper loads CLI configuration using Viper
func LoadCLIConfigWithViper(v *viper.Viper) (*cli.Config, error) {
	setCLIDefaults(v)
	setupCLIEnvBinding(v)

	if err := loadConfigFile(v, "cli"); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	config := &cli.Config{}
	if err := unmarshalCLIConfig(v, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setCLIDefaults sets default values for CLI configuration
func setCLIDefaults(v *viper.Viper) {
	defaults := cli.DefaultConfig()
	v.SetDefault("server_url", defaults.ServerURL)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("quiet", false)
	v.SetDefault("no_color", false)
	v.SetDefault("request_timeout", defaults.RequestTimeout.String())
}

// setupCLIEnvBinding sets up environment variable binding for CLI configuration
func setupCLIEnvBinding(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	envBindings := map[string]string{
		"server_url":      "SERVER",
		"format":          "FORMAT",
		"quiet":           "QUIET",
		"request_timeout": "TIMEOUT",
		"api_key":         "API_KEY",
	}

	for configKey, envSuffix := range envBindings {
		v.BindEnv(configKey, EnvPrefix+"_"+envSuffix)
	}

	// NO_COLOR is honoured regardless of prefix
	v.BindEnv("no_color", EnvPrefix+"_NO_COLOR", "NO_COLOR")
}

// unmarshalCLIConfig unmarshals Viper configuration into CLI Config struct
func unmarshalCLIConfig(v *viper.Viper, config *cli.Config) error {
	config.ServerURL = v.GetString("server_url")
	config.Format = v.GetString("format")
	config.Quiet = v.GetBool("quiet")
	config.NoColor = v.GetBool("no_color")
	config.APIKey = v.GetString("api_key")

	// Timeout accepts a duration or whole seconds
	timeoutStr := v.GetString("request_timeout")
	if duration, err := time.ParseDuration(timeoutStr); err == nil {
		config.RequestTimeout = duration
	} else if seconds, err := strconv.Atoi(timeoutStr); err == nil {
		if seconds <= 0 {
			return fmt.Errorf("request timeout must be positive, got %d seconds", seconds)
		}
		config.RequestTimeout = time.Duration(seconds) * time.Second
	} else {
		return fmt.Errorf("invalid request timeout: %s", timeoutStr)
	}

	return nil
}

// LoadCLIConfig loads CLI configuration using default Viper instance
func LoadCLIConfig() (*cli.Config, error) {
	v := viper.New()
	return LoadCLIConfigWithViper(v)
}

// LoadCLIConfigWithFile loads CLI configuration from a specific file
func LoadCLIConfigWithFile(configFile string) (*cli.Config, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	return LoadCLIConfigWithViper(v)
}
