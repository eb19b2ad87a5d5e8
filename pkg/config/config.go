// Package config loads gitscm configuration from an optional YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/gitscm/pkg/observability"
)

// Sentinel validation errors.
var (
	ErrInvalidWorkers     = errors.New("blame workers must not be negative")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidLogFormat   = errors.New("invalid log format")
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
)

const (
	envPrefix = "GITSCM"

	// circleCIEnv is set to "true" by CircleCI builds.
	circleCIEnv = "CIRCLECI"

	defaultHostVersion = "10.0"

	formatText = "text"
	formatJSON = "json"
)

// Config holds all gitscm configuration.
type Config struct {
	Blame         BlameConfig         `mapstructure:"blame"`
	Host          HostConfig          `mapstructure:"host"`
	CI            CIConfig            `mapstructure:"ci"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// BlameConfig tunes the blame engine.
type BlameConfig struct {
	// Workers is the blame pool size; zero means one per CPU.
	Workers int `mapstructure:"workers"`
}

// HostConfig describes the analysis host driving the provider.
type HostConfig struct {
	// Version is the host API version used to probe optional capabilities.
	Version string `mapstructure:"version"`
}

// CIConfig carries CI environment detection.
type CIConfig struct {
	// CircleCI holds the raw CIRCLECI value.
	CircleCI string `mapstructure:"circleci"`
}

// OnCircleCI reports whether the build runs on CircleCI. Only the exact
// value "true" counts.
func (c CIConfig) OnCircleCI() bool {
	return c.CircleCI == "true"
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ObservabilityConfig holds OpenTelemetry export settings.
type ObservabilityConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// LoadConfig loads configuration from file and environment variables. An
// empty path searches gitscm.yaml in ., ./config and /etc/gitscm; a missing
// file there is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("gitscm")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/gitscm")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindErr := viperCfg.BindEnv("ci.circleci", circleCIEnv)
	if bindErr != nil {
		return nil, fmt.Errorf("bind %s: %w", circleCIEnv, bindErr)
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("blame.workers", 0)
	viperCfg.SetDefault("host.version", defaultHostVersion)
	viperCfg.SetDefault("ci.circleci", "")

	viperCfg.SetDefault("logging.level", "info")
	viperCfg.SetDefault("logging.format", formatText)

	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_insecure", false)
	viperCfg.SetDefault("observability.sample_ratio", 0.0)
}

func validateConfig(config *Config) error {
	if config.Blame.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, config.Blame.Workers)
	}

	if _, err := parseLevel(config.Logging.Level); err != nil {
		return err
	}

	switch strings.ToLower(config.Logging.Format) {
	case formatText, formatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	ratio := config.Observability.SampleRatio
	if ratio < 0 || ratio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, ratio)
	}

	return nil
}

func parseLevel(level string) (slog.Level, error) {
	var parsed slog.Level

	err := parsed.UnmarshalText([]byte(level))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, level)
	}

	return parsed, nil
}

// BlameWorkers returns the effective pool size.
func (c *Config) BlameWorkers() int {
	if c.Blame.Workers > 0 {
		return c.Blame.Workers
	}

	return runtime.NumCPU()
}

// ObservabilityConfig maps the file settings onto an observability.Config.
// verbose forces debug logging.
func (c *Config) ObservabilityConfig(version string, verbose bool) observability.Config {
	obs := observability.DefaultConfig()
	obs.ServiceVersion = version
	obs.OTLPEndpoint = c.Observability.OTLPEndpoint
	obs.OTLPInsecure = c.Observability.OTLPInsecure
	obs.SampleRatio = c.Observability.SampleRatio
	obs.LogJSON = strings.EqualFold(c.Logging.Format, formatJSON)

	level, err := parseLevel(c.Logging.Level)
	if err == nil {
		obs.LogLevel = level
	}

	if verbose {
		obs.LogLevel = slog.LevelDebug
	}

	return obs
}
