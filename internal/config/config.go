package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50

	defaultAdminRateLimitRPS   = 2.0
	defaultAdminRateLimitBurst = 5
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
//
// Console holds the explicit values destined for the Resolver setters; the
// Resolver applies its own property and environment fallbacks.
// ConsoleOverrides is the command-line subset of Console, re-applied on top
// of every configuration file reload.
type Config struct {
	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
	AdminRateLimitRPS    float64
	AdminRateLimitBurst  int
	LogLevel             string
	ConfigFile           string
	WatchConfig          bool
	Console              Bindings
	ConsoleOverrides     Bindings
}

// yamlConfig represents the server part of the YAML configuration file.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	LogLevel             string        `yaml:"log_level"`
	WatchConfig          *bool         `yaml:"watch_config"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS        *float64 `yaml:"rps"`
	Burst      *int     `yaml:"burst"`
	AdminRPS   *float64 `yaml:"admin_rps"`
	AdminBurst *int     `yaml:"admin_burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	LogLevel       *string
	WatchConfig    *bool
	Console        Bindings
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	applyEnvConfig(&cfg)

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, bindings, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		applyYAMLConfig(&cfg, yamlCfg)
		cfg.Console = bindings
		cfg.ConfigFile = overrides.ConfigFile
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		AdminRateLimitRPS:    defaultAdminRateLimitRPS,
		AdminRateLimitBurst:  defaultAdminRateLimitBurst,
		LogLevel:             defaultLogLevel,
	}
}

// loadFromFile reads the YAML file once and decodes both the server settings
// and the console binding section.
func loadFromFile(path string) (*yamlConfig, Bindings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Bindings{}, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, Bindings{}, fmt.Errorf("%w: parse YAML: %v", ErrInvalidConfigFile, err)
	}

	bindings, err := decodeBindings(data)
	if err != nil {
		return nil, Bindings{}, err
	}

	return &yamlCfg, bindings, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	applyDuration(&cfg.ShutdownGracePeriod, yamlCfg.ShutdownGracePeriod)
	applyDuration(&cfg.ReadHeaderTimeout, yamlCfg.ReadHeaderTimeout)
	applyDuration(&cfg.WriteTimeout, yamlCfg.WriteTimeout)
	applyDuration(&cfg.IdleTimeout, yamlCfg.IdleTimeout)

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	if yamlCfg.WatchConfig != nil {
		cfg.WatchConfig = *yamlCfg.WatchConfig
	}

	if rps := yamlCfg.RateLimit.RPS; rps != nil && *rps >= 0 {
		cfg.RateLimitRPS = *rps
	}

	if burst := yamlCfg.RateLimit.Burst; burst != nil && *burst >= 0 {
		cfg.RateLimitBurst = *burst
	}

	if rps := yamlCfg.RateLimit.AdminRPS; rps != nil && *rps >= 0 {
		cfg.AdminRateLimitRPS = *rps
	}

	if burst := yamlCfg.RateLimit.AdminBurst; burst != nil && *burst >= 0 {
		cfg.AdminRateLimitBurst = *burst
	}
}

func applyDuration(dst *time.Duration, raw string) {
	if raw == "" {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil {
		*dst = d
	}
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	if rps := strings.TrimSpace(os.Getenv("ADMIN_RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.AdminRateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("ADMIN_RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.AdminRateLimitBurst = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.WatchConfig != nil {
		cfg.WatchConfig = *overrides.WatchConfig
	}

	cfg.Console = cfg.Console.Merge(overrides.Console)
	cfg.ConsoleOverrides = overrides.Console
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if cfg.WatchConfig && cfg.ConfigFile == "" {
		return fmt.Errorf("watch_config requires a configuration file")
	}
	return nil
}
