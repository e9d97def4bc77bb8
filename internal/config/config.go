// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Wait modes understood by the synchronization engine.
const (
	WaitModeConcurrent = "concurrent"
	WaitModeSequential = "sequential"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Wait      WaitConfig      `mapstructure:"wait" yaml:"wait"`
	Variables VariablesConfig `mapstructure:"variables" yaml:"variables"`
	Catalog   CatalogConfig   `mapstructure:"catalog" yaml:"catalog"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the chromedp-driven browser used by the check command.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	DisableCache      bool          `mapstructure:"disable_cache" yaml:"disable_cache"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// WaitConfig configures the synchronization engine.
type WaitConfig struct {
	AppearTimeout      time.Duration `mapstructure:"appear_timeout" yaml:"appear_timeout"`
	DisappearTimeout   time.Duration `mapstructure:"disappear_timeout" yaml:"disappear_timeout"`
	PollInterval       time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	Mode               string        `mapstructure:"mode" yaml:"mode"`
	MaxChecksPerSecond float64       `mapstructure:"max_checks_per_second" yaml:"max_checks_per_second"`
}

// VariablesConfig configures the scoped variable store.
type VariablesConfig struct {
	// MaxPasses caps iterative template substitution.
	MaxPasses int `mapstructure:"max_passes" yaml:"max_passes"`
	// PropertyFiles are java-style .properties files consulted before scope variables.
	PropertyFiles []string `mapstructure:"property_files" yaml:"property_files"`
}

// CatalogConfig lists the YAML page tables loaded at process start.
type CatalogConfig struct {
	Paths []string `mapstructure:"paths" yaml:"paths"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "pagekit")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.disable_cache", true)
	v.SetDefault("browser.navigation_timeout", "90s")

	// -- Wait --
	v.SetDefault("wait.appear_timeout", "8s")
	v.SetDefault("wait.disappear_timeout", "8s")
	v.SetDefault("wait.poll_interval", "100ms")
	v.SetDefault("wait.mode", WaitModeConcurrent)
	v.SetDefault("wait.max_checks_per_second", 50.0)

	// -- Variables --
	v.SetDefault("variables.max_passes", 16)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Wait.Validate(); err != nil {
		return fmt.Errorf("wait configuration invalid: %w", err)
	}
	if c.Variables.MaxPasses <= 0 {
		return fmt.Errorf("variables.max_passes must be a positive integer")
	}
	return nil
}

// Validate checks the WaitConfig settings.
func (w *WaitConfig) Validate() error {
	if w.AppearTimeout <= 0 || w.DisappearTimeout <= 0 {
		return fmt.Errorf("appear_timeout and disappear_timeout must be positive durations")
	}
	if w.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be a positive duration")
	}
	switch strings.ToLower(w.Mode) {
	case WaitModeConcurrent, WaitModeSequential:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", WaitModeConcurrent, WaitModeSequential, w.Mode)
	}
	if w.MaxChecksPerSecond < 0 {
		return fmt.Errorf("max_checks_per_second must not be negative")
	}
	return nil
}
