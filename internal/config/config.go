// Package config loads the application configuration from a YAML file and
// VEILSCAN_* environment variables, composing the per-package configs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/veilscan/veilscan/internal/probe"
	"github.com/veilscan/veilscan/internal/scan"
	"github.com/veilscan/veilscan/internal/store"
	"github.com/veilscan/veilscan/internal/sweeper"
	"github.com/veilscan/veilscan/internal/takedown"
	"github.com/veilscan/veilscan/internal/webclient"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Scan      ScanConfig      `mapstructure:"scan"`
	Retention RetentionConfig `mapstructure:"retention"`
	Probes    ProbesConfig    `mapstructure:"probes"`
	WebClient WebClientConfig `mapstructure:"webclient"`
	Takedown  TakedownConfig  `mapstructure:"takedown"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StoreConfig holds the persistence settings
type StoreConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// ScanConfig holds the probe fan-out settings
type ScanConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// RetentionConfig holds the data retention settings
type RetentionConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// ProbesConfig holds API keys for platforms that require them
type ProbesConfig struct {
	HIBPAPIKey   string `mapstructure:"hibp_api_key"`
	ShodanAPIKey string `mapstructure:"shodan_api_key"`
}

// WebClientConfig holds the fetch backend settings
type WebClientConfig struct {
	Backend    string        `mapstructure:"backend"`
	Timeout    time.Duration `mapstructure:"timeout"`
	UserAgents []string      `mapstructure:"user_agents"`
	Headless   bool          `mapstructure:"headless"`
}

// TakedownConfig holds the optional takedown drafting model settings
type TakedownConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("store.db_path", store.DefaultConfig().Path)
	v.SetDefault("scan.concurrency", scan.DefaultConfig().Concurrency)
	v.SetDefault("scan.probe_timeout", scan.DefaultConfig().ProbeTimeout)
	v.SetDefault("retention.sweep_interval", sweeper.DefaultConfig().Interval)
	v.SetDefault("retention.ttl", sweeper.DefaultConfig().TTL)
	v.SetDefault("webclient.backend", string(webclient.DefaultConfig().Backend))
	v.SetDefault("webclient.timeout", webclient.DefaultConfig().Timeout)
	v.SetDefault("webclient.user_agents", webclient.DefaultConfig().UserAgents)
	v.SetDefault("webclient.headless", webclient.DefaultConfig().Headless)
	v.SetDefault("takedown.model", takedown.DefaultConfig().Model)
	v.SetDefault("takedown.max_tokens", takedown.DefaultConfig().MaxTokens)
}

// Load reads and parses configuration from a YAML file. If path is empty,
// searches for veilscan.yaml in the current directory and
// ~/.config/veilscan/; a missing file means defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("veilscan")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "veilscan"))
		}
	}

	setDefaults(v)
	v.SetEnvPrefix("VEILSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file in the search paths is fine; an explicit path
		// that does not exist is not.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr cannot be empty"))
	}
	if c.Store.DBPath == "" {
		errs = append(errs, errors.New("store.db_path cannot be empty"))
	}
	if c.Scan.Concurrency <= 0 {
		errs = append(errs, errors.New("scan.concurrency must be positive"))
	}
	if c.Scan.ProbeTimeout <= 0 {
		errs = append(errs, errors.New("scan.probe_timeout must be positive"))
	}
	if c.Retention.SweepInterval <= 0 {
		errs = append(errs, errors.New("retention.sweep_interval must be positive"))
	}
	if c.Retention.TTL <= 0 {
		errs = append(errs, errors.New("retention.ttl must be positive"))
	}
	if webclient.Backend(c.WebClient.Backend) != webclient.BackendNetHTTP &&
		webclient.Backend(c.WebClient.Backend) != webclient.BackendChromedp {
		errs = append(errs, fmt.Errorf("webclient.backend must be one of %v", webclient.ListBackends()))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// StoreConfig converts to the store package config.
func (c *Config) StoreConfig() store.Config {
	return store.Config{Path: c.Store.DBPath}
}

// ScanConfig converts to the scan package config.
func (c *Config) ScanConfig() scan.Config {
	return scan.Config{
		Concurrency:  c.Scan.Concurrency,
		ProbeTimeout: c.Scan.ProbeTimeout,
	}
}

// SweeperConfig converts to the sweeper package config.
func (c *Config) SweeperConfig() sweeper.Config {
	return sweeper.Config{
		Interval: c.Retention.SweepInterval,
		TTL:      c.Retention.TTL,
	}
}

// ProbeConfig converts to the probe registry config.
func (c *Config) ProbeConfig() probe.Config {
	return probe.Config{
		HIBPAPIKey:   c.Probes.HIBPAPIKey,
		ShodanAPIKey: c.Probes.ShodanAPIKey,
	}
}

// WebClientConfig converts to the webclient package config.
func (c *Config) WebClientConfig() webclient.Config {
	cfg := webclient.DefaultConfig()
	cfg.Backend = webclient.Backend(c.WebClient.Backend)
	cfg.Timeout = c.WebClient.Timeout
	cfg.Headless = c.WebClient.Headless
	if len(c.WebClient.UserAgents) > 0 {
		cfg.UserAgents = c.WebClient.UserAgents
	}
	return cfg
}

// TakedownConfig converts to the takedown package config.
func (c *Config) TakedownConfig() takedown.Config {
	return takedown.Config{
		APIKey:    c.Takedown.APIKey,
		BaseURL:   c.Takedown.BaseURL,
		Model:     c.Takedown.Model,
		MaxTokens: c.Takedown.MaxTokens,
	}
}
