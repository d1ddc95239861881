// Package config provides configuration management for the monitoring engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Engine      EngineConfig      `mapstructure:"engine"`
	Alerts      AlertConfig       `mapstructure:"alerts"`
	Dashboard   DashboardConfig   `mapstructure:"dashboard"`
	UI          UIConfig          `mapstructure:"ui"`
	Credentials Credentials       `mapstructure:"-"` // Loaded separately
}

// EngineConfig holds poll-loop configuration.
type EngineConfig struct {
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	InterSubjectDelay time.Duration `mapstructure:"inter_subject_delay"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	DispatchTimeout   time.Duration `mapstructure:"dispatch_timeout"`
}

// AlertConfig holds trigger and suppression thresholds. Percentages are
// fractions: 0.05 means 5%.
type AlertConfig struct {
	CooldownWindow         time.Duration `mapstructure:"cooldown_window"`
	VolumeSpikeRatio       float64       `mapstructure:"volume_spike_ratio"`
	PercentChangeThreshold float64       `mapstructure:"percent_change_threshold"`
	SentimentThreshold     float64       `mapstructure:"sentiment_threshold"`
	QuietHoursStart        int           `mapstructure:"quiet_hours_start"`
	QuietHoursEnd          int           `mapstructure:"quiet_hours_end"`
	MaxAlertsPerDay        int           `mapstructure:"max_alerts_per_day"`
	WatchlistLimit         int           `mapstructure:"watchlist_limit"`
}

// DashboardConfig holds dashboard auto-refresh configuration.
type DashboardConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	RefreshInterval  time.Duration `mapstructure:"refresh_interval"`
	InteractionGrace time.Duration `mapstructure:"interaction_grace"`
	ChannelID        string        `mapstructure:"channel_id"`
}

// UIConfig holds CLI output configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
}

// Credentials holds API credentials.
type Credentials struct {
	Finnhub FinnhubCredentials `mapstructure:"finnhub"`
	OpenAI  OpenAICredentials  `mapstructure:"openai"`
	Discord DiscordCredentials `mapstructure:"discord"`
}

// FinnhubCredentials holds quote-provider credentials.
type FinnhubCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// OpenAICredentials holds OpenAI API credentials.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// DiscordCredentials holds notification-channel credentials.
type DiscordCredentials struct {
	WebhookURL          string `mapstructure:"webhook_url"`
	DashboardWebhookURL string `mapstructure:"dashboard_webhook_url"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/stock-sentinel"
	}
	return filepath.Join(home, ".config", "stock-sentinel")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setEngineDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if werr := createTemplateConfig(configDir); werr != nil {
				return werr
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func setEngineDefaults(v *viper.Viper) {
	v.SetDefault("engine.poll_interval", "60s")
	v.SetDefault("engine.inter_subject_delay", "1s")
	v.SetDefault("engine.fetch_timeout", "10s")
	v.SetDefault("engine.dispatch_timeout", "10s")

	v.SetDefault("alerts.cooldown_window", "30m")
	v.SetDefault("alerts.volume_spike_ratio", 2.0)
	v.SetDefault("alerts.percent_change_threshold", 0.05)
	v.SetDefault("alerts.sentiment_threshold", 0.6)
	v.SetDefault("alerts.quiet_hours_start", 22)
	v.SetDefault("alerts.quiet_hours_end", 7)
	v.SetDefault("alerts.max_alerts_per_day", 50)
	v.SetDefault("alerts.watchlist_limit", 20)

	v.SetDefault("dashboard.enabled", true)
	v.SetDefault("dashboard.refresh_interval", "60s")
	v.SetDefault("dashboard.interaction_grace", "3s")

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "2006-01-02")
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("openai.model", "gpt-4o-mini")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		cfg.Credentials.Finnhub.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Credentials.Discord.WebhookURL = v
	}
	if v := os.Getenv("DISCORD_DASHBOARD_WEBHOOK_URL"); v != "" {
		cfg.Credentials.Discord.DashboardWebhookURL = v
	}
}

// Validate validates the configuration. A validation failure is fatal at
// startup: the engine refuses to start on a bad config.
func (c *Config) Validate() error {
	if c.Engine.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.Engine.InterSubjectDelay < 0 {
		return fmt.Errorf("inter_subject_delay must be non-negative")
	}
	if c.Engine.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive")
	}
	if c.Engine.DispatchTimeout <= 0 {
		return fmt.Errorf("dispatch_timeout must be positive")
	}

	if c.Alerts.CooldownWindow <= 0 {
		return fmt.Errorf("cooldown_window must be positive")
	}
	if c.Alerts.VolumeSpikeRatio <= 0 {
		return fmt.Errorf("volume_spike_ratio must be positive")
	}
	if c.Alerts.PercentChangeThreshold <= 0 {
		return fmt.Errorf("percent_change_threshold must be positive")
	}
	if c.Alerts.SentimentThreshold < 0 || c.Alerts.SentimentThreshold > 1 {
		return fmt.Errorf("sentiment_threshold must be between 0 and 1")
	}
	if c.Alerts.QuietHoursStart < 0 || c.Alerts.QuietHoursStart > 23 {
		return fmt.Errorf("quiet_hours_start must be between 0 and 23")
	}
	if c.Alerts.QuietHoursEnd < 0 || c.Alerts.QuietHoursEnd > 23 {
		return fmt.Errorf("quiet_hours_end must be between 0 and 23")
	}
	if c.Alerts.MaxAlertsPerDay < 1 {
		return fmt.Errorf("max_alerts_per_day must be at least 1")
	}

	if c.Dashboard.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be positive")
	}

	return nil
}
