package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Deface     DefaceConfig     `mapstructure:"deface"`
	Filters    AllowListConfig  `mapstructure:"filters"`
	Paste      AllowListConfig  `mapstructure:"paste"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Send       SendConfig       `mapstructure:"send"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
}

type BotConfig struct {
	Token         string `mapstructure:"token"`
	Username      string `mapstructure:"username"`
	APIEndpoint   string `mapstructure:"api_endpoint"`
	UpdateTimeout int    `mapstructure:"update_timeout"`
}

type DefaceConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AllowListConfig holds the allowed values for one chat setting plus the
// value a chat starts with before it configures itself.
type AllowListConfig struct {
	Default string   `mapstructure:"default"`
	Allowed []string `mapstructure:"allowed"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	MaxSize int           `mapstructure:"max_size"`
}

type SendConfig struct {
	MessagesPerSecond float64 `mapstructure:"messages_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
	Directory       string   `mapstructure:"directory"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	// Enable environment variable substitution
	v.AutomaticEnv()

	// Environment overrides, named the way deployments expect them
	v.BindEnv("bot.token", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("bot.username", "TELEGRAM_BOT_USERNAME")
	v.BindEnv("deface.endpoint", "DEFACE_ENDPOINT")
	v.BindEnv("filters.default", "DEFAULT_FILTER_NAME")
	v.BindEnv("paste.default", "DEFAULT_PASTE_STYLE")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Allow-lists may arrive as comma-separated environment variables
	if raw := v.GetString("ALLOWED_FILTER_NAMES"); raw != "" {
		config.Filters.Allowed = parseList(raw)
	}
	if raw := v.GetString("ALLOWED_PASTE_STYLES"); raw != "" {
		config.Paste.Allowed = parseList(raw)
	}

	// Validate required fields
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.update_timeout", 30)
	v.SetDefault("deface.connect_timeout", 10*time.Second)
	v.SetDefault("deface.request_timeout", 30*time.Second)
	v.SetDefault("filters.default", "blur")
	v.SetDefault("paste.default", "feathered")
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("cache.max_size", 256)
	v.SetDefault("send.messages_per_second", 25)
	v.SetDefault("send.burst", 5)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("monitoring.metrics.port", 9090)
	v.SetDefault("monitoring.metrics.path", "/metrics")
	v.SetDefault("i18n.default_language", "en")
	v.SetDefault("i18n.languages", []string{"en"})
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func validateConfig(cfg *Config) error {
	if cfg.Bot.Token == "" {
		return fmt.Errorf("bot token is required")
	}
	if cfg.Deface.Endpoint == "" {
		return fmt.Errorf("deface endpoint is required")
	}
	if len(cfg.Filters.Allowed) == 0 {
		return fmt.Errorf("at least one allowed filter is required")
	}
	if len(cfg.Paste.Allowed) == 0 {
		return fmt.Errorf("at least one allowed paste style is required")
	}
	if !contains(cfg.Filters.Allowed, cfg.Filters.Default) {
		return fmt.Errorf("default filter %q is not in the allowed list", cfg.Filters.Default)
	}
	if !contains(cfg.Paste.Allowed, cfg.Paste.Default) {
		return fmt.Errorf("default paste style %q is not in the allowed list", cfg.Paste.Default)
	}
	return nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
