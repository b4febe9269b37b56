package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keeps runtime settings for the planner.
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Database DatabaseConfig `mapstructure:"database"`
	Report   ReportConfig   `mapstructure:"report"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Store    StoreConfig    `mapstructure:"store"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ReportConfig controls the periodic digest. DailyAt ("HH:MM") takes
// precedence over Interval when set.
type ReportConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	DailyAt  string        `mapstructure:"daily_at"`
}

type CalendarConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// StoreConfig bounds every store round trip.
type StoreConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type NotifyConfig struct {
	Window time.Duration `mapstructure:"window"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// ErrMissingToken is returned by RequireTelegram when no bot token is configured.
var ErrMissingToken = errors.New("telegram token is required (telegram.token or TELEGRAM_TOKEN)")

// Load reads configuration from an optional YAML file and the environment.
// An empty path looks for config.yaml in the working directory and ignores
// a missing file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.event-planner")
		_ = v.ReadInConfig()
	}

	v.SetEnvPrefix("PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyLegacyEnv(&cfg)
	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)
	cfg.Database.DSN = strings.TrimSpace(cfg.Database.DSN)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks values that do not depend on the command being run.
func (c *Config) Validate() error {
	if c.Report.Interval < 0 {
		return fmt.Errorf("report.interval must not be negative")
	}
	if c.Store.Timeout < 0 {
		return fmt.Errorf("store.timeout must not be negative")
	}
	if c.Notify.Window <= 0 {
		return fmt.Errorf("notify.window must be positive")
	}
	if c.Calendar.Enabled && c.Calendar.Path == "" {
		return fmt.Errorf("calendar.path is required when calendar sync is enabled")
	}
	return nil
}

// RequireTelegram checks the settings the bot command needs.
func (c *Config) RequireTelegram() error {
	if c.Telegram.Token == "" {
		return ErrMissingToken
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.token", "")
	v.SetDefault("database.dsn", "event_planner.db")
	v.SetDefault("report.interval", 5*time.Hour)
	v.SetDefault("report.daily_at", "")
	v.SetDefault("calendar.enabled", true)
	v.SetDefault("calendar.path", "calendar/events.ics")
	v.SetDefault("store.timeout", 10*time.Second)
	v.SetDefault("notify.window", 24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("metrics.listen", "")
}

// applyLegacyEnv keeps the older unprefixed environment variables working.
func applyLegacyEnv(cfg *Config) {
	if cfg.Telegram.Token == "" {
		cfg.Telegram.Token = strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN"))
	}
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" && os.Getenv("PLANNER_DATABASE_DSN") == "" {
		cfg.Database.DSN = dsn
	}
	if raw := strings.TrimSpace(os.Getenv("REPORT_INTERVAL_HOURS")); raw != "" && os.Getenv("PLANNER_REPORT_INTERVAL") == "" {
		if interval := parseInterval(raw); interval > 0 {
			cfg.Report.Interval = interval
		}
	}
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
