// Package config loads and validates the pipeline configuration.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Scrape   ScrapeConfig   `yaml:"scrape" mapstructure:"scrape"`
	Clean    CleanConfig    `yaml:"clean" mapstructure:"clean"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ScrapeConfig configures the catalogue crawl.
type ScrapeConfig struct {
	BaseURL          string        `yaml:"base_url" mapstructure:"base_url"`
	MaxPages         int           `yaml:"max_pages" mapstructure:"max_pages"`
	Delay            time.Duration `yaml:"delay" mapstructure:"delay"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent        string        `yaml:"user_agent" mapstructure:"user_agent"`
	RespectRobotsTxt bool          `yaml:"respect_robots_txt" mapstructure:"respect_robots_txt"`
	DetailCacheSize  int           `yaml:"detail_cache_size" mapstructure:"detail_cache_size"`
	MetricsAddr      string        `yaml:"metrics_addr" mapstructure:"metrics_addr"`
}

// CleanConfig configures the cleaning pipeline.
type CleanConfig struct {
	// ExchangeRate overrides the live lookup when positive.
	ExchangeRate float64       `yaml:"exchange_rate" mapstructure:"exchange_rate"`
	FallbackRate float64       `yaml:"fallback_rate" mapstructure:"fallback_rate"`
	RateURL      string        `yaml:"rate_url" mapstructure:"rate_url"`
	RateTimeout  time.Duration `yaml:"rate_timeout" mapstructure:"rate_timeout"`
}

// DatabaseConfig configures the store the loader writes to.
type DatabaseConfig struct {
	Driver     string `yaml:"driver" mapstructure:"driver"`
	Host       string `yaml:"host" mapstructure:"host"`
	Name       string `yaml:"name" mapstructure:"name"`
	User       string `yaml:"user" mapstructure:"user"`
	Password   string `yaml:"password" mapstructure:"password"`
	Port       int    `yaml:"port" mapstructure:"port"`
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// OutputConfig configures the dataset files.
type OutputConfig struct {
	RawDir   string `yaml:"raw_dir" mapstructure:"raw_dir"`
	CleanDir string `yaml:"clean_dir" mapstructure:"clean_dir"`
	Format   string `yaml:"format" mapstructure:"format"` // csv, json, or dual
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// dbEnv maps database keys to the unprefixed variables deployments already set.
var dbEnv = map[string]string{
	"database.driver":      "DB_DRIVER",
	"database.host":        "DB_HOST",
	"database.name":        "DB_NAME",
	"database.user":        "DB_USER",
	"database.password":    "DB_PASSWORD",
	"database.port":        "DB_PORT",
	"database.sqlite_path": "DB_SQLITE_PATH",
}

// Load reads configuration from .env files, an optional config.yaml and the environment.
func Load() (*Config, error) {
	// Do not override environment provided by the runtime.
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BOOKPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range dbEnv {
		if err := v.BindEnv(key, "BOOKPIPE_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", key)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("scrape.base_url", d.Scrape.BaseURL)
	v.SetDefault("scrape.max_pages", d.Scrape.MaxPages)
	v.SetDefault("scrape.delay", d.Scrape.Delay)
	v.SetDefault("scrape.timeout", d.Scrape.Timeout)
	v.SetDefault("scrape.user_agent", d.Scrape.UserAgent)
	v.SetDefault("scrape.respect_robots_txt", d.Scrape.RespectRobotsTxt)
	v.SetDefault("scrape.detail_cache_size", d.Scrape.DetailCacheSize)
	v.SetDefault("scrape.metrics_addr", d.Scrape.MetricsAddr)
	v.SetDefault("clean.exchange_rate", d.Clean.ExchangeRate)
	v.SetDefault("clean.fallback_rate", d.Clean.FallbackRate)
	v.SetDefault("clean.rate_url", d.Clean.RateURL)
	v.SetDefault("clean.rate_timeout", d.Clean.RateTimeout)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.sqlite_path", d.Database.SQLitePath)
	v.SetDefault("output.raw_dir", d.Output.RawDir)
	v.SetDefault("output.clean_dir", d.Output.CleanDir)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// DefaultConfig returns conservative defaults for the demo target.
func DefaultConfig() *Config {
	return &Config{
		Scrape: ScrapeConfig{
			BaseURL:          "https://books.toscrape.com",
			MaxPages:         50,
			Delay:            500 * time.Millisecond,
			Timeout:          10 * time.Second,
			UserAgent:        "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
			RespectRobotsTxt: false,
			DetailCacheSize:  1024,
		},
		Clean: CleanConfig{
			FallbackRate: 1.27,
			RateURL:      "https://open.er-api.com/v6/latest/GBP",
			RateTimeout:  10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:     "postgres",
			Host:       "localhost",
			Name:       "bookstore",
			User:       "postgres",
			Port:       5432,
			SQLitePath: "data/books.db",
		},
		Output: OutputConfig{
			RawDir:   "data/raw",
			CleanDir: "data/clean",
			Format:   "csv",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Scrape.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.Scrape.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.Scrape.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.Scrape.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.Scrape.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Scrape.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Scrape.DetailCacheSize < 0 {
		return fmt.Errorf("detail cache size cannot be negative")
	}
	if c.Clean.ExchangeRate < 0 {
		return fmt.Errorf("exchange rate cannot be negative")
	}
	if c.Clean.FallbackRate <= 0 {
		return fmt.Errorf("fallback rate must be positive")
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("database host and name are required for postgres")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("database port %d out of range", c.Database.Port)
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("sqlite path cannot be empty")
		}
	default:
		return fmt.Errorf("database driver must be postgres or sqlite")
	}
	if c.Output.Format != "csv" && c.Output.Format != "json" && c.Output.Format != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}

	return nil
}

// DSN builds a Postgres connection URL from the individual settings.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	return u.String()
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
