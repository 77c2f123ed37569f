package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrNotFound is returned by Load when no configuration file exists.
var ErrNotFound = errors.New("config file not found")

// Config represents the application configuration
type Config struct {
	Island    IslandConfig `mapstructure:"island" yaml:"island"`
	ReportDir string       `mapstructure:"report_dir" yaml:"report_dir"`
	DBPath    string       `mapstructure:"db_path" yaml:"db_path"`
	Logger    LoggerConfig `mapstructure:"logger" yaml:"logger"`
	Notify    NotifyConfig `mapstructure:"notify" yaml:"notify"`
}

// IslandConfig describes how to reach and authenticate against the Island
type IslandConfig struct {
	URL                string `mapstructure:"url" yaml:"url"`
	Token              string `mapstructure:"token" yaml:"token"`
	Username           string `mapstructure:"username" yaml:"username"`
	Password           string `mapstructure:"password" yaml:"password"`
	Timeout            string `mapstructure:"timeout" yaml:"timeout"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// LoggerConfig holds zap logger settings
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
}

// NotifyConfig configures completion notifications
type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
}

// Load reads and parses configuration from a YAML file.
// If path is empty, searches for islandreport.yaml in current directory and ~/.config/islandreport/.
// Any key can be overridden by an ISLANDREPORT_ environment variable, e.g. ISLANDREPORT_ISLAND_TOKEN.
func Load(path string) (*Config, error) {
	// A .env file next to the working directory may carry ISLANDREPORT_* overrides.
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("failed to read .env: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("islandreport")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("islandreport")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "islandreport"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w: %v", ErrNotFound, err)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
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

// setDefaults registers every key so AutomaticEnv can override keys absent from the file.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("island.url", d.Island.URL)
	v.SetDefault("island.token", d.Island.Token)
	v.SetDefault("island.username", d.Island.Username)
	v.SetDefault("island.password", d.Island.Password)
	v.SetDefault("island.timeout", d.Island.Timeout)
	v.SetDefault("island.insecure_skip_verify", d.Island.InsecureSkipVerify)
	v.SetDefault("report_dir", d.ReportDir)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.format", d.Logger.Format)
	v.SetDefault("logger.service_name", d.Logger.ServiceName)
	v.SetDefault("logger.log_file", d.Logger.LogFile)
	v.SetDefault("logger.max_size", d.Logger.MaxSize)
	v.SetDefault("logger.max_backups", d.Logger.MaxBackups)
	v.SetDefault("logger.max_age", d.Logger.MaxAge)
	v.SetDefault("logger.compress", d.Logger.Compress)
	v.SetDefault("logger.add_source", d.Logger.AddSource)
	v.SetDefault("notify.webhook_url", d.Notify.WebhookURL)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Island.URL == "" {
		errs = append(errs, errors.New("island.url cannot be empty"))
	} else if u, err := url.Parse(c.Island.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("island.url %q is not an absolute URL", c.Island.URL))
	}

	// The password may be left empty and prompted for at login.
	if c.Island.Token == "" && c.Island.Username == "" {
		errs = append(errs, errors.New("either island.token or island.username must be set (or ISLANDREPORT_ISLAND_TOKEN / ISLANDREPORT_ISLAND_USERNAME)"))
	}

	if _, err := c.Island.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	}

	if c.ReportDir == "" {
		errs = append(errs, errors.New("report_dir cannot be empty"))
	}

	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path cannot be empty"))
	}

	switch c.Logger.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// TimeoutDuration parses the configured HTTP timeout. Empty means no timeout.
func (ic IslandConfig) TimeoutDuration() (time.Duration, error) {
	if ic.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(ic.Timeout)
	if err != nil {
		return 0, fmt.Errorf("island.timeout %q: %w", ic.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("island.timeout must not be negative")
	}
	return d, nil
}
