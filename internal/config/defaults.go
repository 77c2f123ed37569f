package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Island: IslandConfig{
			URL:                "https://localhost:5000",
			Username:           "",
			Password:           "",
			Timeout:            "30s",
			InsecureSkipVerify: true,
		},
		ReportDir: "reports",
		DBPath:    "islandreport.db",
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "islandreport",
			MaxSize:     10,
			MaxBackups:  3,
			MaxAge:      28,
		},
	}
}

// WriteDefault writes a default configuration to the specified path
func WriteDefault(path string) error {
	cfg := DefaultConfig()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
