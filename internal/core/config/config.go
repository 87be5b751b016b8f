package config

import (
	"fmt"
	"time"

	redisclient "github.com/vietddude/crashwatch/internal/infra/redis"
	"github.com/vietddude/crashwatch/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server        ServerConfig        `yaml:"server"`
	Spool         SpoolConfig         `yaml:"spool"`
	Redis         redisclient.Config  `yaml:"redis"`
	Database      postgres.Config     `yaml:"database"`
	Logging       LoggingConfig       `yaml:"logging"`
	Platform      PlatformConfig      `yaml:"platform"`
	Notifications NotificationConfig  `yaml:"notifications"`
	Packages      []PackageConfig     `yaml:"packages"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// SpoolConfig holds the file-drop source settings. An empty dir disables the
// file source.
type SpoolConfig struct {
	Dir          string        `yaml:"dir"`
	ScanInterval time.Duration `yaml:"-"`
}

// UnmarshalYAML accepts the scan interval in time.ParseDuration form ("2s").
func (s *SpoolConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw struct {
		Dir          string `yaml:"dir"`
		ScanInterval string `yaml:"scan_interval"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	s.Dir = raw.Dir
	if raw.ScanInterval != "" {
		d, err := time.ParseDuration(raw.ScanInterval)
		if err != nil {
			return fmt.Errorf("invalid scan_interval: %w", err)
		}
		s.ScanInterval = d
	}
	return nil
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// PlatformConfig mirrors host capabilities.
type PlatformConfig struct {
	MemoryTaggingSupported bool `yaml:"memory_tagging_supported"`
}

// NotificationConfig holds the global notification toggles.
type NotificationConfig struct {
	ShowSystemProcessCrashes bool `yaml:"show_system_process_crashes"`
}

// PackageConfig declares one installed package to the static registry.
type PackageConfig struct {
	Name                     string `yaml:"name"`
	AppID                    int    `yaml:"app_id"`
	System                   bool   `yaml:"system"`
	SuppressMemtagAdvisories bool   `yaml:"suppress_memtag_advisories"`
}
