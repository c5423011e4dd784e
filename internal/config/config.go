// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `rtuport:` root key in YAML.
type GlobalConfig struct {
	Transport TransportConfig `mapstructure:"transport" yaml:"transport"`
	Framer    FramerConfig    `mapstructure:"framer" yaml:"framer"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

// ─── Transport ───

// TransportConfig selects the byte-stream link. Options are decoded by the
// transport package according to Type.
type TransportConfig struct {
	Type    string                 `mapstructure:"type" yaml:"type"` // serial | tcp
	Options map[string]interface{} `mapstructure:"options" yaml:"options,omitempty"`
}

// ─── Framer ───

// FramerConfig bounds the receive buffer of the frame assembler.
type FramerConfig struct {
	MaxBuffer      int           `mapstructure:"max_buffer" yaml:"max_buffer"`           // 0 = unbounded
	OverflowPolicy string        `mapstructure:"overflow_policy" yaml:"overflow_policy"` // reset | error
	IdleReset      time.Duration `mapstructure:"idle_reset" yaml:"idle_reset"`           // 0 = never
	FrameQueue     int           `mapstructure:"frame_queue" yaml:"frame_queue"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level" yaml:"level"`     // trace / debug / info / warn / error
	Pattern string           `mapstructure:"pattern" yaml:"pattern"` // %time %level %field %msg %caller
	Time    string           `mapstructure:"time" yaml:"time"`       // Go time layout
	Outputs LogOutputsConfig `mapstructure:"outputs" yaml:"outputs"`
}

// LogOutputsConfig contains log output destinations besides stdout.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be trace/debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return fmt.Errorf("log.outputs.file.path is required when file output is enabled")
	}

	// ── Transport validation ──
	switch cfg.Transport.Type {
	case "serial", "tcp":
	default:
		return fmt.Errorf("invalid transport.type: %s (must be serial/tcp)", cfg.Transport.Type)
	}
	if cfg.Transport.Options == nil {
		cfg.Transport.Options = map[string]interface{}{}
	}

	// ── Framer validation ──
	cfg.Framer.OverflowPolicy = strings.ToLower(cfg.Framer.OverflowPolicy)
	if cfg.Framer.OverflowPolicy != "reset" && cfg.Framer.OverflowPolicy != "error" {
		return fmt.Errorf("invalid framer.overflow_policy: %s (must be reset/error)", cfg.Framer.OverflowPolicy)
	}
	if cfg.Framer.MaxBuffer < 0 {
		return fmt.Errorf("framer.max_buffer must not be negative")
	}
	if cfg.Framer.IdleReset < 0 {
		return fmt.Errorf("framer.idle_reset must not be negative")
	}
	if cfg.Framer.FrameQueue <= 0 {
		cfg.Framer.FrameQueue = 16
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen is required when metrics.enabled=true")
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	return nil
}
