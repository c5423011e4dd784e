package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// configRoot is the top-level wrapper matching the YAML structure `rtuport: ...`.
type configRoot struct {
	RTUPort GlobalConfig `mapstructure:"rtuport"`
}

// Load loads configuration from file. An empty path loads defaults only.
// Env vars override file values through the key replacer, e.g. key
// "rtuport.log.level" maps to RTUPORT_LOG_LEVEL.
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.RTUPort

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use the "rtuport." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Transport defaults
	v.SetDefault("rtuport.transport.type", "serial")

	// Framer defaults
	v.SetDefault("rtuport.framer.max_buffer", 4096)
	v.SetDefault("rtuport.framer.overflow_policy", "reset")
	v.SetDefault("rtuport.framer.idle_reset", "0s")
	v.SetDefault("rtuport.framer.frame_queue", 16)

	// Log defaults
	v.SetDefault("rtuport.log.level", "info")
	v.SetDefault("rtuport.log.pattern", "%time [%level] %field %msg")
	v.SetDefault("rtuport.log.time", "2006-01-02 15:04:05.000")
	v.SetDefault("rtuport.log.outputs.file.enabled", false)
	v.SetDefault("rtuport.log.outputs.file.path", "/var/log/rtuport/rtuport.log")
	v.SetDefault("rtuport.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("rtuport.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("rtuport.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("rtuport.log.outputs.file.rotation.compress", true)

	// Metrics defaults
	v.SetDefault("rtuport.metrics.enabled", false)
	v.SetDefault("rtuport.metrics.listen", ":9091")
	v.SetDefault("rtuport.metrics.path", "/metrics")
}
