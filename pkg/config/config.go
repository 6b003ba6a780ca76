// Package config loads engine configuration. Every knob has a default, so
// the engine runs without any config file.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the engine configuration tree.
type Config struct {
	Storage struct {
		Workdir  string `mapstructure:"workdir"`
		PageSize int    `mapstructure:"page_size"`
	} `mapstructure:"storage"`

	Pool struct {
		Pages         int `mapstructure:"pages"`
		LockTimeoutMS int `mapstructure:"lock_timeout_ms"`
	} `mapstructure:"pool"`

	Stats struct {
		HistBins      int `mapstructure:"hist_bins"`
		IOCostPerPage int `mapstructure:"io_cost_per_page"`
	} `mapstructure:"stats"`

	Log struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"log"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
		Output string `mapstructure:"output"`
	} `mapstructure:"logging"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.workdir", "data")
	v.SetDefault("storage.page_size", 4096)
	v.SetDefault("pool.pages", 50)
	v.SetDefault("pool.lock_timeout_ms", 3000)
	v.SetDefault("stats.hist_bins", 100)
	v.SetDefault("stats.io_cost_per_page", 1000)
	v.SetDefault("log.path", "data/minidb.log")
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "")
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults always unmarshal; reaching this is a programming error.
		panic(err)
	}
	return &cfg
}

// Load reads the YAML config at path on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
