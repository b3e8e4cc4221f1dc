// Package config holds the tableio command configuration decoded by viper.
package config

import (
	"fmt"
	"strings"

	"github.com/VanDung-dev/tableio/rootarray"
)

type Config struct {
	LogLevel    string     `mapstructure:"log_level"`
	LogFormat   string     `mapstructure:"log_format"`
	MetricsAddr string     `mapstructure:"metrics_addr"`
	Jobs        int        `mapstructure:"jobs"`
	Root        RootConfig `mapstructure:"root"`
}

// RootConfig holds the defaults applied when writing ROOT files.
type RootConfig struct {
	TreeName         string `mapstructure:"tree_name"`
	Title            string `mapstructure:"title"`
	Compression      string `mapstructure:"compression"`
	CompressionLevel int    `mapstructure:"compression_level"`
	BasketSize       int    `mapstructure:"basket_size"`
}

func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		Jobs:      4,
		Root: RootConfig{
			TreeName: rootarray.DefaultTreeName,
		},
	}
}

// WriteOptions returns the ROOT write options the config describes.
func (c RootConfig) WriteOptions() rootarray.WriteOptions {
	wo := rootarray.DefaultWriteOptions()
	if c.TreeName != "" {
		wo.TreeName = c.TreeName
	}
	wo.Title = c.Title
	wo.Compression = c.Compression
	wo.CompressionLevel = c.CompressionLevel
	wo.BasketSize = c.BasketSize
	return wo
}

// Validate performs structural validation on the config.
func (c Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log_level %q (expected debug, info, warn, error)", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("unknown log_format %q (expected text, json)", c.LogFormat))
	}
	if c.Jobs <= 0 {
		errs = append(errs, fmt.Sprintf("jobs must be > 0, got %d", c.Jobs))
	}
	if _, err := rootarray.WriteOptionsFrom(c.Root.WriteOptions(), nil); err != nil {
		errs = append(errs, "root: "+err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
