package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/javajack/paramsheet"
)

// DefaultConfigFile is read from the working directory when --config is not
// given. A missing default file is not an error.
const DefaultConfigFile = "paramsheet.yaml"

// Config holds the CLI settings read from YAML.
type Config struct {
	Decimals      int    `yaml:"decimals"`
	MaxRows       int    `yaml:"max_rows,omitempty"`
	MaxColumns    int    `yaml:"max_columns,omitempty"`
	WorkbookSheet string `yaml:"workbook_sheet"`
	LogLevel      string `yaml:"log_level"`
}

// DefaultConfig returns the settings used when no file is present.
func DefaultConfig() Config {
	return Config{
		Decimals:      2,
		WorkbookSheet: paramsheet.DefaultWorkbookSheet,
		LogLevel:      "warn",
	}
}

// LoadConfig reads path over the defaults. An empty path reads
// DefaultConfigFile if it exists.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Decimals < 0 {
		return fmt.Errorf("decimals must not be negative, got %d", c.Decimals)
	}
	if c.MaxRows < 0 || c.MaxColumns < 0 {
		return fmt.Errorf("sheet bounds must not be negative")
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

func (c Config) level() (slog.Level, error) {
	l := slog.LevelWarn
	if c.LogLevel == "" {
		return l, nil
	}
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return l, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// SheetOptions turns the settings into sheet options.
func (c Config) SheetOptions(log *slog.Logger) []paramsheet.Option {
	return []paramsheet.Option{
		paramsheet.WithLogger(log),
		paramsheet.WithDecimals(c.Decimals),
		paramsheet.WithBounds(c.MaxRows, c.MaxColumns),
	}
}
