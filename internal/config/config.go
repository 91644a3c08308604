// Package config holds the run configuration shared by the YAML config file
// and the command line flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"dstnat2fgt/internal/model"
)

const (
	FormatMariaDB = "mariadb"

	DefaultInputFormat = "iptables"
	DefaultBasename    = "dstnat"
	DefaultSDWANZone   = "virtual-wan-link"
	DefaultDBTable     = "dstnat"
	DefaultLogLevel    = "INFO"
)

type Config struct {
	Input          string   `yaml:"input"`
	InputFormat    string   `yaml:"input_format"`
	OutputBasename string   `yaml:"output_basename"`
	MapNetwork     []string `yaml:"map_network"`
	MapInterface   []string `yaml:"map_interface"`

	DefaultInternal string `yaml:"default_internal"`
	DefaultExternal string `yaml:"default_external"`
	IgnoreIssues    bool   `yaml:"ignore_issues"`

	UseSDWAN  bool   `yaml:"use_sdwan"`
	SDWANZone string `yaml:"sdwan_zone"`

	ServicesFile string `yaml:"services_file"`

	DBDSN   string `yaml:"db_dsn"`
	DBTable string `yaml:"db_table"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

func Default() *Config {
	return &Config{
		InputFormat:    DefaultInputFormat,
		OutputBasename: DefaultBasename,
		SDWANZone:      DefaultSDWANZone,
		DBTable:        DefaultDBTable,
		LogLevel:       DefaultLogLevel,
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: config file %s: %v", model.ErrFormat, path, err)
	}
	return cfg, nil
}

// Validate checks the settings that the run cannot start without.
func (c *Config) Validate(knownFormats []string) error {
	if c.OutputBasename == "" {
		return fmt.Errorf("%w: empty output basename", model.ErrFormat)
	}

	format := strings.ToLower(c.InputFormat)
	if format == FormatMariaDB {
		if c.DBDSN == "" {
			return fmt.Errorf("%w: input format %s requires a database connection string", model.ErrFormat, FormatMariaDB)
		}
		return nil
	}

	known := false
	for _, name := range knownFormats {
		if name == format {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: unknown input format %q (expected one of %s, %s)",
			model.ErrFormat, c.InputFormat, strings.Join(knownFormats, ", "), FormatMariaDB)
	}
	if c.Input == "" {
		return fmt.Errorf("%w: no input file given", model.ErrFormat)
	}
	return nil
}
