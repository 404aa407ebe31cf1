// Package config holds run settings, loaded from defaults, an optional YAML file, and flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wingedpig/ipowners/pkg/model"
)

// Query backends
const (
	BackendCommand = "command"
	BackendLibrary = "library"
)

// Config is the full set of run settings
type Config struct {
	Input          string  `yaml:"input"`
	Output         string  `yaml:"output"`
	Threads        int     `yaml:"threads"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	Backend        string  `yaml:"backend"`
	WhoisBin       string  `yaml:"whois_bin"`
	RateLimit      float64 `yaml:"rate"`
	Retries        int     `yaml:"retries"`
	Unordered      bool    `yaml:"unordered"`
	Verbose        bool    `yaml:"verbose"`

	Cache struct {
		Path string        `yaml:"path"` // LevelDB directory, empty disables caching
		TTL  time.Duration `yaml:"ttl"`
		// Delete expired entries before the run. Expired entries are otherwise
		// kept as a fallback for failed refetches.
		Prune bool `yaml:"prune"`
	} `yaml:"cache"`
}

// Default returns the built-in settings
func Default() *Config {
	cfg := &Config{
		Output:         "owners.csv",
		Threads:        4,
		TimeoutSeconds: 100,
		Backend:        BackendCommand,
		WhoisBin:       "whois",
	}
	cfg.Cache.TTL = 168 * time.Hour
	return cfg
}

// Load reads a YAML file over the defaults. Keys missing from the file keep their default.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Timeout returns the per-query timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Ordered reports whether rows are written in input order
func (c *Config) Ordered() bool {
	return !c.Unordered
}

// Validate checks settings that would make a run meaningless
func (c *Config) Validate() error {
	switch {
	case c.Input == "":
		return fmt.Errorf("%w: input file is required", model.ErrInvalidConfig)
	case c.Output == "":
		return fmt.Errorf("%w: output file is required", model.ErrInvalidConfig)
	case c.Threads < 1:
		return fmt.Errorf("%w: threads must be at least 1, got %d", model.ErrInvalidConfig, c.Threads)
	case c.TimeoutSeconds <= 0:
		return fmt.Errorf("%w: timeout must be positive, got %d", model.ErrInvalidConfig, c.TimeoutSeconds)
	case c.RateLimit < 0:
		return fmt.Errorf("%w: rate must not be negative", model.ErrInvalidConfig)
	case c.Retries < 0:
		return fmt.Errorf("%w: retries must not be negative", model.ErrInvalidConfig)
	case c.Backend != BackendCommand && c.Backend != BackendLibrary:
		return fmt.Errorf("%w: unknown backend %q", model.ErrInvalidConfig, c.Backend)
	case c.Backend == BackendCommand && c.WhoisBin == "":
		return fmt.Errorf("%w: whois binary is required for the command backend", model.ErrInvalidConfig)
	case c.Cache.Path != "" && c.Cache.TTL <= 0:
		return fmt.Errorf("%w: cache ttl must be positive", model.ErrInvalidConfig)
	}
	return nil
}
