package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Application version information
const (
	Version = "v0.3 (prototype)"
	AppName = "NIDS Detection Engine"
)

// MatcherConfig holds the multi-pattern matcher tunables.
type MatcherConfig struct {
	// HashSize is the 3-gram bucket count; must be a power of two.
	HashSize int `yaml:"hash_size"`
	// BloomSize is the per-bucket bloom bitmap size in bits. Zero disables
	// the bloom prefilter.
	BloomSize int `yaml:"bloom_size"`
}

// Config is the engine configuration, loadable from a YAML file.
type Config struct {
	Matcher  MatcherConfig `yaml:"matcher"`
	LogLevel string        `yaml:"log_level"`
	Report   string        `yaml:"report"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Matcher: MatcherConfig{
			HashSize:  1 << 15,
			BloomSize: 1024,
		},
		LogLevel: "info",
	}
}

// LoadConfig reads a YAML config file on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the tunables for values the matcher cannot work with.
func (c Config) Validate() error {
	h := c.Matcher.HashSize
	if h <= 0 || h&(h-1) != 0 {
		return fmt.Errorf("matcher hash_size must be a power of two, got %d", h)
	}
	if c.Matcher.BloomSize < 0 {
		return fmt.Errorf("matcher bloom_size must be >= 0, got %d", c.Matcher.BloomSize)
	}
	return nil
}
