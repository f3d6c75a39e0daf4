package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied by WithDefaults.
const (
	DefaultAddr      = "127.0.0.1:7070"
	DefaultDebounce  = 150 * time.Millisecond
	DefaultIndexPath = ".modgraph/index"
)

// Config holds settings loaded from modgraph.yml, .env and MODGRAPH_*
// environment variables, in increasing order of precedence.
type Config struct {
	Addr              string        `yaml:"addr,omitempty"`
	MCPAddr           string        `yaml:"mcpAddr,omitempty"`
	Debounce          time.Duration `yaml:"debounce,omitempty"`
	ResolverCacheSize int           `yaml:"resolverCacheSize,omitempty"`
	IndexPath         string        `yaml:"indexPath,omitempty"`
	AllowedOrigins    []string      `yaml:"allowedOrigins,omitempty"`
	Verbose           bool          `yaml:"verbose,omitempty"`
}

// Load reads modgraph.yml or modgraph.yaml from dir, then dir/.env, then the
// process environment. Missing files are not an error; a zero-value config
// is returned when nothing is set.
func Load(dir string) (*Config, error) {
	cfg := &Config{}
	for _, name := range []string{"modgraph.yml", "modgraph.yaml"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", name, err)
		}
		break
	}

	// godotenv never overrides variables already set in the environment.
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := env("MODGRAPH_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := env("MODGRAPH_MCP_ADDR"); v != "" {
		cfg.MCPAddr = v
	}
	if v := env("MODGRAPH_DEBOUNCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: MODGRAPH_DEBOUNCE: %w", err)
		}
		cfg.Debounce = d
	}
	if v := env("MODGRAPH_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: MODGRAPH_CACHE_SIZE: %w", err)
		}
		cfg.ResolverCacheSize = n
	}
	if v := env("MODGRAPH_INDEX_PATH"); v != "" {
		cfg.IndexPath = v
	}
	if v := env("MODGRAPH_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	if v := env("MODGRAPH_VERBOSE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: MODGRAPH_VERBOSE: %w", err)
		}
		cfg.Verbose = b
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// WithDefaults returns a copy of c with unset fields filled in.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.IndexPath == "" {
		c.IndexPath = DefaultIndexPath
	}
	return c
}
