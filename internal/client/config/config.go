package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
)

const EnvPrefix = "NESTWATCH_"

// Config holds runtime settings of the client.
type Config struct {
	ServerURL      string        `koanf:"server_url"`
	Token          string        `koanf:"token"`
	DataDir        string        `koanf:"data_dir"`
	Backend        string        `koanf:"backend"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	LogFile        string        `koanf:"log_file"`
	LogLevel       string        `koanf:"log_level"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DataDir = defaultDataDir()
	c.Backend = "indexed"
	c.RequestTimeout = 30 * time.Second
	c.LogLevel = "info"
}

// DatabasePath is the local store file inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "nestwatch.db")
}

// BlobDir is the photo directory inside DataDir.
func (c *Config) BlobDir() string {
	return filepath.Join(c.DataDir, "blobs")
}

// Load applies defaults, .env, the optional file and the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	// optional
	_ = godotenv.Load()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.DataDir = expandHome(cfg.DataDir)
	return cfg, nil
}

// Override carries values given on the command line; empty fields keep the
// loaded value.
type Override struct {
	ServerURL string
	Token     string
	DataDir   string
	Backend   string
	LogLevel  string
}

func (c *Config) Apply(o Override) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.ServerURL, o.ServerURL)
	set(&c.Token, o.Token)
	set(&c.Backend, o.Backend)
	set(&c.LogLevel, o.LogLevel)
	if o.DataDir != "" {
		c.DataDir = expandHome(o.DataDir)
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "nestwatch")
	}
	return ".nestwatch"
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
