// Package config loads formflow settings from a YAML file and FORMFLOW_*
// environment variables. Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/clubdesk/formflow/internal/logging"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "formflow.yaml"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the explicit application context handed to every command.
type Config struct {
	Definitions string       `yaml:"definitions" mapstructure:"definitions"`
	LogLevel    string       `yaml:"log_level" mapstructure:"log_level"`
	Theme       string       `yaml:"theme" mapstructure:"theme"`
	MaxInput    int          `yaml:"max_input" mapstructure:"max_input"`
	Store       StoreConfig  `yaml:"store" mapstructure:"store"`
	Server      ServerConfig `yaml:"server" mapstructure:"server"`
	Sink        SinkConfig   `yaml:"sink" mapstructure:"sink"`
}

// StoreConfig selects where in-progress sessions are kept.
type StoreConfig struct {
	Backend string      `yaml:"backend" mapstructure:"backend"`
	Dir     string      `yaml:"dir" mapstructure:"dir"`
	Redis   RedisConfig `yaml:"redis" mapstructure:"redis"`

	// EncryptionKey enables AES-GCM encryption at rest (32 bytes, base64).
	EncryptionKey string   `yaml:"encryption_key,omitempty" mapstructure:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys,omitempty" mapstructure:"fallback_keys"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" mapstructure:"addr"`
	Password string        `yaml:"password,omitempty" mapstructure:"password"`
	DB       int           `yaml:"db" mapstructure:"db"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Prefix   string        `yaml:"prefix" mapstructure:"prefix"`
	LockTTL  time.Duration `yaml:"lock_ttl" mapstructure:"lock_ttl"`
}

type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// SinkConfig configures where submitted registrations go. An empty DSN
// discards them after logging.
type SinkConfig struct {
	SQLite     string `yaml:"sqlite" mapstructure:"sqlite"`
	BcryptCost int    `yaml:"bcrypt_cost,omitempty" mapstructure:"bcrypt_cost"`

	// Hooks points to a hooks.yaml of commands run before the registration
	// is stored.
	Hooks       string        `yaml:"hooks,omitempty" mapstructure:"hooks"`
	HookTimeout time.Duration `yaml:"hook_timeout,omitempty" mapstructure:"hook_timeout"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Definitions: "",
		LogLevel:    "info",
		Theme:       "auto",
		MaxInput:    4096,
		Store: StoreConfig{
			Backend: BackendFile,
			Dir:     filepath.Join(".formflow", "sessions"),
			Redis: RedisConfig{
				Addr:    "localhost:6379",
				TTL:     24 * time.Hour,
				Prefix:  "formflow",
				LockTTL: 10 * time.Second,
			},
		},
		Server: ServerConfig{Port: 8080},
	}
}

// envVars maps environment variables to configuration keys.
var envVars = map[string]string{
	"FORMFLOW_DEFINITIONS":    "definitions",
	"FORMFLOW_LOG_LEVEL":      "log_level",
	"FORMFLOW_THEME":          "theme",
	"FORMFLOW_MAX_INPUT":      "max_input",
	"FORMFLOW_STORE":          "store.backend",
	"FORMFLOW_STORE_DIR":      "store.dir",
	"FORMFLOW_ENCRYPTION_KEY": "store.encryption_key",
	"FORMFLOW_FALLBACK_KEYS":  "store.fallback_keys",
	"FORMFLOW_REDIS_ADDR":     "store.redis.addr",
	"FORMFLOW_REDIS_PASSWORD": "store.redis.password",
	"FORMFLOW_REDIS_DB":       "store.redis.db",
	"FORMFLOW_REDIS_TTL":      "store.redis.ttl",
	"FORMFLOW_REDIS_PREFIX":   "store.redis.prefix",
	"FORMFLOW_REDIS_LOCK_TTL": "store.redis.lock_ttl",
	"FORMFLOW_PORT":           "server.port",
	"FORMFLOW_SQLITE_DSN":     "sink.sqlite",
	"FORMFLOW_BCRYPT_COST":    "sink.bcrypt_cost",
}

// Load reads path (DefaultFile when empty) over the defaults and applies
// environment overrides. A missing default file is not an error; a missing
// explicit path is.
func Load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	overrides := map[string]any{}
	for env, key := range envVars {
		v, ok := lookup(env)
		if !ok {
			continue
		}
		setPath(overrides, strings.Split(key, "."), v)
	}
	if len(overrides) == 0 {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stringToSliceHook,
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(overrides); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

func setPath(m map[string]any, path []string, v string) {
	if len(path) == 1 {
		m[path[0]] = v
		return
	}
	child, ok := m[path[0]].(map[string]any)
	if !ok {
		child = map[string]any{}
		m[path[0]] = child
	}
	setPath(child, path[1:], v)
}

// stringToSliceHook splits comma separated environment values into string
// slices, skipping blanks.
func stringToSliceHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
		return data, nil
	}
	var out []string
	for _, part := range strings.Split(data.(string), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		return fmt.Errorf("unknown store backend %q (memory, file or redis)", c.Store.Backend)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.MaxInput < 0 {
		return fmt.Errorf("max_input must not be negative")
	}
	return nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultFile
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Set updates a user preference by key. Only keys that are safe to persist
// from the command line are accepted.
func (c *Config) Set(key, value string) error {
	switch key {
	case "theme":
		c.Theme = value
	case "log_level":
		if _, err := logging.ParseLevel(value); err != nil {
			return err
		}
		c.LogLevel = value
	case "definitions":
		c.Definitions = value
	case "store":
		prev := c.Store.Backend
		c.Store.Backend = value
		if err := c.Validate(); err != nil {
			c.Store.Backend = prev
			return err
		}
	default:
		return fmt.Errorf("unknown preference %q (theme, log_level, definitions, store)", key)
	}
	return nil
}
