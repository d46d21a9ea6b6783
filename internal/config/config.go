package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// AppName names the xdg subdirectories.
const AppName = "collabflow"

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Config represents the application configuration
type Config struct {
	User          UserConfig          `yaml:"user"`
	Store         StoreConfig         `yaml:"store"`
	Relay         RelayConfig         `yaml:"relay"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Auth          AuthConfig          `yaml:"auth"`
	HTTP          HTTPConfig          `yaml:"http"`
	Log           LogConfig           `yaml:"log"`
	Theme         Theme               `yaml:"theme"`

	path string
}

// UserConfig is the signed-in identity for CLI sessions.
type UserConfig struct {
	ID          string `yaml:"id"`
	Email       string `yaml:"email,omitempty"`
	DisplayName string `yaml:"display_name,omitempty"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
	// Path is the sqlite file or badger directory.
	Path     string `yaml:"path,omitempty"`
	RedisURL string `yaml:"redis_url,omitempty"`
	// Prefix namespaces redis keys.
	Prefix string `yaml:"prefix,omitempty"`
}

type RelayConfig struct {
	Socket string `yaml:"socket"`
}

type NotificationsConfig struct {
	// Permission is granted, denied or prompt.
	Permission string `yaml:"permission"`
	// OpenURL is prefixed to notification links opened on click.
	OpenURL string `yaml:"open_url,omitempty"`
}

type AuthConfig struct {
	Secret   string `yaml:"secret,omitempty"`
	JWKSURL  string `yaml:"jwks_url,omitempty"`
	Audience string `yaml:"audience,omitempty"`
	Issuer   string `yaml:"issuer,omitempty"`
	// Token is sent by CLI commands talking to a remote API.
	Token string `yaml:"token,omitempty"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// DefaultPath returns the config file location, honouring COLLABFLOW_CONFIG.
func DefaultPath() string {
	if p := os.Getenv("COLLABFLOW_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load loads config from the user's config directory
// Returns default config if file doesn't exist
func Load() (*Config, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom reads path, fills missing values with defaults and applies
// environment overrides.
func LoadFrom(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	config.path = path
	config.applyEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Path is where Save writes.
func (c *Config) Path() string {
	if c.path == "" {
		return DefaultPath()
	}
	return c.path
}

// Save writes the config back to the file it was loaded from.
func (c *Config) Save() error {
	configPath := c.Path()

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// The file may hold a signing secret.
	return os.WriteFile(configPath, data, 0o600)
}

// Validate rejects unknown enumerations.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite, BackendBadger, BackendRedis:
	default:
		return fmt.Errorf("unknown store backend %q (must be: memory, sqlite, badger, redis)", c.Store.Backend)
	}
	switch c.Notifications.Permission {
	case "granted", "denied", "prompt":
	default:
		return fmt.Errorf("unknown notification permission %q (must be: granted, denied, prompt)", c.Notifications.Permission)
	}
	if c.Store.Backend == BackendRedis && c.Store.RedisURL == "" {
		return fmt.Errorf("store backend redis needs redis_url")
	}
	return nil
}

// applyEnv overrides file values with COLLABFLOW_* variables.
func (c *Config) applyEnv() {
	for env, field := range map[string]*string{
		"COLLABFLOW_USER":         &c.User.ID,
		"COLLABFLOW_STORE":        &c.Store.Backend,
		"COLLABFLOW_STORE_PATH":   &c.Store.Path,
		"COLLABFLOW_REDIS_URL":    &c.Store.RedisURL,
		"COLLABFLOW_SOCKET":       &c.Relay.Socket,
		"COLLABFLOW_PERMISSION":   &c.Notifications.Permission,
		"COLLABFLOW_AUTH_SECRET":  &c.Auth.Secret,
		"COLLABFLOW_JWKS_URL":     &c.Auth.JWKSURL,
		"COLLABFLOW_TOKEN":        &c.Auth.Token,
		"COLLABFLOW_HTTP_ADDR":    &c.HTTP.Addr,
		"COLLABFLOW_LOG_LEVEL":    &c.Log.Level,
		"COLLABFLOW_LOG_FILE":     &c.Log.Path,
		"COLLABFLOW_THEME_PRESET": &c.Theme.Preset,
	} {
		if v, ok := os.LookupEnv(env); ok {
			*field = strings.TrimSpace(v)
		}
	}
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if c.Store.Backend == "" {
		c.Store.Backend = BackendSQLite
	}
	if c.Store.Path == "" {
		switch c.Store.Backend {
		case BackendSQLite:
			c.Store.Path = filepath.Join(xdg.DataHome, AppName, "collabflow.db")
		case BackendBadger:
			c.Store.Path = filepath.Join(xdg.DataHome, AppName, "badger")
		}
	}
	if c.Store.Prefix == "" {
		c.Store.Prefix = AppName
	}
	if c.Relay.Socket == "" {
		c.Relay.Socket = filepath.Join(xdg.StateHome, AppName, "relay.sock")
	}
	if c.Notifications.Permission == "" {
		c.Notifications.Permission = "prompt"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = "127.0.0.1:8787"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Path == "" {
		c.Log.Path = filepath.Join(xdg.StateHome, AppName, "collabflow.log")
	}
	c.Theme.ApplyDefaults()
}
