package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Transport selects how the client talks to the guardian.
type Transport string

const (
	TransportWebSocket Transport = "websocket"
	TransportGRPC      Transport = "grpc"
)

// CredentialBackend selects where the admin password is kept between calls.
type CredentialBackend string

const (
	CredentialSession CredentialBackend = "session"
	CredentialMemory  CredentialBackend = "memory"
)

// Environment variables read by Load.
const (
	EnvAPIURL          = "FM_CONFIG_API"
	EnvTransport       = "GUARDIAN_TRANSPORT"
	EnvCACert          = "GUARDIAN_CA_CERT"
	EnvRequestTimeout  = "GUARDIAN_REQUEST_TIMEOUT"
	EnvDialTimeout     = "GUARDIAN_DIAL_TIMEOUT"
	EnvConsensusGrace  = "GUARDIAN_CONSENSUS_GRACE"
	EnvConfirmAttempts = "GUARDIAN_CONFIRM_ATTEMPTS"
	EnvConfirmInterval = "GUARDIAN_CONFIRM_INTERVAL"
	EnvCredentialStore = "GUARDIAN_CREDENTIAL_STORE"
	EnvSessionDir      = "GUARDIAN_SESSION_DIR"
	EnvLogLevel        = "GUARDIAN_LOG_LEVEL"
)

type Config struct {
	APIURL    string    `yaml:"api_url"`
	Transport Transport `yaml:"transport,omitempty"`
	CACert    string    `yaml:"ca_cert,omitempty"`

	RequestTimeout  time.Duration `yaml:"request_timeout"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
	ConsensusGrace  time.Duration `yaml:"consensus_grace"`
	ConfirmAttempts int           `yaml:"confirm_attempts"`
	ConfirmInterval time.Duration `yaml:"confirm_interval"`

	CredentialStore CredentialBackend `yaml:"credential_store"`
	SessionDir      string            `yaml:"session_dir,omitempty"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		RequestTimeout:  5 * time.Hour,
		DialTimeout:     30 * time.Second,
		ConsensusGrace:  5 * time.Second,
		ConfirmAttempts: 10,
		ConfirmInterval: time.Second,
		CredentialStore: CredentialSession,
		LogLevel:        "info",
	}
}

// Load builds the configuration from defaults, the YAML file at path, a .env
// file and the environment, later sources overriding earlier ones. An empty
// path uses GetConfigPath and tolerates the file being absent; an explicit
// path must exist. A missing API URL is not an error here.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = GetConfigPath()
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := LoadDotEnv(""); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.CACert = expandPath(c.CACert)
	c.SessionDir = expandPath(c.SessionDir)
	return nil
}

// LoadDotEnv loads variables from a .env file without overriding the process
// environment. An empty path means ./.env; a missing file is ignored.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.APIURL = getEnv(EnvAPIURL, c.APIURL)
	c.Transport = Transport(getEnv(EnvTransport, string(c.Transport)))
	c.CACert = expandPath(getEnv(EnvCACert, c.CACert))
	c.CredentialStore = CredentialBackend(getEnv(EnvCredentialStore, string(c.CredentialStore)))
	c.SessionDir = expandPath(getEnv(EnvSessionDir, c.SessionDir))
	c.LogLevel = getEnv(EnvLogLevel, c.LogLevel)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{EnvRequestTimeout, &c.RequestTimeout},
		{EnvDialTimeout, &c.DialTimeout},
		{EnvConsensusGrace, &c.ConsensusGrace},
		{EnvConfirmInterval, &c.ConfirmInterval},
	}
	for _, d := range durations {
		value := os.Getenv(d.key)
		if value == "" {
			continue
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if value := os.Getenv(EnvConfirmAttempts); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvConfirmAttempts, err)
		}
		c.ConfirmAttempts = n
	}

	return nil
}

// Validate checks enum fields and that every timing value is positive.
func (c *Config) Validate() error {
	switch c.Transport {
	case "", TransportWebSocket, TransportGRPC:
	default:
		return fmt.Errorf("unknown transport %q (expected %s or %s)", c.Transport, TransportWebSocket, TransportGRPC)
	}

	switch c.CredentialStore {
	case CredentialSession, CredentialMemory:
	default:
		return fmt.Errorf("unknown credential store %q (expected %s or %s)", c.CredentialStore, CredentialSession, CredentialMemory)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("dial_timeout must be positive")
	}
	if c.ConsensusGrace <= 0 {
		return fmt.Errorf("consensus_grace must be positive")
	}
	if c.ConfirmAttempts < 1 {
		return fmt.Errorf("confirm_attempts must be at least 1")
	}
	if c.ConfirmInterval <= 0 {
		return fmt.Errorf("confirm_interval must be positive")
	}
	return nil
}

// ResolvedTransport returns the configured transport, or infers it from the
// API URL scheme when unset.
func (c *Config) ResolvedTransport() Transport {
	if c.Transport != "" {
		return c.Transport
	}
	if strings.HasPrefix(c.APIURL, "grpc://") || strings.HasPrefix(c.APIURL, "grpcs://") {
		return TransportGRPC
	}
	return TransportWebSocket
}

// Save writes the configuration as YAML to path, creating its directory.
func (c *Config) Save(path string) error {
	if path == "" {
		path = GetConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
