package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joeshaw/envdecode"
)

type TLSConfig struct {
	Mode     string `json:"mode" env:"TIMESTREAM_TLS_MODE"` // "self-signed", "manual", or "" (disabled)
	CertFile string `json:"certFile"`                       // required for manual
	KeyFile  string `json:"keyFile"`                        // required for manual
	CacheDir string `json:"cacheDir"`                       // for self-signed; defaults to ~/.timestream/certs
}

type AuthConfig struct {
	JWTSecret string `json:"jwtSecret" env:"TIMESTREAM_JWT_SECRET"`
	TokenTTL  string `json:"tokenTTL"`
}

type WebserverConfig struct {
	Port int        `json:"port" env:"TIMESTREAM_PORT"`
	Host string     `json:"host" env:"TIMESTREAM_HOST"`
	TLS  TLSConfig  `json:"tls"`
	Auth AuthConfig `json:"auth"`
}

type StreamConfig struct {
	Interval string `json:"interval" env:"TIMESTREAM_STREAM_INTERVAL"`
}

type Config struct {
	Webserver WebserverConfig `json:"webserver"`
	Stream    StreamConfig    `json:"stream"`
	LogDir    string          `json:"logDir" env:"TIMESTREAM_LOG_DIR"`
	LogLevel  string          `json:"logLevel" env:"TIMESTREAM_LOG_LEVEL"`
	// LogRetainDays is how many daily log files are kept; 0 keeps them all.
	LogRetainDays int    `json:"logRetainDays" env:"TIMESTREAM_LOG_RETAIN_DAYS"`
	DBPath        string `json:"dbPath" env:"TIMESTREAM_DB_PATH"`
}

func baseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".timestream")
}

func Defaults() Config {
	return Config{
		Webserver: WebserverConfig{
			Port: 8080,
			Host: "0.0.0.0",
			TLS:  TLSConfig{CacheDir: filepath.Join(baseDir(), "certs")},
			Auth: AuthConfig{TokenTTL: "24h"},
		},
		Stream:        StreamConfig{Interval: "1s"},
		LogDir:        filepath.Join(baseDir(), "logs"),
		LogLevel:      "info",
		LogRetainDays: 7,
		DBPath:        filepath.Join(baseDir(), "catalog.db"),
	}
}

func DefaultPath() string {
	return filepath.Join(baseDir(), "config.json")
}

// LoadFile reads the config file at path over Defaults. A missing file is
// not an error. Environment overrides are not applied, so the result is
// safe to write back with Save.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Load is LoadFile followed by any TIMESTREAM_* environment overrides.
func Load(path string) (Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return cfg, fmt.Errorf("env overrides: %w", err)
	}
	return cfg, nil
}

// StreamInterval parses Stream.Interval, returning 0 when it is empty.
func (c Config) StreamInterval() (time.Duration, error) {
	if c.Stream.Interval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Stream.Interval)
	if err != nil {
		return 0, fmt.Errorf("stream interval: %w", err)
	}
	return d, nil
}

// TokenTTL parses Webserver.Auth.TokenTTL, defaulting to 24h.
func (c Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.Webserver.Auth.TokenTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// Save writes cfg to path as indented JSON, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureJWTSecret fills in a random secret when none is configured and
// persists it to path so issued tokens survive restarts. Only the secret is
// added to what is already on disk; values that came from the environment
// or from flags stay out of the file.
func EnsureJWTSecret(path string, cfg *Config) error {
	if cfg.Webserver.Auth.JWTSecret != "" {
		return nil
	}
	onDisk, err := LoadFile(path)
	if err != nil {
		return err
	}
	if onDisk.Webserver.Auth.JWTSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return err
		}
		onDisk.Webserver.Auth.JWTSecret = hex.EncodeToString(b)
		if err := Save(path, onDisk); err != nil {
			return err
		}
	}
	cfg.Webserver.Auth.JWTSecret = onDisk.Webserver.Auth.JWTSecret
	return nil
}
