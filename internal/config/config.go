// Package config loads server configuration from an optional YAML file, a
// .env file, and process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Docstore selects and parameterizes the document store driver.
type Docstore struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`     // fs root or sqlite file
	DSN      string `yaml:"dsn"`      // postgres
	Bucket   string `yaml:"bucket"`   // s3
	Region   string `yaml:"region"`   // s3
	Endpoint string `yaml:"endpoint"` // s3 (MinIO)
	// PathStyle forces path-style addressing for S3-compatible endpoints.
	PathStyle bool `yaml:"path_style"`
}

// Bridge sizes the persistence save queue.
type Bridge struct {
	QueueSize    int           `yaml:"queue_size"`
	MaxAttempts  int           `yaml:"max_attempts"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// Config is the full server configuration.
type Config struct {
	ListenAddr      string   `yaml:"listen_addr"`
	AuthErrorPrefix string   `yaml:"auth_error_prefix"`
	PrefsPath       string   `yaml:"prefs_path"`
	Docstore        Docstore `yaml:"docstore"`
	Bridge          Bridge   `yaml:"bridge"`
}

// Default returns the baseline configuration before file and env overrides.
func Default() Config {
	return Config{
		ListenAddr:      ":8080",
		AuthErrorPrefix: "auth: ",
		PrefsPath:       "rentledger-prefs.json",
		Docstore: Docstore{
			Driver: "sqlite",
			Path:   "rentledger.db",
		},
		Bridge: Bridge{
			QueueSize:    16,
			MaxAttempts:  3,
			RetryBackoff: 250 * time.Millisecond,
		},
	}
}

// Load assembles configuration: defaults, then the YAML file at path (or
// $RENTLEDGER_CONFIG when path is empty), then .env, then environment
// variables. A missing config or .env file is not an error.
func Load(path string) (Config, error) {
	// Best-effort .env load so env overrides below see its values.
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("RENTLEDGER_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// fall through to env
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.ListenAddr, "RENTLEDGER_LISTEN_ADDR")
	setString(&cfg.AuthErrorPrefix, "RENTLEDGER_AUTH_ERROR_PREFIX")
	setString(&cfg.PrefsPath, "RENTLEDGER_PREFS_PATH")
	setString(&cfg.Docstore.Driver, "RENTLEDGER_DOCSTORE_DRIVER")
	setString(&cfg.Docstore.Path, "RENTLEDGER_DOCSTORE_PATH")
	setString(&cfg.Docstore.DSN, "RENTLEDGER_POSTGRES_DSN")
	setString(&cfg.Docstore.Bucket, "RENTLEDGER_S3_BUCKET")
	setString(&cfg.Docstore.Region, "RENTLEDGER_S3_REGION")
	setString(&cfg.Docstore.Endpoint, "RENTLEDGER_S3_ENDPOINT")
	setBool(&cfg.Docstore.PathStyle, "RENTLEDGER_S3_PATH_STYLE")
	setInt(&cfg.Bridge.QueueSize, "RENTLEDGER_BRIDGE_QUEUE_SIZE")
	setInt(&cfg.Bridge.MaxAttempts, "RENTLEDGER_BRIDGE_MAX_ATTEMPTS")
	setDuration(&cfg.Bridge.RetryBackoff, "RENTLEDGER_BRIDGE_RETRY_BACKOFF")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
