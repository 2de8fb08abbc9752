// Package config assembles the dashboard configuration once at startup,
// either from the environment or from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/animus-labs/aigov-dashboard/internal/artifacts"
	"github.com/animus-labs/aigov-dashboard/internal/platform/auth"
	"github.com/animus-labs/aigov-dashboard/internal/platform/env"
	"github.com/animus-labs/aigov-dashboard/internal/platform/httpserver"
	"github.com/animus-labs/aigov-dashboard/internal/platform/objectstore"
	"github.com/animus-labs/aigov-dashboard/internal/platform/postgres"
	"github.com/animus-labs/aigov-dashboard/internal/repo"
	"gopkg.in/yaml.v3"
)

const (
	ServiceName = "dashboard"

	// FileEnv names the optional YAML config file.
	FileEnv = "DASHBOARD_CONFIG"
)

type Config struct {
	HTTP        httpserver.Config  `yaml:"http"`
	Database    postgres.Config    `yaml:"database"`
	ObjectStore objectstore.Config `yaml:"object_store"`
	Auth        auth.Config        `yaml:"auth"`
	Artifacts   Artifacts          `yaml:"artifacts"`
}

type Artifacts struct {
	LocalRoot    string        `yaml:"local_root"`
	SignedURLTTL time.Duration `yaml:"signed_url_ttl"`
	ListLimit    int           `yaml:"list_limit"`
}

func Default() Config {
	return Config{
		HTTP: httpserver.Config{
			Service:         ServiceName,
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database:    postgres.DefaultConfig(),
		ObjectStore: objectstore.DefaultConfig(),
		Auth:        auth.DefaultConfig(),
		Artifacts: Artifacts{
			LocalRoot:    "docs",
			SignedURLTTL: artifacts.DefaultSignedURLTTL,
			ListLimit:    repo.DefaultRunListLimit,
		},
	}
}

// FromEnvOrFile loads the file named by DASHBOARD_CONFIG when set and the
// environment otherwise.
func FromEnvOrFile() (Config, error) {
	if path := env.String(FileEnv, ""); path != "" {
		return Load(path)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Default()

	cfg.HTTP.Addr = env.String("DASHBOARD_HTTP_ADDR", cfg.HTTP.Addr)
	shutdownTimeout, err := env.Duration("DASHBOARD_SHUTDOWN_TIMEOUT", cfg.HTTP.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.ShutdownTimeout = shutdownTimeout

	if cfg.Database, err = postgres.ConfigFromEnv(); err != nil {
		return Config{}, fmt.Errorf("database: %w", err)
	}
	if cfg.ObjectStore, err = objectstore.ConfigFromEnv(); err != nil {
		return Config{}, fmt.Errorf("object store: %w", err)
	}
	if cfg.Auth, err = auth.ConfigFromEnv(); err != nil {
		return Config{}, fmt.Errorf("auth: %w", err)
	}

	cfg.Artifacts.LocalRoot = env.String("ARTIFACTS_LOCAL_ROOT", cfg.Artifacts.LocalRoot)
	ttl, err := env.Seconds("ARTIFACTS_SIGNED_URL_TTL_SECONDS", cfg.Artifacts.SignedURLTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.Artifacts.SignedURLTTL = ttl
	limit, err := env.Int("RUNS_LIST_LIMIT", cfg.Artifacts.ListLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.Artifacts.ListLimit = limit

	return cfg, cfg.Validate()
}

// Load reads a YAML file over the defaults. ${VAR} references are expanded
// from the environment before parsing.
func Load(path string) (Config, error) {
	// #nosec G304 -- path is operator-provided config path.
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	expanded := os.ExpandEnv(string(raw))
	expanded = strings.ReplaceAll(expanded, "\r\n", "\n")

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.HTTP.Service = ServiceName
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return errors.New("http.addr is required")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return errors.New("http.shutdown_timeout must be positive")
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.ObjectStore.Validate(); err != nil {
		return fmt.Errorf("object_store: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if c.Artifacts.SignedURLTTL <= 0 {
		return errors.New("artifacts.signed_url_ttl must be positive")
	}
	if c.Artifacts.SignedURLTTL > 7*24*time.Hour {
		return errors.New("artifacts.signed_url_ttl must not exceed 7 days")
	}
	if c.Artifacts.ListLimit < 1 || c.Artifacts.ListLimit > repo.MaxRunListLimit {
		return fmt.Errorf("artifacts.list_limit must be within 1..%d", repo.MaxRunListLimit)
	}
	return nil
}

// Buckets maps the object store config onto artifact kinds.
func (c Config) Buckets() artifacts.Buckets {
	return artifacts.Buckets{
		Packs:    c.ObjectStore.BucketPacks,
		Audit:    c.ObjectStore.BucketAudit,
		Evidence: c.ObjectStore.BucketEvidence,
	}
}
