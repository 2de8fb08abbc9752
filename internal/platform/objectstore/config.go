package objectstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/animus-labs/aigov-dashboard/internal/platform/env"
)

// Config points at the S3-compatible store holding run artifacts. Each
// artifact kind lives in its own bucket under the same object naming.
type Config struct {
	Endpoint       string `yaml:"endpoint"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	Region         string `yaml:"region"`
	UseSSL         bool   `yaml:"use_ssl"`
	BucketPacks    string `yaml:"bucket_packs"`
	BucketAudit    string `yaml:"bucket_audit"`
	BucketEvidence string `yaml:"bucket_evidence"`
}

func DefaultConfig() Config {
	return Config{
		Endpoint:       "localhost:9000",
		AccessKey:      "aigov",
		SecretKey:      "aigovminio",
		Region:         "us-east-1",
		BucketPacks:    "packs",
		BucketAudit:    "audit",
		BucketEvidence: "evidence",
	}
}

func ConfigFromEnv() (Config, error) {
	def := DefaultConfig()
	useSSL, err := env.Bool("AIGOV_STORAGE_USE_SSL", def.UseSSL)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:       env.String("AIGOV_STORAGE_ENDPOINT", def.Endpoint),
		AccessKey:      env.String("AIGOV_STORAGE_ACCESS_KEY", def.AccessKey),
		SecretKey:      env.String("AIGOV_STORAGE_SECRET_KEY", def.SecretKey),
		Region:         env.String("AIGOV_STORAGE_REGION", def.Region),
		UseSSL:         useSSL,
		BucketPacks:    env.String("AIGOV_STORAGE_BUCKET_PACKS", def.BucketPacks),
		BucketAudit:    env.String("AIGOV_STORAGE_BUCKET_AUDIT", def.BucketAudit),
		BucketEvidence: env.String("AIGOV_STORAGE_BUCKET_EVIDENCE", def.BucketEvidence),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}

	seen := make(map[string]string, 3)
	for _, b := range c.buckets() {
		name := strings.TrimSpace(b.name)
		if name == "" {
			return fmt.Errorf("%s bucket is required", b.label)
		}
		if other, ok := seen[name]; ok {
			return fmt.Errorf("%s and %s buckets must differ (both %q)", other, b.label, name)
		}
		seen[name] = b.label
	}
	return nil
}

type namedBucket struct {
	label string
	name  string
}

func (c Config) buckets() []namedBucket {
	return []namedBucket{
		{label: "packs", name: c.BucketPacks},
		{label: "audit", name: c.BucketAudit},
		{label: "evidence", name: c.BucketEvidence},
	}
}
