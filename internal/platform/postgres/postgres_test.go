package postgres

import (
	"testing"
	"time"
)

func TestConfigFromEnvDefaults(t *testing.T) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv() err=%v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}
	if cfg.QueryTimeout != 5*time.Second {
		t.Fatalf("QueryTimeout=%v, want 5s", cfg.QueryTimeout)
	}
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/runs")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "8")
	t.Setenv("DATABASE_QUERY_TIMEOUT", "1500ms")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv() err=%v", err)
	}
	if cfg.URL != "postgres://u:p@db:5432/runs" || cfg.MaxOpenConns != 8 || cfg.QueryTimeout != 1500*time.Millisecond {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"empty url":           func(c *Config) { c.URL = "" },
		"zero ping timeout":   func(c *Config) { c.PingTimeout = 0 },
		"zero query timeout":  func(c *Config) { c.QueryTimeout = 0 },
		"no open conns":       func(c *Config) { c.MaxOpenConns = 0 },
		"idle above open":     func(c *Config) { c.MaxIdleConns = c.MaxOpenConns + 1 },
		"negative lifetime":   func(c *Config) { c.ConnMaxLifetime = -time.Second },
		"negative idle time":  func(c *Config) { c.ConnMaxIdleTime = -time.Second },
		"negative idle conns": func(c *Config) { c.MaxIdleConns = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("Validate() expected error")
			}
		})
	}
}

func TestPingRequiresDB(t *testing.T) {
	if err := Ping(t.Context(), nil, time.Second); err == nil {
		t.Fatalf("Ping(nil) expected error")
	}
}
