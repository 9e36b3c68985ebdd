package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
instance:
  id: feed-client-1
api:
  base_url: https://api.example.com
  access_token: ${TEST_ACCESS_TOKEN}
feed:
  url: wss://feed.example.com/v1
locales:
  default: en
  preload: [en, de]
producers:
  - id: 1
    name: liveodds
    enabled: true
    max_inactivity: 20s
    max_recovery_execution: 15m
  - id: 5
    name: virtual-sports
    enabled: true
    virtual: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAndValidate(t *testing.T) {
	t.Setenv("TEST_ACCESS_TOKEN", "secret-token")

	cfg, err := LoadAndValidate(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}

	if cfg.API.AccessToken != "secret-token" {
		t.Errorf("AccessToken = %q, env var not expanded", cfg.API.AccessToken)
	}
	if cfg.API.Timeout != DefaultAPITimeout {
		t.Errorf("Timeout = %v, want default %v", cfg.API.Timeout, DefaultAPITimeout)
	}
	if cfg.Refresh.Period != DefaultRefreshPeriod {
		t.Errorf("Refresh.Period = %v, want default %v", cfg.Refresh.Period, DefaultRefreshPeriod)
	}
	if cfg.Producers[0].MaxInactivity != 20*time.Second {
		t.Errorf("MaxInactivity = %v, want 20s", cfg.Producers[0].MaxInactivity)
	}

	// The virtual producer got the defaults.
	if cfg.Producers[1].MaxInactivity != DefaultMaxInactivity {
		t.Errorf("virtual MaxInactivity = %v, want default", cfg.Producers[1].MaxInactivity)
	}
	if cfg.Producers[1].MaxRecoveryExecution != DefaultMaxRecoveryExec {
		t.Errorf("virtual MaxRecoveryExecution = %v, want default", cfg.Producers[1].MaxRecoveryExecution)
	}
}

func TestValidate_ProducerBounds(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*FeedConfig)
		wantErr string
	}{
		{
			name:    "inactivity too short",
			mutate:  func(c *FeedConfig) { c.Producers[0].MaxInactivity = 19 * time.Second },
			wantErr: "max_inactivity",
		},
		{
			name:    "inactivity too long",
			mutate:  func(c *FeedConfig) { c.Producers[0].MaxInactivity = 181 * time.Second },
			wantErr: "max_inactivity",
		},
		{
			name:    "recovery execution too short",
			mutate:  func(c *FeedConfig) { c.Producers[0].MaxRecoveryExecution = 14 * time.Minute },
			wantErr: "max_recovery_execution",
		},
		{
			name:    "recovery execution too long",
			mutate:  func(c *FeedConfig) { c.Producers[0].MaxRecoveryExecution = 361 * time.Minute },
			wantErr: "max_recovery_execution",
		},
		{
			name:    "duplicate producer id",
			mutate:  func(c *FeedConfig) { c.Producers[1].ID = 1 },
			wantErr: "duplicate id",
		},
		{
			name:    "missing access token",
			mutate:  func(c *FeedConfig) { c.API.AccessToken = "" },
			wantErr: "access_token",
		},
		{
			name:    "preload missing default locale",
			mutate:  func(c *FeedConfig) { c.Locales.Preload = []string{"de"} },
			wantErr: "preload",
		},
	}

	t.Setenv("TEST_ACCESS_TOKEN", "secret-token")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadWithDefaults(writeConfig(t, validYAML))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if err == nil {
				t.Fatal("Validate succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_JournalRequiresDatabase(t *testing.T) {
	t.Setenv("TEST_ACCESS_TOKEN", "secret-token")

	cfg, err := LoadWithDefaults(writeConfig(t, validYAML+`
journal:
  enabled: true
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate succeeded without database config")
	}

	cfg.Database.Postgres = DBConfig{
		Host: "localhost", Port: 5432, Name: "odds", User: "odds", Password: "pw",
		MaxConns: 10, MinConns: 2, SSLMode: "prefer",
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed with database config: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load succeeded on missing file")
	}
}
