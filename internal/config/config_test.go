package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "LOG_DIR", "DEBUG_MODE", "STEP_RUN_DELAY_MS", "STEP_GAP_DELAY_MS", "SESSION_TTL_MINUTES", "CATALOG_PATH", "RUN_RATE_LIMIT_PER_MINUTE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("unexpected port %q", cfg.Port)
	}
	if cfg.StepRunDelay != 650*time.Millisecond || cfg.StepGapDelay != 250*time.Millisecond {
		t.Fatalf("unexpected delays run=%v gap=%v", cfg.StepRunDelay, cfg.StepGapDelay)
	}
	if cfg.SessionTTL != time.Hour {
		t.Fatalf("unexpected ttl %v", cfg.SessionTTL)
	}
	if got := GetCurrentConfig(); got.Port != cfg.Port {
		t.Fatalf("GetCurrentConfig port=%q", got.Port)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEBUG_MODE", "false")
	t.Setenv("STEP_RUN_DELAY_MS", "10")
	t.Setenv("STEP_GAP_DELAY_MS", "0")
	t.Setenv("SESSION_TTL_MINUTES", "5")
	t.Setenv("RUN_RATE_LIMIT_PER_MINUTE", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || cfg.DebugMode {
		t.Fatalf("unexpected cfg %#v", cfg)
	}
	if cfg.StepRunDelay != 10*time.Millisecond || cfg.StepGapDelay != 0 {
		t.Fatalf("unexpected delays run=%v gap=%v", cfg.StepRunDelay, cfg.StepGapDelay)
	}
	if cfg.SessionTTL != 5*time.Minute || cfg.RunRateLimit != 3 {
		t.Fatalf("unexpected ttl/limit %v/%d", cfg.SessionTTL, cfg.RunRateLimit)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Port = "http" }, wantErr: true},
		{name: "negative delay", mutate: func(c *Config) { c.StepGapDelay = -time.Second }, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.SessionTTL = 0 }, wantErr: true},
		{name: "zero limit", mutate: func(c *Config) { c.RunRateLimit = 0 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate err=%v wantErr=%v", err, tt.wantErr)
			}
		})
	}
}
