package config

import (
	"testing"
	"time"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost:5432/supplier",
		"REDIS_URL":    "redis://localhost:6379/0",
		"JWT_SECRET":   "test-secret",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultDiscountPercent != 10 {
		t.Fatalf("expected default discount 10, got %v", cfg.DefaultDiscountPercent)
	}
	if cfg.DefaultTaxPercent != 20 {
		t.Fatalf("expected default tax 20, got %v", cfg.DefaultTaxPercent)
	}
	if cfg.DueDateOffset != 7*24*time.Hour {
		t.Fatalf("expected 7 day due date offset, got %v", cfg.DueDateOffset)
	}
	if cfg.HTTPAddr() != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.HTTPAddr())
	}
	if cfg.SessionSweepInterval != time.Hour {
		t.Fatalf("expected hourly session sweep, got %v", cfg.SessionSweepInterval)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "REDIS_URL", "JWT_SECRET"} {
		env := baseEnv()
		env[key] = ""
		if _, err := LoadForTests(env); err == nil {
			t.Fatalf("expected error when %s is missing", key)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["ORDER_DEFAULT_DISCOUNT_PERCENT"] = "5.5"
	env["PORT"] = "9090"
	cfg, err := LoadForTests(env)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultDiscountPercent != 5.5 {
		t.Fatalf("expected discount 5.5, got %v", cfg.DefaultDiscountPercent)
	}
	if cfg.HTTPAddr() != ":9090" {
		t.Fatalf("expected :9090, got %s", cfg.HTTPAddr())
	}
}
