package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8790" {
		t.Fatalf("expected default port 8790, got %s", cfg.Port)
	}
	if cfg.StorageBackend != "memory" {
		t.Fatalf("expected memory backend by default, got %s", cfg.StorageBackend)
	}
	if cfg.SpamBlock != 0.5 || cfg.NSFWBlock != 0.6 || cfg.ToxicityBlock != 0.7 {
		t.Fatalf("unexpected default thresholds %+v", cfg)
	}
	if cfg.SpamAction != "block" {
		t.Fatalf("expected default spam action block, got %s", cfg.SpamAction)
	}
	if cfg.ReputationStart != 100 || cfg.ReputationFloor != 0 || cfg.ReputationCeiling != 1000 {
		t.Fatalf("unexpected reputation defaults %+v", cfg)
	}
	if cfg.ReviewerTokenTTL != 12*time.Hour {
		t.Fatalf("expected 12h reviewer token TTL, got %s", cfg.ReviewerTokenTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORAGE_BACKEND", "external")
	t.Setenv("SPAM_ACTION", "flag")
	t.Setenv("TOXICITY_BLOCK_THRESHOLD", "0.9")
	t.Setenv("READ_TIMEOUT", "30")
	t.Setenv("WRITE_TIMEOUT", "2s")
	t.Setenv("ANALYTICS_ENABLED", "true")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Fatalf("expected port 9000, got %s", cfg.Port)
	}
	if cfg.StorageBackend != "external" {
		t.Fatalf("expected external backend, got %s", cfg.StorageBackend)
	}
	if cfg.SpamAction != "flag" {
		t.Fatalf("expected spam action flag, got %s", cfg.SpamAction)
	}
	if cfg.ToxicityBlock != 0.9 {
		t.Fatalf("expected toxicity block 0.9, got %v", cfg.ToxicityBlock)
	}
	if cfg.ReadTimeout != 30*time.Second {
		t.Fatalf("bare numbers parse as seconds, got %s", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 2*time.Second {
		t.Fatalf("expected 2s write timeout, got %s", cfg.WriteTimeout)
	}
	if !cfg.AnalyticsEnabled {
		t.Fatal("expected analytics enabled")
	}
}

func TestEnvParsersFallBackOnGarbage(t *testing.T) {
	t.Setenv("READ_TIMEOUT", "soon")
	t.Setenv("TOXICITY_BLOCK_THRESHOLD", "very high")
	t.Setenv("ANALYTICS_ENABLED", "yep")
	t.Setenv("DB_MAX_OPEN_CONNS", "lots")

	cfg := Load()

	if cfg.ReadTimeout != 5*time.Second {
		t.Fatalf("expected default read timeout, got %s", cfg.ReadTimeout)
	}
	if cfg.ToxicityBlock != 0.7 {
		t.Fatalf("expected default toxicity block, got %v", cfg.ToxicityBlock)
	}
	if cfg.AnalyticsEnabled {
		t.Fatal("expected analytics to stay disabled on a bad value")
	}
	if cfg.DBMaxOpenConns != 25 {
		t.Fatalf("expected default pool size, got %d", cfg.DBMaxOpenConns)
	}
}
