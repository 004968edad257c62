package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != defaultBaseURL {
		t.Fatalf("unexpected base url: %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.RequestTimeout)
	}
	if cfg.RatePerSec <= 0 || cfg.RateBurst <= 0 {
		t.Fatalf("unexpected rate defaults: %d/%d", cfg.RatePerSec, cfg.RateBurst)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("NOVUS_API_BASE_URL", "http://localhost:8000")
	t.Setenv("NOVUS_REQUEST_TIMEOUT", "5s")
	t.Setenv("NOVUS_RESET_DELAY", "0s")
	t.Setenv("NOVUS_VERBOSE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:8000" {
		t.Fatalf("unexpected base url: %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.RequestTimeout)
	}
	if cfg.ResetDelay != 0 {
		t.Fatalf("unexpected reset delay: %v", cfg.ResetDelay)
	}
	if !cfg.Verbose {
		t.Fatal("expected verbose")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("NOVUS_API_BASE_URL", "ftp://example.com")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-http base url")
	}
}
