package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("CACHE_GEMELOS_TTL_SECONDS", "")
	t.Setenv("UPLOAD_REQUIRE_AUTH", "")

	cfg := Load()
	if cfg.AdminPassword != "" {
		t.Fatalf("expected no default admin password, got %q", cfg.AdminPassword)
	}
	if cfg.StoreBackend != "firestore" {
		t.Fatalf("expected firestore backend, got %q", cfg.StoreBackend)
	}
	if cfg.GemelosCacheTTL != 30*time.Second {
		t.Fatalf("expected 30s gemelos ttl, got %s", cfg.GemelosCacheTTL)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("expected 24h session ttl, got %s", cfg.SessionTTL)
	}
	if !cfg.UploadRequireAuth {
		t.Fatal("expected uploads to require auth by default")
	}
}

func TestLoadUnescapesPrivateKeys(t *testing.T) {
	t.Setenv("GOOGLE_PRIVATE_KEY", `-----BEGIN-----\nabc\n-----END-----`)
	cfg := Load()
	if cfg.Sheets.PrivateKey != "-----BEGIN-----\nabc\n-----END-----" {
		t.Fatalf("unexpected key %q", cfg.Sheets.PrivateKey)
	}
}

func TestLoadFallsBackOnMalformedNumbers(t *testing.T) {
	t.Setenv("CACHE_MARCAS_TTL_SECONDS", "soon")
	t.Setenv("UPLOAD_REQUIRE_AUTH", "maybe")
	cfg := Load()
	if cfg.MarcasCacheTTL != 5*time.Minute {
		t.Fatalf("expected 5m fallback, got %s", cfg.MarcasCacheTTL)
	}
	if !cfg.UploadRequireAuth {
		t.Fatal("expected fallback to true")
	}
}

func TestSheetsConfigured(t *testing.T) {
	if (SheetsConfig{SpreadsheetID: "x"}).Configured() {
		t.Fatal("expected partial sheets config to be unconfigured")
	}
	if !(SheetsConfig{SpreadsheetID: "x", ServiceAccountEmail: "a@b", PrivateKey: "k"}).Configured() {
		t.Fatal("expected full sheets config to be configured")
	}
}
