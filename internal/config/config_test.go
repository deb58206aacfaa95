package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BLOB_BACKEND", "R2")
	t.Setenv("JWT_ACCESS_TTL", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", " http://a.test , ,http://b.test")
	t.Setenv("UPLOAD_MAX_BYTES", "2048")

	cfg := Load()

	if cfg.BlobBackend != BlobBackendR2 {
		t.Fatalf("expected backend %q, got %q", BlobBackendR2, cfg.BlobBackend)
	}
	if cfg.JWTAccessTTL != 12*time.Hour {
		t.Fatalf("expected fallback ttl 12h, got %s", cfg.JWTAccessTTL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "http://a.test" || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %#v", cfg.AllowedOrigins)
	}
	if cfg.UploadMaxBytes != 2048 {
		t.Fatalf("expected upload limit 2048, got %d", cfg.UploadMaxBytes)
	}
}

func TestUsesMemoryStore(t *testing.T) {
	cfg := &Config{}
	if !cfg.UsesMemoryStore() {
		t.Fatal("expected memory store without DATABASE_URL")
	}
	cfg.DatabaseURL = "postgres://localhost/gallery"
	if cfg.UsesMemoryStore() {
		t.Fatal("expected postgres store with DATABASE_URL")
	}
}
