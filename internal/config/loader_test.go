package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type mapSecrets map[string]string

func (m mapSecrets) GetKV(_ context.Context, path, key string, _ time.Duration) (string, error) {
	v, ok := m[path+"#"+key]
	if !ok {
		return "", fmt.Errorf("no secret %s#%s", path, key)
	}
	return v, nil
}

func writeSite(t *testing.T, body string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "conf"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "conf", fileName), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

const baseYAML = `
http:
  listen_addr: "127.0.0.1:8080"
database:
  driver: sqlite
  dsn: "file:lab.db"
session:
  secret: "vault:secret/lab#session"
uploads:
  dir: static/uploads
  base_url: /static/uploads
admin:
  username: admin
  password: "changeme-please"
`

func TestLoadFrom_DefaultsAndVault(t *testing.T) {
	root := writeSite(t, baseYAML)
	secrets := mapSecrets{"secret/lab#session": strings.Repeat("s", 40)}

	cfg, err := LoadFrom(root, secrets)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Session.Secret != strings.Repeat("s", 40) {
		t.Fatalf("vault value not resolved: %q", cfg.Session.Secret)
	}
	if cfg.Session.TTL != 24*time.Hour {
		t.Errorf("session ttl = %v, want 24h", cfg.Session.TTL)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("cache ttl = %v, want 5m", cfg.Cache.TTL)
	}
	if cfg.Uploads.Dir != filepath.Join(root, "static/uploads") {
		t.Errorf("uploads dir = %q", cfg.Uploads.Dir)
	}
	if cfg.Admin.DisplayName != "admin" {
		t.Errorf("display name = %q", cfg.Admin.DisplayName)
	}
	if Get() != cfg {
		t.Errorf("Get() did not return the cached config")
	}
}

func TestLoadFrom_EnvOverride(t *testing.T) {
	root := writeSite(t, baseYAML)
	t.Setenv("LAB_HTTP__LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("LAB_CACHE__TTL", "90s")
	secrets := mapSecrets{"secret/lab#session": strings.Repeat("k", 32)}

	cfg, err := LoadFrom(root, secrets)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.HTTP.ListenAddr != "0.0.0.0:9090" {
		t.Errorf("listen_addr = %q", cfg.HTTP.ListenAddr)
	}
	if cfg.Cache.TTL != 90*time.Second {
		t.Errorf("cache ttl = %v", cfg.Cache.TTL)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	root := writeSite(t, strings.Replace(baseYAML, "driver: sqlite", "driver: postgres", 1))
	secrets := mapSecrets{"secret/lab#session": strings.Repeat("s", 40)}

	_, err := LoadFrom(root, secrets)
	if err == nil || !strings.Contains(err.Error(), "Config.Database.Driver") {
		t.Fatalf("expected driver validation error, got %v", err)
	}
}

func TestLoadFrom_VaultRefWithoutKey(t *testing.T) {
	root := writeSite(t, strings.Replace(baseYAML, "secret/lab#session", "secret/lab", 1))

	if _, err := LoadFrom(root, mapSecrets{}); err == nil {
		t.Fatal("expected error for vault reference without #key")
	}
}
