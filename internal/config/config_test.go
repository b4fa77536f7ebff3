package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromPath(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9090
owner: alice
auth:
  enabled: true
  secret: topsecret
database:
  dsn: postgres://localhost/ledger
logging:
  level: debug
  format: json
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Owner != "alice" {
		t.Fatalf("unexpected owner %q", cfg.Owner)
	}
	if !cfg.Auth.Enabled || cfg.Auth.Secret != "topsecret" {
		t.Fatalf("unexpected auth config: %+v", cfg.Auth)
	}
	if cfg.Database.DSN != "postgres://localhost/ledger" {
		t.Fatalf("unexpected dsn %q", cfg.Database.DSN)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadFromPathDefaults(t *testing.T) {
	path := writeConfig(t, "owner: bob\n")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("expected defaults, got %+v", cfg.Server)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected default log level, got %q", cfg.Logging.Level)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "owner: bob\nserver:\n  port: 9000\n")

	t.Setenv("LEDGER_OWNER", "carol")
	t.Setenv("LEDGER_PORT", "9100")
	t.Setenv("LEDGER_AUTH_SECRET", "envsecret")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Owner != "carol" {
		t.Fatalf("env owner override lost, got %q", cfg.Owner)
	}
	if cfg.Server.Port != 9100 {
		t.Fatalf("env port override lost, got %d", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.Secret != "envsecret" {
		t.Fatalf("env secret should enable auth: %+v", cfg.Auth)
	}
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"missing owner", "owner: \"\"\n", "owner is required"},
		{"port out of range", "owner: bob\nserver:\n  port: 70000\n", "out of range"},
		{"auth without secret", "owner: bob\nauth:\n  enabled: true\n", "no secret"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			_, err := LoadFromPath(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
