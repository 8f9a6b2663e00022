package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Ledger.MinBet != 1 {
		t.Errorf("expected default min bet 1, got %d", cfg.Ledger.MinBet)
	}
	if !cfg.Database.RunMigrations {
		t.Error("migrations should run by default")
	}
}

func TestLoad_MissingFileIsTolerated(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults, got %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level, got %s", cfg.LogLevel)
	}
}

func TestLoad_TOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pari.toml")
	data := `
log_level = "debug"

[server]
port = "9090"

[ledger]
resolver = "ops-key"
min_bet = 10
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Ledger.Resolver != "ops-key" || cfg.Ledger.MinBet != 10 {
		t.Errorf("unexpected ledger config: %+v", cfg.Ledger)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug level, got %s", cfg.LogLevel)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pari.toml")
	if err := os.WriteFile(path, []byte("[server]\nport = \"9090\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PARI_PORT", "7070")
	t.Setenv("PARI_RESOLVER", "env-key")
	t.Setenv("PARI_MIN_BET", "25")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("env should override file, got port %s", cfg.Server.Port)
	}
	if cfg.Ledger.Resolver != "env-key" || cfg.Ledger.MinBet != 25 {
		t.Errorf("unexpected ledger config: %+v", cfg.Ledger)
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when resolver is unset")
	}

	cfg.Ledger.Resolver = "ops-key"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.Ledger.MinBet = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when min bet is zero")
	}
}
