package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("DEV_HOME", "")
	t.Setenv("STORAGE_TYPE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Credentials.Mode != CredentialDefault {
		t.Errorf("credentials mode: got %q, want %q", cfg.Credentials.Mode, CredentialDefault)
	}
	if want := filepath.Join(home, "dev"); cfg.DevHome != want {
		t.Errorf("dev home: got %q, want %q", cfg.DevHome, want)
	}
	if cfg.StorageType != "sqlite" {
		t.Errorf("storage type: got %q, want %q", cfg.StorageType, "sqlite")
	}
}

func TestLoadExplicitToken(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_testtoken")
	t.Setenv("DEV_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Credentials.Mode != CredentialExplicit {
		t.Errorf("credentials mode: got %q, want %q", cfg.Credentials.Mode, CredentialExplicit)
	}
	token, err := cfg.Credentials.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if token != "ghp_testtoken" {
		t.Errorf("token: got %q, want %q", token, "ghp_testtoken")
	}
}

func TestDefaultCredentialsReadFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	credDir := filepath.Join(home, ".config", "orgsync")
	if err := os.MkdirAll(credDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(credDir, "token"), []byte("ghp_filetoken\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	token, err := DefaultCredentials().Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if token != "ghp_filetoken" {
		t.Errorf("token: got %q, want %q", token, "ghp_filetoken")
	}
}

func TestDefaultCredentialsMissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if _, err := DefaultCredentials().Resolve(); err == nil {
		t.Fatal("expected error for missing credential file")
	}
}

func TestValidateDevHomeMustExist(t *testing.T) {
	cfg := &Config{
		DevHome:     filepath.Join(t.TempDir(), "does-not-exist"),
		StorageType: "sqlite",
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing dev home")
	}
	cfgErr, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("error type: got %T, want *ConfigError", err)
	}
	if cfgErr.Field != "DEV_HOME" {
		t.Errorf("field: got %q, want %q", cfgErr.Field, "DEV_HOME")
	}
}

func TestValidateStorageType(t *testing.T) {
	cfg := &Config{
		DevHome:     t.TempDir(),
		StorageType: "redis",
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown storage type")
	}

	cfg.StorageType = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for postgres without URL")
	}

	cfg.PostgresURL = "postgres://localhost/orgsync"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}
