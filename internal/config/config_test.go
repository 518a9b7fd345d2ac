package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	workspace := t.TempDir()
	c, err := Load(workspace)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.File.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", c.File.Version)
	}
	want := filepath.Join(workspace, Dir, "state", defaultDatabase)
	if c.DatabasePath() != want {
		t.Fatalf("database = %s, want %s", c.DatabasePath(), want)
	}
	if c.ServerAddress() != "127.0.0.1:8787" {
		t.Fatalf("unexpected server address %s", c.ServerAddress())
	}
	if !c.ServerEnabled() {
		t.Fatalf("server should be enabled by default")
	}
}

func TestInitDirWritesDefaultConfig(t *testing.T) {
	workspace := t.TempDir()
	if err := InitDir(workspace); err != nil {
		t.Fatalf("init dir: %v", err)
	}
	for _, sub := range []string{"logs", "state", "seeds"} {
		if info, err := os.Stat(filepath.Join(workspace, Dir, sub)); err != nil || !info.IsDir() {
			t.Fatalf("expected %s directory: %v", sub, err)
		}
	}
	c, err := Load(workspace)
	if err != nil {
		t.Fatalf("load after init: %v", err)
	}
	if c.User() != "" {
		t.Fatalf("expected empty user, got %q", c.User())
	}
	if c.LogLevel() != "info" {
		t.Fatalf("expected info level, got %q", c.LogLevel())
	}
}

func TestLoadParsesYaml(t *testing.T) {
	workspace := t.TempDir()
	dir := filepath.Join(workspace, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
user: "  ana@example.com "
database: data/qa.db
catalog_seed: seeds/catalog.yaml
server:
  enabled: false
  host: 0.0.0.0
  port: 9900
logging:
  level: DEBUG
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(workspace)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.User() != "ana@example.com" {
		t.Fatalf("user not trimmed: %q", c.User())
	}
	if !strings.HasPrefix(c.DatabasePath(), workspace) {
		t.Fatalf("expected database path to be resolved, got %s", c.DatabasePath())
	}
	if !strings.HasPrefix(c.File.CatalogSeed, workspace) {
		t.Fatalf("expected seed path to be resolved, got %s", c.File.CatalogSeed)
	}
	if c.ServerEnabled() {
		t.Fatalf("expected server disabled")
	}
	if c.ServerAddress() != "0.0.0.0:9900" {
		t.Fatalf("unexpected address %s", c.ServerAddress())
	}
	if c.LogLevel() != "debug" {
		t.Fatalf("expected lowercased level, got %s", c.LogLevel())
	}
}

func TestLoadHonorsEnv(t *testing.T) {
	t.Setenv("QATOOL_USER", "env-user")
	t.Setenv("QATOOL_SERVER_PORT", "9001")
	t.Setenv("QATOOL_SERVER_HOST", "0.0.0.0")
	t.Setenv("QATOOL_SERVER_ENABLED", "false")
	t.Setenv("QATOOL_DB", ":memory:")
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.User() != "env-user" {
		t.Fatalf("expected env user, got %q", c.User())
	}
	if c.ServerAddress() != "0.0.0.0:9001" {
		t.Fatalf("expected env address, got %s", c.ServerAddress())
	}
	if c.ServerEnabled() {
		t.Fatalf("expected enabled=false from env override")
	}
	if c.DatabasePath() != ":memory:" {
		t.Fatalf("expected in-memory database, got %s", c.DatabasePath())
	}
}

func TestLoadValidation(t *testing.T) {
	workspace := t.TempDir()
	dir := filepath.Join(workspace, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("logging:\n  level: loud\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(workspace); err == nil {
		t.Fatalf("expected validation error but got none")
	}
}

func TestSetUserPersists(t *testing.T) {
	workspace := t.TempDir()
	if err := InitDir(workspace); err != nil {
		t.Fatalf("init: %v", err)
	}
	c, err := Load(workspace)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := c.SetUser(" "); err == nil {
		t.Fatalf("expected empty user to be rejected")
	}
	if err := c.SetUser("reviewer-7"); err != nil {
		t.Fatalf("set user: %v", err)
	}
	reloaded, err := Load(workspace)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.User() != "reviewer-7" {
		t.Fatalf("user not persisted, got %q", reloaded.User())
	}
}
