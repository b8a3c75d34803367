package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rkdiff.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_MissingDefaultPathUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"), false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Color != "auto" || cfg.ArgsKey != "Args" || cfg.CheckPaths {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_MissingExplicitPathFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml"), true); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoad_ParsesSettings(t *testing.T) {
	path := writeConfig(t, `
color = "never"
check_paths = true
inline = true
dep_suffixes = ["deps", "libraries"]
args_key = "CommandArgs"
`)
	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Color != "never" || !cfg.CheckPaths || !cfg.Inline {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if len(cfg.DepSuffixes) != 2 || cfg.DepSuffixes[1] != "libraries" {
		t.Errorf("unexpected dep suffixes: %v", cfg.DepSuffixes)
	}
	if cfg.ArgsKey != "CommandArgs" {
		t.Errorf("unexpected args key: %q", cfg.ArgsKey)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `check_paths = true`)
	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.CheckPaths {
		t.Error("expected check_paths to be set")
	}
	if cfg.Color != "auto" || cfg.ArgsKey != "Args" {
		t.Errorf("expected untouched defaults, got %+v", cfg)
	}
}

func TestLoad_RejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, `colour = "always"`)
	if _, err := Load(path, true); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoad_RejectsBadColor(t *testing.T) {
	path := writeConfig(t, `color = "sometimes"`)
	if _, err := Load(path, true); err == nil {
		t.Fatal("expected error for invalid color mode")
	}
}
