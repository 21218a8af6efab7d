package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "encounter.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeConfig(t, `
[simulation]
seed = 42

[costs]
move = 80
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Simulation.Seed != 42 {
		t.Errorf("seed = %d, want 42", cfg.Simulation.Seed)
	}
	if cfg.Costs.Move != 80 {
		t.Errorf("move cost = %d, want 80", cfg.Costs.Move)
	}
	if cfg.Costs.Attack != 100 {
		t.Errorf("attack cost = %d, want default 100", cfg.Costs.Attack)
	}
	if cfg.Simulation.LostTargetTurns != 3 {
		t.Errorf("lost_target_turns = %d, want 3", cfg.Simulation.LostTargetTurns)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[simulation]
seed = 42

[logging]
level = "warn"
`)
	t.Setenv("ENCOUNTER_SEED", "7")
	t.Setenv("ENCOUNTER_LOG_LEVEL", "debug")
	t.Setenv("ENCOUNTER_JOURNAL", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Simulation.Seed != 7 {
		t.Errorf("seed = %d, want 7 from env", cfg.Simulation.Seed)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug", cfg.Logging.Level)
	}
	if !cfg.Journal.Enabled {
		t.Error("journal not enabled from env")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file: expected error")
	}
	if _, err := Load(writeConfig(t, "[simulation\nseed = ")); err == nil {
		t.Error("bad toml: expected error")
	}
	t.Setenv("ENCOUNTER_SEED", "many")
	if _, err := Default(); err == nil {
		t.Error("bad env value: expected error")
	}
}

func TestPath(t *testing.T) {
	t.Setenv("ENCOUNTER_CONFIG", "")
	if got := Path(); got != DefaultPath {
		t.Errorf("Path() = %q, want %q", got, DefaultPath)
	}
	t.Setenv("ENCOUNTER_CONFIG", "/etc/encounter.toml")
	if got := Path(); got != "/etc/encounter.toml" {
		t.Errorf("Path() = %q", got)
	}
}
