package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadYAMLByDefaultExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.yaml")
	yamlBody := "persistence:\n  enabled: true\n  storage_key: \"m1\"\n  compression_level: 3\nvisualization:\n  export_format: \"Dot\"\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var cfg HostConfig
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Persistence.Enabled {
		t.Error("Persistence.Enabled = false, want true")
	}
	if cfg.Persistence.StorageKey != "m1" {
		t.Errorf("StorageKey = %q, want m1", cfg.Persistence.StorageKey)
	}
	if cfg.Persistence.CompressionLevel != 3 {
		t.Errorf("CompressionLevel = %d, want 3", cfg.Persistence.CompressionLevel)
	}
	if cfg.Visualization.ExportFormat != "Dot" {
		t.Errorf("ExportFormat = %q, want Dot", cfg.Visualization.ExportFormat)
	}
}

func TestLoadJSONByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.json")
	jsonBody := `{"persistence":{"enabled":true,"max_size":1024},"visualization":{"export_format":"Json"}}`
	if err := os.WriteFile(path, []byte(jsonBody), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var cfg HostConfig
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Persistence.MaxSize != 1024 {
		t.Errorf("MaxSize = %d, want 1024", cfg.Persistence.MaxSize)
	}
	if cfg.Visualization.ExportFormat != "Json" {
		t.Errorf("ExportFormat = %q, want Json", cfg.Visualization.ExportFormat)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	var cfg HostConfig
	if err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &cfg); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoadMalformedYAMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("persistence: [this is not: a map"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var cfg HostConfig
	if err := Load(path, &cfg); err == nil {
		t.Error("expected an error for malformed yaml")
	}
}

func TestApplyEnvOverridesSetsNestedFields(t *testing.T) {
	cfg := HostConfig{}
	t.Setenv("STATECORE_PERSISTENCE_ENABLED", "true")
	t.Setenv("STATECORE_PERSISTENCE_MAXSIZE", "2048")
	t.Setenv("STATECORE_PERSISTENCE_BACKUP_MAXBACKUPS", "7")
	t.Setenv("STATECORE_VISUALIZATION_EXPORTFORMAT", "Mermaid")

	if err := ApplyEnvOverrides("", &cfg); err != nil {
		t.Fatalf("ApplyEnvOverrides() error = %v", err)
	}
	if !cfg.Persistence.Enabled {
		t.Error("Persistence.Enabled = false, want true")
	}
	if cfg.Persistence.MaxSize != 2048 {
		t.Errorf("MaxSize = %d, want 2048", cfg.Persistence.MaxSize)
	}
	if cfg.Persistence.Backup.MaxBackups != 7 {
		t.Errorf("Backup.MaxBackups = %d, want 7", cfg.Persistence.Backup.MaxBackups)
	}
	if cfg.Visualization.ExportFormat != "Mermaid" {
		t.Errorf("ExportFormat = %q, want Mermaid", cfg.Visualization.ExportFormat)
	}
}

func TestApplyEnvOverridesHonorsCustomPrefix(t *testing.T) {
	cfg := HostConfig{}
	t.Setenv("MYAPP_PERSISTENCE_ENABLED", "true")
	t.Setenv("STATECORE_PERSISTENCE_ENABLED", "true")

	if err := ApplyEnvOverrides("MYAPP", &cfg); err != nil {
		t.Fatalf("ApplyEnvOverrides() error = %v", err)
	}
	if !cfg.Persistence.Enabled {
		t.Error("Persistence.Enabled = false, want true under the MYAPP prefix")
	}
}

func TestApplyEnvOverridesLeavesUnsetFieldsAlone(t *testing.T) {
	cfg := HostConfig{Persistence: PersistenceConfig{StorageKey: "unchanged"}}
	if err := ApplyEnvOverrides("STATECORE", &cfg); err != nil {
		t.Fatalf("ApplyEnvOverrides() error = %v", err)
	}
	if cfg.Persistence.StorageKey != "unchanged" {
		t.Errorf("StorageKey = %q, want unchanged", cfg.Persistence.StorageKey)
	}
}

func TestApplyEnvOverridesRejectsNonPointer(t *testing.T) {
	cfg := HostConfig{}
	if err := ApplyEnvOverrides("STATECORE", cfg); err == nil {
		t.Error("expected an error when target is not a pointer")
	}
}

func TestApplyEnvOverridesRejectsPointerToNonStruct(t *testing.T) {
	n := 1
	if err := ApplyEnvOverrides("STATECORE", &n); err == nil {
		t.Error("expected an error when target does not point to a struct")
	}
}

func TestApplyEnvOverridesBadIntValueIsError(t *testing.T) {
	cfg := HostConfig{}
	t.Setenv("STATECORE_PERSISTENCE_MAXSIZE", "not-a-number")
	if err := ApplyEnvOverrides("STATECORE", &cfg); err == nil {
		t.Error("expected an error for a non-numeric MAXSIZE override")
	}
}

func TestLoadWithEnvAppliesOverridesAfterLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.yaml")
	if err := os.WriteFile(path, []byte("persistence:\n  storage_key: \"from-file\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("STATECORE_PERSISTENCE_STORAGEKEY", "from-env")

	var cfg HostConfig
	if err := LoadWithEnv(path, "STATECORE", &cfg); err != nil {
		t.Fatalf("LoadWithEnv() error = %v", err)
	}
	if cfg.Persistence.StorageKey != "from-env" {
		t.Errorf("StorageKey = %q, want from-env to win over the file value", cfg.Persistence.StorageKey)
	}
}
