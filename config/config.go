// Package config loads the host-facing configuration a statecore-backed
// application uses to wire up persistence, backups, and visualization —
// the "enabled / storage_key / auto_save / ... / backup_config / …"
// option blocks of spec.md sections 4.4-4.6. Adapted from the teacher's
// pkg/config (YAML-or-JSON-by-extension loading via yaml.v3, plus
// prefixed environment overrides via reflection, STATECORE_ by default),
// trimmed of the
// HTTP-server-specific config shapes that package also carried.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// PersistenceConfig mirrors spec.md section 4.4's recognized options.
type PersistenceConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	StorageKey       string `yaml:"storage_key" json:"storage_key"`
	AutoSave         bool   `yaml:"auto_save" json:"auto_save"`
	AutoRestore      bool   `yaml:"auto_restore" json:"auto_restore"`
	MaxSize          int64  `yaml:"max_size" json:"max_size"`
	CompressionLevel int    `yaml:"compression_level" json:"compression_level"`
	Encrypt          bool   `yaml:"encrypt" json:"encrypt"`
	Backup           BackupConfig `yaml:"backup_config" json:"backup_config"`
}

// BackupConfig mirrors spec.md section 4.4's backup_config sub-block.
type BackupConfig struct {
	MaxBackups         int  `yaml:"max_backups" json:"max_backups"`
	AutoBackup         bool `yaml:"auto_backup" json:"auto_backup"`
	BackupIntervalSecs int  `yaml:"backup_interval_secs" json:"backup_interval_secs"`
	CompressBackups    bool `yaml:"compress_backups" json:"compress_backups"`
}

// VisualizationConfig mirrors spec.md section 4.6's VisualizationConfig.
type VisualizationConfig struct {
	Enabled            bool   `yaml:"enabled" json:"enabled"`
	UpdateIntervalMs   uint32 `yaml:"update_interval_ms" json:"update_interval_ms"`
	MaxHistory         uint32 `yaml:"max_history" json:"max_history"`
	CaptureSnapshots   bool   `yaml:"capture_snapshots" json:"capture_snapshots"`
	EnableTimeTravel   bool   `yaml:"enable_time_travel" json:"enable_time_travel"`
	ShowTransitions    bool   `yaml:"show_transitions" json:"show_transitions"`
	ShowContextChanges bool   `yaml:"show_context_changes" json:"show_context_changes"`
	ShowActions        bool   `yaml:"show_actions" json:"show_actions"`
	ShowGuards         bool   `yaml:"show_guards" json:"show_guards"`
	ExportFormat       string `yaml:"export_format" json:"export_format"`
}

// HostConfig is the top-level document a host application loads to
// configure a statecore Instance.
type HostConfig struct {
	Persistence  PersistenceConfig  `yaml:"persistence" json:"persistence"`
	Visualization VisualizationConfig `yaml:"visualization" json:"visualization"`
}

// Load reads path (YAML by default; JSON when the extension is .json)
// into target.
func Load(path string, target interface{}) error {
	if strings.HasSuffix(path, ".json") {
		return loadJSON(path, target)
	}
	return loadYAML(path, target)
}

// LoadWithEnv loads path and then applies environment variable overrides
// named with prefix (STATECORE when prefix is empty) via
// ApplyEnvOverrides.
func LoadWithEnv(path, prefix string, target interface{}) error {
	if err := Load(path, target); err != nil {
		return err
	}
	return ApplyEnvOverrides(prefix, target)
}

func loadYAML(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("config: parse YAML %s: %w", path, err)
	}
	return nil
}

func loadJSON(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("config: parse JSON %s: %w", path, err)
	}
	return nil
}

// ApplyEnvOverrides walks target's exported fields and, for each leaf
// field, checks an environment variable named "<PREFIX>_<FIELD>_<SUB>..."
// (uppercased), setting the field if present.
func ApplyEnvOverrides(prefix string, target interface{}) error {
	if prefix == "" {
		prefix = "STATECORE"
	}
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: ApplyEnvOverrides target must be a pointer to a struct")
	}
	return applyEnvToStruct(prefix, v.Elem())
}

func applyEnvToStruct(prefix string, val reflect.Value) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := val.Field(i)
		envName := prefix + "_" + strings.ToUpper(field.Name)

		if fv.Kind() == reflect.Struct {
			if err := applyEnvToStruct(envName, fv); err != nil {
				return err
			}
			continue
		}

		raw, ok := os.LookupEnv(envName)
		if !ok {
			continue
		}
		if err := setFieldFromString(fv, raw); err != nil {
			return fmt.Errorf("config: env %s: %w", envName, err)
		}
	}
	return nil
}

func setFieldFromString(fv reflect.Value, raw string) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return err
		}
		fv.SetUint(n)
	default:
		return fmt.Errorf("unsupported field kind %s", fv.Kind())
	}
	return nil
}
