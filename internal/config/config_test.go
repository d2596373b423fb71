package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/evanschultz/todoterm/internal/app"
	"github.com/evanschultz/todoterm/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Storage.Backend != BackendJSON {
		t.Fatalf("unexpected backend %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Path != "" {
		t.Fatalf("expected empty default store path, got %q", cfg.Storage.Path)
	}
	if cfg.Input.ChordTimeoutTicks != 10 || cfg.Input.ActionResetTicks != 20 {
		t.Fatalf("unexpected tick thresholds %#v", cfg.Input)
	}
	interval, err := cfg.TickInterval()
	if err != nil {
		t.Fatalf("TickInterval() error = %v", err)
	}
	if interval != 100*time.Millisecond {
		t.Fatalf("unexpected tick interval %s", interval)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default()
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Backend != defaults.Storage.Backend {
		t.Fatalf("expected default backend, got %q", cfg.Storage.Backend)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[storage]
backend = "sqlite"
path = "/custom/tasks.db"

[logging]
level = "debug"

[logging.dev_file]
enabled = false

[input]
tick_interval = "50ms"
chord_timeout_ticks = 4
chord_modes = ["normal", "insert"]

[clipboard]
enabled = true

[keys]
toggle = "t"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path, Default())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Backend != BackendSQLite || cfg.Storage.Path != "/custom/tasks.db" {
		t.Fatalf("unexpected storage %#v", cfg.Storage)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.DevFile.Enabled {
		t.Fatalf("unexpected logging %#v", cfg.Logging)
	}
	if cfg.Logging.DevFile.Dir != ".todoterm/log" {
		t.Fatalf("expected default dev log dir kept, got %q", cfg.Logging.DevFile.Dir)
	}
	if cfg.Input.ChordTimeoutTicks != 4 || cfg.Input.ActionResetTicks != 20 {
		t.Fatalf("unexpected input %#v", cfg.Input)
	}
	modes, err := cfg.ChordModeList()
	if err != nil {
		t.Fatalf("ChordModeList() error = %v", err)
	}
	if !slices.Equal(modes, []domain.Mode{domain.ModeNormal, domain.ModeInsert}) {
		t.Fatalf("unexpected chord modes %#v", modes)
	}
	if !cfg.Clipboard.Enabled || cfg.Keys.Toggle != "t" {
		t.Fatalf("unexpected clipboard/keys %#v %#v", cfg.Clipboard, cfg.Keys)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"backend":      "[storage]\nbackend = \"csv\"\n",
		"level":        "[logging]\nlevel = \"loud\"\n",
		"tick":         "[input]\ntick_interval = \"soon\"\n",
		"negativeTick": "[input]\ntick_interval = \"-1s\"\n",
		"chordTicks":   "[input]\nchord_timeout_ticks = 0\n",
		"chordMode":    "[input]\nchord_modes = [\"visual\"]\n",
		"actionTicks":  "[input]\naction_reset_ticks = -2\n",
		"reservedKey":  "[keys]\ntoggle = \"j\"\n",
		"duplicateKey": "[keys]\ntoggle = \"t\"\nyank = \"t\"\n",
		"devDir":       "[logging.dev_file]\nenabled = true\ndir = \" \"\n",
		"badToml":      "[storage\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			if _, err := Load(path, Default()); err == nil {
				t.Fatalf("expected Load() to reject %q", content)
			}
		})
	}
}

func TestValidateDuplicateKeyMessageIsStable(t *testing.T) {
	cfg := Default()
	cfg.Keys.Save = "s"
	cfg.Keys.Delete = "s"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected duplicate key error")
	}
	if !strings.Contains(err.Error(), "delete and save both bind") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestValidateRejectsOverrideShadowingDefaultKey(t *testing.T) {
	cases := []struct {
		name string
		set  func(*Config)
		want string
	}{
		{"toggleShadowsAppend", func(c *Config) { c.Keys.Toggle = "a" }, "toggle and append both bind \"a\""},
		{"deleteShadowsYank", func(c *Config) { c.Keys.Delete = "y" }, "delete and yank both bind \"y\""},
		{"helpShadowsSave", func(c *Config) { c.Keys.Help = "w" }, "save and help both bind \"w\""},
		{"toggleShadowsDown", func(c *Config) { c.Keys.Toggle = "j" }, "down and toggle both bind \"j\""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.set(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, app.ErrKeyConflict) {
				t.Fatalf("Validate() error = %v, want key conflict", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() error = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestValidateAcceptsMovedKeys(t *testing.T) {
	cfg := Default()
	cfg.Keys.Toggle = "t"
	cfg.Keys.Append = "A"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestSaveWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Storage.Backend = BackendSQLite
	cfg.Keys.Toggle = "t"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path, Config{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Storage.Backend != BackendSQLite || loaded.Keys.Toggle != "t" {
		t.Fatalf("unexpected round trip %#v", loaded)
	}
	if loaded.Input.ChordTimeoutTicks != 10 || loaded.Input.ActionResetTicks != 20 {
		t.Fatalf("expected input defaults written, got %#v", loaded.Input)
	}
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	cfg.Keys.Delete = "y"
	if err := Save(path, cfg); err == nil {
		t.Fatal("expected Save() to reject conflicting keys")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no config written, stat err = %v", err)
	}
}

func TestChordModeListDefaultsToNormal(t *testing.T) {
	cfg := Default()
	cfg.Input.ChordModes = nil
	modes, err := cfg.ChordModeList()
	if err != nil {
		t.Fatalf("ChordModeList() error = %v", err)
	}
	if !slices.Equal(modes, []domain.Mode{domain.ModeNormal}) {
		t.Fatalf("unexpected modes %#v", modes)
	}
}

func TestBackendOrDefault(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = " YAML "
	if got := cfg.BackendOrDefault(); got != BackendYAML {
		t.Fatalf("expected yaml, got %q", got)
	}
	cfg.Storage.Backend = "csv"
	if got := cfg.BackendOrDefault(); got != BackendJSON {
		t.Fatalf("expected json fallback, got %q", got)
	}
}

func TestEnsureConfigDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "config.toml")
	if err := EnsureConfigDir(path); err != nil {
		t.Fatalf("EnsureConfigDir() error = %v", err)
	}
	if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
		t.Fatalf("expected config dir created, err=%v", err)
	}
}
