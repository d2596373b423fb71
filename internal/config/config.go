package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/todoterm/internal/app"
	"github.com/evanschultz/todoterm/internal/domain"
	toml "github.com/pelletier/go-toml/v2"
)

type Backend string

const (
	BackendJSON   Backend = "json"
	BackendYAML   Backend = "yaml"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

// Backends lists every supported storage backend.
func Backends() []Backend {
	return []Backend{BackendJSON, BackendYAML, BackendSQLite, BackendMemory}
}

// ParseBackend validates a backend name.
func ParseBackend(raw string) (Backend, error) {
	backend := Backend(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Backends() {
		if backend == known {
			return backend, nil
		}
	}
	return "", fmt.Errorf("invalid storage.backend: %q", raw)
}

type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	Logging   LoggingConfig   `toml:"logging"`
	Input     InputConfig     `toml:"input"`
	Clipboard ClipboardConfig `toml:"clipboard"`
	Keys      KeyConfig       `toml:"keys"`
}

type StorageConfig struct {
	Backend Backend `toml:"backend"`
	// Path is resolved from the platform data dir when empty.
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type InputConfig struct {
	TickInterval      string   `toml:"tick_interval"`
	ChordTimeoutTicks int      `toml:"chord_timeout_ticks"`
	ChordModes        []string `toml:"chord_modes"`
	ActionResetTicks  int      `toml:"action_reset_ticks"`
}

type ClipboardConfig struct {
	Enabled bool `toml:"enabled"`
}

// KeyConfig overrides single Normal-mode bindings. Blank fields keep the built-in keys.
type KeyConfig struct {
	Toggle string `toml:"toggle"`
	Delete string `toml:"delete"`
	Change string `toml:"change"`
	Append string `toml:"append"`
	Yank   string `toml:"yank"`
	Save   string `toml:"save"`
	Help   string `toml:"help"`
}

func Default() Config {
	return Config{
		Storage: StorageConfig{
			Backend: BackendJSON,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".todoterm/log",
			},
		},
		Input: InputConfig{
			TickInterval:      "100ms",
			ChordTimeoutTicks: 10,
			ChordModes:        []string{"normal"},
			ActionResetTicks:  20,
		},
		Clipboard: ClipboardConfig{
			Enabled: false,
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := ParseBackend(string(c.Storage.Backend)); err != nil {
		return err
	}

	if _, err := log.ParseLevel(strings.TrimSpace(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.Logging.DevFile.Enabled && strings.TrimSpace(c.Logging.DevFile.Dir) == "" {
		return errors.New("logging.dev_file.dir is required when enabled")
	}

	if _, err := c.TickInterval(); err != nil {
		return err
	}
	if c.Input.ChordTimeoutTicks <= 0 {
		return errors.New("input.chord_timeout_ticks must be > 0")
	}
	if c.Input.ActionResetTicks <= 0 {
		return errors.New("input.action_reset_ticks must be > 0")
	}
	if _, err := c.ChordModeList(); err != nil {
		return err
	}

	if err := c.KeyOverrides().Validate(); err != nil {
		return fmt.Errorf("invalid keys: %w", err)
	}

	return nil
}

// KeyOverrides maps the keys section onto dispatcher key overrides.
func (c Config) KeyOverrides() app.KeyConfig {
	return app.KeyConfig{
		Toggle: c.Keys.Toggle,
		Delete: c.Keys.Delete,
		Change: c.Keys.Change,
		Append: c.Keys.Append,
		Yank:   c.Keys.Yank,
		Save:   c.Keys.Save,
		Help:   c.Keys.Help,
	}
}

// BackendOrDefault returns the configured backend, falling back to JSON.
func (c Config) BackendOrDefault() Backend {
	backend, err := ParseBackend(string(c.Storage.Backend))
	if err != nil {
		return BackendJSON
	}
	return backend
}

// TickInterval parses input.tick_interval.
func (c Config) TickInterval() (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(c.Input.TickInterval))
	if err != nil {
		return 0, fmt.Errorf("invalid input.tick_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid input.tick_interval: %q must be > 0", c.Input.TickInterval)
	}
	return d, nil
}

// ChordModeList parses input.chord_modes. An empty list means Normal only.
func (c Config) ChordModeList() ([]domain.Mode, error) {
	if len(c.Input.ChordModes) == 0 {
		return []domain.Mode{domain.ModeNormal}, nil
	}
	modes := make([]domain.Mode, 0, len(c.Input.ChordModes))
	for i, raw := range c.Input.ChordModes {
		mode, err := domain.ParseMode(raw)
		if err != nil {
			return nil, fmt.Errorf("input.chord_modes[%d]: %w", i, err)
		}
		modes = append(modes, mode)
	}
	return modes, nil
}

// Save validates cfg and writes it as TOML to path, creating the parent dir.
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// EnsureConfigDir creates the directory that holds path.
func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
