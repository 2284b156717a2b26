// Package config provides configuration loading functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/runoshun/git-cafe/internal/domain"
)

// Ensure Loader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*Loader)(nil)

// Loader loads configuration from TOML files.
type Loader struct {
	lookPath      func(string) (string, error) // nil disables builtin providers
	dataDir       string                       // Path to the cafe data directory (~/.cafe)
	globalConfDir string                       // Path to global config directory (e.g., ~/.config/cafe)
}

// NewLoader creates a new Loader that registers builtin providers found in PATH.
func NewLoader(dataDir string) *Loader {
	return &Loader{
		dataDir:       dataDir,
		globalConfDir: DefaultGlobalConfigDir(),
		lookPath:      exec.LookPath,
	}
}

// NewLoaderWithGlobalDir creates a new Loader with a custom global config directory.
// lookPath may be nil to skip builtin providers.
func NewLoaderWithGlobalDir(dataDir, globalConfDir string, lookPath func(string) (string, error)) *Loader {
	return &Loader{
		dataDir:       dataDir,
		globalConfDir: globalConfDir,
		lookPath:      lookPath,
	}
}

// DefaultGlobalConfigDir returns $XDG_CONFIG_HOME/cafe or ~/.config/cafe.
func DefaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return domain.GlobalConfigDir(configHome)
}

// Load returns the merged configuration.
// Precedence: defaults < builtin providers < global < data directory.
func (l *Loader) Load() (*domain.Config, error) {
	base := l.base()
	var warnings []string

	if l.globalConfDir != "" {
		w, err := applyFile(base, filepath.Join(l.globalConfDir, domain.ConfigFileName))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		warnings = append(warnings, w...)
	}

	w, err := applyFile(base, domain.ConfigPath(l.dataDir))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	warnings = append(warnings, w...)

	return finish(base, warnings)
}

// LoadGlobal returns defaults merged with the global configuration only.
// Returns os.ErrNotExist if there is no global config file.
func (l *Loader) LoadGlobal() (*domain.Config, error) {
	if l.globalConfDir == "" {
		return nil, os.ErrNotExist
	}
	base := l.base()
	warnings, err := applyFile(base, filepath.Join(l.globalConfDir, domain.ConfigFileName))
	if err != nil {
		return nil, err
	}
	return finish(base, warnings)
}

func (l *Loader) base() *domain.Config {
	cfg := domain.NewDefaultConfig()
	if l.lookPath != nil {
		RegisterWithLookPath(cfg, l.lookPath)
	}
	return cfg
}

func finish(cfg *domain.Config, warnings []string) (*domain.Config, error) {
	switch cfg.Store.Type {
	case domain.StoreTypeJSON, domain.StoreTypeSQLite:
	default:
		return nil, fmt.Errorf("%w: %q (want %q or %q)", domain.ErrInvalidStoreType, cfg.Store.Type, domain.StoreTypeJSON, domain.StoreTypeSQLite)
	}
	sort.Strings(warnings)
	cfg.Warnings = warnings
	return cfg, nil
}

// applyFile overlays the TOML file at path onto cfg.
// Keys present in the file win; absent keys keep the value from cfg.
func applyFile(cfg *domain.Config, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return applyRaw(cfg, raw), nil
}

// applyRaw overlays a decoded TOML document onto cfg and returns warnings
// for unknown sections, unknown keys and values of the wrong type.
func applyRaw(cfg *domain.Config, raw map[string]any) []string {
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	for key, value := range raw {
		switch key {
		case "default_provider":
			if s, ok := value.(string); ok {
				cfg.DefaultProvider = s
			} else {
				warn("invalid value for default_provider: expected string")
			}
		case "store":
			section(key, value, warn, func(k string, v any) bool {
				if k != "type" {
					return false
				}
				setString(&cfg.Store.Type, key, k, v, warn)
				return true
			})
		case "worktree":
			section(key, value, warn, func(k string, v any) bool {
				switch k {
				case "root":
					setString(&cfg.Worktree.Root, key, k, v, warn)
				case "prefix":
					setString(&cfg.Worktree.Prefix, key, k, v, warn)
				case "base_branch":
					setString(&cfg.Worktree.BaseBranch, key, k, v, warn)
				default:
					return false
				}
				return true
			})
		case "merge":
			section(key, value, warn, func(k string, v any) bool {
				switch k {
				case "target":
					setString(&cfg.Merge.Target, key, k, v, warn)
				case "squash":
					setBool(&cfg.Merge.Squash, key, k, v, warn)
				case "delete":
					setBool(&cfg.Merge.Delete, key, k, v, warn)
				default:
					return false
				}
				return true
			})
		case "log":
			section(key, value, warn, func(k string, v any) bool {
				if k != "level" {
					return false
				}
				setString(&cfg.Log.Level, key, k, v, warn)
				return true
			})
		case "engine":
			section(key, value, warn, func(k string, v any) bool {
				if k != "log_buffer" {
					return false
				}
				if n, ok := v.(int64); ok && n > 0 {
					cfg.Engine.LogBuffer = int(n)
				} else {
					warn("invalid value for [engine] log_buffer: expected positive integer")
				}
				return true
			})
		case "providers":
			providers, ok := value.(map[string]any)
			if !ok {
				warn("invalid section: providers")
				continue
			}
			for name, pv := range providers {
				applyProvider(cfg, name, pv, warn)
			}
		default:
			warn("unknown section: %s", key)
		}
	}
	return warnings
}

func applyProvider(cfg *domain.Config, name string, value any, warn func(string, ...any)) {
	sectionName := "providers." + name
	p := cfg.Providers[name]
	section(sectionName, value, warn, func(k string, v any) bool {
		switch k {
		case "command_template":
			setString(&p.CommandTemplate, sectionName, k, v, warn)
		case "args":
			setString(&p.Args, sectionName, k, v, warn)
		case "model":
			setString(&p.Model, sectionName, k, v, warn)
		case "description":
			setString(&p.Description, sectionName, k, v, warn)
		default:
			return false
		}
		return true
	})
	if p.CommandTemplate == "" {
		warn("provider %s has no command_template", name)
		return
	}
	cfg.Providers[name] = p
}

// section walks a TOML table, reporting keys the handler does not accept.
func section(name string, value any, warn func(string, ...any), handle func(k string, v any) bool) {
	table, ok := value.(map[string]any)
	if !ok {
		warn("invalid section: %s", name)
		return
	}
	for k, v := range table {
		if !handle(k, v) {
			warn("unknown key in [%s]: %s", name, k)
		}
	}
}

func setString(dst *string, sectionName, key string, v any, warn func(string, ...any)) {
	s, ok := v.(string)
	if !ok {
		warn("invalid value for [%s] %s: expected string", sectionName, key)
		return
	}
	*dst = s
}

func setBool(dst *bool, sectionName, key string, v any, warn func(string, ...any)) {
	b, ok := v.(bool)
	if !ok {
		warn("invalid value for [%s] %s: expected bool", sectionName, key)
		return
	}
	*dst = b
}
