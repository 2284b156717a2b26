package domain

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/template"
)

//go:embed config_template.toml
var configTemplateContent string

// Config represents the application configuration.
// Fields are ordered to minimize memory padding.
type Config struct {
	Providers       map[string]Provider `toml:"providers"` // Provider definitions from [providers.<name>]
	Warnings        []string            `toml:"-"`
	DefaultProvider string              `toml:"default_provider,omitempty"`
	Store           StoreConfig         `toml:"store"`
	Worktree        WorktreeConfig      `toml:"worktree"`
	Merge           MergeConfig         `toml:"merge"`
	Log             LogConfig           `toml:"log"`
	Engine          EngineConfig        `toml:"engine"`
}

// Provider describes how to invoke an agent CLI.
type Provider struct {
	CommandTemplate string `toml:"command_template,omitempty"` // e.g. "claude -p {{.Args}} {{.Prompt}}"
	Args            string `toml:"args,omitempty"`
	Model           string `toml:"model,omitempty"`
	Description     string `toml:"description,omitempty"`
}

// ProviderCommandData holds data for rendering a provider command.
type ProviderCommandData struct {
	Prompt   string // Shell expression that expands to the prompt, e.g. "$CAFE_PROMPT"
	Model    string
	Continue bool // Resume the previous conversation
}

// RenderCommand renders the provider's command template.
func (p Provider) RenderCommand(data ProviderCommandData) (string, error) {
	tmpl, err := template.New("cmd").Parse(p.CommandTemplate)
	if err != nil {
		return "", fmt.Errorf("parse command template: %w", err)
	}
	model := data.Model
	if model == "" {
		model = p.Model
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{
		"Args":     p.Args,
		"Prompt":   data.Prompt,
		"Model":    model,
		"Continue": data.Continue,
	}); err != nil {
		return "", fmt.Errorf("render command template: %w", err)
	}
	return buf.String(), nil
}

// StoreConfig holds order storage settings from [store] section.
type StoreConfig struct {
	Type string `toml:"type,omitempty"` // "json" (default) or "sqlite"
}

// Store types.
const (
	StoreTypeJSON   = "json"
	StoreTypeSQLite = "sqlite"
)

// WorktreeConfig holds worktree settings from [worktree] section.
type WorktreeConfig struct {
	Root       string `toml:"root,omitempty"`        // Absolute, or relative to the repository
	Prefix     string `toml:"prefix,omitempty"`      // Branch name prefix
	BaseBranch string `toml:"base_branch,omitempty"` // Empty = repository's current branch
}

// MergeConfig holds merge settings from [merge] section.
type MergeConfig struct {
	Target string `toml:"target,omitempty"`
	Squash bool   `toml:"squash,omitempty"`
	Delete bool   `toml:"delete,omitempty"` // Remove the worktree after a successful merge
}

// LogConfig holds logging settings from [log] section.
type LogConfig struct {
	Level string `toml:"level,omitempty"` // Log level: debug, info, warn, error
}

// EngineConfig holds local engine settings from [engine] section.
type EngineConfig struct {
	LogBuffer int `toml:"log_buffer,omitempty"` // Lines of output kept in memory per order
}

// Default configuration values.
const (
	DefaultLogLevel        = "info"
	DefaultBranchPrefix    = "order"
	DefaultMergeTarget     = "main"
	DefaultWorktreeRoot    = ".cafe-worktrees"
	DefaultLogBufferLines  = 1000
	DefaultProviderName    = "claude"
	DefaultRecipeID        = "default"
	ConfigFileName         = "config.toml"
	CafeDirName            = "cafe"
	DataDirEnv             = "CAFE_HOME"
	defaultDataDirBaseName = ".cafe"
)

// NewDefaultConfig returns a Config with default values.
// Builtin providers are registered by the infra layer.
func NewDefaultConfig() *Config {
	return &Config{
		Providers:       make(map[string]Provider),
		DefaultProvider: DefaultProviderName,
		Store:           StoreConfig{Type: StoreTypeJSON},
		Worktree: WorktreeConfig{
			Root:   DefaultWorktreeRoot,
			Prefix: DefaultBranchPrefix,
		},
		Merge: MergeConfig{
			Target: DefaultMergeTarget,
			Delete: true,
		},
		Log:    LogConfig{Level: DefaultLogLevel},
		Engine: EngineConfig{LogBuffer: DefaultLogBufferLines},
	}
}

// ProviderNames returns the configured provider names, sorted.
func (c *Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GlobalConfigDir returns the global config directory.
// configHome is typically XDG_CONFIG_HOME or ~/.config (resolved by caller).
func GlobalConfigDir(configHome string) string {
	return filepath.Join(configHome, CafeDirName)
}

// DefaultDataDir returns $CAFE_HOME or ~/.cafe.
func DefaultDataDir() (string, error) {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, defaultDataDirBaseName), nil
}

type templateData struct {
	DefaultProvider string
	StoreType       string
	WorktreeRoot    string
	BranchPrefix    string
	MergeTarget     string
	LogLevel        string
	Providers       []string
}

// RenderConfigTemplate renders a commented config file for cfg.
func RenderConfigTemplate(cfg *Config) string {
	data := templateData{
		DefaultProvider: cfg.DefaultProvider,
		StoreType:       cfg.Store.Type,
		WorktreeRoot:    cfg.Worktree.Root,
		BranchPrefix:    cfg.Worktree.Prefix,
		MergeTarget:     cfg.Merge.Target,
		LogLevel:        cfg.Log.Level,
		Providers:       cfg.ProviderNames(),
	}

	tmpl, err := template.New("config").Delims("<<", ">>").Parse(configTemplateContent)
	if err != nil {
		// Should never happen with embedded template
		panic(fmt.Sprintf("failed to parse config template: %v", err))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		panic(fmt.Sprintf("failed to execute config template: %v", err))
	}
	return buf.String()
}
