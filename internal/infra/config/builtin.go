package config

import (
	"os/exec"

	"github.com/runoshun/git-cafe/internal/domain"
)

// builtinProvider is a provider shipped with cafe, registered only when
// its command is found in PATH.
type builtinProvider struct {
	Name     string
	Command  string
	Provider domain.Provider
}

// builtinProviders in order of preference for the default provider.
var builtinProviders = []builtinProvider{
	{
		Name:    "claude",
		Command: "claude",
		Provider: domain.Provider{
			CommandTemplate: "claude -p --model {{.Model}} {{.Args}}{{if .Continue}} -c{{end}} {{.Prompt}} </dev/null",
			Model:           "opus",
			Description:     "Claude Code in print mode",
		},
	},
	{
		Name:    "codex",
		Command: "codex",
		Provider: domain.Provider{
			CommandTemplate: "codex exec --model {{.Model}} {{.Args}}{{if .Continue}} resume --last{{end}} {{.Prompt}} </dev/null",
			Model:           "gpt-5.2-codex",
			Description:     "OpenAI Codex CLI",
		},
	},
	{
		Name:    "opencode",
		Command: "opencode",
		Provider: domain.Provider{
			CommandTemplate: "opencode run -m {{.Model}} {{.Args}}{{if .Continue}} -c{{end}} {{.Prompt}} </dev/null",
			Model:           "anthropic/claude-opus-4-5",
			Description:     "General purpose coding agent via opencode CLI",
		},
	},
}

// RegisterWithLookPath adds the builtin providers whose command lookPath can resolve.
// If the configured default provider is not available, the first registered
// builtin becomes the default.
func RegisterWithLookPath(cfg *domain.Config, lookPath func(string) (string, error)) {
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]domain.Provider)
	}

	first := ""
	for _, b := range builtinProviders {
		if _, err := lookPath(b.Command); err != nil {
			continue
		}
		if _, exists := cfg.Providers[b.Name]; !exists {
			cfg.Providers[b.Name] = b.Provider
		}
		if first == "" {
			first = b.Name
		}
	}

	if _, ok := cfg.Providers[cfg.DefaultProvider]; !ok && first != "" {
		cfg.DefaultProvider = first
	}
}

// Register adds the builtin providers found in PATH.
func Register(cfg *domain.Config) {
	RegisterWithLookPath(cfg, exec.LookPath)
}
