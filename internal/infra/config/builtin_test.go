package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/git-cafe/internal/domain"
)

func mockLookPath(available map[string]bool) func(string) (string, error) {
	return func(cmd string) (string, error) {
		if available[cmd] {
			return "/usr/bin/" + cmd, nil
		}
		return "", errors.New("not found")
	}
}

func TestRegisterWithLookPath(t *testing.T) {
	tests := []struct {
		available   map[string]bool
		name        string
		wantDefault string
		want        []string
	}{
		{
			name:        "all available",
			available:   map[string]bool{"claude": true, "codex": true, "opencode": true},
			want:        []string{"claude", "codex", "opencode"},
			wantDefault: "claude",
		},
		{
			name:        "only codex",
			available:   map[string]bool{"codex": true},
			want:        []string{"codex"},
			wantDefault: "codex",
		},
		{
			name:        "none",
			available:   map[string]bool{},
			want:        []string{},
			wantDefault: domain.DefaultProviderName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := domain.NewDefaultConfig()

			RegisterWithLookPath(cfg, mockLookPath(tt.available))

			assert.Equal(t, tt.want, cfg.ProviderNames())
			assert.Equal(t, tt.wantDefault, cfg.DefaultProvider)
		})
	}
}

func TestRegisterWithLookPath_KeepsExisting(t *testing.T) {
	cfg := domain.NewDefaultConfig()
	cfg.Providers["claude"] = domain.Provider{CommandTemplate: "my-claude {{.Prompt}}"}

	RegisterWithLookPath(cfg, mockLookPath(map[string]bool{"claude": true}))

	assert.Equal(t, "my-claude {{.Prompt}}", cfg.Providers["claude"].CommandTemplate)
}

func TestBuiltinProviders_Render(t *testing.T) {
	for _, b := range builtinProviders {
		t.Run(b.Name, func(t *testing.T) {
			cmd, err := b.Provider.RenderCommand(domain.ProviderCommandData{Prompt: `"$CAFE_PROMPT"`})
			require.NoError(t, err)
			assert.Contains(t, cmd, b.Command)
			assert.Contains(t, cmd, b.Provider.Model)
			assert.Contains(t, cmd, `"$CAFE_PROMPT"`)

			resumed, err := b.Provider.RenderCommand(domain.ProviderCommandData{Prompt: "p", Continue: true})
			require.NoError(t, err)
			assert.NotEqual(t, cmd, resumed)
		})
	}
}
