package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/git-cafe/internal/domain"
)

// InitConfigInput contains the input for the InitConfig use case.
type InitConfigInput struct {
	Config *domain.Config // Config with builtin providers registered (for template generation)
	Global bool           // If true, initialize global config; otherwise the data dir config
}

// InitConfigOutput contains the output of the InitConfig use case.
type InitConfigOutput struct {
	Path string // Path to the created config file
}

// InitConfig generates a configuration file template.
type InitConfig struct {
	configManager domain.ConfigManager
}

// NewInitConfig creates a new InitConfig use case.
func NewInitConfig(configManager domain.ConfigManager) *InitConfig {
	return &InitConfig{configManager: configManager}
}

// Execute creates a configuration file with default template.
func (uc *InitConfig) Execute(_ context.Context, in InitConfigInput) (*InitConfigOutput, error) {
	cfg := in.Config
	if cfg == nil {
		cfg = domain.NewDefaultConfig()
	}

	var (
		info domain.ConfigInfo
		err  error
	)
	if in.Global {
		info = uc.configManager.GlobalConfigInfo()
		err = uc.configManager.InitGlobalConfig(cfg)
	} else {
		info = uc.configManager.DataConfigInfo()
		err = uc.configManager.InitDataConfig(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("init config %s: %w", info.Path, err)
	}
	return &InitConfigOutput{Path: info.Path}, nil
}

// ShowConfigInput contains the input for the ShowConfig use case.
type ShowConfigInput struct{}

// ShowConfigOutput contains the output of the ShowConfig use case.
type ShowConfigOutput struct {
	Effective    *domain.Config    // Merged configuration in use
	GlobalConfig domain.ConfigInfo // Global config file info
	DataConfig   domain.ConfigInfo // Data directory config file info
}

// ShowConfig displays configuration file information.
type ShowConfig struct {
	configManager domain.ConfigManager
	config        *domain.Config
}

// NewShowConfig creates a new ShowConfig use case.
func NewShowConfig(configManager domain.ConfigManager, config *domain.Config) *ShowConfig {
	return &ShowConfig{configManager: configManager, config: config}
}

// Execute retrieves configuration file information.
func (uc *ShowConfig) Execute(_ context.Context, _ ShowConfigInput) (*ShowConfigOutput, error) {
	return &ShowConfigOutput{
		Effective:    uc.config,
		GlobalConfig: uc.configManager.GlobalConfigInfo(),
		DataConfig:   uc.configManager.DataConfigInfo(),
	}, nil
}

// ListRecipesInput contains the input for listing recipes.
type ListRecipesInput struct{}

// ListRecipesOutput contains the available recipes, sorted by ID.
type ListRecipesOutput struct {
	Recipes []*domain.Recipe
}

// ListRecipes lists the available recipes.
type ListRecipes struct {
	recipes domain.RecipeRepository
}

// NewListRecipes creates a new ListRecipes use case.
func NewListRecipes(recipes domain.RecipeRepository) *ListRecipes {
	return &ListRecipes{recipes: recipes}
}

// Execute lists the recipes.
func (uc *ListRecipes) Execute(_ context.Context, _ ListRecipesInput) (*ListRecipesOutput, error) {
	recipes, err := uc.recipes.List()
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return &ListRecipesOutput{Recipes: recipes}, nil
}
