package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Recipe is a workflow definition: an ordered list of stages.
type Recipe struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	Provider string        `yaml:"provider,omitempty"` // Default provider for stages
	Prompt   string        `yaml:"prompt,omitempty"`   // Prepended to every stage prompt
	Stages   []RecipeStage `yaml:"stages"`
}

// RecipeStage is a single step of a recipe.
type RecipeStage struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name,omitempty"`
	Provider string   `yaml:"provider,omitempty"`
	Prompt   string   `yaml:"prompt,omitempty"`
	Skills   []string `yaml:"skills,omitempty"`
}

// DefaultRecipe returns the built-in recipe used when none is configured.
func DefaultRecipe() *Recipe {
	return &Recipe{
		ID:   DefaultRecipeID,
		Name: "Default",
		Stages: []RecipeStage{
			{ID: "code", Name: "Implement"},
		},
	}
}

// Validate checks the recipe for structural problems.
func (r *Recipe) Validate() error {
	if r.ID == "" {
		return errors.New("recipe id is required")
	}
	if len(r.Stages) == 0 {
		return fmt.Errorf("recipe %s: at least one stage is required", r.ID)
	}
	seen := make(map[string]bool, len(r.Stages))
	for i, s := range r.Stages {
		if s.ID == "" {
			return fmt.Errorf("recipe %s: stage %d has no id", r.ID, i+1)
		}
		if seen[s.ID] {
			return fmt.Errorf("recipe %s: duplicate stage id %q", r.ID, s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

// DisplayName returns the name, falling back to the ID.
func (r *Recipe) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

// StageIndex returns the index of the stage with the given ID, or -1.
func (r *Recipe) StageIndex(id string) int {
	for i, s := range r.Stages {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// StageIDs returns the stage IDs in order.
func (r *Recipe) StageIDs() []string {
	ids := make([]string, len(r.Stages))
	for i, s := range r.Stages {
		ids[i] = s.ID
	}
	return ids
}

// StageProvider returns the provider for a stage, falling back to the recipe
// default and then to fallback.
func (r *Recipe) StageProvider(s RecipeStage, fallback string) string {
	switch {
	case s.Provider != "":
		return s.Provider
	case r.Provider != "":
		return r.Provider
	}
	return fallback
}

// StagePrompt builds the prompt for a stage from the order request.
func (r *Recipe) StagePrompt(s RecipeStage, request string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.Prompt, s.Prompt, request} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}
