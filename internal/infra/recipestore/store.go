// Package recipestore loads recipe definitions from YAML files.
package recipestore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/runoshun/git-cafe/internal/domain"
)

// Ensure Store implements domain.RecipeRepository.
var _ domain.RecipeRepository = (*Store)(nil)

// Store reads recipes from <data>/recipes/*.yaml.
// The built-in default recipe is served unless a file overrides it.
type Store struct {
	dir string
}

// New creates a recipe store for the given data directory.
func New(dataDir string) *Store {
	return &Store{dir: domain.RecipesDir(dataDir)}
}

// Parse decodes and validates a recipe. fallbackID is used when the
// document has no id.
func Parse(data []byte, fallbackID string) (*domain.Recipe, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("recipe definition is empty")
	}
	var r domain.Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode recipe: %w", err)
	}
	if r.ID == "" {
		r.ID = fallbackID
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Get retrieves a recipe by ID. Returns nil if not found.
func (s *Store) Get(id string) (*domain.Recipe, error) {
	recipes, err := s.load()
	if err != nil {
		return nil, err
	}
	return recipes[id], nil
}

// List returns all recipes sorted by ID.
func (s *Store) List() ([]*domain.Recipe, error) {
	recipes, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Recipe, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) load() (map[string]*domain.Recipe, error) {
	recipes := map[string]*domain.Recipe{
		domain.DefaultRecipeID: domain.DefaultRecipe(),
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return recipes, nil
		}
		return nil, fmt.Errorf("read recipes directory: %w", err)
	}

	sources := make(map[string]string)
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read recipe %s: %w", path, err)
		}
		r, err := Parse(data, strings.TrimSuffix(e.Name(), ext))
		if err != nil {
			return nil, fmt.Errorf("recipe %s: %w", path, err)
		}
		if prev, dup := sources[r.ID]; dup {
			return nil, fmt.Errorf("recipe %s: id %q already defined in %s", path, r.ID, prev)
		}
		sources[r.ID] = path
		recipes[r.ID] = r
	}
	return recipes, nil
}
