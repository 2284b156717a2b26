// Package cafestore persists the registry of cafes (known repositories).
package cafestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/runoshun/git-cafe/internal/domain"
)

// Ensure Store implements domain.CafeRepository.
var _ domain.CafeRepository = (*Store)(nil)

// registryVersion is the current cafes.toml layout.
const registryVersion = 1

// registryFile is the on-disk layout of cafes.toml.
type registryFile struct {
	Cafes   []domain.Cafe `toml:"cafes"`
	Version int           `toml:"version"`
}

// Store implements CafeRepository on a TOML file.
type Store struct {
	filePath string
}

// NewStore creates a cafe store under dataDir.
func NewStore(dataDir string) *Store {
	return &Store{filePath: domain.CafesFilePath(dataDir)}
}

// Get retrieves a cafe by ID. Returns nil if not found.
func (s *Store) Get(id string) (*domain.Cafe, error) {
	file, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, c := range file.Cafes {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, nil
}

// List returns all registered cafes, sorted by ID.
func (s *Store) List() ([]domain.Cafe, error) {
	file, err := s.load()
	if err != nil {
		return nil, err
	}
	return file.Cafes, nil
}

// Add registers a cafe.
// Returns ErrCafeExists if the ID or the path is already registered.
func (s *Store) Add(cafe domain.Cafe) error {
	file, err := s.load()
	if err != nil {
		return err
	}

	path := filepath.Clean(cafe.Path)
	for _, c := range file.Cafes {
		if c.ID == cafe.ID {
			return fmt.Errorf("%w: %s", domain.ErrCafeExists, cafe.ID)
		}
		if filepath.Clean(c.Path) == path {
			return fmt.Errorf("%w: %s is registered as %s", domain.ErrCafeExists, path, c.ID)
		}
	}

	cafe.Path = path
	file.Cafes = append(file.Cafes, cafe)
	return s.save(file)
}

// Remove unregisters a cafe by ID.
func (s *Store) Remove(id string) error {
	file, err := s.load()
	if err != nil {
		return err
	}

	kept := make([]domain.Cafe, 0, len(file.Cafes))
	for _, c := range file.Cafes {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(file.Cafes) {
		return fmt.Errorf("%w: %s", domain.ErrCafeNotFound, id)
	}

	file.Cafes = kept
	return s.save(file)
}

// load reads the registry. A missing file is an empty registry.
func (s *Store) load() (*registryFile, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &registryFile{Version: registryVersion, Cafes: []domain.Cafe{}}, nil
		}
		return nil, err
	}

	var file registryFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCafeFileCorrupted, err)
	}

	file.Cafes = deduplicate(file.Cafes)
	sortCafes(file.Cafes)
	return &file, nil
}

func (s *Store) save(file *registryFile) error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o700); err != nil {
		return err
	}

	file.Version = registryVersion
	sortCafes(file.Cafes)

	data, err := toml.Marshal(file)
	if err != nil {
		return err
	}
	return os.WriteFile(s.filePath, data, 0o600)
}

// deduplicate removes cafes with a repeated ID, keeping the first occurrence.
func deduplicate(cafes []domain.Cafe) []domain.Cafe {
	seen := make(map[string]bool)
	result := make([]domain.Cafe, 0, len(cafes))
	for _, c := range cafes {
		if !seen[c.ID] {
			seen[c.ID] = true
			result = append(result, c)
		}
	}
	return result
}

func sortCafes(cafes []domain.Cafe) {
	sort.SliceStable(cafes, func(i, j int) bool {
		return cafes[i].ID < cafes[j].ID
	})
}
