package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/runoshun/git-cafe/internal/domain"
)

// Ensure Manager implements domain.ConfigManager.
var _ domain.ConfigManager = (*Manager)(nil)

// Manager manages configuration files.
type Manager struct {
	dataDir       string // Path to the cafe data directory
	globalConfDir string // Path to global config directory (e.g., ~/.config/cafe)
}

// NewManager creates a new Manager.
func NewManager(dataDir string) *Manager {
	return &Manager{
		dataDir:       dataDir,
		globalConfDir: DefaultGlobalConfigDir(),
	}
}

// NewManagerWithGlobalDir creates a new Manager with a custom global config directory.
func NewManagerWithGlobalDir(dataDir, globalConfDir string) *Manager {
	return &Manager{
		dataDir:       dataDir,
		globalConfDir: globalConfDir,
	}
}

// DataConfigInfo returns information about the data directory config file.
func (m *Manager) DataConfigInfo() domain.ConfigInfo {
	return readConfigInfo(domain.ConfigPath(m.dataDir))
}

// GlobalConfigInfo returns information about the global config file.
func (m *Manager) GlobalConfigInfo() domain.ConfigInfo {
	if m.globalConfDir == "" {
		return domain.ConfigInfo{}
	}
	return readConfigInfo(filepath.Join(m.globalConfDir, domain.ConfigFileName))
}

func readConfigInfo(path string) domain.ConfigInfo {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.ConfigInfo{Path: path}
	}
	return domain.ConfigInfo{
		Path:    path,
		Content: string(content),
		Exists:  true,
	}
}

// InitDataConfig creates the data directory config file from the template.
func (m *Manager) InitDataConfig(cfg *domain.Config) error {
	return initConfig(m.dataDir, domain.ConfigPath(m.dataDir), cfg)
}

// InitGlobalConfig creates the global config file from the template.
func (m *Manager) InitGlobalConfig(cfg *domain.Config) error {
	if m.globalConfDir == "" {
		return errors.New("global config directory not available")
	}
	return initConfig(m.globalConfDir, filepath.Join(m.globalConfDir, domain.ConfigFileName), cfg)
}

func initConfig(dir, path string, cfg *domain.Config) error {
	if _, err := os.Stat(path); err == nil {
		return domain.ErrConfigExists
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(domain.RenderConfigTemplate(cfg)), 0o600)
}
