package domain

import (
	"fmt"
	"path/filepath"
)

// BranchName returns the branch name for an order.
// Format: <prefix>-<id>
func BranchName(prefix, orderID string) string {
	if prefix == "" {
		prefix = DefaultBranchPrefix
	}
	return fmt.Sprintf("%s-%s", prefix, orderID)
}

// ShortID returns the first 8 characters of an order ID for display.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// OrderLogPath returns the path to the order transcript.
func OrderLogPath(dataDir, orderID string) string {
	return filepath.Join(OrderLogDir(dataDir), orderID+".log")
}

// OrderLogDir returns the directory holding order transcripts.
func OrderLogDir(dataDir string) string {
	return filepath.Join(dataDir, "logs", "orders")
}

// GlobalLogPath returns the path to the diagnostic log file.
func GlobalLogPath(dataDir string) string {
	return filepath.Join(dataDir, "logs", "cafe.log")
}

// OrdersStorePath returns the path to the orders.json file.
func OrdersStorePath(dataDir string) string {
	return filepath.Join(dataDir, "orders.json")
}

// OrdersDBPath returns the path to the SQLite order database.
func OrdersDBPath(dataDir string) string {
	return filepath.Join(dataDir, "orders.db")
}

// CafesFilePath returns the path to the cafe registry.
func CafesFilePath(dataDir string) string {
	return filepath.Join(dataDir, "cafes.toml")
}

// RecipesDir returns the directory holding recipe definitions.
func RecipesDir(dataDir string) string {
	return filepath.Join(dataDir, "recipes")
}

// ConfigPath returns the path to the data dir config file.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigFileName)
}

// ResolveWorktreeRoot resolves root against repoPath when it is relative.
// Returns ErrWorktreeRootNotInRepo if the result is the repository itself.
func ResolveWorktreeRoot(repoPath, root string) (string, error) {
	if root == "" {
		root = DefaultWorktreeRoot
	}
	if !filepath.IsAbs(root) {
		root = filepath.Join(repoPath, root)
	}
	root = filepath.Clean(root)
	if root == filepath.Clean(repoPath) {
		return "", ErrWorktreeRootNotInRepo
	}
	return root, nil
}
