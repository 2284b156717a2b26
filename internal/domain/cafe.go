package domain

import (
	"fmt"
	"regexp"
	"time"
)

// Cafe is a registered source repository orders can be placed against.
// Fields are ordered to minimize memory padding.
type Cafe struct {
	Created      time.Time `toml:"created"`
	ID           string    `toml:"id"`
	Name         string    `toml:"name"`
	Path         string    `toml:"path"`
	BaseBranch   string    `toml:"base_branch,omitempty"`   // Overrides [worktree] base_branch
	WorktreeRoot string    `toml:"worktree_root,omitempty"` // Overrides [worktree] root
}

// DisplayName returns the name, falling back to the ID.
func (c Cafe) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

var cafeIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// ValidateCafeID checks that id is usable as a registry key.
func ValidateCafeID(id string) error {
	if !cafeIDPattern.MatchString(id) {
		return fmt.Errorf("invalid cafe id %q: use lowercase letters, digits, '.', '_' or '-'", id)
	}
	return nil
}

// Barista is a worker slot bound to a provider.
type Barista struct {
	Created  time.Time `json:"created"`
	ID       string    `json:"id"`
	Provider string    `json:"provider"`
	OrderID  string    `json:"orderId,omitempty"` // Empty when idle
}

// IsIdle returns true if the barista is not serving an order.
func (b Barista) IsIdle() bool {
	return b.OrderID == ""
}
