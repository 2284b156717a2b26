// Package ids generates order identifiers.
package ids

import (
	"github.com/google/uuid"

	"github.com/runoshun/git-cafe/internal/domain"
)

// Ensure UUIDGenerator implements domain.IDGenerator.
var _ domain.IDGenerator = UUIDGenerator{}

// UUIDGenerator implements domain.IDGenerator with random (v4) UUIDs.
type UUIDGenerator struct{}

// NewID returns a new UUID v4 string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}
