package shared

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/runoshun/git-cafe/internal/domain"
)

// ValidateMessage trims whitespace from the message and validates it is not empty.
// Returns the trimmed message if valid, otherwise returns domain.ErrEmptyMessage.
func ValidateMessage(message string) (string, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return "", domain.ErrEmptyMessage
	}
	return trimmed, nil
}

var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateVariables checks that every variable name is usable as an environment variable.
// Variables are exported to the provider command.
func ValidateVariables(vars map[string]string) error {
	for name := range vars {
		if !envNamePattern.MatchString(name) {
			return fmt.Errorf("invalid variable name %q", name)
		}
	}
	return nil
}
