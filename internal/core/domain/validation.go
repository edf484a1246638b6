package domain

import (
	"fmt"
	"regexp"
)

var validLabelRegex = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]{0,62}[A-Za-z0-9])?$`)

// ValidateKeyLabel checks if the provided key label is acceptable: 1-64
// characters, alphanumeric with internal dots, dashes and underscores.
func ValidateKeyLabel(label string) error {
	if label == "" {
		return fmt.Errorf("key label cannot be empty")
	}
	if len(label) > 64 {
		return fmt.Errorf("key label exceeds 64 characters")
	}
	if !validLabelRegex.MatchString(label) {
		return fmt.Errorf("key label '%s' contains invalid characters or format", label)
	}
	return nil
}

// ValidateUserID rejects the zero and negative ids that a missing or
// malformed request field decodes to.
func ValidateUserID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("user id must be positive, got %d", id)
	}
	return nil
}
