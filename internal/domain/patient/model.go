package patient

import (
	"fmt"
	"strings"
)

// MinIDLength is the shortest accepted patient identifier.
const MinIDLength = 3

// ValidateID checks that id has at least MinIDLength characters drawn from
// letters, digits, hyphen and underscore.
func ValidateID(id string) error {
	if len(id) < MinIDLength {
		return fmt.Errorf("patient id must be at least %d characters", MinIDLength)
	}
	for _, r := range id {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("patient id %q may only contain letters, digits, '-' and '_'", id)
		}
	}
	return nil
}

// NormalizeID trims surrounding whitespace from user input.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}
