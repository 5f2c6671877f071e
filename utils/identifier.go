package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewIdentifier generates an opaque blob-store identifier.
func NewIdentifier() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// IsValidIdentifier guards storage paths against traversal: identifiers are
// generated hex strings and never contain separators or dots.
func IsValidIdentifier(identifier string) bool {
	if identifier == "" || len(identifier) > 64 {
		return false
	}
	for _, r := range identifier {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
