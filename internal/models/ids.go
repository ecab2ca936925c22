package models

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateID produces an opaque prefixed identifier, e.g. "pat_1f2a9c3d0e4b"
func GenerateID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + raw[:12]
}
