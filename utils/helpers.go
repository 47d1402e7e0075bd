package utils

import (
	"github.com/google/uuid"
)

// GenerateUUID returns a fresh random identifier.
func GenerateUUID() string {
	return uuid.New().String()
}
