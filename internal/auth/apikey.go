package auth

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateAPIKey generates a random (version 4) UUID API key.
func GenerateAPIKey() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}
	return id.String(), nil
}

// MaskAPIKey returns a loggable prefix of an API key.
func MaskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "***"
	}
	return apiKey[:8] + "..."
}
