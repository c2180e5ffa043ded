package auth

import (
	"regexp"
	"testing"
)

func TestGenerateAPIKey(t *testing.T) {
	apiKey, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("failed to generate API key: %v", err)
	}

	uuidRegex := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	if !uuidRegex.MatchString(apiKey) {
		t.Errorf("API key does not match UUID v4 format: %s", apiKey)
	}
}

func TestGenerateAPIKey_Uniqueness(t *testing.T) {
	keys := make(map[string]bool)

	for i := 0; i < 100; i++ {
		apiKey, err := GenerateAPIKey()
		if err != nil {
			t.Fatalf("failed to generate API key %d: %v", i, err)
		}
		if keys[apiKey] {
			t.Errorf("duplicate API key generated: %s", apiKey)
		}
		keys[apiKey] = true
	}
}

func TestMaskAPIKey(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"", "***"},
		{"short", "***"},
		{"12345678", "***"},
		{"123456789abc", "12345678..."},
	}

	for _, tc := range testCases {
		if got := MaskAPIKey(tc.in); got != tc.want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
