// Package auth provides the service account credentials used to reach
// Google Slides and the API keys that agent callers present.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/slides/v1"
)

// DefaultScopes are the OAuth scopes requested for the service account.
var DefaultScopes = []string{
	slides.PresentationsScope,
	drive.DriveMetadataReadonlyScope,
}

// ErrCredentials is returned when service account credentials cannot be
// loaded.
var ErrCredentials = errors.New("failed to load credentials")

// Credentials is an explicit service account identity. Store clients are
// built from it rather than from ambient process state.
type Credentials struct {
	ClientEmail string
	ProjectID   string
	tokenSource oauth2.TokenSource
}

// NewCredentials wraps an existing token source.
func NewCredentials(clientEmail, projectID string, tokenSource oauth2.TokenSource) *Credentials {
	return &Credentials{
		ClientEmail: clientEmail,
		ProjectID:   projectID,
		tokenSource: tokenSource,
	}
}

// TokenSource returns the token source for API clients.
func (c *Credentials) TokenSource() oauth2.TokenSource {
	return c.tokenSource
}

// serviceAccountKey holds the identity fields of a service account JSON key.
type serviceAccountKey struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
	ProjectID   string `json:"project_id"`
}

// CredentialsFromJSON parses a service account JSON key.
func CredentialsFromJSON(ctx context.Context, data []byte, scopes ...string) (*Credentials, error) {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	var key serviceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("%w: invalid service account JSON: %v", ErrCredentials, err)
	}
	if key.Type != "service_account" {
		return nil, fmt.Errorf("%w: expected a service_account key, got %q", ErrCredentials, key.Type)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentials, err)
	}

	projectID := key.ProjectID
	if projectID == "" {
		projectID = creds.ProjectID
	}
	return NewCredentials(key.ClientEmail, projectID, creds.TokenSource), nil
}

// LoadCredentialsFile reads a service account JSON key from disk.
func LoadCredentialsFile(ctx context.Context, path string, scopes ...string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentials, err)
	}
	return CredentialsFromJSON(ctx, data, scopes...)
}

// DefaultCredentials uses Application Default Credentials, such as the
// Cloud Run service identity.
func DefaultCredentials(ctx context.Context, scopes ...string) (*Credentials, error) {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	creds, err := google.FindDefaultCredentials(ctx, scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentials, err)
	}

	var key serviceAccountKey
	if len(creds.JSON) > 0 {
		_ = json.Unmarshal(creds.JSON, &key)
	}
	return NewCredentials(key.ClientEmail, creds.ProjectID, creds.TokenSource), nil
}
