package auth

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
)

// secretAccessor is the subset of the Secret Manager client used here.
type secretAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// SecretLoader loads secrets from Google Secret Manager.
type SecretLoader struct {
	client    secretAccessor
	projectID string
}

// NewSecretLoader creates a new SecretLoader.
func NewSecretLoader(ctx context.Context, projectID string) (*SecretLoader, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}
	return &SecretLoader{client: client, projectID: projectID}, nil
}

// Close closes the secret manager client.
func (l *SecretLoader) Close() error {
	return l.client.Close()
}

// GetSecret retrieves the latest version of a secret.
func (l *SecretLoader) GetSecret(ctx context.Context, secretID string) ([]byte, error) {
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", l.projectID, secretID)

	result, err := l.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access secret %s: %w", secretID, err)
	}
	return result.GetPayload().GetData(), nil
}

// LoadCredentials reads a service account JSON key stored as a secret.
func (l *SecretLoader) LoadCredentials(ctx context.Context, secretID string, scopes ...string) (*Credentials, error) {
	data, err := l.GetSecret(ctx, secretID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentials, err)
	}
	return CredentialsFromJSON(ctx, data, scopes...)
}
