package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrAPIKeyNotFound is returned when an API key has no record.
var ErrAPIKeyNotFound = errors.New("API key not found")

// APIKeyRecord is an agent API key stored in Firestore.
type APIKeyRecord struct {
	APIKey    string    `firestore:"api_key"`
	Agent     string    `firestore:"agent"`
	CreatedAt time.Time `firestore:"created_at"`
	LastUsed  time.Time `firestore:"last_used"`
	Revoked   bool      `firestore:"revoked"`
}

// APIKeyStoreInterface defines the interface for API key storage.
type APIKeyStoreInterface interface {
	Store(ctx context.Context, record *APIKeyRecord) error
	Get(ctx context.Context, apiKey string) (*APIKeyRecord, error)
	UpdateLastUsed(ctx context.Context, apiKey string) error
	Revoke(ctx context.Context, apiKey string) error
	Close() error
}

// APIKeyStore stores API keys in Firestore, one document per key.
type APIKeyStore struct {
	client     *firestore.Client
	collection string
}

// NewAPIKeyStore creates a new APIKeyStore.
func NewAPIKeyStore(ctx context.Context, projectID, collection string) (*APIKeyStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &APIKeyStore{client: client, collection: collection}, nil
}

// Close closes the Firestore client.
func (s *APIKeyStore) Close() error {
	return s.client.Close()
}

// Store writes an API key record. The document ID is the key itself.
func (s *APIKeyStore) Store(ctx context.Context, record *APIKeyRecord) error {
	if _, err := s.client.Collection(s.collection).Doc(record.APIKey).Set(ctx, record); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}
	return nil
}

// Get retrieves an API key record.
func (s *APIKeyStore) Get(ctx context.Context, apiKey string) (*APIKeyRecord, error) {
	doc, err := s.client.Collection(s.collection).Doc(apiKey).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}

	var record APIKeyRecord
	if err := doc.DataTo(&record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal API key record: %w", err)
	}
	return &record, nil
}

// UpdateLastUsed sets the last_used timestamp of an API key.
func (s *APIKeyStore) UpdateLastUsed(ctx context.Context, apiKey string) error {
	_, err := s.client.Collection(s.collection).Doc(apiKey).Update(ctx, []firestore.Update{
		{Path: "last_used", Value: time.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to update last_used: %w", err)
	}
	return nil
}

// Revoke marks an API key as revoked. The record is kept for audit.
func (s *APIKeyStore) Revoke(ctx context.Context, apiKey string) error {
	_, err := s.client.Collection(s.collection).Doc(apiKey).Update(ctx, []firestore.Update{
		{Path: "revoked", Value: true},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrAPIKeyNotFound
		}
		return fmt.Errorf("failed to revoke API key: %w", err)
	}
	return nil
}

var _ APIKeyStoreInterface = (*APIKeyStore)(nil)
