package auth

import (
	"context"
	"sync"
	"time"
)

// MockAPIKeyStore is an in-memory APIKeyStoreInterface for tests and local
// runs without Firestore.
type MockAPIKeyStore struct {
	records map[string]*APIKeyRecord
	mu      sync.RWMutex

	StoreCalls          int
	GetCalls            int
	UpdateLastUsedCalls int
	RevokeCalls         int

	StoreError          error
	GetError            error
	UpdateLastUsedError error
	RevokeError         error
}

// NewMockAPIKeyStore creates a new MockAPIKeyStore.
func NewMockAPIKeyStore() *MockAPIKeyStore {
	return &MockAPIKeyStore{records: make(map[string]*APIKeyRecord)}
}

// Store stores a copy of the record.
func (m *MockAPIKeyStore) Store(ctx context.Context, record *APIKeyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StoreCalls++
	if m.StoreError != nil {
		return m.StoreError
	}

	recordCopy := *record
	m.records[record.APIKey] = &recordCopy
	return nil
}

// Get returns a copy of the record.
func (m *MockAPIKeyStore) Get(ctx context.Context, apiKey string) (*APIKeyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls++
	if m.GetError != nil {
		return nil, m.GetError
	}

	record, ok := m.records[apiKey]
	if !ok {
		return nil, ErrAPIKeyNotFound
	}
	recordCopy := *record
	return &recordCopy, nil
}

// UpdateLastUsed sets last_used to now.
func (m *MockAPIKeyStore) UpdateLastUsed(ctx context.Context, apiKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateLastUsedCalls++
	if m.UpdateLastUsedError != nil {
		return m.UpdateLastUsedError
	}

	record, ok := m.records[apiKey]
	if !ok {
		return ErrAPIKeyNotFound
	}
	record.LastUsed = time.Now()
	return nil
}

// Revoke marks the record as revoked.
func (m *MockAPIKeyStore) Revoke(ctx context.Context, apiKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RevokeCalls++
	if m.RevokeError != nil {
		return m.RevokeError
	}

	record, ok := m.records[apiKey]
	if !ok {
		return ErrAPIKeyNotFound
	}
	record.Revoked = true
	return nil
}

// Close is a no-op.
func (m *MockAPIKeyStore) Close() error {
	return nil
}

// UpdateLastUsedCount returns the number of UpdateLastUsed calls.
func (m *MockAPIKeyStore) UpdateLastUsedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.UpdateLastUsedCalls
}

var _ APIKeyStoreInterface = (*MockAPIKeyStore)(nil)
