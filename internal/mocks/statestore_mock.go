package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/xdoubleu/essentia/v2/pkg/database"
	"calsync.casaflow.app/internal/models"
)

// MockedStateStore records every status transition so tests can assert
// the running -> terminal sequence. LastSyncAt overrides the reported
// timestamp, to simulate a run stuck in "running" since long ago.
type MockedStateStore struct {
	mu          sync.Mutex
	Transitions map[string][]string
	LastSyncAt  *time.Time
}

func NewMockedStateStore() *MockedStateStore {
	//nolint:exhaustruct //mutex starts zero
	return &MockedStateStore{
		Transitions: make(map[string][]string),
	}
}

func (store *MockedStateStore) SetStatus(
	_ context.Context,
	icalURLID string,
	status string,
) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.Transitions[icalURLID] = append(store.Transitions[icalURLID], status)
	return nil
}

func (store *MockedStateStore) Get(
	_ context.Context,
	icalURLID string,
) (*models.SyncState, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	transitions := store.Transitions[icalURLID]
	if len(transitions) == 0 {
		return nil, database.ErrResourceNotFound
	}

	lastSyncAt := store.LastSyncAt
	if lastSyncAt == nil {
		now := time.Now()
		lastSyncAt = &now
	}

	return &models.SyncState{
		IcalURLID:      icalURLID,
		LastSyncAt:     lastSyncAt,
		LastSyncStatus: transitions[len(transitions)-1],
	}, nil
}
