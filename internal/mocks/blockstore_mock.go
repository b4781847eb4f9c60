package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xdoubleu/essentia/v2/pkg/database"
	"calsync.casaflow.app/internal/models"
)

// MockedBlockStore is an in-memory services.BlockStore. With
// ConstraintMissing set, Upsert fails the way Postgres does when the
// composite unique index is not deployed, forcing the fallback path.
type MockedBlockStore struct {
	mu                sync.Mutex
	ConstraintMissing bool
	UpsertErr         error
	blocks            map[string]*models.CalendarBlock
	nextID            int
}

func NewMockedBlockStore() *MockedBlockStore {
	//nolint:exhaustruct //flags default to off
	return &MockedBlockStore{
		blocks: make(map[string]*models.CalendarBlock),
	}
}

func externalKey(propertyID, source, externalID string) string {
	return propertyID + "|" + source + "|" + externalID
}

func (store *MockedBlockStore) Upsert(
	_ context.Context,
	block *models.CalendarBlock,
) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.UpsertErr != nil {
		return false, store.UpsertErr
	}

	if store.ConstraintMissing {
		//nolint:exhaustruct //only the code matters
		return false, &pgconn.PgError{
			Code:    pgerrcode.InvalidColumnReference,
			Message: "there is no unique or exclusion constraint matching the ON CONFLICT specification",
		}
	}

	key := externalKey(block.PropertyID, block.Source, block.ExternalID)

	existing, ok := store.blocks[key]
	if ok {
		block.ID = existing.ID
		store.blocks[key] = copyBlock(block)
		return false, nil
	}

	store.storeNew(key, block)
	return true, nil
}

func (store *MockedBlockStore) GetByExternalKey(
	_ context.Context,
	propertyID string,
	source string,
	externalID string,
) (*models.CalendarBlock, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	block, ok := store.blocks[externalKey(propertyID, source, externalID)]
	if !ok {
		return nil, database.ErrResourceNotFound
	}

	return copyBlock(block), nil
}

func (store *MockedBlockStore) Insert(
	_ context.Context,
	block *models.CalendarBlock,
) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.storeNew(externalKey(block.PropertyID, block.Source, block.ExternalID), block)
	return nil
}

func (store *MockedBlockStore) Update(
	_ context.Context,
	block *models.CalendarBlock,
) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for key, existing := range store.blocks {
		if existing.ID == block.ID {
			store.blocks[key] = copyBlock(block)
			return nil
		}
	}

	return database.ErrResourceNotFound
}

// Blocks returns a snapshot of all stored blocks for assertions.
func (store *MockedBlockStore) Blocks() []models.CalendarBlock {
	store.mu.Lock()
	defer store.mu.Unlock()

	blocks := []models.CalendarBlock{}
	for _, block := range store.blocks {
		blocks = append(blocks, *block)
	}

	return blocks
}

func (store *MockedBlockStore) storeNew(key string, block *models.CalendarBlock) {
	store.nextID++
	block.ID = fmt.Sprintf("block-%d", store.nextID)
	store.blocks[key] = copyBlock(block)
}

func copyBlock(block *models.CalendarBlock) *models.CalendarBlock {
	clone := *block
	return &clone
}
