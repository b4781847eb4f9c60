package repositories

import (
	"github.com/xdoubleu/essentia/v2/pkg/database/postgres"
)

type Repositories struct {
	Blocks    *CalendarBlockRepository
	Feeds     *FeedRepository
	SyncState *SyncStateRepository
}

func New(db postgres.DB) *Repositories {
	return &Repositories{
		Blocks:    &CalendarBlockRepository{db: db},
		Feeds:     &FeedRepository{db: db},
		SyncState: &SyncStateRepository{db: db},
	}
}
