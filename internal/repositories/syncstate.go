package repositories

import (
	"context"

	"github.com/xdoubleu/essentia/v2/pkg/database/postgres"
	"calsync.casaflow.app/internal/models"
)

type SyncStateRepository struct {
	db postgres.DB
}

// SetStatus records the feed's run state with a fresh timestamp. The row
// is keyed on the registration id, so the upsert here can always rely on
// the primary key.
func (repo *SyncStateRepository) SetStatus(
	ctx context.Context,
	icalURLID string,
	status string,
) error {
	query := `
		INSERT INTO calsync.sync_states (ical_url_id, last_sync_at, last_sync_status)
		VALUES ($1, now(), $2)
		ON CONFLICT (ical_url_id)
		DO UPDATE SET last_sync_at = now(), last_sync_status = $2
	`

	_, err := repo.db.Exec(ctx, query, icalURLID, status)
	if err != nil {
		return postgres.PgxErrorToHTTPError(err)
	}

	return nil
}

func (repo *SyncStateRepository) Get(
	ctx context.Context,
	icalURLID string,
) (*models.SyncState, error) {
	query := `
		SELECT last_sync_at, last_sync_status
		FROM calsync.sync_states
		WHERE ical_url_id = $1
	`

	//nolint:exhaustruct //other fields are assigned below
	state := models.SyncState{
		IcalURLID: icalURLID,
	}
	err := repo.db.QueryRow(ctx, query, icalURLID).Scan(
		&state.LastSyncAt,
		&state.LastSyncStatus,
	)
	if err != nil {
		return nil, postgres.PgxErrorToHTTPError(err)
	}

	return &state, nil
}
