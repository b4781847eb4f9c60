package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/xdoubleu/essentia/v2/pkg/database"
	"github.com/xdoubleu/essentia/v2/pkg/database/postgres"
	"calsync.casaflow.app/internal/models"
)

// CalendarBlockRepository persists calendar blocks. Unlike the other
// repositories it returns raw pgx errors: the sync engine inspects
// SQLSTATEs to drive its upsert fallback, which the HTTP error mapping
// would erase.
type CalendarBlockRepository struct {
	db postgres.DB
}

// Upsert atomically inserts or updates the block keyed on
// (property_id, source, external_id) and reports whether a new row was
// created. It fails with a raw pg error when the target constraint is not
// deployed; callers fall back to Get + Update/Insert.
func (repo *CalendarBlockRepository) Upsert(
	ctx context.Context,
	block *models.CalendarBlock,
) (bool, error) {
	query := `
		INSERT INTO calsync.calendar_blocks
		(property_id, host_id, start_date, end_date, reason,
		 source, external_id, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (property_id, source, external_id)
		DO UPDATE SET start_date = $3, end_date = $4, reason = $5,
		is_active = $8, updated_at = now()
		RETURNING id, (xmax = 0) AS inserted
	`

	var inserted bool
	err := repo.db.QueryRow(
		ctx,
		query,
		block.PropertyID,
		block.HostID,
		block.StartDate,
		block.EndDate,
		block.Reason,
		block.Source,
		block.ExternalID,
		block.IsActive,
		block.CreatedBy,
	).Scan(&block.ID, &inserted)

	if err != nil {
		return false, err
	}

	return inserted, nil
}

func (repo *CalendarBlockRepository) GetByExternalKey(
	ctx context.Context,
	propertyID string,
	source string,
	externalID string,
) (*models.CalendarBlock, error) {
	query := `
		SELECT id, host_id, start_date, end_date, reason,
		is_active, created_by, created_at, updated_at
		FROM calsync.calendar_blocks
		WHERE property_id = $1 AND source = $2 AND external_id = $3
	`

	//nolint:exhaustruct //other fields are assigned below
	block := models.CalendarBlock{
		PropertyID: propertyID,
		Source:     source,
		ExternalID: externalID,
	}
	err := repo.db.QueryRow(
		ctx,
		query,
		propertyID,
		source,
		externalID,
	).Scan(
		&block.ID,
		&block.HostID,
		&block.StartDate,
		&block.EndDate,
		&block.Reason,
		&block.IsActive,
		&block.CreatedBy,
		&block.CreatedAt,
		&block.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, database.ErrResourceNotFound
	}

	if err != nil {
		return nil, err
	}

	return &block, nil
}

func (repo *CalendarBlockRepository) Insert(
	ctx context.Context,
	block *models.CalendarBlock,
) error {
	query := `
		INSERT INTO calsync.calendar_blocks
		(property_id, host_id, start_date, end_date, reason,
		 source, external_id, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	return repo.db.QueryRow(
		ctx,
		query,
		block.PropertyID,
		block.HostID,
		block.StartDate,
		block.EndDate,
		block.Reason,
		block.Source,
		block.ExternalID,
		block.IsActive,
		block.CreatedBy,
	).Scan(&block.ID)
}

// Update rewrites the mutable fields of an existing block. Cancellation
// flows through here as is_active = false; rows are never deleted.
func (repo *CalendarBlockRepository) Update(
	ctx context.Context,
	block *models.CalendarBlock,
) error {
	query := `
		UPDATE calsync.calendar_blocks
		SET start_date = $2, end_date = $3, reason = $4,
		is_active = $5, updated_at = now()
		WHERE id = $1
	`

	result, err := repo.db.Exec(
		ctx,
		query,
		block.ID,
		block.StartDate,
		block.EndDate,
		block.Reason,
		block.IsActive,
	)

	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return database.ErrResourceNotFound
	}

	return nil
}

func (repo *CalendarBlockRepository) GetAllForProperty(
	ctx context.Context,
	propertyID string,
) ([]models.CalendarBlock, error) {
	query := `
		SELECT id, host_id, start_date, end_date, reason,
		source, external_id, is_active, created_by, created_at, updated_at
		FROM calsync.calendar_blocks
		WHERE property_id = $1
		ORDER BY start_date asc
	`

	rows, err := repo.db.Query(ctx, query, propertyID)
	if err != nil {
		return nil, postgres.PgxErrorToHTTPError(err)
	}
	defer rows.Close()

	blocks := []models.CalendarBlock{}
	for rows.Next() {
		//nolint:exhaustruct //other fields are assigned below
		block := models.CalendarBlock{
			PropertyID: propertyID,
		}

		err = rows.Scan(
			&block.ID,
			&block.HostID,
			&block.StartDate,
			&block.EndDate,
			&block.Reason,
			&block.Source,
			&block.ExternalID,
			&block.IsActive,
			&block.CreatedBy,
			&block.CreatedAt,
			&block.UpdatedAt,
		)
		if err != nil {
			return nil, postgres.PgxErrorToHTTPError(err)
		}

		blocks = append(blocks, block)
	}

	if err = rows.Err(); err != nil {
		return nil, postgres.PgxErrorToHTTPError(err)
	}

	return blocks, nil
}
