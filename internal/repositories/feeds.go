package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/xdoubleu/essentia/v2/pkg/database"
	"github.com/xdoubleu/essentia/v2/pkg/database/postgres"
	"calsync.casaflow.app/internal/models"
)

type FeedRepository struct {
	db postgres.DB
}

func (repo *FeedRepository) GetByID(
	ctx context.Context,
	id string,
) (*models.FeedRegistration, error) {
	query := `
		SELECT property_id, host_id, channel, url
		FROM calsync.ical_urls
		WHERE id = $1
	`

	//nolint:exhaustruct //other fields are assigned below
	reg := models.FeedRegistration{
		ID: id,
	}
	err := repo.db.QueryRow(ctx, query, id).Scan(
		&reg.PropertyID,
		&reg.HostID,
		&reg.Channel,
		&reg.URL,
	)

	// Missing registrations stay distinguishable from infrastructure
	// failures; callers branch on ErrResourceNotFound.
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, database.ErrResourceNotFound
	}

	if err != nil {
		return nil, postgres.PgxErrorToHTTPError(err)
	}

	return &reg, nil
}

// GetByAccountID resolves the legacy trigger alias: accounts carry their
// feed URL on ics_pull_url instead of a row in ical_urls.
func (repo *FeedRepository) GetByAccountID(
	ctx context.Context,
	accountID string,
) (*models.FeedRegistration, error) {
	query := `
		SELECT property_id, host_id, channel, ics_pull_url
		FROM calsync.accounts
		WHERE id = $1
	`

	//nolint:exhaustruct //other fields are assigned below
	reg := models.FeedRegistration{
		ID: accountID,
	}
	err := repo.db.QueryRow(ctx, query, accountID).Scan(
		&reg.PropertyID,
		&reg.HostID,
		&reg.Channel,
		&reg.URL,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, database.ErrResourceNotFound
	}

	if err != nil {
		return nil, postgres.PgxErrorToHTTPError(err)
	}

	return &reg, nil
}

func (repo *FeedRepository) GetAll(
	ctx context.Context,
) ([]models.FeedRegistration, error) {
	query := `
		SELECT id, property_id, host_id, channel, url
		FROM calsync.ical_urls
		ORDER BY id asc
	`

	rows, err := repo.db.Query(ctx, query)
	if err != nil {
		return nil, postgres.PgxErrorToHTTPError(err)
	}
	defer rows.Close()

	regs := []models.FeedRegistration{}
	for rows.Next() {
		//nolint:exhaustruct //all fields are assigned below
		reg := models.FeedRegistration{}

		err = rows.Scan(
			&reg.ID,
			&reg.PropertyID,
			&reg.HostID,
			&reg.Channel,
			&reg.URL,
		)
		if err != nil {
			return nil, postgres.PgxErrorToHTTPError(err)
		}

		regs = append(regs, reg)
	}

	if err = rows.Err(); err != nil {
		return nil, postgres.PgxErrorToHTTPError(err)
	}

	return regs, nil
}
