package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// AssetRepository reads the asset inventory.
type AssetRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Asset, error)
}

type assetRepository struct {
	pool *pgxpool.Pool
}

// NewAssetRepository builds the repository.
func NewAssetRepository(pool *pgxpool.Pool) AssetRepository {
	return &assetRepository{pool: pool}
}

func (r *assetRepository) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	const query = `SELECT id, organization_id, name, available FROM assets WHERE id=$1`
	var asset domain.Asset
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&asset.ID,
		&asset.OrganizationID,
		&asset.Name,
		&asset.Available,
	); err != nil {
		return nil, err
	}
	return &asset, nil
}

func reserveAsset(ctx context.Context, db DBTX, assetID string) error {
	cmd, err := db.Exec(ctx, `UPDATE assets SET available=FALSE, updated_at=NOW() WHERE id=$1 AND available`, assetID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAssetUnavailable
	}
	return nil
}

func releaseAsset(ctx context.Context, db DBTX, assetID string) error {
	_, err := db.Exec(ctx, `UPDATE assets SET available=TRUE, updated_at=NOW() WHERE id=$1`, assetID)
	return err
}
