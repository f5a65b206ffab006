package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// VendorRepository reads the vendor directory.
type VendorRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Vendor, error)
}

type vendorRepository struct {
	pool *pgxpool.Pool
}

// NewVendorRepository builds the repository.
func NewVendorRepository(pool *pgxpool.Pool) VendorRepository {
	return &vendorRepository{pool: pool}
}

func (r *vendorRepository) GetByID(ctx context.Context, id string) (*domain.Vendor, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	const query = `SELECT id, name, email, active_flag FROM vendors WHERE id=$1`
	var vendor domain.Vendor
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&vendor.ID,
		&vendor.Name,
		&vendor.Email,
		&vendor.Active,
	); err != nil {
		return nil, err
	}
	return &vendor, nil
}
