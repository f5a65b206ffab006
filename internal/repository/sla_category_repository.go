package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// SlaCategoryRepository reads SLA categories.
type SlaCategoryRepository interface {
	GetByID(ctx context.Context, id string) (*domain.SlaCategory, error)
	List(ctx context.Context) ([]domain.SlaCategory, error)
}

type slaCategoryRepository struct {
	pool *pgxpool.Pool
}

// NewSlaCategoryRepository builds the repository.
func NewSlaCategoryRepository(pool *pgxpool.Pool) SlaCategoryRepository {
	return &slaCategoryRepository{pool: pool}
}

func (r *slaCategoryRepository) GetByID(ctx context.Context, id string) (*domain.SlaCategory, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	const query = `SELECT id, name, min_day, max_day FROM sla_categories WHERE id=$1`
	var category domain.SlaCategory
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.MinDay,
		&category.MaxDay,
	); err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *slaCategoryRepository) List(ctx context.Context) ([]domain.SlaCategory, error) {
	const query = `SELECT id, name, min_day, max_day FROM sla_categories ORDER BY min_day ASC, name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.SlaCategory{}
	for rows.Next() {
		var category domain.SlaCategory
		if err := rows.Scan(&category.ID, &category.Name, &category.MinDay, &category.MaxDay); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}
