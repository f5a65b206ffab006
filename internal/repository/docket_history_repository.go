package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// DocketHistoryRepository stores transition audit entries.
type DocketHistoryRepository interface {
	ListByRequest(ctx context.Context, requestID string) ([]domain.DocketHistory, error)
}

type docketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewDocketHistoryRepository builds repository.
func NewDocketHistoryRepository(pool *pgxpool.Pool) DocketHistoryRepository {
	return &docketHistoryRepository{pool: pool}
}

// insertHistory runs inside the owning transition's transaction.
func insertHistory(ctx context.Context, db DBTX, history *domain.DocketHistory) error {
	const query = `
        INSERT INTO docket_history (request_id, action, actor_id, actor_role, old_status, new_status, details)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	details := history.Details
	if details == nil {
		details = map[string]any{}
	}
	return db.QueryRow(ctx, query,
		history.RequestID,
		history.Action,
		history.ActorID,
		history.ActorRole,
		history.OldStatus,
		history.NewStatus,
		details,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *docketHistoryRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.DocketHistory, error) {
	if !validID(requestID) {
		return []domain.DocketHistory{}, nil
	}
	const query = `
        SELECT id, request_id, action, actor_id, actor_role, old_status, new_status, details, created_at
        FROM docket_history WHERE request_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.DocketHistory{}
	for rows.Next() {
		var history domain.DocketHistory
		if err := rows.Scan(
			&history.ID,
			&history.RequestID,
			&history.Action,
			&history.ActorID,
			&history.ActorRole,
			&history.OldStatus,
			&history.NewStatus,
			&history.Details,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
