package repository

import (
	"context"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// The progress ledger is only written inside a transition transaction, so
// these helpers take the transaction handle rather than owning a pool.

func appendProgressUpdate(ctx context.Context, db DBTX, update *domain.ProgressUpdate) error {
	const query = `
        INSERT INTO progress_updates (request_id, description, attachment, outcome, author_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return db.QueryRow(ctx, query,
		update.RequestID,
		update.Description,
		update.Attachment,
		update.Outcome,
		update.AuthorID,
	).Scan(&update.ID, &update.CreatedAt)
}

func resetProgressUpdates(ctx context.Context, db DBTX, requestID string) error {
	_, err := db.Exec(ctx, `DELETE FROM progress_updates WHERE request_id=$1`, requestID)
	return err
}

func listProgressUpdates(ctx context.Context, db DBTX, requestID string) ([]domain.ProgressUpdate, error) {
	const query = `
        SELECT id, request_id, description, attachment, outcome, author_id, created_at
        FROM progress_updates WHERE request_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := db.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.ProgressUpdate{}
	for rows.Next() {
		var update domain.ProgressUpdate
		if err := rows.Scan(
			&update.ID,
			&update.RequestID,
			&update.Description,
			&update.Attachment,
			&update.Outcome,
			&update.AuthorID,
			&update.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, update)
	}
	return result, rows.Err()
}
