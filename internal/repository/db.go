package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrConflict is returned when a compare-and-set write loses to a concurrent writer.
	ErrConflict = errors.New("request modified concurrently")
	// ErrAssetUnavailable is returned when the asset is already reserved.
	ErrAssetUnavailable = errors.New("asset unavailable")
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// validID reports whether id is a canonical UUID. Every key column is a
// UUID, so lookups treat any other string as absent instead of letting
// Postgres reject the cast.
func validID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
