package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// MaintenanceFilter captures list parameters.
type MaintenanceFilter struct {
	OrganizationID *string
	DocketType     *domain.DocketType
	Statuses       []domain.Status
	AssetID        *string
	VendorID       *string
	RequesterID    *string
	Limit          int
	Offset         int
}

// TransitionCommit is everything a single decided transition writes. The
// request row is updated only if its status and updated_at still match the
// snapshot the decision was made against.
type TransitionCommit struct {
	Request           *domain.MaintenanceRequest
	ExpectedStatus    domain.Status
	ExpectedUpdatedAt time.Time
	Append            *domain.ProgressUpdate
	ResetLedger       bool
	ReleaseAsset      bool
	History           *domain.DocketHistory
}

// DocketNumberFunc derives the docket number from the row id and creation
// time the store assigned to a new request.
type DocketNumberFunc func(rowID int64, createdAt time.Time) (string, error)

// MaintenanceRepository is the persistence collaborator for maintenance requests.
type MaintenanceRepository interface {
	Create(ctx context.Context, req *domain.MaintenanceRequest, history *domain.DocketHistory, number DocketNumberFunc) error
	GetByID(ctx context.Context, id string) (*domain.MaintenanceRequest, error)
	List(ctx context.Context, filter MaintenanceFilter) ([]domain.MaintenanceRequest, error)
	Commit(ctx context.Context, commit TransitionCommit) (*domain.MaintenanceRequest, error)
}

type maintenanceRepository struct {
	pool *pgxpool.Pool
}

// NewMaintenanceRepository instantiates repository.
func NewMaintenanceRepository(pool *pgxpool.Pool) MaintenanceRepository {
	return &maintenanceRepository{pool: pool}
}

const maintenanceColumns = `id, row_id, organization_id, docket_type, status, sla_category_id, asset_id,
               vendor_id, priority, requester_id, description, attachment, docket_number, created_at, updated_at`

// Create inserts the request, reserves its asset, stamps the docket number
// and records the creation, all in one transaction. It fills ID, RowID,
// DocketNumber, CreatedAt and UpdatedAt.
func (r *maintenanceRepository) Create(ctx context.Context, req *domain.MaintenanceRequest, history *domain.DocketHistory, number DocketNumberFunc) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := reserveAsset(ctx, tx, req.AssetID); err != nil {
			return err
		}
		const query = `
            INSERT INTO maintenance_requests (organization_id, docket_type, status, asset_id, vendor_id,
                priority, requester_id, description, attachment)
            VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,$8,$9)
            RETURNING id, row_id, created_at, updated_at`
		if err := tx.QueryRow(ctx, query,
			req.OrganizationID,
			req.DocketType,
			req.Status,
			req.AssetID,
			req.VendorID,
			req.Priority,
			req.RequesterID,
			req.Description,
			req.Attachment,
		).Scan(&req.ID, &req.RowID, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return err
		}
		docketNumber, err := number(req.RowID, req.CreatedAt)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE maintenance_requests SET docket_number=$1 WHERE id=$2`, docketNumber, req.ID); err != nil {
			return err
		}
		req.DocketNumber = &docketNumber
		if history != nil {
			history.RequestID = req.ID
			return insertHistory(ctx, tx, history)
		}
		return nil
	})
}

func (r *maintenanceRepository) GetByID(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance_requests WHERE id=$1`
	req, err := scanRequest(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	updates, err := listProgressUpdates(ctx, r.pool, req.ID)
	if err != nil {
		return nil, err
	}
	req.Updates = updates
	return req, nil
}

func (r *maintenanceRepository) List(ctx context.Context, filter MaintenanceFilter) ([]domain.MaintenanceRequest, error) {
	query, args, ok := buildListQuery(filter)
	if !ok {
		return []domain.MaintenanceRequest{}, nil
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.MaintenanceRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

// buildListQuery renders the filtered listing. ok is false when a key filter
// is not a UUID and so cannot match any row.
func buildListQuery(filter MaintenanceFilter) (query string, args []any, ok bool) {
	clauses := []string{"1=1"}
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	for _, key := range []*string{filter.OrganizationID, filter.AssetID, filter.VendorID} {
		if key != nil && !validID(*key) {
			return "", nil, false
		}
	}

	if filter.OrganizationID != nil {
		add("organization_id=$%d", *filter.OrganizationID)
	}
	if filter.DocketType != nil {
		add("docket_type=$%d", *filter.DocketType)
	}
	if filter.AssetID != nil {
		add("asset_id=$%d", *filter.AssetID)
	}
	if filter.VendorID != nil {
		add("vendor_id=$%d", *filter.VendorID)
	}
	if filter.RequesterID != nil {
		add("requester_id=$%d", *filter.RequesterID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", statuses)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query = fmt.Sprintf(`SELECT %s FROM maintenance_requests WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		maintenanceColumns, strings.Join(clauses, " AND "), limit, offset)
	return query, args, true
}

// Commit applies a decided transition. State, ledger, asset release and
// history change together or not at all; a stale snapshot yields ErrConflict.
func (r *maintenanceRepository) Commit(ctx context.Context, commit TransitionCommit) (*domain.MaintenanceRequest, error) {
	req := commit.Request
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
            UPDATE maintenance_requests
            SET status=$1, sla_category_id=$2, vendor_id=$3, updated_at=NOW()
            WHERE id=$4 AND status=$5 AND updated_at=$6
            RETURNING updated_at`
		err := tx.QueryRow(ctx, query,
			req.Status,
			req.SlaCategoryID,
			req.VendorID,
			req.ID,
			commit.ExpectedStatus,
			commit.ExpectedUpdatedAt,
		).Scan(&req.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM maintenance_requests WHERE id=$1)`, req.ID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return pgx.ErrNoRows
			}
			return ErrConflict
		}
		if err != nil {
			return err
		}

		if commit.ResetLedger {
			if err := resetProgressUpdates(ctx, tx, req.ID); err != nil {
				return err
			}
		}
		if commit.Append != nil {
			commit.Append.RequestID = req.ID
			if err := appendProgressUpdate(ctx, tx, commit.Append); err != nil {
				return err
			}
		}
		if commit.ReleaseAsset {
			if err := releaseAsset(ctx, tx, req.AssetID); err != nil {
				return err
			}
		}
		if commit.History != nil {
			commit.History.RequestID = req.ID
			if err := insertHistory(ctx, tx, commit.History); err != nil {
				return err
			}
		}

		updates, err := listProgressUpdates(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		req.Updates = updates
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func scanRequest(row pgx.Row) (*domain.MaintenanceRequest, error) {
	var (
		req      domain.MaintenanceRequest
		priority *string
	)
	if err := row.Scan(
		&req.ID,
		&req.RowID,
		&req.OrganizationID,
		&req.DocketType,
		&req.Status,
		&req.SlaCategoryID,
		&req.AssetID,
		&req.VendorID,
		&priority,
		&req.RequesterID,
		&req.Description,
		&req.Attachment,
		&req.DocketNumber,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if priority != nil {
		req.Priority = domain.Priority(*priority)
	}
	return &req, nil
}
