package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/repository"
)

// memoryStore is an in-memory stand-in for the Postgres repositories with
// the same compare-and-set semantics.
type memoryStore struct {
	mu       sync.Mutex
	seq      int64
	rowBase  int64
	clock    time.Time
	requests map[string]*domain.MaintenanceRequest
	history  map[string][]domain.DocketHistory
	assets   map[string]*domain.Asset
	vendors  map[string]*domain.Vendor
	orgs     map[string]*domain.Organization
	slas     map[string]*domain.SlaCategory

	// afterGet runs after every GetByID outside the lock.
	afterGet func()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		rowBase:  42,
		clock:    time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC),
		requests: map[string]*domain.MaintenanceRequest{},
		history:  map[string][]domain.DocketHistory{},
		assets:   map[string]*domain.Asset{},
		vendors:  map[string]*domain.Vendor{},
		orgs:     map[string]*domain.Organization{},
		slas:     map[string]*domain.SlaCategory{},
	}
}

func (m *memoryStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memoryStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

// MaintenanceRepository

type memoryRequests struct{ *memoryStore }

// Create stages every write and applies them only once the docket number
// has been derived, matching the single transaction of the Postgres store.
func (r memoryRequests) Create(ctx context.Context, req *domain.MaintenanceRequest, history *domain.DocketHistory, number repository.DocketNumberFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[req.AssetID]
	if !ok || !asset.Available {
		return repository.ErrAssetUnavailable
	}
	rowID := int64(len(r.requests)) + r.rowBase
	createdAt := r.clock.Add(time.Second)
	docketNumber, err := number(rowID, createdAt)
	if err != nil {
		return err
	}

	r.clock = createdAt
	asset.Available = false
	req.ID = r.nextID("req")
	req.RowID = rowID
	req.CreatedAt = createdAt
	req.UpdatedAt = createdAt
	req.DocketNumber = &docketNumber
	r.requests[req.ID] = req.Clone()
	if history != nil {
		history.RequestID = req.ID
		r.history[req.ID] = append(r.history[req.ID], *history)
	}
	return nil
}

func (r memoryRequests) GetByID(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
	r.mu.Lock()
	stored, ok := r.requests[id]
	var out *domain.MaintenanceRequest
	if ok {
		out = stored.Clone()
	}
	hook := r.afterGet
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return out, nil
}

func (r memoryRequests) List(ctx context.Context, filter repository.MaintenanceFilter) ([]domain.MaintenanceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.MaintenanceRequest{}
	for _, req := range r.requests {
		if filter.OrganizationID != nil && req.OrganizationID != *filter.OrganizationID {
			continue
		}
		if filter.VendorID != nil && (req.VendorID == nil || *req.VendorID != *filter.VendorID) {
			continue
		}
		if filter.DocketType != nil && req.DocketType != *filter.DocketType {
			continue
		}
		if filter.RequesterID != nil && req.RequesterID != *filter.RequesterID {
			continue
		}
		out = append(out, *req.Clone())
	}
	return out, nil
}

func (r memoryRequests) Commit(ctx context.Context, commit repository.TransitionCommit) (*domain.MaintenanceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := commit.Request
	stored, ok := r.requests[next.ID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if stored.Status != commit.ExpectedStatus || !stored.UpdatedAt.Equal(commit.ExpectedUpdatedAt) {
		return nil, repository.ErrConflict
	}

	updates := stored.Updates
	if commit.ResetLedger {
		updates = []domain.ProgressUpdate{}
	}
	if commit.Append != nil {
		commit.Append.ID = r.nextID("upd")
		commit.Append.RequestID = next.ID
		commit.Append.CreatedAt = r.tick()
		updates = append(append([]domain.ProgressUpdate{}, updates...), *commit.Append)
	}
	if commit.ReleaseAsset {
		if asset, ok := r.assets[next.AssetID]; ok {
			asset.Available = true
		}
	}
	if commit.History != nil {
		commit.History.RequestID = next.ID
		r.history[next.ID] = append(r.history[next.ID], *commit.History)
	}

	saved := stored.Clone()
	saved.Status = next.Status
	saved.SlaCategoryID = next.SlaCategoryID
	saved.VendorID = next.VendorID
	saved.Updates = updates
	saved.UpdatedAt = r.tick()
	r.requests[next.ID] = saved
	return saved.Clone(), nil
}

// Directory repositories

type memoryHistory struct{ *memoryStore }

func (r memoryHistory) ListByRequest(ctx context.Context, requestID string) ([]domain.DocketHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.DocketHistory{}, r.history[requestID]...), nil
}

type memoryAssets struct{ *memoryStore }

func (r memoryAssets) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *asset
	return &copied, nil
}

type memoryVendors struct{ *memoryStore }

func (r memoryVendors) GetByID(ctx context.Context, id string) (*domain.Vendor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vendor, ok := r.vendors[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *vendor
	return &copied, nil
}

type memoryOrgs struct{ *memoryStore }

func (r memoryOrgs) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	org, ok := r.orgs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *org
	return &copied, nil
}

type memorySLAs struct{ *memoryStore }

func (r memorySLAs) GetByID(ctx context.Context, id string) (*domain.SlaCategory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	category, ok := r.slas[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *category
	return &copied, nil
}

func (r memorySLAs) List(ctx context.Context) ([]domain.SlaCategory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.SlaCategory{}
	for _, c := range r.slas {
		out = append(out, *c)
	}
	return out, nil
}

// recordingDispatcher captures published events.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, len(d.events))
	for i, e := range d.events {
		out[i] = e.Type
	}
	return out
}
