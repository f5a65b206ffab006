package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/observability"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/workflow"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

const orgID = "org-1"

func strPtr(s string) *string { return &s }

var (
	staff   = domain.Actor{ID: "staff-1", Role: domain.RoleStaff, OrganizationID: orgID}
	tp      = domain.Actor{ID: "tp-1", Role: domain.RoleTP, OrganizationID: orgID}
	dusp    = domain.Actor{ID: "dusp-1", Role: domain.RoleDUSP, OrganizationID: orgID}
	vendorX = domain.Actor{ID: "vx-user", Role: domain.RoleVendor, VendorID: strPtr("vendor-x")}
	vendorY = domain.Actor{ID: "vy-user", Role: domain.RoleVendor, VendorID: strPtr("vendor-y")}
)

type fixture struct {
	store      *memoryStore
	dispatcher *recordingDispatcher
	metrics    *observability.Metrics
	svc        *MaintenanceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemoryStore()
	store.orgs[orgID] = &domain.Organization{ID: orgID, Code: "ABC", Name: "Alpha Clinic"}
	store.orgs["org-2"] = &domain.Organization{ID: "org-2", Code: "XYZ"}
	for _, id := range []string{"asset-1", "asset-2", "asset-3"} {
		store.assets[id] = &domain.Asset{ID: id, OrganizationID: orgID, Name: id, Available: true}
	}
	store.assets["foreign"] = &domain.Asset{ID: "foreign", OrganizationID: "org-2", Available: true}
	store.vendors["vendor-x"] = &domain.Vendor{ID: "vendor-x", Email: "x@vendor.test", Active: true}
	store.vendors["vendor-y"] = &domain.Vendor{ID: "vendor-y", Email: "y@vendor.test", Active: true}
	store.vendors["vendor-off"] = &domain.Vendor{ID: "vendor-off", Active: false}
	store.slas["low"] = &domain.SlaCategory{ID: "low", Name: "Routine", MinDay: 5, MaxDay: 10}
	store.slas["high"] = &domain.SlaCategory{ID: "high", Name: "Extended", MinDay: 20, MaxDay: 30}
	store.slas["edge"] = &domain.SlaCategory{ID: "edge", Name: "Boundary", MinDay: 15, MaxDay: 20}

	dispatcher := &recordingDispatcher{}
	metrics := observability.NewMetrics()
	svc := NewMaintenanceService(MaintenanceDependencies{
		RequestRepo:      memoryRequests{store},
		HistoryRepo:      memoryHistory{store},
		AssetRepo:        memoryAssets{store},
		VendorRepo:       memoryVendors{store},
		OrganizationRepo: memoryOrgs{store},
		SLA:              NewSLAResolver(memorySLAs{store}, nil, 0, nil),
		Dispatcher:       dispatcher,
		Metrics:          metrics,
	})
	return &fixture{store: store, dispatcher: dispatcher, metrics: metrics, svc: svc}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	if got := apperrors.CodeOf(err); got != code {
		t.Fatalf("expected %s, got %s (%v)", code, got, err)
	}
}

func requireStatus(t *testing.T, req *domain.MaintenanceRequest, err error, want domain.Status) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Status != want {
		t.Fatalf("status = %s, want %s", req.Status, want)
	}
}

func (f *fixture) corrective(t *testing.T, assetID string) *domain.MaintenanceRequest {
	t.Helper()
	req, err := f.svc.CreateCorrective(context.Background(), staff, CorrectiveInput{
		AssetID:     assetID,
		Priority:    domain.PriorityHigh,
		Description: "chiller leaking",
	})
	requireStatus(t, req, err, domain.StatusSubmitted)
	return req
}

func (f *fixture) preventive(t *testing.T, assetID, vendorID string) *domain.MaintenanceRequest {
	t.Helper()
	req, err := f.svc.CreatePreventive(context.Background(), tp, PreventiveInput{
		AssetID:     assetID,
		VendorID:    vendorID,
		Description: "quarterly generator service",
	})
	requireStatus(t, req, err, domain.StatusIssued)
	return req
}

func TestCreateCorrectiveAssignsDocketAndReservesAsset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.corrective(t, "asset-1")
	if req.DocketNumber == nil || *req.DocketNumber != "ABC2503070042" {
		t.Fatalf("unexpected docket number %v", req.DocketNumber)
	}
	if req.SlaCategoryID != nil || req.VendorID != nil {
		t.Fatalf("new corrective request must have no sla or vendor")
	}
	if f.store.assets["asset-1"].Available {
		t.Fatalf("asset should be reserved")
	}

	_, err := f.svc.CreateCorrective(ctx, tp, CorrectiveInput{AssetID: "asset-1", Priority: domain.PriorityLow})
	requireCode(t, err, apperrors.CodePreconditionFailed)

	types := f.dispatcher.types()
	if len(types) != 1 || types[0] != events.EventDocketCreated {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateCorrective(ctx, vendorX, CorrectiveInput{AssetID: "asset-1", Priority: domain.PriorityLow})
	requireCode(t, err, apperrors.CodeUnauthorized)

	_, err = f.svc.CreatePreventive(ctx, staff, PreventiveInput{AssetID: "asset-1", VendorID: "vendor-x"})
	requireCode(t, err, apperrors.CodeUnauthorized)

	_, err = f.svc.CreateCorrective(ctx, staff, CorrectiveInput{AssetID: "missing", Priority: domain.PriorityLow})
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = f.svc.CreateCorrective(ctx, staff, CorrectiveInput{AssetID: "foreign", Priority: domain.PriorityLow})
	requireCode(t, err, apperrors.CodeUnauthorized)

	_, err = f.svc.CreateCorrective(ctx, staff, CorrectiveInput{AssetID: "asset-1", Priority: "URGENT"})
	requireCode(t, err, apperrors.CodePreconditionFailed)

	_, err = f.svc.CreatePreventive(ctx, tp, PreventiveInput{AssetID: "asset-1", VendorID: "nobody"})
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = f.svc.CreatePreventive(ctx, tp, PreventiveInput{AssetID: "asset-1", VendorID: "vendor-off"})
	requireCode(t, err, apperrors.CodePreconditionFailed)

	if !f.store.assets["asset-1"].Available {
		t.Fatalf("failed creates must not reserve the asset")
	}
}

func TestCorrectiveLowSLAScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.corrective(t, "asset-1")

	updated, err := f.svc.SetSLACategory(ctx, tp, req.ID, "low")
	requireStatus(t, updated, err, domain.StatusSubmitted)
	if updated.SlaCategoryID == nil || *updated.SlaCategoryID != "low" {
		t.Fatalf("sla not recorded")
	}

	_, err = f.svc.Approve(ctx, dusp, req.ID)
	requireCode(t, err, apperrors.CodeInvalidState)

	updated, err = f.svc.AssignVendor(ctx, tp, req.ID, "vendor-x")
	requireStatus(t, updated, err, domain.StatusIssued)
	if updated.VendorID == nil || *updated.VendorID != "vendor-x" {
		t.Fatalf("vendor not recorded")
	}
}

func TestCorrectiveHighSLAScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.corrective(t, "asset-1")

	_, err := f.svc.SetSLACategory(ctx, tp, req.ID, "high")
	if err != nil {
		t.Fatalf("set sla: %v", err)
	}
	_, err = f.svc.AssignVendor(ctx, tp, req.ID, "vendor-x")
	requireCode(t, err, apperrors.CodeInvalidState)

	updated, err := f.svc.Approve(ctx, dusp, req.ID)
	requireStatus(t, updated, err, domain.StatusApproved)

	updated, err = f.svc.AssignVendor(ctx, tp, req.ID, "vendor-x")
	requireStatus(t, updated, err, domain.StatusIssued)
}

func TestCorrectiveSLARules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.corrective(t, "asset-1")

	_, err := f.svc.AssignVendor(ctx, tp, req.ID, "vendor-x")
	requireCode(t, err, apperrors.CodePreconditionFailed)
	_, err = f.svc.Approve(ctx, dusp, req.ID)
	requireCode(t, err, apperrors.CodePreconditionFailed)

	_, err = f.svc.SetSLACategory(ctx, dusp, req.ID, "low")
	requireCode(t, err, apperrors.CodeUnauthorized)
	_, err = f.svc.SetSLACategory(ctx, tp, req.ID, "missing")
	requireCode(t, err, apperrors.CodeNotFound)

	if _, err := f.svc.SetSLACategory(ctx, tp, req.ID, "edge"); err != nil {
		t.Fatalf("set sla: %v", err)
	}
	_, err = f.svc.SetSLACategory(ctx, tp, req.ID, "low")
	requireCode(t, err, apperrors.CodeUnauthorized)

	// minDay 15 sits on the escalation threshold.
	_, err = f.svc.AssignVendor(ctx, tp, req.ID, "vendor-x")
	requireCode(t, err, apperrors.CodeInvalidState)
}

func TestCorrectiveVendorHandshake(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.corrective(t, "asset-1")
	if _, err := f.svc.SetSLACategory(ctx, tp, req.ID, "low"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.AssignVendor(ctx, tp, req.ID, "vendor-x"); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.Accept(ctx, vendorY, req.ID)
	requireCode(t, err, apperrors.CodeUnauthorized)

	updated, err := f.svc.Decline(ctx, vendorX, req.ID)
	requireStatus(t, updated, err, domain.StatusRejected)
	if !f.store.assets["asset-1"].Available {
		t.Fatalf("declined corrective request should release the asset")
	}

	_, err = f.svc.AssignVendor(ctx, tp, req.ID, "vendor-y")
	requireCode(t, err, apperrors.CodeUnauthorized)
}

func TestPreventiveFullCycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.preventive(t, "asset-2", "vendor-x")

	updated, err := f.svc.Accept(ctx, vendorX, req.ID)
	requireStatus(t, updated, err, domain.StatusInProgress)

	updated, err = f.svc.PostUpdate(ctx, vendorX, req.ID, workflow.UpdateInput{
		Description: "replaced belts",
		Attachment:  "attachments/2025/03/07/a.jpg",
		Outcome:     domain.OutcomeOngoing,
	})
	requireStatus(t, updated, err, domain.StatusInProgress)

	updated, err = f.svc.PostUpdate(ctx, vendorX, req.ID, workflow.UpdateInput{
		Description: "parts on backorder",
		Attachment:  "attachments/2025/03/07/b.jpg",
		Outcome:     domain.OutcomeIncomplete,
	})
	requireStatus(t, updated, err, domain.StatusDeferred)
	if len(updated.Updates) != 2 || updated.Updates[0].Description != "replaced belts" {
		t.Fatalf("ledger not preserved in order: %+v", updated.Updates)
	}

	updated, err = f.svc.AssignVendor(ctx, tp, req.ID, "vendor-y")
	requireStatus(t, updated, err, domain.StatusIssued)
	if len(updated.Updates) != 0 {
		t.Fatalf("reassignment should reset the ledger, got %d entries", len(updated.Updates))
	}
	if *updated.VendorID != "vendor-y" {
		t.Fatalf("vendor not reassigned")
	}

	_, err = f.svc.Accept(ctx, vendorX, req.ID)
	requireCode(t, err, apperrors.CodeUnauthorized)
}

func TestPreventiveClosureAndRejection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.preventive(t, "asset-2", "vendor-x")
	if _, err := f.svc.Accept(ctx, vendorX, req.ID); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.PostUpdate(ctx, vendorX, req.ID, workflow.UpdateInput{
		Description: "no evidence",
		Outcome:     domain.OutcomeOngoing,
	})
	requireCode(t, err, apperrors.CodePreconditionFailed)

	_, err = f.svc.Close(ctx, staff, req.ID)
	requireCode(t, err, apperrors.CodeUnauthorized)

	updated, err := f.svc.Close(ctx, tp, req.ID)
	requireStatus(t, updated, err, domain.StatusCompleted)
	if !f.store.assets["asset-2"].Available {
		t.Fatalf("closing should release the asset")
	}
	_, err = f.svc.RejectCompletion(ctx, tp, req.ID)
	requireCode(t, err, apperrors.CodeUnauthorized)

	other := f.preventive(t, "asset-3", "vendor-x")
	if _, err := f.svc.Accept(ctx, vendorX, other.ID); err != nil {
		t.Fatal(err)
	}
	updated, err = f.svc.RejectCompletion(ctx, tp, other.ID)
	requireStatus(t, updated, err, domain.StatusIncompleted)
	updated, err = f.svc.AssignVendor(ctx, tp, other.ID, "vendor-y")
	requireStatus(t, updated, err, domain.StatusIssued)
}

func TestTransitionUnknownRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Approve(context.Background(), dusp, "nope")
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestMalformedReferenceIDsAreNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// Postgres-backed directories reject non-UUID ids before querying, so a
	// nil pool is never touched.
	svc := NewMaintenanceService(MaintenanceDependencies{
		RequestRepo:      memoryRequests{f.store},
		HistoryRepo:      memoryHistory{f.store},
		AssetRepo:        memoryAssets{f.store},
		VendorRepo:       repository.NewVendorRepository(nil),
		OrganizationRepo: memoryOrgs{f.store},
		SLA:              NewSLAResolver(repository.NewSlaCategoryRepository(nil), nil, 0, nil),
	})

	_, err := svc.CreatePreventive(ctx, tp, PreventiveInput{AssetID: "asset-2", VendorID: "x"})
	requireCode(t, err, apperrors.CodeNotFound)

	req := f.corrective(t, "asset-1")
	_, err = svc.SetSLACategory(ctx, tp, req.ID, "abc")
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = svc.AssignVendor(ctx, tp, req.ID, "not-a-uuid")
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestCreateLeavesNothingBehindWhenDocketNumberFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.rowBase = -10

	_, err := f.svc.CreateCorrective(ctx, staff, CorrectiveInput{AssetID: "asset-1", Priority: domain.PriorityLow})
	if err == nil {
		t.Fatalf("expected docket numbering to fail")
	}
	if len(f.store.requests) != 0 || len(f.store.history) != 0 {
		t.Fatalf("failed create persisted %d requests and %d histories", len(f.store.requests), len(f.store.history))
	}
	if !f.store.assets["asset-1"].Available {
		t.Fatalf("failed create must not keep the asset reserved")
	}
	if got := f.dispatcher.types(); len(got) != 0 {
		t.Fatalf("failed create published %v", got)
	}
	if counts := f.metrics.Snapshot()["transitions"]; counts["CREATE|INTERNAL_ERROR"] != 1 {
		t.Fatalf("failed create not counted: %v", counts)
	}

	f.store.rowBase = 42
	req := f.corrective(t, "asset-1")
	if *req.DocketNumber != "ABC2503070042" {
		t.Fatalf("retry produced %s", *req.DocketNumber)
	}
}

func TestConcurrentTransitionsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.preventive(t, "asset-2", "vendor-x")

	var barrier sync.WaitGroup
	barrier.Add(2)
	f.store.afterGet = func() {
		barrier.Done()
		barrier.Wait()
	}

	results := make([]error, 2)
	var wg sync.WaitGroup
	for i, act := range []func() error{
		func() error { _, err := f.svc.Accept(ctx, vendorX, req.ID); return err },
		func() error { _, err := f.svc.Decline(ctx, vendorX, req.ID); return err },
	} {
		wg.Add(1)
		go func(i int, act func() error) {
			defer wg.Done()
			results[i] = act()
		}(i, act)
	}
	wg.Wait()
	f.store.afterGet = nil

	succeeded, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case apperrors.Is(err, apperrors.CodeConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if succeeded != 1 || conflicts != 1 {
		t.Fatalf("expected one winner and one conflict, got %d/%d", succeeded, conflicts)
	}

	detail, err := f.svc.GetRequest(ctx, tp, req.ID)
	if err != nil {
		t.Fatal(err)
	}
	// creation plus exactly one committed transition
	if len(detail.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(detail.History))
	}
}

func TestGetRequestVisibilityAndActions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.preventive(t, "asset-2", "vendor-x")

	detail, err := f.svc.GetRequest(ctx, vendorX, req.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []workflow.Action{workflow.ActionAccept, workflow.ActionDecline}
	if len(detail.AvailableActions) != len(want) {
		t.Fatalf("actions = %v, want %v", detail.AvailableActions, want)
	}
	for i := range want {
		if detail.AvailableActions[i] != want[i] {
			t.Fatalf("actions = %v, want %v", detail.AvailableActions, want)
		}
	}

	detail, err = f.svc.GetRequest(ctx, tp, req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(detail.AvailableActions) != 0 {
		t.Fatalf("TP has nothing to do on an issued preventive request, got %v", detail.AvailableActions)
	}

	_, err = f.svc.GetRequest(ctx, vendorY, req.ID)
	requireCode(t, err, apperrors.CodeUnauthorized)

	outsider := domain.Actor{ID: "tp-2", Role: domain.RoleTP, OrganizationID: "org-2"}
	_, err = f.svc.GetRequest(ctx, outsider, req.ID)
	requireCode(t, err, apperrors.CodeUnauthorized)
}

func TestListRequestsScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.corrective(t, "asset-1")
	f.preventive(t, "asset-2", "vendor-x")
	f.preventive(t, "asset-3", "vendor-y")

	all, err := f.svc.ListRequests(ctx, staff, ListFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("staff should see 3, got %d (%v)", len(all), err)
	}
	mine, err := f.svc.ListRequests(ctx, vendorX, ListFilter{VendorID: strPtr("vendor-y")})
	if err != nil || len(mine) != 1 || *mine[0].VendorID != "vendor-x" {
		t.Fatalf("vendor scope not enforced: %d (%v)", len(mine), err)
	}
	pm := domain.DocketTypePreventive
	filtered, err := f.svc.ListRequests(ctx, tp, ListFilter{DocketType: &pm})
	if err != nil || len(filtered) != 2 {
		t.Fatalf("type filter: %d (%v)", len(filtered), err)
	}
	raised, err := f.svc.ListRequests(ctx, dusp, ListFilter{RequesterID: strPtr(staff.ID)})
	if err != nil || len(raised) != 1 || raised[0].DocketType != domain.DocketTypeCorrective {
		t.Fatalf("requester filter: %d (%v)", len(raised), err)
	}
}

func TestEventsAndMetricsForTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.preventive(t, "asset-2", "vendor-x")
	if _, err := f.svc.Accept(ctx, vendorX, req.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.PostUpdate(ctx, vendorX, req.ID, workflow.UpdateInput{
		Description: "done",
		Attachment:  "a.jpg",
		Outcome:     domain.OutcomeOngoing,
	}); err != nil {
		t.Fatal(err)
	}
	_, _ = f.svc.Close(ctx, staff, req.ID)

	want := []events.EventType{
		events.EventDocketCreated,
		events.EventDocketVendorIssued,
		events.EventDocketTransitioned,
		events.EventDocketTransitioned,
		events.EventDocketProgressPosted,
	}
	got := f.dispatcher.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}

	counts := f.metrics.Snapshot()["transitions"]
	if counts["ACCEPT|IN_PROGRESS"] != 1 || counts["CLOSE|UNAUTHORIZED"] != 1 {
		t.Fatalf("unexpected transition metrics %v", counts)
	}
}

func TestDocketTimezone(t *testing.T) {
	f := newFixture(t)
	loc := time.FixedZone("UTC+16", 16*3600)
	f.svc = NewMaintenanceService(MaintenanceDependencies{
		RequestRepo:      memoryRequests{f.store},
		HistoryRepo:      memoryHistory{f.store},
		AssetRepo:        memoryAssets{f.store},
		VendorRepo:       memoryVendors{f.store},
		OrganizationRepo: memoryOrgs{f.store},
		SLA:              NewSLAResolver(memorySLAs{f.store}, nil, 0, nil),
		DocketLocation:   loc,
	})
	req := f.corrective(t, "asset-1")
	// 2025-03-07 09:00:01 UTC is already 2025-03-08 at UTC+16.
	if *req.DocketNumber != "ABC2503080042" {
		t.Fatalf("unexpected docket number %s", *req.DocketNumber)
	}
}
