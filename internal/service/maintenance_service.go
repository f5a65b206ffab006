package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/observability"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/workflow"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// SLALookup resolves SLA categories.
type SLALookup interface {
	Resolve(ctx context.Context, id string) (*domain.SlaCategory, error)
	List(ctx context.Context) ([]domain.SlaCategory, error)
}

// MaintenanceService coordinates the maintenance request lifecycle.
type MaintenanceService struct {
	requests      repository.MaintenanceRepository
	history       repository.DocketHistoryRepository
	assets        repository.AssetRepository
	vendors       repository.VendorRepository
	organizations repository.OrganizationRepository
	sla           SLALookup
	machine       *workflow.Machine
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	metrics       *observability.Metrics
	location      *time.Location
}

// MaintenanceDependencies bundles collaborators for the maintenance service.
type MaintenanceDependencies struct {
	RequestRepo      repository.MaintenanceRepository
	HistoryRepo      repository.DocketHistoryRepository
	AssetRepo        repository.AssetRepository
	VendorRepo       repository.VendorRepository
	OrganizationRepo repository.OrganizationRepository
	SLA              SLALookup
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	Metrics          *observability.Metrics
	// DocketLocation is the zone docket dates are rendered in. Defaults to UTC.
	DocketLocation *time.Location
}

// CorrectiveInput describes a new corrective request.
type CorrectiveInput struct {
	AssetID     string
	Priority    domain.Priority
	Description string
	Attachment  *string
}

// PreventiveInput describes a new preventive request.
type PreventiveInput struct {
	AssetID     string
	VendorID    string
	Description string
	Attachment  *string
}

// ListFilter describes listing filters supplied by clients.
type ListFilter struct {
	DocketType  *domain.DocketType
	Statuses    []domain.Status
	AssetID     *string
	VendorID    *string
	RequesterID *string
	Limit       int
	Offset      int
}

// RequestDetail is a request with its audit trail and the actions the
// viewer may take next.
type RequestDetail struct {
	Request          *domain.MaintenanceRequest
	SLA              *domain.SlaCategory
	History          []domain.DocketHistory
	AvailableActions []workflow.Action
}

// NewMaintenanceService wires the service.
func NewMaintenanceService(deps MaintenanceDependencies) *MaintenanceService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := deps.DocketLocation
	if loc == nil {
		loc = time.UTC
	}
	return &MaintenanceService{
		requests:      deps.RequestRepo,
		history:       deps.HistoryRepo,
		assets:        deps.AssetRepo,
		vendors:       deps.VendorRepo,
		organizations: deps.OrganizationRepo,
		sla:           deps.SLA,
		machine:       workflow.NewMachine(),
		dispatcher:    deps.Dispatcher,
		logger:        logger,
		metrics:       deps.Metrics,
		location:      loc,
	}
}

// CreateCorrective opens a corrective docket in SUBMITTED.
func (s *MaintenanceService) CreateCorrective(ctx context.Context, actor domain.Actor, input CorrectiveInput) (*domain.MaintenanceRequest, error) {
	return s.create(ctx, actor, workflow.CreateInput{
		DocketType:     domain.DocketTypeCorrective,
		OrganizationID: actor.OrganizationID,
		AssetID:        strings.TrimSpace(input.AssetID),
		Priority:       input.Priority,
		Description:    input.Description,
		Attachment:     input.Attachment,
	})
}

// CreatePreventive opens a preventive docket already issued to its vendor.
func (s *MaintenanceService) CreatePreventive(ctx context.Context, actor domain.Actor, input PreventiveInput) (*domain.MaintenanceRequest, error) {
	return s.create(ctx, actor, workflow.CreateInput{
		DocketType:     domain.DocketTypePreventive,
		OrganizationID: actor.OrganizationID,
		AssetID:        strings.TrimSpace(input.AssetID),
		VendorID:       input.VendorID,
		Description:    input.Description,
		Attachment:     input.Attachment,
	})
}

func (s *MaintenanceService) create(ctx context.Context, actor domain.Actor, input workflow.CreateInput) (*domain.MaintenanceRequest, error) {
	decision, err := s.machine.Create(actor, input)
	if err != nil {
		s.recordOutcome(workflow.ActionCreate, "", err)
		return nil, err
	}
	req := decision.Request

	asset, err := s.assets.GetByID(ctx, req.AssetID)
	if err != nil {
		return nil, notFoundOr(err, "asset", req.AssetID)
	}
	if asset.OrganizationID != req.OrganizationID {
		return nil, apperrors.NewUnauthorized("asset belongs to another organization", map[string]any{"asset_id": asset.ID})
	}
	if !asset.Available {
		return nil, apperrors.NewPreconditionFailed("asset is not available", map[string]any{"asset_id": asset.ID})
	}
	if req.VendorID != nil {
		if err := s.requireActiveVendor(ctx, *req.VendorID); err != nil {
			return nil, err
		}
	}
	org, err := s.organizations.GetByID(ctx, req.OrganizationID)
	if err != nil {
		return nil, notFoundOr(err, "organization", req.OrganizationID)
	}

	history := &domain.DocketHistory{
		Action:    string(workflow.ActionCreate),
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		OldStatus: decision.From,
		NewStatus: decision.To,
		Details:   map[string]any{"docket_type": req.DocketType, "asset_id": req.AssetID},
	}
	number := func(rowID int64, createdAt time.Time) (string, error) {
		return workflow.GenerateDocketNumber(org.Code, createdAt.In(s.location), rowID)
	}
	if err := s.requests.Create(ctx, req, history, number); err != nil {
		if errors.Is(err, repository.ErrAssetUnavailable) {
			err = apperrors.NewPreconditionFailed("asset is not available", map[string]any{"asset_id": req.AssetID})
		}
		s.recordOutcome(workflow.ActionCreate, "", err)
		return nil, err
	}

	s.recordOutcome(workflow.ActionCreate, req.Status, nil)
	s.logger.Info("docket created",
		zap.String("request_id", req.ID),
		zap.String("docket_number", *req.DocketNumber),
		zap.String("docket_type", string(req.DocketType)),
		zap.String("actor_id", actor.ID))

	s.publish(ctx, events.EventDocketCreated, req, actor, events.DocketCreatedPayload{
		DocketType:     req.DocketType,
		OrganizationID: req.OrganizationID,
		AssetID:        req.AssetID,
		Status:         req.Status,
		Priority:       req.Priority,
		VendorID:       req.VendorID,
	})
	if decision.Has(workflow.EffectNotifyVendor) {
		s.publishVendorIssued(ctx, req, actor)
	}
	return req, nil
}

// SetSLACategory attaches an SLA category to a corrective request.
func (s *MaintenanceService) SetSLACategory(ctx context.Context, actor domain.Actor, id, slaCategoryID string) (*domain.MaintenanceRequest, error) {
	return s.transition(ctx, actor, id, workflow.ActionSetSLACategory, func(ctx context.Context, cmd *workflow.Command) error {
		if strings.TrimSpace(slaCategoryID) == "" {
			return apperrors.NewValidationError("sla_category_id is required", nil)
		}
		category, err := s.sla.Resolve(ctx, slaCategoryID)
		if err != nil {
			return err
		}
		cmd.SLA = category
		return nil
	})
}

// Approve approves an escalated corrective request.
func (s *MaintenanceService) Approve(ctx context.Context, actor domain.Actor, id string) (*domain.MaintenanceRequest, error) {
	return s.transition(ctx, actor, id, workflow.ActionApprove, nil)
}

// AssignVendor issues the request to a vendor.
func (s *MaintenanceService) AssignVendor(ctx context.Context, actor domain.Actor, id, vendorID string) (*domain.MaintenanceRequest, error) {
	return s.transition(ctx, actor, id, workflow.ActionAssignVendor, func(ctx context.Context, cmd *workflow.Command) error {
		vendorID = strings.TrimSpace(vendorID)
		if vendorID == "" {
			return apperrors.NewValidationError("vendor_id is required", nil)
		}
		if err := s.requireActiveVendor(ctx, vendorID); err != nil {
			return err
		}
		cmd.VendorID = vendorID
		return nil
	})
}

// Accept records the assigned vendor taking the job.
func (s *MaintenanceService) Accept(ctx context.Context, actor domain.Actor, id string) (*domain.MaintenanceRequest, error) {
	return s.transition(ctx, actor, id, workflow.ActionAccept, nil)
}

// Decline records the assigned vendor refusing the job.
func (s *MaintenanceService) Decline(ctx context.Context, actor domain.Actor, id string) (*domain.MaintenanceRequest, error) {
	return s.transition(ctx, actor, id, workflow.ActionDecline, nil)
}

// PostUpdate appends a progress update to a preventive request.
func (s *MaintenanceService) PostUpdate(ctx context.Context, actor domain.Actor, id string, update workflow.UpdateInput) (*domain.MaintenanceRequest, error) {
	return s.transition(ctx, actor, id, workflow.ActionPostUpdate, func(_ context.Context, cmd *workflow.Command) error {
		cmd.Update = &update
		return nil
	})
}

// Close marks preventive work completed.
func (s *MaintenanceService) Close(ctx context.Context, actor domain.Actor, id string) (*domain.MaintenanceRequest, error) {
	return s.transition(ctx, actor, id, workflow.ActionClose, nil)
}

// RejectCompletion marks preventive work incomplete.
func (s *MaintenanceService) RejectCompletion(ctx context.Context, actor domain.Actor, id string) (*domain.MaintenanceRequest, error) {
	return s.transition(ctx, actor, id, workflow.ActionRejectCompletion, nil)
}

type commandBuilder func(ctx context.Context, cmd *workflow.Command) error

// transition loads the request, authorizes the actor, resolves the command
// payload, lets the machine decide and commits the result against the
// loaded snapshot.
func (s *MaintenanceService) transition(ctx context.Context, actor domain.Actor, id string, action workflow.Action, build commandBuilder) (*domain.MaintenanceRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "maintenance request", id)
	}
	current, err := s.currentSLA(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.machine.Gate().Authorize(actor, action, req); err != nil {
		s.recordOutcome(action, "", err)
		return nil, err
	}
	cmd := workflow.Command{Action: action}
	if build != nil {
		if err := build(ctx, &cmd); err != nil {
			s.recordOutcome(action, "", err)
			return nil, err
		}
	}

	decision, err := s.machine.Decide(actor, workflow.Snapshot{Request: req, SLA: current}, cmd)
	if err != nil {
		s.recordOutcome(action, "", err)
		s.logger.Debug("transition refused",
			zap.String("request_id", id),
			zap.String("action", string(action)),
			zap.String("code", apperrors.CodeOf(err)))
		return nil, err
	}

	updated, err := s.requests.Commit(ctx, repository.TransitionCommit{
		Request:           decision.Request,
		ExpectedStatus:    req.Status,
		ExpectedUpdatedAt: req.UpdatedAt,
		Append:            decision.Appended,
		ResetLedger:       decision.Has(workflow.EffectResetLedger),
		ReleaseAsset:      decision.Has(workflow.EffectReleaseAsset),
		History: &domain.DocketHistory{
			Action:    string(action),
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			OldStatus: decision.From,
			NewStatus: decision.To,
			Details:   historyDetails(cmd),
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			err = apperrors.NewConflict("request was modified concurrently", map[string]any{"id": id})
		case errors.Is(err, pgx.ErrNoRows):
			err = apperrors.NewNotFound("maintenance request", map[string]any{"id": id})
		}
		s.recordOutcome(action, "", err)
		return nil, err
	}

	s.recordOutcome(action, updated.Status, nil)
	s.logger.Info("docket transitioned",
		zap.String("request_id", updated.ID),
		zap.String("action", string(action)),
		zap.String("from", string(decision.From)),
		zap.String("to", string(decision.To)),
		zap.String("actor_id", actor.ID))

	effects := make([]string, len(decision.Effects))
	for i, e := range decision.Effects {
		effects[i] = string(e)
	}
	s.publish(ctx, events.EventDocketTransitioned, updated, actor, events.DocketTransitionedPayload{
		Action:    string(action),
		OldStatus: decision.From,
		NewStatus: decision.To,
		Effects:   effects,
	})
	if decision.Has(workflow.EffectNotifyVendor) {
		s.publishVendorIssued(ctx, updated, actor)
	}
	if decision.Appended != nil {
		s.publish(ctx, events.EventDocketProgressPosted, updated, actor, events.DocketProgressPostedPayload{
			UpdateID:    decision.Appended.ID,
			Outcome:     decision.Appended.Outcome,
			Attachment:  decision.Appended.Attachment,
			BodyPreview: preview(decision.Appended.Description, 140),
		})
	}
	return updated, nil
}

// GetRequest returns a request the actor may see, with its history and the
// actor's available actions.
func (s *MaintenanceService) GetRequest(ctx context.Context, actor domain.Actor, id string) (*RequestDetail, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "maintenance request", id)
	}
	if !canView(actor, req) {
		return nil, apperrors.NewUnauthorized("request not visible to caller", map[string]any{"id": id})
	}
	current, err := s.currentSLA(ctx, req)
	if err != nil {
		return nil, err
	}
	history, err := s.history.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &RequestDetail{
		Request:          req,
		SLA:              current,
		History:          history,
		AvailableActions: s.machine.Available(actor, workflow.Snapshot{Request: req, SLA: current}),
	}, nil
}

// ListRequests returns requests in the actor's scope. Vendors see the
// requests issued to them; everyone else sees their organization's.
func (s *MaintenanceService) ListRequests(ctx context.Context, actor domain.Actor, filter ListFilter) ([]domain.MaintenanceRequest, error) {
	repoFilter := repository.MaintenanceFilter{
		DocketType:  filter.DocketType,
		Statuses:    filter.Statuses,
		AssetID:     filter.AssetID,
		VendorID:    filter.VendorID,
		RequesterID: filter.RequesterID,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	if actor.Role == domain.RoleVendor {
		if actor.VendorID == nil {
			return nil, apperrors.NewUnauthorized("vendor identity required", nil)
		}
		vendorID := *actor.VendorID
		repoFilter.VendorID = &vendorID
	} else {
		if actor.OrganizationID == "" {
			return nil, apperrors.NewUnauthorized("organization scope required", nil)
		}
		orgID := actor.OrganizationID
		repoFilter.OrganizationID = &orgID
	}
	return s.requests.List(ctx, repoFilter)
}

// ListSLACategories returns the configured SLA categories.
func (s *MaintenanceService) ListSLACategories(ctx context.Context) ([]domain.SlaCategory, error) {
	return s.sla.List(ctx)
}

func (s *MaintenanceService) currentSLA(ctx context.Context, req *domain.MaintenanceRequest) (*domain.SlaCategory, error) {
	if req.SlaCategoryID == nil {
		return nil, nil
	}
	return s.sla.Resolve(ctx, *req.SlaCategoryID)
}

func (s *MaintenanceService) requireActiveVendor(ctx context.Context, vendorID string) error {
	vendor, err := s.vendors.GetByID(ctx, vendorID)
	if err != nil {
		return notFoundOr(err, "vendor", vendorID)
	}
	if !vendor.Active {
		return apperrors.NewPreconditionFailed("vendor is inactive", map[string]any{"vendor_id": vendorID})
	}
	return nil
}

func (s *MaintenanceService) publishVendorIssued(ctx context.Context, req *domain.MaintenanceRequest, actor domain.Actor) {
	if req.VendorID == nil {
		return
	}
	s.publish(ctx, events.EventDocketVendorIssued, req, actor, events.DocketVendorIssuedPayload{
		VendorID:    *req.VendorID,
		DocketType:  req.DocketType,
		AssetID:     req.AssetID,
		Description: req.Description,
	})
}

func (s *MaintenanceService) publish(ctx context.Context, eventType events.EventType, req *domain.MaintenanceRequest, actor domain.Actor, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		RequestID:    req.ID,
		DocketNumber: req.DocketNumber,
		Actor:        events.ActorFrom(actor),
		Timestamp:    time.Now().UTC(),
		Payload:      payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("event_type", string(eventType)),
			zap.String("request_id", req.ID),
			zap.Error(err))
	}
}

func (s *MaintenanceService) recordOutcome(action workflow.Action, status domain.Status, err error) {
	result := string(status)
	if err != nil {
		result = apperrors.CodeOf(err)
	}
	s.metrics.RecordTransition(string(action), result)
}

func canView(actor domain.Actor, req *domain.MaintenanceRequest) bool {
	if actor.Role == domain.RoleVendor {
		return req.VendorID != nil && actor.IsVendor(*req.VendorID)
	}
	return actor.OrganizationID != "" && actor.OrganizationID == req.OrganizationID
}

func historyDetails(cmd workflow.Command) map[string]any {
	details := map[string]any{}
	switch cmd.Action {
	case workflow.ActionSetSLACategory:
		if cmd.SLA != nil {
			details["sla_category_id"] = cmd.SLA.ID
			details["min_day"] = cmd.SLA.MinDay
		}
	case workflow.ActionAssignVendor:
		details["vendor_id"] = cmd.VendorID
	case workflow.ActionPostUpdate:
		if cmd.Update != nil {
			details["outcome"] = cmd.Update.Outcome
		}
	}
	return details
}

func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}

func preview(body string, limit int) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "..."
}
