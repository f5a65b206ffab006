package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/service"
	"github.com/spec-kit/maintenance-service/internal/workflow"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// MaintenanceService is the lifecycle API the handlers drive.
type MaintenanceService interface {
	CreateCorrective(ctx context.Context, actor domain.Actor, input service.CorrectiveInput) (*domain.MaintenanceRequest, error)
	CreatePreventive(ctx context.Context, actor domain.Actor, input service.PreventiveInput) (*domain.MaintenanceRequest, error)
	SetSLACategory(ctx context.Context, actor domain.Actor, id, slaCategoryID string) (*domain.MaintenanceRequest, error)
	Approve(ctx context.Context, actor domain.Actor, id string) (*domain.MaintenanceRequest, error)
	AssignVendor(ctx context.Context, actor domain.Actor, id, vendorID string) (*domain.MaintenanceRequest, error)
	Accept(ctx context.Context, actor domain.Actor, id string) (*domain.MaintenanceRequest, error)
	Decline(ctx context.Context, actor domain.Actor, id string) (*domain.MaintenanceRequest, error)
	PostUpdate(ctx context.Context, actor domain.Actor, id string, update workflow.UpdateInput) (*domain.MaintenanceRequest, error)
	Close(ctx context.Context, actor domain.Actor, id string) (*domain.MaintenanceRequest, error)
	RejectCompletion(ctx context.Context, actor domain.Actor, id string) (*domain.MaintenanceRequest, error)
	GetRequest(ctx context.Context, actor domain.Actor, id string) (*service.RequestDetail, error)
	ListRequests(ctx context.Context, actor domain.Actor, filter service.ListFilter) ([]domain.MaintenanceRequest, error)
	ListSLACategories(ctx context.Context) ([]domain.SlaCategory, error)
}

// MaintenanceHandler serves maintenance request endpoints.
type MaintenanceHandler struct {
	service MaintenanceService
}

// NewMaintenanceHandler constructs handler.
func NewMaintenanceHandler(svc MaintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{service: svc}
}

// CreateCorrective POST /maintenance/corrective.
func (h *MaintenanceHandler) CreateCorrective(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateCorrectiveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.AssetID) == "" {
		return apperrors.NewValidationError("asset_id required", nil)
	}
	created, err := h.service.CreateCorrective(c.UserContext(), actor, service.CorrectiveInput{
		AssetID:     req.AssetID,
		Priority:    domain.Priority(strings.ToUpper(string(req.Priority))),
		Description: req.Description,
		Attachment:  req.Attachment,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewMaintenanceResponse(created)})
}

// CreatePreventive POST /maintenance/preventive.
func (h *MaintenanceHandler) CreatePreventive(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreatePreventiveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.AssetID) == "" || strings.TrimSpace(req.VendorID) == "" {
		return apperrors.NewValidationError("asset_id and vendor_id required", nil)
	}
	created, err := h.service.CreatePreventive(c.UserContext(), actor, service.PreventiveInput{
		AssetID:     req.AssetID,
		VendorID:    req.VendorID,
		Description: req.Description,
		Attachment:  req.Attachment,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewMaintenanceResponse(created)})
}

// List GET /maintenance.
func (h *MaintenanceHandler) List(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	filter, err := parseListQuery(c)
	if err != nil {
		return err
	}
	if c.QueryBool("mine") {
		requesterID := actor.ID
		filter.RequesterID = &requesterID
	}
	requests, err := h.service.ListRequests(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.MaintenanceSummary, 0, len(requests))
	for i := range requests {
		items = append(items, dto.NewMaintenanceSummary(&requests[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /maintenance/:id.
func (h *MaintenanceHandler) Get(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	detail, err := h.service.GetRequest(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MaintenanceDetailResponse{
		MaintenanceResponse: dto.NewMaintenanceResponse(detail.Request),
		SlaCategory:         detail.SLA,
		History:             dto.NewHistoryResponses(detail.History),
		AvailableActions:    detail.AvailableActions,
	}})
}

// SetSLACategory POST /maintenance/:id/sla-category.
func (h *MaintenanceHandler) SetSLACategory(c *fiber.Ctx) error {
	var req dto.SetSLACategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return h.transition(c, func(ctx context.Context, actor domain.Actor, id string) (*domain.MaintenanceRequest, error) {
		return h.service.SetSLACategory(ctx, actor, id, req.SlaCategoryID)
	})
}

// Approve POST /maintenance/:id/approve.
func (h *MaintenanceHandler) Approve(c *fiber.Ctx) error {
	return h.transition(c, h.service.Approve)
}

// AssignVendor POST /maintenance/:id/vendor.
func (h *MaintenanceHandler) AssignVendor(c *fiber.Ctx) error {
	var req dto.AssignVendorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return h.transition(c, func(ctx context.Context, actor domain.Actor, id string) (*domain.MaintenanceRequest, error) {
		return h.service.AssignVendor(ctx, actor, id, req.VendorID)
	})
}

// Accept POST /maintenance/:id/accept.
func (h *MaintenanceHandler) Accept(c *fiber.Ctx) error {
	return h.transition(c, h.service.Accept)
}

// Decline POST /maintenance/:id/decline.
func (h *MaintenanceHandler) Decline(c *fiber.Ctx) error {
	return h.transition(c, h.service.Decline)
}

// PostUpdate POST /maintenance/:id/updates.
func (h *MaintenanceHandler) PostUpdate(c *fiber.Ctx) error {
	var req dto.PostUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	update := workflow.UpdateInput{
		Description: req.Description,
		Attachment:  req.Attachment,
		Outcome:     domain.UpdateOutcome(strings.ToUpper(string(req.Outcome))),
	}
	return h.transition(c, func(ctx context.Context, actor domain.Actor, id string) (*domain.MaintenanceRequest, error) {
		return h.service.PostUpdate(ctx, actor, id, update)
	})
}

// Close POST /maintenance/:id/close.
func (h *MaintenanceHandler) Close(c *fiber.Ctx) error {
	return h.transition(c, h.service.Close)
}

// RejectCompletion POST /maintenance/:id/reject-completion.
func (h *MaintenanceHandler) RejectCompletion(c *fiber.Ctx) error {
	return h.transition(c, h.service.RejectCompletion)
}

// ListSLACategories GET /sla-categories.
func (h *MaintenanceHandler) ListSLACategories(c *fiber.Ctx) error {
	categories, err := h.service.ListSLACategories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categories})
}

type transitionFunc func(ctx context.Context, actor domain.Actor, id string) (*domain.MaintenanceRequest, error)

func (h *MaintenanceHandler) transition(c *fiber.Ctx, fn transitionFunc) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	updated, err := fn(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMaintenanceResponse(updated)})
}

func parseListQuery(c *fiber.Ctx) (service.ListFilter, error) {
	filter := service.ListFilter{}
	if typ := strings.ToUpper(strings.TrimSpace(c.Query("type"))); typ != "" {
		docketType := domain.DocketType(typ)
		if !docketType.Valid() {
			return filter, apperrors.NewValidationError("invalid type", map[string]any{"type": typ})
		}
		filter.DocketType = &docketType
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status := domain.Status(strings.ToUpper(strings.TrimSpace(part)))
			if status == domain.StatusNew || !status.Valid() {
				return filter, apperrors.NewValidationError("invalid status", map[string]any{"status": part})
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if assetID := c.Query("asset_id"); assetID != "" {
		filter.AssetID = &assetID
	}
	if vendorID := c.Query("vendor_id"); vendorID != "" {
		filter.VendorID = &vendorID
	}
	if requesterID := c.Query("requester_id"); requesterID != "" {
		filter.RequesterID = &requesterID
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	if pageSize > 100 {
		pageSize = 100
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
