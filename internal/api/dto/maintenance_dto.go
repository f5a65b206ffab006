package dto

import (
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/workflow"
)

// CreateCorrectiveRequest payload.
type CreateCorrectiveRequest struct {
	AssetID     string          `json:"asset_id"`
	Priority    domain.Priority `json:"priority"`
	Description string          `json:"description"`
	Attachment  *string         `json:"attachment"`
}

// CreatePreventiveRequest payload.
type CreatePreventiveRequest struct {
	AssetID     string  `json:"asset_id"`
	VendorID    string  `json:"vendor_id"`
	Description string  `json:"description"`
	Attachment  *string `json:"attachment"`
}

// SetSLACategoryRequest payload.
type SetSLACategoryRequest struct {
	SlaCategoryID string `json:"sla_category_id"`
}

// AssignVendorRequest payload.
type AssignVendorRequest struct {
	VendorID string `json:"vendor_id"`
}

// PostUpdateRequest payload.
type PostUpdateRequest struct {
	Description string               `json:"description"`
	Attachment  string               `json:"attachment"`
	Outcome     domain.UpdateOutcome `json:"outcome"`
}

// ProgressUpdateResponse is one ledger entry.
type ProgressUpdateResponse struct {
	ID          string               `json:"id"`
	Description string               `json:"description"`
	Attachment  string               `json:"attachment"`
	Outcome     domain.UpdateOutcome `json:"outcome"`
	AuthorID    string               `json:"author_id"`
	CreatedAt   time.Time            `json:"created_at"`
}

// MaintenanceSummary response.
type MaintenanceSummary struct {
	ID             string            `json:"id"`
	DocketNumber   *string           `json:"docket_number"`
	DocketType     domain.DocketType `json:"docket_type"`
	Status         domain.Status     `json:"status"`
	OrganizationID string            `json:"organization_id"`
	AssetID        string            `json:"asset_id"`
	VendorID       *string           `json:"vendor_id"`
	SlaCategoryID  *string           `json:"sla_category_id"`
	Priority       domain.Priority   `json:"priority,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// MaintenanceResponse is a request with its progress ledger.
type MaintenanceResponse struct {
	MaintenanceSummary
	RequesterID string                   `json:"requester_id"`
	Description string                   `json:"description"`
	Attachment  *string                  `json:"attachment"`
	Updates     []ProgressUpdateResponse `json:"updates"`
}

// HistoryResponse is one audit entry.
type HistoryResponse struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	ActorID   string         `json:"actor_id"`
	ActorRole domain.Role    `json:"actor_role"`
	OldStatus domain.Status  `json:"old_status"`
	NewStatus domain.Status  `json:"new_status"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// MaintenanceDetailResponse adds SLA, history and available actions.
type MaintenanceDetailResponse struct {
	MaintenanceResponse
	SlaCategory      *domain.SlaCategory `json:"sla_category"`
	History          []HistoryResponse   `json:"history"`
	AvailableActions []workflow.Action   `json:"available_actions"`
}

// AttachmentResponse returns the stored object reference.
type AttachmentResponse struct {
	Attachment  string `json:"attachment"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// NewMaintenanceSummary maps a request to its summary.
func NewMaintenanceSummary(req *domain.MaintenanceRequest) MaintenanceSummary {
	return MaintenanceSummary{
		ID:             req.ID,
		DocketNumber:   req.DocketNumber,
		DocketType:     req.DocketType,
		Status:         req.Status,
		OrganizationID: req.OrganizationID,
		AssetID:        req.AssetID,
		VendorID:       req.VendorID,
		SlaCategoryID:  req.SlaCategoryID,
		Priority:       req.Priority,
		CreatedAt:      req.CreatedAt,
		UpdatedAt:      req.UpdatedAt,
	}
}

// NewMaintenanceResponse maps a request with its ledger.
func NewMaintenanceResponse(req *domain.MaintenanceRequest) MaintenanceResponse {
	updates := make([]ProgressUpdateResponse, 0, len(req.Updates))
	for _, u := range req.Updates {
		updates = append(updates, ProgressUpdateResponse{
			ID:          u.ID,
			Description: u.Description,
			Attachment:  u.Attachment,
			Outcome:     u.Outcome,
			AuthorID:    u.AuthorID,
			CreatedAt:   u.CreatedAt,
		})
	}
	return MaintenanceResponse{
		MaintenanceSummary: NewMaintenanceSummary(req),
		RequesterID:        req.RequesterID,
		Description:        req.Description,
		Attachment:         req.Attachment,
		Updates:            updates,
	}
}

// NewHistoryResponses maps audit entries.
func NewHistoryResponses(entries []domain.DocketHistory) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(entries))
	for _, h := range entries {
		out = append(out, HistoryResponse{
			ID:        h.ID,
			Action:    h.Action,
			ActorID:   h.ActorID,
			ActorRole: h.ActorRole,
			OldStatus: h.OldStatus,
			NewStatus: h.NewStatus,
			Details:   h.Details,
			CreatedAt: h.CreatedAt,
		})
	}
	return out
}
