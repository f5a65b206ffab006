package events

import (
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventDocketCreated        EventType = "docket_created"
	EventDocketTransitioned   EventType = "docket_transitioned"
	EventDocketVendorIssued   EventType = "docket_vendor_issued"
	EventDocketProgressPosted EventType = "docket_progress_posted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID       string      `json:"id"`
	Role     domain.Role `json:"role"`
	VendorID *string     `json:"vendor_id,omitempty"`
}

// ActorFrom copies the event-relevant fields of a domain actor.
func ActorFrom(actor domain.Actor) Actor {
	return Actor{ID: actor.ID, Role: actor.Role, VendorID: actor.VendorID}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	RequestID    string      `json:"request_id"`
	DocketNumber *string     `json:"docket_number,omitempty"`
	Actor        Actor       `json:"actor"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// DocketCreatedPayload payload.
type DocketCreatedPayload struct {
	DocketType     domain.DocketType `json:"docket_type"`
	OrganizationID string            `json:"organization_id"`
	AssetID        string            `json:"asset_id"`
	Status         domain.Status     `json:"status"`
	Priority       domain.Priority   `json:"priority,omitempty"`
	VendorID       *string           `json:"vendor_id,omitempty"`
}

// DocketTransitionedPayload payload.
type DocketTransitionedPayload struct {
	Action    string        `json:"action"`
	OldStatus domain.Status `json:"old_status"`
	NewStatus domain.Status `json:"new_status"`
	Effects   []string      `json:"effects,omitempty"`
}

// DocketVendorIssuedPayload payload.
type DocketVendorIssuedPayload struct {
	VendorID    string            `json:"vendor_id"`
	DocketType  domain.DocketType `json:"docket_type"`
	AssetID     string            `json:"asset_id"`
	Description string            `json:"description"`
}

// DocketProgressPostedPayload payload.
type DocketProgressPostedPayload struct {
	UpdateID    string               `json:"update_id"`
	Outcome     domain.UpdateOutcome `json:"outcome"`
	Attachment  string               `json:"attachment"`
	BodyPreview string               `json:"body_preview"`
}
