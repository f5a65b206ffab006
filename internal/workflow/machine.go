package workflow

import (
	"strings"

	"github.com/spec-kit/maintenance-service/internal/domain"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// Effect is a side-effect instruction the store must commit together with
// the new state.
type Effect string

const (
	EffectAppendLedger Effect = "APPEND_LEDGER"
	EffectResetLedger  Effect = "RESET_LEDGER"
	EffectReserveAsset Effect = "RESERVE_ASSET"
	EffectReleaseAsset Effect = "RELEASE_ASSET"
	EffectNotifyVendor Effect = "NOTIFY_VENDOR"
)

// Snapshot is the request state a decision is made against.
type Snapshot struct {
	Request *domain.MaintenanceRequest
	// SLA is the resolved category referenced by Request.SlaCategoryID.
	SLA *domain.SlaCategory
}

// UpdateInput carries a vendor progress update.
type UpdateInput struct {
	Description string
	Attachment  string
	Outcome     domain.UpdateOutcome
}

// Command is a requested transition with its payload.
type Command struct {
	Action Action
	// SLA is the resolved target category for ActionSetSLACategory.
	SLA      *domain.SlaCategory
	VendorID string
	Update   *UpdateInput
}

// CreateInput describes a new docket.
type CreateInput struct {
	DocketType     domain.DocketType
	OrganizationID string
	AssetID        string
	VendorID       string
	Priority       domain.Priority
	Description    string
	Attachment     *string
}

// Decision is the outcome of a legal transition. Request is the post-state;
// the caller persists it, Appended and Effects atomically.
type Decision struct {
	Action   Action
	From     domain.Status
	To       domain.Status
	Request  *domain.MaintenanceRequest
	SLA      *domain.SlaCategory
	Appended *domain.ProgressUpdate
	Effects  []Effect
}

// Has reports whether the decision carries the effect.
func (d *Decision) Has(effect Effect) bool {
	for _, e := range d.Effects {
		if e == effect {
			return true
		}
	}
	return false
}

// origins lists, per flavor, the states each edge may leave from.
var origins = map[domain.DocketType]map[Action][]domain.Status{
	domain.DocketTypeCorrective: {
		ActionSetSLACategory: {domain.StatusSubmitted},
		ActionApprove:        {domain.StatusSubmitted},
		ActionAssignVendor:   {domain.StatusSubmitted, domain.StatusApproved},
		ActionAccept:         {domain.StatusIssued},
		ActionDecline:        {domain.StatusIssued},
	},
	domain.DocketTypePreventive: {
		ActionAccept:           {domain.StatusIssued},
		ActionDecline:          {domain.StatusIssued},
		ActionPostUpdate:       {domain.StatusInProgress},
		ActionClose:            {domain.StatusInProgress},
		ActionRejectCompletion: {domain.StatusInProgress},
		ActionAssignVendor:     {domain.StatusRejected, domain.StatusIncompleted, domain.StatusDeferred},
	},
}

// Machine is the maintenance lifecycle state machine. It performs no I/O and
// is safe for concurrent use.
type Machine struct {
	gate Gate
}

// NewMachine returns a state machine.
func NewMachine() *Machine {
	return &Machine{}
}

// Gate exposes the authorization gate used by the machine.
func (m *Machine) Gate() Gate {
	return m.gate
}

// Available lists the actions the actor may invoke on snap.
func (m *Machine) Available(actor domain.Actor, snap Snapshot) []Action {
	return m.gate.Available(actor, snap)
}

// Create validates a new docket and returns its initial state.
func (m *Machine) Create(actor domain.Actor, input CreateInput) (*Decision, error) {
	if err := m.gate.AuthorizeCreate(actor, input.DocketType); err != nil {
		return nil, err
	}
	if actor.OrganizationID == "" || input.OrganizationID != actor.OrganizationID {
		return nil, apperrors.NewUnauthorized("organization scope mismatch", nil)
	}
	if strings.TrimSpace(input.AssetID) == "" {
		return nil, apperrors.NewPreconditionFailed("asset is required", nil)
	}
	if input.Attachment != nil && strings.TrimSpace(*input.Attachment) == "" {
		input.Attachment = nil
	}

	req := &domain.MaintenanceRequest{
		OrganizationID: input.OrganizationID,
		DocketType:     input.DocketType,
		AssetID:        input.AssetID,
		RequesterID:    actor.ID,
		Description:    strings.TrimSpace(input.Description),
		Attachment:     input.Attachment,
		Updates:        []domain.ProgressUpdate{},
	}
	effects := []Effect{EffectReserveAsset}

	switch input.DocketType {
	case domain.DocketTypeCorrective:
		if !input.Priority.Valid() {
			return nil, apperrors.NewPreconditionFailed("valid priority is required", map[string]any{"priority": input.Priority})
		}
		req.Priority = input.Priority
		req.Status = domain.StatusSubmitted
	case domain.DocketTypePreventive:
		vendorID := strings.TrimSpace(input.VendorID)
		if vendorID == "" {
			return nil, apperrors.NewPreconditionFailed("vendor is required", nil)
		}
		req.VendorID = &vendorID
		req.Status = domain.StatusIssued
		effects = append(effects, EffectNotifyVendor)
	}

	return &Decision{
		Action:  ActionCreate,
		From:    domain.StatusNew,
		To:      req.Status,
		Request: req,
		Effects: effects,
	}, nil
}

// Decide validates cmd against snap and returns the resulting state. Guards
// run in order: role, preconditions, origin state. A failed guard leaves
// snap untouched.
func (m *Machine) Decide(actor domain.Actor, snap Snapshot, cmd Command) (*Decision, error) {
	if snap.Request == nil {
		return nil, apperrors.NewNotFound("maintenance request", nil)
	}
	if err := m.gate.Authorize(actor, cmd.Action, snap.Request); err != nil {
		return nil, err
	}
	if err := checkPreconditions(snap, cmd, true); err != nil {
		return nil, err
	}
	if err := checkOrigin(snap, cmd.Action); err != nil {
		return nil, err
	}
	return apply(actor, snap, cmd)
}

func checkPreconditions(snap Snapshot, cmd Command, withPayload bool) error {
	req := snap.Request
	corrective := req.DocketType == domain.DocketTypeCorrective
	slaMissing := req.SlaCategoryID == nil || snap.SLA == nil

	switch cmd.Action {
	case ActionSetSLACategory:
		if withPayload && cmd.SLA == nil {
			return apperrors.NewPreconditionFailed("sla category is required", nil)
		}
	case ActionApprove:
		if corrective && slaMissing {
			return apperrors.NewPreconditionFailed("sla category must be set before approval", nil)
		}
	case ActionAssignVendor:
		if corrective && slaMissing {
			return apperrors.NewPreconditionFailed("sla category must be set before vendor assignment", nil)
		}
		if withPayload && strings.TrimSpace(cmd.VendorID) == "" {
			return apperrors.NewPreconditionFailed("vendor is required", nil)
		}
	case ActionAccept, ActionDecline:
		if req.VendorID == nil {
			return apperrors.NewPreconditionFailed("no vendor assigned", nil)
		}
	case ActionPostUpdate:
		if req.VendorID == nil {
			return apperrors.NewPreconditionFailed("no vendor assigned", nil)
		}
		if !withPayload {
			return nil
		}
		if cmd.Update == nil || strings.TrimSpace(cmd.Update.Attachment) == "" {
			return apperrors.NewPreconditionFailed("progress update requires an attachment", nil)
		}
		if strings.TrimSpace(cmd.Update.Description) == "" {
			return apperrors.NewPreconditionFailed("progress update requires a description", nil)
		}
		if cmd.Update.Outcome != domain.OutcomeOngoing && cmd.Update.Outcome != domain.OutcomeIncomplete {
			return apperrors.NewPreconditionFailed("progress update outcome must be ONGOING or INCOMPLETE", map[string]any{
				"outcome": cmd.Update.Outcome,
			})
		}
	case ActionClose, ActionRejectCompletion:
	default:
		return apperrors.NewValidationError("unknown action", map[string]any{"action": cmd.Action})
	}
	return nil
}

func checkOrigin(snap Snapshot, action Action) error {
	req := snap.Request
	details := map[string]any{
		"action":      action,
		"status":      req.Status,
		"docket_type": req.DocketType,
	}
	if !originates(req.DocketType, action, req.Status) {
		return apperrors.NewInvalidState("action not allowed in current state", details)
	}
	if req.DocketType != domain.DocketTypeCorrective {
		return nil
	}
	escalated := RequiresApproval(snap.SLA)
	switch {
	case action == ActionApprove && !escalated:
		return apperrors.NewInvalidState("approval not required below escalation threshold", details)
	case action == ActionAssignVendor && req.Status == domain.StatusSubmitted && escalated:
		return apperrors.NewInvalidState("approval required before vendor assignment", details)
	}
	return nil
}

func originates(docketType domain.DocketType, action Action, status domain.Status) bool {
	for _, from := range origins[docketType][action] {
		if from == status {
			return true
		}
	}
	return false
}

func apply(actor domain.Actor, snap Snapshot, cmd Command) (*Decision, error) {
	next := snap.Request.Clone()
	decision := &Decision{
		Action: cmd.Action,
		From:   snap.Request.Status,
		SLA:    snap.SLA,
	}

	switch cmd.Action {
	case ActionSetSLACategory:
		id := cmd.SLA.ID
		next.SlaCategoryID = &id
		decision.SLA = cmd.SLA
	case ActionApprove:
		next.Status = domain.StatusApproved
	case ActionAssignVendor:
		vendorID := strings.TrimSpace(cmd.VendorID)
		next.VendorID = &vendorID
		next.Status = domain.StatusIssued
		if next.DocketType == domain.DocketTypePreventive {
			next.Updates = NewLedger(next.Updates).Reset().Entries()
			decision.Effects = append(decision.Effects, EffectResetLedger)
		}
		decision.Effects = append(decision.Effects, EffectNotifyVendor)
	case ActionAccept:
		next.Status = domain.StatusInProgress
	case ActionDecline:
		next.Status = domain.StatusRejected
		if next.DocketType == domain.DocketTypeCorrective {
			decision.Effects = append(decision.Effects, EffectReleaseAsset)
		}
	case ActionPostUpdate:
		entry := domain.ProgressUpdate{
			RequestID:   next.ID,
			Description: strings.TrimSpace(cmd.Update.Description),
			Attachment:  strings.TrimSpace(cmd.Update.Attachment),
			Outcome:     cmd.Update.Outcome,
			AuthorID:    actor.ID,
		}
		ledger, err := NewLedger(next.Updates).Append(entry)
		if err != nil {
			return nil, err
		}
		next.Updates = ledger.Entries()
		decision.Appended = &entry
		decision.Effects = append(decision.Effects, EffectAppendLedger)
		if cmd.Update.Outcome == domain.OutcomeIncomplete {
			next.Status = domain.StatusDeferred
		}
	case ActionClose:
		next.Status = domain.StatusCompleted
		decision.Effects = append(decision.Effects, EffectReleaseAsset)
	case ActionRejectCompletion:
		next.Status = domain.StatusIncompleted
	}

	decision.To = next.Status
	decision.Request = next
	return decision, nil
}
