package workflow

import (
	"github.com/spec-kit/maintenance-service/internal/domain"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// Action names a transition a client may request.
type Action string

const (
	ActionCreate           Action = "CREATE"
	ActionSetSLACategory   Action = "SET_SLA_CATEGORY"
	ActionApprove          Action = "APPROVE"
	ActionAssignVendor     Action = "ASSIGN_VENDOR"
	ActionAccept           Action = "ACCEPT"
	ActionDecline          Action = "DECLINE"
	ActionPostUpdate       Action = "POST_UPDATE"
	ActionClose            Action = "CLOSE"
	ActionRejectCompletion Action = "REJECT_COMPLETION"
)

// Actions lists the transitions available on an existing request, in the
// order they are offered to clients.
var Actions = []Action{
	ActionSetSLACategory,
	ActionApprove,
	ActionAssignVendor,
	ActionAccept,
	ActionDecline,
	ActionPostUpdate,
	ActionClose,
	ActionRejectCompletion,
}

// actionRoles maps each edge to the one role allowed to invoke it.
var actionRoles = map[Action]domain.Role{
	ActionSetSLACategory:   domain.RoleTP,
	ActionApprove:          domain.RoleDUSP,
	ActionAssignVendor:     domain.RoleTP,
	ActionAccept:           domain.RoleVendor,
	ActionDecline:          domain.RoleVendor,
	ActionPostUpdate:       domain.RoleVendor,
	ActionClose:            domain.RoleTP,
	ActionRejectCompletion: domain.RoleTP,
}

// creatorRoles lists who may open a docket of each flavor.
var creatorRoles = map[domain.DocketType][]domain.Role{
	domain.DocketTypeCorrective: {domain.RoleStaff, domain.RoleTP, domain.RoleDUSP},
	domain.DocketTypePreventive: {domain.RoleTP},
}

// Valid reports whether a is a known transition.
func (a Action) Valid() bool {
	_, ok := actionRoles[a]
	return ok || a == ActionCreate
}

// Gate decides whether an actor may invoke an edge. It is evaluated before
// any precondition or state check. A role that owns no edge leaving the
// request's current state is refused with UNAUTHORIZED whatever it asks for.
type Gate struct{}

// Authorize checks role, that the role may act in the request's current
// state, organization scope and, for vendor edges, that the acting vendor is
// the one assigned to the request.
func (Gate) Authorize(actor domain.Actor, action Action, req *domain.MaintenanceRequest) error {
	role, ok := actionRoles[action]
	if !ok {
		return apperrors.NewValidationError("unknown action", map[string]any{"action": action})
	}
	if actor.Role != role {
		return apperrors.NewUnauthorized("role not permitted for action", map[string]any{
			"action": action,
			"role":   actor.Role,
		})
	}
	if !roleActsIn(req.DocketType, actor.Role, req.Status) {
		return apperrors.NewUnauthorized("role may not act in current state", map[string]any{
			"action": action,
			"role":   actor.Role,
			"status": req.Status,
		})
	}
	if action == ActionSetSLACategory && req.SlaCategoryID != nil {
		return apperrors.NewUnauthorized("sla category already set", map[string]any{"action": action})
	}
	if role == domain.RoleVendor {
		if actor.VendorID == nil {
			return apperrors.NewUnauthorized("vendor identity required", map[string]any{"action": action})
		}
		if req.VendorID != nil && *req.VendorID != *actor.VendorID {
			return apperrors.NewUnauthorized("request is assigned to another vendor", map[string]any{"action": action})
		}
		return nil
	}
	if actor.OrganizationID != req.OrganizationID {
		return apperrors.NewUnauthorized("request belongs to another organization", map[string]any{"action": action})
	}
	return nil
}

// roleActsIn reports whether role owns any edge of the flavor leaving status.
func roleActsIn(docketType domain.DocketType, role domain.Role, status domain.Status) bool {
	for action, from := range origins[docketType] {
		if actionRoles[action] != role {
			continue
		}
		for _, s := range from {
			if s == status {
				return true
			}
		}
	}
	return false
}

// AuthorizeCreate checks that the actor may open a docket of the given flavor.
func (Gate) AuthorizeCreate(actor domain.Actor, docketType domain.DocketType) error {
	roles, ok := creatorRoles[docketType]
	if !ok {
		return apperrors.NewValidationError("unknown docket type", map[string]any{"docket_type": docketType})
	}
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return apperrors.NewUnauthorized("role not permitted to create docket", map[string]any{
		"docket_type": docketType,
		"role":        actor.Role,
	})
}

// Available returns the actions the actor could invoke on the snapshot right
// now, ignoring command payload checks.
func (g Gate) Available(actor domain.Actor, snap Snapshot) []Action {
	if snap.Request == nil {
		return nil
	}
	out := []Action{}
	for _, action := range Actions {
		if g.Authorize(actor, action, snap.Request) != nil {
			continue
		}
		if checkPreconditions(snap, Command{Action: action}, false) != nil {
			continue
		}
		if checkOrigin(snap, action) != nil {
			continue
		}
		out = append(out, action)
	}
	return out
}
