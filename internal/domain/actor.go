package domain

// Role enumerates the actor roles recognized by the lifecycle engine.
type Role string

const (
	RoleStaff  Role = "STAFF"
	RoleTP     Role = "TP"
	RoleDUSP   Role = "DUSP"
	RoleVendor Role = "VENDOR"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStaff, RoleTP, RoleDUSP, RoleVendor:
		return true
	}
	return false
}

// Actor is the pre-verified identity invoking an operation.
type Actor struct {
	ID             string
	Role           Role
	OrganizationID string
	// VendorID is set for vendor actors only.
	VendorID *string
}

// IsVendor reports whether the actor acts on behalf of vendorID.
func (a Actor) IsVendor(vendorID string) bool {
	return a.Role == RoleVendor && a.VendorID != nil && *a.VendorID == vendorID
}
