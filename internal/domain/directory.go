package domain

import "time"

// Organization is the owning facility; only its code is used here.
type Organization struct {
	ID   string
	Code string
	Name string
}

// Asset is an item of facility inventory.
type Asset struct {
	ID             string
	OrganizationID string
	Name           string
	Available      bool
}

// Vendor is an external maintenance contractor.
type Vendor struct {
	ID     string
	Name   string
	Email  string
	Active bool
}

// DocketHistory is an immutable audit trail entry for a committed transition.
type DocketHistory struct {
	ID        string
	RequestID string
	Action    string
	ActorID   string
	ActorRole Role
	OldStatus Status
	NewStatus Status
	Details   map[string]any
	CreatedAt time.Time
}
