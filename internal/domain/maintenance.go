package domain

import "time"

// DocketType distinguishes the two maintenance flavors.
type DocketType string

const (
	DocketTypeCorrective DocketType = "CORRECTIVE"
	DocketTypePreventive DocketType = "PREVENTIVE"
)

// Valid reports whether t is a known flavor.
func (t DocketType) Valid() bool {
	switch t {
	case DocketTypeCorrective, DocketTypePreventive:
		return true
	}
	return false
}

// Status enumerates lifecycle states for maintenance requests.
type Status string

const (
	// StatusNew is the pre-triage state: no status value yet.
	StatusNew         Status = ""
	StatusSubmitted   Status = "SUBMITTED"
	StatusApproved    Status = "APPROVED"
	StatusIssued      Status = "ISSUED"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusDeferred    Status = "DEFERRED"
	StatusCompleted   Status = "COMPLETED"
	StatusIncompleted Status = "INCOMPLETED"
	StatusRejected    Status = "REJECTED"
)

// Statuses lists every lifecycle state, New first.
var Statuses = []Status{
	StatusNew,
	StatusSubmitted,
	StatusApproved,
	StatusIssued,
	StatusInProgress,
	StatusDeferred,
	StatusCompleted,
	StatusIncompleted,
	StatusRejected,
}

// Valid reports whether s is a known state.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusSubmitted, StatusApproved, StatusIssued, StatusInProgress,
		StatusDeferred, StatusCompleted, StatusIncompleted, StatusRejected:
		return true
	}
	return false
}

// Priority classifies corrective request severity.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// MaintenanceRequest is the aggregate root for a maintenance docket.
type MaintenanceRequest struct {
	ID             string
	RowID          int64
	OrganizationID string
	DocketType     DocketType
	Status         Status
	SlaCategoryID  *string
	AssetID        string
	VendorID       *string
	Priority       Priority
	RequesterID    string
	Description    string
	Attachment     *string
	Updates        []ProgressUpdate
	DocketNumber   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Clone returns a deep copy so engine decisions never alias caller state.
func (r *MaintenanceRequest) Clone() *MaintenanceRequest {
	if r == nil {
		return nil
	}
	out := *r
	out.SlaCategoryID = cloneString(r.SlaCategoryID)
	out.VendorID = cloneString(r.VendorID)
	out.Attachment = cloneString(r.Attachment)
	out.DocketNumber = cloneString(r.DocketNumber)
	if r.Updates != nil {
		out.Updates = append([]ProgressUpdate(nil), r.Updates...)
	}
	return &out
}

// UpdateOutcome is the vendor's assessment attached to a progress update.
type UpdateOutcome string

const (
	OutcomeOngoing    UpdateOutcome = "ONGOING"
	OutcomeIncomplete UpdateOutcome = "INCOMPLETE"
)

// ProgressUpdate is one ledger entry.
type ProgressUpdate struct {
	ID          string
	RequestID   string
	Description string
	Attachment  string
	Outcome     UpdateOutcome
	AuthorID    string
	CreatedAt   time.Time
}

// SlaCategory is a named day-range used for escalation decisions.
type SlaCategory struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	MinDay int    `json:"min_day"`
	MaxDay int    `json:"max_day"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
