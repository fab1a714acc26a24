package hostel

import "time"

// Leave request states. pending may move to approved or declined once;
// decided requests are immutable.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDeclined = "declined"
)

// Request kinds.
const (
	KindLeave  = "leave"  // overnight or multi-day absence
	KindOuting = "outing" // same-day exit and return
)

// LeaveRequest is one hostel leave or outing application.
type LeaveRequest struct {
	ID          string     `json:"id"`
	PersonID    string     `json:"person_id"`
	Kind        string     `json:"kind"`
	Reason      string     `json:"reason"`
	FromDate    string     `json:"from_date"` // YYYY-MM-DD
	ToDate      string     `json:"to_date"`
	DocumentURL *string    `json:"document_url,omitempty"`
	Status      string     `json:"status"`
	DecidedBy   *string    `json:"decided_by,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	Note        *string    `json:"note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Decided reports whether the request has left the pending state.
func (lr *LeaveRequest) Decided() bool {
	return lr.Status == StatusApproved || lr.Status == StatusDeclined
}
