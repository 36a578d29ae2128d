package models

import "time"

// Status is the lifecycle state of an invitation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// statusTransitions is the full set of legal status changes. Accepted is
// terminal; expired and cancelled return to pending only through reissue.
var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusAccepted, StatusExpired, StatusCancelled},
	StatusAccepted:  {},
	StatusExpired:   {StatusPending},
	StatusCancelled: {StatusPending},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsValidStatus reports whether s is one of the recognized statuses.
func IsValidStatus(s Status) bool {
	_, ok := statusTransitions[s]
	return ok
}

// Invitation represents a pending or settled invitation to join a workspace.
type Invitation struct {
	ID         string     `json:"id"`
	Token      string     `json:"-"`
	Email      string     `json:"email"`
	Role       Role       `json:"role"`
	Status     Status     `json:"status"`
	Message    string     `json:"message,omitempty"`
	OrgName    string     `json:"org_name,omitempty"`
	InvitedBy  string     `json:"invited_by"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	AcceptedBy *string    `json:"accepted_by,omitempty"`
	DeletedAt  *time.Time `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsExpired determines whether the invitation's deadline has passed.
func (i Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// IsDeleted indicates whether the invitation has been soft deleted.
// A deleted invitation accepts no further status transitions.
func (i Invitation) IsDeleted() bool {
	return i.DeletedAt != nil
}

// IsTerminal reports whether no transition leaves the current status.
func (i Invitation) IsTerminal() bool {
	return len(statusTransitions[i.Status]) == 0
}
