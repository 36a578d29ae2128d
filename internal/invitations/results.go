// Package invitations contains the lifecycle engine for workspace
// invitations: the status state machine, expiry management, and bulk
// processing with per-item isolation.
package invitations

import (
	"time"

	"github.com/hearthshare/hearth-api/internal/models"
)

// Reason is a stable machine-readable code for an expected business outcome.
// Reasons travel in results, not errors; callers can render them directly.
type Reason string

const (
	ReasonDeletedInvitation Reason = "deleted_invitation"
	ReasonInvalidStatus     Reason = "invalid_status"
	ReasonExpired           Reason = "expired"
	ReasonUserExists        Reason = "user_exists"
	ReasonNotFound          Reason = "not_found"
	ReasonDaysOutOfRange    Reason = "days_out_of_range"
	ReasonNotAuthorized     Reason = "not_authorized"
	ReasonPendingExists     Reason = "pending_invitation_exists"
	ReasonInvalidEmail      Reason = "invalid_email"
	ReasonEmptyEmailList    Reason = "empty_email_list"
	ReasonTooManyEmails     Reason = "too_many_emails"
	ReasonInvalidRole       Reason = "invalid_role"
)

// CheckResult is the outcome of a Can* predicate.
type CheckResult struct {
	OK     bool   `json:"ok"`
	Reason Reason `json:"reason,omitempty"`
}

func allowed() CheckResult        { return CheckResult{OK: true} }
func denied(r Reason) CheckResult { return CheckResult{Reason: r} }

// TransitionResult is the outcome of a mutating lifecycle operation.
type TransitionResult struct {
	OK         bool              `json:"ok"`
	Reason     Reason            `json:"reason,omitempty"`
	OldStatus  models.Status     `json:"old_status,omitempty"`
	NewStatus  models.Status     `json:"new_status,omitempty"`
	Invitation models.Invitation `json:"invitation,omitempty"`
}

// Action is a lifecycle operation currently legal for an invitation.
type Action string

const (
	ActionAccept Action = "accept"
	ActionCancel Action = "cancel"
	ActionResend Action = "resend"
)

// StatusSummary is a read-only view of an invitation's lifecycle position.
type StatusSummary struct {
	Status         models.Status `json:"status"`
	Terminal       bool          `json:"terminal"`
	TimeRemaining  time.Duration `json:"time_remaining"`
	AllowedActions []Action      `json:"allowed_actions"`
}
