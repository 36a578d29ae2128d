package invitations

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hearthshare/hearth-api/internal/models"
	"github.com/hearthshare/hearth-api/internal/repository"
)

// StateMachine validates and executes status transitions for a single
// invitation. Every mutation is a conditional update against the durable
// store, so a read-check-write never interleaves with another writer on the
// same row: the loser of a race observes a failed precondition, reported as
// an invalid_status result rather than an error.
type StateMachine struct {
	repo   repository.InvitationRepository
	users  repository.UserRepository
	now    func() time.Time
	logger zerolog.Logger
}

func NewStateMachine(repo repository.InvitationRepository, users repository.UserRepository, logger zerolog.Logger) *StateMachine {
	return &StateMachine{
		repo:   repo,
		users:  users,
		now:    time.Now,
		logger: logger.With().Str("component", "invitation_state_machine").Logger(),
	}
}

// CanAccept reports whether the invitation may currently be accepted.
func (s *StateMachine) CanAccept(inv models.Invitation) (CheckResult, error) {
	if inv.IsDeleted() {
		return denied(ReasonDeletedInvitation), nil
	}
	if inv.Status != models.StatusPending {
		return denied(ReasonInvalidStatus), nil
	}
	if inv.IsExpired(s.now()) {
		return denied(ReasonExpired), nil
	}

	exists, err := s.activeUserExists(inv.Email)
	if err != nil {
		return CheckResult{}, err
	}
	if exists {
		return denied(ReasonUserExists), nil
	}
	return allowed(), nil
}

// Accept transitions the invitation to accepted on behalf of acceptor. The
// pending precondition is re-checked inside the store update, so two
// concurrent accepts yield exactly one success.
func (s *StateMachine) Accept(inv models.Invitation, acceptor string) (TransitionResult, error) {
	check, err := s.CanAccept(inv)
	if err != nil {
		return TransitionResult{}, err
	}
	if !check.OK {
		return TransitionResult{Reason: check.Reason, OldStatus: inv.Status}, nil
	}

	updated, err := s.repo.MarkAccepted(inv.ID, acceptor, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Another writer settled the row first.
			return TransitionResult{Reason: ReasonInvalidStatus, OldStatus: inv.Status}, nil
		}
		return TransitionResult{}, errors.Wrap(err, "accept invitation")
	}

	s.logger.Info().Str("invitation_id", updated.ID).Str("accepted_by", acceptor).Msg("invitation accepted")
	return TransitionResult{
		OK:         true,
		OldStatus:  inv.Status,
		NewStatus:  updated.Status,
		Invitation: updated,
	}, nil
}

// CanCancel reports whether the invitation may currently be cancelled.
// Only pending, non-deleted invitations are cancellable.
func (s *StateMachine) CanCancel(inv models.Invitation) CheckResult {
	if inv.IsDeleted() {
		return denied(ReasonDeletedInvitation)
	}
	if inv.Status != models.StatusPending {
		return denied(ReasonInvalidStatus)
	}
	return allowed()
}

// Cancel transitions the invitation to cancelled.
func (s *StateMachine) Cancel(inv models.Invitation) (TransitionResult, error) {
	if check := s.CanCancel(inv); !check.OK {
		return TransitionResult{Reason: check.Reason, OldStatus: inv.Status}, nil
	}

	updated, err := s.repo.MarkCancelled(inv.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TransitionResult{Reason: ReasonInvalidStatus, OldStatus: inv.Status}, nil
		}
		return TransitionResult{}, errors.Wrap(err, "cancel invitation")
	}

	s.logger.Info().Str("invitation_id", updated.ID).Msg("invitation cancelled")
	return TransitionResult{
		OK:         true,
		OldStatus:  inv.Status,
		NewStatus:  updated.Status,
		Invitation: updated,
	}, nil
}

// CanResend reports whether the invitation may be reissued. The transition
// table also permits expired and cancelled back to pending, but the resend
// entry point deliberately accepts only pending sources.
func (s *StateMachine) CanResend(inv models.Invitation) (CheckResult, error) {
	if inv.IsDeleted() {
		return denied(ReasonDeletedInvitation), nil
	}
	if inv.Status != models.StatusPending {
		return denied(ReasonInvalidStatus), nil
	}

	exists, err := s.activeUserExists(inv.Email)
	if err != nil {
		return CheckResult{}, err
	}
	if exists {
		return denied(ReasonUserExists), nil
	}
	return allowed(), nil
}

// Resend stores a fresh token and deadline for the invitation and normalizes
// its status to pending. The caller supplies the token (from the issuer) and
// the new deadline.
func (s *StateMachine) Resend(inv models.Invitation, newToken string, expiresAt time.Time) (TransitionResult, error) {
	check, err := s.CanResend(inv)
	if err != nil {
		return TransitionResult{}, err
	}
	if !check.OK {
		return TransitionResult{Reason: check.Reason, OldStatus: inv.Status}, nil
	}

	updated, err := s.repo.Reissue(inv.ID, newToken, expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TransitionResult{Reason: ReasonInvalidStatus, OldStatus: inv.Status}, nil
		}
		return TransitionResult{}, errors.Wrap(err, "reissue invitation")
	}

	s.logger.Info().Str("invitation_id", updated.ID).Time("expires_at", updated.ExpiresAt).Msg("invitation reissued")
	return TransitionResult{
		OK:         true,
		OldStatus:  inv.Status,
		NewStatus:  updated.Status,
		Invitation: updated,
	}, nil
}

// Expire transitions a pending invitation to expired. Used by the sweep.
func (s *StateMachine) Expire(inv models.Invitation) (TransitionResult, error) {
	if inv.IsDeleted() {
		return TransitionResult{Reason: ReasonDeletedInvitation, OldStatus: inv.Status}, nil
	}
	if inv.Status != models.StatusPending {
		return TransitionResult{Reason: ReasonInvalidStatus, OldStatus: inv.Status}, nil
	}

	updated, err := s.repo.MarkExpired(inv.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TransitionResult{Reason: ReasonInvalidStatus, OldStatus: inv.Status}, nil
		}
		return TransitionResult{}, errors.Wrap(err, "expire invitation")
	}

	return TransitionResult{
		OK:         true,
		OldStatus:  inv.Status,
		NewStatus:  updated.Status,
		Invitation: updated,
	}, nil
}

// Summary derives a read-only view of the invitation: status, terminality,
// remaining lifetime, and the actions currently legal for it.
func (s *StateMachine) Summary(inv models.Invitation) (StatusSummary, error) {
	summary := StatusSummary{
		Status:   inv.Status,
		Terminal: inv.IsTerminal(),
	}

	if remaining := inv.ExpiresAt.Sub(s.now()); remaining > 0 {
		summary.TimeRemaining = remaining
	}

	canAccept, err := s.CanAccept(inv)
	if err != nil {
		return StatusSummary{}, err
	}
	if canAccept.OK {
		summary.AllowedActions = append(summary.AllowedActions, ActionAccept)
	}
	if s.CanCancel(inv).OK {
		summary.AllowedActions = append(summary.AllowedActions, ActionCancel)
	}
	canResend, err := s.CanResend(inv)
	if err != nil {
		return StatusSummary{}, err
	}
	if canResend.OK {
		summary.AllowedActions = append(summary.AllowedActions, ActionResend)
	}

	return summary, nil
}

func (s *StateMachine) activeUserExists(email string) (bool, error) {
	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, errors.Wrap(err, "look up user")
	}
	return user.IsActive, nil
}
