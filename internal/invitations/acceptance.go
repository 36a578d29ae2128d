package invitations

import (
	"database/sql"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hearthshare/hearth-api/internal/models"
	"github.com/hearthshare/hearth-api/internal/repository"
)

// ReasonPasswordRequired rejects an accept attempt that would create an
// account without a password.
const ReasonPasswordRequired Reason = "password_required"

// Acceptor resolves invitation tokens and drives the accept flow, creating
// the member's account when none exists yet.
type Acceptor struct {
	repo   repository.InvitationRepository
	users  repository.UserRepository
	sm     *StateMachine
	logger zerolog.Logger
}

func NewAcceptor(repo repository.InvitationRepository, users repository.UserRepository, sm *StateMachine, logger zerolog.Logger) *Acceptor {
	return &Acceptor{
		repo:   repo,
		users:  users,
		sm:     sm,
		logger: logger.With().Str("component", "invitation_acceptor").Logger(),
	}
}

// Preview resolves a token to its invitation and lifecycle summary without
// mutating anything.
func (a *Acceptor) Preview(tokenStr string) (models.Invitation, StatusSummary, error) {
	inv, err := a.repo.GetByToken(tokenStr)
	if err != nil {
		return models.Invitation{}, StatusSummary{}, err
	}
	summary, err := a.sm.Summary(inv)
	if err != nil {
		return models.Invitation{}, StatusSummary{}, err
	}
	return inv, summary, nil
}

// AcceptByToken accepts the invitation identified by tokenStr on behalf of
// its target address and creates the member account. The status transition
// wins or loses atomically; the account is created only after winning it.
func (a *Acceptor) AcceptByToken(tokenStr, password string) (TransitionResult, error) {
	inv, err := a.repo.GetByToken(tokenStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TransitionResult{Reason: ReasonNotFound}, nil
		}
		return TransitionResult{}, errors.Wrap(err, "load invitation by token")
	}

	if password == "" {
		return TransitionResult{Reason: ReasonPasswordRequired, OldStatus: inv.Status}, nil
	}

	transition, err := a.sm.Accept(inv, inv.Email)
	if err != nil || !transition.OK {
		return transition, err
	}

	if _, err := a.users.CreateUser(inv.Email, password, inv.Role); err != nil {
		a.logger.Error().Err(err).Str("email", inv.Email).Msg("account creation after accept failed")
		return transition, errors.Wrap(err, "create account")
	}

	a.logger.Info().Str("invitation_id", transition.Invitation.ID).Msg("invitation accepted and account created")
	return transition, nil
}
