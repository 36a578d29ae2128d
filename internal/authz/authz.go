// Package authz holds the permission collaborators consulted by the
// invitation core. Role logic lives here, never inside the lifecycle engine.
package authz

import (
	"github.com/rs/zerolog"

	"github.com/hearthshare/hearth-api/internal/repository"
)

// ExpiryAuthorizer decides whether an identity may extend invitation
// deadlines. The lifecycle engine trusts its verdict.
type ExpiryAuthorizer interface {
	CanExtendExpiry(identity string) bool
}

// RoleAuthorizer authorizes expiry extensions based on the identity's
// workspace role.
type RoleAuthorizer struct {
	users  repository.UserRepository
	logger zerolog.Logger
}

func NewRoleAuthorizer(users repository.UserRepository, logger zerolog.Logger) *RoleAuthorizer {
	return &RoleAuthorizer{
		users:  users,
		logger: logger.With().Str("component", "authz").Logger(),
	}
}

// CanExtendExpiry reports whether identity is an active user whose role may
// manage invitation deadlines. Unknown identities are denied.
func (a *RoleAuthorizer) CanExtendExpiry(identity string) bool {
	user, err := a.users.GetUserByEmail(identity)
	if err != nil {
		a.logger.Debug().Err(err).Str("identity", identity).Msg("expiry extension denied")
		return false
	}
	return user.IsActive && user.Role.CanManageExpiry()
}
