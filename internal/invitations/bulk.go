package invitations

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hearthshare/hearth-api/internal/models"
	"github.com/hearthshare/hearth-api/internal/notification"
	"github.com/hearthshare/hearth-api/internal/repository"
	"github.com/hearthshare/hearth-api/internal/token"
)

// BulkInvitationLimit caps one bulk invite call.
const BulkInvitationLimit = 100

// Human-readable failure messages carried on bulk items.
const (
	MsgInvalidEmail   = "Invalid email address"
	MsgPendingExists  = "Pending invitation already exists"
	MsgCreationFailed = "Failed to create invitation"
)

// Coordinator fans an operation out across many invitation targets,
// isolating failures per item. Each item's persistence is its own atomic
// unit; the batch as a whole has no transactional guarantee.
type Coordinator struct {
	repo       repository.InvitationRepository
	users      repository.UserRepository
	issuer     *token.Issuer
	mailer     notification.InviteMailer
	sm         *StateMachine
	expiryDays int
	urlTpl     string
	now        func() time.Time
	logger     zerolog.Logger
}

func NewCoordinator(
	repo repository.InvitationRepository,
	users repository.UserRepository,
	issuer *token.Issuer,
	mailer notification.InviteMailer,
	sm *StateMachine,
	expiryDays int,
	inviteURLTemplate string,
	logger zerolog.Logger,
) *Coordinator {
	if expiryDays <= 0 {
		expiryDays = DefaultExpiryDays
	}
	if inviteURLTemplate == "" {
		inviteURLTemplate = "https://app.hearthshare.com/invites/accept?token=%s"
	}
	return &Coordinator{
		repo:       repo,
		users:      users,
		issuer:     issuer,
		mailer:     mailer,
		sm:         sm,
		expiryDays: expiryDays,
		urlTpl:     inviteURLTemplate,
		now:        time.Now,
		logger:     logger.With().Str("component", "bulk_coordinator").Logger(),
	}
}

// InvalidEmail annotates a rejected address with the reason.
type InvalidEmail struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// ValidateEmails partitions addresses into valid and invalid, where invalid
// means malformed or already the target of a live pending invitation.
func (c *Coordinator) ValidateEmails(emails []string) (valid []string, invalid []InvalidEmail, err error) {
	for _, email := range emails {
		email = strings.TrimSpace(email)
		if !strings.Contains(email, "@") {
			invalid = append(invalid, InvalidEmail{Email: email, Reason: MsgInvalidEmail})
			continue
		}

		_, lookupErr := c.repo.FindPendingByEmail(email)
		switch {
		case lookupErr == nil:
			invalid = append(invalid, InvalidEmail{Email: email, Reason: MsgPendingExists})
		case errors.Is(lookupErr, sql.ErrNoRows):
			valid = append(valid, email)
		default:
			return nil, nil, errors.Wrap(lookupErr, "check pending invitation")
		}
	}
	return valid, invalid, nil
}

// ValidateRequest checks the shape of a bulk invite request: a non-empty
// email list within the cap, and a recognized role.
func (c *Coordinator) ValidateRequest(emails []string, role models.Role) CheckResult {
	if len(emails) == 0 {
		return denied(ReasonEmptyEmailList)
	}
	if len(emails) > BulkInvitationLimit {
		return denied(ReasonTooManyEmails)
	}
	if !models.IsValidRole(role) {
		return denied(ReasonInvalidRole)
	}
	return allowed()
}

// BulkItem is one email's outcome within a bulk invite.
type BulkItem struct {
	Email      string             `json:"email"`
	Error      string             `json:"error,omitempty"`
	Invitation *models.Invitation `json:"invitation,omitempty"`
}

// BulkResult aggregates a bulk invite: one entry per input item.
type BulkResult struct {
	Successful []BulkItem `json:"successful"`
	Failed     []BulkItem `json:"failed"`
}

// ProcessBulkInvitations creates a fresh pending invitation for each address
// that has no live pending duplicate, then triggers delivery. Items are
// independent: a uniqueness race or store failure on one address is recorded
// on that item and the rest proceed. Only the non-business token-exhaustion
// condition aborts the batch.
func (c *Coordinator) ProcessBulkInvitations(emails []string, invitedBy string, role models.Role, message, orgName string) (BulkResult, error) {
	var result BulkResult

	for _, raw := range emails {
		email := strings.TrimSpace(raw)
		if !strings.Contains(email, "@") {
			result.Failed = append(result.Failed, BulkItem{Email: email, Error: MsgInvalidEmail})
			continue
		}

		if _, err := c.repo.FindPendingByEmail(email); err == nil {
			result.Failed = append(result.Failed, BulkItem{Email: email, Error: MsgPendingExists})
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			c.logger.Error().Err(err).Str("email", email).Msg("pending lookup failed")
			result.Failed = append(result.Failed, BulkItem{Email: email, Error: MsgCreationFailed})
			continue
		}

		inviteToken, err := c.issuer.Issue()
		if err != nil {
			if errors.Is(err, token.ErrTokenSpaceExhausted) {
				return result, err
			}
			c.logger.Error().Err(err).Str("email", email).Msg("token issuance failed")
			result.Failed = append(result.Failed, BulkItem{Email: email, Error: MsgCreationFailed})
			continue
		}

		created, err := c.repo.Create(models.Invitation{
			Token:     inviteToken,
			Email:     email,
			Role:      role,
			Status:    models.StatusPending,
			Message:   message,
			OrgName:   orgName,
			InvitedBy: invitedBy,
			ExpiresAt: c.now().Add(time.Duration(c.expiryDays) * 24 * time.Hour),
		})
		if err != nil {
			// A concurrent invite for the same address can win the
			// partial unique index between the lookup and the insert.
			if errors.Is(err, repository.ErrPendingExists) {
				result.Failed = append(result.Failed, BulkItem{Email: email, Error: MsgPendingExists})
				continue
			}
			c.logger.Error().Err(err).Str("email", email).Msg("invitation insert failed")
			result.Failed = append(result.Failed, BulkItem{Email: email, Error: MsgCreationFailed})
			continue
		}

		c.deliverInvite(created, inviteToken)
		result.Successful = append(result.Successful, BulkItem{Email: email, Invitation: &created})
	}

	return result, nil
}

// ResendInvitation reissues a pending invitation with a fresh token and
// deadline and triggers delivery of the new link.
func (c *Coordinator) ResendInvitation(inv models.Invitation) (TransitionResult, error) {
	check, err := c.sm.CanResend(inv)
	if err != nil {
		return TransitionResult{}, err
	}
	if !check.OK {
		return TransitionResult{Reason: check.Reason, OldStatus: inv.Status}, nil
	}

	freshToken, err := c.issuer.Issue()
	if err != nil {
		return TransitionResult{}, err
	}

	expiresAt := c.now().Add(time.Duration(c.expiryDays) * 24 * time.Hour)
	transition, err := c.sm.Resend(inv, freshToken, expiresAt)
	if err != nil || !transition.OK {
		return transition, err
	}

	c.deliverInvite(transition.Invitation, freshToken)
	return transition, nil
}

// BulkSummary aggregates counts over a bulk invite result.
type BulkSummary struct {
	Processed   int     `json:"processed_count"`
	Succeeded   int     `json:"success_count"`
	Failed      int     `json:"failure_count"`
	SuccessRate float64 `json:"success_rate"`
}

// Summary computes processed/success/failure counts and a success-rate
// percentage rounded to two decimals; the rate is 0 when nothing was
// processed.
func (c *Coordinator) Summary(result BulkResult) BulkSummary {
	summary := BulkSummary{
		Succeeded: len(result.Successful),
		Failed:    len(result.Failed),
	}
	summary.Processed = summary.Succeeded + summary.Failed
	if summary.Processed > 0 {
		rate := float64(summary.Succeeded) / float64(summary.Processed) * 100
		summary.SuccessRate = math.Round(rate*100) / 100
	}
	return summary
}

// BulkExpireResult reports a batched expiry of selected invitations.
type BulkExpireResult struct {
	ExpiredCount int64 `json:"expired_count"`
}

// BulkExpire expires every currently pending invitation among ids in one
// batched update. No per-item business validation is needed beyond the
// pending filter; zero matches is a no-op success.
func (c *Coordinator) BulkExpire(ids []string) (BulkExpireResult, error) {
	count, err := c.repo.BulkExpire(ids)
	if err != nil {
		return BulkExpireResult{}, errors.Wrap(err, "bulk expire invitations")
	}
	if count > 0 {
		c.logger.Info().Int64("expired", count).Msg("bulk expire completed")
	}
	return BulkExpireResult{ExpiredCount: count}, nil
}

func (c *Coordinator) deliverInvite(inv models.Invitation, plainToken string) {
	if c.mailer == nil {
		return
	}
	inviteURL := fmt.Sprintf(c.urlTpl, plainToken)
	if err := c.mailer.SendInvite(inv.Email, inv.OrgName, inviteURL, inv.Message); err != nil {
		// The invitation exists either way; delivery can be retried via resend.
		c.logger.Warn().Err(err).Str("email", inv.Email).Msg("failed to send invite email")
	}
}
