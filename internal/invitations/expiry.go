package invitations

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hearthshare/hearth-api/internal/authz"
	"github.com/hearthshare/hearth-api/internal/models"
	"github.com/hearthshare/hearth-api/internal/repository"
)

const (
	// MinExtensionDays and MaxExtensionDays bound a single deadline extension.
	MinExtensionDays = 1
	MaxExtensionDays = 30
	// DefaultExpiryDays is the lifetime of a freshly issued invitation.
	DefaultExpiryDays = 7
)

// ExpiryManager computes and extends invitation deadlines and sweeps pending
// invitations whose deadlines have passed into the expired state.
type ExpiryManager struct {
	repo   repository.InvitationRepository
	authz  authz.ExpiryAuthorizer
	sm     *StateMachine
	now    func() time.Time
	logger zerolog.Logger
}

func NewExpiryManager(repo repository.InvitationRepository, authorizer authz.ExpiryAuthorizer, sm *StateMachine, logger zerolog.Logger) *ExpiryManager {
	return &ExpiryManager{
		repo:   repo,
		authz:  authorizer,
		sm:     sm,
		now:    time.Now,
		logger: logger.With().Str("component", "expiry_manager").Logger(),
	}
}

// Extend pushes a pending invitation's deadline to now + days. The day count
// must be in [MinExtensionDays, MaxExtensionDays] and the requester must be
// authorized by the permission collaborator.
func (m *ExpiryManager) Extend(inv models.Invitation, days int, requester string) (TransitionResult, error) {
	if days < MinExtensionDays || days > MaxExtensionDays {
		return TransitionResult{Reason: ReasonDaysOutOfRange, OldStatus: inv.Status}, nil
	}
	if !m.authz.CanExtendExpiry(requester) {
		return TransitionResult{Reason: ReasonNotAuthorized, OldStatus: inv.Status}, nil
	}
	return m.extend(inv, days)
}

func (m *ExpiryManager) extend(inv models.Invitation, days int) (TransitionResult, error) {
	if inv.IsDeleted() {
		return TransitionResult{Reason: ReasonDeletedInvitation, OldStatus: inv.Status}, nil
	}
	if inv.Status != models.StatusPending {
		return TransitionResult{Reason: ReasonInvalidStatus, OldStatus: inv.Status}, nil
	}

	expiresAt := m.now().Add(time.Duration(days) * 24 * time.Hour)
	updated, err := m.repo.ExtendExpiry(inv.ID, expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TransitionResult{Reason: ReasonInvalidStatus, OldStatus: inv.Status}, nil
		}
		return TransitionResult{}, errors.Wrap(err, "extend invitation expiry")
	}

	m.logger.Info().Str("invitation_id", updated.ID).Int("days", days).Time("expires_at", updated.ExpiresAt).Msg("invitation expiry extended")
	return TransitionResult{
		OK:         true,
		OldStatus:  inv.Status,
		NewStatus:  updated.Status,
		Invitation: updated,
	}, nil
}

// SweepResult reports one batched pass of the expiry sweep.
type SweepResult struct {
	Processed int  `json:"processed_count"`
	HasMore   bool `json:"has_more"`
}

// SweepExpired expires up to batchSize pending invitations whose deadline has
// passed. Safe to call repeatedly: already-swept records no longer match the
// pending filter. HasMore is true when the batch came back exactly full.
func (m *ExpiryManager) SweepExpired(batchSize int) (SweepResult, error) {
	if batchSize <= 0 {
		return SweepResult{}, errors.New("batch size must be positive")
	}

	lapsed, err := m.repo.ListExpired(m.now(), batchSize)
	if err != nil {
		return SweepResult{}, errors.Wrap(err, "list lapsed invitations")
	}

	result := SweepResult{HasMore: len(lapsed) == batchSize}
	for _, inv := range lapsed {
		transition, err := m.sm.Expire(inv)
		if err != nil {
			return result, err
		}
		if transition.OK {
			result.Processed++
		} else {
			// Settled by someone else between the select and the update.
			m.logger.Debug().Str("invitation_id", inv.ID).Str("reason", string(transition.Reason)).Msg("skipped lapsed invitation")
		}
	}

	if result.Processed > 0 {
		m.logger.Info().Int("processed", result.Processed).Bool("has_more", result.HasMore).Msg("expiry sweep completed")
	}
	return result, nil
}

// BulkExtendItem is one id's outcome within a BulkExtend call.
type BulkExtendItem struct {
	ID     string `json:"id"`
	OK     bool   `json:"ok"`
	Reason Reason `json:"reason,omitempty"`
}

// BulkExtendResult aggregates a BulkExtend call. Reason is set only when the
// request failed as a whole before any item was attempted.
type BulkExtendResult struct {
	OK       bool             `json:"ok"`
	Reason   Reason           `json:"reason,omitempty"`
	Extended int              `json:"extended_count"`
	Items    []BulkExtendItem `json:"items,omitempty"`
}

// BulkExtend applies Extend across a set of ids. Request-level validation
// (day range, authorization) happens once; after that each id is resolved and
// extended independently, and one item's failure never aborts the rest.
func (m *ExpiryManager) BulkExtend(ids []string, days int, requester string) (BulkExtendResult, error) {
	if days < MinExtensionDays || days > MaxExtensionDays {
		return BulkExtendResult{Reason: ReasonDaysOutOfRange}, nil
	}
	if !m.authz.CanExtendExpiry(requester) {
		return BulkExtendResult{Reason: ReasonNotAuthorized}, nil
	}

	result := BulkExtendResult{OK: true}
	for _, id := range ids {
		inv, err := m.repo.GetByID(id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				result.Items = append(result.Items, BulkExtendItem{ID: id, Reason: ReasonNotFound})
				continue
			}
			return result, errors.Wrap(err, "load invitation")
		}

		transition, err := m.extend(inv, days)
		if err != nil {
			return result, err
		}
		if transition.OK {
			result.Extended++
		}
		result.Items = append(result.Items, BulkExtendItem{ID: id, OK: transition.OK, Reason: transition.Reason})
	}
	return result, nil
}

// ExpiringSoon lists pending invitations whose deadline falls within the next
// daysAhead days.
func (m *ExpiryManager) ExpiringSoon(daysAhead int) ([]models.Invitation, error) {
	if daysAhead <= 0 {
		daysAhead = DefaultExpiryDays
	}
	now := m.now()
	return m.repo.ListExpiringWithin(now, now.Add(time.Duration(daysAhead)*24*time.Hour))
}

// ExpirySummary buckets pending invitations by remaining lifetime.
func (m *ExpiryManager) ExpirySummary() (models.ExpiryBuckets, error) {
	return m.repo.CountByExpiryWindow(m.now())
}
