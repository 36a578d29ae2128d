package repository

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hearthshare/hearth-api/internal/models"
)

var (
	// ErrDuplicateToken is returned when an insert collides with an existing token.
	ErrDuplicateToken = errors.New("invitation token already exists")
	// ErrPendingExists is returned when an email already has a live pending invitation.
	ErrPendingExists = errors.New("pending invitation already exists for email")
)

const (
	uniqueViolation        = "23505"
	tokenConstraint        = "invitations_token_key"
	pendingEmailConstraint = "invitations_pending_email_idx"
)

type InvitationRepository interface {
	Create(inv models.Invitation) (models.Invitation, error)
	GetByID(id string) (models.Invitation, error)
	GetByToken(token string) (models.Invitation, error)
	TokenExists(token string) (bool, error)
	FindPendingByEmail(email string) (models.Invitation, error)
	ListByInviter(invitedBy string) ([]models.Invitation, error)
	MarkAccepted(id, acceptedBy string, at time.Time) (models.Invitation, error)
	MarkCancelled(id string) (models.Invitation, error)
	MarkExpired(id string) (models.Invitation, error)
	Reissue(id, token string, expiresAt time.Time) (models.Invitation, error)
	ExtendExpiry(id string, expiresAt time.Time) (models.Invitation, error)
	ListExpired(now time.Time, limit int) ([]models.Invitation, error)
	ListExpiringWithin(from, until time.Time) ([]models.Invitation, error)
	BulkExpire(ids []string) (int64, error)
	CountByExpiryWindow(now time.Time) (models.ExpiryBuckets, error)
	SoftDelete(id string) error
}

type invitationRepository struct {
	db *sql.DB
}

func NewInvitationRepository(db *sql.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

const invitationColumns = `id, token, email, role, status, message, org_name, invited_by, expires_at, accepted_at, accepted_by, deleted_at, created_at, updated_at`

func scanInvitation(row *sql.Row) (models.Invitation, error) {
	var (
		inv        models.Invitation
		message    sql.NullString
		orgName    sql.NullString
		acceptedBy sql.NullString
	)
	err := row.Scan(
		&inv.ID,
		&inv.Token,
		&inv.Email,
		&inv.Role,
		&inv.Status,
		&message,
		&orgName,
		&inv.InvitedBy,
		&inv.ExpiresAt,
		&inv.AcceptedAt,
		&acceptedBy,
		&inv.DeletedAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return models.Invitation{}, err
	}
	inv.Message = message.String
	inv.OrgName = orgName.String
	if acceptedBy.Valid {
		inv.AcceptedBy = &acceptedBy.String
	}
	return inv, nil
}

func scanInvitationRows(rows *sql.Rows) ([]models.Invitation, error) {
	var invitations []models.Invitation
	for rows.Next() {
		var (
			inv        models.Invitation
			message    sql.NullString
			orgName    sql.NullString
			acceptedBy sql.NullString
		)
		if err := rows.Scan(
			&inv.ID,
			&inv.Token,
			&inv.Email,
			&inv.Role,
			&inv.Status,
			&message,
			&orgName,
			&inv.InvitedBy,
			&inv.ExpiresAt,
			&inv.AcceptedAt,
			&acceptedBy,
			&inv.DeletedAt,
			&inv.CreatedAt,
			&inv.UpdatedAt,
		); err != nil {
			return nil, err
		}
		inv.Message = message.String
		inv.OrgName = orgName.String
		if acceptedBy.Valid {
			inv.AcceptedBy = &acceptedBy.String
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invitations, nil
}

// mapUniqueViolation converts Postgres unique-constraint errors on the token
// and pending-email indexes into the repository sentinels. The database is the
// authoritative guard for both invariants; callers treat these as expected
// race outcomes, not failures.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		switch pqErr.Constraint {
		case tokenConstraint:
			return ErrDuplicateToken
		case pendingEmailConstraint:
			return ErrPendingExists
		}
	}
	return err
}

func (r *invitationRepository) Create(inv models.Invitation) (models.Invitation, error) {
	const query = `
		INSERT INTO invitations (token, email, role, status, message, org_name, invited_by, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + invitationColumns + `;
	`

	created, err := scanInvitation(r.db.QueryRow(query,
		inv.Token,
		inv.Email,
		inv.Role,
		inv.Status,
		inv.Message,
		inv.OrgName,
		inv.InvitedBy,
		inv.ExpiresAt,
	))
	if err != nil {
		return models.Invitation{}, mapUniqueViolation(err)
	}
	return created, nil
}

func (r *invitationRepository) GetByID(id string) (models.Invitation, error) {
	const query = `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE id = $1;
	`
	return scanInvitation(r.db.QueryRow(query, id))
}

func (r *invitationRepository) GetByToken(token string) (models.Invitation, error) {
	const query = `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE token = $1;
	`
	return scanInvitation(r.db.QueryRow(query, token))
}

// TokenExists probes the full token space, soft-deleted rows included, since
// token uniqueness holds across every invitation ever created.
func (r *invitationRepository) TokenExists(token string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM invitations WHERE token = $1);`

	var exists bool
	if err := r.db.QueryRow(query, token).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *invitationRepository) FindPendingByEmail(email string) (models.Invitation, error) {
	const query = `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE email = $1 AND status = 'pending' AND deleted_at IS NULL;
	`
	return scanInvitation(r.db.QueryRow(query, email))
}

func (r *invitationRepository) ListByInviter(invitedBy string) ([]models.Invitation, error) {
	const query = `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE invited_by = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC;
	`

	rows, err := r.db.Query(query, invitedBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanInvitationRows(rows)
}

// MarkAccepted performs the atomic pending-to-accepted transition. The status
// predicate in the WHERE clause guarantees that of two racing accepts exactly
// one sees a row; the loser gets sql.ErrNoRows.
func (r *invitationRepository) MarkAccepted(id, acceptedBy string, at time.Time) (models.Invitation, error) {
	const query = `
		UPDATE invitations
		SET status = 'accepted', accepted_by = $2, accepted_at = $3, updated_at = now()
		WHERE id = $1 AND status = 'pending' AND deleted_at IS NULL
		RETURNING ` + invitationColumns + `;
	`
	return scanInvitation(r.db.QueryRow(query, id, acceptedBy, at))
}

func (r *invitationRepository) MarkCancelled(id string) (models.Invitation, error) {
	const query = `
		UPDATE invitations
		SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND status = 'pending' AND deleted_at IS NULL
		RETURNING ` + invitationColumns + `;
	`
	return scanInvitation(r.db.QueryRow(query, id))
}

func (r *invitationRepository) MarkExpired(id string) (models.Invitation, error) {
	const query = `
		UPDATE invitations
		SET status = 'expired', updated_at = now()
		WHERE id = $1 AND status = 'pending' AND deleted_at IS NULL
		RETURNING ` + invitationColumns + `;
	`
	return scanInvitation(r.db.QueryRow(query, id))
}

// Reissue stores a fresh token and deadline and normalizes the status back to
// pending. Accepted invitations are immutable and excluded here; narrower
// resend policy is enforced above the repository.
func (r *invitationRepository) Reissue(id, token string, expiresAt time.Time) (models.Invitation, error) {
	const query = `
		UPDATE invitations
		SET token = $2, expires_at = $3, status = 'pending', accepted_at = NULL, accepted_by = NULL, updated_at = now()
		WHERE id = $1 AND status <> 'accepted' AND deleted_at IS NULL
		RETURNING ` + invitationColumns + `;
	`

	inv, err := scanInvitation(r.db.QueryRow(query, id, token, expiresAt))
	if err != nil {
		return models.Invitation{}, mapUniqueViolation(err)
	}
	return inv, nil
}

func (r *invitationRepository) ExtendExpiry(id string, expiresAt time.Time) (models.Invitation, error) {
	const query = `
		UPDATE invitations
		SET expires_at = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending' AND deleted_at IS NULL
		RETURNING ` + invitationColumns + `;
	`
	return scanInvitation(r.db.QueryRow(query, id, expiresAt))
}

func (r *invitationRepository) ListExpired(now time.Time, limit int) ([]models.Invitation, error) {
	const query = `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE status = 'pending' AND expires_at < $1 AND deleted_at IS NULL
		ORDER BY expires_at ASC
		LIMIT $2;
	`

	rows, err := r.db.Query(query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanInvitationRows(rows)
}

func (r *invitationRepository) ListExpiringWithin(from, until time.Time) ([]models.Invitation, error) {
	const query = `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE status = 'pending' AND expires_at >= $1 AND expires_at < $2 AND deleted_at IS NULL
		ORDER BY expires_at ASC;
	`

	rows, err := r.db.Query(query, from, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanInvitationRows(rows)
}

// BulkExpire flips every listed pending invitation to expired in one
// statement. Ids that are missing or not pending are simply not counted.
func (r *invitationRepository) BulkExpire(ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	const query = `
		UPDATE invitations
		SET status = 'expired', updated_at = now()
		WHERE id = ANY($1) AND status = 'pending' AND deleted_at IS NULL;
	`

	result, err := r.db.Exec(query, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *invitationRepository) CountByExpiryWindow(now time.Time) (models.ExpiryBuckets, error) {
	const query = `
		SELECT
			COUNT(*) FILTER (WHERE expires_at < $1),
			COUNT(*) FILTER (WHERE expires_at >= $1 AND expires_at < $1 + interval '1 day'),
			COUNT(*) FILTER (WHERE expires_at >= $1 AND expires_at < $1 + interval '7 days'),
			COUNT(*) FILTER (WHERE expires_at >= $1 AND expires_at < $1 + interval '30 days')
		FROM invitations
		WHERE status = 'pending' AND deleted_at IS NULL;
	`

	var buckets models.ExpiryBuckets
	err := r.db.QueryRow(query, now).Scan(
		&buckets.AlreadyExpired,
		&buckets.ExpiringToday,
		&buckets.ExpiringThisWeek,
		&buckets.ExpiringThisMonth,
	)
	if err != nil {
		return models.ExpiryBuckets{}, err
	}
	return buckets, nil
}

func (r *invitationRepository) SoftDelete(id string) error {
	const query = `
		UPDATE invitations
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL;
	`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
