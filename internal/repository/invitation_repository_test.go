package repository

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/hearthshare/hearth-api/internal/models"
)

var repoNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockRepo(t *testing.T) (InvitationRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return NewInvitationRepository(db), mock, func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	}
}

func invitationRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "token", "email", "role", "status", "message", "org_name",
		"invited_by", "expires_at", "accepted_at", "accepted_by", "deleted_at",
		"created_at", "updated_at",
	}).AddRow(
		"inv-1", "tok-1", "a@example.com", "member", "pending", "hi", "Hearth HQ",
		"owner@example.com", repoNow.Add(7*24*time.Hour), nil, nil, nil,
		repoNow, repoNow,
	)
}

func TestGetByID(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery(`SELECT .+\s+FROM invitations\s+WHERE id = \$1`).
		WithArgs("inv-1").
		WillReturnRows(invitationRow())

	inv, err := repo.GetByID("inv-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if inv.ID != "inv-1" || inv.Token != "tok-1" || inv.Status != models.StatusPending {
		t.Fatalf("inv = %+v", inv)
	}
	if inv.Message != "hi" || inv.OrgName != "Hearth HQ" {
		t.Fatalf("nullable columns = %q/%q", inv.Message, inv.OrgName)
	}
	if inv.AcceptedBy != nil || inv.AcceptedAt != nil || inv.DeletedAt != nil {
		t.Fatalf("unexpected non-nil pointers: %+v", inv)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery(`SELECT .+\s+FROM invitations\s+WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByID("missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestCreateMapsPendingConstraint(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery(`INSERT INTO invitations`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "invitations_pending_email_idx"})

	_, err := repo.Create(models.Invitation{Email: "a@example.com"})
	if !errors.Is(err, ErrPendingExists) {
		t.Fatalf("err = %v, want ErrPendingExists", err)
	}
}

func TestCreateMapsTokenConstraint(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery(`INSERT INTO invitations`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "invitations_token_key"})

	_, err := repo.Create(models.Invitation{Email: "a@example.com"})
	if !errors.Is(err, ErrDuplicateToken) {
		t.Fatalf("err = %v, want ErrDuplicateToken", err)
	}
}

func TestCreatePassesThroughOtherConstraints(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	pqErr := &pq.Error{Code: "23503", Constraint: "invitations_invited_by_fkey"}
	mock.ExpectQuery(`INSERT INTO invitations`).WillReturnError(pqErr)

	_, err := repo.Create(models.Invitation{Email: "a@example.com"})
	if errors.Is(err, ErrPendingExists) || errors.Is(err, ErrDuplicateToken) {
		t.Fatalf("foreign-key violation mapped to a uniqueness sentinel: %v", err)
	}
	if !errors.Is(err, pqErr) {
		t.Fatalf("err = %v, want the original pq error", err)
	}
}

// The status predicate must be part of the UPDATE itself so that the check and
// the write are a single statement.
func TestMarkAcceptedIsConditional(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery(`UPDATE invitations\s+SET status = 'accepted'.*\s+WHERE id = \$1 AND status = 'pending' AND deleted_at IS NULL`).
		WithArgs("inv-1", "a@example.com", repoNow).
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.MarkAccepted("inv-1", "a@example.com", repoNow); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows for the losing writer", err)
	}
}

func TestMarkCancelledIsConditional(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery(`UPDATE invitations\s+SET status = 'cancelled'.*\s+WHERE id = \$1 AND status = 'pending' AND deleted_at IS NULL`).
		WithArgs("inv-1").
		WillReturnRows(invitationRow())

	if _, err := repo.MarkCancelled("inv-1"); err != nil {
		t.Fatalf("MarkCancelled: %v", err)
	}
}

// Reissue excludes only accepted rows so that expired and cancelled
// invitations can return to pending.
func TestReissueExcludesAccepted(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	deadline := repoNow.Add(7 * 24 * time.Hour)
	mock.ExpectQuery(`UPDATE invitations\s+SET token = \$2.*\s+WHERE id = \$1 AND status <> 'accepted' AND deleted_at IS NULL`).
		WithArgs("inv-1", "new-token", deadline).
		WillReturnRows(invitationRow())

	if _, err := repo.Reissue("inv-1", "new-token", deadline); err != nil {
		t.Fatalf("Reissue: %v", err)
	}
}

func TestTokenExists(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("tok-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.TokenExists("tok-1")
	if err != nil {
		t.Fatalf("TokenExists: %v", err)
	}
	if !exists {
		t.Fatal("exists = false")
	}
}

func TestListExpiredAppliesLimit(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery(`SELECT .+\s+FROM invitations\s+WHERE status = 'pending' AND expires_at < \$1 AND deleted_at IS NULL\s+ORDER BY expires_at ASC\s+LIMIT \$2`).
		WithArgs(repoNow, 50).
		WillReturnRows(invitationRow())

	lapsed, err := repo.ListExpired(repoNow, 50)
	if err != nil {
		t.Fatalf("ListExpired: %v", err)
	}
	if len(lapsed) != 1 || lapsed[0].ID != "inv-1" {
		t.Fatalf("lapsed = %v", lapsed)
	}
}

func TestBulkExpire(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	ids := []string{"inv-1", "inv-2", "inv-3"}
	mock.ExpectExec(`UPDATE invitations\s+SET status = 'expired'.*\s+WHERE id = ANY\(\$1\) AND status = 'pending' AND deleted_at IS NULL`).
		WithArgs(pq.Array(ids)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.BulkExpire(ids)
	if err != nil {
		t.Fatalf("BulkExpire: %v", err)
	}
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
}

func TestBulkExpireEmptySkipsDatabase(t *testing.T) {
	repo, _, done := newMockRepo(t)
	defer done()

	n, err := repo.BulkExpire(nil)
	if err != nil {
		t.Fatalf("BulkExpire: %v", err)
	}
	if n != 0 {
		t.Fatalf("n = %d, want 0", n)
	}
}

func TestCountByExpiryWindow(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery(`SELECT\s+COUNT\(\*\) FILTER`).
		WithArgs(repoNow).
		WillReturnRows(sqlmock.NewRows([]string{"expired", "today", "week", "month"}).AddRow(2, 1, 4, 9))

	buckets, err := repo.CountByExpiryWindow(repoNow)
	if err != nil {
		t.Fatalf("CountByExpiryWindow: %v", err)
	}
	want := models.ExpiryBuckets{AlreadyExpired: 2, ExpiringToday: 1, ExpiringThisWeek: 4, ExpiringThisMonth: 9}
	if buckets != want {
		t.Fatalf("buckets = %+v, want %+v", buckets, want)
	}
}

func TestListByInviter(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery(`SELECT .+\s+FROM invitations\s+WHERE invited_by = \$1 AND deleted_at IS NULL\s+ORDER BY created_at DESC`).
		WithArgs("owner@example.com").
		WillReturnRows(invitationRow())

	list, err := repo.ListByInviter("owner@example.com")
	if err != nil {
		t.Fatalf("ListByInviter: %v", err)
	}
	if len(list) != 1 || list[0].InvitedBy != "owner@example.com" {
		t.Fatalf("list = %v", list)
	}
}

func TestSoftDelete(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectExec(`UPDATE invitations\s+SET deleted_at = now\(\)`).
		WithArgs("inv-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SoftDelete("inv-1"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
}

func TestSoftDeleteNotFound(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectExec(`UPDATE invitations\s+SET deleted_at = now\(\)`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SoftDelete("missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}
