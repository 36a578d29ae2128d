package invitations

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hearthshare/hearth-api/internal/models"
	"github.com/hearthshare/hearth-api/internal/repository"
)

// fakeStore mirrors the Postgres repository's semantics in memory: every
// mutation re-checks its status precondition under the lock, and a failed
// precondition surfaces as sql.ErrNoRows just like a conditional UPDATE that
// matched no rows.
type fakeStore struct {
	mu      sync.Mutex
	nextID  int
	byID    map[string]models.Invitation
	buckets models.ExpiryBuckets

	createErr      error
	findPendingErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: make(map[string]models.Invitation)}
}

func (f *fakeStore) add(inv models.Invitation) models.Invitation {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	inv.ID = fmt.Sprintf("inv-%d", f.nextID)
	if inv.Token == "" {
		inv.Token = fmt.Sprintf("token-%d", f.nextID)
	}
	f.byID[inv.ID] = inv
	return inv
}

func (f *fakeStore) Create(inv models.Invitation) (models.Invitation, error) {
	if f.createErr != nil {
		return models.Invitation{}, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == inv.Email && existing.Status == models.StatusPending && existing.DeletedAt == nil {
			return models.Invitation{}, repository.ErrPendingExists
		}
		if existing.Token == inv.Token {
			return models.Invitation{}, repository.ErrDuplicateToken
		}
	}
	f.nextID++
	inv.ID = fmt.Sprintf("inv-%d", f.nextID)
	f.byID[inv.ID] = inv
	return inv, nil
}

func (f *fakeStore) GetByID(id string) (models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.byID[id]
	if !ok {
		return models.Invitation{}, sql.ErrNoRows
	}
	return inv, nil
}

func (f *fakeStore) GetByToken(token string) (models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.byID {
		if inv.Token == token {
			return inv, nil
		}
	}
	return models.Invitation{}, sql.ErrNoRows
}

func (f *fakeStore) TokenExists(token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.byID {
		if inv.Token == token {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) FindPendingByEmail(email string) (models.Invitation, error) {
	if f.findPendingErr != nil {
		return models.Invitation{}, f.findPendingErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.byID {
		if inv.Email == email && inv.Status == models.StatusPending && inv.DeletedAt == nil {
			return inv, nil
		}
	}
	return models.Invitation{}, sql.ErrNoRows
}

func (f *fakeStore) ListByInviter(invitedBy string) ([]models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Invitation
	for _, inv := range f.byID {
		if inv.InvitedBy == invitedBy && inv.DeletedAt == nil {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkAccepted(id, acceptedBy string, at time.Time) (models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.byID[id]
	if !ok || inv.Status != models.StatusPending || inv.DeletedAt != nil {
		return models.Invitation{}, sql.ErrNoRows
	}
	inv.Status = models.StatusAccepted
	inv.AcceptedBy = &acceptedBy
	inv.AcceptedAt = &at
	f.byID[id] = inv
	return inv, nil
}

func (f *fakeStore) MarkCancelled(id string) (models.Invitation, error) {
	return f.flipPending(id, models.StatusCancelled)
}

func (f *fakeStore) MarkExpired(id string) (models.Invitation, error) {
	return f.flipPending(id, models.StatusExpired)
}

func (f *fakeStore) flipPending(id string, to models.Status) (models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.byID[id]
	if !ok || inv.Status != models.StatusPending || inv.DeletedAt != nil {
		return models.Invitation{}, sql.ErrNoRows
	}
	inv.Status = to
	f.byID[id] = inv
	return inv, nil
}

func (f *fakeStore) Reissue(id, token string, expiresAt time.Time) (models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.byID[id]
	if !ok || inv.Status == models.StatusAccepted || inv.DeletedAt != nil {
		return models.Invitation{}, sql.ErrNoRows
	}
	inv.Token = token
	inv.ExpiresAt = expiresAt
	inv.Status = models.StatusPending
	inv.AcceptedAt = nil
	inv.AcceptedBy = nil
	f.byID[id] = inv
	return inv, nil
}

func (f *fakeStore) ExtendExpiry(id string, expiresAt time.Time) (models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.byID[id]
	if !ok || inv.Status != models.StatusPending || inv.DeletedAt != nil {
		return models.Invitation{}, sql.ErrNoRows
	}
	inv.ExpiresAt = expiresAt
	f.byID[id] = inv
	return inv, nil
}

func (f *fakeStore) ListExpired(now time.Time, limit int) ([]models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Invitation
	for _, inv := range f.byID {
		if inv.Status == models.StatusPending && inv.ExpiresAt.Before(now) && inv.DeletedAt == nil {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListExpiringWithin(from, until time.Time) ([]models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Invitation
	for _, inv := range f.byID {
		if inv.Status == models.StatusPending && inv.DeletedAt == nil &&
			!inv.ExpiresAt.Before(from) && inv.ExpiresAt.Before(until) {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (f *fakeStore) BulkExpire(ids []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		inv, ok := f.byID[id]
		if !ok || inv.Status != models.StatusPending || inv.DeletedAt != nil {
			continue
		}
		inv.Status = models.StatusExpired
		f.byID[id] = inv
		n++
	}
	return n, nil
}

func (f *fakeStore) CountByExpiryWindow(now time.Time) (models.ExpiryBuckets, error) {
	return f.buckets, nil
}

func (f *fakeStore) SoftDelete(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.byID[id]
	if !ok || inv.DeletedAt != nil {
		return sql.ErrNoRows
	}
	now := time.Now()
	inv.DeletedAt = &now
	f.byID[id] = inv
	return nil
}

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]models.User
	created []string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: make(map[string]models.User)}
}

func (f *fakeUsers) addActive(email string, role models.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byEmail[email] = models.User{ID: email, Email: email, Role: role, IsActive: true}
}

func (f *fakeUsers) addInactive(email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byEmail[email] = models.User{ID: email, Email: email, Role: models.RoleMember, IsActive: false}
}

func (f *fakeUsers) CreateUser(email, password string, role models.Role) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := models.User{ID: email, Email: email, Role: role, IsActive: true}
	f.byEmail[email] = user
	f.created = append(f.created, email)
	return user, nil
}

func (f *fakeUsers) GetUserByEmail(email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byEmail[email]
	if !ok {
		return models.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUsers) GetUserByID(userID string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.byEmail {
		if user.ID == userID {
			return user, nil
		}
	}
	return models.User{}, sql.ErrNoRows
}

// Interface compliance for the fakes.
var (
	_ repository.InvitationRepository = (*fakeStore)(nil)
	_ repository.UserRepository       = (*fakeUsers)(nil)
)
