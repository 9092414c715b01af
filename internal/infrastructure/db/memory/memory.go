// Package memory implements the storage ports in process memory. It backs the
// "memory" storage driver for local development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/staybook/booking-api/internal/core/domain"
	"github.com/staybook/booking-api/internal/core/ports"
)

// Store holds users and housings. Transactions are serialized and roll back
// to a snapshot taken when they started.
type Store struct {
	txMu     sync.Mutex // held for the whole of a transaction or a standalone write
	mu       sync.RWMutex
	users    map[uuid.UUID]*domain.User
	housings map[uuid.UUID]*domain.Housing
	now      func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:    make(map[uuid.UUID]*domain.User),
		housings: make(map[uuid.UUID]*domain.Housing),
		now:      time.Now,
	}
}

// Ensure interfaces are met.
var (
	_ ports.UserRepository     = (*Store)(nil)
	_ ports.TransactionManager = (*Store)(nil)
	_ ports.HousingRepository  = (*HousingRepo)(nil)
	_ ports.Tx                 = (*memTx)(nil)
)

// Housings exposes the housing half of the store.
func (s *Store) Housings() *HousingRepo {
	return &HousingRepo{s: s}
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	if u.HousingID != nil {
		id := *u.HousingID
		c.HousingID = &id
	}
	return &c
}

func cloneHousing(h *domain.Housing) *domain.Housing {
	c := *h
	if h.UserID != nil {
		id := *h.UserID
		c.UserID = &id
	}
	return &c
}

// --- UserRepository ---

func (s *Store) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userByID(id)
}

func (s *Store) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userByEmail(email)
}

func (s *Store) FindByEmailOrUsername(_ context.Context, login string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == login {
			return cloneUser(u), nil
		}
	}
	return s.userByEmail(login)
}

func (s *Store) Create(_ context.Context, user *domain.User) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ID == user.ID || u.Username == user.Username || strings.EqualFold(u.Email, user.Email) {
			return domain.ErrUserExists
		}
	}
	c := cloneUser(user)
	if c.Role == "" {
		c.Role = domain.RoleUser
	}
	s.users[c.ID] = c
	return nil
}

func (s *Store) UpdateRole(_ context.Context, id uuid.UUID, role domain.Role) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Role = role
	u.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Store) SaveRefreshToken(_ context.Context, id uuid.UUID, hash string, expiresAt time.Time) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveRefreshToken(id, hash, expiresAt)
}

func (s *Store) userByID(id uuid.UUID) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) userByEmail(email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *Store) saveRefreshToken(id uuid.UUID, hash string, expiresAt time.Time) error {
	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.RefreshTokenHash = hash
	u.RefreshTokenExpiresAt = expiresAt
	u.UpdatedAt = s.now().UTC()
	return nil
}

// --- HousingRepository ---

// HousingRepo implements ports.HousingRepository over a Store.
type HousingRepo struct {
	s *Store
}

func (r *HousingRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Housing, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.housingByID(id)
}

// List returns housings oldest first.
func (r *HousingRepo) List(_ context.Context) ([]*domain.Housing, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Housing, 0, len(r.s.housings))
	for _, h := range r.s.housings {
		out = append(out, cloneHousing(h))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *HousingRepo) Create(_ context.Context, h *domain.Housing) error {
	r.s.txMu.Lock()
	defer r.s.txMu.Unlock()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c := cloneHousing(h)
	c.IsBooked = c.UserID != nil
	r.s.housings[c.ID] = c
	return nil
}

func (r *HousingRepo) UpdateDetails(_ context.Context, id uuid.UUID, d domain.HousingDetails) (*domain.Housing, error) {
	r.s.txMu.Lock()
	defer r.s.txMu.Unlock()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	h, ok := r.s.housings[id]
	if !ok {
		return nil, domain.ErrHousingNotFound
	}
	h.Apply(d)
	h.UpdatedAt = r.s.now().UTC()
	return cloneHousing(h), nil
}

func (s *Store) housingByID(id uuid.UUID) (*domain.Housing, error) {
	h, ok := s.housings[id]
	if !ok {
		return nil, domain.ErrHousingNotFound
	}
	return cloneHousing(h), nil
}

// --- TransactionManager ---

// Execute runs fn with exclusive access to the store. The store is restored
// to its prior state when fn fails, panics or ctx is done before commit.
func (s *Store) Execute(ctx context.Context, fn func(tx ports.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	users, housings := s.snapshot()
	committed := false
	defer func() {
		if !committed {
			s.restore(users, housings)
		}
	}()

	if err := fn(&memTx{s: s}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) snapshot() (map[uuid.UUID]*domain.User, map[uuid.UUID]*domain.Housing) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make(map[uuid.UUID]*domain.User, len(s.users))
	for id, u := range s.users {
		users[id] = cloneUser(u)
	}
	housings := make(map[uuid.UUID]*domain.Housing, len(s.housings))
	for id, h := range s.housings {
		housings[id] = cloneHousing(h)
	}
	return users, housings
}

func (s *Store) restore(users map[uuid.UUID]*domain.User, housings map[uuid.UUID]*domain.Housing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = users
	s.housings = housings
}

// memTx needs no row locks: Execute already owns the whole store.
type memTx struct {
	s *Store
}

func (t *memTx) LockHousing(_ context.Context, id uuid.UUID) (*domain.Housing, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.housingByID(id)
}

func (t *memTx) LockUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.userByID(id)
}

func (t *memTx) LockUserByEmail(_ context.Context, email string) (*domain.User, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.userByEmail(email)
}

func (t *memTx) Link(_ context.Context, housingID, userID uuid.UUID) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	h, ok := t.s.housings[housingID]
	if !ok {
		return domain.ErrHousingNotFound
	}
	u, ok := t.s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if h.UserID != nil {
		return domain.ErrHousingAlreadyBooked
	}
	if u.HousingID != nil {
		return domain.ErrUserAlreadyHasHousing
	}

	now := t.s.now().UTC()
	uid, hid := userID, housingID
	h.UserID, h.IsBooked, h.UpdatedAt = &uid, true, now
	u.HousingID, u.UpdatedAt = &hid, now
	return nil
}

func (t *memTx) Unlink(_ context.Context, housingID, userID uuid.UUID) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	h, ok := t.s.housings[housingID]
	if !ok || !h.BookedBy(userID) {
		return domain.ErrInconsistentState
	}
	u, ok := t.s.users[userID]
	if !ok || u.HousingID == nil || *u.HousingID != housingID {
		return domain.ErrInconsistentState
	}

	now := t.s.now().UTC()
	h.UserID, h.IsBooked, h.UpdatedAt = nil, false, now
	u.HousingID, u.UpdatedAt = nil, now
	return nil
}

func (t *memTx) DeleteHousing(_ context.Context, id uuid.UUID) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	h, ok := t.s.housings[id]
	if !ok {
		return domain.ErrHousingNotFound
	}
	if h.UserID != nil {
		// Mirrors the foreign key: a linked housing cannot be removed.
		return domain.ErrInconsistentState
	}
	delete(t.s.housings, id)
	return nil
}

func (t *memTx) SaveRefreshToken(_ context.Context, userID uuid.UUID, hash string, expiresAt time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.saveRefreshToken(userID, hash, expiresAt)
}
