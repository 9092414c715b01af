package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/staybook/booking-api/internal/core/domain"
	"github.com/staybook/booking-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub store: UserRepository, HousingRepository, TransactionManager
// ---------------------------------------------------------------------------

type stubStore struct {
	mu        sync.Mutex // serializes Execute, mirroring row locks
	users     map[uuid.UUID]*domain.User
	housings  map[uuid.UUID]*domain.Housing
	txErr     error // if set, Execute fails before running fn
	createErr error
}

func newStubStore() *stubStore {
	return &stubStore{
		users:    make(map[uuid.UUID]*domain.User),
		housings: make(map[uuid.UUID]*domain.Housing),
	}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	if u.HousingID != nil {
		id := *u.HousingID
		clone.HousingID = &id
	}
	return &clone
}

func cloneHousing(h *domain.Housing) *domain.Housing {
	if h == nil {
		return nil
	}
	clone := *h
	if h.UserID != nil {
		id := *h.UserID
		clone.UserID = &id
	}
	return &clone
}

func (s *stubStore) addUser(username string) *domain.User {
	u := &domain.User{
		ID:       uuid.New(),
		Username: username,
		Email:    username + "@example.com",
		Role:     domain.RoleUser,
	}
	s.users[u.ID] = cloneUser(u)
	return u
}

func (s *stubStore) addHousing(name string) *domain.Housing {
	h := &domain.Housing{ID: uuid.New(), Name: name, Rooms: 2, Address: "X"}
	s.housings[h.ID] = cloneHousing(h)
	return h
}

// --- UserRepository ---

func (s *stubStore) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *stubStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubStore) FindByEmailOrUsername(ctx context.Context, login string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Username == login {
			return cloneUser(u), nil
		}
	}
	return s.FindByEmail(ctx, login)
}

func (s *stubStore) Create(_ context.Context, user *domain.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	for _, u := range s.users {
		if u.Username == user.Username || strings.EqualFold(u.Email, user.Email) {
			return domain.ErrUserExists
		}
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *stubStore) UpdateRole(_ context.Context, id uuid.UUID, role domain.Role) error {
	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (s *stubStore) SaveRefreshToken(_ context.Context, id uuid.UUID, hash string, expiresAt time.Time) error {
	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.RefreshTokenHash = hash
	u.RefreshTokenExpiresAt = expiresAt
	return nil
}

// --- HousingRepository (wrapped to avoid method name clashes) ---

type stubHousingRepo struct{ s *stubStore }

func (r stubHousingRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Housing, error) {
	h, ok := r.s.housings[id]
	if !ok {
		return nil, domain.ErrHousingNotFound
	}
	return cloneHousing(h), nil
}

func (r stubHousingRepo) List(_ context.Context) ([]*domain.Housing, error) {
	out := make([]*domain.Housing, 0, len(r.s.housings))
	for _, h := range r.s.housings {
		out = append(out, cloneHousing(h))
	}
	return out, nil
}

func (r stubHousingRepo) Create(_ context.Context, h *domain.Housing) error {
	if r.s.createErr != nil {
		return r.s.createErr
	}
	r.s.housings[h.ID] = cloneHousing(h)
	return nil
}

func (r stubHousingRepo) UpdateDetails(_ context.Context, id uuid.UUID, d domain.HousingDetails) (*domain.Housing, error) {
	h, ok := r.s.housings[id]
	if !ok {
		return nil, domain.ErrHousingNotFound
	}
	h.Apply(d)
	return cloneHousing(h), nil
}

// --- TransactionManager / Tx ---

func (s *stubStore) Execute(ctx context.Context, fn func(tx ports.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txErr != nil {
		return s.txErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(stubTx{s: s})
}

type stubTx struct{ s *stubStore }

func (t stubTx) LockHousing(ctx context.Context, id uuid.UUID) (*domain.Housing, error) {
	return stubHousingRepo{s: t.s}.FindByID(ctx, id)
}

func (t stubTx) LockUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return t.s.FindByID(ctx, id)
}

func (t stubTx) LockUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return t.s.FindByEmail(ctx, email)
}

func (t stubTx) Link(_ context.Context, housingID, userID uuid.UUID) error {
	h, u := t.s.housings[housingID], t.s.users[userID]
	if h == nil {
		return domain.ErrHousingNotFound
	}
	if u == nil {
		return domain.ErrUserNotFound
	}
	if h.UserID != nil {
		return domain.ErrHousingAlreadyBooked
	}
	if u.HousingID != nil {
		return domain.ErrUserAlreadyHasHousing
	}
	hid, uid := housingID, userID
	now := time.Now().UTC()
	h.UserID, h.IsBooked, h.UpdatedAt = &uid, true, now
	u.HousingID, u.UpdatedAt = &hid, now
	return nil
}

func (t stubTx) Unlink(_ context.Context, housingID, userID uuid.UUID) error {
	h, u := t.s.housings[housingID], t.s.users[userID]
	if h == nil || u == nil || !h.BookedBy(userID) || u.HousingID == nil || *u.HousingID != housingID {
		return domain.ErrInconsistentState
	}
	now := time.Now().UTC()
	h.UserID, h.IsBooked, h.UpdatedAt = nil, false, now
	u.HousingID, u.UpdatedAt = nil, now
	return nil
}

func (t stubTx) DeleteHousing(_ context.Context, id uuid.UUID) error {
	if _, ok := t.s.housings[id]; !ok {
		return domain.ErrHousingNotFound
	}
	delete(t.s.housings, id)
	return nil
}

func (t stubTx) SaveRefreshToken(ctx context.Context, userID uuid.UUID, hash string, expiresAt time.Time) error {
	return t.s.SaveRefreshToken(ctx, userID, hash, expiresAt)
}

// ---------------------------------------------------------------------------
// Event pipeline stubs
// ---------------------------------------------------------------------------

type stubSink struct {
	mu     sync.Mutex
	events []domain.BookingEvent
	err    error
}

func (s *stubSink) Enqueue(e domain.BookingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *stubSink) actions() []domain.BookingAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.BookingAction, len(s.events))
	for i, e := range s.events {
		out[i] = e.Action
	}
	return out
}

type stubEventRepo struct {
	insertErr error
	inserted  []*domain.BookingEvent
}

func (r *stubEventRepo) Insert(_ context.Context, e *domain.BookingEvent) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, e)
	return nil
}

func (r *stubEventRepo) ListByHousing(_ context.Context, housingID uuid.UUID, limit int) ([]*domain.BookingEvent, error) {
	var out []*domain.BookingEvent
	for i := len(r.inserted) - 1; i >= 0 && len(out) < limit; i-- {
		if r.inserted[i].HousingID == housingID {
			out = append(out, r.inserted[i])
		}
	}
	return out, nil
}

type stubPublisher struct {
	err       error
	published []*domain.BookingEvent
}

func (p *stubPublisher) Publish(_ context.Context, e *domain.BookingEvent) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, e)
	return nil
}

type stubDedup struct {
	dupResult bool
	dupErr    error
	markErr   error
	marked    []string
}

func (d *stubDedup) IsDuplicate(_ context.Context, _ string) (bool, error) {
	return d.dupResult, d.dupErr
}

func (d *stubDedup) Mark(_ context.Context, eventID string) error {
	if d.markErr != nil {
		return d.markErr
	}
	d.marked = append(d.marked, eventID)
	return nil
}

type stubRevocations struct {
	revoked map[string]time.Time
	err     error
}

func (r *stubRevocations) Revoke(_ context.Context, tokenID string, until time.Time) error {
	if r.err != nil {
		return r.err
	}
	if r.revoked == nil {
		r.revoked = make(map[string]time.Time)
	}
	r.revoked[tokenID] = until
	return nil
}

func (r *stubRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, ok := r.revoked[tokenID]
	return ok, r.err
}

var errStorage = errors.New("storage unavailable")
