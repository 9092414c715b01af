package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/staybook/booking-api/internal/core/domain"
	"github.com/staybook/booking-api/internal/core/ports"
)

func newHousingSvc(store *stubStore, sink *stubSink) ports.HousingService {
	return NewHousingService(stubHousingRepo{s: store}, store, &stubEventRepo{}, sink, zerolog.Nop())
}

// assertLinked checks both sides of the occupancy invariant.
func assertLinked(t *testing.T, store *stubStore, housingID uuid.UUID, userID *uuid.UUID) {
	t.Helper()
	h := store.housings[housingID]
	if h == nil {
		t.Fatalf("housing %s missing", housingID)
	}
	if h.IsBooked != (h.UserID != nil) {
		t.Fatalf("IsBooked=%v disagrees with UserID=%v", h.IsBooked, h.UserID)
	}
	if userID == nil {
		if h.UserID != nil {
			t.Fatalf("expected housing unbooked, owner is %s", *h.UserID)
		}
		for _, u := range store.users {
			if u.HousingID != nil && *u.HousingID == housingID {
				t.Fatalf("user %s still points at housing", u.ID)
			}
		}
		return
	}
	if h.UserID == nil || *h.UserID != *userID {
		t.Fatalf("expected owner %s, got %v", *userID, h.UserID)
	}
	u := store.users[*userID]
	if u == nil || u.HousingID == nil || *u.HousingID != housingID {
		t.Fatalf("user %s does not point back at housing %s", *userID, housingID)
	}
}

func TestHousingService_Create_Unbooked(t *testing.T) {
	store := newStubStore()
	sink := &stubSink{}
	svc := newHousingSvc(store, sink)

	h, err := svc.Create(context.Background(), domain.HousingDetails{Name: "A", Rooms: 2, Address: "X"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if h.IsBooked || h.UserID != nil {
		t.Fatalf("expected unbooked housing, got %+v", h)
	}
	if h.ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}
	if got := sink.actions(); len(got) != 1 || got[0] != domain.ActionCreated {
		t.Fatalf("expected created event, got %v", got)
	}
}

func TestHousingService_Create_RepoError(t *testing.T) {
	store := newStubStore()
	store.createErr = errStorage
	sink := &stubSink{}
	svc := newHousingSvc(store, sink)

	if _, err := svc.Create(context.Background(), domain.HousingDetails{Name: "A", Rooms: 1, Address: "X"}); !errors.Is(err, errStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if len(sink.actions()) != 0 {
		t.Fatalf("no event expected on failure")
	}
}

func TestHousingService_Get_NotFound(t *testing.T) {
	svc := newHousingSvc(newStubStore(), &stubSink{})

	if _, err := svc.Get(context.Background(), uuid.New()); !errors.Is(err, domain.ErrHousingNotFound) {
		t.Fatalf("expected ErrHousingNotFound, got %v", err)
	}
}

func TestHousingService_Update_KeepsOccupancy(t *testing.T) {
	store := newStubStore()
	svc := newHousingSvc(store, &stubSink{})
	h := store.addHousing("A")
	u := store.addUser("u1")

	if _, err := svc.Book(context.Background(), h.ID, u.ID); err != nil {
		t.Fatalf("Book: %v", err)
	}

	updated, err := svc.Update(context.Background(), h.ID, domain.HousingDetails{Name: "B", Description: "d", Rooms: 3, Address: "Y"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "B" || updated.Rooms != 3 || updated.Address != "Y" || updated.Description != "d" {
		t.Fatalf("fields not overwritten: %+v", updated)
	}
	assertLinked(t, store, h.ID, &u.ID)
}

func TestHousingService_Update_NotFound(t *testing.T) {
	svc := newHousingSvc(newStubStore(), &stubSink{})

	_, err := svc.Update(context.Background(), uuid.New(), domain.HousingDetails{Name: "B", Rooms: 1, Address: "Y"})
	if !errors.Is(err, domain.ErrHousingNotFound) {
		t.Fatalf("expected ErrHousingNotFound, got %v", err)
	}
}

func TestHousingService_Book_Success(t *testing.T) {
	store := newStubStore()
	sink := &stubSink{}
	svc := newHousingSvc(store, sink)
	h := store.addHousing("A")
	u := store.addUser("u1")

	booked, err := svc.Book(context.Background(), h.ID, u.ID)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if !booked.IsBooked || booked.UserID == nil || *booked.UserID != u.ID {
		t.Fatalf("unexpected result: %+v", booked)
	}
	assertLinked(t, store, h.ID, &u.ID)
	if got := sink.actions(); len(got) != 1 || got[0] != domain.ActionBooked {
		t.Fatalf("expected booked event, got %v", got)
	}
}

func TestHousingService_BookAndUnBook_ReturnStoredRow(t *testing.T) {
	store := newStubStore()
	svc := newHousingSvc(store, &stubSink{})
	h := store.addHousing("A")
	u := store.addUser("u1")
	stale := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	store.housings[h.ID].UpdatedAt = stale

	booked, err := svc.Book(context.Background(), h.ID, u.ID)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if !booked.UpdatedAt.After(stale) || !booked.UpdatedAt.Equal(store.housings[h.ID].UpdatedAt) {
		t.Fatalf("Book returned UpdatedAt %v, stored %v", booked.UpdatedAt, store.housings[h.ID].UpdatedAt)
	}

	store.housings[h.ID].UpdatedAt = stale
	released, err := svc.UnBook(context.Background(), h.ID, u.ID)
	if err != nil {
		t.Fatalf("UnBook: %v", err)
	}
	if released.IsBooked || released.UserID != nil {
		t.Fatalf("expected unbooked result, got %+v", released)
	}
	if !released.UpdatedAt.After(stale) || !released.UpdatedAt.Equal(store.housings[h.ID].UpdatedAt) {
		t.Fatalf("UnBook returned UpdatedAt %v, stored %v", released.UpdatedAt, store.housings[h.ID].UpdatedAt)
	}
}

func TestHousingService_Book_NotFound(t *testing.T) {
	store := newStubStore()
	svc := newHousingSvc(store, &stubSink{})
	u := store.addUser("u1")

	if _, err := svc.Book(context.Background(), uuid.New(), u.ID); !errors.Is(err, domain.ErrHousingNotFound) {
		t.Fatalf("expected ErrHousingNotFound, got %v", err)
	}
}

func TestHousingService_Book_AlreadyBooked(t *testing.T) {
	store := newStubStore()
	svc := newHousingSvc(store, &stubSink{})
	h := store.addHousing("A")
	u1 := store.addUser("u1")
	u2 := store.addUser("u2")

	if _, err := svc.Book(context.Background(), h.ID, u1.ID); err != nil {
		t.Fatalf("Book: %v", err)
	}
	if _, err := svc.Book(context.Background(), h.ID, u2.ID); !errors.Is(err, domain.ErrHousingAlreadyBooked) {
		t.Fatalf("expected ErrHousingAlreadyBooked, got %v", err)
	}
	assertLinked(t, store, h.ID, &u1.ID)
	if store.users[u2.ID].HousingID != nil {
		t.Fatalf("second user must not be linked")
	}
}

func TestHousingService_Book_UserAlreadyHoldsHousing(t *testing.T) {
	store := newStubStore()
	svc := newHousingSvc(store, &stubSink{})
	h1 := store.addHousing("A")
	h2 := store.addHousing("B")
	u := store.addUser("u1")

	if _, err := svc.Book(context.Background(), h1.ID, u.ID); err != nil {
		t.Fatalf("Book: %v", err)
	}
	if _, err := svc.Book(context.Background(), h2.ID, u.ID); !errors.Is(err, domain.ErrUserAlreadyHasHousing) {
		t.Fatalf("expected ErrUserAlreadyHasHousing, got %v", err)
	}
	assertLinked(t, store, h1.ID, &u.ID)
	assertLinked(t, store, h2.ID, nil)
}

func TestHousingService_Book_UnknownUser(t *testing.T) {
	store := newStubStore()
	sink := &stubSink{}
	svc := newHousingSvc(store, sink)
	h := store.addHousing("A")

	if _, err := svc.Book(context.Background(), h.ID, uuid.New()); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	assertLinked(t, store, h.ID, nil)
	if len(sink.actions()) != 0 {
		t.Fatalf("no event expected on failure")
	}
}

func TestHousingService_Book_ConcurrentSingleWinner(t *testing.T) {
	store := newStubStore()
	svc := newHousingSvc(store, &stubSink{})
	h := store.addHousing("A")

	const n = 16
	users := make([]*domain.User, n)
	for i := range users {
		users[i] = store.addUser("u" + string(rune('a'+i)))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
		winner    uuid.UUID
	)
	for _, u := range users {
		wg.Add(1)
		go func(u *domain.User) {
			defer wg.Done()
			_, err := svc.Book(context.Background(), h.ID, u.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
				winner = u.ID
			case errors.Is(err, domain.ErrHousingAlreadyBooked):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(u)
	}
	wg.Wait()

	if wins != 1 || conflicts != n-1 {
		t.Fatalf("expected 1 win and %d conflicts, got %d and %d", n-1, wins, conflicts)
	}
	assertLinked(t, store, h.ID, &winner)
}

func TestHousingService_Book_TransactionError(t *testing.T) {
	store := newStubStore()
	store.txErr = errStorage
	svc := newHousingSvc(store, &stubSink{})
	h := store.addHousing("A")
	u := store.addUser("u1")

	if _, err := svc.Book(context.Background(), h.ID, u.ID); !errors.Is(err, errStorage) {
		t.Fatalf("expected storage error to propagate, got %v", err)
	}
}

func TestHousingService_UnBook_ByOtherUserForbidden(t *testing.T) {
	store := newStubStore()
	svc := newHousingSvc(store, &stubSink{})
	h := store.addHousing("A")
	u1 := store.addUser("u1")
	u2 := store.addUser("u2")

	if _, err := svc.Book(context.Background(), h.ID, u1.ID); err != nil {
		t.Fatalf("Book: %v", err)
	}
	if _, err := svc.UnBook(context.Background(), h.ID, u2.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	assertLinked(t, store, h.ID, &u1.ID)
}

func TestHousingService_UnBook_NotBooked(t *testing.T) {
	store := newStubStore()
	svc := newHousingSvc(store, &stubSink{})
	h := store.addHousing("A")
	u := store.addUser("u1")

	if _, err := svc.UnBook(context.Background(), h.ID, u.ID); !errors.Is(err, domain.ErrHousingNotBooked) {
		t.Fatalf("expected ErrHousingNotBooked, got %v", err)
	}
}

func TestHousingService_UnBook_NotFound(t *testing.T) {
	svc := newHousingSvc(newStubStore(), &stubSink{})

	if _, err := svc.UnBook(context.Background(), uuid.New(), uuid.New()); !errors.Is(err, domain.ErrHousingNotFound) {
		t.Fatalf("expected ErrHousingNotFound, got %v", err)
	}
}

func TestHousingService_UnBook_OwnerRowMissing(t *testing.T) {
	store := newStubStore()
	svc := newHousingSvc(store, &stubSink{})
	h := store.addHousing("A")
	ghost := uuid.New()
	store.housings[h.ID].UserID = &ghost
	store.housings[h.ID].IsBooked = true

	if _, err := svc.UnBook(context.Background(), h.ID, ghost); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if !store.housings[h.ID].IsBooked {
		t.Fatalf("housing must stay booked")
	}
}

func TestHousingService_Delete_ReleasesOwner(t *testing.T) {
	store := newStubStore()
	sink := &stubSink{}
	svc := newHousingSvc(store, sink)
	h := store.addHousing("A")
	u := store.addUser("u1")

	if _, err := svc.Book(context.Background(), h.ID, u.ID); err != nil {
		t.Fatalf("Book: %v", err)
	}
	if err := svc.Delete(context.Background(), h.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := store.housings[h.ID]; ok {
		t.Fatalf("housing should be gone")
	}
	if store.users[u.ID].HousingID != nil {
		t.Fatalf("owner pointer should be cleared")
	}
	got := sink.actions()
	if len(got) != 2 || got[1] != domain.ActionDeleted {
		t.Fatalf("expected booked then deleted events, got %v", got)
	}
}

func TestHousingService_Delete_NotFound(t *testing.T) {
	svc := newHousingSvc(newStubStore(), &stubSink{})

	if err := svc.Delete(context.Background(), uuid.New()); !errors.Is(err, domain.ErrHousingNotFound) {
		t.Fatalf("expected ErrHousingNotFound, got %v", err)
	}
}

func TestHousingService_Delete_MissingOwnerIsInconsistent(t *testing.T) {
	store := newStubStore()
	svc := newHousingSvc(store, &stubSink{})
	h := store.addHousing("A")
	ghost := uuid.New()
	store.housings[h.ID].UserID = &ghost
	store.housings[h.ID].IsBooked = true

	if err := svc.Delete(context.Background(), h.ID); !errors.Is(err, domain.ErrInconsistentState) {
		t.Fatalf("expected ErrInconsistentState, got %v", err)
	}
	if _, ok := store.housings[h.ID]; !ok {
		t.Fatalf("housing must not be deleted")
	}
}

func TestHousingService_EnqueueFailureIsNonFatal(t *testing.T) {
	store := newStubStore()
	svc := newHousingSvc(store, &stubSink{err: errors.New("queue full")})
	h := store.addHousing("A")
	u := store.addUser("u1")

	if _, err := svc.Book(context.Background(), h.ID, u.ID); err != nil {
		t.Fatalf("expected enqueue failure to be non-fatal, got %v", err)
	}
	assertLinked(t, store, h.ID, &u.ID)
}

func TestHousingService_History(t *testing.T) {
	store := newStubStore()
	repo := &stubEventRepo{}
	svc := NewHousingService(stubHousingRepo{s: store}, store, repo, &stubSink{}, zerolog.Nop())
	h := store.addHousing("A")
	other := uuid.New()
	_ = repo.Insert(context.Background(), &domain.BookingEvent{ID: uuid.New(), HousingID: h.ID, Action: domain.ActionCreated})
	_ = repo.Insert(context.Background(), &domain.BookingEvent{ID: uuid.New(), HousingID: other, Action: domain.ActionCreated})
	_ = repo.Insert(context.Background(), &domain.BookingEvent{ID: uuid.New(), HousingID: h.ID, Action: domain.ActionBooked})

	events, err := svc.History(context.Background(), h.ID, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(events) != 2 || events[0].Action != domain.ActionBooked {
		t.Fatalf("expected 2 events newest first, got %+v", events)
	}

	if _, err := svc.History(context.Background(), uuid.New(), 10); !errors.Is(err, domain.ErrHousingNotFound) {
		t.Fatalf("expected ErrHousingNotFound, got %v", err)
	}
}

// Create → Book U1 → Book U2 (conflict) → UnBook U2 (forbidden) → UnBook U1.
func TestHousingService_BookingScenario(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	svc := newHousingSvc(store, &stubSink{})
	u1 := store.addUser("u1")
	u2 := store.addUser("u2")

	h, err := svc.Create(ctx, domain.HousingDetails{Name: "A", Rooms: 2, Address: "X"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if h.IsBooked || h.UserID != nil {
		t.Fatalf("new housing must be unbooked")
	}

	booked, err := svc.Book(ctx, h.ID, u1.ID)
	if err != nil {
		t.Fatalf("Book u1: %v", err)
	}
	if !booked.IsBooked || *booked.UserID != u1.ID {
		t.Fatalf("expected booked by u1, got %+v", booked)
	}

	if _, err := svc.Book(ctx, h.ID, u2.ID); !errors.Is(err, domain.ErrHousingAlreadyBooked) {
		t.Fatalf("Book u2: expected conflict, got %v", err)
	}
	if _, err := svc.UnBook(ctx, h.ID, u2.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("UnBook u2: expected forbidden, got %v", err)
	}

	released, err := svc.UnBook(ctx, h.ID, u1.ID)
	if err != nil {
		t.Fatalf("UnBook u1: %v", err)
	}
	if released.IsBooked || released.UserID != nil {
		t.Fatalf("expected unbooked, got %+v", released)
	}
	assertLinked(t, store, h.ID, nil)
	if store.users[u1.ID].HousingID != nil {
		t.Fatalf("u1 housing reference must be cleared")
	}
}
