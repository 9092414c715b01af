package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/staybook/booking-api/internal/api/middleware"
	"github.com/staybook/booking-api/internal/core/domain"
)

type stubHousingService struct {
	items     map[uuid.UUID]*domain.Housing
	bookErr   error
	lastUser  uuid.UUID
	lastLimit int
}

func newStubHousingService() *stubHousingService {
	return &stubHousingService{items: make(map[uuid.UUID]*domain.Housing)}
}

func (s *stubHousingService) add(name string) *domain.Housing {
	h := &domain.Housing{ID: uuid.New(), Name: name, Rooms: 2, Address: "X"}
	s.items[h.ID] = h
	return h
}

func (s *stubHousingService) List(context.Context) ([]*domain.Housing, error) {
	out := make([]*domain.Housing, 0, len(s.items))
	for _, h := range s.items {
		out = append(out, h)
	}
	return out, nil
}

func (s *stubHousingService) Get(_ context.Context, id uuid.UUID) (*domain.Housing, error) {
	h, ok := s.items[id]
	if !ok {
		return nil, domain.ErrHousingNotFound
	}
	return h, nil
}

func (s *stubHousingService) Create(_ context.Context, d domain.HousingDetails) (*domain.Housing, error) {
	h := &domain.Housing{ID: uuid.New()}
	h.Apply(d)
	s.items[h.ID] = h
	return h, nil
}

func (s *stubHousingService) Update(_ context.Context, id uuid.UUID, d domain.HousingDetails) (*domain.Housing, error) {
	h, ok := s.items[id]
	if !ok {
		return nil, domain.ErrHousingNotFound
	}
	h.Apply(d)
	return h, nil
}

func (s *stubHousingService) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.items[id]; !ok {
		return domain.ErrHousingNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *stubHousingService) Book(_ context.Context, id, userID uuid.UUID) (*domain.Housing, error) {
	s.lastUser = userID
	if s.bookErr != nil {
		return nil, s.bookErr
	}
	h, ok := s.items[id]
	if !ok {
		return nil, domain.ErrHousingNotFound
	}
	if err := h.AssignTo(userID); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *stubHousingService) UnBook(_ context.Context, id, userID uuid.UUID) (*domain.Housing, error) {
	s.lastUser = userID
	h, ok := s.items[id]
	if !ok {
		return nil, domain.ErrHousingNotFound
	}
	if err := h.Release(userID); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *stubHousingService) History(_ context.Context, id uuid.UUID, limit int) ([]*domain.BookingEvent, error) {
	s.lastLimit = limit
	if _, ok := s.items[id]; !ok {
		return nil, domain.ErrHousingNotFound
	}
	return []*domain.BookingEvent{{ID: uuid.New(), HousingID: id, Action: domain.ActionCreated}}, nil
}

func withPathID(c echo.Context, id string) {
	c.SetParamNames("id")
	c.SetParamValues(id)
}

func TestHousingHandler_Create(t *testing.T) {
	e := newTestEcho()
	svc := newStubHousingService()
	c, rec := jsonContext(e, http.MethodPost, "/api/housing", `{"name":"A","rooms":2,"address":"X"}`)

	if err := NewHousingHandler(svc).Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp housingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.IsBooked || resp.UserID != nil {
		t.Fatalf("new housing must be unbooked: %+v", resp)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/api/housing/"+resp.ID.String() {
		t.Fatalf("unexpected Location header %q", loc)
	}
}

func TestHousingHandler_Create_Validation(t *testing.T) {
	e := newTestEcho()
	c, _ := jsonContext(e, http.MethodPost, "/api/housing", `{"name":"A","rooms":0,"address":"X"}`)

	err := NewHousingHandler(newStubHousingService()).Create(c)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestHousingHandler_Get_BadID(t *testing.T) {
	e := newTestEcho()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	withPathID(c, "not-a-uuid")

	err := NewHousingHandler(newStubHousingService()).Get(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHousingHandler_Get_NotFound(t *testing.T) {
	e := newTestEcho()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	withPathID(c, uuid.NewString())

	if err := NewHousingHandler(newStubHousingService()).Get(c); !errors.Is(err, domain.ErrHousingNotFound) {
		t.Fatalf("expected ErrHousingNotFound, got %v", err)
	}
}

func TestHousingHandler_Book_UsesTokenSubject(t *testing.T) {
	e := newTestEcho()
	svc := newStubHousingService()
	h := svc.add("A")
	identity := &domain.Identity{UserID: uuid.New(), Role: domain.RoleUser}

	// A client-supplied owner in the body must be ignored.
	c, rec := jsonContext(e, http.MethodPut, "/", `{"userId":"`+uuid.NewString()+`"}`)
	withPathID(c, h.ID.String())
	middleware.WithIdentity(c, identity)

	if err := NewHousingHandler(svc).Book(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.lastUser != identity.UserID {
		t.Fatalf("book used %s, want token subject %s", svc.lastUser, identity.UserID)
	}

	var resp housingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !resp.IsBooked || resp.UserID == nil || *resp.UserID != identity.UserID {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHousingHandler_Book_RequiresIdentity(t *testing.T) {
	e := newTestEcho()
	svc := newStubHousingService()
	h := svc.add("A")
	c := e.NewContext(httptest.NewRequest(http.MethodPut, "/", nil), httptest.NewRecorder())
	withPathID(c, h.ID.String())

	err := NewHousingHandler(svc).Book(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestHousingHandler_UnBook_Forbidden(t *testing.T) {
	e := newTestEcho()
	svc := newStubHousingService()
	h := svc.add("A")
	_ = h.AssignTo(uuid.New())

	c := e.NewContext(httptest.NewRequest(http.MethodPut, "/", nil), httptest.NewRecorder())
	withPathID(c, h.ID.String())
	middleware.WithIdentity(c, &domain.Identity{UserID: uuid.New()})

	if err := NewHousingHandler(svc).UnBook(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestHousingHandler_Delete(t *testing.T) {
	e := newTestEcho()
	svc := newStubHousingService()
	h := svc.add("A")
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	withPathID(c, h.ID.String())

	if err := NewHousingHandler(svc).Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestHousingHandler_History_Limit(t *testing.T) {
	e := newTestEcho()
	svc := newStubHousingService()
	h := svc.add("A")

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=5", nil), rec)
	withPathID(c, h.ID.String())
	if err := NewHousingHandler(svc).History(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if svc.lastLimit != 5 {
		t.Fatalf("expected limit 5, got %d", svc.lastLimit)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=abc", nil), httptest.NewRecorder())
	withPathID(c, h.ID.String())
	err := NewHousingHandler(svc).History(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
