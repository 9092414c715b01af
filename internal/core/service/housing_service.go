package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/staybook/booking-api/internal/api/metrics"
	"github.com/staybook/booking-api/internal/core/domain"
	"github.com/staybook/booking-api/internal/core/ports"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type housingService struct {
	housings ports.HousingRepository
	tx       ports.TransactionManager
	history  ports.BookingEventRepository
	events   ports.EventSink
	log      zerolog.Logger
	now      func() time.Time
}

// NewHousingService returns the booking state machine.
func NewHousingService(
	housings ports.HousingRepository,
	tx ports.TransactionManager,
	history ports.BookingEventRepository,
	events ports.EventSink,
	log zerolog.Logger,
) ports.HousingService {
	return &housingService{
		housings: housings,
		tx:       tx,
		history:  history,
		events:   events,
		log:      log,
		now:      time.Now,
	}
}

func (s *housingService) List(ctx context.Context) ([]*domain.Housing, error) {
	items, err := s.housings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list housings: %w", err)
	}
	return items, nil
}

func (s *housingService) Get(ctx context.Context, id uuid.UUID) (*domain.Housing, error) {
	h, err := s.housings.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get housing: %w", err)
	}
	return h, nil
}

// Create always yields an unbooked housing.
func (s *housingService) Create(ctx context.Context, d domain.HousingDetails) (*domain.Housing, error) {
	now := s.now().UTC()
	h := &domain.Housing{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	h.Apply(d)

	if err := s.housings.Create(ctx, h); err != nil {
		countBooking("create", err)
		return nil, fmt.Errorf("create housing: %w", err)
	}

	countBooking("create", nil)
	s.emit(h.ID, nil, domain.ActionCreated)
	return h, nil
}

func (s *housingService) Update(ctx context.Context, id uuid.UUID, d domain.HousingDetails) (*domain.Housing, error) {
	h, err := s.housings.UpdateDetails(ctx, id, d)
	if err != nil {
		countBooking("update", err)
		return nil, fmt.Errorf("update housing: %w", err)
	}

	countBooking("update", nil)
	s.emit(h.ID, h.UserID, domain.ActionUpdated)
	return h, nil
}

// Delete releases the occupant, if any, and removes the housing in the same
// transaction. A booked housing whose owner row is missing is reported as
// ErrInconsistentState rather than silently deleted.
func (s *housingService) Delete(ctx context.Context, id uuid.UUID) error {
	var owner *uuid.UUID

	err := s.tx.Execute(ctx, func(tx ports.Tx) error {
		h, err := tx.LockHousing(ctx, id)
		if err != nil {
			return err
		}

		if h.UserID != nil {
			u, err := tx.LockUser(ctx, *h.UserID)
			if errors.Is(err, domain.ErrUserNotFound) {
				return fmt.Errorf("%w: housing %s is booked by missing user %s", domain.ErrInconsistentState, h.ID, *h.UserID)
			}
			if err != nil {
				return err
			}
			if err := tx.Unlink(ctx, h.ID, u.ID); err != nil {
				return err
			}
			owner = &u.ID
		}

		return tx.DeleteHousing(ctx, h.ID)
	})
	if err != nil {
		countBooking("delete", err)
		return fmt.Errorf("delete housing: %w", err)
	}

	countBooking("delete", nil)
	s.emit(id, owner, domain.ActionDeleted)
	return nil
}

// Book moves an unbooked housing to Booked(userID) and points the user at it.
func (s *housingService) Book(ctx context.Context, id, userID uuid.UUID) (*domain.Housing, error) {
	var booked *domain.Housing

	err := s.tx.Execute(ctx, func(tx ports.Tx) error {
		h, err := tx.LockHousing(ctx, id)
		if err != nil {
			return err
		}
		if h.IsBooked || h.UserID != nil {
			return domain.ErrHousingAlreadyBooked
		}

		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		if u.HoldsHousing() {
			return domain.ErrUserAlreadyHasHousing
		}

		if err := h.AssignTo(u.ID); err != nil {
			return err
		}
		if err := tx.Link(ctx, h.ID, u.ID); err != nil {
			return err
		}
		booked, err = tx.LockHousing(ctx, h.ID)
		return err
	})
	if err != nil {
		countBooking("book", err)
		return nil, fmt.Errorf("book housing: %w", err)
	}

	countBooking("book", nil)
	s.log.Info().Str("housing_id", id.String()).Str("user_id", userID.String()).Msg("housing booked")
	s.emit(id, &userID, domain.ActionBooked)
	return booked, nil
}

// UnBook releases a housing. Only the current occupant may do so.
func (s *housingService) UnBook(ctx context.Context, id, userID uuid.UUID) (*domain.Housing, error) {
	var released *domain.Housing

	err := s.tx.Execute(ctx, func(tx ports.Tx) error {
		h, err := tx.LockHousing(ctx, id)
		if err != nil {
			return err
		}
		if h.UserID == nil {
			return domain.ErrHousingNotBooked
		}
		if !h.BookedBy(userID) {
			return domain.ErrForbidden
		}

		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}

		if err := h.Release(u.ID); err != nil {
			return err
		}
		if err := tx.Unlink(ctx, h.ID, u.ID); err != nil {
			return err
		}
		released, err = tx.LockHousing(ctx, h.ID)
		return err
	})
	if err != nil {
		countBooking("unbook", err)
		return nil, fmt.Errorf("unbook housing: %w", err)
	}

	countBooking("unbook", nil)
	s.log.Info().Str("housing_id", id.String()).Str("user_id", userID.String()).Msg("housing released")
	s.emit(id, &userID, domain.ActionUnbooked)
	return released, nil
}

func (s *housingService) History(ctx context.Context, id uuid.UUID, limit int) ([]*domain.BookingEvent, error) {
	if _, err := s.housings.FindByID(ctx, id); err != nil {
		return nil, fmt.Errorf("housing history: %w", err)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	events, err := s.history.ListByHousing(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("housing history: %w", err)
	}
	return events, nil
}

// emit hands a committed mutation to the event pipeline. It never fails the
// request: the state change is already durable.
func (s *housingService) emit(housingID uuid.UUID, userID *uuid.UUID, action domain.BookingAction) {
	if s.events == nil {
		return
	}
	event := domain.BookingEvent{
		ID:         uuid.New(),
		HousingID:  housingID,
		UserID:     userID,
		Action:     action,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Enqueue(event); err != nil {
		s.log.Warn().Err(err).
			Str("housing_id", housingID.String()).
			Str("action", string(action)).
			Msg("booking event dropped")
	}
}

func countBooking(op string, err error) {
	metrics.BookingOperationsTotal.WithLabelValues(op, outcomeOf(err)).Inc()
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrHousingNotFound), errors.Is(err, domain.ErrUserNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrHousingAlreadyBooked),
		errors.Is(err, domain.ErrUserAlreadyHasHousing),
		errors.Is(err, domain.ErrHousingNotBooked),
		errors.Is(err, domain.ErrInconsistentState):
		return "conflict"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}
