package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/staybook/booking-api/internal/api/metrics"
	"github.com/staybook/booking-api/internal/core/domain"
	"github.com/staybook/booking-api/internal/core/ports"
)

// DedupChecker abstracts the idempotency store (Redis).
type DedupChecker interface {
	IsDuplicate(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type eventService struct {
	repo      ports.BookingEventRepository
	publisher ports.EventPublisher
	dedup     DedupChecker
	log       zerolog.Logger
}

// NewEventService returns an EventService implementation.
func NewEventService(
	repo ports.BookingEventRepository,
	publisher ports.EventPublisher,
	dedup DedupChecker,
	log zerolog.Logger,
) ports.EventService {
	return &eventService{
		repo:      repo,
		publisher: publisher,
		dedup:     dedup,
		log:       log,
	}
}

// Process deduplicates, records and publishes a single booking event.
func (s *eventService) Process(ctx context.Context, event domain.BookingEvent) error {
	start := time.Now()
	id := event.ID.String()

	// 1. Idempotency check: silently skip duplicates.
	isDup, err := s.dedup.IsDuplicate(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("event_id", id).Msg("dedup check failed, processing anyway")
	} else if isDup {
		metrics.EventsDedupTotal.WithLabelValues("hit").Inc()
		s.log.Debug().Str("event_id", id).Msg("duplicate event skipped")
		return nil
	}
	metrics.EventsDedupTotal.WithLabelValues("miss").Inc()

	// 2. Audit trail. Without it there is nothing to publish from, so this is the one fatal step.
	if err := s.repo.Insert(ctx, &event); err != nil {
		metrics.EventsErrorsTotal.WithLabelValues("persist_failed").Inc()
		return fmt.Errorf("process event: insert: %w", err)
	}

	// 3. Mark as processed once persisted.
	if err := s.dedup.Mark(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("event_id", id).Msg("failed to set dedup key")
	}

	// 4. Downstream publish (non-fatal).
	if err := s.publisher.Publish(ctx, &event); err != nil {
		metrics.EventsErrorsTotal.WithLabelValues("publish_failed").Inc()
		s.log.Warn().Err(err).Str("event_id", id).Msg("failed to publish booking event")
	}

	metrics.EventsProcessedTotal.WithLabelValues(string(event.Action)).Inc()
	metrics.EventProcessingDuration.WithLabelValues(string(event.Action)).Observe(time.Since(start).Seconds())

	s.log.Info().
		Str("event_id", id).
		Str("housing_id", event.HousingID.String()).
		Str("action", string(event.Action)).
		Msg("event processed")

	return nil
}
