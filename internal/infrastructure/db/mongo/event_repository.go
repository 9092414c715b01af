package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/staybook/booking-api/internal/core/domain"
	"github.com/staybook/booking-api/internal/core/ports"
)

const eventsCollection = "booking_events"

// eventDocument is the stored shape of a booking event. UUIDs are kept as
// strings so the collection stays readable from the mongo shell.
type eventDocument struct {
	ID         string `bson:"_id"`
	HousingID  string `bson:"housing_id"`
	UserID     string `bson:"user_id,omitempty"`
	Action     string `bson:"action"`
	OccurredAt int64  `bson:"occurred_at"`
}

// EventRepository implements ports.BookingEventRepository using MongoDB.
type EventRepository struct {
	coll *mongo.Collection
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{coll: db.Collection(eventsCollection)}
}

var _ ports.BookingEventRepository = (*EventRepository)(nil)

// EnsureIndexes creates the history lookup index. Safe to call on every start.
func (r *EventRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "housing_id", Value: 1}, {Key: "occurred_at", Value: -1}},
		Options: options.Index().SetName("housing_id_occurred_at"),
	})
	if err != nil {
		return fmt.Errorf("mongo ensure indexes: %w", err)
	}
	return nil
}

// Insert persists an event. Re-inserting the same event ID is a no-op so a
// redelivered event does not fail processing.
func (r *EventRepository) Insert(ctx context.Context, event *domain.BookingEvent) error {
	_, err := r.coll.InsertOne(ctx, toDocument(event))
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mongo insert event: %w", err)
	}
	return nil
}

func (r *EventRepository) ListByHousing(ctx context.Context, housingID uuid.UUID, limit int) ([]*domain.BookingEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, bson.M{"housing_id": housingID.String()}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find events: %w", err)
	}
	defer cur.Close(ctx)

	var docs []eventDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode events: %w", err)
	}

	out := make([]*domain.BookingEvent, 0, len(docs))
	for i := range docs {
		e, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func toDocument(e *domain.BookingEvent) eventDocument {
	doc := eventDocument{
		ID:         e.ID.String(),
		HousingID:  e.HousingID.String(),
		Action:     string(e.Action),
		OccurredAt: e.OccurredAt.UTC().UnixMilli(),
	}
	if e.UserID != nil {
		doc.UserID = e.UserID.String()
	}
	return doc
}

func (d eventDocument) toDomain() (*domain.BookingEvent, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("mongo event id %q: %w", d.ID, err)
	}
	housingID, err := uuid.Parse(d.HousingID)
	if err != nil {
		return nil, fmt.Errorf("mongo event housing_id %q: %w", d.HousingID, err)
	}
	e := &domain.BookingEvent{
		ID:         id,
		HousingID:  housingID,
		Action:     domain.BookingAction(d.Action),
		OccurredAt: time.UnixMilli(d.OccurredAt).UTC(),
	}
	if d.UserID != "" {
		userID, err := uuid.Parse(d.UserID)
		if err != nil {
			return nil, fmt.Errorf("mongo event user_id %q: %w", d.UserID, err)
		}
		e.UserID = &userID
	}
	return e, nil
}
