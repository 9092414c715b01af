package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/staybook/booking-api/internal/core/domain"
	"github.com/staybook/booking-api/internal/core/ports"
	"github.com/staybook/booking-api/internal/core/service"
)

var (
	_ ports.BookingEventRepository = (*EventRepo)(nil)
	_ ports.RevocationStore        = (*Revocations)(nil)
	_ service.DedupChecker         = (*Dedup)(nil)
)

// EventRepo keeps the booking audit trail in memory.
type EventRepo struct {
	mu     sync.RWMutex
	events []domain.BookingEvent
}

func NewEventRepo() *EventRepo {
	return &EventRepo{}
}

func (r *EventRepo) Insert(_ context.Context, event *domain.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *EventRepo) ListByHousing(_ context.Context, housingID uuid.UUID, limit int) ([]*domain.BookingEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Walk newest insert first so equal timestamps keep that order after the stable sort.
	var out []*domain.BookingEvent
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].HousingID == housingID {
			e := r.events[i]
			out = append(out, &e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Dedup remembers processed event IDs for ttl. Expired IDs are swept on
// Mark at most once per ttl.
type Dedup struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewDedup(ttl time.Duration) *Dedup {
	return &Dedup{seen: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (d *Dedup) IsDuplicate(_ context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.seen[eventID]
	if !ok {
		return false, nil
	}
	if d.now().After(exp) {
		delete(d.seen, eventID)
		return false, nil
	}
	return true, nil
}

func (d *Dedup) Mark(_ context.Context, eventID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if now.Sub(d.lastSweep) >= d.ttl {
		sweep(d.seen, now)
		d.lastSweep = now
	}
	d.seen[eventID] = now.Add(d.ttl)
	return nil
}

func (d *Dedup) size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

const revocationSweepInterval = time.Minute

// Revocations tracks revoked access-token IDs until their expiry.
type Revocations struct {
	mu        sync.Mutex
	revoked   map[string]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func NewRevocations() *Revocations {
	return &Revocations{revoked: make(map[string]time.Time), now: time.Now}
}

func (r *Revocations) Revoke(_ context.Context, tokenID string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if now.Sub(r.lastSweep) >= revocationSweepInterval {
		sweep(r.revoked, now)
		r.lastSweep = now
	}
	r.revoked[tokenID] = until
	return nil
}

func (r *Revocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !until.IsZero() && r.now().After(until) {
		delete(r.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

func (r *Revocations) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.revoked)
}

// sweep drops entries whose deadline has passed. A zero deadline never expires.
func sweep(deadlines map[string]time.Time, now time.Time) {
	for k, until := range deadlines {
		if !until.IsZero() && now.After(until) {
			delete(deadlines, k)
		}
	}
}
