// Package memory is an in-process domain.Store. One lock serializes every
// unit of work, which is stricter than the per-event row lock the postgres
// store takes and keeps the same observable ordering.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/terpspark/admission-service/internal/contracts/messages"
	"github.com/terpspark/admission-service/internal/domain"
)

// OutboxMessage is a message enqueued by a committed unit of work.
type OutboxMessage struct {
	MessageID  uuid.UUID
	TraceID    string
	RoutingKey string
	Payload    []byte
	OccurredAt time.Time
}

type Store struct {
	sem chan struct{}
	st  *state
}

type state struct {
	events        map[uuid.UUID]domain.Event
	registrations map[uuid.UUID]domain.Registration
	waitlist      map[uuid.UUID]domain.WaitlistEntry
	approvals     map[uuid.UUID]domain.ApprovalRequest
	categories    map[uuid.UUID]domain.Category
	venues        map[uuid.UUID]domain.Venue
	processed     map[string]struct{}
	audit         []domain.AuditLogEntry
	outbox        []OutboxMessage
}

func New() *Store {
	return &Store{
		sem: make(chan struct{}, 1),
		st:  &state{
			events:        map[uuid.UUID]domain.Event{},
			registrations: map[uuid.UUID]domain.Registration{},
			waitlist:      map[uuid.UUID]domain.WaitlistEntry{},
			approvals:     map[uuid.UUID]domain.ApprovalRequest{},
			categories:    map[uuid.UUID]domain.Category{},
			venues:        map[uuid.UUID]domain.Venue{},
			processed:     map[string]struct{}{},
		},
	}
}

var _ domain.Store = (*Store)(nil)

func (s *Store) lock(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) unlock() { <-s.sem }

// Atomic runs fn under the store lock. Any error, or a context that ends
// before fn returns, rolls back every write fn made.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	t := &tx{state: s.st}
	err := fn(ctx, t)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		t.rollback()
		return err
	}
	return nil
}

// Outbox returns a copy of every committed outbound message.
func (s *Store) Outbox() []OutboxMessage {
	s.sem <- struct{}{}
	defer s.unlock()
	out := make([]OutboxMessage, len(s.st.outbox))
	copy(out, s.st.outbox)
	return out
}

type tx struct {
	*state
	undo []func()
}

var _ domain.Tx = (*tx)(nil)

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// remember records the current value of m[k] so rollback can restore it.
func remember[K comparable, V any](t *tx, m map[K]V, k K) {
	old, had := m[k]
	t.undo = append(t.undo, func() {
		if had {
			m[k] = old
		} else {
			delete(m, k)
		}
	})
}

func (t *tx) LockEvent(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	return t.GetEvent(ctx, id)
}

func (t *tx) LockApproval(ctx context.Context, id uuid.UUID) (domain.ApprovalRequest, error) {
	return t.GetApproval(ctx, id)
}

func (t *tx) InsertEvent(_ context.Context, e domain.Event) error {
	if _, ok := t.events[e.ID]; ok {
		return fmt.Errorf("insert event %s: duplicate id", e.ID)
	}
	remember(t, t.events, e.ID)
	t.events[e.ID] = e
	return nil
}

func (t *tx) UpdateEvent(_ context.Context, e domain.Event) error {
	if _, ok := t.events[e.ID]; !ok {
		return domain.ErrEventNotFound
	}
	remember(t, t.events, e.ID)
	t.events[e.ID] = e
	return nil
}

func (t *tx) InsertRegistration(_ context.Context, r domain.Registration) error {
	for _, x := range t.registrations {
		if x.EventID == r.EventID && x.UserID == r.UserID && x.Status == domain.RegistrationConfirmed &&
			r.Status == domain.RegistrationConfirmed {
			return fmt.Errorf("insert registration: %w", domain.ErrAlreadyRegistered)
		}
	}
	remember(t, t.registrations, r.ID)
	t.registrations[r.ID] = cloneRegistration(r)
	return nil
}

func (t *tx) UpdateRegistration(_ context.Context, r domain.Registration) error {
	if _, ok := t.registrations[r.ID]; !ok {
		return domain.ErrNotFound
	}
	remember(t, t.registrations, r.ID)
	t.registrations[r.ID] = cloneRegistration(r)
	return nil
}

func (t *tx) InsertWaitlistEntry(_ context.Context, w domain.WaitlistEntry) error {
	for _, x := range t.waitlist {
		if x.EventID == w.EventID && x.UserID == w.UserID {
			return fmt.Errorf("insert waitlist entry: %w", domain.ErrAlreadyWaitlisted)
		}
	}
	remember(t, t.waitlist, w.ID)
	t.waitlist[w.ID] = w
	return nil
}

func (t *tx) DeleteWaitlistEntry(_ context.Context, id uuid.UUID) error {
	if _, ok := t.waitlist[id]; !ok {
		return domain.ErrNotFound
	}
	remember(t, t.waitlist, id)
	delete(t.waitlist, id)
	return nil
}

func (t *tx) SetWaitlistPositions(_ context.Context, changes []domain.PositionChange) error {
	for _, c := range changes {
		w, ok := t.waitlist[c.ID]
		if !ok {
			return domain.ErrNotFound
		}
		remember(t, t.waitlist, c.ID)
		w.Position = c.Position
		t.waitlist[c.ID] = w
	}
	return nil
}

func (t *tx) InsertApproval(_ context.Context, a domain.ApprovalRequest) error {
	remember(t, t.approvals, a.ID)
	t.approvals[a.ID] = a
	return nil
}

func (t *tx) UpdateApproval(_ context.Context, a domain.ApprovalRequest) error {
	if _, ok := t.approvals[a.ID]; !ok {
		return domain.ErrNotFound
	}
	remember(t, t.approvals, a.ID)
	t.approvals[a.ID] = a
	return nil
}

func (t *tx) InsertCategory(_ context.Context, c domain.Category) error {
	for _, x := range t.categories {
		if x.Slug == c.Slug {
			return domain.Invalid("slug", "already in use")
		}
	}
	remember(t, t.categories, c.ID)
	t.categories[c.ID] = c
	return nil
}

func (t *tx) UpdateCategory(_ context.Context, c domain.Category) error {
	if _, ok := t.categories[c.ID]; !ok {
		return domain.ErrNotFound
	}
	remember(t, t.categories, c.ID)
	t.categories[c.ID] = c
	return nil
}

func (t *tx) InsertVenue(_ context.Context, v domain.Venue) error {
	remember(t, t.venues, v.ID)
	t.venues[v.ID] = v
	return nil
}

func (t *tx) UpdateVenue(_ context.Context, v domain.Venue) error {
	if _, ok := t.venues[v.ID]; !ok {
		return domain.ErrNotFound
	}
	remember(t, t.venues, v.ID)
	t.venues[v.ID] = v
	return nil
}

func (t *tx) AppendAudit(_ context.Context, e domain.AuditLogEntry) error {
	n := len(t.audit)
	t.undo = append(t.undo, func() { t.audit = t.audit[:n] })
	t.audit = append(t.audit, e)
	return nil
}

func (t *tx) Enqueue(_ context.Context, traceID, routingKey string, payload any) error {
	id := uuid.New()
	now := time.Now().UTC()
	b, err := json.Marshal(messages.New(id, traceID, now, payload))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", routingKey, err)
	}
	n := len(t.outbox)
	t.undo = append(t.undo, func() { t.outbox = t.outbox[:n] })
	t.outbox = append(t.outbox, OutboxMessage{
		MessageID:  id,
		TraceID:    traceID,
		RoutingKey: routingKey,
		Payload:    b,
		OccurredAt: now,
	})
	return nil
}

func (t *tx) MarkProcessed(_ context.Context, messageID, handler string) (bool, error) {
	if messageID == "" {
		return true, nil
	}
	key := handler + "|" + messageID
	if _, dup := t.processed[key]; dup {
		return false, nil
	}
	remember(t, t.processed, key)
	t.processed[key] = struct{}{}
	return true, nil
}

func cloneRegistration(r domain.Registration) domain.Registration {
	r.Guests = append([]domain.Guest{}, r.Guests...)
	r.Sessions = append([]string{}, r.Sessions...)
	return r
}
