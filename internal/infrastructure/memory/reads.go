package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/terpspark/admission-service/internal/domain"
)

// Reads outside a unit of work take the store lock for their duration.

func read[T any](ctx context.Context, s *Store, fn func(*state) (T, error)) (T, error) {
	if err := s.lock(ctx); err != nil {
		var zero T
		return zero, err
	}
	defer s.unlock()
	return fn(s.st)
}

type page[T any] struct {
	items []T
	next  *domain.KeysetCursor
}

func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	return read(ctx, s, func(st *state) (domain.Event, error) { return st.GetEvent(ctx, id) })
}

func (s *Store) ListEvents(ctx context.Context, f domain.EventFilter) ([]domain.Event, *domain.KeysetCursor, error) {
	p, err := read(ctx, s, func(st *state) (page[domain.Event], error) {
		items, next, err := st.ListEvents(ctx, f)
		return page[domain.Event]{items, next}, err
	})
	return p.items, p.next, err
}

func (s *Store) GetRegistration(ctx context.Context, id uuid.UUID) (domain.Registration, error) {
	return read(ctx, s, func(st *state) (domain.Registration, error) { return st.GetRegistration(ctx, id) })
}

func (s *Store) ActiveRegistration(ctx context.Context, eventID, userID uuid.UUID) (*domain.Registration, error) {
	return read(ctx, s, func(st *state) (*domain.Registration, error) { return st.ActiveRegistration(ctx, eventID, userID) })
}

func (s *Store) RegistrationByTicket(ctx context.Context, eventID uuid.UUID, code string) (domain.Registration, error) {
	return read(ctx, s, func(st *state) (domain.Registration, error) { return st.RegistrationByTicket(ctx, eventID, code) })
}

func (s *Store) ListUserRegistrations(ctx context.Context, userID uuid.UUID) ([]domain.Registration, error) {
	return read(ctx, s, func(st *state) ([]domain.Registration, error) { return st.ListUserRegistrations(ctx, userID) })
}

func (s *Store) ListActiveRegistrations(ctx context.Context, eventID uuid.UUID) ([]domain.Registration, error) {
	return read(ctx, s, func(st *state) ([]domain.Registration, error) { return st.ListActiveRegistrations(ctx, eventID) })
}

func (s *Store) GetWaitlistEntry(ctx context.Context, id uuid.UUID) (domain.WaitlistEntry, error) {
	return read(ctx, s, func(st *state) (domain.WaitlistEntry, error) { return st.GetWaitlistEntry(ctx, id) })
}

func (s *Store) WaitlistEntryFor(ctx context.Context, eventID, userID uuid.UUID) (*domain.WaitlistEntry, error) {
	return read(ctx, s, func(st *state) (*domain.WaitlistEntry, error) { return st.WaitlistEntryFor(ctx, eventID, userID) })
}

func (s *Store) ListEventWaitlist(ctx context.Context, eventID uuid.UUID) ([]domain.WaitlistEntry, error) {
	return read(ctx, s, func(st *state) ([]domain.WaitlistEntry, error) { return st.ListEventWaitlist(ctx, eventID) })
}

func (s *Store) ListUserWaitlist(ctx context.Context, userID uuid.UUID) ([]domain.WaitlistEntry, error) {
	return read(ctx, s, func(st *state) ([]domain.WaitlistEntry, error) { return st.ListUserWaitlist(ctx, userID) })
}

func (s *Store) GetApproval(ctx context.Context, id uuid.UUID) (domain.ApprovalRequest, error) {
	return read(ctx, s, func(st *state) (domain.ApprovalRequest, error) { return st.GetApproval(ctx, id) })
}

func (s *Store) ListApprovals(ctx context.Context, kind domain.ApprovalKind, status domain.ApprovalStatus) ([]domain.ApprovalRequest, error) {
	return read(ctx, s, func(st *state) ([]domain.ApprovalRequest, error) { return st.ListApprovals(ctx, kind, status) })
}

func (s *Store) PendingApprovalFor(ctx context.Context, kind domain.ApprovalKind, subjectID uuid.UUID) (*domain.ApprovalRequest, error) {
	return read(ctx, s, func(st *state) (*domain.ApprovalRequest, error) { return st.PendingApprovalFor(ctx, kind, subjectID) })
}

func (s *Store) ListAuditLogs(ctx context.Context, f domain.AuditFilter) ([]domain.AuditLogEntry, *domain.KeysetCursor, error) {
	p, err := read(ctx, s, func(st *state) (page[domain.AuditLogEntry], error) {
		items, next, err := st.ListAuditLogs(ctx, f)
		return page[domain.AuditLogEntry]{items, next}, err
	})
	return p.items, p.next, err
}

func (s *Store) ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	return read(ctx, s, func(st *state) ([]domain.Category, error) { return st.ListCategories(ctx, activeOnly) })
}

func (s *Store) GetCategory(ctx context.Context, id uuid.UUID) (domain.Category, error) {
	return read(ctx, s, func(st *state) (domain.Category, error) { return st.GetCategory(ctx, id) })
}

func (s *Store) CategoryBySlug(ctx context.Context, slug string) (domain.Category, error) {
	return read(ctx, s, func(st *state) (domain.Category, error) { return st.CategoryBySlug(ctx, slug) })
}

func (s *Store) ListVenues(ctx context.Context, activeOnly bool) ([]domain.Venue, error) {
	return read(ctx, s, func(st *state) ([]domain.Venue, error) { return st.ListVenues(ctx, activeOnly) })
}

func (s *Store) GetVenue(ctx context.Context, id uuid.UUID) (domain.Venue, error) {
	return read(ctx, s, func(st *state) (domain.Venue, error) { return st.GetVenue(ctx, id) })
}
