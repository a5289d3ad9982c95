package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/terpspark/admission-service/internal/domain"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return min(limit, maxLimit)
}

func (s *state) GetEvent(_ context.Context, id uuid.UUID) (domain.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return s.resolveCategory(e), nil
}

func (s *state) resolveCategory(e domain.Event) domain.Event {
	if _, ok := e.Category.Resolved(); ok {
		return e
	}
	for _, c := range s.categories {
		if c.Slug == e.Category.Slug() {
			e.Category = domain.ResolvedCategory(c)
			break
		}
	}
	return e
}

// ListEvents orders by (starts_at, id) ascending; the cursor is the last
// item of the previous page.
func (s *state) ListEvents(_ context.Context, f domain.EventFilter) ([]domain.Event, *domain.KeysetCursor, error) {
	limit := clampLimit(f.Limit)
	search := strings.ToLower(strings.TrimSpace(f.Search))

	var out []domain.Event
	for _, e := range s.events {
		switch {
		case f.Status != "" && e.Status != f.Status:
			continue
		case f.Category != "" && e.Category.Slug() != f.Category:
			continue
		case f.From != nil && e.StartsAt.Before(*f.From):
			continue
		case f.To != nil && e.StartsAt.After(*f.To):
			continue
		case search != "" && !strings.Contains(strings.ToLower(e.Title+" "+e.Description), search):
			continue
		case f.Cursor != nil && !after(e.StartsAt, e.ID, *f.Cursor):
			continue
		}
		out = append(out, s.resolveCategory(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})

	if len(out) <= limit {
		return out, nil, nil
	}
	out = out[:limit]
	last := out[limit-1]
	return out, &domain.KeysetCursor{At: last.StartsAt, ID: last.ID}, nil
}

func (s *state) GetRegistration(_ context.Context, id uuid.UUID) (domain.Registration, error) {
	r, ok := s.registrations[id]
	if !ok {
		return domain.Registration{}, domain.ErrNotFound
	}
	return cloneRegistration(r), nil
}

func (s *state) ActiveRegistration(_ context.Context, eventID, userID uuid.UUID) (*domain.Registration, error) {
	for _, r := range s.registrations {
		if r.EventID == eventID && r.UserID == userID && r.Status == domain.RegistrationConfirmed {
			c := cloneRegistration(r)
			return &c, nil
		}
	}
	return nil, nil
}

func (s *state) RegistrationByTicket(_ context.Context, eventID uuid.UUID, code string) (domain.Registration, error) {
	for _, r := range s.registrations {
		if r.EventID == eventID && strings.EqualFold(r.TicketCode, code) {
			return cloneRegistration(r), nil
		}
	}
	return domain.Registration{}, domain.ErrNotFound
}

func (s *state) ListUserRegistrations(_ context.Context, userID uuid.UUID) ([]domain.Registration, error) {
	out := []domain.Registration{}
	for _, r := range s.registrations {
		if r.UserID == userID {
			out = append(out, cloneRegistration(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.After(out[j].RegisteredAt) })
	return out, nil
}

func (s *state) ListActiveRegistrations(_ context.Context, eventID uuid.UUID) ([]domain.Registration, error) {
	out := []domain.Registration{}
	for _, r := range s.registrations {
		if r.EventID == eventID && r.Status == domain.RegistrationConfirmed {
			out = append(out, cloneRegistration(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

func (s *state) GetWaitlistEntry(_ context.Context, id uuid.UUID) (domain.WaitlistEntry, error) {
	w, ok := s.waitlist[id]
	if !ok {
		return domain.WaitlistEntry{}, domain.ErrNotFound
	}
	return w, nil
}

func (s *state) WaitlistEntryFor(_ context.Context, eventID, userID uuid.UUID) (*domain.WaitlistEntry, error) {
	for _, w := range s.waitlist {
		if w.EventID == eventID && w.UserID == userID {
			return &w, nil
		}
	}
	return nil, nil
}

func (s *state) ListEventWaitlist(_ context.Context, eventID uuid.UUID) ([]domain.WaitlistEntry, error) {
	out := []domain.WaitlistEntry{}
	for _, w := range s.waitlist {
		if w.EventID == eventID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *state) ListUserWaitlist(_ context.Context, userID uuid.UUID) ([]domain.WaitlistEntry, error) {
	out := []domain.WaitlistEntry{}
	for _, w := range s.waitlist {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.After(out[j].JoinedAt) })
	return out, nil
}

func (s *state) GetApproval(_ context.Context, id uuid.UUID) (domain.ApprovalRequest, error) {
	a, ok := s.approvals[id]
	if !ok {
		return domain.ApprovalRequest{}, domain.ErrNotFound
	}
	return a, nil
}

func (s *state) ListApprovals(_ context.Context, kind domain.ApprovalKind, status domain.ApprovalStatus) ([]domain.ApprovalRequest, error) {
	out := []domain.ApprovalRequest{}
	for _, a := range s.approvals {
		if (kind == "" || a.Kind == kind) && (status == "" || a.Status == status) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

func (s *state) PendingApprovalFor(_ context.Context, kind domain.ApprovalKind, subjectID uuid.UUID) (*domain.ApprovalRequest, error) {
	for _, a := range s.approvals {
		if a.Kind == kind && a.SubjectID == subjectID && a.Status == domain.ApprovalPending {
			return &a, nil
		}
	}
	return nil, nil
}

// ListAuditLogs is newest first, keyed on (created_at, id) descending.
func (s *state) ListAuditLogs(_ context.Context, f domain.AuditFilter) ([]domain.AuditLogEntry, *domain.KeysetCursor, error) {
	limit := clampLimit(f.Limit)
	search := strings.ToLower(strings.TrimSpace(f.Search))

	var out []domain.AuditLogEntry
	for _, e := range s.audit {
		switch {
		case f.Action != "" && e.Action != f.Action:
			continue
		case f.ActorID != nil && (e.ActorID == nil || *e.ActorID != *f.ActorID):
			continue
		case f.TargetID != nil && (e.TargetID == nil || *e.TargetID != *f.TargetID):
			continue
		case f.From != nil && e.CreatedAt.Before(*f.From):
			continue
		case f.To != nil && e.CreatedAt.After(*f.To):
			continue
		case search != "" && !strings.Contains(strings.ToLower(e.Details+" "+string(e.Action)+" "+e.TargetType), search):
			continue
		case f.Cursor != nil && !before(e.CreatedAt, e.ID, *f.Cursor):
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})

	if len(out) <= limit {
		return out, nil, nil
	}
	out = out[:limit]
	last := out[limit-1]
	return out, &domain.KeysetCursor{At: last.CreatedAt, ID: last.ID}, nil
}

func (s *state) ListCategories(_ context.Context, activeOnly bool) ([]domain.Category, error) {
	out := []domain.Category{}
	for _, c := range s.categories {
		if !activeOnly || c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *state) GetCategory(_ context.Context, id uuid.UUID) (domain.Category, error) {
	c, ok := s.categories[id]
	if !ok {
		return domain.Category{}, domain.ErrNotFound
	}
	return c, nil
}

func (s *state) CategoryBySlug(_ context.Context, slug string) (domain.Category, error) {
	for _, c := range s.categories {
		if c.Slug == slug {
			return c, nil
		}
	}
	return domain.Category{}, domain.ErrNotFound
}

func (s *state) ListVenues(_ context.Context, activeOnly bool) ([]domain.Venue, error) {
	out := []domain.Venue{}
	for _, v := range s.venues {
		if !activeOnly || v.Active {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *state) GetVenue(_ context.Context, id uuid.UUID) (domain.Venue, error) {
	v, ok := s.venues[id]
	if !ok {
		return domain.Venue{}, domain.ErrNotFound
	}
	return v, nil
}

func after(at time.Time, id uuid.UUID, c domain.KeysetCursor) bool {
	if !at.Equal(c.At) {
		return at.After(c.At)
	}
	return id.String() > c.ID.String()
}

func before(at time.Time, id uuid.UUID, c domain.KeysetCursor) bool {
	if !at.Equal(c.At) {
		return at.Before(c.At)
	}
	return id.String() < c.ID.String()
}
