package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/terpspark/admission-service/internal/contracts/messages"
	"github.com/terpspark/admission-service/internal/domain"
	"github.com/terpspark/admission-service/internal/metrics"
)

// EventView is an event plus its derived seat summary.
type EventView struct {
	domain.Event
	Occupancy domain.Occupancy `json:"occupancy"`
}

func viewOf(e domain.Event) EventView { return EventView{Event: e, Occupancy: e.Occupancy()} }

// ListEvents browses events. Only admins may list anything other than
// published events.
func (s *Service) ListEvents(ctx context.Context, actor domain.Actor, f domain.EventFilter) ([]EventView, *domain.KeysetCursor, error) {
	if !actor.IsAdmin() || f.Status == "" {
		f.Status = domain.EventPublished
	}
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))

	var (
		out  []EventView
		next *domain.KeysetCursor
	)
	err := s.run(ctx, "list_events", func(ctx context.Context) error {
		evs, cur, err := s.store.ListEvents(ctx, f)
		if err != nil {
			return err
		}
		out = make([]EventView, 0, len(evs))
		for _, e := range evs {
			out = append(out, viewOf(e))
		}
		next = cur
		return nil
	})
	return out, next, err
}

// GetEvent hides drafts and pending submissions from everyone but their
// organizer and admins.
func (s *Service) GetEvent(ctx context.Context, actor domain.Actor, id uuid.UUID) (EventView, error) {
	var out EventView
	err := s.run(ctx, "get_event", func(ctx context.Context) error {
		ev, err := s.store.GetEvent(ctx, id)
		if err != nil {
			return err
		}
		if !ev.VisibleTo(actor) {
			return domain.ErrEventNotFound
		}
		out = viewOf(ev)
		return nil
	})
	return out, err
}

// SubmitEvent records an organizer's event as pending together with the
// approval request an admin will decide.
func (s *Service) SubmitEvent(ctx context.Context, actor domain.Actor, d domain.EventSubmission) (domain.Event, domain.ApprovalRequest, error) {
	if !actor.CanOrganize() {
		return domain.Event{}, domain.ApprovalRequest{}, domain.ErrForbidden
	}
	ev, err := domain.NewSubmittedEvent(actor.UserID, d, s.now())
	if err != nil {
		return domain.Event{}, domain.ApprovalRequest{}, err
	}

	var req domain.ApprovalRequest
	err = s.atomic(ctx, "submit_event", func(ctx context.Context, tx domain.Tx) error {
		cat, err := tx.CategoryBySlug(ctx, ev.Category.Slug())
		if errors.Is(err, domain.ErrNotFound) || (err == nil && !cat.Active) {
			return domain.Invalid("category", "unknown or inactive category")
		}
		if err != nil {
			return err
		}
		ev.Category = domain.ResolvedCategory(cat)

		if ev.VenueID != nil {
			v, err := tx.GetVenue(ctx, *ev.VenueID)
			if errors.Is(err, domain.ErrNotFound) || (err == nil && !v.Active) {
				return domain.Invalid("venue_id", "unknown or inactive venue")
			}
			if err != nil {
				return err
			}
			if v.Capacity > 0 && ev.Capacity > v.Capacity {
				return domain.Invalid("capacity", fmt.Sprintf("exceeds venue capacity of %d", v.Capacity))
			}
		}

		if err := tx.InsertEvent(ctx, ev); err != nil {
			return err
		}
		req = domain.NewApprovalRequest(domain.ApprovalEvent, ev.ID, actor.UserID, "", s.now())
		if err := tx.InsertApproval(ctx, req); err != nil {
			return err
		}
		return s.appendAudit(ctx, tx, domain.ActionEventSubmitted, actor, "event", ev.ID,
			fmt.Sprintf("submitted %q for approval", ev.Title))
	})
	if err != nil {
		return domain.Event{}, domain.ApprovalRequest{}, err
	}
	s.rememberStatus(ctx, ev.ID, ev.Status)
	return ev, req, nil
}

// CancelEvent cancels every registration and waitlist entry on the event.
// A pending submission for it is rejected. Cancelling twice is a no-op.
func (s *Service) CancelEvent(ctx context.Context, actor domain.Actor, eventID uuid.UUID) (EventView, error) {
	var (
		out          EventView
		changed      bool
		regs, waited int
	)
	err := s.atomic(ctx, "cancel_event", func(ctx context.Context, tx domain.Tx) error {
		ev, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if !ev.OwnedBy(actor) {
			return domain.ErrForbidden
		}
		now := s.now()
		if !ev.Cancel(now) {
			out = viewOf(ev)
			return nil
		}
		changed = true

		var affected []string
		active, err := tx.ListActiveRegistrations(ctx, eventID)
		if err != nil {
			return err
		}
		for _, r := range active {
			r.Cancel(now)
			if err := tx.UpdateRegistration(ctx, r); err != nil {
				return err
			}
			affected = append(affected, r.UserID.String())
		}
		entries, err := tx.ListEventWaitlist(ctx, eventID)
		if err != nil {
			return err
		}
		for _, w := range entries {
			if err := tx.DeleteWaitlistEntry(ctx, w.ID); err != nil {
				return err
			}
			affected = append(affected, w.UserID.String())
		}
		regs, waited = len(active), len(entries)

		pending, err := tx.PendingApprovalFor(ctx, domain.ApprovalEvent, eventID)
		if err != nil {
			return err
		}
		if pending != nil {
			req, err := tx.LockApproval(ctx, pending.ID)
			if err != nil {
				return err
			}
			if err := req.Reject(actor.UserID, "event cancelled by organizer", now); err != nil {
				return err
			}
			if err := tx.UpdateApproval(ctx, req); err != nil {
				return err
			}
		}

		if err := tx.UpdateEvent(ctx, ev); err != nil {
			return err
		}
		if err := s.appendAudit(ctx, tx, domain.ActionEventCancelled, actor, "event", ev.ID,
			fmt.Sprintf("cancelled %q: %d registration(s), %d waitlist entr(ies)", ev.Title, regs, waited)); err != nil {
			return err
		}
		if affected == nil {
			affected = []string{}
		}
		if err := s.enqueue(ctx, tx, messages.EventCancelled, messages.EventCancelledPayload{
			EventID:       ev.ID.String(),
			CancelledBy:   actor.UserID.String(),
			AffectedUsers: affected,
		}); err != nil {
			return err
		}
		out = viewOf(ev)
		return nil
	})
	if err != nil {
		return EventView{}, err
	}
	if changed {
		s.rememberStatus(ctx, eventID, domain.EventCancelled)
		s.audit.EventCancelled(ctx, eventID, actor.UserID, regs, waited)
	}
	return out, nil
}

// CheckIn marks the ticket holder as attended. Only the event's organizer
// or an admin may check people in.
func (s *Service) CheckIn(ctx context.Context, actor domain.Actor, eventID uuid.UUID, ticketCode string) (domain.Registration, error) {
	ticketCode = strings.ToUpper(strings.TrimSpace(ticketCode))
	if ticketCode == "" {
		return domain.Registration{}, domain.Invalid("ticket_code", "required")
	}

	var out domain.Registration
	err := s.atomic(ctx, "check_in", func(ctx context.Context, tx domain.Tx) error {
		ev, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if !ev.OwnedBy(actor) {
			return domain.ErrForbidden
		}
		out, err = s.checkIn(ctx, tx, actor, eventID, ticketCode)
		return err
	})
	if err != nil {
		return domain.Registration{}, err
	}
	s.audit.CheckedIn(ctx, out, "manual")
	metrics.RecordCheckIn("manual")
	return out, nil
}

// CheckInFromScan applies a door-scanner message at most once per message id.
// Duplicates return processed=false and no error.
func (s *Service) CheckInFromScan(ctx context.Context, messageID string, p messages.CheckInScannedPayload) (processed bool, err error) {
	eventID, perr := uuid.Parse(strings.TrimSpace(p.EventID))
	if perr != nil {
		return false, domain.Invalid("event_id", "must be a uuid")
	}
	code := strings.ToUpper(strings.TrimSpace(p.TicketCode))
	if code == "" {
		return false, domain.Invalid("ticket_code", "required")
	}

	var out domain.Registration
	err = s.atomic(ctx, "check_in_scan", func(ctx context.Context, tx domain.Tx) error {
		first, err := tx.MarkProcessed(ctx, messageID, messages.CheckInScanned)
		if err != nil || !first {
			return err
		}
		if _, err := tx.LockEvent(ctx, eventID); err != nil {
			return err
		}
		out, err = s.checkIn(ctx, tx, domain.Actor{}, eventID, code)
		if err != nil {
			return err
		}
		processed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if processed {
		s.audit.CheckedIn(ctx, out, "scanner")
		metrics.RecordCheckIn("scanner")
	}
	return processed, nil
}

func (s *Service) checkIn(ctx context.Context, tx domain.Tx, actor domain.Actor, eventID uuid.UUID, code string) (domain.Registration, error) {
	r, err := tx.RegistrationByTicket(ctx, eventID, code)
	if err != nil {
		return domain.Registration{}, err
	}
	now := s.now()
	if err := r.CheckIn(now); err != nil {
		return domain.Registration{}, err
	}
	if err := tx.UpdateRegistration(ctx, r); err != nil {
		return domain.Registration{}, err
	}
	if err := s.appendAudit(ctx, tx, domain.ActionAttendeeCheckedIn, actor, "registration", r.ID,
		fmt.Sprintf("checked in ticket %s with %d guest(s)", r.TicketCode, len(r.Guests))); err != nil {
		return domain.Registration{}, err
	}
	return r, nil
}
