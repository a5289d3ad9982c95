package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/terpspark/admission-service/internal/contracts/messages"
	"github.com/terpspark/admission-service/internal/domain"
)

func (s *Service) MyWaitlist(ctx context.Context, actor domain.Actor) ([]domain.WaitlistEntry, error) {
	var out []domain.WaitlistEntry
	err := s.run(ctx, "my_waitlist", func(ctx context.Context) error {
		var err error
		out, err = s.store.ListUserWaitlist(ctx, actor.UserID)
		return err
	})
	return out, err
}

// EventWaitlist is the organizer's view, in position order.
func (s *Service) EventWaitlist(ctx context.Context, actor domain.Actor, eventID uuid.UUID) ([]domain.WaitlistEntry, error) {
	var out []domain.WaitlistEntry
	err := s.run(ctx, "event_waitlist", func(ctx context.Context) error {
		ev, err := s.store.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if !ev.OwnedBy(actor) {
			return domain.ErrForbidden
		}
		out, err = s.store.ListEventWaitlist(ctx, eventID)
		return err
	})
	return out, err
}

// LeaveWaitlist removes the entry and shifts everyone behind it up by one.
func (s *Service) LeaveWaitlist(ctx context.Context, actor domain.Actor, waitlistID uuid.UUID) error {
	var (
		left    domain.WaitlistEntry
		shifted int
	)
	err := s.atomic(ctx, "leave_waitlist", func(ctx context.Context, tx domain.Tx) error {
		w, err := tx.GetWaitlistEntry(ctx, waitlistID)
		if err != nil {
			return err
		}
		if !ownsOrAdmin(actor, w.UserID) {
			return domain.ErrForbidden
		}

		ev, err := tx.LockEvent(ctx, w.EventID)
		if err != nil {
			return err
		}
		if w, err = tx.GetWaitlistEntry(ctx, waitlistID); err != nil {
			return err
		}
		if err := tx.DeleteWaitlistEntry(ctx, w.ID); err != nil {
			return err
		}

		remaining, err := tx.ListEventWaitlist(ctx, ev.ID)
		if err != nil {
			return err
		}
		changes := domain.Compact(remaining)
		if err := tx.SetWaitlistPositions(ctx, changes); err != nil {
			return err
		}

		now := s.now()
		ev.WaitlistCount = len(remaining)
		ev.UpdatedAt = now.UTC()
		if err := tx.UpdateEvent(ctx, ev); err != nil {
			return err
		}
		if err := s.appendAudit(ctx, tx, domain.ActionWaitlistLeft, actor, "waitlist", w.ID,
			fmt.Sprintf("left waitlist for %q from position %d", ev.Title, w.Position)); err != nil {
			return err
		}
		if err := s.enqueue(ctx, tx, messages.WaitlistLeft, messages.WaitlistPayload{
			WaitlistID: w.ID.String(),
			EventID:    w.EventID.String(),
			UserID:     w.UserID.String(),
			Position:   w.Position,
		}); err != nil {
			return err
		}

		left, shifted = w, len(changes)
		return nil
	})
	if err != nil {
		return err
	}
	s.audit.WaitlistLeft(ctx, left, shifted)
	return nil
}
