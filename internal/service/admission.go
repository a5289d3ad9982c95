package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/terpspark/admission-service/internal/contracts/messages"
	"github.com/terpspark/admission-service/internal/domain"
	"github.com/terpspark/admission-service/internal/metrics"
)

type GuestInput struct {
	Name  string
	Email string
}

type RegisterInput struct {
	Guests                 []GuestInput
	Sessions               []string
	JoinWaitlist           bool
	NotificationPreference domain.NotificationPreference
}

// RegisterResult carries exactly one of Registration or Waitlist.
type RegisterResult struct {
	Admission    domain.Admission      `json:"admission"`
	Registration *domain.Registration  `json:"registration,omitempty"`
	Waitlist     *domain.WaitlistEntry `json:"waitlist,omitempty"`
	Occupancy    domain.Occupancy      `json:"occupancy"`
}

// Register admits the actor to a published event, either as a confirmed
// attendee with guests or at the tail of the waitlist.
func (s *Service) Register(ctx context.Context, actor domain.Actor, eventID uuid.UUID, in RegisterInput) (RegisterResult, error) {
	guests := domain.NewGuestList(s.guests)
	for _, g := range in.Guests {
		if _, err := guests.Add(g.Name, g.Email); err != nil {
			metrics.RecordAdmission(metrics.OutcomeRejected)
			return RegisterResult{}, err
		}
	}

	pref := in.NotificationPreference
	if pref == "" {
		pref = domain.NotifyEmail
	}
	if !pref.Valid() {
		return RegisterResult{}, domain.Invalid("notification_preference", "must be email, sms or both")
	}

	// Only cancellation is final, so it is the one cached status trusted
	// without the store. Misses and redis errors fall through.
	if s.cache != nil {
		st, err := s.cache.GetEventStatus(ctx, eventID)
		if err == nil && st == domain.EventCancelled {
			return RegisterResult{}, domain.ErrEventNotOpen
		}
	}

	var (
		res    RegisterResult
		status domain.EventStatus
	)
	err := s.atomic(ctx, "register", func(ctx context.Context, tx domain.Tx) error {
		ev, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		status = ev.Status
		if !ev.VisibleTo(actor) {
			return domain.ErrEventNotFound
		}
		if ev.Status != domain.EventPublished {
			return domain.ErrEventNotOpen
		}

		reg, err := tx.ActiveRegistration(ctx, eventID, actor.UserID)
		if err != nil {
			return err
		}
		wl, err := tx.WaitlistEntryFor(ctx, eventID, actor.UserID)
		if err != nil {
			return err
		}

		decision, err := domain.DecideIntake(domain.IntakeState{
			Capacity:         ev.Capacity,
			Registered:       ev.RegisteredCount,
			WaitlistCount:    ev.WaitlistCount,
			HasRegistration:  reg != nil,
			HasWaitlistEntry: wl != nil,
		}, domain.IntakeRequest{Guests: guests.Len(), JoinWaitlist: in.JoinWaitlist})
		if err != nil {
			return err
		}

		now := s.now()
		res = RegisterResult{Admission: decision.Admission}

		switch decision.Admission {
		case domain.AdmitConfirmed:
			r := domain.NewConfirmedRegistration(eventID, actor.UserID, guests.Guests(), in.Sessions, now)
			if err := tx.InsertRegistration(ctx, r); err != nil {
				return err
			}
			ev.RegisteredCount += decision.Seats
			ev.UpdatedAt = now.UTC()
			if err := tx.UpdateEvent(ctx, ev); err != nil {
				return err
			}
			if err := s.appendAudit(ctx, tx, domain.ActionRegistrationCreated, actor, "registration", r.ID,
				fmt.Sprintf("registered for %q with %d guest(s)", ev.Title, len(r.Guests))); err != nil {
				return err
			}
			if err := s.enqueue(ctx, tx, messages.RegistrationCreated, messages.RegistrationPayload{
				RegistrationID: r.ID.String(),
				EventID:        eventID.String(),
				UserID:         actor.UserID.String(),
				TicketCode:     r.TicketCode,
				Attendees:      r.Attendees(),
			}); err != nil {
				return err
			}
			res.Registration = &r

		case domain.AdmitWaitlist:
			w := domain.WaitlistEntry{
				ID:                     uuid.New(),
				UserID:                 actor.UserID,
				EventID:                eventID,
				Position:               decision.Position,
				NotificationPreference: pref,
				JoinedAt:               now.UTC(),
			}
			if err := tx.InsertWaitlistEntry(ctx, w); err != nil {
				return err
			}
			ev.WaitlistCount++
			ev.UpdatedAt = now.UTC()
			if err := tx.UpdateEvent(ctx, ev); err != nil {
				return err
			}
			if err := s.appendAudit(ctx, tx, domain.ActionWaitlistJoined, actor, "waitlist", w.ID,
				fmt.Sprintf("joined waitlist for %q at position %d", ev.Title, w.Position)); err != nil {
				return err
			}
			if err := s.enqueue(ctx, tx, messages.WaitlistJoined, messages.WaitlistPayload{
				WaitlistID:             w.ID.String(),
				EventID:                eventID.String(),
				UserID:                 actor.UserID.String(),
				Position:               w.Position,
				NotificationPreference: string(pref),
			}); err != nil {
				return err
			}
			res.Waitlist = &w
		}

		res.Occupancy = ev.Occupancy()
		return nil
	})

	// A status read here can be older than a decision committed since, so
	// only published is written back. Anything else drops the entry and the
	// next decision or cancel repopulates it.
	switch status {
	case "":
	case domain.EventPublished:
		s.rememberStatus(ctx, eventID, status)
	default:
		s.forgetStatus(ctx, eventID)
	}

	switch {
	case err == nil && res.Registration != nil:
		metrics.RecordAdmission(metrics.OutcomeConfirmed)
		s.audit.RegistrationCreated(ctx, *res.Registration)
	case err == nil:
		metrics.RecordAdmission(metrics.OutcomeWaitlisted)
		s.audit.WaitlistJoined(ctx, *res.Waitlist)
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, domain.ErrNotFound):
		metrics.RecordAdmission(metrics.OutcomeOperationErr)
	default:
		metrics.RecordAdmission(metrics.OutcomeRejected)
	}
	if err != nil {
		return RegisterResult{}, err
	}
	return res, nil
}

// RegistrationStatus reports the actor's standing on one event.
func (s *Service) RegistrationStatus(ctx context.Context, actor domain.Actor, eventID uuid.UUID) (domain.RegistrationState, error) {
	var st domain.RegistrationState
	err := s.run(ctx, "registration_status", func(ctx context.Context) error {
		ev, err := s.store.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if !ev.VisibleTo(actor) {
			return domain.ErrEventNotFound
		}
		reg, err := s.store.ActiveRegistration(ctx, eventID, actor.UserID)
		if err != nil {
			return err
		}
		if reg != nil {
			st.IsRegistered = true
			st.RegistrationID = &reg.ID
			return nil
		}
		wl, err := s.store.WaitlistEntryFor(ctx, eventID, actor.UserID)
		if err != nil {
			return err
		}
		if wl != nil {
			st.IsWaitlisted = true
			st.WaitlistID = &wl.ID
			st.Position = wl.Position
		}
		return nil
	})
	return st, err
}

func (s *Service) MyRegistrations(ctx context.Context, actor domain.Actor) ([]domain.Registration, error) {
	var out []domain.Registration
	err := s.run(ctx, "my_registrations", func(ctx context.Context) error {
		var err error
		out, err = s.store.ListUserRegistrations(ctx, actor.UserID)
		return err
	})
	return out, err
}

type CancelResult struct {
	Registration domain.Registration   `json:"registration"`
	Promoted     []domain.Registration `json:"promoted,omitempty"`
	Occupancy    domain.Occupancy      `json:"occupancy"`
}

// CancelRegistration frees the registration's seats and promotes from the
// waitlist head under the same lock. Cancelling twice is a no-op.
func (s *Service) CancelRegistration(ctx context.Context, actor domain.Actor, registrationID uuid.UUID) (CancelResult, error) {
	var (
		res     CancelResult
		changed bool
	)
	err := s.atomic(ctx, "cancel_registration", func(ctx context.Context, tx domain.Tx) error {
		r, err := tx.GetRegistration(ctx, registrationID)
		if err != nil {
			return err
		}
		if !ownsOrAdmin(actor, r.UserID) {
			return domain.ErrForbidden
		}

		// lock order: event first, then re-read the registration under it
		ev, err := tx.LockEvent(ctx, r.EventID)
		if err != nil {
			return err
		}
		if r, err = tx.GetRegistration(ctx, registrationID); err != nil {
			return err
		}

		now := s.now()
		res.Registration = r
		res.Occupancy = ev.Occupancy()
		if !r.Cancel(now) {
			return nil
		}
		changed = true
		if err := tx.UpdateRegistration(ctx, r); err != nil {
			return err
		}
		ev.RegisteredCount = max(0, ev.RegisteredCount-r.Attendees())

		if ev.Status == domain.EventPublished {
			promoted, err := s.promote(ctx, tx, &ev, now)
			if err != nil {
				return err
			}
			res.Promoted = promoted
		}

		ev.UpdatedAt = now.UTC()
		if err := tx.UpdateEvent(ctx, ev); err != nil {
			return err
		}
		if err := s.appendAudit(ctx, tx, domain.ActionRegistrationCancelled, actor, "registration", r.ID,
			fmt.Sprintf("cancelled registration for %q, %d seat(s) freed", ev.Title, r.Attendees())); err != nil {
			return err
		}
		if err := s.enqueue(ctx, tx, messages.RegistrationCancelled, messages.RegistrationPayload{
			RegistrationID: r.ID.String(),
			EventID:        r.EventID.String(),
			UserID:         r.UserID.String(),
			TicketCode:     r.TicketCode,
			Attendees:      r.Attendees(),
		}); err != nil {
			return err
		}

		res.Registration = r
		res.Occupancy = ev.Occupancy()
		return nil
	})
	if err != nil {
		return CancelResult{}, err
	}

	if changed {
		s.audit.RegistrationCancelled(ctx, res.Registration, len(res.Promoted))
		for _, p := range res.Promoted {
			s.audit.Promoted(ctx, p.EventID, p.UserID)
		}
		metrics.RecordPromotions(len(res.Promoted))
	}
	return res, nil
}

// promote moves waitlist entrants into freed seats, one seat each, and
// closes the gaps they leave. The caller holds the event lock and persists ev.
func (s *Service) promote(ctx context.Context, tx domain.Tx, ev *domain.Event, now time.Time) ([]domain.Registration, error) {
	free := ev.Capacity - ev.RegisteredCount
	if free <= 0 || ev.WaitlistCount == 0 {
		return nil, nil
	}

	entries, err := tx.ListEventWaitlist(ctx, ev.ID)
	if err != nil {
		return nil, err
	}
	head, rest := domain.PromotionPlan(entries, free)

	var out []domain.Registration
	for _, w := range head {
		if err := tx.DeleteWaitlistEntry(ctx, w.ID); err != nil {
			return nil, err
		}
		r := domain.NewConfirmedRegistration(ev.ID, w.UserID, nil, nil, now)
		if err := tx.InsertRegistration(ctx, r); err != nil {
			return nil, err
		}
		ev.RegisteredCount++
		ev.WaitlistCount = max(0, ev.WaitlistCount-1)

		if err := tx.AppendAudit(ctx, domain.NewAuditEntry(domain.ActionWaitlistPromoted, nil, "registration", &r.ID,
			fmt.Sprintf("promoted from waitlist position %d for %q", w.Position, ev.Title), now)); err != nil {
			return nil, err
		}
		if err := s.enqueue(ctx, tx, messages.WaitlistPromoted, messages.WaitlistPayload{
			WaitlistID:             w.ID.String(),
			EventID:                ev.ID.String(),
			UserID:                 w.UserID.String(),
			Position:               w.Position,
			NotificationPreference: string(w.NotificationPreference),
			RegistrationID:         r.ID.String(),
		}); err != nil {
			return nil, err
		}
		out = append(out, r)
	}

	if err := tx.SetWaitlistPositions(ctx, domain.Compact(rest)); err != nil {
		return nil, err
	}
	return out, nil
}
