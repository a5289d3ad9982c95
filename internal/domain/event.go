package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Submission limits, shared with request validation.
const (
	MaxTitleLen       = 120
	MaxDescriptionLen = 4000
	MaxCapacity       = 100000
)

// EventSubmission is what an organizer sends in; approval turns it into a published Event.
type EventSubmission struct {
	Title       string
	Description string
	Category    CategoryRef
	VenueID     *uuid.UUID
	StartsAt    time.Time
	EndsAt      time.Time
	Capacity    int
}

// NewSubmittedEvent validates the submission and returns an event awaiting
// admin approval.
func NewSubmittedEvent(organizer uuid.UUID, d EventSubmission, now time.Time) (Event, error) {
	title := strings.TrimSpace(d.Title)
	desc := strings.TrimSpace(d.Description)

	if title == "" || utf8.RuneCountInString(title) > MaxTitleLen {
		return Event{}, Invalid("title", fmt.Sprintf("required and at most %d characters", MaxTitleLen))
	}
	if utf8.RuneCountInString(desc) > MaxDescriptionLen {
		return Event{}, Invalid("description", fmt.Sprintf("at most %d characters", MaxDescriptionLen))
	}
	if d.Category.IsZero() {
		return Event{}, Invalid("category", "required")
	}
	if d.StartsAt.IsZero() || d.EndsAt.IsZero() || !d.EndsAt.After(d.StartsAt) {
		return Event{}, Invalid("ends_at", "must be after starts_at")
	}
	if !d.StartsAt.After(now) {
		return Event{}, Invalid("starts_at", "must be in the future")
	}
	if d.Capacity < 1 || d.Capacity > MaxCapacity {
		return Event{}, Invalid("capacity", fmt.Sprintf("must be between 1 and %d", MaxCapacity))
	}

	t := now.UTC()
	return Event{
		ID:          uuid.New(),
		Title:       title,
		Description: desc,
		Category:    d.Category,
		VenueID:     d.VenueID,
		StartsAt:    d.StartsAt.UTC(),
		EndsAt:      d.EndsAt.UTC(),
		Capacity:    d.Capacity,
		Status:      EventPending,
		OrganizerID: organizer,
		CreatedAt:   t,
		UpdatedAt:   t,
	}, nil
}

// Publish moves an approved submission into the browse listing.
func (e *Event) Publish(now time.Time) error {
	if e.Status != EventPending {
		return ErrEventNotPending
	}
	e.Status = EventPublished
	e.UpdatedAt = now.UTC()
	return nil
}

// Reject returns a rejected submission to draft.
func (e *Event) Reject(now time.Time) error {
	if e.Status != EventPending {
		return ErrEventNotPending
	}
	e.Status = EventDraft
	e.UpdatedAt = now.UTC()
	return nil
}

// Cancel reports whether the event changed.
func (e *Event) Cancel(now time.Time) bool {
	if e.Status == EventCancelled {
		return false
	}
	e.Status = EventCancelled
	e.RegisteredCount = 0
	e.WaitlistCount = 0
	e.UpdatedAt = now.UTC()
	return true
}

func (e Event) OwnedBy(a Actor) bool {
	return a.IsAdmin() || e.OrganizerID == a.UserID
}

// VisibleTo reports whether a may see the event. Drafts and pending
// submissions exist only for their organizer and admins.
func (e Event) VisibleTo(a Actor) bool {
	if e.Status == EventDraft || e.Status == EventPending {
		return e.OwnedBy(a)
	}
	return true
}
