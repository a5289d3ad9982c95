package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleStudent   Role = "student"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanOrganize reports whether the actor may submit and manage events.
func (a Actor) CanOrganize() bool { return a.Role == RoleOrganizer || a.Role == RoleAdmin }

type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPending   EventStatus = "pending"
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
)

type RegistrationStatus string

const (
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCancelled RegistrationStatus = "cancelled"
	// RegistrationWaitlisted is reported by status views only. Waitlist
	// membership is stored as a WaitlistEntry, never as a registration row.
	RegistrationWaitlisted RegistrationStatus = "waitlisted"
)

type NotificationPreference string

const (
	NotifyEmail NotificationPreference = "email"
	NotifySMS   NotificationPreference = "sms"
	NotifyBoth  NotificationPreference = "both"
)

func (p NotificationPreference) Valid() bool {
	switch p {
	case NotifyEmail, NotifySMS, NotifyBoth:
		return true
	}
	return false
}

type KeysetCursor struct {
	At time.Time
	ID uuid.UUID
}

type Event struct {
	ID              uuid.UUID   `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Category        CategoryRef `json:"category"`
	VenueID         *uuid.UUID  `json:"venue_id,omitempty"`
	StartsAt        time.Time   `json:"starts_at"`
	EndsAt          time.Time   `json:"ends_at"`
	Capacity        int         `json:"capacity"`
	RegisteredCount int         `json:"registered_count"`
	WaitlistCount   int         `json:"waitlist_count"`
	Status          EventStatus `json:"status"`
	OrganizerID     uuid.UUID   `json:"organizer_id"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Occupancy summarises the event's seats.
func (e Event) Occupancy() Occupancy {
	return Calculate(e.Capacity, e.RegisteredCount)
}

type EventFilter struct {
	Status   EventStatus
	Category string // slug
	Search   string
	From     *time.Time
	To       *time.Time
	Limit    int
	Cursor   *KeysetCursor
}

type Registration struct {
	ID           uuid.UUID          `json:"id"`
	UserID       uuid.UUID          `json:"user_id"`
	EventID      uuid.UUID          `json:"event_id"`
	Status       RegistrationStatus `json:"status"`
	Guests       []Guest            `json:"guests"`
	Sessions     []string           `json:"sessions"`
	TicketCode   string             `json:"ticket_code"`
	QRPayload    string             `json:"qr_payload"`
	CheckedIn    bool               `json:"checked_in"`
	CheckedInAt  *time.Time         `json:"checked_in_at,omitempty"`
	RegisteredAt time.Time          `json:"registered_at"`
	CancelledAt  *time.Time         `json:"cancelled_at,omitempty"`
}

// Attendees is the number of seats the registration occupies.
func (r Registration) Attendees() int { return 1 + len(r.Guests) }

type WaitlistEntry struct {
	ID                     uuid.UUID              `json:"id"`
	UserID                 uuid.UUID              `json:"user_id"`
	EventID                uuid.UUID              `json:"event_id"`
	Position               int                    `json:"position"`
	NotificationPreference NotificationPreference `json:"notification_preference"`
	JoinedAt               time.Time              `json:"joined_at"`
}

// RegistrationState is what checkRegistrationStatus reports for one (user, event).
type RegistrationState struct {
	IsRegistered   bool       `json:"is_registered"`
	IsWaitlisted   bool       `json:"is_waitlisted"`
	RegistrationID *uuid.UUID `json:"registration_id,omitempty"`
	WaitlistID     *uuid.UUID `json:"waitlist_id,omitempty"`
	Position       int        `json:"position,omitempty"`
}

type Category struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Slug   string    `json:"slug"`
	Color  string    `json:"color,omitempty"`
	Active bool      `json:"active"`
}

type Venue struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Building string    `json:"building"`
	Capacity int       `json:"capacity"`
	Active   bool      `json:"active"`
}
