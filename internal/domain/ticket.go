package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

const ticketPrefix = "TKT-"

// NewTicketCode derives a short, human-readable code from the registration id.
func NewTicketCode(registrationID uuid.UUID) string {
	raw := strings.ReplaceAll(registrationID.String(), "-", "")
	return ticketPrefix + strings.ToUpper(raw[:12])
}

type qrPayload struct {
	Ticket  string    `json:"ticket"`
	EventID uuid.UUID `json:"event_id"`
	UserID  uuid.UUID `json:"user_id"`
	Issued  int64     `json:"issued"`
}

// NewQRPayload is the string encoded into the ticket QR code.
func NewQRPayload(ticket string, eventID, userID uuid.UUID, issued time.Time) string {
	b, _ := json.Marshal(qrPayload{Ticket: ticket, EventID: eventID, UserID: userID, Issued: issued.Unix()})
	return string(b)
}

// NewConfirmedRegistration builds a confirmed registration with ticket data.
func NewConfirmedRegistration(eventID, userID uuid.UUID, guests []Guest, sessions []string, now time.Time) Registration {
	id := uuid.New()
	code := NewTicketCode(id)
	if guests == nil {
		guests = []Guest{}
	}
	if sessions == nil {
		sessions = []string{}
	}
	return Registration{
		ID:           id,
		UserID:       userID,
		EventID:      eventID,
		Status:       RegistrationConfirmed,
		Guests:       guests,
		Sessions:     sessions,
		TicketCode:   code,
		QRPayload:    NewQRPayload(code, eventID, userID, now),
		RegisteredAt: now.UTC(),
	}
}

// CheckIn marks a confirmed registration as attended.
func (r *Registration) CheckIn(now time.Time) error {
	if r.Status != RegistrationConfirmed {
		return ErrNotConfirmed
	}
	if r.CheckedIn {
		return ErrAlreadyCheckedIn
	}
	t := now.UTC()
	r.CheckedIn = true
	r.CheckedInAt = &t
	return nil
}

// Cancel reports whether the registration changed.
func (r *Registration) Cancel(now time.Time) bool {
	if r.Status == RegistrationCancelled {
		return false
	}
	t := now.UTC()
	r.Status = RegistrationCancelled
	r.CancelledAt = &t
	return true
}
