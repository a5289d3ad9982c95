package rest

import (
	"time"

	"github.com/terpspark/admission-service/internal/domain"
	"github.com/terpspark/admission-service/internal/service"
)

// Guest fields are checked by the domain guest rule so its errors keep
// their own codes.
type guestRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type registerRequest struct {
	Guests                 []guestRequest `json:"guests" validate:"max=10"`
	Sessions               []string       `json:"sessions" validate:"max=20,dive,max=100"`
	JoinWaitlist           bool           `json:"join_waitlist"`
	NotificationPreference string         `json:"notification_preference" validate:"omitempty,oneof=email sms both"`
}

func (r registerRequest) toInput() service.RegisterInput {
	in := service.RegisterInput{
		Sessions:               r.Sessions,
		JoinWaitlist:           r.JoinWaitlist,
		NotificationPreference: domain.NotificationPreference(r.NotificationPreference),
	}
	for _, g := range r.Guests {
		in.Guests = append(in.Guests, service.GuestInput{Name: g.Name, Email: g.Email})
	}
	return in
}

type submitEventRequest struct {
	Title       string    `json:"title" validate:"required,max=120"`
	Description string    `json:"description" validate:"max=4000"`
	Category    string    `json:"category" validate:"required,max=64"`
	VenueID     string    `json:"venue_id" validate:"omitempty,uuid"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Capacity    int       `json:"capacity" validate:"required,min=1,max=100000"`
}

type decisionRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

type organizerRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type checkInRequest struct {
	TicketCode string `json:"ticket_code" validate:"required,max=64"`
}

type createCategoryRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

type createVenueRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Building string `json:"building" validate:"required,max=200"`
	Capacity int    `json:"capacity" validate:"required,min=1,max=100000"`
}
