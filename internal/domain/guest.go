package domain

import (
	"strings"

	"github.com/google/uuid"
)

const DefaultMaxGuests = 2

var DefaultGuestDomains = []string{"@umd.edu"}

type Guest struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// GuestPolicy bounds guests per registration and restricts guest email
// suffixes to an allow-list.
type GuestPolicy struct {
	MaxGuests      int
	AllowedDomains []string
}

func DefaultGuestPolicy() GuestPolicy {
	return GuestPolicy{MaxGuests: DefaultMaxGuests, AllowedDomains: DefaultGuestDomains}
}

func (p GuestPolicy) allows(email string) bool {
	email = strings.ToLower(email)
	for _, d := range p.AllowedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if !strings.HasPrefix(d, "@") {
			d = "@" + d
		}
		if strings.HasSuffix(email, d) {
			return true
		}
	}
	return false
}

// GuestList is the guest set being attached to one registration.
// Failed adds leave the list untouched.
type GuestList struct {
	policy GuestPolicy
	guests []Guest
}

func NewGuestList(p GuestPolicy) *GuestList {
	return &GuestList{policy: p}
}

func (l *GuestList) Add(name, email string) (Guest, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	switch {
	case name == "":
		return Guest{}, ErrMissingName
	case email == "":
		return Guest{}, ErrMissingEmail
	case !l.policy.allows(email):
		return Guest{}, ErrInvalidGuestDomain
	case len(l.guests) >= l.policy.MaxGuests:
		return Guest{}, ErrGuestLimitExceeded
	}

	g := Guest{ID: uuid.New(), Name: name, Email: strings.ToLower(email)}
	l.guests = append(l.guests, g)
	return g, nil
}

// Remove is a no-op for unknown ids.
func (l *GuestList) Remove(id uuid.UUID) {
	for i, g := range l.guests {
		if g.ID == id {
			l.guests = append(l.guests[:i], l.guests[i+1:]...)
			return
		}
	}
}

func (l *GuestList) Len() int { return len(l.guests) }

func (l *GuestList) Guests() []Guest {
	out := make([]Guest, len(l.guests))
	copy(out, l.guests)
	return out
}
