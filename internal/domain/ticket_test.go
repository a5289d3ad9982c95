package domain_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terpspark/admission-service/internal/domain"
)

func TestNewConfirmedRegistration(t *testing.T) {
	now := time.Date(2026, 5, 1, 18, 30, 0, 0, time.UTC)
	eventID, userID := uuid.New(), uuid.New()

	r := domain.NewConfirmedRegistration(eventID, userID, nil, nil, now)

	assert.Equal(t, domain.RegistrationConfirmed, r.Status)
	assert.Equal(t, 1, r.Attendees())
	assert.NotNil(t, r.Guests)
	assert.NotNil(t, r.Sessions)
	assert.True(t, strings.HasPrefix(r.TicketCode, "TKT-"))
	assert.Len(t, r.TicketCode, 16)
	assert.Equal(t, domain.NewTicketCode(r.ID), r.TicketCode)

	var qr map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.QRPayload), &qr))
	assert.Equal(t, r.TicketCode, qr["ticket"])
	assert.Equal(t, eventID.String(), qr["event_id"])
}

func TestRegistration_CheckIn(t *testing.T) {
	now := time.Now()
	r := domain.NewConfirmedRegistration(uuid.New(), uuid.New(), nil, nil, now)

	require.NoError(t, r.CheckIn(now))
	assert.True(t, r.CheckedIn)
	assert.ErrorIs(t, r.CheckIn(now), domain.ErrAlreadyCheckedIn)

	c := domain.NewConfirmedRegistration(uuid.New(), uuid.New(), nil, nil, now)
	assert.True(t, c.Cancel(now))
	assert.False(t, c.Cancel(now))
	assert.ErrorIs(t, c.CheckIn(now), domain.ErrNotConfirmed)
}

func TestNewSubmittedEvent(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	valid := domain.EventSubmission{
		Title:    "  Hack Night ",
		Category: domain.CategorySlug("technology"),
		StartsAt: now.Add(48 * time.Hour),
		EndsAt:   now.Add(50 * time.Hour),
		Capacity: 40,
	}

	ev, err := domain.NewSubmittedEvent(uuid.New(), valid, now)
	require.NoError(t, err)
	assert.Equal(t, "Hack Night", ev.Title)
	assert.Equal(t, domain.EventPending, ev.Status)
	assert.Equal(t, 0, ev.RegisteredCount)

	bad := []func(d *domain.EventSubmission){
		func(d *domain.EventSubmission) { d.Title = "" },
		func(d *domain.EventSubmission) { d.Category = domain.CategoryRef{} },
		func(d *domain.EventSubmission) { d.EndsAt = d.StartsAt },
		func(d *domain.EventSubmission) { d.StartsAt = now.Add(-time.Hour) },
		func(d *domain.EventSubmission) { d.Capacity = -1 },
		func(d *domain.EventSubmission) { d.Capacity = 0 },
		func(d *domain.EventSubmission) { d.Capacity = domain.MaxCapacity + 1 },
		func(d *domain.EventSubmission) { d.Title = strings.Repeat("é", domain.MaxTitleLen+1) },
		func(d *domain.EventSubmission) { d.Description = strings.Repeat("x", domain.MaxDescriptionLen+1) },
	}
	edge := valid
	edge.Title = strings.Repeat("é", domain.MaxTitleLen)
	edge.Capacity = domain.MaxCapacity
	_, err = domain.NewSubmittedEvent(uuid.New(), edge, now)
	require.NoError(t, err)

	for i, mutate := range bad {
		d := valid
		mutate(&d)
		_, err := domain.NewSubmittedEvent(uuid.New(), d, now)
		assert.ErrorIs(t, err, domain.ErrValidation, "case %d", i)
	}
}

func TestEvent_Cancel(t *testing.T) {
	ev := domain.Event{Status: domain.EventPublished, RegisteredCount: 5, WaitlistCount: 2}

	assert.True(t, ev.Cancel(time.Now()))
	assert.Equal(t, domain.EventCancelled, ev.Status)
	assert.Zero(t, ev.RegisteredCount)
	assert.Zero(t, ev.WaitlistCount)
	assert.False(t, ev.Cancel(time.Now()))
}
