package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terpspark/admission-service/internal/contracts/messages"
	"github.com/terpspark/admission-service/internal/domain"
	"github.com/terpspark/admission-service/internal/service"
)

func TestSubmitEvent_Validation(t *testing.T) {
	f := newFixture(t)
	f.seedCategory(t, "arts")
	venue, err := f.svc.CreateVenue(context.Background(), admin, "Hoff Theater", "Stamp", 50)
	require.NoError(t, err)

	base := domain.EventSubmission{
		Title:    "Open Mic",
		Category: domain.CategorySlug("arts"),
		VenueID:  &venue.ID,
		StartsAt: f.now.Add(24 * time.Hour),
		EndsAt:   f.now.Add(27 * time.Hour),
		Capacity: 50,
	}

	_, _, err = f.svc.SubmitEvent(context.Background(), student(), base)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	tests := []struct {
		name   string
		mutate func(d *domain.EventSubmission)
	}{
		{"unknown category", func(d *domain.EventSubmission) { d.Category = domain.CategorySlug("sports") }},
		{"unknown venue", func(d *domain.EventSubmission) { id := uuid.New(); d.VenueID = &id }},
		{"over venue capacity", func(d *domain.EventSubmission) { d.Capacity = 51 }},
		{"starts in the past", func(d *domain.EventSubmission) { d.StartsAt = f.now.Add(-time.Hour) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base
			tt.mutate(&d)
			_, _, err := f.svc.SubmitEvent(context.Background(), organizer, d)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	ev, req, err := f.svc.SubmitEvent(context.Background(), organizer, base)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalEvent, req.Kind)
	assert.Equal(t, ev.ID, req.SubjectID)
	c, ok := ev.Category.Resolved()
	require.True(t, ok)
	assert.Equal(t, "arts", c.Slug)

	_, err = f.svc.ToggleVenue(context.Background(), admin, venue.ID)
	require.NoError(t, err)
	_, _, err = f.svc.SubmitEvent(context.Background(), organizer, base)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetEvent_HidesPendingFromOthers(t *testing.T) {
	f := newFixture(t)
	ev, _ := f.submitted(t)

	_, err := f.svc.GetEvent(context.Background(), student(), ev.ID)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)

	got, err := f.svc.GetEvent(context.Background(), organizer, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 200, got.Occupancy.Remaining)

	_, err = f.svc.GetEvent(context.Background(), admin, ev.ID)
	assert.NoError(t, err)
}

func TestRegister_HidesPendingFromOthers(t *testing.T) {
	f := newFixture(t)
	ev, _ := f.submitted(t)
	someone := student()

	_, err := f.svc.Register(context.Background(), someone, ev.ID, service.RegisterInput{})
	assert.ErrorIs(t, err, domain.ErrEventNotFound)

	_, err = f.svc.RegistrationStatus(context.Background(), someone, ev.ID)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)

	_, err = f.svc.Register(context.Background(), organizer, ev.ID, service.RegisterInput{})
	assert.ErrorIs(t, err, domain.ErrEventNotOpen)

	_, err = f.svc.RegistrationStatus(context.Background(), admin, ev.ID)
	assert.NoError(t, err)
}

func TestListEvents_StudentsSeePublishedOnly(t *testing.T) {
	f := newFixture(t)
	published := f.publishedEvent(t, 10, 4)
	f.submitted(t)

	list, next, err := f.svc.ListEvents(context.Background(), student(), domain.EventFilter{Status: domain.EventPending})
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, list, 1)
	assert.Equal(t, published.ID, list[0].ID)
	assert.Equal(t, 40, list[0].Occupancy.Percentage)

	list, _, err = f.svc.ListEvents(context.Background(), admin, domain.EventFilter{Status: domain.EventPending})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.EventPending, list[0].Status)
}

func TestCancelEvent_ReleasesEveryone(t *testing.T) {
	f := newFixture(t)
	ev := f.publishedEvent(t, 1, 0)
	holder, waiting := student(), student()

	res, err := f.svc.Register(context.Background(), holder, ev.ID, service.RegisterInput{})
	require.NoError(t, err)
	_, err = f.svc.Register(context.Background(), waiting, ev.ID, service.RegisterInput{})
	require.NoError(t, err)

	_, err = f.svc.CancelEvent(context.Background(), student(), ev.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	out, err := f.svc.CancelEvent(context.Background(), organizer, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EventCancelled, out.Status)
	assert.Zero(t, out.RegisteredCount)
	assert.Zero(t, out.WaitlistCount)

	mine, err := f.svc.MyRegistrations(context.Background(), holder)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, res.Registration.ID, mine[0].ID)
	assert.Equal(t, domain.RegistrationCancelled, mine[0].Status)
	assert.Empty(t, f.positions(t, ev.ID))

	outbox := f.store.Outbox()
	last := outbox[len(outbox)-1]
	assert.Equal(t, messages.EventCancelled, last.RoutingKey)

	before := len(f.auditActions(t))
	_, err = f.svc.CancelEvent(context.Background(), organizer, ev.ID)
	require.NoError(t, err)
	assert.Len(t, f.auditActions(t), before)
}

func TestCancelEvent_RejectsPendingSubmission(t *testing.T) {
	f := newFixture(t)
	ev, req := f.submitted(t)

	_, err := f.svc.CancelEvent(context.Background(), organizer, ev.ID)
	require.NoError(t, err)

	pending, err := f.svc.ListApprovals(context.Background(), admin, domain.ApprovalEvent, domain.ApprovalRejected)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].ID)
	assert.Equal(t, "event cancelled by organizer", pending[0].Notes)
}

func TestCheckIn(t *testing.T) {
	f := newFixture(t)
	ev := f.publishedEvent(t, 10, 0)
	res, err := f.svc.Register(context.Background(), student(), ev.ID, service.RegisterInput{})
	require.NoError(t, err)
	code := res.Registration.TicketCode

	_, err = f.svc.CheckIn(context.Background(), student(), ev.ID, code)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	r, err := f.svc.CheckIn(context.Background(), organizer, ev.ID, " "+code+" ")
	require.NoError(t, err)
	assert.True(t, r.CheckedIn)
	require.NotNil(t, r.CheckedInAt)

	_, err = f.svc.CheckIn(context.Background(), organizer, ev.ID, code)
	assert.ErrorIs(t, err, domain.ErrAlreadyCheckedIn)

	_, err = f.svc.CheckIn(context.Background(), organizer, ev.ID, "TKT-NOPE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckInFromScan_DedupesOnMessageID(t *testing.T) {
	f := newFixture(t)
	ev := f.publishedEvent(t, 10, 0)
	res, err := f.svc.Register(context.Background(), student(), ev.ID, service.RegisterInput{})
	require.NoError(t, err)

	p := messages.CheckInScannedPayload{
		TicketCode: res.Registration.TicketCode,
		EventID:    ev.ID.String(),
		ScannedAt:  f.now,
		ScannerID:  "door-2",
	}
	msgID := uuid.NewString()

	processed, err := f.svc.CheckInFromScan(context.Background(), msgID, p)
	require.NoError(t, err)
	assert.True(t, processed)

	processed, err = f.svc.CheckInFromScan(context.Background(), msgID, p)
	require.NoError(t, err)
	assert.False(t, processed)

	// a new message for the same ticket is a second check-in
	_, err = f.svc.CheckInFromScan(context.Background(), uuid.NewString(), p)
	assert.ErrorIs(t, err, domain.ErrAlreadyCheckedIn)

	_, err = f.svc.CheckInFromScan(context.Background(), uuid.NewString(), messages.CheckInScannedPayload{EventID: "nope", TicketCode: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCheckInFromScan_FailedScanCanBeRetried(t *testing.T) {
	f := newFixture(t)
	ev := f.publishedEvent(t, 10, 0)
	msgID := uuid.NewString()

	_, err := f.svc.CheckInFromScan(context.Background(), msgID, messages.CheckInScannedPayload{
		TicketCode: "TKT-UNKNOWN", EventID: ev.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	res, err := f.svc.Register(context.Background(), student(), ev.ID, service.RegisterInput{})
	require.NoError(t, err)
	processed, err := f.svc.CheckInFromScan(context.Background(), msgID, messages.CheckInScannedPayload{
		TicketCode: res.Registration.TicketCode, EventID: ev.ID.String(),
	})
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestAuditLogs(t *testing.T) {
	f := newFixture(t)
	ev := f.publishedEvent(t, 10, 0)
	u := student()
	res, err := f.svc.Register(context.Background(), u, ev.ID, service.RegisterInput{})
	require.NoError(t, err)
	_, err = f.svc.CancelRegistration(context.Background(), u, res.Registration.ID)
	require.NoError(t, err)

	_, _, err = f.svc.AuditLogs(context.Background(), u, domain.AuditFilter{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, _, err = f.svc.AuditLogs(context.Background(), admin, domain.AuditFilter{Action: "DROP_TABLE"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	logs, _, err := f.svc.AuditLogs(context.Background(), admin, domain.AuditFilter{Action: domain.ActionRegistrationCancelled})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, u.UserID, *logs[0].ActorID)
	assert.Equal(t, res.Registration.ID, *logs[0].TargetID)
}

func TestCategoriesAndVenues(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateCategory(context.Background(), organizer, "Sports", "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	c, err := f.svc.CreateCategory(context.Background(), admin, "Greek Life", "#990000")
	require.NoError(t, err)
	assert.Equal(t, "greek-life", c.Slug)

	_, err = f.svc.CreateCategory(context.Background(), admin, "greek life", "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	toggled, err := f.svc.ToggleCategory(context.Background(), admin, c.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Active)

	visible, err := f.svc.ListCategories(context.Background(), student())
	require.NoError(t, err)
	assert.Empty(t, visible)
	all, err := f.svc.ListCategories(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = f.svc.CreateVenue(context.Background(), admin, "Armory", "", -1)
	assert.ErrorIs(t, err, domain.ErrValidation)
	v, err := f.svc.CreateVenue(context.Background(), admin, "Armory", "Armory", 500)
	require.NoError(t, err)
	venues, err := f.svc.ListVenues(context.Background(), student())
	require.NoError(t, err)
	require.Len(t, venues, 1)
	assert.Equal(t, v.ID, venues[0].ID)
}
