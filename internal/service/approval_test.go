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

func (f *fixture) submitted(t *testing.T) (domain.Event, domain.ApprovalRequest) {
	t.Helper()
	f.seedCategory(t, "academic")
	ev, req, err := f.svc.SubmitEvent(context.Background(), organizer, domain.EventSubmission{
		Title:    "Research Symposium",
		Category: domain.CategorySlug("academic"),
		StartsAt: f.now.Add(48 * time.Hour),
		EndsAt:   f.now.Add(52 * time.Hour),
		Capacity: 200,
	})
	require.NoError(t, err)
	return ev, req
}

func TestApproveEvent_PublishesInSameUnitOfWork(t *testing.T) {
	f := newFixture(t)
	ev, req := f.submitted(t)
	assert.Equal(t, domain.EventPending, ev.Status)

	out, err := f.svc.ApproveEvent(context.Background(), admin, req.ID, "looks good")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, out.Status)
	assert.Equal(t, admin.UserID, *out.DecidedBy)
	assert.Equal(t, domain.EventPublished, f.event(t, ev.ID).Status)

	assert.ElementsMatch(t, []domain.AuditAction{domain.ActionEventSubmitted, domain.ActionEventApproved}, f.auditActions(t))
	outbox := f.store.Outbox()
	require.NotEmpty(t, outbox)
	assert.Equal(t, messages.EventApproved, outbox[len(outbox)-1].RoutingKey)

	_, err = f.svc.Register(context.Background(), student(), ev.ID, service.RegisterInput{})
	assert.NoError(t, err)
}

func TestRejectEvent_ReturnsToDraft(t *testing.T) {
	f := newFixture(t)
	ev, req := f.submitted(t)

	out, err := f.svc.RejectEvent(context.Background(), admin, req.ID, "venue double booked")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalRejected, out.Status)
	assert.Equal(t, "venue double booked", out.Notes)
	assert.Equal(t, domain.EventDraft, f.event(t, ev.ID).Status)

	_, err = f.svc.Register(context.Background(), student(), ev.ID, service.RegisterInput{})
	assert.ErrorIs(t, err, domain.ErrEventNotOpen)
}

func TestReject_EmptyNotesNeverReachesStore(t *testing.T) {
	svc := service.New(untouchedStore{t: t})

	for _, notes := range []string{"", "  "} {
		_, err := svc.RejectEvent(context.Background(), admin, uuid.New(), notes)
		assert.ErrorIs(t, err, domain.ErrMissingRejectionReason)
		_, err = svc.RejectOrganizer(context.Background(), admin, uuid.New(), notes)
		assert.ErrorIs(t, err, domain.ErrMissingRejectionReason)
	}
}

func TestDecide_AdminOnlyAndTerminal(t *testing.T) {
	f := newFixture(t)
	_, req := f.submitted(t)

	_, err := f.svc.ApproveEvent(context.Background(), organizer, req.ID, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.ApproveEvent(context.Background(), admin, req.ID, "")
	require.NoError(t, err)

	_, err = f.svc.RejectEvent(context.Background(), admin, req.ID, "too late")
	assert.ErrorIs(t, err, domain.ErrAlreadyDecided)

	// the kind must match the endpoint
	_, err = f.svc.ApproveOrganizer(context.Background(), admin, req.ID, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrganizerRequestLifecycle(t *testing.T) {
	f := newFixture(t)
	u := student()

	req, err := f.svc.RequestOrganizer(context.Background(), u, "I run the robotics club")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalPending, req.Status)
	assert.Equal(t, u.UserID, req.SubjectID)

	_, err = f.svc.RequestOrganizer(context.Background(), u, "again")
	assert.ErrorIs(t, err, domain.ErrAlreadyPending)

	_, err = f.svc.RequestOrganizer(context.Background(), organizer, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	pending, err := f.svc.ListApprovals(context.Background(), admin, domain.ApprovalOrganizer, domain.ApprovalPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].ID)

	_, err = f.svc.ListApprovals(context.Background(), u, "", "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	out, err := f.svc.RejectOrganizer(context.Background(), admin, req.ID, "not a registered club")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalRejected, out.Status)

	outbox := f.store.Outbox()
	require.NotEmpty(t, outbox)
	assert.Equal(t, messages.OrganizerRejected, outbox[len(outbox)-1].RoutingKey)

	// a rejected applicant may ask again
	_, err = f.svc.RequestOrganizer(context.Background(), u, "club is now registered")
	assert.NoError(t, err)
}
