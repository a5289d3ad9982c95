package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/terpspark/admission-service/internal/domain"
	"github.com/terpspark/admission-service/internal/pkg/session"
)

// Logger writes business events to the structured log stream. The durable
// record lives in the audit_logs table; this stream is for operators.
type Logger struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// Nop discards everything.
func Nop() *Logger { return New(zerolog.Nop()) }

func (l *Logger) RegistrationCreated(ctx context.Context, r domain.Registration) {
	l.log.Info().
		Str("action", "registration_created").
		Str("event_id", r.EventID.String()).
		Str("user_id", r.UserID.String()).
		Str("registration_id", r.ID.String()).
		Int("guests", len(r.Guests)).
		Str("trace_id", session.RequestID(ctx)).
		Msg("User registered for event")
}

func (l *Logger) RegistrationCancelled(ctx context.Context, r domain.Registration, promoted int) {
	l.log.Info().
		Str("action", "registration_cancelled").
		Str("event_id", r.EventID.String()).
		Str("user_id", r.UserID.String()).
		Str("registration_id", r.ID.String()).
		Int("promoted", promoted).
		Str("trace_id", session.RequestID(ctx)).
		Msg("User cancelled registration")
}

func (l *Logger) WaitlistJoined(ctx context.Context, w domain.WaitlistEntry) {
	l.log.Info().
		Str("action", "waitlist_joined").
		Str("event_id", w.EventID.String()).
		Str("user_id", w.UserID.String()).
		Int("position", w.Position).
		Str("trace_id", session.RequestID(ctx)).
		Msg("User joined waitlist")
}

func (l *Logger) WaitlistLeft(ctx context.Context, w domain.WaitlistEntry, shifted int) {
	l.log.Info().
		Str("action", "waitlist_left").
		Str("event_id", w.EventID.String()).
		Str("user_id", w.UserID.String()).
		Int("position", w.Position).
		Int("shifted", shifted).
		Str("trace_id", session.RequestID(ctx)).
		Msg("User left waitlist")
}

func (l *Logger) Promoted(ctx context.Context, eventID, userID uuid.UUID) {
	l.log.Info().
		Str("action", "promoted").
		Str("event_id", eventID.String()).
		Str("user_id", userID.String()).
		Str("trace_id", session.RequestID(ctx)).
		Msg("User promoted from waitlist")
}

func (l *Logger) Decided(ctx context.Context, a domain.ApprovalRequest) {
	ev := l.log.Info()
	if a.Status == domain.ApprovalRejected {
		ev = l.log.Warn()
	}
	ev.Str("action", string(a.DecisionAction())).
		Str("request_id", a.ID.String()).
		Str("subject_id", a.SubjectID.String()).
		Str("decided_by", uuidStr(a.DecidedBy)).
		Str("notes", a.Notes).
		Str("trace_id", session.RequestID(ctx)).
		Msg("Approval request decided")
}

func (l *Logger) EventCancelled(ctx context.Context, eventID, actorID uuid.UUID, registrations, waitlisted int) {
	l.log.Warn().
		Str("action", "event_cancelled").
		Str("event_id", eventID.String()).
		Str("actor_user_id", actorID.String()).
		Int("registrations", registrations).
		Int("waitlisted", waitlisted).
		Str("trace_id", session.RequestID(ctx)).
		Msg("Event cancelled")
}

func (l *Logger) CheckedIn(ctx context.Context, r domain.Registration, source string) {
	l.log.Info().
		Str("action", "checked_in").
		Str("event_id", r.EventID.String()).
		Str("user_id", r.UserID.String()).
		Str("ticket_code", r.TicketCode).
		Str("source", source).
		Str("trace_id", session.RequestID(ctx)).
		Msg("Attendee checked in")
}

func (l *Logger) OutboxMessageSent(ctx context.Context, messageID, routingKey string) {
	l.log.Debug().
		Str("action", "outbox_sent").
		Str("message_id", messageID).
		Str("routing_key", routingKey).
		Msg("Outbox message sent")
}

func (l *Logger) OutboxMessageDead(ctx context.Context, messageID, routingKey string, retries int) {
	l.log.Error().
		Str("action", "outbox_dead").
		Str("message_id", messageID).
		Str("routing_key", routingKey).
		Int("retries", retries).
		Msg("Outbox message moved to dead status")
}

func uuidStr(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
