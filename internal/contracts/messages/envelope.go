package messages

import (
	"time"

	"github.com/google/uuid"
)

const (
	EnvelopeVersion = 1
	Producer        = "admission-service"
)

// Outbound routing keys.
const (
	RegistrationCreated   = "registration.created"
	RegistrationCancelled = "registration.cancelled"
	WaitlistJoined        = "waitlist.joined"
	WaitlistLeft          = "waitlist.left"
	WaitlistPromoted      = "waitlist.promoted"
	EventApproved         = "event.approved"
	EventRejected         = "event.rejected"
	EventCancelled        = "event.cancelled"
	OrganizerApproved     = "organizer.approved"
	OrganizerRejected     = "organizer.rejected"
)

// Inbound.
const (
	CheckInScanned = "checkin.scanned"
	CheckInQueue   = "terpspark.checkin-scans"
)

// Envelope is the canonical wrapper on every message this service sends or
// accepts. message_id is the dedupe key on the consumer side.
type Envelope[T any] struct {
	Version    int       `json:"version"`
	Producer   string    `json:"producer"`
	TraceID    string    `json:"trace_id,omitempty"`
	MessageID  string    `json:"message_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    T         `json:"payload"`
}

func New[T any](messageID uuid.UUID, traceID string, occurredAt time.Time, payload T) Envelope[T] {
	return Envelope[T]{
		Version:    EnvelopeVersion,
		Producer:   Producer,
		TraceID:    traceID,
		MessageID:  messageID.String(),
		OccurredAt: occurredAt.UTC(),
		Payload:    payload,
	}
}

type RegistrationPayload struct {
	RegistrationID string `json:"registration_id"`
	EventID        string `json:"event_id"`
	UserID         string `json:"user_id"`
	TicketCode     string `json:"ticket_code,omitempty"`
	Attendees      int    `json:"attendees"`
	Reason         string `json:"reason,omitempty"`
}

type WaitlistPayload struct {
	WaitlistID             string `json:"waitlist_id"`
	EventID                string `json:"event_id"`
	UserID                 string `json:"user_id"`
	Position               int    `json:"position,omitempty"`
	NotificationPreference string `json:"notification_preference,omitempty"`
	RegistrationID         string `json:"registration_id,omitempty"`
}

type DecisionPayload struct {
	RequestID string `json:"request_id"`
	Kind      string `json:"kind"`
	SubjectID string `json:"subject_id"`
	DecidedBy string `json:"decided_by"`
	Notes     string `json:"notes,omitempty"`
}

type EventCancelledPayload struct {
	EventID       string   `json:"event_id"`
	CancelledBy   string   `json:"cancelled_by"`
	AffectedUsers []string `json:"affected_users"`
}

// CheckInScannedPayload comes from door scanners.
// Keep fields tolerant: extra fields from producer are ignored by json.Unmarshal.
type CheckInScannedPayload struct {
	TicketCode string    `json:"ticket_code"`
	EventID    string    `json:"event_id"`
	ScannedAt  time.Time `json:"scanned_at"`
	ScannerID  string    `json:"scanner_id,omitempty"`
}
