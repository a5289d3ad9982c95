package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	ActionUserLogin             AuditAction = "USER_LOGIN"
	ActionUserLogout            AuditAction = "USER_LOGOUT"
	ActionRoleChanged           AuditAction = "ROLE_CHANGED"
	ActionOrganizerRequested    AuditAction = "ORGANIZER_REQUESTED"
	ActionOrganizerApproved     AuditAction = "ORGANIZER_APPROVED"
	ActionOrganizerRejected     AuditAction = "ORGANIZER_REJECTED"
	ActionEventSubmitted        AuditAction = "EVENT_SUBMITTED"
	ActionEventApproved         AuditAction = "EVENT_APPROVED"
	ActionEventRejected         AuditAction = "EVENT_REJECTED"
	ActionEventCancelled        AuditAction = "EVENT_CANCELLED"
	ActionRegistrationCreated   AuditAction = "REGISTRATION_CREATED"
	ActionRegistrationCancelled AuditAction = "REGISTRATION_CANCELLED"
	ActionWaitlistJoined        AuditAction = "WAITLIST_JOINED"
	ActionWaitlistLeft          AuditAction = "WAITLIST_LEFT"
	ActionWaitlistPromoted      AuditAction = "WAITLIST_PROMOTED"
	ActionAttendeeCheckedIn     AuditAction = "ATTENDEE_CHECKED_IN"
	ActionCategoryCreated       AuditAction = "CATEGORY_CREATED"
	ActionCategoryToggled       AuditAction = "CATEGORY_TOGGLED"
	ActionVenueCreated          AuditAction = "VENUE_CREATED"
	ActionVenueToggled          AuditAction = "VENUE_TOGGLED"
)

var auditActions = map[AuditAction]struct{}{
	ActionUserLogin: {}, ActionUserLogout: {}, ActionRoleChanged: {},
	ActionOrganizerRequested: {}, ActionOrganizerApproved: {}, ActionOrganizerRejected: {},
	ActionEventSubmitted: {}, ActionEventApproved: {}, ActionEventRejected: {}, ActionEventCancelled: {},
	ActionRegistrationCreated: {}, ActionRegistrationCancelled: {},
	ActionWaitlistJoined: {}, ActionWaitlistLeft: {}, ActionWaitlistPromoted: {},
	ActionAttendeeCheckedIn: {},
	ActionCategoryCreated: {}, ActionCategoryToggled: {},
	ActionVenueCreated: {}, ActionVenueToggled: {},
}

func (a AuditAction) Valid() bool {
	_, ok := auditActions[a]
	return ok
}

// AuditLogEntry is append-only. A nil ActorID means the system acted.
type AuditLogEntry struct {
	ID         uuid.UUID   `json:"id"`
	Action     AuditAction `json:"action"`
	ActorID    *uuid.UUID  `json:"actor_id,omitempty"`
	TargetID   *uuid.UUID  `json:"target_id,omitempty"`
	TargetType string      `json:"target_type,omitempty"`
	Details    string      `json:"details"`
	CreatedAt  time.Time   `json:"created_at"`
}

func NewAuditEntry(action AuditAction, actor *uuid.UUID, targetType string, target *uuid.UUID, details string, now time.Time) AuditLogEntry {
	return AuditLogEntry{
		ID:         uuid.New(),
		Action:     action,
		ActorID:    actor,
		TargetID:   target,
		TargetType: targetType,
		Details:    details,
		CreatedAt:  now.UTC(),
	}
}

type AuditFilter struct {
	Action   AuditAction
	ActorID  *uuid.UUID
	TargetID *uuid.UUID
	Search   string
	From     *time.Time
	To       *time.Time
	Limit    int
	Cursor   *KeysetCursor
}
