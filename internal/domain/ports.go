package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Queries are the reads shared by the store and its transactions.
// Lookups of a single optional row return (nil, nil) when absent.
type Queries interface {
	GetEvent(ctx context.Context, id uuid.UUID) (Event, error)
	ListEvents(ctx context.Context, f EventFilter) ([]Event, *KeysetCursor, error)

	GetRegistration(ctx context.Context, id uuid.UUID) (Registration, error)
	ActiveRegistration(ctx context.Context, eventID, userID uuid.UUID) (*Registration, error)
	RegistrationByTicket(ctx context.Context, eventID uuid.UUID, code string) (Registration, error)
	ListUserRegistrations(ctx context.Context, userID uuid.UUID) ([]Registration, error)
	ListActiveRegistrations(ctx context.Context, eventID uuid.UUID) ([]Registration, error)

	GetWaitlistEntry(ctx context.Context, id uuid.UUID) (WaitlistEntry, error)
	WaitlistEntryFor(ctx context.Context, eventID, userID uuid.UUID) (*WaitlistEntry, error)
	ListEventWaitlist(ctx context.Context, eventID uuid.UUID) ([]WaitlistEntry, error)
	ListUserWaitlist(ctx context.Context, userID uuid.UUID) ([]WaitlistEntry, error)

	GetApproval(ctx context.Context, id uuid.UUID) (ApprovalRequest, error)
	ListApprovals(ctx context.Context, kind ApprovalKind, status ApprovalStatus) ([]ApprovalRequest, error)
	PendingApprovalFor(ctx context.Context, kind ApprovalKind, subjectID uuid.UUID) (*ApprovalRequest, error)

	ListAuditLogs(ctx context.Context, f AuditFilter) ([]AuditLogEntry, *KeysetCursor, error)

	ListCategories(ctx context.Context, activeOnly bool) ([]Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (Category, error)
	CategoryBySlug(ctx context.Context, slug string) (Category, error)
	ListVenues(ctx context.Context, activeOnly bool) ([]Venue, error)
	GetVenue(ctx context.Context, id uuid.UUID) (Venue, error)
}

// Tx is one atomic unit of work. Everything written through it commits
// together or not at all.
type Tx interface {
	Queries

	// LockEvent serializes all admission work on one event until the
	// transaction ends. Lock order: event, then its registrations, then its
	// waitlist.
	LockEvent(ctx context.Context, id uuid.UUID) (Event, error)
	LockApproval(ctx context.Context, id uuid.UUID) (ApprovalRequest, error)

	InsertEvent(ctx context.Context, e Event) error
	UpdateEvent(ctx context.Context, e Event) error

	InsertRegistration(ctx context.Context, r Registration) error
	UpdateRegistration(ctx context.Context, r Registration) error

	InsertWaitlistEntry(ctx context.Context, w WaitlistEntry) error
	DeleteWaitlistEntry(ctx context.Context, id uuid.UUID) error
	SetWaitlistPositions(ctx context.Context, changes []PositionChange) error

	InsertApproval(ctx context.Context, a ApprovalRequest) error
	UpdateApproval(ctx context.Context, a ApprovalRequest) error

	InsertCategory(ctx context.Context, c Category) error
	UpdateCategory(ctx context.Context, c Category) error
	InsertVenue(ctx context.Context, v Venue) error
	UpdateVenue(ctx context.Context, v Venue) error

	AppendAudit(ctx context.Context, e AuditLogEntry) error

	// Enqueue writes an outbound message to the outbox in the same transaction.
	Enqueue(ctx context.Context, traceID, routingKey string, payload any) error

	// MarkProcessed fences inbound messages. It returns false for duplicates.
	MarkProcessed(ctx context.Context, messageID, handler string) (bool, error)
}

type Store interface {
	Queries
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Cache fronts hot event lookups and the rate limiter.
type Cache interface {
	GetEventStatus(ctx context.Context, eventID uuid.UUID) (EventStatus, error)
	SetEventStatus(ctx context.Context, eventID uuid.UUID, status EventStatus) error
	InvalidateEvent(ctx context.Context, eventID uuid.UUID) error

	AllowRequest(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
