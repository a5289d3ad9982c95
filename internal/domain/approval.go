package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ApprovalKind string

const (
	ApprovalOrganizer ApprovalKind = "organizer"
	ApprovalEvent     ApprovalKind = "event"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ApprovalRequest is an organizer-account request or an event submission.
// SubjectID is the applicant for organizer requests and the event for
// event submissions.
type ApprovalRequest struct {
	ID          uuid.UUID      `json:"id"`
	Kind        ApprovalKind   `json:"kind"`
	SubjectID   uuid.UUID      `json:"subject_id"`
	SubmittedBy uuid.UUID      `json:"submitted_by"`
	Reason      string         `json:"reason,omitempty"`
	Status      ApprovalStatus `json:"status"`
	Notes       string         `json:"notes,omitempty"`
	SubmittedAt time.Time      `json:"submitted_at"`
	DecidedAt   *time.Time     `json:"decided_at,omitempty"`
	DecidedBy   *uuid.UUID     `json:"decided_by,omitempty"`
}

func NewApprovalRequest(kind ApprovalKind, subject, submittedBy uuid.UUID, reason string, now time.Time) ApprovalRequest {
	return ApprovalRequest{
		ID:          uuid.New(),
		Kind:        kind,
		SubjectID:   subject,
		SubmittedBy: submittedBy,
		Reason:      strings.TrimSpace(reason),
		Status:      ApprovalPending,
		SubmittedAt: now.UTC(),
	}
}

// ValidateRejection is the reject-side precondition. It runs before any
// store access.
func ValidateRejection(notes string) error {
	if strings.TrimSpace(notes) == "" {
		return ErrMissingRejectionReason
	}
	return nil
}

func (r *ApprovalRequest) Approve(by uuid.UUID, notes string, now time.Time) error {
	return r.decide(ApprovalApproved, by, notes, now)
}

func (r *ApprovalRequest) Reject(by uuid.UUID, notes string, now time.Time) error {
	if err := ValidateRejection(notes); err != nil {
		return err
	}
	return r.decide(ApprovalRejected, by, notes, now)
}

func (r *ApprovalRequest) decide(to ApprovalStatus, by uuid.UUID, notes string, now time.Time) error {
	if r.Status != ApprovalPending {
		return ErrAlreadyDecided
	}
	t := now.UTC()
	r.Status = to
	r.Notes = strings.TrimSpace(notes)
	r.DecidedAt = &t
	r.DecidedBy = &by
	return nil
}

// DecisionAction maps a decided request onto its audit action.
func (r ApprovalRequest) DecisionAction() AuditAction {
	switch {
	case r.Kind == ApprovalOrganizer && r.Status == ApprovalApproved:
		return ActionOrganizerApproved
	case r.Kind == ApprovalOrganizer && r.Status == ApprovalRejected:
		return ActionOrganizerRejected
	case r.Kind == ApprovalEvent && r.Status == ApprovalApproved:
		return ActionEventApproved
	case r.Kind == ApprovalEvent && r.Status == ApprovalRejected:
		return ActionEventRejected
	}
	return ""
}
