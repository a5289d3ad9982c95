package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/terpspark/admission-service/internal/contracts/messages"
	"github.com/terpspark/admission-service/internal/domain"
	"github.com/terpspark/admission-service/internal/metrics"
)

// RequestOrganizer files a student's request for organizer rights.
func (s *Service) RequestOrganizer(ctx context.Context, actor domain.Actor, reason string) (domain.ApprovalRequest, error) {
	if actor.CanOrganize() {
		return domain.ApprovalRequest{}, domain.Invalid("role", "already an organizer")
	}
	if len(strings.TrimSpace(reason)) > 1000 {
		return domain.ApprovalRequest{}, domain.Invalid("reason", "at most 1000 characters")
	}

	var out domain.ApprovalRequest
	err := s.atomic(ctx, "request_organizer", func(ctx context.Context, tx domain.Tx) error {
		pending, err := tx.PendingApprovalFor(ctx, domain.ApprovalOrganizer, actor.UserID)
		if err != nil {
			return err
		}
		if pending != nil {
			return domain.ErrAlreadyPending
		}

		out = domain.NewApprovalRequest(domain.ApprovalOrganizer, actor.UserID, actor.UserID, reason, s.now())
		if err := tx.InsertApproval(ctx, out); err != nil {
			return err
		}
		return s.appendAudit(ctx, tx, domain.ActionOrganizerRequested, actor, "approval", out.ID, "requested organizer access")
	})
	return out, err
}

func (s *Service) ListApprovals(ctx context.Context, actor domain.Actor, kind domain.ApprovalKind, status domain.ApprovalStatus) ([]domain.ApprovalRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var out []domain.ApprovalRequest
	err := s.run(ctx, "list_approvals", func(ctx context.Context) error {
		var err error
		out, err = s.store.ListApprovals(ctx, kind, status)
		return err
	})
	return out, err
}

func (s *Service) ApproveOrganizer(ctx context.Context, actor domain.Actor, id uuid.UUID, notes string) (domain.ApprovalRequest, error) {
	return s.decide(ctx, actor, domain.ApprovalOrganizer, id, domain.ApprovalApproved, notes)
}

func (s *Service) RejectOrganizer(ctx context.Context, actor domain.Actor, id uuid.UUID, notes string) (domain.ApprovalRequest, error) {
	return s.decide(ctx, actor, domain.ApprovalOrganizer, id, domain.ApprovalRejected, notes)
}

// ApproveEvent publishes the submitted event in the same unit of work.
func (s *Service) ApproveEvent(ctx context.Context, actor domain.Actor, id uuid.UUID, notes string) (domain.ApprovalRequest, error) {
	return s.decide(ctx, actor, domain.ApprovalEvent, id, domain.ApprovalApproved, notes)
}

func (s *Service) RejectEvent(ctx context.Context, actor domain.Actor, id uuid.UUID, notes string) (domain.ApprovalRequest, error) {
	return s.decide(ctx, actor, domain.ApprovalEvent, id, domain.ApprovalRejected, notes)
}

func (s *Service) decide(ctx context.Context, actor domain.Actor, kind domain.ApprovalKind, id uuid.UUID, to domain.ApprovalStatus, notes string) (domain.ApprovalRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.ApprovalRequest{}, err
	}
	if to == domain.ApprovalRejected {
		if err := domain.ValidateRejection(notes); err != nil {
			return domain.ApprovalRequest{}, err
		}
	}

	var (
		out         domain.ApprovalRequest
		eventStatus domain.EventStatus
	)
	err := s.atomic(ctx, "decide_"+string(kind), func(ctx context.Context, tx domain.Tx) error {
		req, err := tx.GetApproval(ctx, id)
		if err != nil {
			return err
		}
		if req.Kind != kind {
			return domain.ErrNotFound
		}

		// lock order: event before its approval request
		var ev domain.Event
		if kind == domain.ApprovalEvent {
			if ev, err = tx.LockEvent(ctx, req.SubjectID); err != nil {
				return err
			}
		}
		if req, err = tx.LockApproval(ctx, id); err != nil {
			return err
		}

		now := s.now()
		if to == domain.ApprovalApproved {
			err = req.Approve(actor.UserID, notes, now)
		} else {
			err = req.Reject(actor.UserID, notes, now)
		}
		if err != nil {
			return err
		}
		if err := tx.UpdateApproval(ctx, req); err != nil {
			return err
		}

		if kind == domain.ApprovalEvent {
			if to == domain.ApprovalApproved {
				err = ev.Publish(now)
			} else {
				err = ev.Reject(now)
			}
			if err != nil {
				return err
			}
			if err := tx.UpdateEvent(ctx, ev); err != nil {
				return err
			}
			eventStatus = ev.Status
		}

		details := fmt.Sprintf("%s request %s", kind, req.Status)
		if req.Notes != "" {
			details += ": " + req.Notes
		}
		if err := s.appendAudit(ctx, tx, req.DecisionAction(), actor, "approval", req.ID, details); err != nil {
			return err
		}
		if err := s.enqueue(ctx, tx, decisionRoutingKey(req), messages.DecisionPayload{
			RequestID: req.ID.String(),
			Kind:      string(req.Kind),
			SubjectID: req.SubjectID.String(),
			DecidedBy: actor.UserID.String(),
			Notes:     req.Notes,
		}); err != nil {
			return err
		}

		out = req
		return nil
	})
	if err != nil {
		return domain.ApprovalRequest{}, err
	}

	if kind == domain.ApprovalEvent {
		s.rememberStatus(ctx, out.SubjectID, eventStatus)
	}
	s.audit.Decided(ctx, out)
	metrics.RecordApproval(string(kind), string(out.Status))
	return out, nil
}

func decisionRoutingKey(r domain.ApprovalRequest) string {
	switch r.DecisionAction() {
	case domain.ActionOrganizerApproved:
		return messages.OrganizerApproved
	case domain.ActionOrganizerRejected:
		return messages.OrganizerRejected
	case domain.ActionEventApproved:
		return messages.EventApproved
	default:
		return messages.EventRejected
	}
}
