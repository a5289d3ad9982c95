package service

import (
	"context"

	"github.com/terpspark/admission-service/internal/domain"
)

// AuditLogs pages the audit trail, newest first. Admins only.
func (s *Service) AuditLogs(ctx context.Context, actor domain.Actor, f domain.AuditFilter) ([]domain.AuditLogEntry, *domain.KeysetCursor, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, nil, err
	}
	if f.Action != "" && !f.Action.Valid() {
		return nil, nil, domain.Invalid("action", "unknown audit action")
	}

	var (
		out  []domain.AuditLogEntry
		next *domain.KeysetCursor
	)
	err := s.run(ctx, "audit_logs", func(ctx context.Context) error {
		var err error
		out, next, err = s.store.ListAuditLogs(ctx, f)
		return err
	})
	return out, next, err
}
