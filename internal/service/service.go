package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/terpspark/admission-service/internal/audit"
	"github.com/terpspark/admission-service/internal/domain"
	"github.com/terpspark/admission-service/internal/pkg/logger"
	"github.com/terpspark/admission-service/internal/pkg/session"
)

const DefaultTimeout = 5 * time.Second

// Service owns the admission rules. Every mutation runs inside one
// store.Atomic call, under the per-event lock, and under a deadline.
type Service struct {
	store   domain.Store
	cache   domain.Cache
	audit   *audit.Logger
	guests  domain.GuestPolicy
	timeout time.Duration
	now     func() time.Time
}

type Option func(*Service)

// WithCache enables the event status fast path. A nil cache disables it.
func WithCache(c domain.Cache) Option { return func(s *Service) { s.cache = c } }

func WithAuditLogger(l *audit.Logger) Option { return func(s *Service) { s.audit = l } }

func WithGuestPolicy(p domain.GuestPolicy) Option { return func(s *Service) { s.guests = p } }

func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func New(store domain.Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		audit:   audit.Nop(),
		guests:  domain.DefaultGuestPolicy(),
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// errors callers can act on; anything else is reported as an operation failure.
var businessErrors = []error{
	domain.ErrEventNotFound, domain.ErrEventNotOpen, domain.ErrNotFound, domain.ErrForbidden,
	domain.ErrAlreadyRegistered, domain.ErrAlreadyWaitlisted, domain.ErrInsufficientCapacity,
	domain.ErrMissingName, domain.ErrMissingEmail, domain.ErrInvalidGuestDomain, domain.ErrGuestLimitExceeded,
	domain.ErrMissingRejectionReason, domain.ErrAlreadyDecided, domain.ErrAlreadyPending, domain.ErrEventNotPending,
	domain.ErrAlreadyCheckedIn, domain.ErrNotConfirmed, domain.ErrValidation,
}

// run applies the operation deadline and normalizes the error.
func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := fn(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logger.WithCtx(ctx).Warn().Str("op", op).Dur("timeout", s.timeout).Msg("operation timed out")
		return fmt.Errorf("%s: %w", op, domain.ErrTimeout)
	}
	for _, be := range businessErrors {
		if errors.Is(err, be) {
			return err
		}
	}
	logger.WithCtx(ctx).Error().Err(err).Str("op", op).Msg("operation failed")
	return domain.OperationFailed(op, err)
}

func (s *Service) atomic(ctx context.Context, op string, fn func(ctx context.Context, tx domain.Tx) error) error {
	return s.run(ctx, op, func(ctx context.Context) error {
		return s.store.Atomic(ctx, fn)
	})
}

func (s *Service) appendAudit(ctx context.Context, tx domain.Tx, action domain.AuditAction, actor domain.Actor, targetType string, target uuid.UUID, details string) error {
	var actorID *uuid.UUID
	if actor.UserID != uuid.Nil {
		id := actor.UserID
		actorID = &id
	}
	return tx.AppendAudit(ctx, domain.NewAuditEntry(action, actorID, targetType, &target, details, s.now()))
}

func (s *Service) enqueue(ctx context.Context, tx domain.Tx, routingKey string, payload any) error {
	return tx.Enqueue(ctx, session.RequestID(ctx), routingKey, payload)
}

// rememberStatus refreshes the cached event status. Cache errors only log.
func (s *Service) rememberStatus(ctx context.Context, eventID uuid.UUID, status domain.EventStatus) {
	if s.cache == nil || status == "" {
		return
	}
	if err := s.cache.SetEventStatus(ctx, eventID, status); err != nil {
		logger.WithCtx(ctx).Warn().Err(err).Str("event_id", eventID.String()).Msg("cache set failed")
	}
}

func (s *Service) forgetStatus(ctx context.Context, eventID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateEvent(ctx, eventID); err != nil {
		logger.WithCtx(ctx).Warn().Err(err).Str("event_id", eventID.String()).Msg("cache invalidate failed")
	}
}

func requireAdmin(a domain.Actor) error {
	if !a.IsAdmin() {
		return domain.ErrForbidden
	}
	return nil
}

func ownsOrAdmin(a domain.Actor, owner uuid.UUID) bool {
	return a.IsAdmin() || a.UserID == owner
}
