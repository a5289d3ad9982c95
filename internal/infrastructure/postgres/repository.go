package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/terpspark/admission-service/internal/contracts/messages"
	"github.com/terpspark/admission-service/internal/domain"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every read runs
// the same SQL inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	queries
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{queries: queries{db: pool}, pool: pool}
}

var _ domain.Store = (*Repository)(nil)

// -------------------------
// Deadlock policy:
// Always lock in this order (for the same event_id):
//   1) events row (FOR UPDATE)
//   2) registrations / approval_requests rows for that event
//   3) waitlist_entries rows
// Every admission path takes the event row first, so two requests for the
// same event queue on it instead of crossing.
// -------------------------

// Atomic runs fn in one transaction. fn's error, or a failed commit, rolls
// everything back.
func (r *Repository) Atomic(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &txStore{queries: queries{db: tx}, tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txStore struct {
	queries
	tx pgx.Tx
}

var _ domain.Tx = (*txStore)(nil)

func (t *txStore) LockEvent(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	return t.getEvent(ctx, id, true)
}

func (t *txStore) LockApproval(ctx context.Context, id uuid.UUID) (domain.ApprovalRequest, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+approvalColumns+` FROM approval_requests WHERE id = $1 FOR UPDATE`, id)
	a, err := scanApproval(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ApprovalRequest{}, domain.ErrNotFound
	}
	return a, err
}

func (t *txStore) InsertEvent(ctx context.Context, e domain.Event) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO events (id, title, description, category_slug, venue_id, starts_at, ends_at,
		                    capacity, registered_count, waitlist_count, status, organizer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, e.ID, e.Title, e.Description, e.Category.Slug(), e.VenueID, e.StartsAt, e.EndsAt,
		e.Capacity, e.RegisteredCount, e.WaitlistCount, string(e.Status), e.OrganizerID, e.CreatedAt, e.UpdatedAt)
	return err
}

func (t *txStore) UpdateEvent(ctx context.Context, e domain.Event) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE events
		SET title = $2, description = $3, category_slug = $4, venue_id = $5,
		    starts_at = $6, ends_at = $7, capacity = $8,
		    registered_count = $9, waitlist_count = $10, status = $11, updated_at = $12
		WHERE id = $1
	`, e.ID, e.Title, e.Description, e.Category.Slug(), e.VenueID, e.StartsAt, e.EndsAt,
		e.Capacity, e.RegisteredCount, e.WaitlistCount, string(e.Status), e.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (t *txStore) InsertRegistration(ctx context.Context, r domain.Registration) error {
	guests, err := json.Marshal(nonNil(r.Guests))
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO registrations (id, user_id, event_id, status, guests, sessions, ticket_code, qr_payload,
		                           checked_in, checked_in_at, registered_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, r.ID, r.UserID, r.EventID, string(r.Status), guests, nonNil(r.Sessions), r.TicketCode, r.QRPayload,
		r.CheckedIn, r.CheckedInAt, r.RegisteredAt, r.CancelledAt)
	if isUniqueViolation(err, "uq_registrations_confirmed") {
		return fmt.Errorf("insert registration: %w", domain.ErrAlreadyRegistered)
	}
	return err
}

func (t *txStore) UpdateRegistration(ctx context.Context, r domain.Registration) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE registrations
		SET status = $2, checked_in = $3, checked_in_at = $4, cancelled_at = $5
		WHERE id = $1
	`, r.ID, string(r.Status), r.CheckedIn, r.CheckedInAt, r.CancelledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *txStore) InsertWaitlistEntry(ctx context.Context, w domain.WaitlistEntry) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO waitlist_entries (id, user_id, event_id, position, notification_preference, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, w.ID, w.UserID, w.EventID, w.Position, string(w.NotificationPreference), w.JoinedAt)
	if isUniqueViolation(err, "waitlist_entries_event_id_user_id_key") {
		return fmt.Errorf("insert waitlist entry: %w", domain.ErrAlreadyWaitlisted)
	}
	return err
}

func (t *txStore) DeleteWaitlistEntry(ctx context.Context, id uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM waitlist_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetWaitlistPositions relies on the deferred (event_id, position) constraint:
// intermediate duplicates are fine as long as the final order is dense.
func (t *txStore) SetWaitlistPositions(ctx context.Context, changes []domain.PositionChange) error {
	if len(changes) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range changes {
		batch.Queue(`UPDATE waitlist_entries SET position = $2 WHERE id = $1`, c.ID, c.Position)
	}
	br := t.tx.SendBatch(ctx, batch)
	defer br.Close()
	for range changes {
		tag, err := br.Exec()
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
	}
	return br.Close()
}

func (t *txStore) InsertApproval(ctx context.Context, a domain.ApprovalRequest) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO approval_requests (id, kind, subject_id, submitted_by, reason, status, notes,
		                               submitted_at, decided_at, decided_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, a.ID, string(a.Kind), a.SubjectID, a.SubmittedBy, a.Reason, string(a.Status), a.Notes,
		a.SubmittedAt, a.DecidedAt, a.DecidedBy)
	if isUniqueViolation(err, "uq_approval_pending") {
		return domain.ErrAlreadyPending
	}
	return err
}

func (t *txStore) UpdateApproval(ctx context.Context, a domain.ApprovalRequest) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE approval_requests
		SET status = $2, notes = $3, decided_at = $4, decided_by = $5
		WHERE id = $1
	`, a.ID, string(a.Status), a.Notes, a.DecidedAt, a.DecidedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *txStore) InsertCategory(ctx context.Context, c domain.Category) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO categories (id, name, slug, color, active) VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.Name, c.Slug, c.Color, c.Active)
	if isUniqueViolation(err, "categories_slug_key") {
		return domain.Invalid("slug", "already in use")
	}
	return err
}

func (t *txStore) UpdateCategory(ctx context.Context, c domain.Category) error {
	tag, err := t.tx.Exec(ctx, `UPDATE categories SET name = $2, color = $3, active = $4 WHERE id = $1`,
		c.ID, c.Name, c.Color, c.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *txStore) InsertVenue(ctx context.Context, v domain.Venue) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO venues (id, name, building, capacity, active) VALUES ($1, $2, $3, $4, $5)
	`, v.ID, v.Name, v.Building, v.Capacity, v.Active)
	return err
}

func (t *txStore) UpdateVenue(ctx context.Context, v domain.Venue) error {
	tag, err := t.tx.Exec(ctx, `UPDATE venues SET name = $2, building = $3, capacity = $4, active = $5 WHERE id = $1`,
		v.ID, v.Name, v.Building, v.Capacity, v.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *txStore) AppendAudit(ctx context.Context, e domain.AuditLogEntry) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO audit_logs (id, action, actor_id, target_id, target_type, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, string(e.Action), e.ActorID, e.TargetID, e.TargetType, e.Details, e.CreatedAt)
	return err
}

// Enqueue writes one outbox row; the outbox worker publishes it after commit.
func (t *txStore) Enqueue(ctx context.Context, traceID, routingKey string, payload any) error {
	id := uuid.New()
	now := time.Now().UTC()
	body, err := json.Marshal(messages.New(id, traceID, now, payload))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", routingKey, err)
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO outbox (message_id, trace_id, routing_key, payload, occurred_at, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
	`, id, traceID, routingKey, body, now)
	return err
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
