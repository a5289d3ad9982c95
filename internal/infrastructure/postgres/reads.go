package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/terpspark/admission-service/internal/domain"
)

type queries struct {
	db querier
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches s literally anywhere in the column.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// events carry their category as a slug; the join resolves it when the
// category still exists.
const eventSelect = `
	SELECT e.id, e.title, e.description, e.category_slug, c.id, c.name, c.color, c.active,
	       e.venue_id, e.starts_at, e.ends_at, e.capacity, e.registered_count, e.waitlist_count,
	       e.status, e.organizer_id, e.created_at, e.updated_at
	FROM events e
	LEFT JOIN categories c ON c.slug = e.category_slug`

func scanEvent(row pgx.Row) (domain.Event, error) {
	var (
		e       domain.Event
		slug    string
		catID   *uuid.UUID
		catName *string
		color   *string
		active  *bool
		status  string
	)
	if err := row.Scan(&e.ID, &e.Title, &e.Description, &slug, &catID, &catName, &color, &active,
		&e.VenueID, &e.StartsAt, &e.EndsAt, &e.Capacity, &e.RegisteredCount, &e.WaitlistCount,
		&status, &e.OrganizerID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return domain.Event{}, err
	}
	e.Status = domain.EventStatus(status)
	if catID != nil {
		e.Category = domain.ResolvedCategory(domain.Category{
			ID: *catID, Name: deref(catName), Slug: slug, Color: deref(color), Active: active != nil && *active,
		})
	} else {
		e.Category = domain.CategorySlug(slug)
	}
	return e, nil
}

func (q queries) getEvent(ctx context.Context, id uuid.UUID, lock bool) (domain.Event, error) {
	sql := eventSelect + ` WHERE e.id = $1`
	if lock {
		sql += ` FOR UPDATE OF e`
	}
	e, err := scanEvent(q.db.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return e, err
}

func (q queries) GetEvent(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	return q.getEvent(ctx, id, false)
}

// ListEvents: ORDER BY starts_at ASC, id ASC
// cursor means "start after this item" -> WHERE (starts_at, id) > (cursor.at, cursor.id)
func (q queries) ListEvents(ctx context.Context, f domain.EventFilter) ([]domain.Event, *domain.KeysetCursor, error) {
	limit := clampLimit(f.Limit)
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != "" {
		where = append(where, "e.status = "+arg(string(f.Status)))
	}
	if f.Category != "" {
		where = append(where, "e.category_slug = "+arg(f.Category))
	}
	if f.From != nil {
		where = append(where, "e.starts_at >= "+arg(*f.From))
	}
	if f.To != nil {
		where = append(where, "e.starts_at <= "+arg(*f.To))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := arg(containsPattern(s))
		where = append(where, fmt.Sprintf(`(e.title ILIKE %s ESCAPE '\' OR e.description ILIKE %s ESCAPE '\')`, p, p))
	}
	if f.Cursor != nil {
		where = append(where, fmt.Sprintf("(e.starts_at, e.id) > (%s, %s)", arg(f.Cursor.At), arg(f.Cursor.ID)))
	}

	sql := eventSelect
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += fmt.Sprintf(" ORDER BY e.starts_at ASC, e.id ASC LIMIT %d", limit+1)

	out, err := collect(ctx, q.db, sql, args, scanEvent)
	if err != nil {
		return nil, nil, err
	}
	var next *domain.KeysetCursor
	if len(out) > limit {
		out = out[:limit]
		last := out[limit-1]
		next = &domain.KeysetCursor{At: last.StartsAt, ID: last.ID}
	}
	return out, next, nil
}

const registrationColumns = `id, user_id, event_id, status, guests, sessions, ticket_code, qr_payload,
	checked_in, checked_in_at, registered_at, cancelled_at`

func scanRegistration(row pgx.Row) (domain.Registration, error) {
	var (
		r      domain.Registration
		status string
		guests []byte
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.EventID, &status, &guests, &r.Sessions, &r.TicketCode, &r.QRPayload,
		&r.CheckedIn, &r.CheckedInAt, &r.RegisteredAt, &r.CancelledAt); err != nil {
		return domain.Registration{}, err
	}
	r.Status = domain.RegistrationStatus(status)
	if err := json.Unmarshal(guests, &r.Guests); err != nil {
		return domain.Registration{}, fmt.Errorf("decode guests of %s: %w", r.ID, err)
	}
	r.Guests = nonNil(r.Guests)
	r.Sessions = nonNil(r.Sessions)
	return r, nil
}

func (q queries) GetRegistration(ctx context.Context, id uuid.UUID) (domain.Registration, error) {
	r, err := scanRegistration(q.db.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Registration{}, domain.ErrNotFound
	}
	return r, err
}

func (q queries) ActiveRegistration(ctx context.Context, eventID, userID uuid.UUID) (*domain.Registration, error) {
	r, err := scanRegistration(q.db.QueryRow(ctx, `
		SELECT `+registrationColumns+` FROM registrations
		WHERE event_id = $1 AND user_id = $2 AND status = 'confirmed'`, eventID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (q queries) RegistrationByTicket(ctx context.Context, eventID uuid.UUID, code string) (domain.Registration, error) {
	r, err := scanRegistration(q.db.QueryRow(ctx, `
		SELECT `+registrationColumns+` FROM registrations
		WHERE event_id = $1 AND ticket_code = UPPER($2)`, eventID, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Registration{}, domain.ErrNotFound
	}
	return r, err
}

func (q queries) ListUserRegistrations(ctx context.Context, userID uuid.UUID) ([]domain.Registration, error) {
	return collect(ctx, q.db, `
		SELECT `+registrationColumns+` FROM registrations
		WHERE user_id = $1 ORDER BY registered_at DESC, id DESC`, []any{userID}, scanRegistration)
}

func (q queries) ListActiveRegistrations(ctx context.Context, eventID uuid.UUID) ([]domain.Registration, error) {
	return collect(ctx, q.db, `
		SELECT `+registrationColumns+` FROM registrations
		WHERE event_id = $1 AND status = 'confirmed' ORDER BY registered_at ASC, id ASC`, []any{eventID}, scanRegistration)
}

const waitlistColumns = `id, user_id, event_id, position, notification_preference, joined_at`

func scanWaitlist(row pgx.Row) (domain.WaitlistEntry, error) {
	var (
		w    domain.WaitlistEntry
		pref string
	)
	if err := row.Scan(&w.ID, &w.UserID, &w.EventID, &w.Position, &pref, &w.JoinedAt); err != nil {
		return domain.WaitlistEntry{}, err
	}
	w.NotificationPreference = domain.NotificationPreference(pref)
	return w, nil
}

func (q queries) GetWaitlistEntry(ctx context.Context, id uuid.UUID) (domain.WaitlistEntry, error) {
	w, err := scanWaitlist(q.db.QueryRow(ctx, `SELECT `+waitlistColumns+` FROM waitlist_entries WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.WaitlistEntry{}, domain.ErrNotFound
	}
	return w, err
}

func (q queries) WaitlistEntryFor(ctx context.Context, eventID, userID uuid.UUID) (*domain.WaitlistEntry, error) {
	w, err := scanWaitlist(q.db.QueryRow(ctx, `
		SELECT `+waitlistColumns+` FROM waitlist_entries WHERE event_id = $1 AND user_id = $2`, eventID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (q queries) ListEventWaitlist(ctx context.Context, eventID uuid.UUID) ([]domain.WaitlistEntry, error) {
	return collect(ctx, q.db, `
		SELECT `+waitlistColumns+` FROM waitlist_entries
		WHERE event_id = $1 ORDER BY position ASC, joined_at ASC`, []any{eventID}, scanWaitlist)
}

func (q queries) ListUserWaitlist(ctx context.Context, userID uuid.UUID) ([]domain.WaitlistEntry, error) {
	return collect(ctx, q.db, `
		SELECT `+waitlistColumns+` FROM waitlist_entries
		WHERE user_id = $1 ORDER BY joined_at DESC`, []any{userID}, scanWaitlist)
}

const approvalColumns = `id, kind, subject_id, submitted_by, reason, status, notes, submitted_at, decided_at, decided_by`

func scanApproval(row pgx.Row) (domain.ApprovalRequest, error) {
	var (
		a            domain.ApprovalRequest
		kind, status string
	)
	if err := row.Scan(&a.ID, &kind, &a.SubjectID, &a.SubmittedBy, &a.Reason, &status, &a.Notes,
		&a.SubmittedAt, &a.DecidedAt, &a.DecidedBy); err != nil {
		return domain.ApprovalRequest{}, err
	}
	a.Kind = domain.ApprovalKind(kind)
	a.Status = domain.ApprovalStatus(status)
	return a, nil
}

func (q queries) GetApproval(ctx context.Context, id uuid.UUID) (domain.ApprovalRequest, error) {
	a, err := scanApproval(q.db.QueryRow(ctx, `SELECT `+approvalColumns+` FROM approval_requests WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ApprovalRequest{}, domain.ErrNotFound
	}
	return a, err
}

func (q queries) ListApprovals(ctx context.Context, kind domain.ApprovalKind, status domain.ApprovalStatus) ([]domain.ApprovalRequest, error) {
	return collect(ctx, q.db, `
		SELECT `+approvalColumns+` FROM approval_requests
		WHERE ($1 = '' OR kind = $1) AND ($2 = '' OR status = $2)
		ORDER BY submitted_at ASC, id ASC`, []any{string(kind), string(status)}, scanApproval)
}

func (q queries) PendingApprovalFor(ctx context.Context, kind domain.ApprovalKind, subjectID uuid.UUID) (*domain.ApprovalRequest, error) {
	a, err := scanApproval(q.db.QueryRow(ctx, `
		SELECT `+approvalColumns+` FROM approval_requests
		WHERE kind = $1 AND subject_id = $2 AND status = 'pending'`, string(kind), subjectID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAuditLogs: ORDER BY created_at DESC, id DESC
// cursor -> WHERE (created_at, id) < (cursor.at, cursor.id)
func (q queries) ListAuditLogs(ctx context.Context, f domain.AuditFilter) ([]domain.AuditLogEntry, *domain.KeysetCursor, error) {
	limit := clampLimit(f.Limit)
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Action != "" {
		where = append(where, "action = "+arg(string(f.Action)))
	}
	if f.ActorID != nil {
		where = append(where, "actor_id = "+arg(*f.ActorID))
	}
	if f.TargetID != nil {
		where = append(where, "target_id = "+arg(*f.TargetID))
	}
	if f.From != nil {
		where = append(where, "created_at >= "+arg(*f.From))
	}
	if f.To != nil {
		where = append(where, "created_at <= "+arg(*f.To))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, `(details || ' ' || action || ' ' || target_type) ILIKE `+arg(containsPattern(s))+` ESCAPE '\'`)
	}
	if f.Cursor != nil {
		where = append(where, fmt.Sprintf("(created_at, id) < (%s, %s)", arg(f.Cursor.At), arg(f.Cursor.ID)))
	}

	sql := `SELECT id, action, actor_id, target_id, target_type, details, created_at FROM audit_logs`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT %d", limit+1)

	out, err := collect(ctx, q.db, sql, args, func(row pgx.Row) (domain.AuditLogEntry, error) {
		var (
			e      domain.AuditLogEntry
			action string
		)
		err := row.Scan(&e.ID, &action, &e.ActorID, &e.TargetID, &e.TargetType, &e.Details, &e.CreatedAt)
		e.Action = domain.AuditAction(action)
		return e, err
	})
	if err != nil {
		return nil, nil, err
	}
	var next *domain.KeysetCursor
	if len(out) > limit {
		out = out[:limit]
		last := out[limit-1]
		next = &domain.KeysetCursor{At: last.CreatedAt, ID: last.ID}
	}
	return out, next, nil
}

func scanCategory(row pgx.Row) (domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Color, &c.Active)
	return c, err
}

func (q queries) ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	return collect(ctx, q.db, `
		SELECT id, name, slug, color, active FROM categories
		WHERE active OR NOT $1 ORDER BY name ASC`, []any{activeOnly}, scanCategory)
}

func (q queries) GetCategory(ctx context.Context, id uuid.UUID) (domain.Category, error) {
	c, err := scanCategory(q.db.QueryRow(ctx, `SELECT id, name, slug, color, active FROM categories WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Category{}, domain.ErrNotFound
	}
	return c, err
}

func (q queries) CategoryBySlug(ctx context.Context, slug string) (domain.Category, error) {
	c, err := scanCategory(q.db.QueryRow(ctx, `SELECT id, name, slug, color, active FROM categories WHERE slug = $1`, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Category{}, domain.ErrNotFound
	}
	return c, err
}

func scanVenue(row pgx.Row) (domain.Venue, error) {
	var v domain.Venue
	err := row.Scan(&v.ID, &v.Name, &v.Building, &v.Capacity, &v.Active)
	return v, err
}

func (q queries) ListVenues(ctx context.Context, activeOnly bool) ([]domain.Venue, error) {
	return collect(ctx, q.db, `
		SELECT id, name, building, capacity, active FROM venues
		WHERE active OR NOT $1 ORDER BY name ASC`, []any{activeOnly}, scanVenue)
}

func (q queries) GetVenue(ctx context.Context, id uuid.UUID) (domain.Venue, error) {
	v, err := scanVenue(q.db.QueryRow(ctx, `SELECT id, name, building, capacity, active FROM venues WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Venue{}, domain.ErrNotFound
	}
	return v, err
}

// collect runs a query and scans every row; the result is never nil.
func collect[T any](ctx context.Context, db querier, sql string, args []any, scan func(pgx.Row) (T, error)) ([]T, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
